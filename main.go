package main

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/veandco/go-sdl2/sdl"

	"loop-frame/pkg/config"
	"loop-frame/pkg/console"
	"loop-frame/pkg/input"
	"loop-frame/pkg/mpeg"
	"loop-frame/pkg/player"
	"loop-frame/pkg/storage"
	"loop-frame/pkg/surface"
	"loop-frame/pkg/video"
)

const (
	fetchTimeout = 2 * time.Minute
	idleDelay    = 16 // ms between console redraws in degraded mode
)

func main() {
	// SDL must stay on the main thread
	runtime.LockOSThread()

	log.SetFlags(log.LstdFlags | log.Lshortfile)

	os.Exit(run())
}

// run returns the process exit status: 0 after a normal or degraded run, 1
// when setup fails before the loop starts.
func run() int {
	cfg, err := config.Load()
	if err != nil {
		log.Printf("Invalid configuration: %v", err)
		return 1
	}

	mount, err := storage.MountRoot(cfg.AssetRoot)
	if err != nil {
		log.Printf("Failed to mount assets: %v", err)
		return 1
	}
	if cfg.S3.Enabled() {
		fetchSource(cfg, mount)
	}

	if err := initializeSDL2(cfg.VideoDriver); err != nil {
		log.Printf("Failed to initialize SDL2: %v", err)
		mount.Close()
		return 1
	}
	defer func() {
		log.Println("Shutting down SDL2...")
		sdl.Quit()
	}()

	screenWidth, screenHeight, refreshRate := getDisplayDimensions()
	log.Printf("Starting %s | Resolution: %dx%d @ %dHz", cfg.GameTitle, screenWidth, screenHeight, refreshRate)
	logDisplayInfo()

	window, err := createWindow(cfg.GameTitle, screenWidth, screenHeight)
	if err != nil {
		log.Printf("Failed to create window: %v", err)
		mount.Close()
		return 1
	}
	defer window.Destroy()

	renderer, err := createRenderer(window)
	if err != nil {
		log.Printf("Failed to create renderer: %v", err)
		mount.Close()
		return 1
	}
	defer renderer.Destroy()

	session := player.Open(player.Config{
		SourcePath:  cfg.VideoPath,
		HeightScale: cfg.SurfaceHeightScale,
		BufferCount: cfg.SurfaceBuffers,
		Debug:       cfg.DebugFrameUpdates,
	}, sourceOpener(cfg, mount), surfaceFactory(renderer, surface.RefreshInterval(refreshRate)))
	session.AttachMount(mount)
	defer session.Close()

	poller := input.NewPoller(input.ParseExitKey(cfg.ExitKey))
	defer poller.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	poller.WatchSignals(ctx)

	opts := []player.LoopOption{
		player.WithPollInterval(cfg.PollInterval),
		player.WithStatsInterval(cfg.StatsInterval),
	}
	if disabled, ok := session.State().(player.Disabled); ok {
		con := showDiagnostics(renderer, cfg, mount, disabled.Reason)
		session.AttachConsole(con)
		opts = append(opts, player.WithIdle(func() {
			con.Draw()
			sdl.Delay(idleDelay)
		}))
	}

	log.Printf("Session %s running", session.ID)
	player.NewLoop(session, poller, player.SDLClock{}, opts...).Run()

	log.Printf("%s shutting down...", cfg.GameTitle)
	return 0
}

// sourceOpener resolves the configured path inside the mount and opens it
// with ffmpeg.
func sourceOpener(cfg config.Config, mount *storage.Mount) player.Opener {
	return func(rel string) (player.Engine, error) {
		path, err := mount.Resolve(rel)
		if err != nil {
			return nil, err
		}
		engine, err := mpeg.Open(path, cfg.VideoDecoder,
			video.WithMaxCatchUp(cfg.MaxCatchUpFrames),
			video.WithDebug(cfg.DebugFrameUpdates))
		if err != nil {
			return nil, err
		}
		return engine, nil
	}
}

func surfaceFactory(renderer *sdl.Renderer, refresh time.Duration) player.SurfaceFactory {
	return func(sc surface.Config) (surface.Surface, error) {
		s, err := surface.NewSDL(renderer, sc, refresh)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

// fetchSource refreshes the source from S3. Failure leaves whatever is in
// the mount, which may mean degraded mode later.
func fetchSource(cfg config.Config, mount *storage.Mount) {
	client, err := storage.NewS3Client(cfg.S3)
	if err != nil {
		log.Printf("Fetch skipped: %v", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()
	if _, err := mount.Fetch(ctx, client, cfg.S3.Bucket, cfg.S3.Key, cfg.VideoPath); err != nil {
		log.Printf("Fetch failed: %v", err)
	}
}

func showDiagnostics(renderer *sdl.Renderer, cfg config.Config, mount *storage.Mount, reason error) *console.Console {
	con := console.New(renderer, cfg.GameTitle, os.Stderr)
	con.Printf("Failed to open %s", cfg.VideoPath)
	con.Printf("%v", reason)

	if videos, err := mount.Videos(filepath.Dir(cfg.VideoPath)); err == nil && len(videos) > 0 {
		con.Printf("Videos found: %s", strings.Join(videos, ", "))
	}
	con.Printf("Press + or %s to exit", cfg.ExitKey)
	return con
}
