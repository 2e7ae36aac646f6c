package main

import (
	"log"
	"os"
	"runtime"

	"github.com/pkg/errors"
	"github.com/veandco/go-sdl2/sdl"
)

const (
	fallbackWidth  = 1280
	fallbackHeight = 720
)

// videoDrivers returns the drivers to try in order. An explicit driver from
// the environment goes first.
func videoDrivers(preferred string) []string {
	if preferred != "" {
		return []string{preferred, "fbcon", "software", "dummy"}
	}
	if runtime.GOOS == "darwin" {
		return []string{"cocoa", "software", "dummy"}
	}
	return []string{
		"kmsdrm",   // Kernel Mode Setting + DRM, handheld and SBC GPUs
		"drm",      // Direct Rendering Manager fallback
		"fbcon",    // Framebuffer console
		"wayland",  // Wayland (requires compositor)
		"x11",      // X11 fallback
		"software", // Software rendering (needs display server)
		"dummy",    // Last resort for testing
	}
}

// initializeSDL2 initializes SDL2 with fallback video drivers
func initializeSDL2(preferred string) error {
	if _, err := os.Stat("/dev/fb0"); err == nil {
		log.Printf("Framebuffer /dev/fb0: available")
	}
	if _, err := os.Stat("/dev/dri"); err == nil {
		log.Printf("DRI directory: available")
	}

	for _, driver := range videoDrivers(preferred) {
		log.Printf("Attempting SDL2 initialization with %s driver", driver)
		os.Setenv("SDL_VIDEODRIVER", driver)

		if err := trySDLInitialization(driver); err != nil {
			log.Printf("SDL2 initialization failed with %s driver: %v", driver, err)
			continue
		}

		log.Printf("SDL2 successfully initialized with %s driver", driver)
		return nil
	}

	return errors.New("all SDL2 video drivers failed")
}

// trySDLInitialization sets driver hints and brings up video. Game controller
// support is optional.
func trySDLInitialization(driver string) error {
	sdl.Quit()

	sdl.SetHint(sdl.HINT_VIDEODRIVER, driver)
	switch driver {
	case "kmsdrm":
		sdl.SetHint("SDL_KMSDRM_REQUIRE_DRM_MASTER", "1")
		sdl.SetHint("SDL_VIDEO_KMSDRM_DEVINDEX", "0")
		sdl.SetHint("SDL_VIDEO_ALLOW_SCREENSAVER", "0")
	case "fbcon":
		sdl.SetHint("SDL_FBDEV", "/dev/fb0")
	case "wayland":
		sdl.SetHint("SDL_VIDEO_WAYLAND_WMCLASS", "loop-frame")
	case "software":
		sdl.SetHint("SDL_FRAMEBUFFER_ACCELERATION", "0")
	}

	switch driver {
	case "kmsdrm", "drm":
		sdl.SetHint(sdl.HINT_RENDER_DRIVER, "opengles2")
	case "cocoa":
		sdl.SetHint(sdl.HINT_RENDER_DRIVER, "opengl")
	default:
		sdl.SetHint(sdl.HINT_RENDER_DRIVER, "software")
	}
	sdl.SetHint(sdl.HINT_RENDER_BATCHING, "1")
	sdl.SetHint(sdl.HINT_VIDEO_MINIMIZE_ON_FOCUS_LOSS, "0")
	// letterboxed video must not be smoothed into mush at 4x height
	sdl.SetHint(sdl.HINT_RENDER_SCALE_QUALITY, "0")

	if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
		return errors.Wrap(err, "SDL_INIT_VIDEO failed")
	}

	driverName, err := sdl.GetCurrentVideoDriver()
	if err != nil {
		return errors.Wrap(err, "failed to get video driver")
	}
	log.Printf("Video driver initialized: %s", driverName)

	if err := sdl.InitSubSystem(sdl.INIT_GAMECONTROLLER); err != nil {
		log.Printf("Warning: Game controller initialization failed: %v", err)
	}
	return nil
}

// getDisplayDimensions returns the screen dimensions and refresh rate, or
// fallback values when the display mode is unknown
func getDisplayDimensions() (int32, int32, int32) {
	mode, err := sdl.GetCurrentDisplayMode(0)
	if err != nil {
		log.Printf("Warning: Failed to get display mode, using fallback: %v", err)
		return fallbackWidth, fallbackHeight, 0
	}
	return mode.W, mode.H, mode.RefreshRate
}

// logDisplayInfo outputs debugging information about the display setup
func logDisplayInfo() {
	numDisplays, err := sdl.GetNumVideoDisplays()
	if err != nil {
		log.Printf("Failed to get number of displays: %v", err)
		return
	}
	for i := 0; i < numDisplays; i++ {
		name, _ := sdl.GetDisplayName(i)
		if mode, err := sdl.GetCurrentDisplayMode(i); err == nil {
			log.Printf("Display %d (%s): %dx%d @ %dHz", i, name, mode.W, mode.H, mode.RefreshRate)
		} else {
			log.Printf("Display %d (%s): failed to get mode (%v)", i, name, err)
		}
	}
}

// createWindow creates a fullscreen SDL2 window
func createWindow(title string, width, height int32) (*sdl.Window, error) {
	window, err := sdl.CreateWindow(title, 0, 0, width, height, sdl.WINDOW_SHOWN|sdl.WINDOW_FULLSCREEN)
	if err != nil {
		return nil, errors.Wrap(err, "create window")
	}
	return window, nil
}

// createRenderer tries hardware acceleration on GPU drivers and falls back
// to the software renderer. VSync stays off: the surface paces itself.
func createRenderer(window *sdl.Window) (*sdl.Renderer, error) {
	currentDriver, err := sdl.GetCurrentVideoDriver()
	if err != nil {
		currentDriver = "unknown"
	}

	var renderer *sdl.Renderer
	if currentDriver == "kmsdrm" || currentDriver == "drm" || currentDriver == "cocoa" {
		renderer, err = sdl.CreateRenderer(window, -1, sdl.RENDERER_ACCELERATED)
		if err != nil {
			log.Printf("Hardware acceleration failed, trying software: %v", err)
			renderer = nil
		} else {
			log.Printf("Hardware acceleration successful for %s driver", currentDriver)
		}
	}

	if renderer == nil {
		log.Printf("Using software renderer for %s driver", currentDriver)
		renderer, err = sdl.CreateRenderer(window, -1, sdl.RENDERER_SOFTWARE)
		if err != nil {
			return nil, errors.Wrap(err, "create renderer")
		}
	}

	renderer.SetDrawBlendMode(sdl.BLENDMODE_BLEND)
	return renderer, nil
}
