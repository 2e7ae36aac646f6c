package config

import (
	"encoding/json"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

// ErrInvalid is the cause of every validation and parse failure.
var ErrInvalid = errors.New("invalid configuration")

// S3 locates an optional remote copy of the source video.
type S3 struct {
	Bucket          string
	Key             string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// Enabled reports whether a remote object is configured.
func (s S3) Enabled() bool {
	return s.Bucket != "" && s.Key != ""
}

// Config is the runtime configuration of the player.
type Config struct {
	GameTitle          string
	AssetRoot          string
	VideoPath          string
	VideoDecoder       string
	SurfaceBuffers     int
	SurfaceHeightScale int
	MaxCatchUpFrames   int
	ExitKey            string
	PollInterval       time.Duration
	StatsInterval      time.Duration
	DebugFrameUpdates  bool
	VideoDriver        string
	SettingsFile       string
	S3                 S3
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		GameTitle:          "Loop Frame",
		AssetRoot:          "assets",
		VideoPath:          "video.mpg",
		SurfaceBuffers:     2,
		SurfaceHeightScale: 4,
		MaxCatchUpFrames:   8,
		ExitKey:            "Escape",
		StatsInterval:      5 * time.Second,
	}
}

// settingsFile is the JSON layer. Zero values leave the lower layer alone so
// partially written files keep working when fields are added.
type settingsFile struct {
	VideoPath          string `json:"videoPath"`
	VideoDecoder       string `json:"videoDecoder"`
	SurfaceBuffers     int    `json:"surfaceBuffers"`
	SurfaceHeightScale int    `json:"surfaceHeightScale"`
	MaxCatchUpFrames   int    `json:"maxCatchUpFrames"`
	ExitKey            string `json:"exitKey"`
	PollInterval       string `json:"pollInterval"`
	StatsInterval      string `json:"statsInterval"`
}

// LookupFunc reads one variable; os.LookupEnv is the production source.
type LookupFunc func(key string) (string, bool)

// Load builds the configuration from defaults, the JSON settings file named
// by SETTINGS_FILE, then the environment after loading .env files.
func Load(envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}
	return load(os.LookupEnv)
}

func load(lookup LookupFunc) (Config, error) {
	cfg := Default()
	if path, ok := lookup("SETTINGS_FILE"); ok && path != "" {
		cfg.SettingsFile = path
		if err := cfg.applyFile(path); err != nil {
			return cfg, err
		}
	}
	if err := cfg.applyEnv(lookup); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyFile overlays the JSON settings file. A missing or malformed file is
// logged and ignored; bad durations inside a well-formed file are errors.
func (c *Config) applyFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		log.Printf("Config: no settings file at %s, using defaults", path)
		return nil
	}
	defer f.Close()

	var s settingsFile
	if err := json.NewDecoder(f).Decode(&s); err != nil {
		log.Printf("Config: ignoring malformed settings file %s: %v", path, err)
		return nil
	}

	if s.VideoPath != "" {
		c.VideoPath = s.VideoPath
	}
	if s.VideoDecoder != "" {
		c.VideoDecoder = s.VideoDecoder
	}
	if s.SurfaceBuffers != 0 {
		c.SurfaceBuffers = s.SurfaceBuffers
	}
	if s.SurfaceHeightScale != 0 {
		c.SurfaceHeightScale = s.SurfaceHeightScale
	}
	if s.MaxCatchUpFrames != 0 {
		c.MaxCatchUpFrames = s.MaxCatchUpFrames
	}
	if s.ExitKey != "" {
		c.ExitKey = s.ExitKey
	}
	if s.PollInterval != "" {
		d, err := parseDuration("pollInterval", s.PollInterval)
		if err != nil {
			return err
		}
		c.PollInterval = d
	}
	if s.StatsInterval != "" {
		d, err := parseDuration("statsInterval", s.StatsInterval)
		if err != nil {
			return err
		}
		c.StatsInterval = d
	}
	return nil
}

func (c *Config) applyEnv(lookup LookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("GAME_TITLE", &c.GameTitle)
	str("ASSET_ROOT", &c.AssetRoot)
	str("VIDEO_PATH", &c.VideoPath)
	str("VIDEO_DECODER", &c.VideoDecoder)
	str("EXIT_KEY", &c.ExitKey)
	str("SDL_VIDEODRIVER", &c.VideoDriver)
	str("VIDEO_S3_BUCKET", &c.S3.Bucket)
	str("VIDEO_S3_KEY", &c.S3.Key)
	str("AWS_DEFAULT_REGION", &c.S3.Region)
	str("AWS_ACCESS_KEY_ID", &c.S3.AccessKeyID)
	str("AWS_SECRET_ACCESS_KEY", &c.S3.SecretAccessKey)

	ints := []struct {
		key string
		dst *int
	}{
		{"SURFACE_BUFFERS", &c.SurfaceBuffers},
		{"SURFACE_HEIGHT_SCALE", &c.SurfaceHeightScale},
		{"MAX_CATCHUP_FRAMES", &c.MaxCatchUpFrames},
	}
	for _, e := range ints {
		v, ok := lookup(e.key)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return errors.Wrapf(ErrInvalid, "%s=%q is not an integer", e.key, v)
		}
		*e.dst = n
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"POLL_INTERVAL", &c.PollInterval},
		{"STATS_INTERVAL", &c.StatsInterval},
	}
	for _, e := range durations {
		v, ok := lookup(e.key)
		if !ok || v == "" {
			continue
		}
		d, err := parseDuration(e.key, v)
		if err != nil {
			return err
		}
		*e.dst = d
	}

	if v, ok := lookup("DEBUG_FRAME_UPDATES"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.Wrapf(ErrInvalid, "DEBUG_FRAME_UPDATES=%q is not a boolean", v)
		}
		c.DebugFrameUpdates = b
	}
	return nil
}

// parseDuration accepts Go durations ("16ms") or bare milliseconds ("16").
func parseDuration(key, v string) (time.Duration, error) {
	v = strings.TrimSpace(v)
	if ms, err := strconv.Atoi(v); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, errors.Wrapf(ErrInvalid, "%s=%q is not a duration", key, v)
	}
	return d, nil
}

// Validate rejects values the player cannot run with.
func (c Config) Validate() error {
	switch {
	case c.AssetRoot == "":
		return errors.Wrap(ErrInvalid, "asset root is empty")
	case c.VideoPath == "":
		return errors.Wrap(ErrInvalid, "video path is empty")
	case c.SurfaceBuffers < 2:
		return errors.Wrapf(ErrInvalid, "surface buffers %d, need at least 2", c.SurfaceBuffers)
	case c.SurfaceHeightScale < 1:
		return errors.Wrapf(ErrInvalid, "surface height scale %d, need at least 1", c.SurfaceHeightScale)
	case c.MaxCatchUpFrames < 1:
		return errors.Wrapf(ErrInvalid, "max catch-up frames %d, need at least 1", c.MaxCatchUpFrames)
	case c.PollInterval < 0 || c.StatsInterval < 0:
		return errors.Wrap(ErrInvalid, "intervals must not be negative")
	}
	return nil
}
