package player

import (
	"io"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"loop-frame/pkg/performance"
	"loop-frame/pkg/pixel"
	"loop-frame/pkg/surface"
	"loop-frame/pkg/video"
)

const (
	DefaultHeightScale = 4
	statsWindow        = 120
)

// Engine is the decoder handle the session drives. *video.Engine satisfies it.
type Engine interface {
	Width() int
	Height() int
	SetFrameSink(sink video.FrameSink)
	SetLoop(loop bool)
	SetAudioEnabled(enabled bool)
	Decode(dt float64)
	Stats() video.Stats
	Close() error
}

var _ Engine = (*video.Engine)(nil)

// Opener opens the source at path.
type Opener func(path string) (Engine, error)

// SurfaceFactory creates a presentation surface.
type SurfaceFactory func(cfg surface.Config) (surface.Surface, error)

// PlaybackState is either Disabled or Active.
type PlaybackState interface {
	playbackState()
}

// Disabled means playback could not start. The loop only polls for exit.
type Disabled struct {
	Reason error
}

// Active holds the resources of a running playback.
type Active struct {
	Engine  Engine
	Surface surface.Surface
}

func (Disabled) playbackState() {}
func (Active) playbackState()   {}

// Config holds what Open needs to start playback.
type Config struct {
	SourcePath  string
	HeightScale int
	BufferCount int
	Debug       bool
}

// Option customizes a Session.
type Option func(*Session)

// WithConverter replaces the RGBA converter used by the pump.
func WithConverter(c pixel.Converter) Option {
	return func(s *Session) { s.pump.conv = c }
}

// WithMonitor replaces the statistics monitor.
func WithMonitor(m *performance.PlaybackMonitor) Option {
	return func(s *Session) { s.monitor = m }
}

// Session is the context of one run: playback state, the diagnostic console
// shown in degraded mode, and the storage mount the source was read from.
type Session struct {
	ID uuid.UUID

	state   PlaybackState
	pump    *Pump
	monitor *performance.PlaybackMonitor

	console io.Closer
	mount   io.Closer

	closeOnce sync.Once
	closeErr  error
}

// Open starts playback. Failures are not returned: they turn the session into
// Disabled with the reason attached.
func Open(cfg Config, open Opener, newSurface SurfaceFactory, opts ...Option) *Session {
	s := &Session{
		ID:      uuid.New(),
		monitor: performance.NewPlaybackMonitor(statsWindow),
	}
	s.pump = newPump(s, cfg.Debug)
	for _, opt := range opts {
		opt(s)
	}
	s.state = s.start(cfg, open, newSurface)

	if d, ok := s.state.(Disabled); ok {
		log.Printf("Open: session %s: playback disabled: %v", s.ID, d.Reason)
	}
	return s
}

func (s *Session) start(cfg Config, open Opener, newSurface SurfaceFactory) PlaybackState {
	engine, err := open(cfg.SourcePath)
	if err != nil {
		return Disabled{Reason: errors.Wrapf(err, "open %s", cfg.SourcePath)}
	}

	scale := cfg.HeightScale
	if scale < 1 {
		scale = 1
	}
	sc := surface.Config{
		Width:       engine.Width(),
		Height:      engine.Height() * scale,
		BufferCount: cfg.BufferCount,
		Format:      surface.RGBA8888,
	}
	surf, err := newSurface(sc)
	if err != nil {
		if cerr := engine.Close(); cerr != nil {
			log.Printf("Open: session %s: closing decoder: %v", s.ID, cerr)
		}
		return Disabled{Reason: errors.Wrapf(err, "create %dx%d surface", sc.Width, sc.Height)}
	}

	engine.SetFrameSink(s.pump)
	engine.SetLoop(true)
	engine.SetAudioEnabled(false)

	log.Printf("Open: session %s: %s %dx%d -> surface %dx%d x%d buffers",
		s.ID, cfg.SourcePath, engine.Width(), engine.Height(), sc.Width, sc.Height, sc.BufferCount)
	return Active{Engine: engine, Surface: surf}
}

// State returns the current playback state.
func (s *Session) State() PlaybackState { return s.state }

// Active reports whether playback is running.
func (s *Session) Active() bool {
	_, ok := s.state.(Active)
	return ok
}

// Pump returns the session's frame pump.
func (s *Session) Pump() *Pump { return s.pump }

// Monitor returns the playback statistics.
func (s *Session) Monitor() *performance.PlaybackMonitor { return s.monitor }

// AttachConsole hands ownership of the diagnostic console to the session.
func (s *Session) AttachConsole(c io.Closer) { s.console = c }

// AttachMount hands ownership of the storage mount to the session.
func (s *Session) AttachMount(m io.Closer) { s.mount = m }

// Close releases the decoder, the surface or console, then the mount. Only
// the first call does anything; the first error is returned.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		if a, ok := s.state.(Active); ok {
			s.closeOne("decoder", a.Engine)
			s.closeOne("surface", a.Surface)
		}
		s.closeOne("console", s.console)
		s.closeOne("mount", s.mount)
		s.state = Disabled{Reason: errors.New("session closed")}
	})
	return s.closeErr
}

func (s *Session) closeOne(name string, c io.Closer) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil {
		log.Printf("Close: session %s: %s: %v", s.ID, name, err)
		if s.closeErr == nil {
			s.closeErr = errors.Wrapf(err, "close %s", name)
		}
	}
}
