package player

import (
	"fmt"
	"image"
	"reflect"
	"strings"
	"testing"
	"testing/quick"
	"time"

	"github.com/pkg/errors"

	"loop-frame/pkg/surface"
	"loop-frame/pkg/video"
)

// callLog records calls across fakes so ordering can be asserted.
type callLog struct {
	calls []string
}

func (l *callLog) add(format string, args ...interface{}) {
	l.calls = append(l.calls, fmt.Sprintf(format, args...))
}

func (l *callLog) count(name string) int {
	n := 0
	for _, c := range l.calls {
		if c == name {
			n++
		}
	}
	return n
}

type fakeEngine struct {
	log           *callLog
	width, height int
	sink          video.FrameSink
	loop, audio   bool
	framesPerCall int
	img           *image.YCbCr
	decodes       []float64
	emitted       int
	stats         video.Stats
	closeErr      error
}

func (e *fakeEngine) Width() int                        { return e.width }
func (e *fakeEngine) Height() int                       { return e.height }
func (e *fakeEngine) SetFrameSink(sink video.FrameSink) { e.sink = sink }
func (e *fakeEngine) SetLoop(loop bool)                 { e.loop = loop }
func (e *fakeEngine) SetAudioEnabled(enabled bool)      { e.audio = enabled }
func (e *fakeEngine) Stats() video.Stats                { return e.stats }

func (e *fakeEngine) Decode(dt float64) {
	e.log.add("decode")
	e.decodes = append(e.decodes, dt)
	for i := 0; i < e.framesPerCall; i++ {
		if e.sink != nil {
			e.sink.OnFrame(&video.Frame{Index: e.emitted, Image: e.img})
		}
		e.emitted++
	}
}

func (e *fakeEngine) Close() error {
	e.log.add("engine.close")
	return e.closeErr
}

type fakeSurface struct {
	log        *callLog
	cfg        surface.Config
	available  []bool // scripted Begin results, true once exhausted
	held       bool
	violations int
	buf        []byte
	content    image.Point
}

func (s *fakeSurface) SetContentSize(width, height int) {
	if !s.held {
		s.violations++
	}
	s.content = image.Pt(width, height)
}

func (s *fakeSurface) Begin() (surface.BackBuffer, bool) {
	s.log.add("begin")
	if s.held {
		s.violations++
	}
	ok := true
	if len(s.available) > 0 {
		ok = s.available[0]
		s.available = s.available[1:]
	}
	if !ok {
		return surface.BackBuffer{}, false
	}
	s.held = true
	return surface.BackBuffer{Pixels: s.buf, Stride: s.cfg.Width * 4}, true
}

func (s *fakeSurface) End() {
	s.log.add("end")
	if !s.held {
		s.violations++
	}
	s.held = false
}

func (s *fakeSurface) Close() error {
	s.log.add("surface.close")
	return nil
}

type fakeConverter struct {
	log *callLog
	err error
}

func (c *fakeConverter) Convert(frame *video.Frame, dst []byte, stride int) error {
	c.log.add("convert")
	return c.err
}

type namedCloser struct {
	log  *callLog
	name string
}

func (c namedCloser) Close() error {
	c.log.add(c.name + ".close")
	return nil
}

type fakeClock struct {
	tick, step, freq uint64
}

func (c *fakeClock) Ticks() uint64 {
	t := c.tick
	c.tick += c.step
	return t
}

func (c *fakeClock) Frequency() uint64 { return c.freq }

// exitAfter requests exit on the poll with index k.
type exitAfter struct {
	k, polls int
}

func (p *exitAfter) ExitRequested() bool {
	exit := p.polls >= p.k
	p.polls++
	return exit
}

type fixture struct {
	log     *callLog
	engine  *fakeEngine
	surface *fakeSurface
	conv    *fakeConverter
	session *Session
}

func openFixture(t *testing.T, framesPerCall int, available ...bool) *fixture {
	t.Helper()
	f := &fixture{log: &callLog{}}
	f.engine = &fakeEngine{log: f.log, width: 480, height: 90, framesPerCall: framesPerCall, audio: true}
	f.conv = &fakeConverter{log: f.log}

	open := func(path string) (Engine, error) { return f.engine, nil }
	newSurface := func(cfg surface.Config) (surface.Surface, error) {
		f.surface = &fakeSurface{log: f.log, cfg: cfg, available: available, buf: make([]byte, cfg.Width*cfg.Height*4)}
		return f.surface, nil
	}
	f.session = Open(Config{SourcePath: "video.mpg", HeightScale: DefaultHeightScale, BufferCount: 2}, open, newSurface, WithConverter(f.conv))
	if !f.session.Active() {
		t.Fatalf("expected active session, got %#v", f.session.State())
	}
	return f
}

func TestOpenConfiguresEngineAndSurface(t *testing.T) {
	f := openFixture(t, 0)

	want := surface.Config{Width: 480, Height: 360, BufferCount: 2, Format: surface.RGBA8888}
	if f.surface.cfg != want {
		t.Fatalf("surface config = %+v, want %+v", f.surface.cfg, want)
	}
	if f.engine.sink != f.session.Pump() {
		t.Error("pump must be registered as the frame sink")
	}
	if !f.engine.loop {
		t.Error("looping must be enabled")
	}
	if f.engine.audio {
		t.Error("audio must be disabled")
	}

	f.session.Pump().RunOnce(0.016)
	if len(f.engine.decodes) != 1 || f.engine.decodes[0] != 0.016 {
		t.Errorf("decodes = %v, want [0.016]", f.engine.decodes)
	}
}

func TestOpenFailureDisablesPlayback(t *testing.T) {
	errMissing := errors.New("no such file")
	factoryCalls := 0
	s := Open(Config{SourcePath: "missing.mpg", HeightScale: 4, BufferCount: 2},
		func(string) (Engine, error) { return nil, errMissing },
		func(surface.Config) (surface.Surface, error) {
			factoryCalls++
			return nil, nil
		})

	d, ok := s.State().(Disabled)
	if !ok {
		t.Fatalf("expected Disabled, got %#v", s.State())
	}
	if errors.Cause(d.Reason) != errMissing {
		t.Errorf("reason = %v, want cause %v", d.Reason, errMissing)
	}
	if factoryCalls != 0 {
		t.Errorf("surface factory called %d times", factoryCalls)
	}

	// RunOnce and OnFrame must be no-ops without a surface.
	s.Pump().RunOnce(1)
	s.Pump().OnFrame(&video.Frame{})
}

func TestSurfaceFailureClosesEngine(t *testing.T) {
	log := &callLog{}
	engine := &fakeEngine{log: log, width: 480, height: 90}
	s := Open(Config{SourcePath: "video.mpg", HeightScale: 4, BufferCount: 1},
		func(string) (Engine, error) { return engine, nil },
		func(cfg surface.Config) (surface.Surface, error) { return nil, cfg.Validate() })

	d, ok := s.State().(Disabled)
	if !ok {
		t.Fatalf("expected Disabled, got %#v", s.State())
	}
	if errors.Cause(d.Reason) != surface.ErrBufferCount {
		t.Errorf("reason = %v, want ErrBufferCount", d.Reason)
	}
	if log.count("engine.close") != 1 {
		t.Errorf("engine closed %d times, want 1", log.count("engine.close"))
	}
	if engine.sink != nil {
		t.Error("sink must not be registered on failure")
	}
}

func TestHeightScaleBelowOne(t *testing.T) {
	var got surface.Config
	Open(Config{SourcePath: "v", HeightScale: 0, BufferCount: 3},
		func(string) (Engine, error) { return &fakeEngine{log: &callLog{}, width: 64, height: 48}, nil },
		func(cfg surface.Config) (surface.Surface, error) {
			got = cfg
			return &fakeSurface{log: &callLog{}, cfg: cfg}, nil
		})
	if got.Height != 48 || got.BufferCount != 3 {
		t.Errorf("surface config = %+v, want height 48 and 3 buffers", got)
	}
}

func TestRunOnceClampsNegativeDelta(t *testing.T) {
	f := openFixture(t, 0)
	f.session.Pump().RunOnce(-0.5)
	f.session.Pump().RunOnce(0.25)
	if !reflect.DeepEqual(f.engine.decodes, []float64{0, 0.25}) {
		t.Errorf("decodes = %v, want [0 0.25]", f.engine.decodes)
	}
	if got := f.session.Monitor().Report().Iterations; got != 2 {
		t.Errorf("monitor iterations = %d, want 2", got)
	}
}

func TestOnFrameFullCycle(t *testing.T) {
	f := openFixture(t, 2)
	f.session.Pump().RunOnce(0.1)

	want := []string{"decode", "begin", "convert", "end", "begin", "convert", "end"}
	if !reflect.DeepEqual(f.log.calls, want) {
		t.Errorf("calls = %v, want %v", f.log.calls, want)
	}
	if got := f.session.Monitor().Report().Presented; got != 2 {
		t.Errorf("presented = %d, want 2", got)
	}
}

func TestOnFrameReportsWrittenArea(t *testing.T) {
	f := openFixture(t, 1)
	f.engine.img = image.NewYCbCr(image.Rect(0, 0, 480, 90), image.YCbCrSubsampleRatio420)
	f.session.Pump().RunOnce(0.1)

	// the surface is 4x taller than the frame; only the frame rows are shown
	if f.surface.cfg.Height != 360 {
		t.Fatalf("surface height = %d, want 360", f.surface.cfg.Height)
	}
	if f.surface.content != image.Pt(480, 90) {
		t.Errorf("content size = %v, want (480,90)", f.surface.content)
	}
	if f.surface.violations != 0 {
		t.Errorf("content size set outside Begin/End, violations = %d", f.surface.violations)
	}
}

func TestBeginUnavailableDropsFrames(t *testing.T) {
	f := openFixture(t, 3, false, false, false)
	f.session.Pump().RunOnce(0.1)

	if n := f.log.count("end"); n != 0 {
		t.Errorf("End called %d times, want 0", n)
	}
	if n := f.log.count("convert"); n != 0 {
		t.Errorf("Convert called %d times, want 0", n)
	}
	if r := f.session.Monitor().Report(); r.Dropped != 3 || r.Presented != 0 {
		t.Errorf("dropped/presented = %d/%d, want 3/0", r.Dropped, r.Presented)
	}

	// next iteration recovers once buffers free up
	f.session.Pump().RunOnce(0.1)
	if n := f.log.count("end"); n != 3 {
		t.Errorf("End called %d times after recovery, want 3", n)
	}
}

func TestConvertErrorStillSubmits(t *testing.T) {
	f := openFixture(t, 1)
	f.conv.err = errors.New("bad stride")
	f.session.Pump().RunOnce(0.1)

	if f.log.count("end") != 1 || f.surface.violations != 0 {
		t.Errorf("calls = %v, violations = %d", f.log.calls, f.surface.violations)
	}
}

func TestDisabledAfterCloseTouchesNoSurface(t *testing.T) {
	f := openFixture(t, 0)
	if err := f.session.Close(); err != nil {
		t.Fatal(err)
	}
	before := len(f.log.calls)
	f.session.Pump().OnFrame(&video.Frame{})
	f.session.Pump().RunOnce(1)
	if len(f.log.calls) != before {
		t.Errorf("unexpected calls after close: %v", f.log.calls[before:])
	}
}

func TestBeginEndPairingProperty(t *testing.T) {
	property := func(pattern []bool) bool {
		f := &fixture{log: &callLog{}}
		f.engine = &fakeEngine{log: f.log, width: 8, height: 2, framesPerCall: len(pattern)}
		f.session = Open(Config{SourcePath: "v", HeightScale: 1, BufferCount: 2},
			func(string) (Engine, error) { return f.engine, nil },
			func(cfg surface.Config) (surface.Surface, error) {
				f.surface = &fakeSurface{log: f.log, cfg: cfg, available: append([]bool(nil), pattern...)}
				return f.surface, nil
			}, WithConverter(&fakeConverter{log: f.log}))
		f.session.Pump().RunOnce(1)

		free := 0
		for _, ok := range pattern {
			if ok {
				free++
			}
		}
		return f.surface.violations == 0 && !f.surface.held &&
			f.log.count("end") == free && f.log.count("convert") == free
	}
	if err := quick.Check(property, nil); err != nil {
		t.Error(err)
	}
}

func TestSessionCloseOrderAndOnce(t *testing.T) {
	f := openFixture(t, 0)
	f.session.AttachConsole(namedCloser{f.log, "console"})
	f.session.AttachMount(namedCloser{f.log, "mount"})

	f.session.Close()
	f.session.Close()

	want := []string{"engine.close", "surface.close", "console.close", "mount.close"}
	if !reflect.DeepEqual(f.log.calls, want) {
		t.Errorf("teardown = %v, want %v", f.log.calls, want)
	}
}

func TestSessionCloseReportsFirstError(t *testing.T) {
	f := openFixture(t, 0)
	errBusy := errors.New("busy")
	f.engine.closeErr = errBusy
	if err := f.session.Close(); errors.Cause(err) != errBusy {
		t.Errorf("Close() = %v, want cause %v", err, errBusy)
	}
	if n := f.log.count("surface.close"); n != 1 {
		t.Errorf("surface must still close after a decoder error, closed %d times", n)
	}
}

func TestLoopExitStopsWork(t *testing.T) {
	f := openFixture(t, 1)
	f.session.AttachMount(namedCloser{f.log, "mount"})
	clock := &fakeClock{step: 1000, freq: 60000}

	loop := NewLoop(f.session, &exitAfter{k: 3}, clock)
	loop.Run()
	if loop.State() != Exiting {
		t.Fatalf("state = %v, want Exiting", loop.State())
	}
	if loop.Iterations() != 3 {
		t.Errorf("iterations = %d, want 3", loop.Iterations())
	}
	if n := f.log.count("decode"); n != 3 {
		t.Errorf("decode called %d times, want 3", n)
	}
	if n := f.log.count("end"); n != 3 {
		t.Errorf("end called %d times, want 3", n)
	}

	f.session.Close()
	f.session.Close()
	tail := f.log.calls[len(f.log.calls)-3:]
	if !reflect.DeepEqual(tail, []string{"engine.close", "surface.close", "mount.close"}) {
		t.Errorf("teardown = %v", tail)
	}
}

func TestStatsLineIncludesEngineCounters(t *testing.T) {
	f := openFixture(t, 1)
	f.engine.stats = video.Stats{Delivered: 40, Skipped: 2, Discarded: 26, Passes: 3}
	loop := NewLoop(f.session, &exitAfter{k: 1}, &fakeClock{step: 1, freq: 1})
	loop.Run()

	line := loop.statsLine()
	for _, want := range []string{"presented=1", "delivered=40", "skipped=2", "discarded=26", "passes=3"} {
		if !strings.Contains(line, want) {
			t.Errorf("stats line %q missing %q", line, want)
		}
	}

	disabled := Open(Config{SourcePath: "missing.mpg", HeightScale: 4, BufferCount: 2},
		func(string) (Engine, error) { return nil, errors.New("not found") }, nil)
	if line := NewLoop(disabled, &exitAfter{}, &fakeClock{}).statsLine(); strings.Contains(line, "delivered") {
		t.Errorf("disabled session has no engine counters, got %q", line)
	}
}

func TestLoopImmediateExit(t *testing.T) {
	f := openFixture(t, 1)
	NewLoop(f.session, &exitAfter{k: 0}, &fakeClock{step: 1, freq: 1}).Run()
	if len(f.log.calls) != 0 {
		t.Errorf("exit on the first poll must do no work, got %v", f.log.calls)
	}
}

func TestLoopElapsedTime(t *testing.T) {
	f := openFixture(t, 0)
	clock := &fakeClock{tick: 500, step: 1000, freq: 60000}
	NewLoop(f.session, &exitAfter{k: 4}, clock, WithStatsInterval(0)).Run()

	want := 1000.0 / 60000.0
	if len(f.engine.decodes) != 4 {
		t.Fatalf("decodes = %v", f.engine.decodes)
	}
	for i, dt := range f.engine.decodes {
		if dt != want {
			t.Errorf("decode %d: dt = %v, want %v", i, dt, want)
		}
	}
}

func TestLoopDisabledIdles(t *testing.T) {
	s := Open(Config{SourcePath: "missing.mpg", HeightScale: 4, BufferCount: 2},
		func(string) (Engine, error) { return nil, errors.New("not found") },
		func(surface.Config) (surface.Surface, error) { return nil, nil })

	idles := 0
	slept := 0
	loop := NewLoop(s, &exitAfter{k: 5}, &fakeClock{step: 1, freq: 1},
		WithIdle(func() { idles++ }), WithPollInterval(1))
	loop.sleep = func(time.Duration) { slept++ }
	loop.Run()

	if idles != 5 || slept != 5 {
		t.Errorf("idles/sleeps = %d/%d, want 5/5", idles, slept)
	}
	if loop.State() != Exiting {
		t.Errorf("state = %v, want Exiting", loop.State())
	}
}

func TestClockSampleElapsed(t *testing.T) {
	cases := []struct {
		name   string
		sample ClockSample
		now    uint64
		want   float64
	}{
		{"forward", ClockSample{LastTick: 100, Frequency: 1000}, 600, 0.5},
		{"same tick", ClockSample{LastTick: 100, Frequency: 1000}, 100, 0},
		{"backwards", ClockSample{LastTick: 100, Frequency: 1000}, 50, 0},
		{"no frequency", ClockSample{LastTick: 0}, 10, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.sample.Elapsed(tc.now); got != tc.want {
				t.Errorf("Elapsed(%d) = %v, want %v", tc.now, got, tc.want)
			}
		})
	}
}
