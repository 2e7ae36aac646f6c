package video

import (
	"io"
	"log"
	"sync"

	"github.com/pkg/errors"
)

const (
	defaultFrameRate  = 30.0
	defaultMaxCatchUp = 8
)

// Stats is a snapshot of the engine's decode counters.
type Stats struct {
	Delivered int // frames handed to the sink
	Skipped   int // frames the source could not decode
	Discarded int // frames of backlog dropped by the catch-up limit
	Passes    int // completed rewinds
}

// Engine drives a Source in presentation time. Decode converts elapsed
// seconds into whole frames and hands each one to the registered sink before
// returning. It is not safe for concurrent use; the playback loop owns it.
type Engine struct {
	src  Source
	sink FrameSink

	fps        float64
	loop       bool
	maxCatchUp int
	debug      bool

	acc   float64 // accumulated fractional frames
	index int
	pass  int
	ended bool
	stats Stats

	closeOnce sync.Once
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxCatchUp limits how many frames a single Decode call may deliver.
// The backlog beyond the limit is discarded. Values below 1 keep the default.
func WithMaxCatchUp(frames int) Option {
	return func(e *Engine) {
		if frames >= 1 {
			e.maxCatchUp = frames
		}
	}
}

// WithDebug enables per-call decode logging.
func WithDebug(debug bool) Option {
	return func(e *Engine) { e.debug = debug }
}

// NewEngine wraps src. Looping starts disabled; callers enable it before the
// first Decode.
func NewEngine(src Source, opts ...Option) *Engine {
	fps := src.FrameRate()
	if fps <= 0 {
		fps = defaultFrameRate
	}
	e := &Engine{
		src:        src,
		fps:        fps,
		maxCatchUp: defaultMaxCatchUp,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetFrameSink registers the receiver of decoded frames. A nil sink discards frames.
func (e *Engine) SetFrameSink(sink FrameSink) {
	e.sink = sink
}

// SetLoop enables or disables rewinding at end of stream.
func (e *Engine) SetLoop(loop bool) {
	e.loop = loop
	if loop {
		e.ended = false
	}
}

// SetAudioEnabled is forwarded to sources that support discarding audio.
func (e *Engine) SetAudioEnabled(enabled bool) {
	if sw, ok := e.src.(AudioSwitch); ok {
		sw.SetAudioEnabled(enabled)
	}
}

// Width returns the source width in pixels
func (e *Engine) Width() int { return e.src.Width() }

// Height returns the source height in pixels
func (e *Engine) Height() int { return e.src.Height() }

// FrameRate returns the frames per second used for timing
func (e *Engine) FrameRate() float64 { return e.fps }

// HasEnded reports whether the engine stopped producing frames, either at
// the end of a non-looping stream or after a failed rewind.
func (e *Engine) HasEnded() bool { return e.ended }

// Stats returns the decode counters.
func (e *Engine) Stats() Stats { return e.stats }

// Decode advances playback by dt seconds. Non-positive dt is a no-op.
func (e *Engine) Decode(dt float64) {
	if dt <= 0 || e.ended {
		return
	}

	e.acc += dt * e.fps
	steps := int(e.acc)
	if steps == 0 {
		return // not time for next frame yet
	}
	e.acc -= float64(steps)

	if steps > e.maxCatchUp {
		dropped := steps - e.maxCatchUp
		e.stats.Discarded += dropped
		log.Printf("Engine: behind by %d frame(s), discarding %d", steps, dropped)
		steps = e.maxCatchUp
	}

	if e.debug {
		log.Printf("Engine: dt=%.4fs acc=%.3f fps=%.1f steps=%d", dt, e.acc, e.fps, steps)
	}

	for i := 0; i < steps; i++ {
		frame, err := e.next()
		if err == io.EOF {
			return
		}
		if err != nil {
			e.stats.Skipped++
			if e.debug {
				log.Printf("Engine: skipping frame %d: %v", e.index, err)
			}
			continue
		}

		frame.Index = e.index
		frame.Pass = e.pass
		frame.Time = float64(e.index) / e.fps
		e.index++
		e.stats.Delivered++

		if e.sink != nil {
			e.sink.OnFrame(frame)
		}
	}
}

// next pulls one frame, rewinding once at end of stream when looping.
// io.EOF means nothing more can be produced during this call.
func (e *Engine) next() (*Frame, error) {
	frame, err := e.src.NextFrame()
	if err != io.EOF {
		return frame, err
	}

	if !e.loop {
		e.ended = true
		e.acc = 0
		log.Printf("Engine: end of stream after %d frame(s)", e.index)
		return nil, io.EOF
	}

	if err := e.src.Rewind(); err != nil {
		// a source that cannot seek stays at its end for good
		e.ended = true
		e.acc = 0
		log.Printf("Engine: playback stopped after %d frame(s): %v", e.index, errors.Wrap(err, "rewind source"))
		return nil, io.EOF
	}
	e.index = 0
	e.pass++
	e.stats.Passes++

	frame, err = e.src.NextFrame()
	if err == io.EOF {
		// A stream that is empty right after a rewind would spin forever.
		e.acc = 0
		return nil, io.EOF
	}
	return frame, err
}

// Close releases the source. It is safe to call more than once.
func (e *Engine) Close() error {
	var err error
	e.closeOnce.Do(func() {
		err = e.src.Close()
	})
	return err
}
