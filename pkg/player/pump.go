package player

import (
	"log"
	"time"

	"loop-frame/pkg/pixel"
	"loop-frame/pkg/surface"
	"loop-frame/pkg/video"
)

// Pump advances the decoder and moves every decoded frame into the surface.
type Pump struct {
	session *Session
	conv    pixel.Converter
	debug   bool
	now     func() time.Time
}

func newPump(s *Session, debug bool) *Pump {
	return &Pump{
		session: s,
		conv:    pixel.RGBA{},
		debug:   debug,
		now:     time.Now,
	}
}

// RunOnce advances playback by dt seconds. Frames decoded during the call are
// presented through OnFrame before it returns.
func (p *Pump) RunOnce(dt float64) {
	if dt < 0 {
		dt = 0
	}
	active, ok := p.session.state.(Active)
	if !ok {
		return
	}

	start := p.now()
	active.Engine.Decode(dt)
	p.session.monitor.RecordRunOnce(p.now().Sub(start))
}

// OnFrame is a full Begin, Convert, End cycle, or nothing at all when
// playback is disabled or no back buffer is free.
func (p *Pump) OnFrame(frame *video.Frame) {
	active, ok := p.session.state.(Active)
	if !ok {
		return
	}

	start := p.now()
	buf, ok := active.Surface.Begin()
	if !ok {
		p.session.monitor.RecordDropped()
		if p.debug {
			log.Printf("Pump: no back buffer for frame %d (pass %d), dropped", frame.Index, frame.Pass)
		}
		return
	}

	if err := p.conv.Convert(frame, buf.Pixels, buf.Stride); err != nil {
		log.Printf("Pump: convert frame %d: %v", frame.Index, err)
	}
	if cs, ok := active.Surface.(surface.ContentSizer); ok {
		cs.SetContentSize(frame.Width(), frame.Height())
	}
	active.Surface.End()

	p.session.monitor.RecordPresented(p.now().Sub(start))
	if p.debug {
		log.Printf("Pump: presented frame %d (pass %d, t=%.3fs)", frame.Index, frame.Pass, frame.Time)
	}
}
