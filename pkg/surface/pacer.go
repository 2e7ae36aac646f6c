package surface

import "time"

// Pacer models the display's flip queue. One buffer is always on screen, so
// at most capacity = buffers-1 submissions can be queued; the display
// retires one queued submission per refresh interval.
type Pacer struct {
	interval time.Duration
	capacity int
	inFlight int
	lastFlip time.Time
	now      func() time.Time
}

// NewPacer creates a pacer for the given refresh interval. A zero interval
// disables pacing.
func NewPacer(buffers int, interval time.Duration) *Pacer {
	capacity := buffers - 1
	if capacity < 1 {
		capacity = 1
	}
	return &Pacer{
		interval: interval,
		capacity: capacity,
		now:      time.Now,
	}
}

// RefreshInterval converts a display refresh rate in Hz to an interval.
func RefreshInterval(hz int32) time.Duration {
	if hz <= 0 {
		return 0
	}
	return time.Second / time.Duration(hz)
}

// Ready reports whether a buffer slot is free for writing.
func (p *Pacer) Ready() bool {
	p.retire()
	return p.inFlight < p.capacity
}

// Submitted records a flip request.
func (p *Pacer) Submitted() {
	p.retire()
	if p.inFlight == 0 {
		p.lastFlip = p.now()
	}
	p.inFlight++
}

// Pending returns the number of queued submissions not yet on screen.
func (p *Pacer) Pending() int {
	p.retire()
	return p.inFlight
}

func (p *Pacer) retire() {
	if p.interval <= 0 {
		p.inFlight = 0
		return
	}
	if p.inFlight == 0 {
		return
	}
	elapsed := p.now().Sub(p.lastFlip)
	n := int(elapsed / p.interval)
	if n <= 0 {
		return
	}
	if n >= p.inFlight {
		p.inFlight = 0
	} else {
		p.inFlight -= n
	}
	p.lastFlip = p.lastFlip.Add(time.Duration(n) * p.interval)
}
