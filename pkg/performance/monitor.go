package performance

import (
	"time"
)

// RollingAverage maintains a rolling average of durations over a fixed window
type RollingAverage struct {
	samples []time.Duration
	sum     time.Duration
	index   int
	filled  bool
}

// NewRollingAverage creates a rolling average tracker with specified window size
func NewRollingAverage(windowSize int) *RollingAverage {
	if windowSize < 1 {
		windowSize = 1
	}
	return &RollingAverage{
		samples: make([]time.Duration, windowSize),
	}
}

// Add records a new sample, replacing the oldest once the window is full
func (r *RollingAverage) Add(d time.Duration) {
	if r.filled {
		r.sum -= r.samples[r.index]
	}
	r.samples[r.index] = d
	r.sum += d

	r.index++
	if r.index == len(r.samples) {
		r.index = 0
		r.filled = true
	}
}

// Average returns the current rolling average, or 0 without samples
func (r *RollingAverage) Average() time.Duration {
	count := r.Count()
	if count == 0 {
		return 0
	}
	return r.sum / time.Duration(count)
}

// Count returns the number of samples currently tracked
func (r *RollingAverage) Count() int {
	if r.filled {
		return len(r.samples)
	}
	return r.index
}

// Reset clears all samples
func (r *RollingAverage) Reset() {
	for i := range r.samples {
		r.samples[i] = 0
	}
	r.sum = 0
	r.index = 0
	r.filled = false
}

// PlaybackMonitor tracks decode and presentation timing of the playback loop.
// It is owned by the loop thread and does no locking.
type PlaybackMonitor struct {
	runOnce   *RollingAverage
	convert   *RollingAverage
	presented int
	dropped   int
	iteration int
}

// PlaybackReport contains aggregated playback metrics
type PlaybackReport struct {
	AvgRunOnceMs float64 // Average time spent advancing the decoder per iteration
	AvgConvertMs float64 // Average begin+convert+end time per presented frame
	Presented    int     // Frames submitted to the surface
	Dropped      int     // Frames dropped because no back buffer was free
	DropRate     float64 // Percentage of decoded frames that were dropped
	Iterations   int     // Loop iterations that advanced the decoder
}

// NewPlaybackMonitor creates a monitor averaging over windowSize samples
func NewPlaybackMonitor(windowSize int) *PlaybackMonitor {
	return &PlaybackMonitor{
		runOnce: NewRollingAverage(windowSize),
		convert: NewRollingAverage(windowSize),
	}
}

// RecordRunOnce records the duration of one decoder advance
func (p *PlaybackMonitor) RecordRunOnce(d time.Duration) {
	p.runOnce.Add(d)
	p.iteration++
}

// RecordPresented records one presented frame and its conversion time
func (p *PlaybackMonitor) RecordPresented(d time.Duration) {
	p.convert.Add(d)
	p.presented++
}

// RecordDropped counts a frame that found no free back buffer
func (p *PlaybackMonitor) RecordDropped() {
	p.dropped++
}

// Report generates a snapshot of the current metrics
func (p *PlaybackMonitor) Report() PlaybackReport {
	total := p.presented + p.dropped
	dropRate := 0.0
	if total > 0 {
		dropRate = float64(p.dropped) / float64(total) * 100.0
	}
	return PlaybackReport{
		AvgRunOnceMs: float64(p.runOnce.Average().Microseconds()) / 1000.0,
		AvgConvertMs: float64(p.convert.Average().Microseconds()) / 1000.0,
		Presented:    p.presented,
		Dropped:      p.dropped,
		DropRate:     dropRate,
		Iterations:   p.iteration,
	}
}

// Reset clears all metrics
func (p *PlaybackMonitor) Reset() {
	p.runOnce.Reset()
	p.convert.Reset()
	p.presented = 0
	p.dropped = 0
	p.iteration = 0
}
