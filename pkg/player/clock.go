package player

import "github.com/veandco/go-sdl2/sdl"

// Clock is a monotonic tick counter.
type Clock interface {
	Ticks() uint64
	Frequency() uint64
}

// SDLClock reads the SDL high-resolution performance counter.
type SDLClock struct{}

func (SDLClock) Ticks() uint64     { return sdl.GetPerformanceCounter() }
func (SDLClock) Frequency() uint64 { return sdl.GetPerformanceFrequency() }

// ClockSample is the tick of the previous loop iteration.
type ClockSample struct {
	LastTick  uint64
	Frequency uint64
}

// Sample reads the clock.
func Sample(c Clock) ClockSample {
	return ClockSample{LastTick: c.Ticks(), Frequency: c.Frequency()}
}

// Elapsed returns the seconds between the sample and now, never negative.
func (s ClockSample) Elapsed(now uint64) float64 {
	if s.Frequency == 0 || now <= s.LastTick {
		return 0
	}
	return float64(now-s.LastTick) / float64(s.Frequency)
}
