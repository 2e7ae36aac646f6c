package player

import (
	"fmt"
	"log"
	"time"

	"loop-frame/pkg/performance"
)

// State of the loop driver.
type State int

const (
	Running State = iota
	Exiting
)

func (s State) String() string {
	if s == Exiting {
		return "Exiting"
	}
	return "Running"
}

// ExitPoller reports once per iteration whether the user asked to exit.
type ExitPoller interface {
	ExitRequested() bool
}

// Loop drives a session until exit is requested.
type Loop struct {
	session *Session
	input   ExitPoller
	clock   Clock

	idle          func()
	pollInterval  time.Duration
	statsInterval time.Duration
	sleep         func(time.Duration)

	state      State
	iterations int
}

// LoopOption configures a Loop.
type LoopOption func(*Loop)

// WithIdle sets the hook run on each iteration while playback is disabled.
func WithIdle(fn func()) LoopOption {
	return func(l *Loop) { l.idle = fn }
}

// WithPollInterval sleeps d at the end of every iteration. Zero spins.
func WithPollInterval(d time.Duration) LoopOption {
	return func(l *Loop) { l.pollInterval = d }
}

// WithStatsInterval logs playback statistics every d of loop time. Zero
// disables the log line.
func WithStatsInterval(d time.Duration) LoopOption {
	return func(l *Loop) { l.statsInterval = d }
}

// NewLoop creates a loop over session.
func NewLoop(session *Session, input ExitPoller, clock Clock, opts ...LoopOption) *Loop {
	l := &Loop{
		session:       session,
		input:         input,
		clock:         clock,
		statsInterval: 5 * time.Second,
		sleep:         time.Sleep,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// State returns Running until exit was requested.
func (l *Loop) State() State { return l.state }

// Iterations returns how many iterations completed without an exit request.
func (l *Loop) Iterations() int { return l.iterations }

// Run blocks until the input poller requests exit. It does not close the session.
func (l *Loop) Run() {
	sample := Sample(l.clock)
	lastStats := sample
	l.state = Running

	for l.state == Running {
		if l.input.ExitRequested() {
			l.state = Exiting
			log.Printf("Loop: session %s: exit requested after %d iterations", l.session.ID, l.iterations)
			break
		}

		if l.session.Active() {
			now := l.clock.Ticks()
			l.session.pump.RunOnce(sample.Elapsed(now))
			sample.LastTick = now

			if l.statsInterval > 0 && lastStats.Elapsed(now) >= l.statsInterval.Seconds() {
				l.logStats()
				lastStats.LastTick = now
			}
		} else if l.idle != nil {
			l.idle()
		}

		l.iterations++
		if l.pollInterval > 0 {
			l.sleep(l.pollInterval)
		}
	}
}

func (l *Loop) logStats() {
	log.Printf("Loop: session %s: %s %s", l.session.ID, l.statsLine(), performance.ReadMemory())
}

// statsLine joins the presentation report with the engine's decode counters.
func (l *Loop) statsLine() string {
	r := l.session.monitor.Report()
	line := fmt.Sprintf("presented=%d dropped=%d (%.1f%%) decode=%.2fms convert=%.2fms",
		r.Presented, r.Dropped, r.DropRate, r.AvgRunOnceMs, r.AvgConvertMs)
	if active, ok := l.session.state.(Active); ok {
		st := active.Engine.Stats()
		line += fmt.Sprintf(" delivered=%d skipped=%d discarded=%d passes=%d",
			st.Delivered, st.Skipped, st.Discarded, st.Passes)
	}
	return line
}
