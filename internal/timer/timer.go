// Package timer drives the per-question countdown. One Timer is reused
// across question transitions: activating it for a new question index
// cancels the previous run, so no countdown state crosses question
// boundaries.
package timer

import (
	"math"
	"sync"
	"time"
)

// DefaultGrace is how long the all-answered early finish waits before
// firing, tolerating submissions still in flight when the roster check ran.
const DefaultGrace = 1500 * time.Millisecond

// Roster reports how many of the known players have answered the current
// question. Optional; used only for the host-side early finish.
type Roster func() (answered, total int)

// Config describes one activation.
type Config struct {
	TimeLimitSec  int
	QuestionIndex int
	// StartTime is the server-assigned instant shared by every client.
	// Nil means the countdown starts at the full limit.
	StartTime *time.Time

	// Interval defaults to one second; Grace to DefaultGrace. Both are
	// configurable so tests run fast.
	Interval time.Duration
	Grace    time.Duration
	Now      func() time.Time

	OnTick       func(remaining int)
	OnAutoFinish func()
	Roster       Roster
}

// Timer is a cooperative countdown. Safe for concurrent use.
type Timer struct {
	mu         sync.Mutex
	gen        uint64
	firedGen   uint64
	graceGen   uint64
	remaining  int
	qIndex     int
	stop       chan struct{}
	graceTimer *time.Timer
}

// New returns an inactive timer.
func New() *Timer {
	return &Timer{}
}

// InitialRemaining derives the starting countdown value from the shared
// start instant. Elapsed milliseconds are rounded, not truncated:
// truncation would hand every client slightly more time and desynchronize
// perceived fairness. Result is clamped into [0, limit].
func InitialRemaining(start *time.Time, limitSec int, now time.Time) int {
	if start == nil {
		return limitSec
	}
	elapsed := int(math.Round(now.Sub(*start).Seconds()))
	remaining := limitSec - elapsed
	if remaining < 0 {
		return 0
	}
	if remaining > limitSec {
		return limitSec
	}
	return remaining
}

// Activate starts (or restarts) the countdown for a question. A previous
// activation, including its pending grace fire, is cancelled.
func (t *Timer) Activate(cfg Config) {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if cfg.Grace <= 0 {
		cfg.Grace = DefaultGrace
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	t.mu.Lock()
	t.cancelLocked()
	t.gen++
	gen := t.gen
	t.qIndex = cfg.QuestionIndex
	t.remaining = InitialRemaining(cfg.StartTime, cfg.TimeLimitSec, cfg.Now())
	stop := make(chan struct{})
	t.stop = stop
	remaining := t.remaining
	t.mu.Unlock()

	if remaining <= 0 {
		t.fire(gen, cfg.OnAutoFinish)
		return
	}

	go t.run(gen, cfg, stop)
}

// Stop cancels the active countdown. Idempotent; the single cleanup path.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelLocked()
	t.gen++
}

// Remaining returns the current countdown value in seconds.
func (t *Timer) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remaining
}

func (t *Timer) cancelLocked() {
	if t.stop != nil {
		close(t.stop)
		t.stop = nil
	}
	if t.graceTimer != nil {
		t.graceTimer.Stop()
		t.graceTimer = nil
	}
}

func (t *Timer) run(gen uint64, cfg Config, stop chan struct{}) {
	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			t.mu.Lock()
			if t.gen != gen {
				t.mu.Unlock()
				return
			}
			if t.remaining > 0 {
				t.remaining--
			}
			remaining := t.remaining
			t.mu.Unlock()

			if cfg.OnTick != nil {
				cfg.OnTick(remaining)
			}

			if remaining <= 0 {
				t.fire(gen, cfg.OnAutoFinish)
				return
			}

			// All-answered early finish, host responsibility only. The
			// grace delay tolerates in-flight submissions racing the
			// roster check.
			if cfg.Roster != nil {
				if answered, total := cfg.Roster(); total > 0 && answered >= total {
					t.scheduleGraceFire(gen, cfg)
				}
			}
		}
	}
}

func (t *Timer) scheduleGraceFire(gen uint64, cfg Config) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.gen != gen || t.graceGen == gen {
		return
	}
	t.graceGen = gen
	t.graceTimer = time.AfterFunc(cfg.Grace, func() {
		t.fire(gen, cfg.OnAutoFinish)
	})
}

// fire invokes the auto-finish callback exactly once per activation.
func (t *Timer) fire(gen uint64, onAutoFinish func()) {
	t.mu.Lock()
	if t.gen != gen || t.firedGen == gen {
		t.mu.Unlock()
		return
	}
	t.firedGen = gen
	t.cancelLocked()
	t.mu.Unlock()

	if onAutoFinish != nil {
		onAutoFinish()
	}
}
