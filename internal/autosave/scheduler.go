// Package autosave schedules debounced saves, adapting the delay to the
// user's typing cadence.
//
// A naive fixed delay either saves too often during fast typing or too
// rarely during careful editing. The scheduler instead watches the gaps
// between content changes: a long pause saves quickly, sustained fast
// typing backs off to a longer delay, and everything else uses the normal
// delay. A single timer is armed per scheduler; each accepted change
// cancels and replaces it.
package autosave

import (
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

// gapWindow is how many recent inter-change gaps feed the rolling average.
const gapWindow = 5

// Config holds the scheduling thresholds.
type Config struct {
	// FastThreshold is the gap below which a change counts as fast typing.
	FastThreshold time.Duration
	// PauseDelay is used when the user just stopped typing.
	PauseDelay time.Duration
	// NormalDelay is the default debounce delay.
	NormalDelay time.Duration
	// FastDelay is used while sustained fast typing is observed.
	FastDelay time.Duration
	// MinChangeRunes is the smallest rune-count delta that makes a change
	// significant on its own.
	MinChangeRunes int
}

// DefaultConfig returns the shipped scheduling thresholds.
func DefaultConfig() Config {
	return Config{
		FastThreshold:  200 * time.Millisecond,
		PauseDelay:     300 * time.Millisecond,
		NormalDelay:    time.Second,
		FastDelay:      2 * time.Second,
		MinChangeRunes: 3,
	}
}

// Scheduler debounces content-changed events for a single note. The sink
// runs on the timer goroutine; a sink call in flight is never cancelled,
// and changes arriving during it schedule their own later save.
type Scheduler struct {
	cfg  Config
	sink func(content string)

	mu          sync.Mutex
	timer       *time.Timer
	seq         uint64
	pending     string
	hasPending  bool
	lastContent string
	lastAction  time.Time
	fastCount   int
	gaps        []time.Duration
}

// New creates a scheduler that delivers due saves to sink.
func New(cfg Config, sink func(content string)) *Scheduler {
	return &Scheduler{cfg: cfg, sink: sink}
}

// SetBaseline seeds the last-saved content the significance gate compares
// against, without arming a timer. Used when a note is (re)opened so the
// existing content does not register as one large change.
func (s *Scheduler) SetBaseline(content string) {
	s.mu.Lock()
	s.lastContent = content
	s.mu.Unlock()
}

// Schedule records a content change and arms (or re-arms) the save timer.
// It reports whether the change was significant enough to schedule: empty
// content never is, and non-empty content must either move the rune count
// by at least MinChangeRunes or differ from the last saved content after
// trimming whitespace.
func (s *Scheduler) Schedule(content string) bool {
	now := time.Now()

	s.mu.Lock()
	if !s.significantLocked(content) {
		s.mu.Unlock()
		return false
	}

	delay := s.cfg.NormalDelay
	if !s.lastAction.IsZero() {
		gap := now.Sub(s.lastAction)
		if gap < s.cfg.FastThreshold {
			s.fastCount++
		} else {
			s.fastCount = 0
		}
		s.gaps = append(s.gaps, gap)
		if len(s.gaps) > gapWindow {
			s.gaps = s.gaps[1:]
		}

		switch {
		case gap > 3*s.cfg.FastThreshold:
			delay = s.cfg.PauseDelay
		case s.fastCount > 3:
			delay = s.cfg.FastDelay
		case s.rollingFastLocked():
			delay = s.cfg.FastDelay
		}
	}
	s.lastAction = now

	s.pending = content
	s.hasPending = true
	if s.timer != nil {
		s.timer.Stop()
	}
	s.seq++
	seq := s.seq
	s.timer = time.AfterFunc(delay, func() { s.fire(seq) })
	s.mu.Unlock()
	return true
}

// Flush fires any pending save immediately, bypassing the timer.
func (s *Scheduler) Flush() {
	s.mu.Lock()
	content, ok := s.takeLocked()
	s.mu.Unlock()
	if ok {
		s.sink(content)
	}
}

// Cancel clears any pending save without firing it.
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.seq++
	s.hasPending = false
	s.pending = ""
	s.mu.Unlock()
}

// Pending reports whether a save is currently armed.
func (s *Scheduler) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasPending
}

func (s *Scheduler) fire(seq uint64) {
	s.mu.Lock()
	if seq != s.seq {
		// A newer Schedule, Flush, or Cancel superseded this timer.
		s.mu.Unlock()
		return
	}
	content, ok := s.takeLocked()
	s.mu.Unlock()
	if ok {
		s.sink(content)
	}
}

// takeLocked consumes the pending save: it invalidates the armed timer,
// promotes the pending content to last-saved, and resets the typing
// counters. Callers must hold mu.
func (s *Scheduler) takeLocked() (string, bool) {
	if !s.hasPending {
		return "", false
	}
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.seq++
	content := s.pending
	s.hasPending = false
	s.lastContent = content
	s.fastCount = 0
	s.gaps = s.gaps[:0]
	return content, true
}

func (s *Scheduler) significantLocked(content string) bool {
	if content == "" {
		return false
	}
	delta := utf8.RuneCountInString(content) - utf8.RuneCountInString(s.lastContent)
	if delta < 0 {
		delta = -delta
	}
	if delta >= s.cfg.MinChangeRunes {
		return true
	}
	return strings.TrimSpace(content) != strings.TrimSpace(s.lastContent)
}

func (s *Scheduler) rollingFastLocked() bool {
	if len(s.gaps) < 3 {
		return false
	}
	var total time.Duration
	for _, g := range s.gaps {
		total += g
	}
	return total/time.Duration(len(s.gaps)) < s.cfg.FastThreshold
}
