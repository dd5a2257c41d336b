package autosave

import (
	"sync"
	"testing"
	"time"
)

// testConfig uses short delays so timing tests stay fast.
func testConfig() Config {
	return Config{
		FastThreshold:  20 * time.Millisecond,
		PauseDelay:     30 * time.Millisecond,
		NormalDelay:    100 * time.Millisecond,
		FastDelay:      150 * time.Millisecond,
		MinChangeRunes: 3,
	}
}

// recorder collects sink invocations.
type recorder struct {
	mu    sync.Mutex
	fired []string
}

func (r *recorder) sink(content string) {
	r.mu.Lock()
	r.fired = append(r.fired, content)
	r.mu.Unlock()
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.fired)
}

func (r *recorder) last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.fired) == 0 {
		return ""
	}
	return r.fired[len(r.fired)-1]
}

// eventually polls fn until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func TestEmptyContentNeverSchedules(t *testing.T) {
	rec := &recorder{}
	s := New(testConfig(), rec.sink)

	if s.Schedule("") {
		t.Error("empty content must not schedule")
	}
	time.Sleep(150 * time.Millisecond)
	if rec.count() != 0 {
		t.Errorf("fired %d times, want 0", rec.count())
	}
}

func TestInsignificantChangeSkipped(t *testing.T) {
	rec := &recorder{}
	s := New(testConfig(), rec.sink)

	s.Schedule("hello world")
	s.Flush()
	if rec.last() != "hello world" {
		t.Fatalf("flush fired %q", rec.last())
	}

	// Whitespace-only delta below the rune minimum is not significant.
	if s.Schedule("hello world ") {
		t.Error("trailing space should not be significant")
	}
	// A same-length real edit is significant via the trim comparison.
	if !s.Schedule("hello worlD") {
		t.Error("replacement edit should be significant")
	}
}

func TestBaselineSuppressesReplay(t *testing.T) {
	rec := &recorder{}
	s := New(testConfig(), rec.sink)
	s.SetBaseline("existing note content")

	if s.Schedule("existing note content") {
		t.Error("identical content should not schedule")
	}
	if s.Schedule("existing note content ") {
		t.Error("whitespace-only drift should not schedule")
	}
	if !s.Schedule("existing note content plus an actual edit") {
		t.Error("real edit should schedule")
	}
}

func TestCancelAndReplaceSingleTimer(t *testing.T) {
	rec := &recorder{}
	s := New(testConfig(), rec.sink)

	s.Schedule("draft one")
	s.Schedule("draft one plus more")

	eventually(t, time.Second, 5*time.Millisecond, func() bool {
		return rec.count() > 0
	}, "timer never fired")

	time.Sleep(150 * time.Millisecond)
	if rec.count() != 1 {
		t.Errorf("fired %d times, want 1", rec.count())
	}
	if rec.last() != "draft one plus more" {
		t.Errorf("fired %q, want the latest content", rec.last())
	}
}

func TestFlushFiresImmediately(t *testing.T) {
	rec := &recorder{}
	cfg := testConfig()
	cfg.NormalDelay = 5 * time.Second
	s := New(cfg, rec.sink)

	s.Schedule("pending content")
	s.Flush()
	if rec.count() != 1 || rec.last() != "pending content" {
		t.Fatalf("flush: fired=%d last=%q", rec.count(), rec.last())
	}
	if s.Pending() {
		t.Error("flush should clear the pending save")
	}

	// The superseded timer must not fire later.
	time.Sleep(100 * time.Millisecond)
	if rec.count() != 1 {
		t.Errorf("fired %d times after flush, want 1", rec.count())
	}

	// Flush with nothing pending is a no-op.
	s.Flush()
	if rec.count() != 1 {
		t.Error("idle flush fired")
	}
}

func TestCancelClearsWithoutFiring(t *testing.T) {
	rec := &recorder{}
	s := New(testConfig(), rec.sink)

	s.Schedule("about to be cancelled")
	s.Cancel()
	if s.Pending() {
		t.Error("cancel should clear the pending save")
	}
	time.Sleep(200 * time.Millisecond)
	if rec.count() != 0 {
		t.Errorf("fired %d times after cancel, want 0", rec.count())
	}
}

func TestPauseDelayAfterLongGap(t *testing.T) {
	rec := &recorder{}
	cfg := testConfig()
	cfg.NormalDelay = 400 * time.Millisecond
	s := New(cfg, rec.sink)

	s.Schedule("first edit here")
	// Wait longer than 3x the fast threshold, then edit again: the pause
	// delay applies, so the save lands well before the normal delay would.
	time.Sleep(4 * cfg.FastThreshold)
	start := time.Now()
	s.Schedule("first edit here, resumed")

	eventually(t, time.Second, 5*time.Millisecond, func() bool {
		return rec.count() > 0
	}, "pause-delay save never fired")
	if elapsed := time.Since(start); elapsed >= cfg.NormalDelay {
		t.Errorf("save took %v, expected the shorter pause delay", elapsed)
	}
	if rec.last() != "first edit here, resumed" {
		t.Errorf("fired %q", rec.last())
	}
}

func TestStalenessBoundDuringFastTyping(t *testing.T) {
	rec := &recorder{}
	cfg := testConfig()
	s := New(cfg, rec.sink)

	// A burst of significant changes with gaps below the fast threshold.
	content := "base"
	for i := 0; i < 6; i++ {
		content += " more text"
		s.Schedule(content)
		time.Sleep(5 * time.Millisecond)
	}
	last := time.Now()

	// After silence the save must land within fast delay plus one
	// threshold window of the last change.
	bound := cfg.FastDelay + cfg.FastThreshold
	eventually(t, bound+100*time.Millisecond, 5*time.Millisecond, func() bool {
		return rec.count() > 0
	}, "burst save never fired")
	if elapsed := time.Since(last); elapsed > bound+50*time.Millisecond {
		t.Errorf("save landed %v after last change, bound %v", elapsed, bound)
	}
	if rec.last() != content {
		t.Errorf("fired %q, want the final content", rec.last())
	}
}

func TestCountersResetAfterFire(t *testing.T) {
	rec := &recorder{}
	s := New(testConfig(), rec.sink)

	content := "base"
	for i := 0; i < 5; i++ {
		content += " word"
		s.Schedule(content)
		time.Sleep(5 * time.Millisecond)
	}
	s.Flush()
	if rec.count() != 1 {
		t.Fatalf("flush count = %d", rec.count())
	}

	// After the reset a lone change behaves like a fresh scheduler: it
	// still fires, on the normal path.
	s.Schedule(content + " and a fresh edit")
	eventually(t, time.Second, 5*time.Millisecond, func() bool {
		return rec.count() == 2
	}, "post-reset save never fired")
}
