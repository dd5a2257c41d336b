// Package memguard samples process memory on an interval and trims
// registered caches when heap usage crosses a high-water mark.
package memguard

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// Trimmable is a cache that can evict entries older than maxAge.
type Trimmable interface {
	TrimStale(maxAge time.Duration) int
}

// Config tunes the monitor.
type Config struct {
	// Interval is the sampling cadence.
	Interval time.Duration
	// HighWaterMB is the heap allocation, in MiB, that triggers a trim.
	HighWaterMB int
	// StaleAfter is the age handed to registered caches when trimming.
	StaleAfter time.Duration
}

// DefaultConfig returns the shipped monitor settings.
func DefaultConfig() Config {
	return Config{
		Interval:    30 * time.Second,
		HighWaterMB: 256,
		StaleAfter:  10 * time.Minute,
	}
}

// Usage is a point-in-time memory reading.
type Usage struct {
	HeapAllocMB uint64 `json:"heap_alloc_mb"`
	SysMB       uint64 `json:"sys_mb"`
	NumGC       uint32 `json:"num_gc"`
}

// Sample reads the current process memory usage.
func Sample() Usage {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return Usage{
		HeapAllocMB: m.HeapAlloc >> 20,
		SysMB:       m.Sys >> 20,
		NumGC:       m.NumGC,
	}
}

type target struct {
	name  string
	cache Trimmable
}

// Monitor owns the sampling loop. It is constructed by the application
// root and handed by reference to anything that needs a trim hook; there
// is no process-wide instance.
type Monitor struct {
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	targets []target

	stopCh  chan struct{}
	done    chan struct{}
	started atomic.Bool
	stopped atomic.Bool
}

// New creates a monitor. Zero config fields fall back to defaults.
func New(cfg Config, logger *slog.Logger) *Monitor {
	def := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.HighWaterMB <= 0 {
		cfg.HighWaterMB = def.HighWaterMB
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = def.StaleAfter
	}
	return &Monitor{
		cfg:    cfg,
		logger: logger,
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Register adds a named cache to trim on high water. Safe to call before
// or after Start.
func (m *Monitor) Register(name string, cache Trimmable) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.targets = append(m.targets, target{name: name, cache: cache})
}

// Start launches the sampling loop. The loop exits when ctx ends or Stop
// is called. Calling Start twice is a no-op.
func (m *Monitor) Start(ctx context.Context) {
	if !m.started.CompareAndSwap(false, true) {
		return
	}
	go m.run(ctx)
}

func (m *Monitor) run(ctx context.Context) {
	defer close(m.done)
	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.check()
		}
	}
}

func (m *Monitor) check() {
	u := Sample()
	if u.HeapAllocMB < uint64(m.cfg.HighWaterMB) {
		m.logger.Debug("memguard: sample",
			slog.Uint64("heap_alloc_mb", u.HeapAllocMB),
			slog.Uint64("sys_mb", u.SysMB))
		return
	}
	removed := m.TrimNow()
	m.logger.Info("memguard: high-water trim",
		slog.Uint64("heap_alloc_mb", u.HeapAllocMB),
		slog.Int("high_water_mb", m.cfg.HighWaterMB),
		slog.Int("removed", removed))
}

// TrimNow trims every registered cache immediately and returns the total
// number of evicted entries.
func (m *Monitor) TrimNow() int {
	m.mu.Lock()
	targets := make([]target, len(m.targets))
	copy(targets, m.targets)
	m.mu.Unlock()

	total := 0
	for _, tg := range targets {
		n := tg.cache.TrimStale(m.cfg.StaleAfter)
		if n > 0 {
			m.logger.Debug("memguard: trimmed cache",
				slog.String("cache", tg.name),
				slog.Int("removed", n))
		}
		total += n
	}
	return total
}

// Stop halts the sampling loop and waits for it to exit. Safe to call
// more than once, and a no-op if the monitor never started.
func (m *Monitor) Stop() {
	if !m.started.Load() {
		return
	}
	if m.stopped.CompareAndSwap(false, true) {
		close(m.stopCh)
	}
	<-m.done
}
