// Package engine coordinates the vault, conflict detection, autosave
// scheduling, version history, and change notification behind a single
// service used by the HTTP API.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/funkpopo/notevault/internal/apperr"
	"github.com/funkpopo/notevault/internal/autosave"
	"github.com/funkpopo/notevault/internal/diff"
	"github.com/funkpopo/notevault/internal/history"
	"github.com/funkpopo/notevault/internal/notify"
	"github.com/funkpopo/notevault/internal/snapshot"
	"github.com/funkpopo/notevault/internal/vault"
)

// History is the version log the engine appends to on every save.
type History interface {
	Append(path, content, fingerprint, writerID string) (history.Version, error)
	ListByPath(path string, limit int) ([]history.Version, error)
	Get(id string) (history.Version, error)
	RenamePath(oldPath, newPath string) error
	RenamePrefix(oldPrefix, newPrefix string) error
}

var (
	_ History             = (*history.Log)(nil)
	_ snapshot.Filesystem = (*vault.FS)(nil)
)

// Config tunes the engine's save pipeline.
type Config struct {
	Autosave autosave.Config
	Conflict snapshot.CheckConfig

	// AsyncDiffOver is the combined input size, in bytes, beyond which
	// diffs run on a worker goroutine.
	AsyncDiffOver int
}

// DefaultConfig returns the shipped engine tuning.
func DefaultConfig() Config {
	return Config{
		Autosave:      autosave.DefaultConfig(),
		Conflict:      snapshot.DefaultCheckConfig(),
		AsyncDiffOver: diff.DefaultAsyncThreshold,
	}
}

// Service owns the save pipeline for one vault. Each note gets its own
// autosave scheduler; every write flows through the conflict detector and
// lands in the version log.
type Service struct {
	logger   *slog.Logger
	vault    *vault.Vault
	detector *snapshot.Detector
	snaps    *snapshot.Store
	hist     History
	hub      *notify.Hub
	cfg      Config
	writerID string

	mu         sync.Mutex
	schedulers map[string]*autosave.Scheduler
}

// NewService wires a service over an opened vault, history log, and hub.
func NewService(v *vault.Vault, hist History, hub *notify.Hub, cfg Config, logger *slog.Logger) *Service {
	writerID := uuid.NewString()
	snaps := snapshot.NewStore(writerID)
	return &Service{
		logger:     logger,
		vault:      v,
		detector:   snapshot.NewDetector(v.FS(), snaps, cfg.Conflict),
		snaps:      snaps,
		hist:       hist,
		hub:        hub,
		cfg:        cfg,
		writerID:   writerID,
		schedulers: make(map[string]*autosave.Scheduler),
	}
}

// WriterID identifies this engine session in snapshots and history rows.
func (s *Service) WriterID() string {
	return s.writerID
}

// Snapshots exposes the snapshot store for memory trimming and stats.
func (s *Service) Snapshots() *snapshot.Store {
	return s.snaps
}

// Stats is a point-in-time engine summary.
type Stats struct {
	Notes         int `json:"notes"`
	EmptyGroups   int `json:"empty_groups"`
	OpenSnapshots int `json:"open_snapshots"`
	PendingSaves  int `json:"pending_saves"`
}

// Stats walks the vault and reports counts for health and startup logs.
func (s *Service) Stats(_ context.Context) (Stats, error) {
	listing, err := s.vault.ListAll()
	if err != nil {
		return Stats{}, err
	}
	st := Stats{
		Notes:         len(listing.Notes),
		EmptyGroups:   len(listing.EmptyGroups),
		OpenSnapshots: s.snaps.Len(),
	}
	s.mu.Lock()
	for _, sched := range s.schedulers {
		if sched.Pending() {
			st.PendingSaves++
		}
	}
	s.mu.Unlock()
	return st, nil
}

// FlushAll forces every pending autosave to disk. Called on shutdown and
// before the process would otherwise drop buffered edits.
func (s *Service) FlushAll() {
	s.mu.Lock()
	scheds := make([]*autosave.Scheduler, 0, len(s.schedulers))
	for _, sched := range s.schedulers {
		scheds = append(scheds, sched)
	}
	s.mu.Unlock()

	for _, sched := range scheds {
		sched.Flush()
	}
}

// Close flushes pending saves. The history log and hub are closed by
// their owner.
func (s *Service) Close() {
	s.FlushAll()
}

// scheduler returns the autosave scheduler for path, creating it on
// first use. The sink saves without the conflict override: a blocked
// autosave stays blocked until the user resolves it.
func (s *Service) scheduler(path string) *autosave.Scheduler {
	s.mu.Lock()
	if sched, ok := s.schedulers[path]; ok {
		s.mu.Unlock()
		return sched
	}
	s.mu.Unlock()

	// Seed the significance baseline from disk so reopening a note does
	// not count its whole content as one change.
	baseline := ""
	if content, _, err := s.vault.ReadNote(path); err == nil {
		baseline = content
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sched, ok := s.schedulers[path]; ok {
		return sched
	}
	sched := autosave.New(s.cfg.Autosave, func(content string) {
		s.autosaveFire(path, content)
	})
	sched.SetBaseline(baseline)
	s.schedulers[path] = sched
	return sched
}

func (s *Service) autosaveFire(path, content string) {
	if _, err := s.SaveNote(context.Background(), path, content, false); err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			s.logger.Warn("engine: autosave blocked by conflict", slog.String("path", path))
			return
		}
		s.logger.Error("engine: autosave failed",
			slog.String("path", path),
			slog.String("error", err.Error()))
	}
}

// takeScheduler removes and returns the scheduler for path, if any.
func (s *Service) takeScheduler(path string) *autosave.Scheduler {
	s.mu.Lock()
	defer s.mu.Unlock()
	sched, ok := s.schedulers[path]
	if !ok {
		return nil
	}
	delete(s.schedulers, path)
	return sched
}

// flushPath persists any pending autosave for path and retires its
// scheduler.
func (s *Service) flushPath(path string) {
	if sched := s.takeScheduler(path); sched != nil {
		sched.Flush()
	}
}

// cancelPath discards any pending autosave for path.
func (s *Service) cancelPath(path string) {
	if sched := s.takeScheduler(path); sched != nil {
		sched.Cancel()
	}
}

// takePrefix removes and returns all schedulers whose path sits under
// prefix, which must end with a slash.
func (s *Service) takePrefix(prefix string) []*autosave.Scheduler {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*autosave.Scheduler
	for p, sched := range s.schedulers {
		if strings.HasPrefix(p, prefix) {
			delete(s.schedulers, p)
			out = append(out, sched)
		}
	}
	return out
}

func (s *Service) flushPrefix(prefix string) {
	for _, sched := range s.takePrefix(prefix) {
		sched.Flush()
	}
}

func (s *Service) cancelPrefix(prefix string) {
	for _, sched := range s.takePrefix(prefix) {
		sched.Cancel()
	}
}
