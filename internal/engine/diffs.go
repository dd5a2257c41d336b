package engine

import (
	"context"
	"fmt"

	"github.com/funkpopo/notevault/internal/apperr"
	"github.com/funkpopo/notevault/internal/diff"
	"github.com/funkpopo/notevault/internal/history"
	"github.com/funkpopo/notevault/internal/vault"
)

// ComputeDiff diffs two texts, offloading large inputs to a worker
// goroutine so callers stay responsive.
func (s *Service) ComputeDiff(ctx context.Context, original, updated string) (diff.Result, error) {
	if len(original)+len(updated) >= s.cfg.AsyncDiffOver {
		return diff.Async(original, updated).Wait(ctx)
	}
	return diff.Compute(original, updated), nil
}

// History lists stored versions for a note, newest first.
func (s *Service) History(_ context.Context, notePath string, limit int) ([]history.Version, error) {
	rel, err := vault.CanonicalNotePath(notePath)
	if err != nil {
		return nil, err
	}
	return s.hist.ListByPath(rel, limit)
}

// HistoryVersion returns one stored version including its content.
func (s *Service) HistoryVersion(_ context.Context, versionID string) (history.Version, error) {
	return s.hist.Get(versionID)
}

// DiffWithVersion diffs a stored version against the note's current
// content. The version must belong to the note.
func (s *Service) DiffWithVersion(ctx context.Context, notePath, versionID string) (diff.Result, error) {
	rel, err := vault.CanonicalNotePath(notePath)
	if err != nil {
		return diff.Result{}, err
	}
	version, err := s.hist.Get(versionID)
	if err != nil {
		return diff.Result{}, err
	}
	if version.Path != rel {
		return diff.Result{}, fmt.Errorf("engine: version %s does not belong to %s: %w", versionID, rel, apperr.ErrNotFound)
	}
	current, _, err := s.vault.ReadNote(rel)
	if err != nil {
		return diff.Result{}, err
	}
	return s.ComputeDiff(ctx, version.Content, current)
}

// RestoreVersion overwrites the note with a stored version's content.
// This is a deliberate user action, so the conflict gate is bypassed.
func (s *Service) RestoreVersion(ctx context.Context, notePath, versionID string) (*SaveResult, error) {
	rel, err := vault.CanonicalNotePath(notePath)
	if err != nil {
		return nil, err
	}
	version, err := s.hist.Get(versionID)
	if err != nil {
		return nil, err
	}
	if version.Path != rel {
		return nil, fmt.Errorf("engine: version %s does not belong to %s: %w", versionID, rel, apperr.ErrNotFound)
	}
	s.cancelPath(rel)
	return s.SaveNote(ctx, rel, version.Content, true)
}
