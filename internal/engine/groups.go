package engine

import (
	"context"
	"log/slog"

	"github.com/funkpopo/notevault/internal/notify"
	"github.com/funkpopo/notevault/internal/vault"
)

// CreateGroup creates the directory chain for a group.
func (s *Service) CreateGroup(_ context.Context, group string) (string, error) {
	rel, err := s.vault.CreateGroup(group)
	if err != nil {
		return "", err
	}
	s.hub.Publish(notify.Event{Type: notify.TypeGroupChanged, Data: notify.GroupRef{Group: rel}})
	s.logger.Info("engine: group created", slog.String("group", rel))
	return rel, nil
}

// MoveGroup relocates a group under a new parent. Pending autosaves for
// notes inside are flushed to the old location first, then snapshots drop
// back to trust-on-first-sight and history follows the rename.
func (s *Service) MoveGroup(_ context.Context, source, target string) (string, error) {
	srcRel, err := vault.CanonicalGroup(source)
	if err != nil {
		return "", err
	}
	if srcRel != "" {
		s.flushPrefix(srcRel + "/")
	}

	newRel, err := s.vault.MoveGroup(source, target)
	if err != nil {
		return "", err
	}
	if newRel != srcRel {
		s.snaps.ForgetPrefix(srcRel + "/")
		if histErr := s.hist.RenamePrefix(srcRel+"/", newRel+"/"); histErr != nil {
			s.logger.Warn("engine: history prefix rename failed",
				slog.String("group", srcRel),
				slog.String("error", histErr.Error()))
		}
		s.hub.Publish(notify.Event{Type: notify.TypeGroupChanged, Data: notify.GroupRef{Group: newRel}})
		s.logger.Info("engine: group moved",
			slog.String("from", srcRel),
			slog.String("to", newRel))
	}
	return newRel, nil
}

// DeleteGroup discards pending autosaves beneath the group, removes its
// subtree, and forgets affected snapshots.
func (s *Service) DeleteGroup(_ context.Context, group string) error {
	rel, err := vault.CanonicalGroup(group)
	if err != nil {
		return err
	}
	if rel != "" {
		s.cancelPrefix(rel + "/")
	}

	if err := s.vault.DeleteGroup(group); err != nil {
		return err
	}
	s.snaps.ForgetPrefix(rel + "/")
	s.hub.Publish(notify.Event{Type: notify.TypeGroupChanged, Data: notify.GroupRef{Group: rel}})
	s.logger.Info("engine: group deleted", slog.String("group", rel))
	return nil
}
