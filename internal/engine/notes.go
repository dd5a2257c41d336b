package engine

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"time"

	"github.com/funkpopo/notevault/internal/apperr"
	"github.com/funkpopo/notevault/internal/fingerprint"
	"github.com/funkpopo/notevault/internal/notify"
	"github.com/funkpopo/notevault/internal/snapshot"
	"github.com/funkpopo/notevault/internal/vault"
)

// NoteDetail is the full representation of a note as handed to an editor.
type NoteDetail struct {
	Path        string    `json:"path"`
	Name        string    `json:"name"`
	Group       string    `json:"group"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	Fingerprint string    `json:"fingerprint"`
	Size        int64     `json:"size"`
	ModifiedAt  time.Time `json:"modified_at"`
}

// SaveResult reports the outcome of a save. Conflict is set when the save
// was blocked; the caller may retry with force once the user decided.
type SaveResult struct {
	Path        string           `json:"path"`
	Fingerprint string           `json:"fingerprint"`
	Size        int64            `json:"size"`
	SavedAt     time.Time        `json:"saved_at"`
	VersionID   string           `json:"version_id,omitempty"`
	Conflict    *snapshot.Result `json:"conflict,omitempty"`
}

// ListNotes returns the full vault inventory, including note-free groups.
func (s *Service) ListNotes(_ context.Context) (vault.Listing, error) {
	return s.vault.ListAll()
}

// GetNote loads a note for editing and registers its snapshot, so the
// next save is checked against the exact state handed to the editor.
func (s *Service) GetNote(_ context.Context, notePath string) (*NoteDetail, error) {
	rel, err := vault.CanonicalNotePath(notePath)
	if err != nil {
		return nil, err
	}
	content, info, err := s.vault.ReadNote(rel)
	if err != nil {
		return nil, err
	}
	s.snaps.Capture(rel, content, info.ModTime())
	return buildDetail(rel, content, info.Size(), info.ModTime()), nil
}

// CloseNote flushes any pending autosave for the note and drops its
// editor state.
func (s *Service) CloseNote(_ context.Context, notePath string) error {
	rel, err := vault.CanonicalNotePath(notePath)
	if err != nil {
		return err
	}
	s.flushPath(rel)
	s.snaps.Forget(rel)
	return nil
}

// CreateNote creates a note inside group and records its first version.
func (s *Service) CreateNote(_ context.Context, name, content, group string) (*NoteDetail, error) {
	rel, err := s.vault.CreateNote(name, content, group)
	if err != nil {
		return nil, err
	}

	var mod time.Time
	size := int64(len(content))
	if info, statErr := s.vault.FS().Stat(rel); statErr == nil {
		mod = info.ModTime()
		size = info.Size()
	}
	s.snaps.Capture(rel, content, mod)
	s.appendHistory(rel, content)

	s.hub.Publish(notify.Event{Type: notify.TypeNoteSaved, Data: notify.NoteRef{Path: rel}})
	s.logger.Info("engine: note created", slog.String("path", rel))
	return buildDetail(rel, content, size, mod), nil
}

// SaveNote writes content through the conflict gate and logs a version.
// force bypasses the gate for a deliberate overwrite.
func (s *Service) SaveNote(_ context.Context, notePath, content string, force bool) (*SaveResult, error) {
	rel, err := vault.CanonicalNotePath(notePath)
	if err != nil {
		return nil, err
	}

	if !force {
		if res := s.detector.Check(rel, content); res.HasConflict {
			s.hub.Publish(notify.Event{Type: notify.TypeConflict, Data: notify.Conflict{
				Path:    rel,
				Kind:    string(res.Kind),
				Message: res.Message,
			}})
			s.logger.Warn("engine: save blocked",
				slog.String("path", rel),
				slog.String("kind", string(res.Kind)))
			return &SaveResult{Path: rel, Conflict: &res}, fmt.Errorf("engine: save %s: %w", rel, apperr.ErrConflict)
		}
	}

	if _, err := s.vault.WriteNote(rel, content); err != nil {
		return nil, err
	}

	var mod time.Time
	if info, statErr := s.vault.FS().Stat(rel); statErr == nil {
		mod = info.ModTime()
	}
	s.snaps.Capture(rel, content, mod)

	result := &SaveResult{
		Path:        rel,
		Fingerprint: fingerprint.Hex(content),
		Size:        int64(len(content)),
		SavedAt:     time.Now(),
	}
	if id := s.appendHistory(rel, content); id != "" {
		result.VersionID = id
	}

	s.hub.Publish(notify.Event{Type: notify.TypeNoteSaved, Data: notify.NoteRef{Path: rel}})
	s.logger.Debug("engine: note saved",
		slog.String("path", rel),
		slog.Int64("size", result.Size),
		slog.Bool("forced", force))
	return result, nil
}

// QueueSave hands content to the note's autosave scheduler. It returns
// whether the change was significant enough to arm a save.
func (s *Service) QueueSave(_ context.Context, notePath, content string) (bool, error) {
	rel, err := vault.CanonicalNotePath(notePath)
	if err != nil {
		return false, err
	}
	return s.scheduler(rel).Schedule(content), nil
}

// DeleteNote discards pending saves, removes the file, and forgets its
// editor state. Stored versions are kept for recovery.
func (s *Service) DeleteNote(_ context.Context, notePath string) error {
	rel, err := vault.CanonicalNotePath(notePath)
	if err != nil {
		return err
	}
	s.cancelPath(rel)
	if err := s.vault.DeleteNote(rel); err != nil {
		return err
	}
	s.snaps.Forget(rel)
	s.hub.Publish(notify.Event{Type: notify.TypeNoteDeleted, Data: notify.NoteRef{Path: rel}})
	s.logger.Info("engine: note deleted", slog.String("path", rel))
	return nil
}

// MoveNote relocates a note into another group, carrying its snapshot and
// history along.
func (s *Service) MoveNote(_ context.Context, notePath, targetGroup string) (string, error) {
	rel, err := vault.CanonicalNotePath(notePath)
	if err != nil {
		return "", err
	}
	s.flushPath(rel)

	newPath, err := s.vault.MoveNote(rel, targetGroup)
	if err != nil {
		return "", err
	}
	if newPath != rel {
		s.afterNoteMove(rel, newPath)
	}
	return newPath, nil
}

// RenameNote changes the note's file name within its group.
func (s *Service) RenameNote(_ context.Context, notePath, newName string) (string, error) {
	rel, err := vault.CanonicalNotePath(notePath)
	if err != nil {
		return "", err
	}
	s.flushPath(rel)

	newPath, err := s.vault.RenameNote(rel, newName)
	if err != nil {
		return "", err
	}
	if newPath != rel {
		s.afterNoteMove(rel, newPath)
	}
	return newPath, nil
}

func (s *Service) afterNoteMove(oldPath, newPath string) {
	s.snaps.Rename(oldPath, newPath)
	if err := s.hist.RenamePath(oldPath, newPath); err != nil {
		s.logger.Warn("engine: history rename failed",
			slog.String("path", oldPath),
			slog.String("error", err.Error()))
	}
	s.hub.Publish(notify.Event{Type: notify.TypeNoteMoved, Data: notify.NoteMove{From: oldPath, To: newPath}})
	s.logger.Info("engine: note moved",
		slog.String("from", oldPath),
		slog.String("to", newPath))
}

// appendHistory records a version, logging instead of failing the save
// when the log is unavailable.
func (s *Service) appendHistory(rel, content string) string {
	v, err := s.hist.Append(rel, content, fingerprint.Hex(content), s.writerID)
	if err != nil {
		s.logger.Warn("engine: history append failed",
			slog.String("path", rel),
			slog.String("error", err.Error()))
		return ""
	}
	return v.ID
}

func buildDetail(rel, content string, size int64, mod time.Time) *NoteDetail {
	name := path.Base(rel)
	return &NoteDetail{
		Path:        rel,
		Name:        name,
		Group:       vault.GroupOf(rel),
		Title:       vault.DisplayTitle(content, name),
		Content:     content,
		Fingerprint: fingerprint.Hex(content),
		Size:        size,
		ModifiedAt:  mod,
	}
}
