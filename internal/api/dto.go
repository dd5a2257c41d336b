package api

import (
	"github.com/funkpopo/notevault/internal/engine"
	"github.com/funkpopo/notevault/internal/vault"
)

// CreateNoteRequest is the request body for creating a note.
type CreateNoteRequest struct {
	Name    string `json:"name" example:"meeting-notes" validate:"required"`
	Content string `json:"content" example:"# Meeting\nAgenda"`
	Group   string `json:"group" example:"work/projects"`
}

// SaveNoteRequest is the request body for saving a note. A forced save is
// requested with the ?force=true query parameter.
type SaveNoteRequest struct {
	Content string `json:"content" example:"# Updated\nContent"`
}

// QueueSaveRequest is the request body for enqueueing an autosave.
type QueueSaveRequest struct {
	Path    string `json:"path" example:"work/meeting-notes.md" validate:"required"`
	Content string `json:"content"`
}

// CloseNoteRequest is the request body for closing an editing session.
type CloseNoteRequest struct {
	Path string `json:"path" example:"work/meeting-notes.md" validate:"required"`
}

// MoveNoteRequest is the request body for moving a note to another group.
type MoveNoteRequest struct {
	Path  string `json:"path" example:"work/meeting-notes.md" validate:"required"`
	Group string `json:"group" example:"archive"`
}

// RenameNoteRequest is the request body for renaming a note in place.
type RenameNoteRequest struct {
	Path string `json:"path" example:"work/meeting-notes.md" validate:"required"`
	Name string `json:"name" example:"standup-notes" validate:"required"`
}

// CreateGroupRequest is the request body for creating a group.
type CreateGroupRequest struct {
	Group string `json:"group" example:"work/projects" validate:"required"`
}

// MoveGroupRequest is the request body for relocating a group subtree.
type MoveGroupRequest struct {
	Source string `json:"source" example:"work/projects" validate:"required"`
	Target string `json:"target" example:"archive"`
}

// DiffRequest is the request body for computing a diff between two texts.
type DiffRequest struct {
	Original string `json:"original"`
	Updated  string `json:"updated"`
}

// RestoreRequest is the request body for restoring a historical version.
type RestoreRequest struct {
	Path string `json:"path" example:"work/meeting-notes.md" validate:"required"`
}

// NoteDetail is the full note response type (aliased from the domain layer).
type NoteDetail = engine.NoteDetail

// SaveResult is the save outcome response type (aliased from the domain layer).
type SaveResult = engine.SaveResult

// NoteListResponse wraps the vault inventory.
type NoteListResponse struct {
	Notes       []vault.Note `json:"notes" validate:"required"`
	EmptyGroups []string     `json:"empty_groups" validate:"required"`
	Total       int          `json:"total" example:"42" validate:"required"`
}

// PathResponse reports the resulting path of a move or rename.
type PathResponse struct {
	Path string `json:"path" example:"archive/meeting-notes.md" validate:"required"`
}

// GroupResponse reports the resulting group path of a group operation.
type GroupResponse struct {
	Group string `json:"group" example:"archive/projects" validate:"required"`
}

// QueueSaveResponse reports whether a queued change armed a save.
type QueueSaveResponse struct {
	Queued bool `json:"queued" validate:"required"`
}
