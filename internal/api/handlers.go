package api

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/funkpopo/notevault/internal/apperr"
	"github.com/funkpopo/notevault/internal/engine"
	"github.com/funkpopo/notevault/internal/vault"
)

// Handler holds API route handlers.
type Handler struct {
	svc *engine.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *engine.Service) *Handler {
	return &Handler{svc: svc}
}

// notePath extracts the note path from the URL (everything after the route
// prefix). Supports encoded slashes from OpenAPI clients (e.g. work%2Fnote.md).
func notePath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// ListNotes handles GET /api/notes.
//
//	@Summary		List all notes and note-free groups
//	@Tags			notes
//	@Produce		json
//	@Success		200	{object}	NoteListResponse
//	@Security		BearerAuth
//	@Router			/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	listing, err := h.svc.ListNotes(r.Context())
	if err != nil {
		slog.Error("list notes failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	resp := NoteListResponse{
		Notes:       listing.Notes,
		EmptyGroups: listing.EmptyGroups,
		Total:       len(listing.Notes),
	}
	if resp.Notes == nil {
		resp.Notes = []vault.Note{}
	}
	if resp.EmptyGroups == nil {
		resp.EmptyGroups = []string{}
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetNote handles GET /api/notes/*.
//
//	@Summary		Get a single note by path and open an editing session
//	@Tags			notes
//	@Produce		json
//	@Param			path	path		string	true	"Note path"
//	@Success		200		{object}	NoteDetail
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{path} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	path := notePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	note, err := h.svc.GetNote(r.Context(), path)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		case errors.Is(err, apperr.ErrInvalidPath):
			writeJSON(w, http.StatusBadRequest, errorBody("invalid path"))
		default:
			slog.Error("get note failed", slog.String("path", path), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// CreateNote handles POST /api/notes.
//
//	@Summary		Create a new note
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateNoteRequest	true	"Note to create"
//	@Success		201		{object}	NoteDetail
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes [post]
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req CreateNoteRequest
	if !readJSON(w, r, &req) {
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("name is required"))
		return
	}
	note, err := h.svc.CreateNote(r.Context(), req.Name, req.Content, req.Group)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrNameCollision):
			writeJSON(w, http.StatusConflict, errorBody("note already exists"))
		case errors.Is(err, apperr.ErrInvalidPath):
			writeJSON(w, http.StatusBadRequest, errorBody("invalid path"))
		default:
			slog.Error("create note failed", slog.String("name", req.Name), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

// SaveNote handles PUT /api/notes/*.
//
//	@Summary		Save a note through the conflict gate
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			path	path		string			true	"Note path"
//	@Param			force	query		bool			false	"Bypass the conflict check"
//	@Param			body	body		SaveNoteRequest	true	"New content"
//	@Success		200		{object}	SaveResult
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	SaveResult	"Save blocked; body carries the conflict detail"
//	@Security		BearerAuth
//	@Router			/notes/{path} [put]
func (h *Handler) SaveNote(w http.ResponseWriter, r *http.Request) {
	path := notePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	var req SaveNoteRequest
	if !readJSON(w, r, &req) {
		return
	}
	force := r.URL.Query().Get("force") == "true"

	result, err := h.svc.SaveNote(r.Context(), path, req.Content, force)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrConflict):
			// The result carries the conflict kind and message so the
			// client can offer the overwrite remedy.
			writeJSON(w, http.StatusConflict, result)
		case errors.Is(err, apperr.ErrInvalidPath):
			writeJSON(w, http.StatusBadRequest, errorBody("invalid path"))
		default:
			slog.Error("save note failed", slog.String("path", path), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
		}
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// QueueSave handles POST /api/notes/queue.
//
//	@Summary		Hand content to the note's autosave scheduler
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		QueueSaveRequest	true	"Pending content"
//	@Success		202		{object}	QueueSaveResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/queue [post]
func (h *Handler) QueueSave(w http.ResponseWriter, r *http.Request) {
	var req QueueSaveRequest
	if !readJSON(w, r, &req) {
		return
	}
	if req.Path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	queued, err := h.svc.QueueSave(r.Context(), req.Path, req.Content)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrInvalidPath):
			writeJSON(w, http.StatusBadRequest, errorBody("invalid path"))
		default:
			slog.Error("queue save failed", slog.String("path", req.Path), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusAccepted, QueueSaveResponse{Queued: queued})
}

// CloseNote handles POST /api/notes/close.
//
//	@Summary		Flush pending autosave and drop the editing session
//	@Tags			notes
//	@Accept			json
//	@Param			body	body	CloseNoteRequest	true	"Note to close"
//	@Success		204		"Session closed"
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/close [post]
func (h *Handler) CloseNote(w http.ResponseWriter, r *http.Request) {
	var req CloseNoteRequest
	if !readJSON(w, r, &req) {
		return
	}
	if req.Path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	if err := h.svc.CloseNote(r.Context(), req.Path); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid path"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteNote handles DELETE /api/notes/*.
//
//	@Summary		Delete a note
//	@Tags			notes
//	@Param			path	path	string	true	"Note path"
//	@Success		204		"Note deleted"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{path} [delete]
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	path := notePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	if err := h.svc.DeleteNote(r.Context(), path); err != nil {
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		case errors.Is(err, apperr.ErrInvalidPath):
			writeJSON(w, http.StatusBadRequest, errorBody("invalid path"))
		default:
			slog.Error("delete note failed", slog.String("path", path), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MoveNote handles POST /api/notes/move.
//
//	@Summary		Move a note to another group
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		MoveNoteRequest	true	"Note and target group"
//	@Success		200		{object}	PathResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/move [post]
func (h *Handler) MoveNote(w http.ResponseWriter, r *http.Request) {
	var req MoveNoteRequest
	if !readJSON(w, r, &req) {
		return
	}
	if req.Path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	newPath, err := h.svc.MoveNote(r.Context(), req.Path, req.Group)
	if err != nil {
		h.writeMoveError(w, "move note", req.Path, err)
		return
	}
	writeJSON(w, http.StatusOK, PathResponse{Path: newPath})
}

// RenameNote handles POST /api/notes/rename.
//
//	@Summary		Rename a note within its group
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		RenameNoteRequest	true	"Note and new name"
//	@Success		200		{object}	PathResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/rename [post]
func (h *Handler) RenameNote(w http.ResponseWriter, r *http.Request) {
	var req RenameNoteRequest
	if !readJSON(w, r, &req) {
		return
	}
	if req.Path == "" || req.Name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path and name are required"))
		return
	}
	newPath, err := h.svc.RenameNote(r.Context(), req.Path, req.Name)
	if err != nil {
		h.writeMoveError(w, "rename note", req.Path, err)
		return
	}
	writeJSON(w, http.StatusOK, PathResponse{Path: newPath})
}

// writeMoveError maps the shared error taxonomy of note move and rename.
func (h *Handler) writeMoveError(w http.ResponseWriter, op, path string, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrNameCollision):
		writeJSON(w, http.StatusConflict, errorBody("target already exists"))
	case errors.Is(err, apperr.ErrInvalidPath):
		writeJSON(w, http.StatusBadRequest, errorBody("invalid path"))
	default:
		slog.Error(op+" failed", slog.String("path", path), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}
