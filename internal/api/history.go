package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/funkpopo/notevault/internal/apperr"
	"github.com/funkpopo/notevault/internal/history"
)

// History handles GET /api/history/*.
//
//	@Summary		List saved versions of a note, newest first
//	@Tags			history
//	@Produce		json
//	@Param			path	path		string	true	"Note path"
//	@Param			limit	query		int		false	"Max versions"
//	@Success		200		{object}	map[string]any
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/history/{path} [get]
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	path := notePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	versions, err := h.svc.History(r.Context(), path, limit)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrInvalidPath):
			writeJSON(w, http.StatusBadRequest, errorBody("invalid path"))
		default:
			slog.Error("list history failed", slog.String("path", path), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	if versions == nil {
		versions = []history.Version{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"versions": versions,
		"total":    len(versions),
	})
}

// GetVersion handles GET /api/versions/{id}.
//
//	@Summary		Fetch a single saved version including its content
//	@Tags			history
//	@Produce		json
//	@Param			id	path		string	true	"Version ID"
//	@Success		200	{object}	history.Version
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/versions/{id} [get]
func (h *Handler) GetVersion(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	version, err := h.svc.HistoryVersion(r.Context(), id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("get version failed", slog.String("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, version)
}

// DiffVersion handles GET /api/versions/{id}/diff.
//
//	@Summary		Diff a saved version against the note's current content
//	@Tags			history
//	@Produce		json
//	@Param			id		path		string	true	"Version ID"
//	@Param			path	query		string	true	"Note path the version belongs to"
//	@Success		200		{object}	diff.Result
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/versions/{id}/diff [get]
func (h *Handler) DiffVersion(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	path := r.URL.Query().Get("path")
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'path' is required"))
		return
	}
	result, err := h.svc.DiffWithVersion(r.Context(), path, id)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		case errors.Is(err, apperr.ErrInvalidPath):
			writeJSON(w, http.StatusBadRequest, errorBody("invalid path"))
		default:
			slog.Error("diff version failed", slog.String("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// RestoreVersion handles POST /api/versions/{id}/restore.
//
//	@Summary		Overwrite a note with a saved version's content
//	@Tags			history
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Version ID"
//	@Param			body	body		RestoreRequest	true	"Note to restore"
//	@Success		200		{object}	SaveResult
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/versions/{id}/restore [post]
func (h *Handler) RestoreVersion(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req RestoreRequest
	if !readJSON(w, r, &req) {
		return
	}
	if req.Path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	result, err := h.svc.RestoreVersion(r.Context(), req.Path, id)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		case errors.Is(err, apperr.ErrInvalidPath):
			writeJSON(w, http.StatusBadRequest, errorBody("invalid path"))
		default:
			slog.Error("restore version failed", slog.String("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Diff handles POST /api/diff.
//
//	@Summary		Compute an edit script between two texts
//	@Tags			diff
//	@Accept			json
//	@Produce		json
//	@Param			body	body		DiffRequest	true	"Texts to compare"
//	@Success		200		{object}	diff.Result
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/diff [post]
func (h *Handler) Diff(w http.ResponseWriter, r *http.Request) {
	var req DiffRequest
	if !readJSON(w, r, &req) {
		return
	}
	result, err := h.svc.ComputeDiff(r.Context(), req.Original, req.Updated)
	if err != nil {
		slog.Error("diff failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Stats handles GET /api/stats.
//
//	@Summary		Report vault and session counters
//	@Tags			stats
//	@Produce		json
//	@Success		200	{object}	engine.Stats
//	@Security		BearerAuth
//	@Router			/stats [get]
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		slog.Error("stats failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
