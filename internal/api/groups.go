package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/funkpopo/notevault/internal/apperr"
)

// CreateGroup handles POST /api/groups.
//
//	@Summary		Create a group (directory) in the vault
//	@Tags			groups
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateGroupRequest	true	"Group to create"
//	@Success		201		{object}	GroupResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/groups [post]
func (h *Handler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	var req CreateGroupRequest
	if !readJSON(w, r, &req) {
		return
	}
	if req.Group == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("group is required"))
		return
	}
	group, err := h.svc.CreateGroup(r.Context(), req.Group)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrInvalidPath):
			writeJSON(w, http.StatusBadRequest, errorBody("invalid group path"))
		default:
			slog.Error("create group failed", slog.String("group", req.Group), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusCreated, GroupResponse{Group: group})
}

// MoveGroup handles POST /api/groups/move.
//
//	@Summary		Move a group and everything beneath it under another group
//	@Tags			groups
//	@Accept			json
//	@Produce		json
//	@Param			body	body		MoveGroupRequest	true	"Source group and target parent"
//	@Success		200		{object}	GroupResponse
//	@Failure		400		{object}	errResponse
//	@Failure		403		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/groups/move [post]
func (h *Handler) MoveGroup(w http.ResponseWriter, r *http.Request) {
	var req MoveGroupRequest
	if !readJSON(w, r, &req) {
		return
	}
	if req.Source == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("source is required"))
		return
	}
	group, err := h.svc.MoveGroup(r.Context(), req.Source, req.Target)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrProtectedGroup):
			writeJSON(w, http.StatusForbidden, errorBody("default group cannot be moved"))
		case errors.Is(err, apperr.ErrCyclicMove):
			writeJSON(w, http.StatusBadRequest, errorBody("cannot move a group beneath itself"))
		case errors.Is(err, apperr.ErrNotFound):
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		case errors.Is(err, apperr.ErrNameCollision):
			writeJSON(w, http.StatusConflict, errorBody("target already exists"))
		case errors.Is(err, apperr.ErrInvalidPath):
			writeJSON(w, http.StatusBadRequest, errorBody("invalid group path"))
		default:
			slog.Error("move group failed", slog.String("source", req.Source), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, GroupResponse{Group: group})
}

// DeleteGroup handles DELETE /api/groups/*.
//
//	@Summary		Delete a group and all notes beneath it
//	@Tags			groups
//	@Param			group	path	string	true	"Group path"
//	@Success		204		"Group deleted"
//	@Failure		403		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/groups/{group} [delete]
func (h *Handler) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	group := notePath(r)
	if group == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("group is required"))
		return
	}
	if err := h.svc.DeleteGroup(r.Context(), group); err != nil {
		switch {
		case errors.Is(err, apperr.ErrProtectedGroup):
			writeJSON(w, http.StatusForbidden, errorBody("default group cannot be deleted"))
		case errors.Is(err, apperr.ErrNotFound):
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		case errors.Is(err, apperr.ErrInvalidPath):
			writeJSON(w, http.StatusBadRequest, errorBody("invalid group path"))
		default:
			slog.Error("delete group failed", slog.String("group", group), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
