// Package apperr defines the sentinel errors shared across the engine.
//
// Every mutating operation reports failure through one of these sentinels
// (wrapped with context via fmt.Errorf and %w) or through a plain wrapped
// I/O error that preserves the underlying message. Callers dispatch with
// errors.Is; anything that matches none of the sentinels is an I/O failure.
package apperr

import "errors"

var (
	// ErrNotFound reports a path missing at read, move, or delete time.
	ErrNotFound = errors.New("not found")

	// ErrNameCollision reports an occupied destination on move or rename.
	ErrNameCollision = errors.New("name collision")

	// ErrInvalidPath reports a path rejected by sanitization.
	ErrInvalidPath = errors.New("invalid path")

	// ErrProtectedGroup reports an attempt to delete or move the default group.
	ErrProtectedGroup = errors.New("protected group")

	// ErrCyclicMove reports a group moved into itself or a descendant.
	ErrCyclicMove = errors.New("cyclic move")

	// ErrConflict reports a save blocked by the conflict detector.
	ErrConflict = errors.New("conflict detected")
)
