package snapshot

import (
	"fmt"
	"io/fs"
	"time"

	"github.com/funkpopo/notevault/internal/fingerprint"
)

// ConflictKind classifies why a save was flagged.
type ConflictKind string

// Conflict kinds.
const (
	// ExternalModification: the file on disk changed (or vanished) behind
	// the engine's back.
	ExternalModification ConflictKind = "external_modification"
	// SizeAnomaly: the on-disk size moved too far from the snapshot to be
	// a plausible continuation of this session's editing.
	SizeAnomaly ConflictKind = "size_anomaly"
	// ConcurrentEdit: the on-disk content hash no longer matches the
	// snapshot written by this session.
	ConcurrentEdit ConflictKind = "concurrent_modification"
)

// Result is the outcome of a conflict check. Checks never fail: a file
// that cannot even be read is itself a conflict condition.
type Result struct {
	HasConflict bool         `json:"has_conflict"`
	Kind        ConflictKind `json:"kind,omitempty"`
	Message     string       `json:"message,omitempty"`
}

// Filesystem is the file metadata access the detector needs.
type Filesystem interface {
	Stat(path string) (fs.FileInfo, error)
	Read(path string) ([]byte, error)
}

// CheckConfig toggles the individual conflict checks.
type CheckConfig struct {
	// MTimeCheck flags files whose modify time drifted beyond MTimeTolerance
	// and past the snapshot capture time.
	MTimeCheck     bool
	MTimeTolerance time.Duration

	// SizeCheck flags files whose size moved by more than
	// max(half the snapshot size, SizeFloor) bytes.
	SizeCheck bool
	SizeFloor int

	// FingerprintCheck compares the on-disk content hash against the
	// snapshot. Disabled in the default policy.
	FingerprintCheck bool
}

// DefaultCheckConfig returns the shipped check policy.
func DefaultCheckConfig() CheckConfig {
	return CheckConfig{
		MTimeCheck:       true,
		MTimeTolerance:   2 * time.Second,
		SizeCheck:        true,
		SizeFloor:        256,
		FingerprintCheck: false,
	}
}

// Detector classifies whether saving over a path risks clobbering a change
// the engine did not make. It detects, never merges: the caller decides
// between overwriting and discarding.
type Detector struct {
	fs    Filesystem
	store *Store
	cfg   CheckConfig
}

// NewDetector creates a detector over the given filesystem and store.
func NewDetector(fsys Filesystem, store *Store, cfg CheckConfig) *Detector {
	return &Detector{fs: fsys, store: store, cfg: cfg}
}

// Store exposes the underlying snapshot store.
func (d *Detector) Store() *Store {
	return d.store
}

// Check compares path's live metadata against its snapshot. A path seen for
// the first time is trusted and snapshotted as-is. When no conflict is
// found the snapshot is refreshed to the current content so subsequent
// checks measure from the latest trusted state.
func (d *Detector) Check(path, currentContent string) Result {
	snap, ok := d.store.Get(path)
	if !ok {
		var modTime time.Time
		if info, err := d.fs.Stat(path); err == nil {
			modTime = info.ModTime()
		}
		d.store.Capture(path, currentContent, modTime)
		return Result{}
	}

	info, err := d.fs.Stat(path)
	if err != nil {
		return Result{
			HasConflict: true,
			Kind:        ExternalModification,
			Message:     fmt.Sprintf("file missing or unreadable: %v", err),
		}
	}

	if d.cfg.MTimeCheck {
		drift := info.ModTime().Sub(snap.ModTime)
		if drift < 0 {
			drift = -drift
		}
		if drift > d.cfg.MTimeTolerance && info.ModTime().After(snap.CapturedAt) {
			return Result{
				HasConflict: true,
				Kind:        ExternalModification,
				Message: fmt.Sprintf("file modified on disk at %s, after snapshot from %s",
					info.ModTime().Format(time.RFC3339), snap.CapturedAt.Format(time.RFC3339)),
			}
		}
	}

	if d.cfg.SizeCheck {
		live := int(info.Size())
		delta := live - snap.Size
		if delta < 0 {
			delta = -delta
		}
		limit := snap.Size / 2
		if limit < d.cfg.SizeFloor {
			limit = d.cfg.SizeFloor
		}
		if delta > limit {
			return Result{
				HasConflict: true,
				Kind:        SizeAnomaly,
				Message:     fmt.Sprintf("size changed by %d bytes (snapshot %d, live %d)", delta, snap.Size, live),
			}
		}
	}

	if d.cfg.FingerprintCheck {
		data, err := d.fs.Read(path)
		if err != nil {
			return Result{
				HasConflict: true,
				Kind:        ExternalModification,
				Message:     fmt.Sprintf("file unreadable during fingerprint check: %v", err),
			}
		}
		if fingerprint.Sum(string(data)) != snap.Fingerprint {
			return Result{
				HasConflict: true,
				Kind:        ConcurrentEdit,
				Message:     fmt.Sprintf("on-disk content diverged from the snapshot written by session %s", snap.WriterID),
			}
		}
	}

	d.store.Capture(path, currentContent, info.ModTime())
	return Result{}
}
