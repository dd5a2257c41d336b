// Package watcher observes the vault directory tree and reports file
// changes as coalesced batches. Rapid bursts (editor save storms, group
// moves, cloud sync clients) settle into a single batch once the tree has
// been quiet for the configured stability window.
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

// DefaultStability is the quiet period required before a batch is emitted.
const DefaultStability = 2 * time.Second

// DefaultIgnore filters dotfiles, editor droppings, and the temp files the
// vault's own atomic writes produce. Patterns match path segments.
func DefaultIgnore() []string {
	return []string{".*", "*.tmp", "*.swp", "*~"}
}

// Config controls a Watcher.
type Config struct {
	Root      string        // vault root directory
	Ignore    []string      // doublestar patterns matched against each path segment
	Stability time.Duration // quiet period; DefaultStability when zero
}

// Batch is one coalesced change notification: the unique vault-relative
// paths touched since the previous batch.
type Batch struct {
	Paths []string  `json:"paths"`
	At    time.Time `json:"at"`
}

// Watcher turns raw fsnotify events into stability-windowed batches.
type Watcher struct {
	cfg    Config
	logger *slog.Logger
	events chan Batch
}

// New validates the config and prepares a watcher. Run starts it.
func New(cfg Config, logger *slog.Logger) (*Watcher, error) {
	if cfg.Root == "" {
		return nil, fmt.Errorf("watcher: root not set")
	}
	if cfg.Stability <= 0 {
		cfg.Stability = DefaultStability
	}
	if cfg.Ignore == nil {
		cfg.Ignore = DefaultIgnore()
	}
	for _, pat := range cfg.Ignore {
		if !doublestar.ValidatePattern(pat) {
			return nil, fmt.Errorf("watcher: invalid ignore pattern %q", pat)
		}
	}
	return &Watcher{
		cfg:    cfg,
		logger: logger,
		events: make(chan Batch, 16),
	}, nil
}

// Events returns the batch channel. It is closed when Run returns.
func (w *Watcher) Events() <-chan Batch {
	return w.events
}

// Run watches the tree until ctx is cancelled. Directories created at
// runtime are added to the watch list, and their existing files are folded
// into the pending batch so a group move surfaces as one notification.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watcher: start: %w", err)
	}
	defer fw.Close()
	defer close(w.events)

	if err := w.addDirsRecursive(fw, w.cfg.Root); err != nil {
		return fmt.Errorf("watcher: watch tree: %w", err)
	}

	w.logger.Info("watcher: started",
		slog.String("root", w.cfg.Root),
		slog.Duration("stability", w.cfg.Stability))

	pending := make(map[string]struct{})

	// The stability timer restarts on every change; its channel stays nil
	// until the first change arrives.
	var settle *time.Timer
	var settleCh <-chan time.Time

	touch := func(rel string) {
		pending[rel] = struct{}{}
		if settle == nil {
			settle = time.NewTimer(w.cfg.Stability)
			settleCh = settle.C
		} else {
			if !settle.Stop() {
				select {
				case <-settle.C:
				default:
				}
			}
			settle.Reset(w.cfg.Stability)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if settle != nil {
				settle.Stop()
			}
			w.logger.Info("watcher: stopped")
			return nil

		case <-settleCh:
			if len(pending) == 0 {
				continue
			}
			batch := Batch{Paths: make([]string, 0, len(pending)), At: time.Now()}
			for p := range pending {
				batch.Paths = append(batch.Paths, p)
			}
			sort.Strings(batch.Paths)
			pending = make(map[string]struct{})

			select {
			case w.events <- batch:
				w.logger.Debug("watcher: batch emitted", slog.Int("paths", len(batch.Paths)))
			default:
				w.logger.Warn("watcher: batch dropped, consumer too slow",
					slog.Int("paths", len(batch.Paths)))
			}

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if ev.Op == fsnotify.Chmod {
				continue
			}

			rel, relErr := filepath.Rel(w.cfg.Root, ev.Name)
			if relErr != nil {
				continue
			}
			rel = filepath.ToSlash(rel)
			if w.ignored(rel) {
				continue
			}

			// New directories join the watch list immediately; files
			// already inside them count as changes.
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := w.addDirsRecursive(fw, ev.Name); addErr != nil {
						w.logger.Warn("watcher: add new dir failed",
							slog.String("path", rel),
							slog.String("error", addErr.Error()))
					} else {
						w.logger.Debug("watcher: watching new dir", slog.String("path", rel))
					}
					w.collectExisting(ev.Name, touch)
					continue
				}
			}

			if !strings.HasSuffix(rel, ".md") {
				continue
			}
			touch(rel)

		case watchErr, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// collectExisting folds the .md files already present under dir into the
// pending batch. Renamed directories fire a single Create for the new
// path, so their contents would otherwise go unreported.
func (w *Watcher) collectExisting(dir string, touch func(string)) {
	_ = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		rel, relErr := filepath.Rel(w.cfg.Root, p)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if w.ignored(rel) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !d.IsDir() && strings.HasSuffix(rel, ".md") {
			touch(rel)
		}
		return nil
	})
}

// addDirsRecursive adds root and all its non-ignored subdirectories to the
// fsnotify watch list.
func (w *Watcher) addDirsRecursive(fw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != root {
			rel, relErr := filepath.Rel(w.cfg.Root, p)
			if relErr == nil && w.ignored(filepath.ToSlash(rel)) {
				return fs.SkipDir
			}
		}
		return fw.Add(p)
	})
}

// ignored reports whether any segment of the slash-separated rel path
// matches one of the ignore patterns.
func (w *Watcher) ignored(rel string) bool {
	if rel == "." {
		return false
	}
	for _, seg := range strings.Split(rel, "/") {
		for _, pat := range w.cfg.Ignore {
			if ok, _ := doublestar.Match(pat, seg); ok {
				return true
			}
		}
	}
	return false
}
