package policy

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Source resolves the rule list for one triage run.
// Implementations must fail closed: an error is never "no rules".
type Source interface {
	Load() (*Ruleset, error)
}

// FileSource reads the rule file on every call.
type FileSource struct {
	Path string
}

// Load implements Source.
func (s FileSource) Load() (*Ruleset, error) {
	return LoadRulesWithHash(s.Path)
}

// reloadDebounce is how long the watcher waits after the last write.
const reloadDebounce = 500 * time.Millisecond

// WatchedSource caches the parsed rule file and reloads it when the file
// changes. A failed reload poisons the source: Load returns the reload error
// until a later reload succeeds.
type WatchedSource struct {
	path   string
	logger *slog.Logger

	mu      sync.RWMutex
	current *Ruleset
	err     error
}

// NewWatchedSource loads path once. The initial load must succeed.
func NewWatchedSource(path string, logger *slog.Logger) (*WatchedSource, error) {
	if logger == nil {
		logger = slog.Default()
	}
	rs, err := LoadRulesWithHash(path)
	if err != nil {
		return nil, err
	}
	return &WatchedSource{path: path, logger: logger, current: rs}, nil
}

// Load implements Source.
func (s *WatchedSource) Load() (*Ruleset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.err != nil {
		return nil, s.err
	}
	return s.current, nil
}

// Reload re-reads the rule file and swaps it in atomically.
func (s *WatchedSource) Reload() error {
	rs, err := LoadRulesWithHash(s.path)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.err = fmt.Errorf("policy reload failed: %w", err)
		return s.err
	}
	s.current = rs
	s.err = nil
	return nil
}

// Run watches the rule file for changes. Blocks until ctx is cancelled.
//
// The parent directory is watched so that editors replacing the file by
// rename are seen as well.
func (s *WatchedSource) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	target := filepath.Clean(s.path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("failed to watch %q: %w", s.path, err)
	}

	var debounce *time.Timer
	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(reloadDebounce, func() {
				if err := s.Reload(); err != nil {
					s.logger.Error("policy hot-reload failed", "path", s.path, "error", err)
					return
				}
				s.mu.RLock()
				hash := s.current.Hash
				s.mu.RUnlock()
				s.logger.Info("policy reloaded", "path", s.path, "policy_hash", hash)
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("file watcher error", "error", err)
		}
	}
}
