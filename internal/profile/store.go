package profile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"formpilot/internal/logging"
)

// Store persists the canonical profile as a JSON file. The onboarding UI
// (out of scope here) writes the same file, so the store can watch it for
// external edits and hand out the fresh copy on the next Load.
type Store struct {
	path string

	mu     sync.RWMutex
	cached *CanonicalProfile

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewStore creates a profile store for the given file path.
func NewStore(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("profile path required")
	}
	return &Store{path: path}, nil
}

// Load returns the profile, or nil when none has been saved yet. The
// returned profile is a copy; callers cannot mutate stored state.
func (s *Store) Load() (*CanonicalProfile, error) {
	s.mu.RLock()
	if s.cached != nil {
		p := *s.cached
		s.mu.RUnlock()
		return &p, nil
	}
	s.mu.RUnlock()

	return s.reload()
}

// reload reads the profile file from disk and refreshes the cache.
func (s *Store) reload() (*CanonicalProfile, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}

	var p CanonicalProfile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse profile: %w", err)
	}
	if p.SchemaVersion == 0 {
		p.SchemaVersion = 1
	}
	if p.SchemaVersion > SchemaVersion {
		return nil, fmt.Errorf("profile schema version %d is newer than supported %d", p.SchemaVersion, SchemaVersion)
	}

	s.mu.Lock()
	s.cached = &p
	s.mu.Unlock()

	out := p
	return &out, nil
}

// Save writes the profile to disk, stamping the schema version and update
// time. Only explicit user edits and imports go through here.
func (s *Store) Save(p *CanonicalProfile) error {
	if p == nil {
		return fmt.Errorf("profile required")
	}

	p.SchemaVersion = SchemaVersion
	p.UpdatedAt = time.Now()

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create profile directory: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write profile: %w", err)
	}

	s.mu.Lock()
	copied := *p
	s.cached = &copied
	s.mu.Unlock()

	logging.Store("Profile saved to %s", s.path)
	return nil
}

// Watch starts invalidating the cache when the profile file changes on
// disk. Stop with Close.
func (s *Store) Watch() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watcher != nil {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create profile watcher: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to create profile directory: %w", err)
	}
	// Watch the directory, not the file: editors replace files atomically,
	// which drops a file-level watch.
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch profile directory: %w", err)
	}

	s.watcher = watcher
	s.done = make(chan struct{})

	go func() {
		target := filepath.Clean(s.path)
		for {
			select {
			case <-s.done:
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				logging.Store("Profile file changed on disk, invalidating cache")
				s.mu.Lock()
				s.cached = nil
				s.mu.Unlock()
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logging.StoreWarn("Profile watcher error: %v", err)
			}
		}
	}()

	return nil
}

// Close stops the watcher, if any.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watcher == nil {
		return nil
	}
	close(s.done)
	err := s.watcher.Close()
	s.watcher = nil
	return err
}
