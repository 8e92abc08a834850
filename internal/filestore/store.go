package filestore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
)

// Store serializes writers per path inside the process and across processes.
type Store struct {
	policy Policy

	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

// New returns a Store using the given retry policy.
func New(p Policy) *Store {
	return &Store{policy: p, locks: make(map[string]*keyLock)}
}

// Policy returns the retry policy the store applies.
func (s *Store) Policy() Policy { return s.policy }

func (s *Store) acquire(key string) func() {
	s.mu.Lock()
	kl, ok := s.locks[key]
	if !ok {
		kl = &keyLock{}
		s.locks[key] = kl
	}
	kl.refs++
	s.mu.Unlock()

	kl.mu.Lock()
	return func() {
		kl.mu.Unlock()
		s.mu.Lock()
		kl.refs--
		if kl.refs == 0 {
			delete(s.locks, key)
		}
		s.mu.Unlock()
	}
}

// Locked runs fn while holding the lock for path. Lock contention from other
// processes is retried under the store policy.
func (s *Store) Locked(ctx context.Context, path string, fn func() error) error {
	path = filepath.Clean(path)
	release := s.acquire(path)
	defer release()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create lock dir: %w", err)
	}
	fl := flock.New(path + ".lock")
	err := Retry(ctx, s.policy, func() error {
		ok, err := fl.TryLock()
		if err != nil {
			return err
		}
		if !ok {
			return ErrBusy
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("lock %s: %w", filepath.Base(path), err)
	}
	defer fl.Unlock()

	return fn()
}

// WriteFile atomically replaces path with data, retrying busy failures.
func (s *Store) WriteFile(ctx context.Context, path string, data []byte, perm os.FileMode) error {
	return Retry(ctx, s.policy, func() error {
		return WriteFileAtomic(path, data, perm)
	})
}

// WriteJSON marshals v with indentation and writes it atomically.
func (s *Store) WriteJSON(ctx context.Context, path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	return s.WriteFile(ctx, path, data, 0o644)
}

// WriteFileAtomic writes data to a temp file next to path and renames it into
// place, so readers never observe a partially written file.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return err
	}
	return nil
}
