package lifecycle

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
)

var ErrCycleInProgress = errors.New("poll cycle already in progress")

// CycleLock keeps poll cycles from overlapping. The mutex covers goroutines
// in this process; the file lock covers a second engine process pointed at
// the same mailbox.
type CycleLock struct {
	mu   sync.Mutex
	file *flock.Flock
}

// NewCycleLock returns a lock backed by path. An empty path gives an
// in-process lock only.
func NewCycleLock(path string) (*CycleLock, error) {
	l := &CycleLock{}
	if path == "" {
		return l, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("cycle lock dir: %w", err)
	}
	l.file = flock.New(path)
	return l, nil
}

// TryAcquire never blocks. The returned release must be called exactly once.
func (l *CycleLock) TryAcquire() (release func(), err error) {
	if !l.mu.TryLock() {
		return nil, ErrCycleInProgress
	}
	if l.file == nil {
		return l.mu.Unlock, nil
	}

	locked, err := l.file.TryLock()
	if err != nil {
		l.mu.Unlock()
		return nil, fmt.Errorf("cycle lock %s: %w", l.file.Path(), err)
	}
	if !locked {
		l.mu.Unlock()
		return nil, ErrCycleInProgress
	}
	return func() {
		_ = l.file.Unlock()
		l.mu.Unlock()
	}, nil
}
