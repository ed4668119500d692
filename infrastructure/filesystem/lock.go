package filesystem

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrLocked is returned when another run holds the workspace lock
var ErrLocked = errors.New("another run holds the lock")

// DefaultLockPath is used when no lock file is configured. It lives outside
// the download directory so a failed run leaves that directory untouched.
func DefaultLockPath() string {
	return filepath.Join(os.TempDir(), "audioprep.lock")
}

// Lock is an exclusive advisory lock on a file
type Lock struct {
	fl *flock.Flock
}

// AcquireLock takes the lock at path without blocking
func AcquireLock(path string) (*Lock, error) {
	if path == "" {
		path = DefaultLockPath()
	}
	if err := EnsureDir(filepath.Dir(path)); err != nil {
		return nil, err
	}

	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock %s: %w", path, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w (%s)", ErrLocked, path)
	}
	return &Lock{fl: fl}, nil
}

// Path returns the lock file location
func (l *Lock) Path() string {
	return l.fl.Path()
}

// Release unlocks the file. Safe to call on a nil Lock.
func (l *Lock) Release() error {
	if l == nil || l.fl == nil {
		return nil
	}
	return l.fl.Unlock()
}
