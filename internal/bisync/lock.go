package bisync

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/openmined/bisync/internal/utils"
)

var (
	// ErrAlreadyLocked means another run holds this pair's lock. It can
	// also indicate a stale lock left by a crashed run.
	ErrAlreadyLocked = errors.New("another run is already synchronising this pair")
)

// LockManager hands out exclusive per-pair locks backed by lock files
// under <workDir>/locks. Acquisition is non-blocking: a held lock fails
// the run immediately instead of queueing behind it.
type LockManager struct {
	locksDir string
}

func NewLockManager(workDir string) *LockManager {
	return &LockManager{locksDir: filepath.Join(workDir, "locks")}
}

// Lock is a held pair lock. Release it with a defer so every exit path
// of a run, success or failure, lets the next run proceed.
type Lock struct {
	flock *flock.Flock
}

func (lm *LockManager) Acquire(pairID string) (*Lock, error) {
	if err := utils.EnsureDir(lm.locksDir); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWorkDir, err)
	}

	fl := flock.New(filepath.Join(lm.locksDir, pairID+".lock"))
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock pair: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w; if it is not, delete %q", ErrAlreadyLocked, fl.Path())
	}

	return &Lock{flock: fl}, nil
}

func (l *Lock) Release() error {
	// do not delete a lock file this process never held
	if !l.flock.Locked() {
		return nil
	}

	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to unlock pair: %w", err)
	}

	return os.Remove(l.flock.Path())
}

// Path returns the location of the lock file.
func (l *Lock) Path() string {
	return l.flock.Path()
}
