package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	akerrors "github.com/askbase/askbase/internal/errors"
)

// DirLock guards a data directory against concurrent engine
// processes. Two engines sharing one content database would race on
// rebuild scheduling.
type DirLock struct {
	lock *flock.Flock
}

// AcquireDirLock takes an advisory lock on <dir>/.lock without
// blocking. A held lock means another process owns the directory.
func AcquireDirLock(dir string) (*DirLock, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, akerrors.Wrap(akerrors.ErrCodeStorageWrite, err)
	}

	fl := flock.New(filepath.Join(dir, ".lock"))
	locked, err := fl.TryLock()
	if err != nil {
		return nil, akerrors.Wrap(akerrors.ErrCodeDataDirLocked, err)
	}
	if !locked {
		return nil, akerrors.New(akerrors.ErrCodeDataDirLocked,
			fmt.Sprintf("data directory %s is locked by another process", dir), nil)
	}
	return &DirLock{lock: fl}, nil
}

// Release drops the lock.
func (l *DirLock) Release() error {
	return l.lock.Unlock()
}
