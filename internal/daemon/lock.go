package daemon

import (
	"errors"
	"fmt"
	"os"
)

// ErrLockHeld means another process owns the lock.
var ErrLockHeld = errors.New("index server already running (lock held)")

// LockFile is an exclusive advisory lock that lives as long as the process
// keeps the file open.
type LockFile struct {
	path string
	file *os.File
}

func NewLockFile(path string) *LockFile {
	return &LockFile{path: path}
}

func (l *LockFile) Acquire() error {
	if l.file != nil {
		return nil
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}

	if err := tryLock(f); err != nil {
		f.Close()
		return err
	}

	l.file = f
	return nil
}

// Release unlocks and removes the lock file.
func (l *LockFile) Release() error {
	if l.file == nil {
		return nil
	}

	unlock(l.file)
	err := l.file.Close()
	l.file = nil

	os.Remove(l.path)
	return err
}

func (l *LockFile) Held() bool {
	return l.file != nil
}
