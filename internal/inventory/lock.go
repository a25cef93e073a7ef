package inventory

import (
	"fmt"
	"os"
	"path/filepath"
)

type fileLock struct {
	file *os.File
}

func acquireLock(dir string) (*fileLock, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, "inventory.lock"), os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open inventory lock: %w", err)
	}
	if err := lockFileExclusiveNonBlocking(f); err != nil {
		f.Close()
		if isWouldBlockError(err) {
			return nil, ErrLocked
		}
		return nil, fmt.Errorf("failed to acquire inventory lock: %w", err)
	}
	return &fileLock{file: f}, nil
}

func (l *fileLock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	unlockErr := unlockFile(l.file)
	closeErr := l.file.Close()
	if unlockErr != nil {
		return unlockErr
	}
	return closeErr
}
