//go:build unix

package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"golang.org/x/sys/unix"
)

var errLockTimeout = errors.New("database is locked by another ghia process")

// fileLock is an exclusive advisory lock held on a side file next to the
// database.
type fileLock struct {
	path string
	file *os.File
}

// acquireFileLock takes an exclusive flock on path, polling until timeout.
// The holder's pid is written into the file for diagnostics.
func acquireFileLock(path string, timeout time.Duration) (*fileLock, error) {
	// nolint:gosec // G304: path is derived from the configured database path
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file: %w", err)
	}

	deadline := time.Now().Add(timeout)
	for {
		err := unix.Flock(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB)
		if err == nil {
			break
		}
		if !errors.Is(err, unix.EWOULDBLOCK) && !errors.Is(err, unix.EINTR) {
			_ = file.Close()
			return nil, fmt.Errorf("failed to lock %s: %w", path, err)
		}
		if time.Now().After(deadline) {
			holder, _ := os.ReadFile(path)
			_ = file.Close()
			if len(holder) > 0 {
				return nil, fmt.Errorf("%w (pid %s)", errLockTimeout, holder)
			}
			return nil, errLockTimeout
		}
		time.Sleep(50 * time.Millisecond)
	}

	_ = file.Truncate(0)
	_, _ = file.WriteAt([]byte(strconv.Itoa(os.Getpid())), 0)
	return &fileLock{path: path, file: file}, nil
}

// Release unlocks and closes the lock file. The file itself is left in place
// so a waiting process never locks an unlinked inode.
func (l *fileLock) Release() error {
	if l.file == nil {
		return nil
	}
	_ = l.file.Truncate(0)
	err := unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
	_ = l.file.Close()
	l.file = nil
	return err
}
