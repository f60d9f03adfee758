//go:build !unix

package main

import "time"

// fileLock is a no-op where flock is unavailable; the in-process repository
// locks still serialize writers within one server.
type fileLock struct{}

func acquireFileLock(string, time.Duration) (*fileLock, error) {
	return &fileLock{}, nil
}

func (l *fileLock) Release() error {
	return nil
}
