package storage

import (
	"context"
	"errors"
	"time"

	"github.com/gofrs/flock"
)

const lockRetryDelay = 10 * time.Millisecond

// DatasetLock is an advisory lock on path + ".lock" that serializes the
// read-merge-write cycle of concurrent runs against the same dataset.
type DatasetLock struct {
	lock *flock.Flock
}

// NewDatasetLock creates a lock for the dataset at path. The lock is not
// acquired until Lock is called.
func NewDatasetLock(path string) *DatasetLock {
	return &DatasetLock{lock: flock.New(path + ".lock")}
}

// Lock acquires the lock exclusively, waiting at most timeout.
func (l *DatasetLock) Lock(ctx context.Context, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	ok, err := l.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrLockTimeout
		}
		return err
	}
	if !ok {
		return ErrLockTimeout
	}
	return nil
}

// Unlock releases the lock. The lock file is left in place so that a
// waiting process never locks an unlinked inode.
func (l *DatasetLock) Unlock() error {
	return l.lock.Unlock()
}

// Path returns the lock file location.
func (l *DatasetLock) Path() string {
	return l.lock.Path()
}
