// Package storage persists channel and video records as tabular datasets and
// merges each new batch into what is already on disk.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Sentinel errors for common storage conditions.
var (
	// ErrNotFound indicates the dataset does not exist yet.
	ErrNotFound = errors.New("storage: not found")
	// ErrStorageCorrupt indicates the dataset could not be parsed.
	ErrStorageCorrupt = errors.New("storage: data corruption detected")
	// ErrLockTimeout indicates a timeout acquiring the dataset lock.
	ErrLockTimeout = errors.New("storage: lock acquisition timeout")
	// ErrMissingKeyColumn indicates neither table carries the dedup key column.
	ErrMissingKeyColumn = errors.New("storage: missing key column")
	// ErrUnknownBackend indicates an unsupported storage backend name.
	ErrUnknownBackend = errors.New("storage: unknown backend")
)

// StorageError wraps storage errors with operation and dataset context.
// Use errors.As() to extract it:
//
//	var storErr *storage.StorageError
//	if errors.As(err, &storErr) {
//		fmt.Printf("%s on %s failed: %v\n", storErr.Op, storErr.Dataset, storErr.Err)
//	}
type StorageError struct {
	// Op is the operation that failed ("read", "write", "lock", "merge").
	Op string
	// Dataset is the dataset name or path.
	Dataset string
	// Err is the underlying error.
	Err error
}

// Error returns a string representation of the storage error.
func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s %s: %v", e.Op, e.Dataset, e.Err)
}

// Unwrap returns the underlying error for use with errors.Is() and errors.As().
func (e *StorageError) Unwrap() error { return e.Err }

// Dataset identifies one persisted table and its dedup key column.
type Dataset struct {
	// Name is the logical name, used as the table name by the SQLite backend.
	Name string
	// Path is the CSV file location.
	Path string
	// Key is the column that decides row identity during a merge.
	Key string
}

// ChannelDataset returns the channel dataset stored at path, keyed by name.
func ChannelDataset(path string) Dataset {
	return Dataset{Name: "channels", Path: path, Key: ChannelKey}
}

// VideoDataset returns the video dataset stored at path, keyed by title.
func VideoDataset(path string) Dataset {
	return Dataset{Name: "videos", Path: path, Key: VideoKey}
}

// Store loads datasets and merges new rows into them.
type Store interface {
	// Load returns the whole dataset, or ErrNotFound if it was never written.
	Load(ctx context.Context, ds Dataset) (Table, error)
	// Upsert appends incoming after the existing rows, keeps the last row
	// for every key and writes the result back.
	Upsert(ctx context.Context, ds Dataset, incoming Table) (MergeStats, error)
	// Close releases any resources held by the store.
	Close() error
}

// Backend names accepted by Open.
const (
	BackendCSV    = "csv"
	BackendSQLite = "sqlite"
)

// Options configures Open.
type Options struct {
	Backend     string
	SQLitePath  string
	LockTimeout time.Duration
}

// Open returns the store for opts.Backend.
func Open(opts Options, logger *zap.Logger) (Store, error) {
	switch opts.Backend {
	case "", BackendCSV:
		return NewCSVStore(opts.LockTimeout, logger), nil
	case BackendSQLite:
		return OpenSQLite(opts.SQLitePath, logger)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}
}
