package storage

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// DefaultLockTimeout bounds how long Upsert waits for another writer.
const DefaultLockTimeout = 5 * time.Second

// utf8BOM is skipped when a dataset was saved by a spreadsheet tool.
const utf8BOM = "\ufeff"

// CSVStore keeps each dataset in its own delimited text file with a header
// row. Every Upsert rewrites the whole file.
type CSVStore struct {
	lockTimeout time.Duration
	logger      *zap.Logger
}

// NewCSVStore creates a CSV-backed store. A zero lockTimeout means
// DefaultLockTimeout.
func NewCSVStore(lockTimeout time.Duration, logger *zap.Logger) *CSVStore {
	if lockTimeout <= 0 {
		lockTimeout = DefaultLockTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CSVStore{lockTimeout: lockTimeout, logger: logger}
}

// Load reads the dataset file.
func (s *CSVStore) Load(ctx context.Context, ds Dataset) (Table, error) {
	t, err := readCSV(ds.Path)
	if err != nil {
		return Table{}, &StorageError{Op: "read", Dataset: ds.Path, Err: err}
	}
	return t, nil
}

// Upsert merges incoming into the dataset file under the dataset lock and
// replaces the file atomically.
func (s *CSVStore) Upsert(ctx context.Context, ds Dataset, incoming Table) (MergeStats, error) {
	log := s.logger.With(zap.String("dataset", ds.Path), zap.String("key", ds.Key))

	if err := os.MkdirAll(filepath.Dir(ds.Path), 0o755); err != nil {
		return MergeStats{}, &StorageError{Op: "write", Dataset: ds.Path, Err: err}
	}

	lock := NewDatasetLock(ds.Path)
	if err := lock.Lock(ctx, s.lockTimeout); err != nil {
		return MergeStats{}, &StorageError{Op: "lock", Dataset: ds.Path, Err: err}
	}
	defer lock.Unlock()

	existing, err := readCSV(ds.Path)
	switch {
	case errors.Is(err, ErrNotFound):
		log.Debug("dataset does not exist yet, creating it")
	case err != nil:
		return MergeStats{}, &StorageError{Op: "read", Dataset: ds.Path, Err: err}
	default:
		log.Debug("loaded existing dataset", zap.Int("rows", existing.Len()))
	}

	merged, stats, err := Merge(existing, incoming, ds.Key)
	if err != nil {
		return MergeStats{}, &StorageError{Op: "merge", Dataset: ds.Path, Err: err}
	}

	if err := ctx.Err(); err != nil {
		return MergeStats{}, &StorageError{Op: "write", Dataset: ds.Path, Err: err}
	}
	if err := writeCSV(ds.Path, merged); err != nil {
		return MergeStats{}, &StorageError{Op: "write", Dataset: ds.Path, Err: err}
	}

	log.Info("dataset updated",
		zap.Int("added", stats.Added),
		zap.Int("replaced", stats.Replaced),
		zap.Int("rows", stats.Total),
	)
	return stats, nil
}

// Close is a no-op; files are opened per call.
func (s *CSVStore) Close() error { return nil }

func readCSV(path string) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Table{}, ErrNotFound
		}
		return Table{}, err
	}
	defer f.Close()

	br := bufio.NewReader(f)
	if head, err := br.Peek(len(utf8BOM)); err == nil && string(head) == utf8BOM {
		br.Discard(len(utf8BOM))
	}

	r := csv.NewReader(br)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err == io.EOF {
		return Table{}, nil
	}
	if err != nil {
		return Table{}, fmt.Errorf("%w: header: %v", ErrStorageCorrupt, err)
	}

	t := Table{Columns: header}
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Table{}, fmt.Errorf("%w: %v", ErrStorageCorrupt, err)
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func writeCSV(path string, t Table) error {
	return replaceFile(path, func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.Write(t.Columns); err != nil {
			return err
		}
		if err := cw.WriteAll(t.Rows); err != nil {
			return err
		}
		return cw.Error()
	})
}
