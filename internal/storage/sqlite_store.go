package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

var tableNameRegex = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// SQLiteStore keeps every dataset as a table in one SQLite database. Rows are
// ordered by insertion sequence and indexed by key, so an upsert touches only
// the incoming keys instead of rewriting the whole dataset.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *zap.Logger
}

// OpenSQLite opens or creates the database at path.
func OpenSQLite(path string, logger *zap.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if path == "" {
		return nil, fmt.Errorf("sqlite path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure sqlite directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS dataset_columns (
		dataset  TEXT    NOT NULL,
		position INTEGER NOT NULL,
		name     TEXT    NOT NULL,
		PRIMARY KEY (dataset, position)
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &SQLiteStore{db: db, path: path, logger: logger}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Load returns the dataset rows in insertion order.
func (s *SQLiteStore) Load(ctx context.Context, ds Dataset) (Table, error) {
	if !tableNameRegex.MatchString(ds.Name) {
		return Table{}, &StorageError{Op: "read", Dataset: ds.Name, Err: fmt.Errorf("invalid dataset name %q", ds.Name)}
	}
	t, err := loadTable(ctx, s.db, ds.Name)
	if err != nil {
		return Table{}, &StorageError{Op: "read", Dataset: ds.Name, Err: err}
	}
	return t, nil
}

// Upsert deletes every row sharing an incoming key and appends the incoming
// rows, all in one transaction. Within the batch the last row for a key wins.
func (s *SQLiteStore) Upsert(ctx context.Context, ds Dataset, incoming Table) (MergeStats, error) {
	if !tableNameRegex.MatchString(ds.Name) {
		return MergeStats{}, &StorageError{Op: "write", Dataset: ds.Name, Err: fmt.Errorf("invalid dataset name %q", ds.Name)}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return MergeStats{}, &StorageError{Op: "write", Dataset: ds.Name, Err: err}
	}
	defer tx.Rollback()

	stats, err := upsertRows(ctx, tx, ds, incoming)
	if err != nil {
		return MergeStats{}, &StorageError{Op: "write", Dataset: ds.Name, Err: err}
	}
	if err := tx.Commit(); err != nil {
		return MergeStats{}, &StorageError{Op: "write", Dataset: ds.Name, Err: err}
	}

	s.logger.Info("dataset updated",
		zap.String("dataset", ds.Name),
		zap.String("db", s.path),
		zap.Int("added", stats.Added),
		zap.Int("replaced", stats.Replaced),
		zap.Int("rows", stats.Total),
	)
	return stats, nil
}

func upsertRows(ctx context.Context, tx *sql.Tx, ds Dataset, incoming Table) (MergeStats, error) {
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %q (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		key TEXT NOT NULL UNIQUE,
		row TEXT NOT NULL
	)`, ds.Name)); err != nil {
		return MergeStats{}, fmt.Errorf("create table: %w", err)
	}

	existingCols, err := loadColumns(ctx, tx, ds.Name)
	if err != nil {
		return MergeStats{}, err
	}
	columns := unionColumns(existingCols, incoming.Columns)
	if (Table{Columns: columns}).ColumnIndex(ds.Key) < 0 {
		return MergeStats{}, ErrMissingKeyColumn
	}
	if len(columns) != len(existingCols) {
		if err := saveColumns(ctx, tx, ds.Name, columns); err != nil {
			return MergeStats{}, err
		}
	}

	stats := MergeStats{Incoming: incoming.Len()}
	if err := tx.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %q`, ds.Name)).Scan(&stats.Existing); err != nil {
		return MergeStats{}, fmt.Errorf("count rows: %w", err)
	}

	keyIdx := incoming.ColumnIndex(ds.Key)
	counted := make(map[string]bool, incoming.Len())
	for _, row := range incoming.Rows {
		values := make(map[string]string, len(incoming.Columns))
		for i, c := range incoming.Columns {
			if i < len(row) {
				values[c] = row[i]
			}
		}
		key := ""
		if keyIdx >= 0 && keyIdx < len(row) {
			key = row[keyIdx]
		}
		encoded, err := json.Marshal(values)
		if err != nil {
			return MergeStats{}, fmt.Errorf("encode row: %w", err)
		}

		res, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %q WHERE key = ?`, ds.Name), key)
		if err != nil {
			return MergeStats{}, fmt.Errorf("delete %q: %w", key, err)
		}
		if !counted[key] {
			counted[key] = true
			if n, _ := res.RowsAffected(); n > 0 {
				stats.Replaced++
			} else {
				stats.Added++
			}
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`INSERT INTO %q (key, row) VALUES (?, ?)`, ds.Name), key, string(encoded)); err != nil {
			return MergeStats{}, fmt.Errorf("insert %q: %w", key, err)
		}
	}

	if err := tx.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %q`, ds.Name)).Scan(&stats.Total); err != nil {
		return MergeStats{}, fmt.Errorf("count rows: %w", err)
	}
	return stats, nil
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func loadColumns(ctx context.Context, q querier, dataset string) ([]string, error) {
	rows, err := q.QueryContext(ctx, `SELECT name FROM dataset_columns WHERE dataset = ? ORDER BY position`, dataset)
	if err != nil {
		return nil, fmt.Errorf("load columns: %w", err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		cols = append(cols, name)
	}
	return cols, rows.Err()
}

func saveColumns(ctx context.Context, tx *sql.Tx, dataset string, columns []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM dataset_columns WHERE dataset = ?`, dataset); err != nil {
		return fmt.Errorf("reset columns: %w", err)
	}
	for i, c := range columns {
		if _, err := tx.ExecContext(ctx, `INSERT INTO dataset_columns (dataset, position, name) VALUES (?, ?, ?)`, dataset, i, c); err != nil {
			return fmt.Errorf("save column %q: %w", c, err)
		}
	}
	return nil
}

func loadTable(ctx context.Context, q querier, dataset string) (Table, error) {
	columns, err := loadColumns(ctx, q, dataset)
	if err != nil {
		return Table{}, err
	}
	if len(columns) == 0 {
		return Table{}, ErrNotFound
	}

	rows, err := q.QueryContext(ctx, fmt.Sprintf(`SELECT row FROM %q ORDER BY seq`, dataset))
	if err != nil {
		return Table{}, fmt.Errorf("load rows: %w", err)
	}
	defer rows.Close()

	t := Table{Columns: columns}
	for rows.Next() {
		var encoded string
		if err := rows.Scan(&encoded); err != nil {
			return Table{}, fmt.Errorf("scan row: %w", err)
		}
		values := map[string]string{}
		if err := json.Unmarshal([]byte(encoded), &values); err != nil {
			return Table{}, fmt.Errorf("%w: %v", ErrStorageCorrupt, err)
		}
		cells := make([]string, len(columns))
		for i, c := range columns {
			cells[i] = values[c]
		}
		t.Rows = append(t.Rows, cells)
	}
	return t, rows.Err()
}
