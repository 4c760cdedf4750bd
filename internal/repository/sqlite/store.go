// Package sqlite keeps the production tables in a single embedded SQLite
// database. Rows of every table share one entries table and are ordered by
// their insertion sequence.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/mamadbah2/shiftlog/internal/domain/models"
	"github.com/mamadbah2/shiftlog/internal/repository/records"
)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS entries (
	seq      INTEGER PRIMARY KEY AUTOINCREMENT,
	tbl      TEXT NOT NULL,
	entry_id TEXT NOT NULL,
	payload  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS entries_tbl_seq ON entries (tbl, seq);
`

// Store implements records.Store on SQLite.
type Store struct {
	db     *sql.DB
	path   string
	logger *zap.Logger
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

type entry struct {
	seq int64
	row records.Row
}

// NewStore opens (creating if needed) the database at path.
func NewStore(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if path == "" {
		path = "shiftlog.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection keeps read-modify-write sequences in this process ordered.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schemaDDL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create entries table: %w", err)
	}
	return &Store{db: db, path: path, logger: logger}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Append inserts row after the current last row of table.
func (s *Store) Append(ctx context.Context, table models.TableName, row records.Row) error {
	row = records.EnsureID(row)
	payload, err := json.Marshal(row.Values)
	if err != nil {
		return fmt.Errorf("encode row: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO entries (tbl, entry_id, payload) VALUES (?, ?, ?)`,
		string(table), row.ID, string(payload)); err != nil {
		return &records.StoreIOError{Op: "append", Table: table, Err: err}
	}
	return nil
}

// ReadAll returns the rows of table in insertion order. Query failures are
// logged and read as an empty table.
func (s *Store) ReadAll(ctx context.Context, table models.TableName) ([]records.Row, error) {
	entries, err := s.list(ctx, s.db, table)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		s.logger.Warn("table unreadable, treating as empty", zap.String("table", string(table)), zap.Error(err))
		return []records.Row{}, nil
	}
	rows := make([]records.Row, len(entries))
	for i, e := range entries {
		rows[i] = e.row
	}
	return rows, nil
}

// Remove deletes the row ref points at inside a single transaction.
func (s *Store) Remove(ctx context.Context, table models.TableName, ref records.RowRef) (retErr error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &records.StoreIOError{Op: "remove", Table: table, Err: err}
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	entries, err := s.list(ctx, tx, table)
	if err != nil {
		return &records.StoreIOError{Op: "remove", Table: table, Err: err}
	}
	rows := make([]records.Row, len(entries))
	for i, e := range entries {
		rows[i] = e.row
	}
	if err := records.CheckRef(table, rows, ref); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM entries WHERE seq = ?`, entries[ref.Index].seq); err != nil {
		return &records.StoreIOError{Op: "remove", Table: table, Err: err}
	}
	if err := tx.Commit(); err != nil {
		return &records.StoreIOError{Op: "remove", Table: table, Err: err}
	}
	return nil
}

func (s *Store) list(ctx context.Context, q queryer, table models.TableName) ([]entry, error) {
	rs, err := q.QueryContext(ctx,
		`SELECT seq, entry_id, payload FROM entries WHERE tbl = ? ORDER BY seq`, string(table))
	if err != nil {
		return nil, fmt.Errorf("select entries: %w", err)
	}
	defer func() { _ = rs.Close() }()

	var out []entry
	for rs.Next() {
		var (
			e       entry
			payload string
		)
		if err := rs.Scan(&e.seq, &e.row.ID, &payload); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.row.Values = map[string]string{}
		if err := json.Unmarshal([]byte(payload), &e.row.Values); err != nil {
			// Keep the row so positions stay aligned with Remove.
			s.logger.Debug("undecodable entry payload", zap.Int64("seq", e.seq), zap.Error(err))
			e.row.Values = map[string]string{}
		}
		out = append(out, e)
	}
	if err := rs.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return out, nil
}
