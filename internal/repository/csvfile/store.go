// Package csvfile stores each production table as a comma separated file
// with a header row, one file per table under a data directory.
//
// Writers inside one process are serialised. Separate processes sharing the
// directory are not coordinated: a rewrite by one discards concurrent
// appends by another.
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/mamadbah2/shiftlog/internal/domain/models"
	"github.com/mamadbah2/shiftlog/internal/repository/records"
)

const utf8BOM = "\ufeff"

// Store implements records.Store on the local filesystem.
type Store struct {
	dir    string
	mu     sync.Mutex
	logger *zap.Logger
}

// New returns a store rooted at dir, creating the directory if needed.
func New(dir string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dir == "" {
		dir = "./data"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir %s: %w", dir, err)
	}
	return &Store{dir: dir, logger: logger}, nil
}

// Path returns the file backing table.
func (s *Store) Path(table models.TableName) string {
	return filepath.Join(s.dir, string(table)+".csv")
}

// ReadAll returns the rows of table. Missing files read as empty; unreadable
// or malformed files are logged and also read as empty.
func (s *Store) ReadAll(ctx context.Context, table models.TableName) ([]records.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	_, rows, err := s.load(table)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("table unreadable, treating as empty", zap.String("table", string(table)), zap.Error(err))
		}
		return []records.Row{}, nil
	}
	return rows, nil
}

// Append writes row at the end of table. When the file header already holds
// every column the row is appended in place; otherwise the table is rewritten
// under a merged header.
func (s *Store) Append(ctx context.Context, table models.TableName, row records.Row) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	header, rows, err := s.load(table)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &records.StoreIOError{Op: "append", Table: table, Err: err}
	}

	row = records.EnsureID(row)
	merged := withExtraColumns(records.MergeHeader(table, header), row)

	if len(header) > 0 && records.SameHeader(header, merged) {
		if err := s.appendRecord(table, records.Encode(merged, row)); err != nil {
			return &records.StoreIOError{Op: "append", Table: table, Err: err}
		}
		return nil
	}

	if err := s.rewrite(table, merged, append(rows, row)); err != nil {
		return &records.StoreIOError{Op: "append", Table: table, Err: err}
	}
	s.logger.Debug("table header written", zap.String("table", string(table)), zap.Strings("header", merged))
	return nil
}

// Remove deletes the row ref points at and rewrites the table.
func (s *Store) Remove(ctx context.Context, table models.TableName, ref records.RowRef) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	header, rows, err := s.load(table)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &records.StoreIOError{Op: "remove", Table: table, Err: err}
	}
	if err := records.CheckRef(table, rows, ref); err != nil {
		return err
	}

	kept := make([]records.Row, 0, len(rows)-1)
	kept = append(kept, rows[:ref.Index]...)
	kept = append(kept, rows[ref.Index+1:]...)

	if err := s.rewrite(table, header, kept); err != nil {
		return &records.StoreIOError{Op: "remove", Table: table, Err: err}
	}
	return nil
}

func (s *Store) load(table models.TableName) ([]string, []records.Row, error) {
	f, err := os.Open(s.Path(table))
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = f.Close() }()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	all, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("parse %s: %w", s.Path(table), err)
	}
	if len(all) == 0 {
		return nil, []records.Row{}, nil
	}

	header := all[0]
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}
	rows := make([]records.Row, 0, len(all)-1)
	for _, rec := range all[1:] {
		rows = append(rows, records.Decode(header, rec))
	}
	return header, rows, nil
}

func (s *Store) appendRecord(table models.TableName, record []string) error {
	f, err := os.OpenFile(s.Path(table), os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	// Files saved by spreadsheet tools may lack the final line break.
	if err := terminateLastLine(f); err != nil {
		_ = f.Close()
		return err
	}
	w := csv.NewWriter(f)
	if err := w.Write(record); err != nil {
		_ = f.Close()
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func terminateLastLine(f *os.File) error {
	info, err := f.Stat()
	if err != nil {
		return err
	}
	if info.Size() == 0 {
		return nil
	}
	last := make([]byte, 1)
	if _, err := f.ReadAt(last, info.Size()-1); err != nil {
		return err
	}
	if last[0] == '\n' {
		return nil
	}
	_, err = f.Write([]byte("\n"))
	return err
}

func (s *Store) rewrite(table models.TableName, header []string, rows []records.Row) (retErr error) {
	if len(header) == 0 {
		header = records.MergeHeader(table, nil)
	}
	tmp, err := os.CreateTemp(s.dir, string(table)+"-*.csv.tmp")
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	w := csv.NewWriter(tmp)
	if err := w.Write(header); err != nil {
		return err
	}
	for _, row := range rows {
		if err := w.Write(records.Encode(header, row)); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.Path(table))
}

// withExtraColumns appends, in sorted order, any column the row carries that
// the header does not.
func withExtraColumns(header []string, row records.Row) []string {
	known := make(map[string]struct{}, len(header))
	for _, col := range header {
		known[col] = struct{}{}
	}
	var extra []string
	for col := range row.Values {
		if _, ok := known[col]; !ok {
			extra = append(extra, col)
		}
	}
	if len(extra) == 0 {
		return header
	}
	sort.Strings(extra)
	return append(append([]string{}, header...), extra...)
}
