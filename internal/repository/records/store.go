// Package records defines the tabular record store the production logs are
// kept in, together with the in-memory implementation used by tests and the
// helpers the file, SQLite and Sheets backends share.
package records

import (
	"context"

	"github.com/google/uuid"

	"github.com/mamadbah2/shiftlog/internal/domain/models"
)

// Store appends, reads and removes rows in named tables.
//
// ReadAll returns an empty slice, not an error, for a table that was never
// written. Row positions are only meaningful against the read they came from.
type Store interface {
	Append(ctx context.Context, table models.TableName, row Row) error
	ReadAll(ctx context.Context, table models.TableName) ([]Row, error)
	Remove(ctx context.Context, table models.TableName, ref RowRef) error
}

// Row is one record of a table keyed by column name.
type Row struct {
	ID     string
	Values map[string]string
}

// NewRow returns a row with a fresh surrogate identifier.
func NewRow(values map[string]string) Row {
	if values == nil {
		values = map[string]string{}
	}
	return Row{ID: NewID(), Values: values}
}

// NewID returns a new surrogate row identifier.
func NewID() string {
	return uuid.NewString()
}

// Get returns the cell for column, or "" when absent.
func (r Row) Get(column string) string {
	if column == models.ColEntryID {
		return r.ID
	}
	return r.Values[column]
}

// Has reports whether the row carries the column, even if blank.
func (r Row) Has(column string) bool {
	if column == models.ColEntryID {
		return r.ID != ""
	}
	_, ok := r.Values[column]
	return ok
}

// Clone deep copies the row.
func (r Row) Clone() Row {
	values := make(map[string]string, len(r.Values))
	for k, v := range r.Values {
		values[k] = v
	}
	return Row{ID: r.ID, Values: values}
}

// RowRef locates a row for removal: its index in a full ReadAll of the table
// and, when known, the Entry ID the caller saw at that index.
type RowRef struct {
	Index int    `json:"index"`
	ID    string `json:"id,omitempty"`
}

// CheckRef verifies ref against the current rows of table.
func CheckRef(table models.TableName, rows []Row, ref RowRef) error {
	if ref.Index < 0 || ref.Index >= len(rows) {
		return &StaleRowError{Table: table, Index: ref.Index, ID: ref.ID, Rows: len(rows)}
	}
	if ref.ID != "" && rows[ref.Index].ID != ref.ID {
		return &StaleRowError{Table: table, Index: ref.Index, ID: ref.ID, Rows: len(rows), Found: rows[ref.Index].ID}
	}
	return nil
}
