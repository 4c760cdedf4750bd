package records

import (
	"fmt"

	"github.com/mamadbah2/shiftlog/internal/domain/models"
)

// StoreIOError reports that the backing medium of a table could not be read
// or written.
type StoreIOError struct {
	Op    string
	Table models.TableName
	Err   error
}

func (e *StoreIOError) Error() string {
	return fmt.Sprintf("%s table %s: %v", e.Op, e.Table, e.Err)
}

func (e *StoreIOError) Unwrap() error { return e.Err }

// StaleRowError reports that a removal target no longer matches the table.
type StaleRowError struct {
	Table models.TableName
	Index int
	ID    string
	Found string
	Rows  int
}

func (e *StaleRowError) Error() string {
	if e.Index < 0 || e.Index >= e.Rows {
		return fmt.Sprintf("row %d of table %s is out of range (%d rows)", e.Index, e.Table, e.Rows)
	}
	return fmt.Sprintf("row %d of table %s changed: expected entry %s, found %q", e.Index, e.Table, e.ID, e.Found)
}
