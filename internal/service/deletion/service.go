// Package deletion locates a single erroneous row by narrowing a table on
// date, shift and machine, and removes it.
package deletion

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/mamadbah2/shiftlog/internal/domain/models"
	"github.com/mamadbah2/shiftlog/internal/metrics"
	"github.com/mamadbah2/shiftlog/internal/repository/records"
	"github.com/mamadbah2/shiftlog/internal/service/shift"
)

// Candidate is a row that survived narrowing. Index points into the full,
// unfiltered read of the table.
type Candidate struct {
	Index  int               `json:"index"`
	ID     string            `json:"id"`
	Values map[string]string `json:"values"`
}

// Ref is the removal target of the candidate.
func (c Candidate) Ref() records.RowRef {
	return records.RowRef{Index: c.Index, ID: c.ID}
}

// Filter is a narrowing selection. Empty fields are not applied.
type Filter struct {
	Date    string
	Shift   shift.Label
	Machine string
}

// Service narrows and deletes rows of one table at a time.
type Service struct {
	store   records.Store
	parser  *shift.Parser
	metrics metrics.Recorder
	logger  *zap.Logger
}

// NewService wires a deletion service over store.
func NewService(store records.Store, parser *shift.Parser, rec metrics.Recorder, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &Service{store: store, parser: parser, metrics: rec, logger: logger}
}

// Rows returns every row of table as candidates, in table order.
func (s *Service) Rows(ctx context.Context, table models.TableName) ([]Candidate, error) {
	rows, err := s.read(ctx, table)
	if err != nil {
		return nil, err
	}
	return Narrow(rows, Filter{}, s.parser), nil
}

// Dates lists the distinct dates present in table, oldest first.
func (s *Service) Dates(ctx context.Context, table models.TableName) ([]string, error) {
	rows, err := s.read(ctx, table)
	if err != nil {
		return nil, err
	}
	return Dates(rows, s.parser), nil
}

// Machines lists the distinct machines among the rows of table logged on
// date during label.
func (s *Service) Machines(ctx context.Context, table models.TableName, date string, label shift.Label) ([]string, error) {
	rows, err := s.read(ctx, table)
	if err != nil {
		return nil, err
	}
	return Machines(rows, Filter{Date: date, Shift: label}, s.parser), nil
}

// Candidates returns the rows matching filter. An empty result means there
// are no entries to delete.
func (s *Service) Candidates(ctx context.Context, table models.TableName, filter Filter) ([]Candidate, error) {
	rows, err := s.read(ctx, table)
	if err != nil {
		return nil, err
	}
	return Narrow(rows, filter, s.parser), nil
}

// Delete removes the row ref points at. It fails with *records.StaleRowError
// when the table changed since the caller read it.
func (s *Service) Delete(ctx context.Context, table models.TableName, ref records.RowRef) error {
	if _, ok := models.SchemaFor(table); !ok {
		s.metrics.Deletion(metrics.ResultNotFound)
		return fmt.Errorf("%w %q", models.ErrUnknownTable, table)
	}

	err := s.store.Remove(ctx, table, ref)
	var stale *records.StaleRowError
	switch {
	case err == nil:
		s.metrics.Deletion(metrics.ResultOK)
		s.logger.Info("row deleted", zap.String("table", string(table)), zap.Int("index", ref.Index), zap.String("entry_id", ref.ID))
		return nil
	case errors.As(err, &stale):
		s.metrics.Deletion(metrics.ResultStale)
		s.logger.Warn("stale delete refused", zap.String("table", string(table)), zap.Int("index", ref.Index), zap.Error(err))
		return err
	default:
		s.metrics.Deletion(metrics.ResultFailed)
		return fmt.Errorf("delete from %s: %w", table, err)
	}
}

func (s *Service) read(ctx context.Context, table models.TableName) ([]records.Row, error) {
	if _, ok := models.SchemaFor(table); !ok {
		return nil, fmt.Errorf("%w %q", models.ErrUnknownTable, table)
	}
	rows, err := s.store.ReadAll(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("load %s rows: %w", table, err)
	}
	return rows, nil
}

// Dates returns the distinct dates of rows in ascending order. Rows without a
// readable date are skipped.
func Dates(rows []records.Row, parser *shift.Parser) []string {
	seen := map[string]struct{}{}
	for _, row := range rows {
		if k, ok := parser.KeyOf(row); ok {
			seen[k.Date] = struct{}{}
		}
	}
	return sortedKeys(seen)
}

// Machines returns the distinct machines of the rows matching the date and
// shift of filter, in ascending order.
func Machines(rows []records.Row, filter Filter, parser *shift.Parser) []string {
	filter.Machine = ""
	seen := map[string]struct{}{}
	for _, c := range Narrow(rows, filter, parser) {
		if m := strings.TrimSpace(c.Values[models.ColMachine]); m != "" {
			seen[m] = struct{}{}
		}
	}
	return sortedKeys(seen)
}

// Narrow keeps the rows matching every non-empty field of filter. Each
// candidate keeps its position in rows.
func Narrow(rows []records.Row, filter Filter, parser *shift.Parser) []Candidate {
	out := []Candidate{}
	for i, row := range rows {
		if !matches(row, filter, parser) {
			continue
		}
		values := row.Clone().Values
		out = append(out, Candidate{Index: i, ID: row.ID, Values: values})
	}
	return out
}

func matches(row records.Row, filter Filter, parser *shift.Parser) bool {
	if filter == (Filter{}) {
		return true
	}
	k, ok := parser.KeyOf(row)
	if filter.Date != "" && (!ok || k.Date != filter.Date) {
		return false
	}
	if filter.Shift != "" && (!ok || k.Shift != filter.Shift) {
		return false
	}
	if filter.Machine != "" && strings.TrimSpace(row.Get(models.ColMachine)) != filter.Machine {
		return false
	}
	return true
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
