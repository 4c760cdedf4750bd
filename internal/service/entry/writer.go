package entry

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/shiftlog/internal/domain/models"
	"github.com/mamadbah2/shiftlog/internal/metrics"
	"github.com/mamadbah2/shiftlog/internal/repository/records"
	"github.com/mamadbah2/shiftlog/internal/service/shift"
)

// Event is the key shared by every row written for one submission.
type Event struct {
	Timestamp      time.Time
	Classification shift.Classification
	Machine        string
}

// TableResult is the outcome of writing one table.
type TableResult struct {
	Table   models.TableName `json:"table"`
	EntryID string           `json:"entry_id,omitempty"`
	Error   string           `json:"error,omitempty"`
}

// OK reports whether the row was written.
func (r TableResult) OK() bool {
	return r.Error == ""
}

// CommitReport lists the per table outcomes in write order.
type CommitReport struct {
	Results []TableResult `json:"tables"`
}

// Failed returns the tables that were not written.
func (c CommitReport) Failed() []models.TableName {
	var out []models.TableName
	for _, r := range c.Results {
		if !r.OK() {
			out = append(out, r.Table)
		}
	}
	return out
}

// Writer fans one event out into its per concern tables.
type Writer struct {
	store   records.Store
	parser  *shift.Parser
	metrics metrics.Recorder
	logger  *zap.Logger
}

// NewWriter constructs a fan-out writer over store.
func NewWriter(store records.Store, parser *shift.Parser, rec metrics.Recorder, logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &Writer{store: store, parser: parser, metrics: rec, logger: logger}
}

// Commit appends one row per table. Tables are written one after another in
// canonical order; a failure is logged and reported but does not stop the
// remaining tables, and rows already written stay written.
func (w *Writer) Commit(ctx context.Context, event Event, fields models.FieldSet, tables []models.TableName) CommitReport {
	ordered, _ := orderedTables(tables)
	report := CommitReport{Results: make([]TableResult, 0, len(ordered))}

	// Once started the fan-out runs to the end; cancellation only applies
	// before the first write.
	writeCtx := context.WithoutCancel(ctx)

	for _, table := range ordered {
		row := w.BuildRow(table, event, fields)
		result := TableResult{Table: table, EntryID: row.ID}

		if err := w.store.Append(writeCtx, table, row); err != nil {
			result.EntryID = ""
			result.Error = err.Error()
			w.metrics.TableWrite(string(table), metrics.ResultFailed)
			w.logger.Error("table write failed",
				zap.String("table", string(table)),
				zap.String("machine", event.Machine),
				zap.String("timestamp", w.parser.Format(event.Timestamp)),
				zap.Error(err))
		} else {
			w.metrics.TableWrite(string(table), metrics.ResultOK)
			w.logger.Debug("table row written", zap.String("table", string(table)), zap.String("entry_id", row.ID))
		}
		report.Results = append(report.Results, result)
	}
	return report
}

// BuildRow lays out the row of table for event. Every schema column is
// present; fields the form did not send are left blank.
func (w *Writer) BuildRow(table models.TableName, event Event, fields models.FieldSet) records.Row {
	values := map[string]string{
		models.ColDateTime:    w.parser.Format(event.Timestamp),
		models.ColShift:       string(event.Classification.Shift),
		models.ColShiftSource: string(event.Classification.Source),
		models.ColMachine:     event.Machine,
	}
	for _, col := range models.MustSchema(table).Columns {
		values[col.Name] = cell(fields, col)
	}
	return records.NewRow(values)
}

func cell(fields models.FieldSet, col models.Column) string {
	switch col.Kind {
	case models.KindNumber:
		if n, ok := fields.Number(col.Field); ok {
			return strconv.FormatFloat(n, 'f', -1, 64)
		}
		return ""
	default:
		text, _ := fields.Text(col.Field)
		return text
	}
}
