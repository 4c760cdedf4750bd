// Package reporting summarises the production tables: shift and monthly
// totals, the dashboard, closing shift reports and their file exports.
package reporting

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/shiftlog/internal/domain/models"
	"github.com/mamadbah2/shiftlog/internal/repository/records"
	"github.com/mamadbah2/shiftlog/internal/service/shift"
)

// Dashboard holds the all-time line totals.
type Dashboard struct {
	OutputBottles   float64          `json:"output_bottles"`
	OutputKg        float64          `json:"output_kg"`
	RejectionKg     float64          `json:"rejection_kg"`
	DowntimeEntries int              `json:"downtime_entries"`
	RawMaterialKg   float64          `json:"raw_material_kg"`
	MasterbatchKg   float64          `json:"masterbatch_kg"`
	Machines        []models.Machine `json:"machines"`
}

// Service exposes summaries over a record store.
type Service struct {
	store  records.Store
	roster *models.Roster
	parser *shift.Parser
	logger *zap.Logger
	now    func() time.Time
}

// NewService wires a new reporting service instance.
func NewService(store records.Store, roster *models.Roster, parser *shift.Parser, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, roster: roster, parser: parser, logger: logger, now: time.Now}
}

// ShiftSummary totals the measures of table per date and shift.
func (s *Service) ShiftSummary(ctx context.Context, table models.TableName) ([]ShiftSummary, error) {
	schema, rows, err := s.load(ctx, table)
	if err != nil {
		return nil, err
	}
	return SummarizeByShift(rows, schema.Measures, s.parser), nil
}

// MonthlySummary totals the measures of table per month.
func (s *Service) MonthlySummary(ctx context.Context, table models.TableName) ([]MonthlySummary, error) {
	schema, rows, err := s.load(ctx, table)
	if err != nil {
		return nil, err
	}
	return SummarizeByMonth(rows, schema.Measures, s.parser), nil
}

// Dashboard totals every row logged so far, dated or not.
func (s *Service) Dashboard(ctx context.Context) (Dashboard, error) {
	d := Dashboard{Machines: s.roster.Machines()}

	output, err := s.rows(ctx, models.TableOutput)
	if err != nil {
		return Dashboard{}, err
	}
	d.OutputBottles = columnTotal(output, models.ColOutputBottles).InexactFloat64()
	d.OutputKg = round2(columnTotal(output, models.ColOutputKg))

	rejection, err := s.rows(ctx, models.TableRejection)
	if err != nil {
		return Dashboard{}, err
	}
	d.RejectionKg = round2(columnTotal(rejection, models.ColRejectionKg))

	downtime, err := s.rows(ctx, models.TableDowntime)
	if err != nil {
		return Dashboard{}, err
	}
	d.DowntimeEntries = len(downtime)

	rawMaterial, err := s.rows(ctx, models.TableRawMaterial)
	if err != nil {
		return Dashboard{}, err
	}
	d.RawMaterialKg = round2(columnTotal(rawMaterial, models.ColKgUsed))

	masterbatch, err := s.rows(ctx, models.TableMasterbatch)
	if err != nil {
		return Dashboard{}, err
	}
	d.MasterbatchKg = round2(columnTotal(masterbatch, models.ColKgUsed))

	return d, nil
}

// ShiftReport gathers the totals of every table for the run of label that
// started on date. A run of B crosses midnight, so its report spans two
// calendar dates.
func (s *Service) ShiftReport(ctx context.Context, date string, label shift.Label) (models.ShiftReport, error) {
	w, err := s.parser.WindowOf(date, label)
	if err != nil {
		return models.ShiftReport{}, fmt.Errorf("report date %q: %w", date, err)
	}
	return s.ShiftReportWindow(ctx, w)
}

// ShiftReportWindow gathers the totals of every table for one shift run.
// Rows count when their shift is the run's shift and they were logged
// between its start and the next 08:00 or 20:00 changeover.
func (s *Service) ShiftReportWindow(ctx context.Context, w shift.Window) (models.ShiftReport, error) {
	month, err := shift.MonthOf(w.Date)
	if err != nil {
		return models.ShiftReport{}, fmt.Errorf("report date %q: %w", w.Date, err)
	}
	report := models.ShiftReport{
		Date:      w.Date,
		Shift:     string(w.Shift),
		Month:     month,
		Start:     w.Start,
		End:       w.End,
		CreatedAt: s.now().UTC(),
	}

	for _, table := range models.Tables {
		schema, rows, err := s.load(ctx, table)
		if err != nil {
			return models.ShiftReport{}, err
		}
		t := s.windowTotals(rows, schema.Measures, w)
		if t.entries == 0 {
			continue
		}

		m := t.floats()
		switch table {
		case models.TableOutput:
			report.OutputBottles = m[models.ColOutputBottles]
			report.OutputKg = m[models.ColOutputKg]
			report.TargetOutputKg = m[models.ColTargetOutputKg]
		case models.TableRawMaterial:
			report.RawMaterialKg = m[models.ColKgUsed]
		case models.TableMasterbatch:
			report.MasterbatchKg = m[models.ColKgUsed]
		case models.TableBottleColour:
			report.ColourBatches = m[models.ColBatchCount]
		case models.TableRejection:
			report.RejectionBottles = m[models.ColRejectionBottles]
			report.RejectionKg = m[models.ColRejectionKg]
		case models.TableDowntime:
			report.DowntimeMinutes = m[models.ColDowntimeMinutes]
			report.DowntimeEntries = t.entries
		}
	}

	report.RejectionRate = rejectionRate(report.OutputBottles, report.RejectionBottles)
	return report, nil
}

// LastClosedShift returns the shift run that ended most recently, as seen
// from the current plant time.
func (s *Service) LastClosedShift() shift.Window {
	return s.parser.LastClosed(s.parser.Now(s.now))
}

func (s *Service) windowTotals(rows []records.Row, measures []string, w shift.Window) *totals {
	t := &totals{}
	present := presentMeasures(rows, measures)
	for _, row := range rows {
		k, ok := s.parser.KeyOf(row)
		if !ok || !k.HasShift || k.Shift != w.Shift || k.Run() != w.Date {
			continue
		}
		t.add(row, present)
	}
	return t
}

func (s *Service) load(ctx context.Context, table models.TableName) (models.Schema, []records.Row, error) {
	schema, ok := models.SchemaFor(table)
	if !ok {
		return models.Schema{}, nil, fmt.Errorf("%w %q", models.ErrUnknownTable, table)
	}
	rows, err := s.rows(ctx, table)
	if err != nil {
		return models.Schema{}, nil, err
	}
	return schema, rows, nil
}

func (s *Service) rows(ctx context.Context, table models.TableName) ([]records.Row, error) {
	rows, err := s.store.ReadAll(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("load %s rows: %w", table, err)
	}
	s.logger.Debug("table loaded", zap.String("table", string(table)), zap.Int("rows", len(rows)))
	return rows, nil
}

func columnTotal(rows []records.Row, column string) decimal.Decimal {
	total := decimal.Zero
	for _, row := range rows {
		if v, ok := cellValue(row, column); ok {
			total = total.Add(v)
		}
	}
	return total
}

func round2(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

// rejectionRate is the share of blown bottles that were rejected, in percent.
func rejectionRate(good, rejected float64) float64 {
	blown := decimal.NewFromFloat(good).Add(decimal.NewFromFloat(rejected))
	if blown.IsZero() {
		return 0
	}
	return round2(decimal.NewFromFloat(rejected).Mul(decimal.NewFromInt(100)).Div(blown))
}
