package reporting

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/mamadbah2/shiftlog/internal/domain/models"
)

const (
	shiftSheet   = "Shift"
	monthlySheet = "Monthly"
)

// ShiftCSVName is the download name of the shift summary of table.
func ShiftCSVName(table models.TableName) string {
	return fmt.Sprintf("shift_%s.csv", table)
}

// MonthlyCSVName is the download name of the monthly summary of table.
func MonthlyCSVName(table models.TableName) string {
	return fmt.Sprintf("monthly_%s.csv", table)
}

// WorkbookName is the download name of the summary workbook of table.
func WorkbookName(table models.TableName) string {
	return fmt.Sprintf("summary_%s.xlsx", table)
}

// WriteShiftCSV renders shift summaries as Date, Shift and one column per
// measure.
func WriteShiftCSV(w io.Writer, measures []string, summaries []ShiftSummary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{models.ColLegacyDate, models.ColShift}, measures...)); err != nil {
		return err
	}
	for _, sum := range summaries {
		record := []string{sum.Date, string(sum.Shift)}
		for _, m := range measures {
			record = append(record, formatMeasure(sum.Measures, m))
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteMonthlyCSV renders monthly summaries as Month and one column per
// measure.
func WriteMonthlyCSV(w io.Writer, measures []string, summaries []MonthlySummary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{"Month"}, measures...)); err != nil {
		return err
	}
	for _, sum := range summaries {
		record := []string{sum.Month}
		for _, m := range measures {
			record = append(record, formatMeasure(sum.Measures, m))
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportShiftCSV writes the shift summary of table to w.
func (s *Service) ExportShiftCSV(ctx context.Context, table models.TableName, w io.Writer) error {
	summaries, err := s.ShiftSummary(ctx, table)
	if err != nil {
		return err
	}
	measures := exportedMeasures(models.MustSchema(table), shiftMeasureSets(summaries))
	return WriteShiftCSV(w, measures, summaries)
}

// ExportMonthlyCSV writes the monthly summary of table to w.
func (s *Service) ExportMonthlyCSV(ctx context.Context, table models.TableName, w io.Writer) error {
	summaries, err := s.MonthlySummary(ctx, table)
	if err != nil {
		return err
	}
	measures := exportedMeasures(models.MustSchema(table), monthlyMeasureSets(summaries))
	return WriteMonthlyCSV(w, measures, summaries)
}

// ExportWorkbook writes both summaries of table as sheets of one workbook.
func (s *Service) ExportWorkbook(ctx context.Context, table models.TableName, w io.Writer) error {
	shifts, err := s.ShiftSummary(ctx, table)
	if err != nil {
		return err
	}
	months, err := s.MonthlySummary(ctx, table)
	if err != nil {
		return err
	}
	schema := models.MustSchema(table)

	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); cerr != nil {
			s.logger.Warn("close workbook", zap.Error(cerr))
		}
	}()

	if err := f.SetSheetName("Sheet1", shiftSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	measures := exportedMeasures(schema, shiftMeasureSets(shifts))
	rows := [][]any{headerRow(append([]string{models.ColLegacyDate, models.ColShift}, measures...))}
	for _, sum := range shifts {
		row := []any{sum.Date, string(sum.Shift)}
		for _, m := range measures {
			row = append(row, sum.Measures[m])
		}
		rows = append(rows, row)
	}
	if err := writeSheet(f, shiftSheet, rows); err != nil {
		return err
	}

	if _, err := f.NewSheet(monthlySheet); err != nil {
		return fmt.Errorf("add sheet: %w", err)
	}
	measures = exportedMeasures(schema, monthlyMeasureSets(months))
	rows = [][]any{headerRow(append([]string{"Month"}, measures...))}
	for _, sum := range months {
		row := []any{sum.Month}
		for _, m := range measures {
			row = append(row, sum.Measures[m])
		}
		rows = append(rows, row)
	}
	if err := writeSheet(f, monthlySheet, rows); err != nil {
		return err
	}

	return f.Write(w)
}

// ExportAll writes the CSV summaries of every table into dir, plus a
// workbook per table when withWorkbook is set. It returns the written paths.
func (s *Service) ExportAll(ctx context.Context, dir string, withWorkbook bool) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}

	type export struct {
		name  string
		write func(io.Writer) error
	}

	var written []string
	for _, table := range models.Tables {
		table := table
		exports := []export{
			{ShiftCSVName(table), func(w io.Writer) error { return s.ExportShiftCSV(ctx, table, w) }},
			{MonthlyCSVName(table), func(w io.Writer) error { return s.ExportMonthlyCSV(ctx, table, w) }},
		}
		if withWorkbook {
			exports = append(exports, export{WorkbookName(table), func(w io.Writer) error { return s.ExportWorkbook(ctx, table, w) }})
		}
		for _, e := range exports {
			path := filepath.Join(dir, e.name)
			if err := writeFile(path, e.write); err != nil {
				return written, err
			}
			written = append(written, path)
		}
	}
	s.logger.Info("summaries exported", zap.String("dir", dir), zap.Int("files", len(written)))
	return written, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func writeSheet(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func headerRow(names []string) []any {
	out := make([]any, len(names))
	for i, n := range names {
		out[i] = n
	}
	return out
}

// exportedMeasures keeps the schema measures the summaries carry. With no
// summaries every schema measure is listed so the header stays stable.
func exportedMeasures(schema models.Schema, sets []map[string]float64) []string {
	if len(sets) == 0 {
		return schema.Measures
	}
	var out []string
	for _, m := range schema.Measures {
		if _, ok := sets[0][m]; ok {
			out = append(out, m)
		}
	}
	return out
}

func shiftMeasureSets(summaries []ShiftSummary) []map[string]float64 {
	out := make([]map[string]float64, len(summaries))
	for i, s := range summaries {
		out[i] = s.Measures
	}
	return out
}

func monthlyMeasureSets(summaries []MonthlySummary) []map[string]float64 {
	out := make([]map[string]float64, len(summaries))
	for i, s := range summaries {
		out[i] = s.Measures
	}
	return out
}

func formatMeasure(measures map[string]float64, name string) string {
	v, ok := measures[name]
	if !ok {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
