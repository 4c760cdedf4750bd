package reporting

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/shiftlog/internal/repository/records"
	"github.com/mamadbah2/shiftlog/internal/service/shift"
)

// ShiftSummary holds the measure totals of one (date, shift) pair.
type ShiftSummary struct {
	Date     string             `json:"date"`
	Shift    shift.Label        `json:"shift"`
	Entries  int                `json:"entries"`
	Measures map[string]float64 `json:"measures"`
}

// MonthlySummary holds the measure totals of one calendar month.
type MonthlySummary struct {
	Month    string             `json:"month"`
	Entries  int                `json:"entries"`
	Measures map[string]float64 `json:"measures"`
}

type bucket struct {
	date  string
	shift shift.Label
}

type totals struct {
	entries int
	sums    map[string]decimal.Decimal
}

func (t *totals) add(row records.Row, measures []string) {
	if t.sums == nil {
		t.sums = make(map[string]decimal.Decimal, len(measures))
		for _, m := range measures {
			t.sums[m] = decimal.Zero
		}
	}
	t.entries++
	for _, m := range measures {
		if v, ok := cellValue(row, m); ok {
			t.sums[m] = t.sums[m].Add(v)
		}
	}
}

func (t *totals) floats() map[string]float64 {
	out := make(map[string]float64, len(t.sums))
	for k, v := range t.sums {
		out[k] = v.InexactFloat64()
	}
	return out
}

// SummarizeByShift groups rows by (date, shift) and sums each measure column
// present in the rows. Rows without a usable date or shift are left out.
// The result is sorted by date then shift. It is empty for empty input or
// when no measure column is present.
func SummarizeByShift(rows []records.Row, measures []string, parser *shift.Parser) []ShiftSummary {
	present := presentMeasures(rows, measures)
	if len(present) == 0 {
		return []ShiftSummary{}
	}

	groups := map[bucket]*totals{}
	for _, row := range rows {
		k, ok := parser.KeyOf(row)
		if !ok || !k.HasShift {
			continue
		}
		key := bucket{date: k.Date, shift: k.Shift}
		t, ok := groups[key]
		if !ok {
			t = &totals{}
			groups[key] = t
		}
		t.add(row, present)
	}

	out := make([]ShiftSummary, 0, len(groups))
	for key, t := range groups {
		out = append(out, ShiftSummary{Date: key.date, Shift: key.shift, Entries: t.entries, Measures: t.floats()})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].Shift < out[j].Shift
	})
	return out
}

// SummarizeByMonth groups rows by calendar month and sums each measure column
// present in the rows. Rows without a usable date are left out.
func SummarizeByMonth(rows []records.Row, measures []string, parser *shift.Parser) []MonthlySummary {
	present := presentMeasures(rows, measures)
	if len(present) == 0 {
		return []MonthlySummary{}
	}

	groups := map[string]*totals{}
	for _, row := range rows {
		k, ok := parser.KeyOf(row)
		if !ok {
			continue
		}
		month, err := shift.MonthOf(k.Date)
		if err != nil {
			continue
		}
		t, ok := groups[month]
		if !ok {
			t = &totals{}
			groups[month] = t
		}
		t.add(row, present)
	}

	out := make([]MonthlySummary, 0, len(groups))
	for month, t := range groups {
		out = append(out, MonthlySummary{Month: month, Entries: t.entries, Measures: t.floats()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

// presentMeasures keeps the measures at least one row carries, in the given
// order.
func presentMeasures(rows []records.Row, measures []string) []string {
	var out []string
	for _, m := range measures {
		for _, row := range rows {
			if row.Has(m) {
				out = append(out, m)
				break
			}
		}
	}
	return out
}

// cellValue parses a numeric cell. Blank and non-numeric cells do not count.
func cellValue(row records.Row, column string) (decimal.Decimal, bool) {
	raw := strings.TrimSpace(row.Get(column))
	if raw == "" {
		return decimal.Zero, false
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, false
	}
	return v, true
}
