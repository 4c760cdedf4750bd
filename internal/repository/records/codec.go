package records

import (
	"github.com/mamadbah2/shiftlog/internal/domain/models"
)

// MergeHeader returns existing followed by any schema column it lacks. A nil
// existing header yields the schema header.
func MergeHeader(table models.TableName, existing []string) []string {
	schema, ok := models.SchemaFor(table)
	if !ok {
		return existing
	}
	want := schema.Header()
	if len(existing) == 0 {
		return want
	}
	seen := make(map[string]struct{}, len(existing))
	merged := make([]string, 0, len(existing)+len(want))
	for _, col := range existing {
		seen[col] = struct{}{}
		merged = append(merged, col)
	}
	for _, col := range want {
		if _, ok := seen[col]; !ok {
			merged = append(merged, col)
		}
	}
	return merged
}

// SameHeader reports whether a and b list the same columns in the same order.
func SameHeader(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Encode lays row out in header order.
func Encode(header []string, row Row) []string {
	out := make([]string, len(header))
	for i, col := range header {
		out[i] = row.Get(col)
	}
	return out
}

// Decode maps a record onto header. Short records leave trailing columns
// absent; extra cells are dropped.
func Decode(header []string, record []string) Row {
	row := Row{Values: make(map[string]string, len(header))}
	for i, col := range header {
		if i >= len(record) {
			break
		}
		if col == models.ColEntryID {
			row.ID = record[i]
			continue
		}
		row.Values[col] = record[i]
	}
	return row
}

// EnsureID assigns a surrogate identifier to rows written without one.
func EnsureID(row Row) Row {
	if row.ID == "" {
		row.ID = NewID()
	}
	if row.Values == nil {
		row.Values = map[string]string{}
	}
	return row
}
