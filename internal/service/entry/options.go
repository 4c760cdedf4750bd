package entry

import (
	"github.com/mamadbah2/shiftlog/internal/domain/models"
	"github.com/mamadbah2/shiftlog/internal/service/shift"
)

// FieldOption describes one input of a table form.
type FieldOption struct {
	Column   string       `json:"column"`
	Field    models.Field `json:"field"`
	Numeric  bool         `json:"numeric"`
	Required bool         `json:"required"`
	Choices  []string     `json:"choices,omitempty"`
}

// TableOption describes the form of one table.
type TableOption struct {
	Table   models.TableName `json:"table"`
	Title   string           `json:"title"`
	Version int              `json:"version"`
	Fields  []FieldOption    `json:"fields"`
}

// Options is everything a form renderer needs to draw the entry forms.
type Options struct {
	Machines   []models.Machine `json:"machines"`
	Shifts     []shift.Label    `json:"shifts"`
	ShiftModes []ShiftMode      `json:"shift_modes"`
	Tables     []TableOption    `json:"tables"`
}

// Options lists the machines, shifts and per table fields, tables in
// canonical order.
func (s *Service) Options() Options {
	out := Options{
		Machines:   s.roster.Machines(),
		Shifts:     shift.Labels,
		ShiftModes: []ShiftMode{ShiftAuto, ShiftManual},
		Tables:     make([]TableOption, 0, len(models.Tables)),
	}
	for _, table := range models.Tables {
		out.Tables = append(out.Tables, TableOptionOf(models.MustSchema(table)))
	}
	return out
}

// TableOptionOf describes the form of schema.
func TableOptionOf(schema models.Schema) TableOption {
	t := TableOption{
		Table:   schema.Table,
		Title:   schema.Title,
		Version: schema.Version,
		Fields:  make([]FieldOption, 0, len(schema.Columns)),
	}
	for _, col := range schema.Columns {
		t.Fields = append(t.Fields, FieldOption{
			Column:   col.Name,
			Field:    col.Field,
			Numeric:  col.Kind == models.KindNumber,
			Required: col.Required(),
			Choices:  col.Choices,
		})
	}
	return t
}
