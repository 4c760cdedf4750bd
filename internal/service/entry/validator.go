package entry

import (
	"fmt"
	"strings"

	"github.com/mamadbah2/shiftlog/internal/domain/models"
	"github.com/mamadbah2/shiftlog/internal/service/shift"
)

// LabelTables is reported when a submission selects no table or an unknown one.
const LabelTables = "Tables"

// ShiftMode tells whether the shift is derived from the timestamp or picked
// by the operator.
type ShiftMode string

const (
	ShiftAuto   ShiftMode = "auto"
	ShiftManual ShiftMode = "manual"
)

// Submission is one filled-in production form.
type Submission struct {
	Timestamp string
	ShiftMode ShiftMode
	Shift     string
	Machine   string
	Tables    []models.TableName
	Fields    models.FieldSet
}

// Result is the outcome of validating a submission. Missing lists the labels
// of every offending field in form order.
type Result struct {
	Missing []string `json:"missing,omitempty"`
}

// Accepted reports whether the submission may be persisted.
func (r Result) Accepted() bool {
	return len(r.Missing) == 0
}

// ValidationError carries a rejected Result.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing or invalid fields: %s", strings.Join(e.Fields, ", "))
}

// Validator applies the presence and positivity rules of the table schemas.
type Validator struct {
	roster *models.Roster
	parser *shift.Parser
}

// NewValidator returns a validator accepting machines from roster.
func NewValidator(roster *models.Roster, parser *shift.Parser) *Validator {
	return &Validator{roster: roster, parser: parser}
}

// Validate checks every rule and collects all violations.
func (v *Validator) Validate(sub Submission) Result {
	var missing []string
	seen := map[string]struct{}{}
	report := func(label string) {
		if _, dup := seen[label]; dup {
			return
		}
		seen[label] = struct{}{}
		missing = append(missing, label)
	}

	tables, ok := orderedTables(sub.Tables)
	if !ok {
		report(LabelTables)
	}

	if _, err := v.parser.Parse(sub.Timestamp); err != nil {
		report(models.FieldTimestamp.Label())
	}

	switch sub.mode() {
	case ShiftManual:
		if _, err := shift.ParseLabel(sub.Shift); err != nil {
			report(models.FieldShift.Label())
		}
	case ShiftAuto:
		if strings.TrimSpace(sub.Shift) != "" {
			report(models.FieldShift.Label())
		}
	default:
		report(models.FieldShift.Label())
	}

	if !v.roster.Contains(strings.TrimSpace(sub.Machine)) {
		report(models.FieldMachine.Label())
	}

	fields := sub.Fields
	if fields == nil {
		fields = models.FieldSet{}
	}
	for _, table := range tables {
		for _, col := range models.MustSchema(table).Columns {
			if !checkRule(fields, col) {
				report(col.Field.Label())
			}
		}
	}

	return Result{Missing: missing}
}

func checkRule(fields models.FieldSet, col models.Column) bool {
	switch col.Rule {
	case models.RuleRequiredText:
		text, ok := fields.Text(col.Field)
		return ok && text != ""
	case models.RuleExposedText:
		if !fields.Has(col.Field) {
			return true
		}
		text, ok := fields.Text(col.Field)
		return ok && text != ""
	case models.RulePositive:
		n, ok := fields.Number(col.Field)
		return ok && n > 0
	case models.RuleNonNegative:
		n, ok := fields.Number(col.Field)
		return ok && n >= 0
	case models.RuleOptionalNonNegative:
		if !fields.Has(col.Field) || fields[col.Field] == nil {
			return true
		}
		n, ok := fields.Number(col.Field)
		return ok && n >= 0
	default:
		return true
	}
}

// orderedTables returns the selection in canonical order without repeats.
// ok is false when the selection is empty or names an unknown table.
func orderedTables(selected []models.TableName) ([]models.TableName, bool) {
	want := make(map[models.TableName]bool, len(selected))
	ok := len(selected) > 0
	for _, t := range selected {
		if _, known := models.SchemaFor(t); !known {
			ok = false
			continue
		}
		want[t] = true
	}
	var out []models.TableName
	for _, t := range models.Tables {
		if want[t] {
			out = append(out, t)
		}
	}
	return out, ok
}

func (s Submission) mode() ShiftMode {
	if s.ShiftMode == "" {
		return ShiftAuto
	}
	return s.ShiftMode
}
