package models

import (
	"errors"
	"fmt"
)

// TableName identifies one per-concern production log.
type TableName string

const (
	TableOutput       TableName = "output"
	TableRawMaterial  TableName = "raw_material"
	TableMasterbatch  TableName = "masterbatch"
	TableBottleColour TableName = "bottle_colour"
	TableRejection    TableName = "rejection"
	TableDowntime     TableName = "downtime"
)

// Tables lists every table in canonical write order.
var Tables = []TableName{
	TableOutput,
	TableRawMaterial,
	TableMasterbatch,
	TableBottleColour,
	TableRejection,
	TableDowntime,
}

// ErrUnknownTable is returned for table identifiers outside Tables.
var ErrUnknownTable = errors.New("unknown table")

// ParseTableName validates a user supplied table identifier.
func ParseTableName(value string) (TableName, error) {
	for _, t := range Tables {
		if string(t) == value {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w %q", ErrUnknownTable, value)
}

// Column names shared by every table. They double as the CSV header.
const (
	ColEntryID     = "Entry ID"
	ColDateTime    = "Date & Time"
	ColShift       = "Shift"
	ColShiftSource = "Shift Source"
	ColMachine     = "Machine"

	// ColLegacyDate is the date column written by the first output form, before
	// the combined timestamp existed.
	ColLegacyDate = "Date"
)

// Table specific column names.
const (
	ColBottleWeight     = "Bottle Weight (g)"
	ColOutputBottles    = "Output (bottles)"
	ColOutputKg         = "Output (kg)"
	ColTargetOutputKg   = "Target Output (kg)"
	ColBottleType       = "Bottle Type"
	ColItem             = "Item"
	ColMaterialType     = "Material Type"
	ColGrade            = "Grade"
	ColBatchNumber      = "Batch Number"
	ColKgUsed           = "KG Used"
	ColMBType           = "MB Type"
	ColMBCode           = "MB Code"
	ColDosage           = "Dosage %"
	ColColourName       = "Colour Name"
	ColColourCode       = "Colour Code"
	ColMBBatchNumber    = "MB Batch Number"
	ColBatchCount       = "Batch Count"
	ColRejectionBottles = "Rejection (bottles)"
	ColRejectionKg      = "Rejection (kg)"
	ColReason           = "Reason"
	ColEndTime          = "End Time"
	ColDowntimeMinutes  = "Downtime (min)"
	ColRemarks          = "Remarks"
)

// Rule is the presence/positivity check applied to a column's field.
type Rule int

const (
	// RuleOptional values are written when present and never checked.
	RuleOptional Rule = iota
	// RuleRequiredText values must be non-blank.
	RuleRequiredText
	// RuleExposedText values are only checked when the form sends the field.
	RuleExposedText
	// RulePositive values must be numbers strictly greater than zero.
	RulePositive
	// RuleNonNegative values must be numbers greater than or equal to zero.
	RuleNonNegative
	// RuleOptionalNonNegative values are checked only when present.
	RuleOptionalNonNegative
)

// ColumnKind tells encoders how to render a field value.
type ColumnKind int

const (
	KindText ColumnKind = iota
	KindNumber
)

// Column binds a persisted column to the submission field that feeds it.
// Choices are the values the form offers; other text is still accepted.
type Column struct {
	Name    string
	Field   Field
	Kind    ColumnKind
	Rule    Rule
	Choices []string
}

// Required reports whether the rule rejects a missing value.
func (c Column) Required() bool {
	switch c.Rule {
	case RuleRequiredText, RulePositive, RuleNonNegative:
		return true
	default:
		return false
	}
}

// Form choices.
var (
	MaterialTypes    = []string{"HDPE", "PP", "Others"}
	MBTypes          = []string{"Colour", "Additive"}
	RejectionReasons = []string{"Short shot", "Flash", "Weight high", "Weight low", "Colour issue", "Leak", "Others"}
	DowntimeReasons  = []string{"Mechanical", "Electrical", "Mould change", "No material", "QC hold", "Others"}
)

// Schema is the versioned column list of one table. Version is bumped
// whenever Columns change so clients can tell which layout they render.
type Schema struct {
	Table    TableName
	Title    string
	Version  int
	Columns  []Column
	Measures []string
}

// EventColumns are replicated into every table, in this order, ahead of the
// table specific columns.
var EventColumns = []string{ColEntryID, ColDateTime, ColShift, ColShiftSource, ColMachine}

// Header returns the full ordered header for the table.
func (s Schema) Header() []string {
	header := make([]string, 0, len(EventColumns)+len(s.Columns))
	header = append(header, EventColumns...)
	for _, col := range s.Columns {
		header = append(header, col.Name)
	}
	return header
}

var schemas = map[TableName]Schema{
	TableOutput: {
		Table:   TableOutput,
		Title:   "Output",
		Version: 2,
		Columns: []Column{
			{Name: ColBottleWeight, Field: FieldBottleWeight, Kind: KindNumber, Rule: RulePositive},
			{Name: ColOutputBottles, Field: FieldOutputBottles, Kind: KindNumber, Rule: RulePositive},
			{Name: ColOutputKg, Field: FieldOutputKg, Kind: KindNumber, Rule: RulePositive},
			{Name: ColTargetOutputKg, Field: FieldTargetOutputKg, Kind: KindNumber, Rule: RuleOptionalNonNegative},
			{Name: ColBottleType, Field: FieldBottleType, Kind: KindText, Rule: RuleExposedText},
			{Name: ColItem, Field: FieldItem, Kind: KindText, Rule: RuleExposedText},
		},
		Measures: []string{ColOutputBottles, ColOutputKg, ColTargetOutputKg},
	},
	TableRawMaterial: {
		Table:   TableRawMaterial,
		Title:   "Raw Material",
		Version: 2,
		Columns: []Column{
			{Name: ColMaterialType, Field: FieldMaterialType, Kind: KindText, Rule: RuleRequiredText, Choices: MaterialTypes},
			{Name: ColGrade, Field: FieldGrade, Kind: KindText},
			{Name: ColBatchNumber, Field: FieldMaterialBatch, Kind: KindText},
			{Name: ColKgUsed, Field: FieldMaterialKgUsed, Kind: KindNumber, Rule: RulePositive},
		},
		Measures: []string{ColKgUsed},
	},
	TableMasterbatch: {
		Table:   TableMasterbatch,
		Title:   "Masterbatch",
		Version: 2,
		Columns: []Column{
			{Name: ColMBType, Field: FieldMBType, Kind: KindText, Rule: RuleRequiredText, Choices: MBTypes},
			{Name: ColMBCode, Field: FieldMBCode, Kind: KindText},
			{Name: ColBatchNumber, Field: FieldMBBatch, Kind: KindText},
			{Name: ColKgUsed, Field: FieldMBKgUsed, Kind: KindNumber, Rule: RuleNonNegative},
			{Name: ColDosage, Field: FieldMBDosage, Kind: KindNumber, Rule: RuleOptionalNonNegative},
		},
		Measures: []string{ColKgUsed},
	},
	TableBottleColour: {
		Table:   TableBottleColour,
		Title:   "Bottle Colour",
		Version: 2,
		Columns: []Column{
			{Name: ColColourName, Field: FieldColourName, Kind: KindText, Rule: RuleRequiredText},
			{Name: ColColourCode, Field: FieldColourCode, Kind: KindText},
			{Name: ColMBBatchNumber, Field: FieldColourMBBatch, Kind: KindText},
			{Name: ColBatchCount, Field: FieldBatchCount, Kind: KindNumber, Rule: RuleNonNegative},
		},
		Measures: []string{ColBatchCount},
	},
	TableRejection: {
		Table:   TableRejection,
		Title:   "Rejection",
		Version: 2,
		Columns: []Column{
			{Name: ColBottleWeight, Field: FieldBottleWeight, Kind: KindNumber, Rule: RulePositive},
			{Name: ColRejectionBottles, Field: FieldRejectionBottles, Kind: KindNumber, Rule: RuleNonNegative},
			{Name: ColRejectionKg, Field: FieldRejectionKg, Kind: KindNumber, Rule: RuleNonNegative},
			{Name: ColReason, Field: FieldRejectionReason, Kind: KindText, Rule: RuleRequiredText, Choices: RejectionReasons},
		},
		Measures: []string{ColRejectionBottles, ColRejectionKg},
	},
	TableDowntime: {
		Table:   TableDowntime,
		Title:   "Downtime",
		Version: 1,
		Columns: []Column{
			{Name: ColEndTime, Field: FieldDowntimeEnd, Kind: KindText},
			{Name: ColDowntimeMinutes, Field: FieldDowntimeMinutes, Kind: KindNumber, Rule: RuleNonNegative},
			{Name: ColReason, Field: FieldDowntimeReason, Kind: KindText, Rule: RuleRequiredText, Choices: DowntimeReasons},
			{Name: ColRemarks, Field: FieldRemarks, Kind: KindText},
		},
		Measures: []string{ColDowntimeMinutes},
	},
}

// SchemaFor returns the schema registered for table.
func SchemaFor(table TableName) (Schema, bool) {
	s, ok := schemas[table]
	return s, ok
}

// MustSchema is SchemaFor for tables known at compile time.
func MustSchema(table TableName) Schema {
	s, ok := schemas[table]
	if !ok {
		panic(fmt.Sprintf("no schema registered for table %q", table))
	}
	return s
}
