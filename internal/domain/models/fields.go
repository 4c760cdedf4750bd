package models

import (
	"encoding/json"
	"strings"
)

// Field is the key of an operator supplied value in a submission.
type Field string

const (
	FieldTimestamp Field = "timestamp"
	FieldShift     Field = "shift"
	FieldMachine   Field = "machine"

	FieldBottleWeight   Field = "bottle_weight_g"
	FieldOutputBottles  Field = "output_bottles"
	FieldOutputKg       Field = "output_kg"
	FieldTargetOutputKg Field = "target_output_kg"
	FieldBottleType     Field = "bottle_type"
	FieldItem           Field = "item"

	FieldMaterialType   Field = "material_type"
	FieldGrade          Field = "grade"
	FieldMaterialBatch  Field = "material_batch"
	FieldMaterialKgUsed Field = "material_kg_used"

	FieldMBType   Field = "mb_type"
	FieldMBCode   Field = "mb_code"
	FieldMBBatch  Field = "mb_batch"
	FieldMBKgUsed Field = "mb_kg_used"
	FieldMBDosage Field = "mb_dosage_pct"

	FieldColourName    Field = "colour_name"
	FieldColourCode    Field = "colour_code"
	FieldColourMBBatch Field = "colour_mb_batch"
	FieldBatchCount    Field = "batch_count"

	FieldRejectionBottles Field = "rejection_bottles"
	FieldRejectionKg      Field = "rejection_kg"
	FieldRejectionReason  Field = "rejection_reason"

	FieldDowntimeEnd     Field = "downtime_end"
	FieldDowntimeMinutes Field = "downtime_minutes"
	FieldDowntimeReason  Field = "downtime_reason"
	FieldRemarks         Field = "remarks"
)

var fieldLabels = map[Field]string{
	FieldTimestamp:        ColDateTime,
	FieldShift:            ColShift,
	FieldMachine:          ColMachine,
	FieldBottleWeight:     ColBottleWeight,
	FieldOutputBottles:    ColOutputBottles,
	FieldOutputKg:         ColOutputKg,
	FieldTargetOutputKg:   ColTargetOutputKg,
	FieldBottleType:       ColBottleType,
	FieldItem:             ColItem,
	FieldMaterialType:     ColMaterialType,
	FieldGrade:            ColGrade,
	FieldMaterialBatch:    "Material Batch Number",
	FieldMaterialKgUsed:   "Material KG Used",
	FieldMBType:           ColMBType,
	FieldMBCode:           ColMBCode,
	FieldMBBatch:          "MB Batch Number",
	FieldMBKgUsed:         "MB KG Used",
	FieldMBDosage:         ColDosage,
	FieldColourName:       ColColourName,
	FieldColourCode:       ColColourCode,
	FieldColourMBBatch:    "Colour MB Batch Number",
	FieldBatchCount:       ColBatchCount,
	FieldRejectionBottles: ColRejectionBottles,
	FieldRejectionKg:      ColRejectionKg,
	FieldRejectionReason:  "Rejection Reason",
	FieldDowntimeEnd:      ColEndTime,
	FieldDowntimeMinutes:  ColDowntimeMinutes,
	FieldDowntimeReason:   "Downtime Reason",
	FieldRemarks:          ColRemarks,
}

// Label is the operator facing name of the field.
func (f Field) Label() string {
	if label, ok := fieldLabels[f]; ok {
		return label
	}
	return string(f)
}

// FieldSet holds the typed values collected by the form renderer, keyed by
// field. Text values are strings; numeric values are float64, int, int64 or
// json.Number.
type FieldSet map[Field]any

// Has reports whether the form sent the field at all.
func (f FieldSet) Has(field Field) bool {
	_, ok := f[field]
	return ok
}

// Text returns the trimmed string value of field.
func (f FieldSet) Text(field Field) (string, bool) {
	v, ok := f[field]
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(s), true
}

// Number returns the numeric value of field. Strings are not coerced.
func (f FieldSet) Number(field Field) (float64, bool) {
	v, ok := f[field]
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

// Clone returns a shallow copy safe to extend with derived values.
func (f FieldSet) Clone() FieldSet {
	out := make(FieldSet, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}
