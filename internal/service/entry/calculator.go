package entry

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/shiftlog/internal/domain/models"
	"github.com/mamadbah2/shiftlog/internal/service/shift"
)

var gramsPerKg = decimal.NewFromInt(1000)

// AutoOutputKg suggests the output weight from a bottle count.
func AutoOutputKg(bottles, bottleWeightGrams float64) float64 {
	return gramsToKg(bottles, bottleWeightGrams)
}

// AutoRejectionKg suggests the rejected weight from a rejected bottle count.
func AutoRejectionKg(rejectBottles, bottleWeightGrams float64) float64 {
	return gramsToKg(rejectBottles, bottleWeightGrams)
}

// AutoMaterialUsedKg suggests the raw material consumed: everything blown,
// good or rejected.
func AutoMaterialUsedKg(outputKg, rejectionKg float64) float64 {
	return decimal.NewFromFloat(outputKg).Add(decimal.NewFromFloat(rejectionKg)).InexactFloat64()
}

// AutoDowntimeMinutes suggests the whole minutes between start and end. An
// end before start yields a negative value, which validation rejects.
func AutoDowntimeMinutes(start, end time.Time) float64 {
	return math.Trunc(end.Sub(start).Minutes())
}

func gramsToKg(count, grams float64) float64 {
	return decimal.NewFromFloat(count).
		Mul(decimal.NewFromFloat(grams)).
		Div(gramsPerKg).
		InexactFloat64()
}

// Suggestions are the derived values offered to the operator before saving.
type Suggestions struct {
	OutputKg        *float64 `json:"output_kg,omitempty"`
	RejectionKg     *float64 `json:"rejection_kg,omitempty"`
	MaterialKgUsed  *float64 `json:"material_kg_used,omitempty"`
	DowntimeMinutes *float64 `json:"downtime_minutes,omitempty"`
}

// suggest computes every derived value the inputs allow. Material used is
// based on the operator's output and rejection weights when given.
func suggest(fields models.FieldSet, start time.Time, hasStart bool, parser *shift.Parser) Suggestions {
	var s Suggestions

	weight, hasWeight := fields.Number(models.FieldBottleWeight)
	if bottles, ok := fields.Number(models.FieldOutputBottles); ok && hasWeight {
		v := AutoOutputKg(bottles, weight)
		s.OutputKg = &v
	}
	if rejects, ok := fields.Number(models.FieldRejectionBottles); ok && hasWeight {
		v := AutoRejectionKg(rejects, weight)
		s.RejectionKg = &v
	}

	outputKg, hasOutput := fields.Number(models.FieldOutputKg)
	if !hasOutput && s.OutputKg != nil {
		outputKg, hasOutput = *s.OutputKg, true
	}
	rejectionKg, hasRejection := fields.Number(models.FieldRejectionKg)
	if !hasRejection && s.RejectionKg != nil {
		rejectionKg, hasRejection = *s.RejectionKg, true
	}
	if hasOutput || hasRejection {
		v := AutoMaterialUsedKg(outputKg, rejectionKg)
		s.MaterialKgUsed = &v
	}

	if hasStart {
		if raw, ok := fields.Text(models.FieldDowntimeEnd); ok && raw != "" {
			if endTime, err := parser.Parse(raw); err == nil {
				v := AutoDowntimeMinutes(start, endTime)
				s.DowntimeMinutes = &v
			}
		}
	}
	return s
}

// withDerived returns a copy of fields where every derived field the
// operator left out is filled with its suggestion.
func withDerived(fields models.FieldSet, s Suggestions) models.FieldSet {
	out := fields.Clone()
	fill := func(field models.Field, v *float64) {
		if v == nil {
			return
		}
		if _, ok := out.Number(field); ok {
			return
		}
		if out.Has(field) && out[field] != nil {
			// Present but not numeric: keep it so validation reports it.
			return
		}
		out[field] = *v
	}
	fill(models.FieldOutputKg, s.OutputKg)
	fill(models.FieldRejectionKg, s.RejectionKg)
	fill(models.FieldMaterialKgUsed, s.MaterialKgUsed)
	fill(models.FieldDowntimeMinutes, s.DowntimeMinutes)
	return out
}
