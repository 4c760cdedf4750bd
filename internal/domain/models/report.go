package models

import "time"

// ShiftReport is the closing summary of one shift, archived in MongoDB and
// sent to the plant manager.
type ShiftReport struct {
	Date             string    `bson:"date" json:"date"`
	Shift            string    `bson:"shift" json:"shift"`
	Month            string    `bson:"month" json:"month"`
	Start            time.Time `bson:"start" json:"start"`
	End              time.Time `bson:"end" json:"end"`
	OutputBottles    float64   `bson:"output_bottles" json:"output_bottles"`
	OutputKg         float64   `bson:"output_kg" json:"output_kg"`
	TargetOutputKg   float64   `bson:"target_output_kg" json:"target_output_kg"`
	RawMaterialKg    float64   `bson:"raw_material_kg" json:"raw_material_kg"`
	MasterbatchKg    float64   `bson:"masterbatch_kg" json:"masterbatch_kg"`
	ColourBatches    float64   `bson:"colour_batches" json:"colour_batches"`
	RejectionBottles float64   `bson:"rejection_bottles" json:"rejection_bottles"`
	RejectionKg      float64   `bson:"rejection_kg" json:"rejection_kg"`
	RejectionRate    float64   `bson:"rejection_rate" json:"rejection_rate"`
	DowntimeMinutes  float64   `bson:"downtime_minutes" json:"downtime_minutes"`
	DowntimeEntries  int       `bson:"downtime_entries" json:"downtime_entries"`
	CreatedAt        time.Time `bson:"created_at" json:"created_at"`
}

// Empty reports whether nothing was logged during the shift.
func (r ShiftReport) Empty() bool {
	return r.OutputBottles == 0 && r.OutputKg == 0 && r.RawMaterialKg == 0 &&
		r.MasterbatchKg == 0 && r.ColourBatches == 0 && r.RejectionBottles == 0 &&
		r.RejectionKg == 0 && r.DowntimeEntries == 0
}
