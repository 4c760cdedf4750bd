package models

// EntryRequest is the JSON body of a production form submission. Field
// values keep their JSON types: numbers arrive as float64, text as string.
type EntryRequest struct {
	Timestamp string         `json:"timestamp"`
	ShiftMode string         `json:"shift_mode"`
	Shift     string         `json:"shift"`
	Machine   string         `json:"machine"`
	Tables    []string       `json:"tables"`
	Fields    map[string]any `json:"fields"`
}

// FieldSet converts the raw field map into a FieldSet.
func (r EntryRequest) FieldSet() FieldSet {
	out := make(FieldSet, len(r.Fields))
	for k, v := range r.Fields {
		out[Field(k)] = v
	}
	return out
}

// TableNames converts the requested tables without validating them.
func (r EntryRequest) TableNames() []TableName {
	out := make([]TableName, len(r.Tables))
	for i, t := range r.Tables {
		out[i] = TableName(t)
	}
	return out
}
