package models

// SendReportRequest asks for a shift report to be pushed through the
// notification channel. An empty To falls back to the configured recipient.
type SendReportRequest struct {
	Date  string `json:"date" binding:"required"`
	Shift string `json:"shift" binding:"required,oneof=A B"`
	To    string `json:"to"`
}
