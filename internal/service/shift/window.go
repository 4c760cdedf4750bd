package shift

import (
	"fmt"
	"time"
)

// Window is one run of a shift on the clock. The run of A on a date spans
// 08:00 to 20:00 of that date; the run of B starts at 20:00 and ends at 08:00
// the next morning. Date is always the day the run started.
type Window struct {
	Date  string    `json:"date"`
	Shift Label     `json:"shift"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// WindowOf returns the run of label that started on date, in plant time.
func (p *Parser) WindowOf(date string, label Label) (Window, error) {
	d, err := time.ParseInLocation(DateLayout, date, p.loc)
	if err != nil {
		return Window{}, fmt.Errorf("window date %q: %w", date, err)
	}
	y, m, day := d.Date()
	switch label {
	case A:
		return Window{
			Date:  date,
			Shift: A,
			Start: time.Date(y, m, day, shiftAStartHour, 0, 0, 0, p.loc),
			End:   time.Date(y, m, day, shiftBStartHour, 0, 0, 0, p.loc),
		}, nil
	case B:
		return Window{
			Date:  date,
			Shift: B,
			Start: time.Date(y, m, day, shiftBStartHour, 0, 0, 0, p.loc),
			End:   time.Date(y, m, day+1, shiftAStartHour, 0, 0, 0, p.loc),
		}, nil
	default:
		return Window{}, fmt.Errorf("%w: %q", ErrInvalidShift, label)
	}
}

// LastClosed returns the most recent run that has ended at now.
func (p *Parser) LastClosed(now time.Time) Window {
	now = now.In(p.loc)
	today := now.Format(DateLayout)
	yesterday := now.AddDate(0, 0, -1).Format(DateLayout)

	var w Window
	switch {
	case now.Hour() >= shiftBStartHour:
		w, _ = p.WindowOf(today, A)
	case now.Hour() >= shiftAStartHour:
		w, _ = p.WindowOf(yesterday, B)
	default:
		w, _ = p.WindowOf(yesterday, A)
	}
	return w
}

// RunDate returns the start date of the run of label that covers ts. Only a
// B entry logged before 08:00 belongs to the run that began the day before.
func RunDate(ts time.Time, label Label) string {
	if label == B && ts.Hour() < shiftAStartHour {
		return ts.AddDate(0, 0, -1).Format(DateLayout)
	}
	return ts.Format(DateLayout)
}
