// Package shift maps production timestamps onto the line's two twelve hour
// shifts: A from 08:00 to 20:00 and B from 20:00 to 08:00 the next morning.
package shift

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Label names a shift.
type Label string

const (
	A Label = "A"
	B Label = "B"
)

// Labels lists the shifts in reporting order.
var Labels = []Label{A, B}

// Source records how the shift of an entry was decided.
type Source string

const (
	SourceAuto   Source = "auto"
	SourceManual Source = "manual"
)

const (
	DateLayout      = "2006-01-02"
	MonthLayout     = "2006-01"
	TimestampLayout = "2006-01-02 15:04"

	shiftAStartHour = 8
	shiftBStartHour = 20
)

// ErrInvalidShift is returned for labels other than A and B.
var ErrInvalidShift = errors.New("shift must be A or B")

// Classification is the reporting bucket of one timestamp.
type Classification struct {
	Date   string `json:"date"`
	Month  string `json:"month"`
	Shift  Label  `json:"shift"`
	Source Source `json:"shift_source"`
}

// LabelFor returns the shift running at the given hour of the day.
func LabelFor(hour int) Label {
	if hour >= shiftAStartHour && hour < shiftBStartHour {
		return A
	}
	return B
}

// ParseLabel accepts "A" or "B" in any case, surrounded by blanks.
func ParseLabel(value string) (Label, error) {
	switch Label(strings.ToUpper(strings.TrimSpace(value))) {
	case A:
		return A, nil
	case B:
		return B, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidShift, value)
	}
}

// Classify derives date, month and shift from the wall clock of ts.
func Classify(ts time.Time) Classification {
	return Classification{
		Date:   ts.Format(DateLayout),
		Month:  ts.Format(MonthLayout),
		Shift:  LabelFor(ts.Hour()),
		Source: SourceAuto,
	}
}

// ClassifyManual keeps the date and month of ts but takes the shift the
// operator picked instead of deriving it.
func ClassifyManual(ts time.Time, label string) (Classification, error) {
	l, err := ParseLabel(label)
	if err != nil {
		return Classification{}, err
	}
	c := Classify(ts)
	c.Shift = l
	c.Source = SourceManual
	return c, nil
}

// MonthOf returns the month bucket of a "2006-01-02" date.
func MonthOf(date string) (string, error) {
	d, err := time.Parse(DateLayout, date)
	if err != nil {
		return "", err
	}
	return d.Format(MonthLayout), nil
}
