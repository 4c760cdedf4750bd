package shift

import (
	"fmt"
	"strings"
	"time"
)

var timestampLayouts = []string{
	TimestampLayout,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

// Parser reads operator timestamps in the plant's time zone.
type Parser struct {
	loc *time.Location
}

// NewParser returns a parser for loc; nil means UTC.
func NewParser(loc *time.Location) *Parser {
	if loc == nil {
		loc = time.UTC
	}
	return &Parser{loc: loc}
}

// Parse accepts the form default layout and a few common variants. Values
// carrying their own offset are converted to plant time.
func (p *Parser) Parse(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range timestampLayouts {
		t, err := time.ParseInLocation(layout, value, p.loc)
		if err == nil {
			return t.In(p.loc), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", value)
}

// ParseDate reads a "2006-01-02" date, also accepting a full timestamp and
// keeping only its date.
func (p *Parser) ParseDate(value string) (string, error) {
	value = strings.TrimSpace(value)
	if d, err := time.ParseInLocation(DateLayout, value, p.loc); err == nil {
		return d.Format(DateLayout), nil
	}
	t, err := p.Parse(value)
	if err != nil {
		return "", err
	}
	return t.Format(DateLayout), nil
}

// Format renders t in plant time using the form layout.
func (p *Parser) Format(t time.Time) string {
	return t.In(p.loc).Format(TimestampLayout)
}

// Now returns the current plant time, truncated to the minute like the form.
func (p *Parser) Now(now func() time.Time) time.Time {
	if now == nil {
		now = time.Now
	}
	return now().In(p.loc).Truncate(time.Minute)
}
