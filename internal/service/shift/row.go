package shift

import (
	"strings"
	"time"

	"github.com/mamadbah2/shiftlog/internal/domain/models"
	"github.com/mamadbah2/shiftlog/internal/repository/records"
)

// Key is the date and shift a stored row is reported under.
type Key struct {
	Date     string
	Shift    Label
	HasShift bool
	// At is the parsed timestamp; zero for rows that only carry a Date.
	At time.Time
}

// Run returns the start date of the shift run the row belongs to. Rows
// without a timestamp stay on their own date.
func (k Key) Run() string {
	if k.At.IsZero() || !k.HasShift {
		return k.Date
	}
	return RunDate(k.At, k.Shift)
}

// KeyOf resolves the date and shift of a stored row. A valid Shift column
// wins over the shift derived from the timestamp, and rows that predate the
// combined timestamp fall back to their Date column, carrying a shift only
// when one was written. Undated or unparsable rows report false.
func (p *Parser) KeyOf(row records.Row) (Key, bool) {
	var k Key

	if raw := strings.TrimSpace(row.Get(models.ColDateTime)); raw != "" {
		ts, err := p.Parse(raw)
		if err != nil {
			return Key{}, false
		}
		c := Classify(ts)
		k = Key{Date: c.Date, Shift: c.Shift, HasShift: true, At: ts}
	} else if raw := strings.TrimSpace(row.Get(models.ColLegacyDate)); raw != "" {
		date, err := p.ParseDate(raw)
		if err != nil {
			return Key{}, false
		}
		k = Key{Date: date}
	} else {
		return Key{}, false
	}

	if label, err := ParseLabel(row.Get(models.ColShift)); err == nil {
		k.Shift = label
		k.HasShift = true
	}
	return k, true
}
