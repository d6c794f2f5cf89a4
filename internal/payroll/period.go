package payroll

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// LocalOffset is the fixed offset used to turn UTC shift starts into local
// calendar dates for attendance matching. It has no daylight saving rules.
const LocalOffset = 9 * time.Hour

// DateLayout formats calendar dates used as attendance keys.
const DateLayout = "2006-01-02"

// LocalDate returns the YYYY-MM-DD date of t shifted by LocalOffset from UTC.
func LocalDate(t time.Time) string {
	return t.UTC().Add(LocalOffset).Format(DateLayout)
}

// LocalYearMonth returns the year and month of t shifted by LocalOffset.
func LocalYearMonth(t time.Time) (int, time.Month) {
	local := t.UTC().Add(LocalOffset)
	return local.Year(), local.Month()
}

// Period is a half-open time range [Start, End).
type Period struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the period.
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

// FiscalYear returns the income year labelled year: December 1 of the prior
// year up to December 1 of year. Work done in December therefore counts
// towards the following year.
func FiscalYear(year int, loc *time.Location) Period {
	if loc == nil {
		loc = time.UTC
	}
	return Period{
		Start: time.Date(year-1, time.December, 1, 0, 0, 0, 0, loc),
		End:   time.Date(year, time.December, 1, 0, 0, 0, 0, loc),
	}
}

// SyncWindow returns the range in which ledger shifts may be deleted when they
// disappear upstream: December 1 of the prior year up to January 1 of the next
// year. It matches the union of the two calendar years fetched per sync.
func SyncWindow(year int, loc *time.Location) Period {
	if loc == nil {
		loc = time.UTC
	}
	return Period{
		Start: time.Date(year-1, time.December, 1, 0, 0, 0, 0, loc),
		End:   time.Date(year+1, time.January, 1, 0, 0, 0, 0, loc),
	}
}

// FormatCurrency renders a yen amount with thousands separators ("1,050").
func FormatCurrency(amount int) string {
	return humanize.Comma(int64(amount))
}

// FormatMinutes renders a duration as "X時間Y分".
func FormatMinutes(minutes int) string {
	hours := minutes / 60
	rest := minutes % 60
	switch {
	case rest == 0:
		return fmt.Sprintf("%d時間", hours)
	case hours == 0:
		return fmt.Sprintf("%d分", rest)
	default:
		return fmt.Sprintf("%d時間%d分", hours, rest)
	}
}
