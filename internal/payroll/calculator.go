// Package payroll converts clock times into work minutes, late-night minutes and
// income figures.
//
// Clock values are "H:MM" or "HH:MM" strings on a 29-hour axis: hours of 24 and
// above denote the following calendar day, so "25:30" is 01:30 the next morning.
// Every function in this package is pure.
package payroll

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Late-night band boundaries in minutes since 00:00 of the work day.
const (
	earlyLateNightEnd = 5 * 60  // 05:00
	lateNightStart    = 22 * 60 // 22:00
	lateNightNextEnd  = 29 * 60 // 05:00 next day

	// LateNightPremiumPercent is the surcharge applied to late-night minutes.
	LateNightPremiumPercent = 25
)

// ErrInvalidClock is returned by ParseClock for values that are not H:MM.
var ErrInvalidClock = errors.New("payroll: invalid clock value")

// Break describes an optional break window. Both fields must be set for the
// window to be considered known.
type Break struct {
	Start string
	End   string
}

// Known reports whether both ends of the break window are present.
func (b Break) Known() bool {
	return strings.TrimSpace(b.Start) != "" && strings.TrimSpace(b.End) != ""
}

// ParseClock parses an "H:MM" or "HH:MM" value into minutes since 00:00.
func ParseClock(value string) (int, error) {
	value = strings.TrimSpace(value)
	hours, minutes, ok := strings.Cut(value, ":")
	if !ok || len(hours) == 0 || len(hours) > 2 || len(minutes) != 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, value)
	}
	h, err := strconv.Atoi(hours)
	if err != nil || h < 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, value)
	}
	m, err := strconv.Atoi(minutes)
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, value)
	}
	return h*60 + m, nil
}

// TimeToMinutes converts a clock value into minutes since 00:00. Callers must
// pass a well-formed value; malformed input panics.
func TimeToMinutes(value string) int {
	minutes, err := ParseClock(value)
	if err != nil {
		panic(err)
	}
	return minutes
}

// BreakMinutes returns the length of a known break window.
func BreakMinutes(brk Break) (int, bool) {
	if !brk.Known() {
		return 0, false
	}
	return TimeToMinutes(brk.End) - TimeToMinutes(brk.Start), true
}

// WorkMinutes returns the worked duration minus the break window. The result
// is not clamped.
func WorkMinutes(clockIn, clockOut string, brk Break) int {
	total := TimeToMinutes(clockOut) - TimeToMinutes(clockIn)
	if minutes, ok := BreakMinutes(brk); ok {
		total -= minutes
	}
	return total
}

// WorkMinutesWithBreakCount is the raw break-minute form of WorkMinutes. The
// result is floored at zero.
func WorkMinutesWithBreakCount(clockIn, clockOut string, breakMinutes int) int {
	return max(0, TimeToMinutes(clockOut)-TimeToMinutes(clockIn)-breakMinutes)
}

// LateNightMinutes returns the worked minutes that fall inside the late-night
// band [00:00, 05:00) and [22:00, 29:00). A known break window is subtracted
// by its own overlap with the band; a raw break-minute count has no position
// and therefore never reduces the result.
func LateNightMinutes(clockIn, clockOut string, brk Break) int {
	start := TimeToMinutes(clockIn)
	end := TimeToMinutes(clockOut)

	late := bandOverlap(start, end)
	if brk.Known() {
		late -= bandOverlap(TimeToMinutes(brk.Start), TimeToMinutes(brk.End))
	}
	return max(0, late)
}

func bandOverlap(start, end int) int {
	return overlap(start, end, 0, earlyLateNightEnd) +
		overlap(start, end, lateNightStart, lateNightNextEnd)
}

func overlap(aStart, aEnd, bStart, bEnd int) int {
	return max(0, min(aEnd, bEnd)-max(aStart, bStart))
}

// IncomeWithLateNight returns round(work*wage/60 + lateNight*wage*0.25/60)
// rounding halves up.
func IncomeWithLateNight(workMinutes, lateNightMinutes, hourlyWage int) int {
	// Scaled by 100 so the premium percentage stays in integer arithmetic.
	scaled := workMinutes*hourlyWage*100 + lateNightMinutes*hourlyWage*LateNightPremiumPercent
	return roundHalfUp(scaled, 60*100)
}

// roundHalfUp returns floor(numerator/divisor + 0.5) for a positive divisor.
func roundHalfUp(numerator, divisor int) int {
	n := 2*numerator + divisor
	d := 2 * divisor
	q := n / d
	if n%d != 0 && n < 0 {
		q--
	}
	return q
}

// NormalizeOvernight rewrites a clock-out that precedes clock-in onto the
// 29-hour axis, e.g. ("22:00", "05:00") yields "29:00". Other values are
// returned unchanged.
func NormalizeOvernight(clockIn, clockOut string) string {
	in, err := ParseClock(clockIn)
	if err != nil {
		return clockOut
	}
	out, err := ParseClock(clockOut)
	if err != nil || out >= in {
		return clockOut
	}
	out += 24 * 60
	return fmt.Sprintf("%02d:%02d", out/60, out%60)
}
