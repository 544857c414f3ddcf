package normalize

import (
	"strconv"
	"strings"
	"time"

	"github.com/aabhinavcode/privacy-expense-tracker/internal/models"
)

// Period anchors year inference for statement dates printed without a year.
// Year is the calendar year containing StartMonth. A row month earlier in
// the calendar than StartMonth is taken to belong to Year+1, which handles
// December statements whose charge rows post in January. A zero StartMonth
// disables the rollover and Year is applied as-is.
type Period struct {
	StartMonth time.Month
	Year       int
}

func (p Period) resolveYear(m time.Month) int {
	if p.StartMonth != 0 && m < p.StartMonth {
		return p.Year + 1
	}
	return p.Year
}

var monthAbbr = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

// MonthFromName resolves a month name ("Dec", "December") to its time.Month.
func MonthFromName(name string) (time.Month, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	if len(n) > 3 {
		n = n[:3]
	}
	m, ok := monthAbbr[n]
	return m, ok
}

// ParseDate resolves a year-less "Mon D" token into a calendar date.
// Valid dates pass through unchanged. A day past the end of its month is
// clamped to the month's last day (repaired=true); statements occasionally
// carry such issuer artifacts and dropping the row would lose a real
// transaction. A token with no recognizable month/day at all returns a
// *models.DateError.
func ParseDate(raw string, ref Period) (models.Date, bool, error) {
	fields := strings.Fields(raw)
	if len(fields) < 2 {
		return models.Date{}, false, &models.DateError{Raw: raw}
	}
	month, ok := MonthFromName(fields[0])
	if !ok {
		return models.Date{}, false, &models.DateError{Raw: raw}
	}
	day, err := strconv.Atoi(fields[1])
	if err != nil || day < 1 {
		return models.Date{}, false, &models.DateError{Raw: raw}
	}

	year := ref.resolveYear(month)
	repaired := false
	if last := lastDay(year, month); day > last {
		day = last
		repaired = true
	}
	return models.NewDate(year, month, day), repaired, nil
}

// lastDay returns the number of days in the given month, leap-aware.
func lastDay(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
