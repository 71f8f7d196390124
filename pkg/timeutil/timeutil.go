// Package timeutil provides calendar helpers for the pool's local timezone.
// Monthly rankings, monthly crowns and every date label are attributed by the
// local calendar (America/Sao_Paulo by default), not by UTC.
package timeutil

import (
	"fmt"
	"time"
)

// DefaultZone is the timezone used when configuration does not name one.
const DefaultZone = "America/Sao_Paulo"

// brasilia is the fallback when the tz database is unavailable (UTC-3, no DST since 2019).
var brasilia = time.FixedZone("BRT", -3*60*60)

// LoadLocation resolves a timezone name, falling back to UTC-3.
func LoadLocation(name string) *time.Location {
	if name == "" {
		name = DefaultZone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return brasilia
	}
	return loc
}

// In converts t to loc, treating a nil loc as the default zone.
func In(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = LoadLocation(DefaultZone)
	}
	return t.In(loc)
}

// ──────────────────────────────────────────────────────────────────────────────
// Months
// ──────────────────────────────────────────────────────────────────────────────

// Month identifies one calendar month.
type Month struct {
	Year  int
	Month time.Month
}

// MonthOf returns the calendar month of t in loc.
func MonthOf(t time.Time, loc *time.Location) Month {
	l := In(t, loc)
	return Month{Year: l.Year(), Month: l.Month()}
}

// Before reports whether m is strictly earlier than other.
func (m Month) Before(other Month) bool {
	if m.Year != other.Year {
		return m.Year < other.Year
	}
	return m.Month < other.Month
}

// Start returns the first instant of the month in loc.
func (m Month) Start(loc *time.Location) time.Time {
	if loc == nil {
		loc = LoadLocation(DefaultZone)
	}
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, loc)
}

// String returns "2026-03".
func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

var monthNamesPt = [...]string{
	"JANEIRO", "FEVEREIRO", "MARÇO", "ABRIL", "MAIO", "JUNHO",
	"JULHO", "AGOSTO", "SETEMBRO", "OUTUBRO", "NOVEMBRO", "DEZEMBRO",
}

// MonthNamePt returns the upper-case Portuguese month name.
func MonthNamePt(m time.Month) string {
	if m < time.January || m > time.December {
		return ""
	}
	return monthNamesPt[m-1]
}

// ──────────────────────────────────────────────────────────────────────────────
// Formatting
// ──────────────────────────────────────────────────────────────────────────────

const (
	LayoutDDMMYY     = "02/01/06"
	LayoutDDMM       = "02/01"
	LayoutDateTimeBR = "02/01/2006 15:04"
)

// FormatDDMMYY formats t as "13/02/26" in loc.
func FormatDDMMYY(t time.Time, loc *time.Location) string {
	return In(t, loc).Format(LayoutDDMMYY)
}

// FormatDDMM formats t as "13/02" in loc.
func FormatDDMM(t time.Time, loc *time.Location) string {
	return In(t, loc).Format(LayoutDDMM)
}

// FormatDateTimeBR formats t as "13/02/2026 21:30" in loc.
func FormatDateTimeBR(t time.Time, loc *time.Location) string {
	return In(t, loc).Format(LayoutDateTimeBR)
}

// FormatPercentBR formats a percentage with one decimal and a comma: "60,5%".
func FormatPercentBR(value float64) string {
	s := fmt.Sprintf("%.1f", value)
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			return s[:i] + "," + s[i+1:] + "%"
		}
	}
	return s + "%"
}
