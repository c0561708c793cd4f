// Package dates provides the genealogical date model used throughout kinsync.
// A genealogical date is rarely a precise instant: records carry year-only
// dates, approximations ("about 1885"), open bounds ("before 1900"), and
// ranges ("between 1880 and 1890"). Date captures the value together with its
// precision and modifier so comparisons never pretend to more accuracy than
// the record holds.
package dates

import (
	"fmt"
)

// Precision states how much of a date is meaningful.
type Precision int

const (
	// Year means only the year is known.
	Year Precision = iota
	// Month means year and month are known.
	Month
	// Day means the full calendar date is known.
	Day
)

// String returns the precision name.
func (p Precision) String() string {
	switch p {
	case Year:
		return "year"
	case Month:
		return "month"
	case Day:
		return "day"
	default:
		return "unknown"
	}
}

// Coarser returns the less precise of two precisions.
func Coarser(a, b Precision) Precision {
	if a < b {
		return a
	}
	return b
}

// Modifier qualifies how a date value relates to the actual event.
type Modifier int

const (
	// Exact means the event happened on the stated date.
	Exact Modifier = iota
	// About means the date is approximate.
	About
	// Before means the event happened no later than the stated date.
	Before
	// After means the event happened no earlier than the stated date.
	After
	// Between means the event happened within [Date, RangeEnd].
	Between
)

// String returns the modifier name.
func (m Modifier) String() string {
	switch m {
	case Exact:
		return "exact"
	case About:
		return "about"
	case Before:
		return "before"
	case After:
		return "after"
	case Between:
		return "between"
	default:
		return "unknown"
	}
}

// Date is a point or range in time with explicit precision.
// Fields below the stated precision are zero and must not be compared.
// RangeEnd is set iff Modifier is Between.
type Date struct {
	Year  int `json:"year" yaml:"year"`
	Month int `json:"month,omitempty" yaml:"month,omitempty"`
	Day   int `json:"day,omitempty" yaml:"day,omitempty"`

	Precision Precision `json:"precision" yaml:"precision"`
	Modifier  Modifier  `json:"modifier" yaml:"modifier"`

	// RangeEnd is the upper bound of a Between range.
	RangeEnd *Date `json:"range_end,omitempty" yaml:"range_end,omitempty"`

	// Text preserves the original source text for round-tripping into the
	// destination system's native format.
	Text string `json:"text,omitempty" yaml:"text,omitempty"`
}

// NewYear returns an exact year-precision date.
func NewYear(year int) *Date {
	return &Date{Year: year, Precision: Year}
}

// NewMonth returns an exact month-precision date.
func NewMonth(year, month int) *Date {
	return &Date{Year: year, Month: month, Precision: Month}
}

// NewDay returns an exact day-precision date.
func NewDay(year, month, day int) *Date {
	return &Date{Year: year, Month: month, Day: day, Precision: Day}
}

// Validate reports structural problems: a missing year, out-of-range month or
// day components, or a RangeEnd that disagrees with the Between modifier.
func (d *Date) Validate() error {
	if d == nil {
		return nil
	}
	if d.Year == 0 {
		return fmt.Errorf("date has no year: %q", d.Text)
	}
	if d.Precision >= Month && (d.Month < 1 || d.Month > 12) {
		return fmt.Errorf("month %d out of range", d.Month)
	}
	if d.Precision >= Day && (d.Day < 1 || d.Day > 31) {
		return fmt.Errorf("day %d out of range", d.Day)
	}
	if d.Modifier == Between && d.RangeEnd == nil {
		return fmt.Errorf("between date %q has no range end", d.Text)
	}
	if d.Modifier != Between && d.RangeEnd != nil {
		return fmt.Errorf("date %q has a range end but modifier %s", d.Text, d.Modifier)
	}
	if d.RangeEnd != nil {
		return d.RangeEnd.Validate()
	}
	return nil
}

// SameAt reports whether two dates agree when compared at the given
// precision. Components finer than the precision are ignored.
func (d *Date) SameAt(other *Date, p Precision) bool {
	if d == nil || other == nil {
		return false
	}
	if d.Year != other.Year {
		return false
	}
	if p >= Month && d.Month != other.Month {
		return false
	}
	if p >= Day && d.Day != other.Day {
		return false
	}
	return true
}

// Same reports whether two dates agree at the coarser of their precisions.
func (d *Date) Same(other *Date) bool {
	if d == nil || other == nil {
		return false
	}
	return d.SameAt(other, Coarser(d.Precision, other.Precision))
}

// YearDiff returns the absolute difference in years between two dates.
func (d *Date) YearDiff(other *Date) int {
	diff := d.Year - other.Year
	if diff < 0 {
		return -diff
	}
	return diff
}

// Finer reports whether d carries strictly more precision than other.
func (d *Date) Finer(other *Date) bool {
	return d != nil && other != nil && d.Precision > other.Precision
}

// String renders the date for logs and match reasons. The original Text is
// preferred when present.
func (d *Date) String() string {
	if d == nil {
		return ""
	}
	if d.Text != "" {
		return d.Text
	}
	var value string
	switch d.Precision {
	case Day:
		value = fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
	case Month:
		value = fmt.Sprintf("%04d-%02d", d.Year, d.Month)
	default:
		value = fmt.Sprintf("%04d", d.Year)
	}
	switch d.Modifier {
	case About:
		return "abt " + value
	case Before:
		return "bef " + value
	case After:
		return "aft " + value
	case Between:
		return fmt.Sprintf("bet %s and %s", value, d.RangeEnd.String())
	default:
		return value
	}
}
