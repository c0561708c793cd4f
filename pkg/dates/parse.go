package dates

import (
	"fmt"
	"strconv"
	"strings"
)

// monthNames maps GEDCOM-style month abbreviations to month numbers.
var monthNames = map[string]int{
	"JAN": 1, "FEB": 2, "MAR": 3, "APR": 4, "MAY": 5, "JUN": 6,
	"JUL": 7, "AUG": 8, "SEP": 9, "OCT": 10, "NOV": 11, "DEC": 12,
}

// Parse reads a GEDCOM-flavored date string into a Date. Supported forms:
//
//	1885
//	JAN 1885
//	12 JAN 1885
//	ABT 1885, BEF 1885, AFT 1885
//	BET 1880 AND 1890
//	1885-01-12 (ISO, day precision)
//
// The original text is preserved in Text.
func Parse(s string) (*Date, error) {
	text := strings.TrimSpace(s)
	if text == "" {
		return nil, fmt.Errorf("empty date")
	}
	upper := strings.ToUpper(text)

	var modifier Modifier
	rest := upper
	switch {
	case strings.HasPrefix(upper, "ABT "):
		modifier, rest = About, strings.TrimSpace(upper[4:])
	case strings.HasPrefix(upper, "BEF "):
		modifier, rest = Before, strings.TrimSpace(upper[4:])
	case strings.HasPrefix(upper, "AFT "):
		modifier, rest = After, strings.TrimSpace(upper[4:])
	case strings.HasPrefix(upper, "BET "):
		parts := strings.SplitN(strings.TrimSpace(upper[4:]), " AND ", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("malformed range %q", s)
		}
		start, err := parseValue(strings.TrimSpace(parts[0]))
		if err != nil {
			return nil, fmt.Errorf("range start of %q: %w", s, err)
		}
		end, err := parseValue(strings.TrimSpace(parts[1]))
		if err != nil {
			return nil, fmt.Errorf("range end of %q: %w", s, err)
		}
		start.Modifier = Between
		start.RangeEnd = end
		start.Text = text
		return start, nil
	}

	d, err := parseValue(rest)
	if err != nil {
		return nil, fmt.Errorf("date %q: %w", s, err)
	}
	d.Modifier = modifier
	d.Text = text
	return d, nil
}

// parseValue parses the bare date value without modifiers.
func parseValue(s string) (*Date, error) {
	if strings.Contains(s, "-") {
		return parseISO(s)
	}

	fields := strings.Fields(s)
	switch len(fields) {
	case 1:
		year, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("bad year %q", fields[0])
		}
		return NewYear(year), nil
	case 2:
		month, ok := monthNames[fields[0]]
		if !ok {
			return nil, fmt.Errorf("bad month %q", fields[0])
		}
		year, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("bad year %q", fields[1])
		}
		return NewMonth(year, month), nil
	case 3:
		day, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("bad day %q", fields[0])
		}
		month, ok := monthNames[fields[1]]
		if !ok {
			return nil, fmt.Errorf("bad month %q", fields[1])
		}
		year, err := strconv.Atoi(fields[2])
		if err != nil {
			return nil, fmt.Errorf("bad year %q", fields[2])
		}
		return NewDay(year, month, day), nil
	default:
		return nil, fmt.Errorf("unrecognized date form %q", s)
	}
}

// parseISO parses YYYY, YYYY-MM, or YYYY-MM-DD.
func parseISO(s string) (*Date, error) {
	parts := strings.Split(s, "-")
	nums := make([]int, 0, 3)
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("bad component %q", p)
		}
		nums = append(nums, n)
	}
	switch len(nums) {
	case 1:
		return NewYear(nums[0]), nil
	case 2:
		return NewMonth(nums[0], nums[1]), nil
	case 3:
		return NewDay(nums[0], nums[1], nums[2]), nil
	default:
		return nil, fmt.Errorf("unrecognized ISO date %q", s)
	}
}
