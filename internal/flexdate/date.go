// Package flexdate models partially specified genealogical dates.
//
// The accepted notation follows the Library of Congress Extended Date/Time
// Format, level 1: a 1-4 digit year with optional month and day, where any
// digit may be the unknown placeholder 'u', month codes 21-24 name seasons,
// and trailing '?' (uncertain) and '~' (approximate) qualifiers may follow.
// Intervals are not supported.
package flexdate

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// Unknown is the placeholder for a digit whose value is not known.
const Unknown = 'u'

// DefaultLayout is the display layout used by Display (en-US numeric).
const DefaultLayout = "1/2/2006"

// Season month codes (northern hemisphere).
const (
	Spring = "21"
	Summer = "22"
	Autumn = "23"
	Winter = "24"
)

// Years a concrete date can be built for.
const (
	minYear = -9999
	maxYear = 9999
)

// edtfPattern matches the structured notation. Groups: year, month, day, qualifiers.
// A trailing ISO time part ("T10:00:00Z") is accepted and ignored.
// A one-character month or day must be a digit.
var edtfPattern = regexp.MustCompile(`^(-?[0-9u]{1,4})(?:-([0-9u]{2}|[0-9])(?:-([0-9u]{2}|[0-9]))?)?([?~]{0,2})(?:T\S*)?$`)

// Date is an immutable, possibly partial date. The zero value means "no date".
type Date struct {
	year        string
	month       string
	day         string
	uncertain   bool
	approximate bool
}

// New builds a Date from its components. Numeric month and day values shorter
// than two characters are zero-padded; other one-character values are
// dropped. Without a year the result is the zero Date, a day without a month
// is dropped, and a fully masked month masks the day as well.
func New(year, month, day string, uncertain, approximate bool) Date {
	if year == "" {
		return Date{}
	}
	d := Date{
		year:        year,
		month:       zeroPadded(month),
		day:         zeroPadded(day),
		uncertain:   uncertain,
		approximate: approximate,
	}
	if len(d.month) < 2 {
		d.month = ""
	}
	if len(d.day) < 2 {
		d.day = ""
	}
	switch {
	case d.month == "":
		d.day = ""
	case d.month == maskedPair && d.day != "":
		d.day = maskedPair
	}
	return d
}

// maskedPair is a month or day with both digits unknown.
const maskedPair = string(Unknown) + string(Unknown)

// Parse converts s into a Date. It never fails: text outside the structured
// notation goes through a free-form date parser, and anything that parser
// rejects becomes the zero Date.
func Parse(s string) Date {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}
	}

	m := edtfPattern.FindStringSubmatch(s)
	if m == nil {
		return parseFreeForm(s)
	}

	qualifiers := m[4]
	return New(m[1], m[2], m[3],
		strings.ContainsRune(qualifiers, '?'),
		strings.ContainsRune(qualifiers, '~'))
}

// parseFreeForm handles dates such as "Feb. 23, 2010".
func parseFreeForm(s string) (d Date) {
	defer func() {
		if recover() != nil {
			d = Date{}
		}
	}()

	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return Date{}
	}
	if t.Year() < minYear || t.Year() > maxYear {
		return Date{}
	}
	return New(strconv.Itoa(t.Year()), strconv.Itoa(int(t.Month())), strconv.Itoa(t.Day()), false, false)
}

// IsZero reports whether d carries no date.
func (d Date) IsZero() bool {
	return d.year == ""
}

// YearText returns the year as written, including placeholders.
func (d Date) YearText() string { return d.year }

// Month returns the two character month code, or "".
func (d Date) Month() string { return d.month }

// Day returns the two character day code, or "".
func (d Date) Day() string { return d.day }

// Uncertain reports whether the date itself is in doubt.
func (d Date) Uncertain() bool { return d.uncertain }

// Approximate reports whether the date is only known to be near.
func (d Date) Approximate() bool { return d.approximate }

// IsSeason reports whether the month code names a season.
func (d Date) IsSeason() bool {
	switch d.month {
	case Spring, Summer, Autumn, Winter:
		return true
	}
	return false
}

// Year returns the year as an integer. Parsing is best effort: it reads an
// optional sign and the leading digits and stops at the first placeholder,
// so "19uu" gives 19 and "uuuu" gives 0.
func (d Date) Year() int {
	n, _ := leadingInt(d.year)
	return n
}

// String returns the canonical form year[-month[-day]][?][~].
func (d Date) String() string {
	if d.year == "" {
		return ""
	}
	var b strings.Builder
	b.WriteString(d.dateText())
	if d.uncertain {
		b.WriteByte('?')
	}
	if d.approximate {
		b.WriteByte('~')
	}
	return b.String()
}

// dateText is the canonical form without qualifiers.
func (d Date) dateText() string {
	s := d.year
	if d.month != "" {
		s += "-" + d.month
	}
	if d.day != "" {
		s += "-" + d.day
	}
	return s
}

// Display formats d for people using DefaultLayout.
func (d Date) Display() string {
	return d.DisplayString(DefaultLayout)
}

// DisplayString formats d for people. A bare year is shown as written;
// otherwise the concrete date is formatted with layout. Uncertain dates get
// a " (uncertain)" suffix and approximate dates an "abt " prefix.
func (d Date) DisplayString(layout string) string {
	if d.year == "" {
		return ""
	}
	if layout == "" {
		layout = DefaultLayout
	}

	var s string
	if d.month == "" && d.day == "" {
		s = d.year
	} else if t, ok := d.Time(); ok {
		s = t.Format(layout)
	} else {
		s = d.dateText()
	}

	if d.uncertain {
		s += " (uncertain)"
	}
	if d.approximate {
		s = "abt " + s
	}
	return s
}

// Time returns the best concrete date for d, in UTC. It reports false when
// there is no year, the year has unknown digits, or the year is out of range.
// Unknown months pin to January 1, seasons to the 22nd of their solstice or
// equinox month, and unknown days to the 1st. Out of range days roll over
// into the following month.
func (d Date) Time() (time.Time, bool) {
	if d.year == "" || strings.ContainsRune(d.year, Unknown) {
		return time.Time{}, false
	}
	y, err := strconv.Atoi(d.year)
	if err != nil || y < minYear || y > maxYear {
		return time.Time{}, false
	}

	month, day := time.January, 1
	switch d.month {
	case "", "uu":
	case Spring:
		month, day = time.March, 22
	case Summer:
		month, day = time.June, 22
	case Autumn:
		month, day = time.September, 22
	case Winter:
		month, day = time.December, 22
	default:
		if m, ok := leadingInt(d.month); ok {
			month = time.Month(m)
			if n, ok := leadingInt(d.day); ok {
				day = n
			}
		}
	}

	return time.Date(y, month, day, 0, 0, 0, 0, time.UTC), true
}

// Equal reports whether both dates have the same canonical form.
func (d Date) Equal(o Date) bool {
	return d == o
}

// Before orders dates by their concrete date. Dates without one sort last.
func (d Date) Before(o Date) bool {
	t1, ok1 := d.Time()
	t2, ok2 := o.Time()
	switch {
	case ok1 && ok2:
		return t1.Before(t2)
	case ok1:
		return true
	default:
		return false
	}
}

// MarshalText encodes d in canonical form.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText parses text with Parse.
func (d *Date) UnmarshalText(text []byte) error {
	*d = Parse(string(text))
	return nil
}

func zeroPadded(s string) string {
	if s == "" || len(s) >= 2 || !isDigits(s) {
		return s
	}
	return "0" + s
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// leadingInt parses an optional '-' and the digits that follow it.
func leadingInt(s string) (int, bool) {
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	if neg {
		n = -n
	}
	return n, true
}
