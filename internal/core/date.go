package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	// ISODateLayout is the storage and API representation of a calendar date.
	ISODateLayout = "2006-01-02"
	// DisplayDateLayout is the en-GB form used by imports and reports.
	DisplayDateLayout = "02/01/2006"

	excelEpochOffset = 25569 // days between 1899-12-30 and 1970-01-01
	msPerDay         = 86400 * 1000
)

var displayDatePattern = regexp.MustCompile(`^(\d{2})/(\d{2})/(\d{4})$`)

// location is where RFC 3339 instants are turned into calendar days.
var location = time.Local

// SetLocation changes the zone used to read calendar days out of timestamps.
func SetLocation(loc *time.Location) {
	if loc != nil {
		location = loc
	}
}

// Location returns the zone used for timestamp to date conversion.
func Location() *time.Location {
	return location
}

// Date is a calendar day with no time component. The zero value is "no date".
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate builds a normalized Date; out of range days roll over like time.Date.
func NewDate(year int, month time.Month, day int) Date {
	return DateOf(time.Date(year, month, day, 12, 0, 0, 0, time.UTC))
}

// DateOf takes the calendar day of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Today returns the current calendar day in the configured location.
func Today() Date {
	return DateOf(time.Now().In(location))
}

// Time anchors the date at noon UTC so day arithmetic never shifts across midnight.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 12, 0, 0, 0, time.UTC)
}

// AddDays returns the date n days later (or earlier for negative n).
func (d Date) AddDays(n int) Date {
	return DateOf(d.Time().AddDate(0, 0, n))
}

// MonthIndex returns the zero based month (January = 0).
func (d Date) MonthIndex() int {
	return int(d.Month) - 1
}

func (d Date) IsZero() bool {
	return d == Date{}
}

// Compare returns -1, 0 or +1 depending on whether d is before, equal to or after o.
func (d Date) Compare(o Date) int {
	switch {
	case d.Year != o.Year:
		return cmpInt(d.Year, o.Year)
	case d.Month != o.Month:
		return cmpInt(int(d.Month), int(o.Month))
	default:
		return cmpInt(d.Day, o.Day)
	}
}

func (d Date) Before(o Date) bool { return d.Compare(o) < 0 }
func (d Date) After(o Date) bool  { return d.Compare(o) > 0 }

func cmpInt(a, b int) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Display formats the date as dd/mm/yyyy.
func (d Date) Display() string {
	return fmt.Sprintf("%02d/%02d/%04d", d.Day, int(d.Month), d.Year)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return fmt.Errorf("%w: date cannot be zero", ErrInvalidDate)
	}
	if d.Month < time.January || d.Month > time.December {
		return fmt.Errorf("%w: month %d", ErrInvalidDate, d.Month)
	}
	if NewDate(d.Year, d.Month, d.Day) != d {
		return fmt.Errorf("%w: %s does not exist", ErrInvalidDate, d)
	}
	return nil
}

// ParseDate accepts YYYY-MM-DD, dd/mm/yyyy or an RFC 3339 timestamp.
// Timestamps are converted to the configured location before the day is taken.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, fmt.Errorf("%w: empty date", ErrInvalidDate)
	}
	if t, err := time.Parse(ISODateLayout, s); err == nil {
		return DateOf(t), nil
	}
	if displayDatePattern.MatchString(s) {
		return ParseDisplayDate(s)
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return DateOf(t.In(location)), nil
	}
	return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

// ParseDisplayDate strictly parses dd/mm/yyyy and rejects days that do not exist.
func ParseDisplayDate(s string) (Date, error) {
	m := displayDatePattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	d := Date{Year: year, Month: time.Month(month), Day: day}
	if err := d.Validate(); err != nil {
		return Date{}, err
	}
	return d, nil
}

// IsDisplayDate reports whether s is a real dd/mm/yyyy date.
func IsDisplayDate(s string) bool {
	_, err := ParseDisplayDate(s)
	return err == nil
}

// FromExcelSerial converts a spreadsheet serial day number to a calendar date.
func FromExcelSerial(serial float64) (Date, error) {
	if math.IsNaN(serial) || math.IsInf(serial, 0) {
		return Date{}, fmt.Errorf("%w: serial %v", ErrInvalidDate, serial)
	}
	ms := int64(math.Round((serial - excelEpochOffset) * msPerDay))
	return DateOf(time.UnixMilli(ms).UTC()), nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidDate, data)
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
