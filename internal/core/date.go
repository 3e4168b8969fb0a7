package core

import (
	"encoding/json"
	"strings"
	"sync/atomic"
	"time"
)

const (
	dayLayout       = "2006-01-02"
	yearMonthLayout = "2006-01"
)

var dayZone atomic.Pointer[time.Location]

// SetDayZone sets the zone timestamps are resolved in when decoded into a
// Day. Binaries call it once with the configured location; nil means UTC.
func SetDayZone(loc *time.Location) {
	dayZone.Store(loc)
}

// DayZone returns the zone set by SetDayZone, or UTC.
func DayZone() *time.Location {
	if loc := dayZone.Load(); loc != nil {
		return loc
	}
	return time.UTC
}

// Day is a calendar day. The wrapped time is always midnight UTC and only
// its year, month and day are meaningful.
type Day struct {
	time.Time
}

// DateRange is an inclusive range of calendar days. A zero To means a
// single-day range starting at From.
type DateRange struct {
	From Day `json:"from"`
	To   Day `json:"to"`
}

// NewDay creates a Day, normalising overflow the way time.Date does
// (2024-02-30 becomes 2024-03-01).
func NewDay(year, month, day int) Day {
	return Day{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DayOf returns the calendar day of t in t's own location.
func DayOf(t time.Time) Day {
	y, m, d := t.Date()
	return NewDay(y, int(m), d)
}

// Today returns the current calendar day in loc.
func Today(loc *time.Location) Day {
	return DayOf(time.Now().In(loc))
}

// ParseDay reads the year, month and day components of a dash separated
// date string. Each component is the run of leading digits of its part, so
// "2024-01-05T10:00" still yields 2024-01-05. A missing or non-numeric
// component makes the date invalid.
func ParseDay(s string) (Day, bool) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) < 3 {
		return Day{}, false
	}
	var nums [3]int
	for i := 0; i < 3; i++ {
		n, ok := leadingInt(parts[i])
		if !ok {
			return Day{}, false
		}
		nums[i] = n
	}
	return NewDay(nums[0], nums[1], nums[2]), true
}

func leadingInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	n, digits := 0, 0
	for _, r := range s {
		if r < '0' || r > '9' {
			break
		}
		n = n*10 + int(r-'0')
		digits++
		if digits > 9 {
			return 0, false
		}
	}
	return n, digits > 0
}

func (d Day) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dayLayout)
}

// YearMonth returns the "YYYY-MM" bucket of the day.
func (d Day) YearMonth() string {
	return d.Format(yearMonthLayout)
}

// AddMonths moves the month component forward by n, letting the day
// overflow into the next month (2024-01-31 + 1 month is 2024-03-02).
func (d Day) AddMonths(n int) Day {
	return NewDay(d.Year(), int(d.Month())+n, d.Day())
}

func (d Day) AddDays(n int) Day {
	return NewDay(d.Year(), int(d.Month()), d.Day()+n)
}

// Start returns 00:00:00.000 of the day in loc.
func (d Day) Start(loc *time.Location) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
}

// End returns 23:59:59.999 of the day in loc.
func (d Day) End(loc *time.Location) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), 23, 59, 59, int(999*time.Millisecond), loc)
}

// FormatBR renders the day as dd/mm/yyyy.
func (d Day) FormatBR() string {
	return d.Format("02/01/2006")
}

func (d Day) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts "YYYY-MM-DD" or an RFC 3339 timestamp, which is
// converted to its calendar day in DayZone.
func (d *Day) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = Day{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	s = strings.TrimSpace(s)
	if s == "" {
		*d = Day{}
		return nil
	}
	if strings.Contains(s, "T") {
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return ErrInvalidDate
		}
		*d = DayOf(t.In(DayZone()))
		return nil
	}
	parsed, ok := ParseDay(s)
	if !ok {
		return ErrInvalidDate
	}
	*d = parsed
	return nil
}

// Bounds returns the effective inclusive bounds. ok is false when there is
// no range at all, meaning every day matches.
func (r *DateRange) Bounds() (from, to Day, ok bool) {
	if r == nil || r.From.IsZero() {
		return Day{}, Day{}, false
	}
	to = r.To
	if to.IsZero() {
		to = r.From
	}
	return r.From, to, true
}

// Contains reports whether d lies inside the range. A nil or open range
// contains every day.
func (r *DateRange) Contains(d Day) bool {
	from, to, ok := r.Bounds()
	if !ok {
		return true
	}
	return !d.Before(from.Time) && !d.After(to.Time)
}

// Complete reports whether both bounds are set, which is the only shape
// that gets persisted.
func (r *DateRange) Complete() bool {
	return r != nil && !r.From.IsZero() && !r.To.IsZero()
}

// Timestamps converts the range to the instant pair stored by the config
// document: start of From and end of To in loc.
func (r DateRange) Timestamps(loc *time.Location) (time.Time, time.Time) {
	return r.From.Start(loc), r.To.End(loc)
}

// RangeFromTimestamps is the inverse of Timestamps. Both instants are read
// back as calendar days in loc, so the round trip never shifts a day.
func RangeFromTimestamps(from, to time.Time, loc *time.Location) DateRange {
	return DateRange{From: DayOf(from.In(loc)), To: DayOf(to.In(loc))}
}

func (r *DateRange) String() string {
	from, to, ok := r.Bounds()
	if !ok {
		return "all"
	}
	return from.String() + ".." + to.String()
}
