package datetime

import (
	"encoding/json"
	"fmt"
	"time"
)

// DateTriple serializes a calendar date as a [year, month, day] JSON array,
// the wire format used by schedule and disbursement responses.
type DateTriple struct {
	Year  int
	Month time.Month
	Day   int
}

// FromTime converts a time.Time to a DateTriple, discarding the time of day.
func FromTime(t time.Time) DateTriple {
	return DateTriple{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// Time returns the date at midnight UTC.
func (d DateTriple) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d DateTriple) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func (d DateTriple) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]int{d.Year, int(d.Month), d.Day})
}

func (d *DateTriple) UnmarshalJSON(data []byte) error {
	var raw [3]int
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("date triple must be a [year, month, day] array: %w", err)
	}
	if raw[1] < 1 || raw[1] > 12 {
		return fmt.Errorf("invalid month %d in date triple", raw[1])
	}
	if raw[2] < 1 || raw[2] > 31 {
		return fmt.Errorf("invalid day %d in date triple", raw[2])
	}
	d.Year, d.Month, d.Day = raw[0], time.Month(raw[1]), raw[2]
	return nil
}

// Date truncates t to midnight UTC so schedule dates compare by day only.
func Date(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// NewDate builds a midnight-UTC date.
func NewDate(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the whole days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(Date(b).Sub(Date(a)).Hours() / 24)
}

// SameDay reports whether two instants fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	return Date(a).Equal(Date(b))
}
