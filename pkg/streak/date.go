package streak

import (
	"fmt"
	"time"
)

// Layout 日期键格式（本地日历日期）
const Layout = "2006-01-02"

// Key returns the YYYY-MM-DD key of t using t's own location.
// Components come from t.Date(), so a UTC conversion never shifts the day.
func Key(t time.Time) string {
	y, m, d := t.Date()
	return fmt.Sprintf("%04d-%02d-%02d", y, int(m), d)
}

// Today returns the local date key of now in loc. A nil loc keeps now's location.
func Today(now time.Time, loc *time.Location) string {
	if loc != nil {
		now = now.In(loc)
	}
	return Key(now)
}

// ParseKey parses a YYYY-MM-DD key as midnight in loc (time.Local when nil).
func ParseKey(key string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(Layout, key, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date key %q: %w", key, err)
	}
	return t, nil
}

// AddDays steps a date key by n calendar days.
func AddDays(key string, n int) (string, error) {
	t, err := time.ParseInLocation(Layout, key, time.UTC)
	if err != nil {
		return "", fmt.Errorf("invalid date key %q: %w", key, err)
	}
	return Key(t.AddDate(0, 0, n)), nil
}

// calendarDay is a date without clock or zone. Stepping goes through
// time.Date in UTC so month/year rollover is handled and DST never applies.
type calendarDay struct {
	year  int
	month time.Month
	day   int
}

func dayOf(t time.Time) calendarDay {
	y, m, d := t.Date()
	return calendarDay{year: y, month: m, day: d}
}

func (c calendarDay) prev() calendarDay {
	return dayOf(time.Date(c.year, c.month, c.day-1, 0, 0, 0, 0, time.UTC))
}

func (c calendarDay) key() string {
	return fmt.Sprintf("%04d-%02d-%02d", c.year, int(c.month), c.day)
}
