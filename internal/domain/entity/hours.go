package entity

import (
	"fmt"
	"time"
)

// Hours is a daily opening window in "HH:MM" local time.
type Hours struct {
	Open  string `json:"open" yaml:"open"`
	Close string `json:"close" yaml:"close"`
}

// String renders the window as "open-close".
func (h Hours) String() string {
	return h.Open + "-" + h.Close
}

// OpenAt reports whether t falls inside the window. Windows whose close time
// is earlier than the open time run past midnight; equal times mean all day.
// The second return value is false when either bound fails to parse.
func (h Hours) OpenAt(t time.Time) (open, ok bool) {
	from, err := parseClock(h.Open)
	if err != nil {
		return false, false
	}
	to, err := parseClock(h.Close)
	if err != nil {
		return false, false
	}

	now := t.Hour()*60 + t.Minute()
	switch {
	case from == to:
		return true, true
	case from < to:
		return now >= from && now < to, true
	default:
		return now >= from || now < to, true
	}
}

func parseClock(s string) (int, error) {
	var hh, mm int
	if _, err := fmt.Sscanf(s, "%d:%d", &hh, &mm); err != nil {
		return 0, fmt.Errorf("parse clock %q: %w", s, err)
	}
	if hh < 0 || hh > 24 || mm < 0 || mm > 59 || (hh == 24 && mm != 0) {
		return 0, fmt.Errorf("clock %q out of range", s)
	}
	return hh*60 + mm, nil
}
