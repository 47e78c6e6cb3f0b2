package data

import (
	"fmt"
	"strings"
	"time"

	"battery-sizing/internal/model"
)

const dateLayout = "2006-01-02"

// Window selects intervals by timestamp. Both bounds are inclusive and a zero
// bound is open.
type Window struct {
	From time.Time
	To   time.Time
}

// ParseWindow parses from and to as a date (2006-01-02) or a timestamp in one
// of the CSV layouts. Dates without a zone are taken in loc. A date used as
// the upper bound covers the whole day.
func ParseWindow(from, to string, loc *time.Location) (Window, error) {
	if loc == nil {
		loc = time.UTC
	}
	var (
		w   Window
		err error
	)
	if w.From, err = parseBound(from, loc, false); err != nil {
		return Window{}, &model.ConfigError{Field: "from", Reason: err.Error()}
	}
	if w.To, err = parseBound(to, loc, true); err != nil {
		return Window{}, &model.ConfigError{Field: "to", Reason: err.Error()}
	}
	if !w.From.IsZero() && !w.To.IsZero() && w.To.Before(w.From) {
		return Window{}, &model.ConfigError{Field: "to", Reason: "must not be before from"}
	}
	return w, nil
}

func parseBound(s string, loc *time.Location, end bool) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if d, err := time.ParseInLocation(dateLayout, s, loc); err == nil {
		if end {
			return d.AddDate(0, 0, 1).Add(-time.Nanosecond), nil
		}
		return d, nil
	}
	t, err := parseTimestamp(s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want 2006-01-02 or RFC 3339)", s)
	}
	return t, nil
}

func (w Window) IsZero() bool { return w.From.IsZero() && w.To.IsZero() }

func (w Window) Contains(t time.Time) bool {
	if !w.From.IsZero() && t.Before(w.From) {
		return false
	}
	if !w.To.IsZero() && t.After(w.To) {
		return false
	}
	return true
}

// Apply returns the intervals inside the window. The input is not modified.
func (w Window) Apply(in []model.Interval) []model.Interval {
	if w.IsZero() {
		return in
	}
	out := make([]model.Interval, 0, len(in))
	for _, iv := range in {
		if w.Contains(iv.Timestamp) {
			out = append(out, iv)
		}
	}
	return out
}
