package data

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"battery-sizing/internal/model"
)

type seriesDocument struct {
	Intervals []model.Interval `json:"intervals"`
}

// LoadJSON reads intervals from a JSON file. See DecodeJSON for the layout.
func LoadJSON(path string) ([]model.Interval, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DecodeJSON(f)
}

// DecodeJSON accepts either a bare array of {"timestamp","remaining_kwh"}
// objects or an object wrapping that array under "intervals".
func DecodeJSON(r io.Reader) ([]model.Interval, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, model.ErrInsufficientData
	}
	if raw[0] == '[' {
		var out []model.Interval
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, fmt.Errorf("decode intervals: %w", err)
		}
		return out, nil
	}
	var doc seriesDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode intervals: %w", err)
	}
	return doc.Intervals, nil
}

// InLocation returns intervals with timestamps expressed in loc, so that
// hour-of-day rules see local wall-clock time. A nil loc returns in as is.
func InLocation(in []model.Interval, loc *time.Location) []model.Interval {
	if loc == nil {
		return in
	}
	out := make([]model.Interval, len(in))
	for i, iv := range in {
		out[i] = model.Interval{Timestamp: iv.Timestamp.In(loc), RemainingKWh: iv.RemainingKWh}
	}
	return out
}
