package model

import (
	"math"
	"sort"
	"time"
)

// DefaultStep is the interval length assumed for a series with a single
// interval. Smart meters report per quarter hour.
const DefaultStep = 15 * time.Minute

// Interval is one step of net household energy balance.
// RemainingKWh = import - export: positive means a deficit the grid or battery
// has to cover, negative means a surplus that can be stored or exported.
type Interval struct {
	Timestamp    time.Time `json:"timestamp"`
	RemainingKWh float64   `json:"remaining_kwh"`
}

// Series is a validated, read-only energy series. It is safe to share between
// goroutines once constructed.
type Series struct {
	intervals []Interval
	durations []time.Duration
	// absPrefix[i] is the sum of |RemainingKWh| over intervals[0:i].
	absPrefix []float64
	period    time.Duration
}

type seriesOptions struct {
	step time.Duration
}

// SeriesOption tweaks how a series is built.
type SeriesOption func(*seriesOptions)

// WithDefaultStep sets the duration used when it cannot be derived from
// neighbouring timestamps (single-interval series).
func WithDefaultStep(d time.Duration) SeriesOption {
	return func(o *seriesOptions) {
		if d > 0 {
			o.step = d
		}
	}
}

// NewSeries validates intervals and precomputes durations and prefix sums.
// The input must be sorted ascending with no duplicates and no NaN values;
// the series is never reordered or interpolated.
func NewSeries(intervals []Interval, opts ...SeriesOption) (*Series, error) {
	if len(intervals) == 0 {
		return nil, ErrInsufficientData
	}
	o := seriesOptions{step: DefaultStep}
	for _, opt := range opts {
		opt(&o)
	}

	for i, it := range intervals {
		if it.Timestamp.IsZero() {
			return nil, &InputError{Index: i, Reason: "missing timestamp"}
		}
		if math.IsNaN(it.RemainingKWh) || math.IsInf(it.RemainingKWh, 0) {
			return nil, &InputError{Index: i, Reason: "remaining energy is not a finite number"}
		}
		if i == 0 {
			continue
		}
		prev := intervals[i-1].Timestamp
		if it.Timestamp.Equal(prev) {
			return nil, &InputError{Index: i, Reason: "duplicate timestamp " + it.Timestamp.Format(time.RFC3339)}
		}
		if it.Timestamp.Before(prev) {
			return nil, &InputError{Index: i, Reason: "timestamps are not ascending"}
		}
	}

	s := &Series{
		intervals: make([]Interval, len(intervals)),
		durations: make([]time.Duration, len(intervals)),
		absPrefix: make([]float64, len(intervals)+1),
	}
	copy(s.intervals, intervals)

	n := len(intervals)
	for i := 0; i < n-1; i++ {
		s.durations[i] = intervals[i+1].Timestamp.Sub(intervals[i].Timestamp)
	}
	if n == 1 {
		s.durations[0] = o.step
	} else {
		s.durations[n-1] = s.durations[n-2]
	}

	for i, it := range intervals {
		s.absPrefix[i+1] = s.absPrefix[i] + math.Abs(it.RemainingKWh)
		s.period += s.durations[i]
	}
	return s, nil
}

func (s *Series) Len() int { return len(s.intervals) }

func (s *Series) At(i int) Interval { return s.intervals[i] }

// Intervals returns a copy of the underlying intervals.
func (s *Series) Intervals() []Interval {
	out := make([]Interval, len(s.intervals))
	copy(out, s.intervals)
	return out
}

// Duration is the length of interval i.
func (s *Series) Duration(i int) time.Duration { return s.durations[i] }

func (s *Series) Start() time.Time { return s.intervals[0].Timestamp }

// End is the end of the last interval, not its timestamp.
func (s *Series) End() time.Time {
	n := len(s.intervals)
	return s.intervals[n-1].Timestamp.Add(s.durations[n-1])
}

// Period is the total time covered by the series.
func (s *Series) Period() time.Duration { return s.period }

func (s *Series) PeriodDays() float64 { return s.period.Hours() / 24 }

// Annualize scales a cost measured over the series period to one year.
func (s *Series) Annualize(cost float64) float64 {
	days := s.PeriodDays()
	if days <= 0 {
		return 0
	}
	return cost / days * 365
}

// TrailingMeanAbs is the mean of |RemainingKWh| over the intervals whose
// timestamp lies in (ts[i]-window, ts[i]], interval i included.
func (s *Series) TrailingMeanAbs(i int, window time.Duration) float64 {
	if i < 0 || i >= len(s.intervals) {
		return 0
	}
	cutoff := s.intervals[i].Timestamp.Add(-window)
	j := sort.Search(i+1, func(k int) bool {
		return s.intervals[k].Timestamp.After(cutoff)
	})
	count := i + 1 - j
	if count <= 0 {
		return 0
	}
	return (s.absPrefix[i+1] - s.absPrefix[j]) / float64(count)
}
