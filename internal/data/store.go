package data

import (
	"errors"
	"sync"
	"time"

	"battery-sizing/internal/model"

	"github.com/google/uuid"
)

// ErrSeriesNotFound is returned for unknown or expired series IDs.
var ErrSeriesNotFound = errors.New("series not found")

// Entry is one uploaded series.
type Entry struct {
	ID        string
	Name      string
	Series    *model.Series
	CreatedAt time.Time
	ExpiresAt time.Time
}

// SeriesStore keeps uploaded series in memory, keyed by a random ID, so
// clients upload once and refer to the series in later requests. Entries
// expire after the TTL since their last use; a zero TTL never expires.
type SeriesStore struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	ttl     time.Duration
	now     func() time.Time

	stopOnce sync.Once
	stop     chan struct{}
}

func NewSeriesStore(ttl time.Duration) *SeriesStore {
	return &SeriesStore{
		entries: make(map[string]*Entry),
		ttl:     ttl,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
}

// Put stores series under a fresh ID.
func (s *SeriesStore) Put(name string, series *model.Series) Entry {
	now := s.now()
	e := &Entry{
		ID:        uuid.NewString(),
		Name:      name,
		Series:    series,
		CreatedAt: now,
		ExpiresAt: s.expiry(now),
	}
	s.mu.Lock()
	s.entries[e.ID] = e
	s.mu.Unlock()
	return *e
}

// Get returns the entry and extends its lifetime.
func (s *SeriesStore) Get(id string) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return Entry{}, ErrSeriesNotFound
	}
	now := s.now()
	if s.expired(e, now) {
		delete(s.entries, id)
		return Entry{}, ErrSeriesNotFound
	}
	e.ExpiresAt = s.expiry(now)
	return *e, nil
}

func (s *SeriesStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; !ok {
		return ErrSeriesNotFound
	}
	delete(s.entries, id)
	return nil
}

func (s *SeriesStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Sweep drops expired entries and reports how many were removed.
func (s *SeriesStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	removed := 0
	for id, e := range s.entries {
		if s.expired(e, now) {
			delete(s.entries, id)
			removed++
		}
	}
	return removed
}

// StartCleanup sweeps every interval until Close is called.
func (s *SeriesStore) StartCleanup(interval time.Duration) {
	if s.ttl <= 0 || interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Sweep()
			case <-s.stop:
				return
			}
		}
	}()
}

func (s *SeriesStore) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *SeriesStore) expiry(now time.Time) time.Time {
	if s.ttl <= 0 {
		return time.Time{}
	}
	return now.Add(s.ttl)
}

func (s *SeriesStore) expired(e *Entry, now time.Time) bool {
	return !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt)
}
