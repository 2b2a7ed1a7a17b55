// Package cache holds per-platform device snapshots and the background
// refresh coordinator that keeps them current.
package cache

import (
	"sync"
	"time"

	"github.com/emudevtools/emuctl/internal/models"
)

// defaultTTL bounds how long a populated snapshot stays fresh without a
// refresh.
const defaultTTL = 300 * time.Second

// Snapshot is one platform's cached device list. It is only ever replaced
// wholesale; readers never observe a half-updated list.
type Snapshot struct {
	mu            sync.RWMutex
	devices       []models.Device
	lastRefreshed time.Time
	populated     bool
	loading       bool
	invalidated   bool

	ttl time.Duration
	now func() time.Time
}

// SnapshotOption customizes a Snapshot.
type SnapshotOption func(*Snapshot)

// WithTTL overrides the staleness TTL.
func WithTTL(ttl time.Duration) SnapshotOption {
	return func(s *Snapshot) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock injects the time source, for tests.
func WithClock(now func() time.Time) SnapshotOption {
	return func(s *Snapshot) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSnapshot returns an empty, stale snapshot.
func NewSnapshot(opts ...SnapshotOption) *Snapshot {
	s := &Snapshot{
		ttl: defaultTTL,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Devices returns the current device list. The returned slice is a copy.
func (s *Snapshot) Devices() []models.Device {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Device, len(s.devices))
	copy(out, s.devices)
	return out
}

// LastRefreshed returns when the snapshot was last populated, zero if never.
func (s *Snapshot) LastRefreshed() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastRefreshed
}

// IsLoading reports whether a refresh is in flight.
func (s *Snapshot) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// IsStale reports whether the snapshot needs a refresh: it was never
// populated, its TTL expired, or a mutation invalidated it.
func (s *Snapshot) IsStale() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.populated || s.invalidated {
		return true
	}
	return s.now().Sub(s.lastRefreshed) > s.ttl
}

// Invalidate marks the snapshot stale regardless of age. Mutating lifecycle
// calls use this so the next read triggers a refresh.
func (s *Snapshot) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidated = true
}

// beginRefresh flags a refresh as in flight.
func (s *Snapshot) beginRefresh() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = true
}

// Replace swaps in a freshly listed device set. The lock is held only for
// the swap itself, never while listing.
func (s *Snapshot) Replace(devices []models.Device) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.devices = devices
	s.lastRefreshed = s.now()
	s.populated = true
	s.loading = false
	s.invalidated = false
}

// abortRefresh clears the loading flag after a failed refresh, keeping the
// previous devices and staleness.
func (s *Snapshot) abortRefresh() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
}
