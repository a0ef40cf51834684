// Package store holds the latest-value store: a map from measurement id to
// a bounded, timestamp-ordered history of (value, timestamp) pairs, queried
// by the router's value-query responder.
package store

import (
	"sort"
	"sync"

	"procem/pkg/measurement"
)

// Point is one stored (value, timestamp) entry.
type Point struct {
	V  measurement.Value
	Ts int64
}

func equalValue(a, b measurement.Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case measurement.KindDouble:
		return a.D == b.D
	case measurement.KindLong:
		return a.L == b.L
	case measurement.KindBool:
		return a.B == b.B
	default:
		return false
	}
}

// series is one id's managed history. A single RWMutex gives the "dual
// lock" semantics the store contract asks for: readers take RLock and may
// run concurrently with each other; the one writer for this id takes Lock
// and excludes everyone.
type series struct {
	mu     sync.RWMutex
	limit  int
	points []Point
}

// Store maps measurement id to its managed series. New ids are created
// lazily on first write.
type Store struct {
	defaultLimit int
	entries      sync.Map // int64 -> *series
}

// New returns a Store where every id defaults to keeping at most limit
// entries, unless overridden per id via SetLimit.
func New(limit int) *Store {
	if limit < 1 {
		limit = 1
	}
	return &Store{defaultLimit: limit}
}

func (s *Store) getOrCreate(id int64) *series {
	if v, ok := s.entries.Load(id); ok {
		return v.(*series)
	}
	fresh := &series{limit: s.defaultLimit}
	actual, _ := s.entries.LoadOrStore(id, fresh)
	return actual.(*series)
}

// SetLimit overrides the retention cap for one id, trimming immediately if
// the series already exceeds the new limit.
func (s *Store) SetLimit(id int64, limit int) {
	if limit < 1 {
		limit = 1
	}
	sr := s.getOrCreate(id)
	sr.mu.Lock()
	defer sr.mu.Unlock()
	sr.limit = limit
	if len(sr.points) > limit {
		sr.points = append([]Point(nil), sr.points[len(sr.points)-limit:]...)
	}
}

// Add inserts a (value, timestamp) pair for id. A late arrival sharing an
// existing timestamp overwrites the stored value at that timestamp; an
// exact duplicate (value, timestamp) is a no-op; otherwise the pair is
// inserted in timestamp order and the oldest entries are evicted past the
// cap.
func (s *Store) Add(id int64, v measurement.Value, ts int64) {
	sr := s.getOrCreate(id)
	sr.mu.Lock()
	defer sr.mu.Unlock()

	idx := sort.Search(len(sr.points), func(i int) bool { return sr.points[i].Ts >= ts })
	if idx < len(sr.points) && sr.points[idx].Ts == ts {
		if equalValue(sr.points[idx].V, v) {
			return
		}
		sr.points[idx].V = v
		return
	}

	sr.points = append(sr.points, Point{})
	copy(sr.points[idx+1:], sr.points[idx:])
	sr.points[idx] = Point{V: v, Ts: ts}

	if len(sr.points) > sr.limit {
		sr.points = append([]Point(nil), sr.points[len(sr.points)-sr.limit:]...)
	}
}

// Get returns a snapshot of up to max most-recent points for id, oldest
// first. max<=0 means "all retained points". Returns nil if id is unknown.
func (s *Store) Get(id int64, max int) []Point {
	v, ok := s.entries.Load(id)
	if !ok {
		return nil
	}
	sr := v.(*series)
	sr.mu.RLock()
	defer sr.mu.RUnlock()

	n := len(sr.points)
	if n == 0 {
		return nil
	}
	start := 0
	if max > 0 && max < n {
		start = n - max
	}
	out := make([]Point, n-start)
	copy(out, sr.points[start:])
	return out
}

// Latest returns the single most recent point for id, or ok=false if id is
// unknown or empty.
func (s *Store) Latest(id int64) (Point, bool) {
	pts := s.Get(id, 1)
	if len(pts) == 0 {
		return Point{}, false
	}
	return pts[0], true
}

// Ids returns every id currently tracked, sorted ascending.
func (s *Store) Ids() []int64 {
	var ids []int64
	s.entries.Range(func(k, _ any) bool {
		ids = append(ids, k.(int64))
		return true
	})
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
