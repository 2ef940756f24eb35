// Package catalog holds the in-memory snapshot of venues and events and the
// machinery that rebuilds it from an external source.
package catalog

import (
	"sort"
	"sync/atomic"
	"time"

	"venue-recommender/internal/models"
)

// Snapshot is an immutable view of the catalog at one point in time. It is
// never mutated after NewSnapshot returns.
type Snapshot struct {
	generation uint64
	builtAt    time.Time
	byKind     map[models.ItemKind][]models.Item
	index      map[models.ItemKey]models.Item
}

// NewSnapshot indexes items per kind. Later duplicates of the same key
// replace earlier ones; item order within a kind is preserved otherwise.
func NewSnapshot(generation uint64, builtAt time.Time, items map[models.ItemKind][]models.Item) *Snapshot {
	s := &Snapshot{
		generation: generation,
		builtAt:    builtAt,
		byKind:     make(map[models.ItemKind][]models.Item, len(items)),
		index:      make(map[models.ItemKey]models.Item),
	}
	for kind, list := range items {
		pos := make(map[int64]int, len(list))
		out := make([]models.Item, 0, len(list))
		for _, it := range list {
			if it == nil || it.Kind() != kind {
				continue
			}
			if i, dup := pos[it.ID()]; dup {
				out[i] = it
			} else {
				pos[it.ID()] = len(out)
				out = append(out, it)
			}
			s.index[models.KeyOf(it)] = it
		}
		s.byKind[kind] = out
	}
	return s
}

// EmptySnapshot is generation zero.
func EmptySnapshot() *Snapshot {
	return NewSnapshot(0, time.Time{}, nil)
}

func (s *Snapshot) Generation() uint64 { return s.generation }
func (s *Snapshot) BuiltAt() time.Time  { return s.builtAt }

// Items returns the items of one kind. The slice must not be modified.
func (s *Snapshot) Items(kind models.ItemKind) []models.Item {
	return s.byKind[kind]
}

// ItemsOf concatenates several kinds in the given order.
func (s *Snapshot) ItemsOf(kinds ...models.ItemKind) []models.Item {
	var out []models.Item
	for _, k := range kinds {
		out = append(out, s.byKind[k]...)
	}
	return out
}

func (s *Snapshot) Lookup(key models.ItemKey) (models.Item, bool) {
	it, ok := s.index[key]
	return it, ok
}

func (s *Snapshot) Len() int { return len(s.index) }

// Counts reports items per kind.
func (s *Snapshot) Counts() map[models.ItemKind]int {
	out := make(map[models.ItemKind]int, len(s.byKind))
	for k, v := range s.byKind {
		out[k] = len(v)
	}
	return out
}

// TopRated returns up to n items of the given kinds by rating, ties broken
// by kind then id.
func (s *Snapshot) TopRated(n int, kinds ...models.ItemKind) []models.Item {
	items := s.ItemsOf(kinds...)
	sorted := make([]models.Item, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Rating() != b.Rating() {
			return a.Rating() > b.Rating()
		}
		if a.Kind() != b.Kind() {
			return a.Kind() > b.Kind()
		}
		return a.ID() < b.ID()
	})
	if n > 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// Store publishes the current snapshot. Readers never block and always see a
// complete snapshot.
type Store struct {
	current atomic.Pointer[Snapshot]
}

func NewStore() *Store {
	s := &Store{}
	s.current.Store(EmptySnapshot())
	return s
}

func (s *Store) Current() *Snapshot {
	return s.current.Load()
}

// Swap publishes next and returns the snapshot it replaced.
func (s *Store) Swap(next *Snapshot) *Snapshot {
	return s.current.Swap(next)
}
