package catalog

import (
	"context"
	"sync"

	"venue-recommender/internal/models"
)

// StaticSource serves a fixed item list. It backs offline mode and tests.
type StaticSource struct {
	mu    sync.RWMutex
	items map[models.ItemKind][]models.Item
}

func NewStaticSource(items ...models.Item) *StaticSource {
	s := &StaticSource{items: make(map[models.ItemKind][]models.Item)}
	s.Replace(items...)
	return s
}

// DefaultStaticSource is seeded with a small Timișoara sample.
func DefaultStaticSource() *StaticSource {
	return NewStaticSource(SampleItems()...)
}

func (s *StaticSource) Name() string { return "static" }

// Replace swaps the served items.
func (s *StaticSource) Replace(items ...models.Item) {
	byKind := make(map[models.ItemKind][]models.Item)
	for _, it := range items {
		byKind[it.Kind()] = append(byKind[it.Kind()], it)
	}
	s.mu.Lock()
	s.items = byKind
	s.mu.Unlock()
}

func (s *StaticSource) FetchItems(ctx context.Context, kind models.ItemKind) ([]models.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Item(nil), s.items[kind]...), nil
}

func SampleItems() []models.Item {
	return []models.Item{
		&models.Venue{
			VenueID:     1,
			Name:        "La Mama",
			Cat:         "Românesc",
			Address:     "Str. Republicii nr. 15",
			Description: "Restaurant traditional românesc cu mâncăruri casnice delicioase",
			TagList:     []string{"traditional", "românesc", "casnic"},
			Geo:         &models.GeoPoint{Lat: 45.7494, Lng: 21.2272},
			Stars:       4.5,
		},
		&models.Venue{
			VenueID:     2,
			Name:        "Pizza Bella",
			Cat:         "Italian",
			Address:     "Bulevardul Revoluției nr. 42",
			Description: "Pizzerie autentică cu ingrediente proaspete aduse din Italia",
			TagList:     []string{"pizza", "italian", "proaspăt"},
			Geo:         &models.GeoPoint{Lat: 45.7578, Lng: 21.2270},
			Stars:       4.3,
		},
		&models.Venue{
			VenueID:     3,
			Name:        "Sushi Zen",
			Cat:         "Japonez",
			Address:     "Str. Eminescu nr. 8",
			Description: "Restaurant japonez cu sushi proaspăt pregătit de maeștri",
			TagList:     []string{"sushi", "japonez", "fresh"},
			Geo:         &models.GeoPoint{Lat: 45.7528, Lng: 21.2285},
			Stars:       4.7,
		},
		&models.Event{
			EventID:     1,
			Name:        "Concert Rock în Centrul Vechi",
			Description: "Seară de rock cu cele mai bune trupe locale",
			Organizer:   "Rock Club Timișoara",
			TagList:     []string{"rock", "muzică", "concert"},
			Likes:       127,
		},
		&models.Event{
			EventID:     2,
			Name:        "Festival de Artă Stradală",
			Description: "Trei zile de spectacole de artă stradală și performanțe",
			Organizer:   "Primăria Timișoara",
			TagList:     []string{"artă", "festival", "stradal"},
			Likes:       89,
		},
		&models.Event{
			EventID:     3,
			Name:        "Noaptea Muzeelor",
			Description: "Intrare gratuită la toate muzeele din oraș",
			Organizer:   "Consiliul Județean",
			TagList:     []string{"muzee", "cultură", "gratuit"},
			Likes:       203,
		},
	}
}
