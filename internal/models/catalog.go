// internal/models/catalog.go
package models

import (
	"strings"
	"time"
)

// ItemKind distinguishes the catalog variants.
type ItemKind string

const (
	KindVenue ItemKind = "venue"
	KindEvent ItemKind = "event"
)

// AllKinds lists every catalog kind in fetch order.
var AllKinds = []ItemKind{KindVenue, KindEvent}

// GeoPoint is a WGS84 coordinate.
type GeoPoint struct {
	Lat float64 `json:"latitude"`
	Lng float64 `json:"longitude"`
}

// Item is the capability shared by every catalog variant. Implementations are
// immutable once placed in a snapshot.
type Item interface {
	ID() int64
	Kind() ItemKind
	Title() string
	Category() string
	Summary() string
	Tags() []string
	SearchText() string
	Rating() float64
	Location() *GeoPoint
}

// Venue is a restaurant, bar or cafe from the catalog.
type Venue struct {
	VenueID     int64     `json:"id"`
	Name        string    `json:"name"`
	Cat         string    `json:"category"`
	Address     string    `json:"address"`
	Description string    `json:"description"`
	TagList     []string  `json:"tags"`
	Geo         *GeoPoint `json:"geo,omitempty"`
	Stars       float64   `json:"rating"`
}

func (v *Venue) ID() int64           { return v.VenueID }
func (v *Venue) Kind() ItemKind      { return KindVenue }
func (v *Venue) Title() string       { return v.Name }
func (v *Venue) Category() string    { return v.Cat }
func (v *Venue) Summary() string     { return v.Description }
func (v *Venue) Tags() []string      { return v.TagList }
func (v *Venue) Rating() float64     { return v.Stars }
func (v *Venue) Location() *GeoPoint { return v.Geo }

// SearchText concatenates every searchable field.
func (v *Venue) SearchText() string {
	parts := []string{v.Name, v.Cat, v.Description, v.Address}
	parts = append(parts, v.TagList...)
	return strings.Join(parts, " ")
}

// Event is a dated happening from the catalog.
type Event struct {
	EventID     int64     `json:"id"`
	Name        string    `json:"title"`
	Description string    `json:"description"`
	Organizer   string    `json:"company"`
	TagList     []string  `json:"tags"`
	Likes       int       `json:"likes"`
	StartsAt    time.Time `json:"startsAt"`
	Geo         *GeoPoint `json:"geo,omitempty"`
}

func (e *Event) ID() int64           { return e.EventID }
func (e *Event) Kind() ItemKind      { return KindEvent }
func (e *Event) Title() string       { return e.Name }
func (e *Event) Category() string    { return e.Organizer }
func (e *Event) Summary() string     { return e.Description }
func (e *Event) Tags() []string      { return e.TagList }
func (e *Event) Location() *GeoPoint { return e.Geo }

// Rating maps likes onto the same 0-5 scale venues use.
func (e *Event) Rating() float64 {
	if e.Likes <= 0 {
		return 0
	}
	r := float64(e.Likes) / 50.0
	if r > 5 {
		r = 5
	}
	return r
}

// SearchText concatenates every searchable field.
func (e *Event) SearchText() string {
	parts := []string{e.Name, e.Description, e.Organizer}
	parts = append(parts, e.TagList...)
	return strings.Join(parts, " ")
}

// ItemKey identifies an item across kinds; ids are only unique per kind.
type ItemKey struct {
	Kind ItemKind `json:"kind"`
	ID   int64    `json:"id"`
}

// KeyOf returns the ItemKey of it.
func KeyOf(it Item) ItemKey {
	return ItemKey{Kind: it.Kind(), ID: it.ID()}
}

// ToRecommendation builds the transport view of a ranked result.
func ToRecommendation(r RankedResult) Recommendation {
	return Recommendation{
		ID:          r.Item.ID(),
		Kind:        r.Item.Kind(),
		Title:       r.Item.Title(),
		Category:    r.Item.Category(),
		Description: r.Item.Summary(),
		Tags:        r.Item.Tags(),
		Rating:      r.Item.Rating(),
		Score:       r.Score,
		MatchReason: string(r.MatchReason),
	}
}
