package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"

	httpclient "venue-recommender/internal/common/http"
	"venue-recommender/internal/common/validation"
	"venue-recommender/internal/models"
)

var venuesSchema = validation.MustCompile(map[string]interface{}{
	"type": "array",
	"items": map[string]interface{}{
		"type":     "object",
		"required": []interface{}{"id", "name"},
		"properties": map[string]interface{}{
			"id":          map[string]interface{}{"type": "integer"},
			"name":        map[string]interface{}{"type": "string", "minLength": 1},
			"category":    map[string]interface{}{"type": []interface{}{"string", "null"}},
			"description": map[string]interface{}{"type": []interface{}{"string", "null"}},
			"tags":        map[string]interface{}{"type": []interface{}{"array", "null"}, "items": map[string]interface{}{"type": "string"}},
			"latitude":    map[string]interface{}{"type": []interface{}{"number", "null"}},
			"longitude":   map[string]interface{}{"type": []interface{}{"number", "null"}},
			"rating":      map[string]interface{}{"type": []interface{}{"number", "null"}},
		},
	},
})

var eventsSchema = validation.MustCompile(map[string]interface{}{
	"type": "array",
	"items": map[string]interface{}{
		"type":     "object",
		"required": []interface{}{"id", "title"},
		"properties": map[string]interface{}{
			"id":          map[string]interface{}{"type": "integer"},
			"title":       map[string]interface{}{"type": "string", "minLength": 1},
			"description": map[string]interface{}{"type": []interface{}{"string", "null"}},
			"company":     map[string]interface{}{"type": []interface{}{"string", "null"}},
			"tags":        map[string]interface{}{"type": []interface{}{"array", "null"}, "items": map[string]interface{}{"type": "string"}},
			"likes":       map[string]interface{}{"type": []interface{}{"integer", "null"}},
		},
	},
})

// apiVenue is the wire shape of GET /companies.
type apiVenue struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Category    string   `json:"category"`
	Address     string   `json:"address"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	Rating      float64  `json:"rating"`
}

// apiEvent is the wire shape of GET /events.
type apiEvent struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Company     string    `json:"company"`
	Tags        []string  `json:"tags"`
	Likes       int       `json:"likes"`
	StartsAt    time.Time `json:"startsAt"`
	Latitude    *float64  `json:"latitude"`
	Longitude   *float64  `json:"longitude"`
}

// HTTPSource pulls the catalog from the venues/events REST API.
type HTTPSource struct {
	client     *httpclient.Client
	baseURL    string
	venuesPath string
	eventsPath string
	maxItems   int
}

func NewHTTPSource(client *httpclient.Client, baseURL, venuesPath, eventsPath string, maxItems int) *HTTPSource {
	return &HTTPSource{
		client:     client,
		baseURL:    strings.TrimRight(baseURL, "/"),
		venuesPath: venuesPath,
		eventsPath: eventsPath,
		maxItems:   maxItems,
	}
}

func (s *HTTPSource) Name() string { return "http" }

func (s *HTTPSource) FetchItems(ctx context.Context, kind models.ItemKind) ([]models.Item, error) {
	switch kind {
	case models.KindVenue:
		body, err := s.fetch(ctx, s.venuesPath, venuesSchema)
		if err != nil {
			return nil, err
		}
		var rows []apiVenue
		if err := json.Unmarshal(body, &rows); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		out := make([]models.Item, 0, len(rows))
		for _, r := range rows {
			out = append(out, &models.Venue{
				VenueID:     r.ID,
				Name:        r.Name,
				Cat:         r.Category,
				Address:     r.Address,
				Description: r.Description,
				TagList:     r.Tags,
				Geo:         geo(r.Latitude, r.Longitude),
				Stars:       r.Rating,
			})
		}
		return s.limit(out), nil

	case models.KindEvent:
		body, err := s.fetch(ctx, s.eventsPath, eventsSchema)
		if err != nil {
			return nil, err
		}
		var rows []apiEvent
		if err := json.Unmarshal(body, &rows); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		out := make([]models.Item, 0, len(rows))
		for _, r := range rows {
			out = append(out, &models.Event{
				EventID:     r.ID,
				Name:        r.Title,
				Description: r.Description,
				Organizer:   r.Company,
				TagList:     r.Tags,
				Likes:       r.Likes,
				StartsAt:    r.StartsAt,
				Geo:         geo(r.Latitude, r.Longitude),
			})
		}
		return s.limit(out), nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedKind, kind)
	}
}

func (s *HTTPSource) fetch(ctx context.Context, path string, schema *validation.Schema) ([]byte, error) {
	body, err := s.client.GetJSON(ctx, s.baseURL+path)
	if err != nil {
		return nil, err
	}
	result, err := schema.ValidateBytes(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if !result.Valid {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPayload, result.Error())
	}
	return body, nil
}

func (s *HTTPSource) limit(items []models.Item) []models.Item {
	if s.maxItems > 0 && len(items) > s.maxItems {
		return items[:s.maxItems]
	}
	return items
}

func geo(lat, lng *float64) *models.GeoPoint {
	if lat == nil || lng == nil {
		return nil
	}
	return &models.GeoPoint{Lat: *lat, Lng: *lng}
}
