package catalog

import (
	"bytes"
	"context"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/goccy/go-json"

	"venue-recommender/internal/models"
)

// ElasticsearchSource reads the catalog from one index per item kind.
type ElasticsearchSource struct {
	client     *elasticsearch.Client
	venueIndex string
	eventIndex string
	maxItems   int
}

func NewElasticsearchSource(client *elasticsearch.Client, venueIndex, eventIndex string, maxItems int) *ElasticsearchSource {
	if maxItems <= 0 {
		maxItems = 1000
	}
	return &ElasticsearchSource{client: client, venueIndex: venueIndex, eventIndex: eventIndex, maxItems: maxItems}
}

func (s *ElasticsearchSource) Name() string { return "elasticsearch" }

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Source json.RawMessage `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func (s *ElasticsearchSource) FetchItems(ctx context.Context, kind models.ItemKind) ([]models.Item, error) {
	var index string
	switch kind {
	case models.KindVenue:
		index = s.venueIndex
	case models.KindEvent:
		index = s.eventIndex
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedKind, kind)
	}

	queryBody := map[string]interface{}{
		"query": map[string]interface{}{"match_all": map[string]interface{}{}},
		"sort":  []interface{}{map[string]interface{}{"id": "asc"}},
		"size":  s.maxItems,
	}
	body, err := json.Marshal(queryBody)
	if err != nil {
		return nil, err
	}

	req := esapi.SearchRequest{
		Index: []string{index},
		Body:  bytes.NewReader(body),
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: search %s: %w", index, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch: search %s failed: %s", index, res.Status())
	}

	var r searchResponse
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	out := make([]models.Item, 0, len(r.Hits.Hits))
	for _, hit := range r.Hits.Hits {
		switch kind {
		case models.KindVenue:
			var v apiVenue
			if err := json.Unmarshal(hit.Source, &v); err != nil || v.Name == "" {
				continue
			}
			out = append(out, &models.Venue{
				VenueID: v.ID, Name: v.Name, Cat: v.Category, Address: v.Address,
				Description: v.Description, TagList: v.Tags, Geo: geo(v.Latitude, v.Longitude), Stars: v.Rating,
			})
		case models.KindEvent:
			var e apiEvent
			if err := json.Unmarshal(hit.Source, &e); err != nil || e.Title == "" {
				continue
			}
			out = append(out, &models.Event{
				EventID: e.ID, Name: e.Title, Description: e.Description, Organizer: e.Company,
				TagList: e.Tags, Likes: e.Likes, StartsAt: e.StartsAt, Geo: geo(e.Latitude, e.Longitude),
			})
		}
	}
	return out, nil
}
