package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"venue-recommender/internal/models"
)

const (
	venuesQuery = `SELECT id, name, category, address, description, tags, latitude, longitude, rating
	               FROM venues ORDER BY id LIMIT $1`
	eventsQuery = `SELECT id, title, description, company, tags, likes, starts_at
	               FROM events ORDER BY id LIMIT $1`
)

// PostgresSource reads the catalog from the venues and events tables.
type PostgresSource struct {
	db       *sql.DB
	maxItems int
}

func NewPostgresSource(db *sql.DB, maxItems int) *PostgresSource {
	if maxItems <= 0 {
		maxItems = 1000
	}
	return &PostgresSource{db: db, maxItems: maxItems}
}

func (s *PostgresSource) Name() string { return "postgres" }

func (s *PostgresSource) FetchItems(ctx context.Context, kind models.ItemKind) ([]models.Item, error) {
	switch kind {
	case models.KindVenue:
		return s.venues(ctx)
	case models.KindEvent:
		return s.events(ctx)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedKind, kind)
	}
}

func (s *PostgresSource) venues(ctx context.Context) ([]models.Item, error) {
	rows, err := s.db.QueryContext(ctx, venuesQuery, s.maxItems)
	if err != nil {
		return nil, fmt.Errorf("postgres: query venues: %w", err)
	}
	defer rows.Close()

	var out []models.Item
	for rows.Next() {
		var (
			v                       models.Venue
			category, address, desc sql.NullString
			tags                    pq.StringArray
			lat, lng, rating        sql.NullFloat64
		)
		if err := rows.Scan(&v.VenueID, &v.Name, &category, &address, &desc, &tags, &lat, &lng, &rating); err != nil {
			return nil, fmt.Errorf("postgres: scan venue: %w", err)
		}
		v.Cat = category.String
		v.Address = address.String
		v.Description = desc.String
		v.TagList = []string(tags)
		v.Stars = rating.Float64
		if lat.Valid && lng.Valid {
			v.Geo = &models.GeoPoint{Lat: lat.Float64, Lng: lng.Float64}
		}
		out = append(out, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate venues: %w", err)
	}
	return out, nil
}

func (s *PostgresSource) events(ctx context.Context) ([]models.Item, error) {
	rows, err := s.db.QueryContext(ctx, eventsQuery, s.maxItems)
	if err != nil {
		return nil, fmt.Errorf("postgres: query events: %w", err)
	}
	defer rows.Close()

	var out []models.Item
	for rows.Next() {
		var (
			e             models.Event
			desc, company sql.NullString
			tags          pq.StringArray
			likes         sql.NullInt64
			startsAt      sql.NullTime
		)
		if err := rows.Scan(&e.EventID, &e.Name, &desc, &company, &tags, &likes, &startsAt); err != nil {
			return nil, fmt.Errorf("postgres: scan event: %w", err)
		}
		e.Description = desc.String
		e.Organizer = company.String
		e.TagList = []string(tags)
		e.Likes = int(likes.Int64)
		if startsAt.Valid {
			e.StartsAt = startsAt.Time
		}
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate events: %w", err)
	}
	return out, nil
}
