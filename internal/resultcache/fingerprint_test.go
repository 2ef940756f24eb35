package resultcache

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"venue-recommender/internal/models"
)

func TestFingerprint(t *testing.T) {
	base := KeyInput{
		Intent: models.IntentRestaurantSearch,
		Entities: models.Entities{
			models.EntityCuisine:    {"italian"},
			models.EntityPriceRange: {"cheap"},
		},
		Terms: []string{"restaurant", "cafe"},
	}

	tests := []struct {
		name  string
		other KeyInput
		same  bool
	}{
		{
			name:  "identical",
			other: base,
			same:  true,
		},
		{
			name: "entity order and casing do not matter",
			other: KeyInput{
				Intent: models.IntentRestaurantSearch,
				Entities: models.Entities{
					models.EntityPriceRange: {"Cheap"},
					models.EntityCuisine:    {"italian", "ITALIAN"},
				},
				Terms: []string{"Café", "restaurant"},
			},
			same: true,
		},
		{
			name: "related searches are ignored",
			other: KeyInput{
				Intent: models.IntentRestaurantSearch,
				Entities: models.Entities{
					models.EntityCuisine:         {"italian"},
					models.EntityPriceRange:      {"cheap"},
					models.EntityRelatedSearches: {"pizza near mall"},
				},
				Terms: []string{"restaurant", "cafe"},
			},
			same: true,
		},
		{
			name: "empty entity kinds are ignored",
			other: KeyInput{
				Intent: models.IntentRestaurantSearch,
				Entities: models.Entities{
					models.EntityCuisine:    {"italian"},
					models.EntityPriceRange: {"cheap"},
					models.EntityTime:       {},
				},
				Terms: []string{"restaurant", "cafe"},
			},
			same: true,
		},
		{
			name:  "different intent",
			other: KeyInput{Intent: models.IntentFoodSearch, Entities: base.Entities, Terms: base.Terms},
		},
		{
			name: "different entity value",
			other: KeyInput{
				Intent:   models.IntentRestaurantSearch,
				Entities: models.Entities{models.EntityCuisine: {"japanese"}, models.EntityPriceRange: {"cheap"}},
				Terms:    base.Terms,
			},
		},
		{
			name:  "different terms",
			other: KeyInput{Intent: base.Intent, Entities: base.Entities, Terms: []string{"sushi"}},
		},
		{
			name: "preference changes the key",
			other: KeyInput{
				Intent: base.Intent, Entities: base.Entities, Terms: base.Terms,
				Preferences: map[string]string{"cuisine": "italian"},
			},
		},
	}

	want := Fingerprint(base)
	assert.True(t, strings.HasPrefix(want, DefaultKeyPrefix))
	assert.Len(t, want, len(DefaultKeyPrefix)+64)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Fingerprint(tt.other)
			if tt.same {
				assert.Equal(t, want, got)
			} else {
				assert.NotEqual(t, want, got)
			}
		})
	}
}
