package retrieval

import (
	"strings"

	"venue-recommender/internal/models"
)

// filter applies the entity hard filters. A venue must mention one of the
// requested cuisines (or the stored cuisine preference when the query names
// none) in its category or tags; an event must mention one of the requested
// event types in its title, description or tags.
func (r *Retriever) filter(items []models.Item, ents models.Entities, prev *models.ConversationContext) []models.Item {
	cuisines := ents[models.EntityCuisine]
	if pref := EffectivePreferences(ents, prev)[PreferenceCuisine]; pref != "" {
		cuisines = []string{pref}
	}
	eventTypes := ents[models.EntityEventType]

	if len(cuisines) == 0 && len(eventTypes) == 0 {
		return items
	}

	out := make([]models.Item, 0, len(items))
	for _, it := range items {
		switch it.Kind() {
		case models.KindVenue:
			if len(cuisines) > 0 && !r.mentionsAny(models.EntityCuisine, cuisines, venueFacets(it)) {
				continue
			}
		case models.KindEvent:
			if len(eventTypes) > 0 && !r.mentionsAny(models.EntityEventType, eventTypes, eventFacets(it)) {
				continue
			}
		}
		out = append(out, it)
	}
	return out
}

// EffectivePreferences returns the stored preferences the filters would apply
// to this query. Cache keys are built from it so that learning a preference
// the query already overrides does not change the key.
func EffectivePreferences(ents models.Entities, prev *models.ConversationContext) map[string]string {
	out := map[string]string{}
	if prev == nil || ents.Has(models.EntityCuisine) {
		return out
	}
	if pref := prev.Preferences[PreferenceCuisine]; pref != "" {
		out[PreferenceCuisine] = pref
	}
	return out
}

func (r *Retriever) mentionsAny(kind models.EntityKind, values []string, text string) bool {
	for _, v := range values {
		if r.vocab.Mentions(kind, v, text) {
			return true
		}
	}
	return false
}

func venueFacets(it models.Item) string {
	return it.Category() + " " + strings.Join(it.Tags(), " ")
}

func eventFacets(it models.Item) string {
	return it.Title() + " " + it.Summary() + " " + strings.Join(it.Tags(), " ")
}
