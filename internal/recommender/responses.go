package recommender

import (
	"fmt"

	"venue-recommender/internal/models"
)

const (
	apologyText  = "Îmi pare rău, a apărut o problemă. Te rog să încerci din nou."
	greetingText = "Salut! Te pot ajuta să găsești un restaurant sau un eveniment în oraș."
	noResultText = "Nu am găsit nimic potrivit. Poți încerca să reformulezi căutarea?"

	hintCuisine   = "Ce tip de bucătărie preferi?"
	hintPrice     = "Ce buget ai în minte?"
	hintLocation  = "În ce zonă a orașului cauți?"
	hintEventType = "Ce fel de eveniment te interesează?"
	hintTime      = "Când ai vrea să ieși?"
	hintOnboard   = "Cauți un restaurant sau un eveniment?"
)

func responseText(in models.Intent, n int) string {
	switch {
	case in == models.IntentGreeting:
		return greetingText
	case n == 0:
		return noResultText
	case n == 1:
		return "Am găsit o recomandare pentru tine."
	case in == models.IntentEventSearch:
		return fmt.Sprintf("Am găsit %d evenimente care s-ar putea să-ți placă.", n)
	default:
		return fmt.Sprintf("Am găsit %d recomandări pentru tine.", n)
	}
}

// followUpHints suggests what the user could add to narrow the next search.
// First-time users are asked what they are looking for.
func followUpHints(analysis models.QueryAnalysis, firstTurn bool, max int) []string {
	hints := make([]string, 0, max)
	add := func(h string) {
		if len(hints) < max {
			hints = append(hints, h)
		}
	}

	ents := analysis.Entities
	switch analysis.Intent {
	case models.IntentRestaurantSearch, models.IntentFoodSearch:
		if !ents.Has(models.EntityCuisine) {
			add(hintCuisine)
		}
		if !ents.Has(models.EntityPriceRange) {
			add(hintPrice)
		}
		if !ents.Has(models.EntityLocation) {
			add(hintLocation)
		}
	case models.IntentEventSearch:
		if !ents.Has(models.EntityEventType) {
			add(hintEventType)
		}
		if !ents.Has(models.EntityTime) {
			add(hintTime)
		}
	case models.IntentGreeting, models.IntentGeneral:
		if firstTurn || analysis.Intent == models.IntentGreeting {
			add(hintOnboard)
		}
	}
	return hints
}
