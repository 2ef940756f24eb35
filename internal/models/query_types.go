// internal/models/query_types.go
package models

import "time"

// Intent is the discrete category of what the user is trying to accomplish.
type Intent string

const (
	IntentGreeting         Intent = "greeting"
	IntentRestaurantSearch Intent = "restaurant_search"
	IntentEventSearch      Intent = "event_search"
	IntentFoodSearch       Intent = "food_search"
	IntentLocationQuery    Intent = "location_query"
	IntentPriceQuery       Intent = "price_query"
	IntentHoursQuery       Intent = "hours_query"
	IntentReservation      Intent = "reservation"
	IntentReviewQuery      Intent = "review_query"
	IntentComparison       Intent = "comparison"
	IntentGeneral          Intent = "general"

	// IntentError is only produced by the orchestrator when a turn degrades.
	IntentError Intent = "error"
)

// AllIntents lists the classifiable intents in tie-break order.
var AllIntents = []Intent{
	IntentGreeting,
	IntentRestaurantSearch,
	IntentEventSearch,
	IntentFoodSearch,
	IntentLocationQuery,
	IntentPriceQuery,
	IntentHoursQuery,
	IntentReservation,
	IntentReviewQuery,
	IntentComparison,
	IntentGeneral,
}

// Valid reports whether i is a member of the classifiable set.
func (i Intent) Valid() bool {
	for _, known := range AllIntents {
		if i == known {
			return true
		}
	}
	return false
}

// EntityKind names a family of extracted values.
type EntityKind string

const (
	EntityCuisine         EntityKind = "cuisine"
	EntityPriceRange      EntityKind = "price_range"
	EntityTime            EntityKind = "time"
	EntityEventType       EntityKind = "event_type"
	EntityMealTime        EntityKind = "meal_time"
	EntityDietary         EntityKind = "dietary"
	EntityLocation        EntityKind = "location"
	EntityRelatedSearches EntityKind = "related_searches"
)

// Entities maps an entity kind to the surface forms found for it. Kinds with
// no matches are absent.
type Entities map[EntityKind][]string

// Has reports whether at least one value was extracted for kind.
func (e Entities) Has(kind EntityKind) bool {
	return len(e[kind]) > 0
}

// Clone returns a deep copy.
func (e Entities) Clone() Entities {
	if e == nil {
		return Entities{}
	}
	out := make(Entities, len(e))
	for k, v := range e {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// IntentScore is one entry of the classifier's ranked alternatives.
type IntentScore struct {
	Intent Intent `json:"intent"`
	Score  int    `json:"score"`
}

// QueryAnalysis is the stateless result of classifying and extracting a query.
type QueryAnalysis struct {
	Query        string        `json:"query"`
	Normalized   string        `json:"normalized"`
	Tokens       []string      `json:"tokens"`
	Intent       Intent        `json:"intent"`
	Confidence   float64       `json:"confidence"`
	Sticky       bool          `json:"sticky"`
	Entities     Entities      `json:"entities"`
	Alternatives []IntentScore `json:"alternativeIntents"`
}

// MatchReason records which retrieval path produced a result.
type MatchReason string

const (
	MatchKeyword  MatchReason = "keyword"
	MatchSemantic MatchReason = "semantic"
	MatchBoth     MatchReason = "both"
)

// RankedResult is a catalog item with its relevance score.
type RankedResult struct {
	Item        Item        `json:"-"`
	Score       float64     `json:"score"`
	MatchReason MatchReason `json:"matchReason"`
}

// TurnState is a step of the per-turn processing state machine.
type TurnState string

const (
	StateReceived       TurnState = "received"
	StateNormalized     TurnState = "normalized"
	StateClassified     TurnState = "classified"
	StateExtracted      TurnState = "extracted"
	StateCacheChecked   TurnState = "cache_checked"
	StateCacheHit       TurnState = "cache_hit"
	StateRetrieving     TurnState = "retrieving"
	StateContextUpdated TurnState = "context_updated"
	StateDelivered      TurnState = "delivered"
)

// Recommendation is the transport-facing view of a ranked result.
type Recommendation struct {
	ID          int64    `json:"id"`
	Kind        ItemKind `json:"kind"`
	Title       string   `json:"title"`
	Category    string   `json:"category,omitempty"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Rating      float64  `json:"rating"`
	Score       float64  `json:"relevanceScore"`
	MatchReason string   `json:"matchReason"`
}

// TurnResult is what one conversation turn delivers to the transport layer.
type TurnResult struct {
	TurnID          string           `json:"turnId"`
	Text            string           `json:"text"`
	Intent          Intent           `json:"intent"`
	Confidence      float64          `json:"confidence"`
	Entities        Entities         `json:"entities"`
	Recommendations []Recommendation `json:"recommendations"`
	FollowUpHints   []string         `json:"followUpHints"`
	CacheHit        bool             `json:"cacheHit"`
	FinalState      TurnState        `json:"finalState"`
	ProcessingTime  time.Duration    `json:"processingTime"`
	Error           string           `json:"error,omitempty"`
}
