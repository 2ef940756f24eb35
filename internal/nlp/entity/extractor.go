// Package entity pulls structured hints (cuisine, price tier, time, event
// type, meal, dietary needs, location) out of free text. Extraction never
// fails; finding nothing is the normal case.
package entity

import (
	"regexp"
	"strings"

	"venue-recommender/internal/models"
	"venue-recommender/internal/nlp/normalize"
)

// relatedWindow is how many recent searches are considered for carry-over.
const relatedWindow = 3

// vocabularyKinds is the extraction order for the vocabulary-driven kinds.
var vocabularyKinds = []models.EntityKind{
	models.EntityCuisine,
	models.EntityPriceRange,
	models.EntityTime,
	models.EntityEventType,
	models.EntityMealTime,
	models.EntityDietary,
}

// prepositionPattern captures a location preposition and up to three
// following words. It runs on normalized text.
var prepositionPattern = regexp.MustCompile(`\b(near|close to|around|in|at|langa|aproape de|in zona|la)\s+([a-z0-9]+(?:\s+[a-z0-9]+){0,2})`)

// defaultPlaces are known location nouns, longest first.
var defaultPlaces = []string{
	"centrul vechi", "zona veche", "old town", "city center",
	"downtown", "center", "centre", "centrul", "centru", "mall",
	"plaza", "piata", "street", "strada", "avenue", "bulevardul", "bulevard",
}

// Extractor is safe for concurrent use.
type Extractor struct {
	vocab  Vocabulary
	places []string
}

type Option func(*Extractor)

// WithVocabulary replaces the default vocabulary.
func WithVocabulary(v Vocabulary) Option {
	return func(e *Extractor) { e.vocab = v }
}

// WithPlaces replaces the known location nouns.
func WithPlaces(places ...string) Option {
	return func(e *Extractor) {
		e.places = make([]string, 0, len(places))
		for _, p := range places {
			if n := normalize.Normalize(p); n != "" {
				e.places = append(e.places, n)
			}
		}
	}
}

func New(opts ...Option) *Extractor {
	e := &Extractor{vocab: DefaultVocabulary(), places: defaultPlaces}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Vocabulary exposes the vocabulary so filters can test item text with the
// same stems used for extraction.
func (e *Extractor) Vocabulary() Vocabulary {
	return e.vocab
}

// Extract returns every entity found in query. prev is a read-only view of
// the session and may be nil.
func (e *Extractor) Extract(query string, prev *models.ConversationContext) models.Entities {
	out := models.Entities{}
	norm := normalize.Normalize(query)
	fields := strings.Fields(norm)

	for _, kind := range vocabularyKinds {
		if vals := e.vocab.find(kind, fields); len(vals) > 0 {
			out[kind] = vals
		}
	}

	if locs := e.locations(norm); len(locs) > 0 {
		out[models.EntityLocation] = locs
	}

	if prev != nil {
		if related := relatedSearches(query, prev.SearchHistory); len(related) > 0 {
			out[models.EntityRelatedSearches] = related
		}
	}

	return out
}

func (e *Extractor) locations(norm string) []string {
	var out []string
	seen := map[string]bool{}
	add := func(loc string) {
		if loc == "" || seen[loc] {
			return
		}
		seen[loc] = true
		out = append(out, loc)
	}

	for _, m := range prepositionPattern.FindAllStringSubmatch(norm, -1) {
		add(e.trimPhrase(m[2]))
	}

	padded := " " + norm + " "
	for _, place := range e.places {
		if !strings.Contains(padded, " "+place+" ") {
			continue
		}
		covered := false
		for _, loc := range out {
			if strings.Contains(" "+loc+" ", " "+place+" ") {
				covered = true
				break
			}
		}
		if !covered {
			add(place)
		}
	}
	return out
}

// trimPhrase keeps the leading words of a captured location up to the first
// stop-word or word that belongs to another entity kind.
func (e *Extractor) trimPhrase(phrase string) string {
	words := strings.Fields(phrase)
	keep := words[:0:0]
	for _, w := range words {
		if normalize.IsStopWord(w) || len(w) <= 1 || e.isOtherEntity(w) {
			break
		}
		keep = append(keep, w)
	}
	return strings.Join(keep, " ")
}

func (e *Extractor) isOtherEntity(tok string) bool {
	for _, kind := range vocabularyKinds {
		if e.vocab.contains(kind, tok) {
			return true
		}
	}
	return false
}

// relatedSearches is a recency heuristic: when any of the last few searches
// shares a content token with the query, all of those recent searches are
// attached.
func relatedSearches(query string, history []string) []string {
	if len(history) == 0 {
		return nil
	}
	recent := history
	if len(recent) > relatedWindow {
		recent = recent[len(recent)-relatedWindow:]
	}

	qset := normalize.TokenSet(query)
	if len(qset) == 0 {
		return nil
	}
	for _, past := range recent {
		for _, tok := range normalize.Tokens(past) {
			if _, ok := qset[tok]; ok {
				return append([]string(nil), recent...)
			}
		}
	}
	return nil
}
