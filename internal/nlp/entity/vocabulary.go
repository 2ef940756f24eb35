package entity

import (
	"strings"

	"venue-recommender/internal/models"
	"venue-recommender/internal/nlp/normalize"
)

// minPrefixLen is the shortest stem allowed to match as a token prefix, so
// "italian" covers "italiana" while "art" only ever matches "art".
const minPrefixLen = 5

// Term is one canonical vocabulary value with the stems that select it.
// Stems may span several words ("fine dining", "mic dejun").
type Term struct {
	Value string
	Stems []string
}

// Vocabulary maps an entity kind to its ordered terms.
type Vocabulary map[models.EntityKind][]Term

// DefaultVocabulary covers English and Romanian forms. Every stem is stored
// in normalized form.
func DefaultVocabulary() Vocabulary {
	v := Vocabulary{
		models.EntityCuisine: {
			{"italian", []string{"italian"}},
			{"chinese", []string{"chinese", "chinez"}},
			{"mexican", []string{"mexican"}},
			{"indian", []string{"indian"}},
			{"american", []string{"american"}},
			{"french", []string{"french", "frantuz", "francez"}},
			{"japanese", []string{"japanese", "japonez"}},
			{"korean", []string{"korean", "coreean"}},
			{"thai", []string{"thai"}},
			{"vietnamese", []string{"vietnam"}},
			{"mediterranean", []string{"mediterran", "mediteran"}},
			{"spanish", []string{"spanish", "spaniol"}},
			{"greek", []string{"greek", "grec", "grecesc", "greceasc"}},
			{"turkish", []string{"turkish", "turc", "turcesc", "turceasc"}},
			{"lebanese", []string{"lebanese", "liban"}},
			{"moroccan", []string{"moroccan", "marocan"}},
			{"romanian", []string{"romanian", "romanesc", "romaneasc"}},
		},
		models.EntityPriceRange: {
			{"cheap", []string{"cheap", "ieftin"}},
			{"budget", []string{"budget", "buget", "accesibil"}},
			{"expensive", []string{"expensive", "scump"}},
			{"fine dining", []string{"fine dining", "luxos", "lux"}},
			{"casual", []string{"casual", "mediu"}},
		},
		models.EntityTime: {
			{"now", []string{"now", "acum"}},
			{"today", []string{"today", "azi", "astazi"}},
			{"tonight", []string{"tonight", "diseara", "in seara asta"}},
			{"tomorrow", []string{"tomorrow", "maine"}},
			{"weekend", []string{"weekend"}},
			{"weekday", []string{"weekday", "in timpul saptamanii"}},
			{"lunch", []string{"lunch", "pranz"}},
			{"dinner", []string{"dinner", "cina"}},
			{"breakfast", []string{"breakfast", "mic dejun"}},
			{"morning", []string{"morning", "dimineata"}},
			{"afternoon", []string{"afternoon", "dupa amiaza"}},
			{"evening", []string{"evening", "seara"}},
		},
		models.EntityMealTime: {
			{"breakfast", []string{"breakfast", "mic dejun"}},
			{"brunch", []string{"brunch"}},
			{"lunch", []string{"lunch", "pranz"}},
			{"dinner", []string{"dinner", "cina"}},
			{"snack", []string{"snack", "gustare"}},
		},
		models.EntityEventType: {
			{"concert", []string{"concert"}},
			{"festival", []string{"festival"}},
			{"comedy", []string{"comedy", "comedie", "stand up"}},
			{"theater", []string{"theater", "theatre", "teatru"}},
			{"art", []string{"art", "arta", "artistic"}},
			{"exhibition", []string{"exhibition", "expozitie", "expozitii"}},
			{"workshop", []string{"workshop", "atelier"}},
			{"conference", []string{"conference", "conferinta"}},
			{"sports", []string{"sport", "sports"}},
			{"nightlife", []string{"nightlife", "club"}},
			{"music", []string{"music", "muzica"}},
			{"dance", []string{"dance", "dans"}},
			{"show", []string{"show", "spectacol"}},
			{"party", []string{"party", "petrecere", "petreceri"}},
		},
		models.EntityDietary: {
			{"vegetarian", []string{"vegetarian"}},
			{"vegan", []string{"vegan", "de post"}},
			{"gluten free", []string{"gluten free", "fara gluten"}},
			{"lactose free", []string{"lactose free", "fara lactoza"}},
			{"halal", []string{"halal"}},
			{"kosher", []string{"kosher"}},
		},
	}
	return v
}

// Lookup returns the term for value, if kind has one.
func (v Vocabulary) Lookup(kind models.EntityKind, value string) (Term, bool) {
	for _, t := range v[kind] {
		if t.Value == value {
			return t, true
		}
	}
	return Term{}, false
}

// Mentions reports whether text (any casing, any diacritics) mentions value
// of the given kind through one of its stems. Values unknown to the
// vocabulary are matched literally.
func (v Vocabulary) Mentions(kind models.EntityKind, value, text string) bool {
	stems := []string{normalize.Normalize(value)}
	if t, ok := v.Lookup(kind, value); ok {
		stems = t.Stems
	}
	fields := strings.Fields(normalize.Normalize(text))
	for _, s := range stems {
		if containsStem(fields, s) {
			return true
		}
	}
	return false
}

// find returns the canonical values of kind mentioned in fields, in
// vocabulary order.
func (v Vocabulary) find(kind models.EntityKind, fields []string) []string {
	var out []string
	for _, t := range v[kind] {
		for _, s := range t.Stems {
			if containsStem(fields, s) {
				out = append(out, t.Value)
				break
			}
		}
	}
	return out
}

// contains reports whether tok is any stem of kind.
func (v Vocabulary) contains(kind models.EntityKind, tok string) bool {
	for _, t := range v[kind] {
		for _, s := range t.Stems {
			if tokenMatches(tok, s) {
				return true
			}
		}
	}
	return false
}

// containsStem matches a possibly multi-word stem against consecutive fields.
// Only the last word of the stem may match as a prefix.
func containsStem(fields []string, stem string) bool {
	words := strings.Fields(stem)
	if len(words) == 0 || len(words) > len(fields) {
		return false
	}
outer:
	for i := 0; i+len(words) <= len(fields); i++ {
		for j, w := range words {
			f := fields[i+j]
			if j == len(words)-1 {
				if !tokenMatches(f, w) {
					continue outer
				}
			} else if f != w {
				continue outer
			}
		}
		return true
	}
	return false
}

func tokenMatches(tok, stem string) bool {
	if tok == stem {
		return true
	}
	return len(stem) >= minPrefixLen && strings.HasPrefix(tok, stem)
}
