// Package intent assigns one intent from a closed set to a raw query using a
// declarative table of language-tagged regular expressions.
package intent

import (
	"sort"
	"strings"

	"venue-recommender/internal/models"
	"venue-recommender/internal/nlp/normalize"
)

// Classification is the classifier's output for one query.
type Classification struct {
	Intent       models.Intent
	Confidence   float64
	Sticky       bool
	Alternatives []models.IntentScore
}

type Option func(*Classifier)

// WithRules appends rules for an intent, creating the intent entry if needed.
func WithRules(intent models.Intent, rules ...Rule) Option {
	return func(c *Classifier) {
		if _, ok := c.rules[intent]; !ok {
			c.order = append(c.order, intent)
		}
		c.rules[intent] = append(c.rules[intent], rules...)
	}
}

// WithTable replaces the whole rule table.
func WithTable(table RuleTable) Option {
	return func(c *Classifier) {
		c.rules = table.Clone()
		c.order = orderOf(c.rules)
	}
}

// WithContinuations replaces the phrases that keep the previous intent.
func WithContinuations(phrases ...string) Option {
	return func(c *Classifier) {
		c.continuations = make([]string, 0, len(phrases))
		for _, p := range phrases {
			if n := normalize.Normalize(p); n != "" {
				c.continuations = append(c.continuations, n)
			}
		}
	}
}

// Classifier is safe for concurrent use once constructed.
type Classifier struct {
	rules         RuleTable
	order         []models.Intent
	continuations []string
}

func New(opts ...Option) *Classifier {
	c := &Classifier{
		rules:         DefaultRules(),
		continuations: defaultContinuations,
	}
	c.order = orderOf(c.rules)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// orderOf lists intents in the canonical order first, then any extras sorted
// by name, so scoring and alternatives are deterministic.
func orderOf(t RuleTable) []models.Intent {
	order := make([]models.Intent, 0, len(t))
	seen := make(map[models.Intent]bool, len(t))
	for _, in := range models.AllIntents {
		if _, ok := t[in]; ok {
			order = append(order, in)
			seen[in] = true
		}
	}
	var extra []models.Intent
	for in := range t {
		if !seen[in] {
			extra = append(extra, in)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	return append(order, extra...)
}

// Score returns the number of rules hit per intent.
func (c *Classifier) Score(query string) map[models.Intent]int {
	stripped := normalize.StripDiacritics(query)
	scores := make(map[models.Intent]int, len(c.order))
	for _, in := range c.order {
		hits := 0
		for _, r := range c.rules[in] {
			if matches(r, query, stripped) {
				hits++
			}
		}
		scores[in] = hits
	}
	return scores
}

func matches(r Rule, raw, stripped string) bool {
	if r.Pattern.MatchString(raw) {
		return true
	}
	if r.Lang == LangEN || stripped == raw {
		return false
	}
	return r.Pattern.MatchString(stripped)
}

// Classify resolves the intent of query. prev is a read-only view of the
// session and may be nil.
func (c *Classifier) Classify(query string, prev *models.ConversationContext) Classification {
	scores := c.Score(query)

	best, bestScore, tie := models.IntentGeneral, 0, false
	for _, in := range c.order {
		s := scores[in]
		switch {
		case s > bestScore:
			best, bestScore, tie = in, s, false
		case s == bestScore && s > 0:
			tie = true
		}
	}

	// ties and all-zero scores are ambiguous and resolve to general
	resolved := bestScore > 0 && !tie
	out := Classification{Intent: models.IntentGeneral, Alternatives: c.alternatives(scores)}
	if resolved {
		out.Intent = best
		out.Confidence = c.confidence(best, bestScore)
	}

	if prev != nil && c.isSticky(query, prev.CurrentIntent, resolved) {
		out.Intent = prev.CurrentIntent
		out.Sticky = true
		// a carried-over intent is scored on this query's hits alone
		out.Confidence = c.confidence(prev.CurrentIntent, scores[prev.CurrentIntent])
	}

	return out
}

func (c *Classifier) confidence(in models.Intent, hits int) float64 {
	n := len(c.rules[in])
	if n == 0 || hits <= 0 {
		return 0
	}
	conf := float64(hits) / float64(n)
	if conf > 1 {
		conf = 1
	}
	return conf
}

func (c *Classifier) alternatives(scores map[models.Intent]int) []models.IntentScore {
	alts := make([]models.IntentScore, 0, len(scores))
	for _, in := range c.order {
		if s := scores[in]; s > 0 {
			alts = append(alts, models.IntentScore{Intent: in, Score: s})
		}
	}
	sort.SliceStable(alts, func(i, j int) bool { return alts[i].Score > alts[j].Score })
	if len(alts) > 3 {
		alts = alts[:3]
	}
	return alts
}

// isSticky is a topic-continuity heuristic: the previous intent is kept when
// its label literally appears in the query, or when the query resolved to
// nothing on its own and contains a continuation phrase like "mai arata-mi".
func (c *Classifier) isSticky(query string, prev models.Intent, resolved bool) bool {
	switch prev {
	case "", models.IntentGeneral, models.IntentGreeting, models.IntentError:
		return false
	}

	lower := strings.ToLower(query)
	label := string(prev)
	if strings.Contains(lower, label) || strings.Contains(lower, strings.ReplaceAll(label, "_", " ")) {
		return true
	}
	if resolved {
		return false
	}

	padded := " " + normalize.Normalize(query) + " "
	for _, phrase := range c.continuations {
		if strings.Contains(padded, " "+phrase+" ") {
			return true
		}
	}
	return false
}
