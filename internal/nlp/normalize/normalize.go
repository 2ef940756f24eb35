// Package normalize turns raw user text into the canonical form shared by
// intent rules, entity vocabularies, cache keys and keyword retrieval.
//
// Normalization is NFKD decomposition with combining marks removed, then
// lowercasing, then every run of non letter/digit characters collapsed to a
// single space. Applying it twice yields the same string.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize returns the lowercase, diacritic-free, whitespace-collapsed form of s.
func Normalize(s string) string {
	if s == "" {
		return ""
	}

	stripped := StripDiacritics(s)
	lowered := strings.ToLower(stripped)

	var b strings.Builder
	b.Grow(len(lowered))
	pendingSpace := false
	for _, r := range lowered {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(r)
			continue
		}
		pendingSpace = true
	}
	return b.String()
}

// StripDiacritics removes combining marks after compatibility decomposition
// but keeps case and punctuation. "Mâncare în Centrul Vechi" becomes
// "Mancare in Centrul Vechi".
func StripDiacritics(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Tokens normalizes s and returns its content words: stop-words, single
// character tokens and purely numeric tokens are dropped. The result is never
// nil.
func Tokens(s string) []string {
	return filter(strings.Fields(Normalize(s)))
}

// Analyze returns both the normalized text and its content tokens.
func Analyze(s string) (string, []string) {
	n := Normalize(s)
	return n, filter(strings.Fields(n))
}

// TokenSet returns the distinct content tokens of s.
func TokenSet(s string) map[string]struct{} {
	toks := Tokens(s)
	set := make(map[string]struct{}, len(toks))
	for _, t := range toks {
		set[t] = struct{}{}
	}
	return set
}

// IsStopWord reports whether an already normalized token is a stop-word.
func IsStopWord(tok string) bool {
	_, ok := stopWords[tok]
	return ok
}

func filter(fields []string) []string {
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if len([]rune(f)) <= 1 || isNumeric(f) || IsStopWord(f) {
			continue
		}
		out = append(out, f)
	}
	return out
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
