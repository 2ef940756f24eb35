package resultcache

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"

	"github.com/goccy/go-json"

	"venue-recommender/internal/models"
	"venue-recommender/internal/nlp/normalize"
)

// DefaultKeyPrefix namespaces result-set keys in shared backends.
const DefaultKeyPrefix = "recs:"

// KeyInput is everything that decides a ranked result set.
type KeyInput struct {
	Intent      models.Intent
	Entities    models.Entities
	Terms       []string
	Preferences map[string]string
}

// canonicalKey relies on map keys being marshalled in sorted order.
type canonicalKey struct {
	Intent      string              `json:"i"`
	Entities    map[string][]string `json:"e"`
	Terms       []string            `json:"t"`
	Preferences map[string]string   `json:"p"`
}

// Digest is a stable sha256 over the normalized, sorted key input. Entity
// values and terms are normalized so "Café" and "cafe" share a digest.
// related_searches is session history, not a retrieval input, and is ignored.
func Digest(in KeyInput) string {
	ck := canonicalKey{
		Intent:      string(in.Intent),
		Entities:    make(map[string][]string, len(in.Entities)),
		Terms:       sortedSet(in.Terms),
		Preferences: make(map[string]string, len(in.Preferences)),
	}
	for kind, values := range in.Entities {
		if kind == models.EntityRelatedSearches {
			continue
		}
		if vs := sortedSet(values); len(vs) > 0 {
			ck.Entities[string(kind)] = vs
		}
	}
	for k, v := range in.Preferences {
		if v = normalize.Normalize(v); v != "" {
			ck.Preferences[k] = v
		}
	}

	// a struct of strings, slices and maps cannot fail to marshal
	data, _ := json.Marshal(ck)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Fingerprint is Digest under the default namespace.
func Fingerprint(in KeyInput) string {
	return DefaultKeyPrefix + Digest(in)
}

func sortedSet(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		n := normalize.Normalize(v)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
