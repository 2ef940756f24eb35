package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "empty", input: "", want: ""},
		{name: "accented latin", input: "Café", want: "cafe"},
		{name: "romanian diacritics", input: "Mâncare în Centrul Vechi", want: "mancare in centrul vechi"},
		{name: "comma below letters", input: "Și ȚARĂ", want: "si tara"},
		{name: "punctuation collapses", input: "  Salut!!!   ce   faci?? ", want: "salut ce faci"},
		{name: "hyphenated", input: "arată-mi", want: "arata mi"},
		{name: "compatibility forms", input: "ﬁne ℌotel", want: "fine hotel"},
		{name: "digits kept", input: "Top 10 pizza", want: "top 10 pizza"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"",
		"Café",
		"ce evenimente sunt în weekend?",
		"Find me an ITALIAN restaurant near Piața Unirii",
		"Ǆungla ﬁ ℌ İstanbul",
		"\t\nmixed spaces here",
		"emoji 🍕 pizza 🎉",
		"123 456",
	}

	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
	}
}

func TestTokens(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{name: "empty", input: "", want: []string{}},
		{name: "only stop words", input: "unde pot sa", want: []string{}},
		{name: "romanian query", input: "vreau pizza italiana", want: []string{"pizza", "italiana"}},
		{name: "drops numbers and short tokens", input: "a 2 pizza 2024 x", want: []string{"pizza"}},
		{name: "english query", input: "Find me an Italian restaurant", want: []string{"italian", "restaurant"}},
		{name: "diacritic stop words", input: "și în", want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokens(tt.input)
			assert.NotNil(t, got)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAnalyze(t *testing.T) {
	n, toks := Analyze("Café Central!")
	assert.Equal(t, "cafe central", n)
	assert.Equal(t, []string{"cafe", "central"}, toks)
}

func TestTokenSet(t *testing.T) {
	set := TokenSet("pizza Pizza PIZZA pasta")
	assert.Len(t, set, 2)
	assert.Contains(t, set, "pizza")
	assert.Contains(t, set, "pasta")
}

func TestStripDiacritics_KeepsCase(t *testing.T) {
	assert.Equal(t, "Mancare!", StripDiacritics("Mâncare!"))
}
