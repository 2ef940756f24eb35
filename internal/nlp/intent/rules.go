package intent

import (
	"regexp"

	"venue-recommender/internal/models"
)

// Lang tags the language a rule was written for.
type Lang string

const (
	LangEN  Lang = "en"
	LangRO  Lang = "ro"
	LangAny Lang = "any"
)

// Rule is one language-tagged pattern. A rule counts once per query no
// matter how many times it matches.
type Rule struct {
	Lang    Lang
	Pattern *regexp.Regexp
}

// R compiles pattern into a Rule, panicking on a bad expression. Intended for
// package-level tables.
func R(lang Lang, pattern string) Rule {
	return Rule{Lang: lang, Pattern: regexp.MustCompile(pattern)}
}

// RuleTable maps every intent to its ordered rules.
type RuleTable map[models.Intent][]Rule

// Clone returns a copy whose rule slices can be appended to independently.
func (t RuleTable) Clone() RuleTable {
	out := make(RuleTable, len(t))
	for k, v := range t {
		out[k] = append([]Rule(nil), v...)
	}
	return out
}

// DefaultRules is the built-in English and Romanian rule table. Romanian
// patterns are written without diacritics because they are also evaluated
// against the diacritic-stripped query.
func DefaultRules() RuleTable {
	return RuleTable{
		models.IntentGreeting: {
			R(LangEN, `(?i)^\W*(hello|hi|hey|good (morning|afternoon|evening))\b`),
			R(LangRO, `(?i)^\W*(salut|buna ziua|buna seara|buna|hei|ce faci|servus|neata)\b`),
		},
		models.IntentRestaurantSearch: {
			R(LangEN, `(?i)\b(find|search|looking for|recommend|suggest)\b.*\brestaurants?\b`),
			R(LangEN, `(?i)\b(where to eat|dining|restaurants?|bistro|cafe|pub|bar)\b`),
			R(LangEN, `(?i)\b(italian|chinese|mexican|indian|japanese|french|greek|thai|korean)\b`),
			R(LangRO, `(?i)\b(gaseste|cauta|recomanda|recomanzi|sugereaza)\b.*\b(restaurant|local)`),
			R(LangRO, `(?i)\b(unde sa mananc|loc de mancare|restaurant\w*|localuri|cafenea|braserie|terasa)\b`),
			R(LangRO, `(?i)\b(italian[ae]?|chinezeasca|mexican[ae]?|indian[ae]?|romanesc|romaneasca|japonez[ae]?|frantuzeasca|greceasca|traditional[ae]?)\b`),
		},
		models.IntentFoodSearch: {
			R(LangEN, `(?i)\b(hungry|meal|lunch|dinner|breakfast|brunch)\b`),
			R(LangEN, `(?i)\b(food|pizza|pasta|burgers?|sushi|salad|soup|dessert|cuisine)\b`),
			R(LangRO, `(?i)\b(foame|masa|pranz|cina|mic dejun|gustare)\b`),
			R(LangRO, `(?i)\b(mancare|pizza|paste|burger|salata|supa|desert|bucatarie|ce sa mananc|vreau sa mananc)\b`),
		},
		models.IntentEventSearch: {
			R(LangEN, `(?i)\b(events?|festivals?|concerts?|shows?|performances?|exhibitions?)\b`),
			R(LangEN, `(?i)(what's happening|what is happening|what to do|entertainment|things to do)`),
			R(LangEN, `(?i)\b(music|comedy|theat(er|re)|art|cultural|nightlife|tonight|this weekend)\b`),
			R(LangRO, `(?i)\b(eveniment\w*|festival\w*|concert\w*|spectacol\w*|petrecer\w*|expozit\w*)`),
			R(LangRO, `(?i)(ce se intampla|ce sa fac|divertisment|distractie|iesim in oras)`),
			R(LangRO, `(?i)\b(muzica|comedie|teatru|arta|diseara|weekend\w*)\b`),
		},
		models.IntentLocationQuery: {
			R(LangEN, `(?i)\b(where is|location|address|directions)\b`),
			R(LangEN, `(?i)\b(near|close to|around|nearby)\b`),
			R(LangRO, `(?i)\b(locatie|adresa|indicatii|unde (este|e|se afla))\b`),
			R(LangRO, `(?i)\b(aproape|langa|in jurul|in apropiere|in zona)\b`),
		},
		models.IntentPriceQuery: {
			R(LangEN, `(?i)\b(price|prices|cost|expensive|cheap|budget)\b`),
			R(LangEN, `(?i)(how much|pricing|affordable)`),
			R(LangRO, `(?i)\b(pret\w*|costa|scump\w*|ieftin\w*|buget)\b`),
			R(LangRO, `(?i)(cat costa|accesibil)`),
		},
		models.IntentHoursQuery: {
			R(LangEN, `(?i)\b(hours|open|closed|schedule)\b`),
			R(LangEN, `(?i)(when.*open|opening hours|business hours)`),
			R(LangRO, `(?i)\b(deschis|inchis|orar|program)\b`),
			R(LangRO, `(?i)(cand.*deschis|ore de deschidere|program de lucru)`),
		},
		models.IntentReservation: {
			R(LangEN, `(?i)\b(book|reserve|reservation|table for)\b`),
			R(LangEN, `(?i)\b(available|availability|booking)\b`),
			R(LangRO, `(?i)\brezerv\w*`),
			R(LangRO, `(?i)\b(disponibil\w*|programare)\b`),
		},
		models.IntentReviewQuery: {
			R(LangEN, `(?i)\b(reviews?|ratings?|opinions?|rated)\b`),
			R(LangEN, `(?i)\b(is it good|quality|experience|worth it)\b`),
			R(LangRO, `(?i)\b(recenzi\w*|evaluar\w*|parer\w*|nota)\b`),
			R(LangRO, `(?i)\b(e bun|calitate|experienta|merita)\b`),
		},
		models.IntentComparison: {
			R(LangEN, `(?i)\b(compare|vs|versus|difference|better than)\b`),
			R(LangEN, `(?i)(which one|what's better|which is better)`),
			R(LangRO, `(?i)\b(compar\w*|diferent\w*|mai bun decat|care e mai bun)\b`),
		},
	}
}

// defaultContinuations are normalized phrases signalling "same topic, more of it".
var defaultContinuations = []string{
	"mai arata", "mai multe", "mai vreau", "altele", "alte", "inca",
	"la fel", "continua", "more", "show more", "another", "others",
	"next", "similar",
}
