package sentiment

import (
	"math"
	"regexp"
	"strings"

	"nichescout/internal/research"
)

// phraseLexicon holds multi-word product-review expressions with their
// valence. Phrases are matched before single words so "waste of money"
// never decomposes into its parts.
var phraseLexicon = map[string]float64{
	"worth it":              2.5,
	"game changer":          3.0,
	"holy grail":            3.0,
	"must have":             2.5,
	"highly recommend":      3.0,
	"best purchase":         3.0,
	"exceeded expectations": 2.5,
	"well made":             2.0,
	"great quality":         2.5,
	"love it":               2.5,
	"bang for buck":         2.5,
	"value for money":       2.0,
	"worth every penny":     3.0,
	"changed my life":       3.0,
	"waste of money":        -3.0,
	"cheaply made":          -2.5,
	"fell apart":            -2.5,
	"returned it":           -2.0,
	"don't buy":             -3.0,
	"dont buy":              -3.0,
	"rip off":               -3.0,
	"buyer beware":          -2.5,
	"cheap quality":         -2.5,
}

// wordLexicon holds single-word valences.
var wordLexicon = map[string]float64{
	"perfect":       2.5,
	"amazing":       2.5,
	"excellent":     2.5,
	"great":         2.0,
	"good":          1.5,
	"durable":       1.5,
	"sturdy":        1.5,
	"reliable":      1.5,
	"recommend":     1.5,
	"love":          2.0,
	"favorite":      1.5,
	"best":          1.5,
	"broke":         -2.0,
	"avoid":         -2.5,
	"scam":          -3.5,
	"ripoff":        -3.0,
	"overpriced":    -2.0,
	"disappointing": -2.0,
	"disappointed":  -2.0,
	"flimsy":        -2.0,
	"junk":          -2.5,
	"garbage":       -3.0,
	"terrible":      -2.5,
	"awful":         -2.5,
	"useless":       -2.0,
	"refund":        -1.5,
	"returned":      -1.5,
	"defective":     -2.5,
	"worst":         -2.5,
}

// negators flip the valence of the following sentiment word.
var negators = map[string]struct{}{
	"not": {}, "no": {}, "never": {}, "dont": {}, "didnt": {},
	"wasnt": {}, "isnt": {}, "wont": {}, "cant": {},
}

// normalization constant; keeps compound scores in (-1, 1) with the
// familiar VADER-style curve.
const normAlpha = 15.0

var (
	urlPattern      = regexp.MustCompile(`https?://\S+|www\.\S+`)
	linkPattern     = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	emphasisPattern = regexp.MustCompile(`[*_]{1,2}([^*_]+)[*_]{1,2}`)
	tokenPattern    = regexp.MustCompile(`[a-z']+`)
)

// LexiconClassifier scores text against a product-review lexicon. It
// is stateless and safe for concurrent use.
type LexiconClassifier struct{}

// NewClassifier builds a LexiconClassifier.
func NewClassifier() *LexiconClassifier {
	return &LexiconClassifier{}
}

// Classify returns the label and compound polarity in [-1, 1] for the
// given text. Empty text is neutral.
func (c *LexiconClassifier) Classify(text string) (research.SentimentLabel, float64) {
	text = preprocess(text)
	if text == "" {
		return research.SentimentNeutral, 0
	}

	var valence float64

	// Phrase pass: consume matched phrases so the word pass does not
	// double count them.
	for phrase, score := range phraseLexicon {
		if n := strings.Count(text, phrase); n > 0 {
			valence += score * float64(n)
			text = strings.ReplaceAll(text, phrase, " ")
		}
	}

	tokens := tokenPattern.FindAllString(text, -1)
	for i, token := range tokens {
		token = strings.ReplaceAll(token, "'", "")
		score, ok := wordLexicon[token]
		if !ok {
			continue
		}
		if i > 0 {
			prev := strings.ReplaceAll(tokens[i-1], "'", "")
			if _, negated := negators[prev]; negated {
				score = -score * 0.74
			}
		}
		valence += score
	}

	polarity := valence / math.Sqrt(valence*valence+normAlpha)
	return LabelFor(polarity), polarity
}

func preprocess(text string) string {
	text = strings.ToLower(strings.TrimSpace(text))
	text = urlPattern.ReplaceAllString(text, " ")
	text = linkPattern.ReplaceAllString(text, "$1")
	text = emphasisPattern.ReplaceAllString(text, "$1")
	return strings.Join(strings.Fields(text), " ")
}
