package trends

import (
	"sort"
	"strings"

	"nichescout/internal/research"
)

// fallbackKeywords is a curated seed list per category, refreshed by
// hand when the live trending page cannot be scraped.
var fallbackKeywords = map[string][]string{
	"technology": {
		"wireless earbuds", "gaming laptop", "mechanical keyboard",
		"usb c hub", "portable monitor", "power bank", "phone gimbal",
		"webcam",
	},
	"fashion_beauty": {
		"oversized hoodie", "platform shoes", "minimalist jewelry",
		"korean skincare", "retinol serum", "hair growth oil",
		"nail art kit",
	},
	"hobbies": {
		"resin art kit", "embroidery supplies", "acrylic paint set",
		"photography backdrop", "3d printing pen", "bullet journal",
		"watercolor brushes", "crochet hooks",
	},
	"pets": {
		"automatic cat feeder", "dog training collar", "cat water fountain",
		"pet camera", "dog puzzle toy", "cat litter mat",
		"dog anxiety vest",
	},
	"shopping": {
		"air fryer", "stand mixer", "cordless vacuum", "coffee maker",
		"electric kettle", "rice cooker", "blender", "slow cooker",
	},
}

// fallbackScore reflects that curated keywords are assumed trending
// but carry less certainty than a live rising signal.
const fallbackScore = 75

// Fallback returns curated trend signals for the categories. Unknown
// categories are skipped; empty input means all categories.
func Fallback(categories []string, limit int) []research.TrendSignal {
	if len(categories) == 0 {
		for category := range fallbackKeywords {
			categories = append(categories, category)
		}
		sort.Strings(categories)
	}

	var signals []research.TrendSignal
	for _, category := range categories {
		key := strings.ToLower(category)
		keywords, ok := fallbackKeywords[key]
		if !ok {
			continue
		}
		for _, keyword := range keywords {
			if len(signals) >= limit {
				return signals
			}
			signals = append(signals, research.TrendSignal{
				Topic:     keyword,
				Score:     fallbackScore,
				Direction: research.TrendRising,
				Category:  key,
			})
		}
	}
	return signals
}
