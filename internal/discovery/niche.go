package discovery

import (
	"strings"

	"nichescout/internal/research"
)

// Marker terms per niche type, checked in priority order. Accessory
// outranks alternative because add-on products usually carry better
// margins than head-to-head substitutes.
var (
	accessoryTerms = []string{
		"case", "cover", "charger", "holder", "stand", "mount", "strap",
		"cable", "adapter", "protector", "sleeve", "accessor",
	}
	alternativeTerms = []string{
		"alternative", "replacement", "substitute", "compatible",
	}
	complementaryTerms = []string{
		"kit", "refill", "cartridge", "cleaner", "organizer", "storage",
	}
)

// ClassifyNiche decides how a product relates to the trending topic it
// was discovered under.
func ClassifyNiche(productName, topic string) research.NicheType {
	name := strings.ToLower(productName)

	for _, term := range accessoryTerms {
		if strings.Contains(name, term) {
			return research.NicheAccessory
		}
	}
	for _, term := range alternativeTerms {
		if strings.Contains(name, term) {
			return research.NicheAlternative
		}
	}
	for _, term := range complementaryTerms {
		if strings.Contains(name, term) {
			return research.NicheComplementary
		}
	}

	topic = strings.ToLower(strings.TrimSpace(topic))
	if topic == "" {
		return research.NicheNone
	}
	if strings.Contains(name, topic) {
		return research.NicheRelated
	}
	for _, word := range strings.Fields(topic) {
		if len(word) > 2 && strings.Contains(name, word) {
			return research.NicheRelated
		}
	}
	return research.NicheNone
}
