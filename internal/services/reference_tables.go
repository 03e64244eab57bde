package services

import (
	"upsell-service/internal/models"
)

// ReferenceTables holds the immutable pairing graphs and reason templates the
// engine scores against. Construct once at startup and inject into the engine;
// tests substitute fixture tables through the same path.
type ReferenceTables struct {
	// TerpenePairings maps a terpene to terpenes considered complementary
	// (entourage-effect pairings).
	TerpenePairings map[string][]string

	// EffectComplements maps an effect tag to effects that stack well with it.
	EffectComplements map[string][]string

	// CategoryComplements maps a product category to cross-sell categories.
	// A category only self-matches if it lists itself.
	CategoryComplements map[string][]string

	// ReasonTemplates maps a strategy to its customer-facing phrase.
	ReasonTemplates map[models.UpsellStrategy]string
}

// DefaultReferenceTables returns the production pairing tables.
func DefaultReferenceTables() *ReferenceTables {
	return &ReferenceTables{
		TerpenePairings: map[string][]string{
			"myrcene":       {"linalool", "caryophyllene", "humulene"},
			"limonene":      {"pinene", "terpinolene", "caryophyllene"},
			"linalool":      {"myrcene", "humulene", "caryophyllene"},
			"caryophyllene": {"myrcene", "limonene", "humulene", "linalool"},
			"pinene":        {"limonene", "ocimene"},
			"terpinolene":   {"limonene", "ocimene"},
			"humulene":      {"caryophyllene", "myrcene"},
			"ocimene":       {"pinene", "terpinolene"},
		},
		EffectComplements: map[string][]string{
			"relaxed":     {"sleepy", "calm", "pain-relief"},
			"sleepy":      {"relaxed", "calm"},
			"calm":        {"relaxed", "sleepy"},
			"pain-relief": {"relaxed", "calm"},
			"energetic":   {"focused", "uplifted", "creative"},
			"focused":     {"energetic", "creative"},
			"creative":    {"focused", "energetic", "euphoric"},
			"euphoric":    {"happy", "uplifted"},
			"happy":       {"euphoric", "uplifted"},
			"uplifted":    {"euphoric", "happy", "energetic"},
		},
		CategoryComplements: map[string][]string{
			"flower":       {"pre-rolls", "accessories", "edibles"},
			"pre-rolls":    {"flower", "accessories"},
			"edibles":      {"beverages", "flower", "tinctures"},
			"beverages":    {"edibles"},
			"vapes":        {"concentrates", "accessories"},
			"concentrates": {"vapes", "accessories"},
			"topicals":     {"tinctures"},
			"tinctures":    {"topicals", "edibles"},
			"accessories":  {"flower", "vapes", "concentrates"},
		},
		ReasonTemplates: map[models.UpsellStrategy]string{
			models.StrategyTerpenePairing:     "Its terpene profile pairs beautifully with your pick",
			models.StrategyEffectStacking:     "Stacks well with the effects you're going for",
			models.StrategyCategoryComplement: "A natural companion to what you're getting",
			models.StrategyPotencyLadder:      "A great match for your price range",
			models.StrategyClearance:          "Special pricing while supplies last",
			models.StrategyMarginBoost:        "A staff favorite worth adding",
			models.StrategyBundleMatch:        "Part of a bundle deal with your pick",
			models.StrategyPopularPairing:     "Customers often buy these together",
		},
	}
}

// ReasonFor returns the customer-facing phrase for a strategy.
func (t *ReferenceTables) ReasonFor(strategy models.UpsellStrategy) string {
	return t.ReasonTemplates[strategy]
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
