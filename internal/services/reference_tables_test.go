package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"upsell-service/internal/models"
)

func TestDefaultReferenceTablesCoverAllStrategies(t *testing.T) {
	tables := DefaultReferenceTables()

	strategies := []models.UpsellStrategy{
		models.StrategyTerpenePairing,
		models.StrategyEffectStacking,
		models.StrategyCategoryComplement,
		models.StrategyPotencyLadder,
		models.StrategyClearance,
		models.StrategyMarginBoost,
		models.StrategyBundleMatch,
		models.StrategyPopularPairing,
	}
	for _, strategy := range strategies {
		assert.NotEmpty(t, tables.ReasonFor(strategy), "missing reason template for %s", strategy)
	}
}

func TestTerpenePairingsAreCurated(t *testing.T) {
	tables := DefaultReferenceTables()

	assert.Contains(t, tables.TerpenePairings["myrcene"], "linalool")
	assert.NotContains(t, tables.TerpenePairings["myrcene"], "limonene")
}

func TestCategoryComplementsNoSelfMatches(t *testing.T) {
	tables := DefaultReferenceTables()

	for category, complements := range tables.CategoryComplements {
		assert.NotContains(t, complements, category, "category %s must not complement itself", category)
	}
}

func TestEffectComplementsAreSymmetricEnough(t *testing.T) {
	tables := DefaultReferenceTables()

	// Every listed complement should itself be a known effect key, so the
	// graph never points at tags the scorer cannot resolve.
	for effect, complements := range tables.EffectComplements {
		for _, complement := range complements {
			assert.Contains(t, tables.EffectComplements, complement,
				"effect %s lists unknown complement %s", effect, complement)
		}
	}
}
