package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"upsell-service/internal/models"
)

func TestEffectiveWeightsSumToOne(t *testing.T) {
	placements := []models.Placement{
		models.PlacementProductDetail,
		models.PlacementCart,
		models.PlacementCheckout,
		models.PlacementChatbot,
	}

	for _, placement := range placements {
		weights := EffectiveWeights(placement)
		assert.InDelta(t, 1.0, weights.Sum(), 1e-9, "weights for %s must sum to 1.0", placement)
	}
}

func TestEffectiveWeightsUnknownPlacementFallsBack(t *testing.T) {
	weights := EffectiveWeights(models.Placement("kiosk"))
	assert.Equal(t, DefaultUpsellWeights, weights)
}

func TestEffectiveWeightsCheckoutOverrides(t *testing.T) {
	weights := EffectiveWeights(models.PlacementCheckout)

	// Margin is the single heaviest factor at checkout.
	assert.Equal(t, 0.35, weights.MarginContribution)
	assert.Greater(t, weights.MarginContribution, weights.TerpeneEffectMatch)
	assert.Greater(t, weights.MarginContribution, weights.InventoryPriority)
	assert.Greater(t, weights.MarginContribution, weights.CategoryComplement)
	assert.Greater(t, weights.MarginContribution, weights.PriceFit)

	// PriceFit is not patched and keeps the default.
	assert.Equal(t, DefaultUpsellWeights.PriceFit, weights.PriceFit)
}

func TestEffectiveWeightsCartOverrides(t *testing.T) {
	weights := EffectiveWeights(models.PlacementCart)

	assert.Equal(t, 0.35, weights.TerpeneEffectMatch)
	assert.Equal(t, 0.30, weights.CategoryComplement)
	assert.Equal(t, DefaultUpsellWeights.PriceFit, weights.PriceFit)
}

func TestMergeWeightsPartialPatch(t *testing.T) {
	patch := WeightPatch{MarginContribution: weightOf(0.9)}

	merged := MergeWeights(DefaultUpsellWeights, patch)
	assert.Equal(t, 0.9, merged.MarginContribution)
	assert.Equal(t, DefaultUpsellWeights.TerpeneEffectMatch, merged.TerpeneEffectMatch)
	assert.Equal(t, DefaultUpsellWeights.InventoryPriority, merged.InventoryPriority)
	assert.Equal(t, DefaultUpsellWeights.CategoryComplement, merged.CategoryComplement)
	assert.Equal(t, DefaultUpsellWeights.PriceFit, merged.PriceFit)
}

func TestMergeWeightsEmptyPatch(t *testing.T) {
	merged := MergeWeights(DefaultUpsellWeights, WeightPatch{})
	assert.Equal(t, DefaultUpsellWeights, merged)
}
