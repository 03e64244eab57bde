package services

import (
	"upsell-service/internal/models"
)

// UpsellScoringWeights holds the five factor weights used to composite a
// candidate's sub-scores into its confidence score. The effective set for
// any placement must sum to 1.0; this is a build-time configuration
// invariant, not per-request normalization.
type UpsellScoringWeights struct {
	TerpeneEffectMatch float64
	MarginContribution float64
	InventoryPriority  float64
	CategoryComplement float64
	PriceFit           float64
}

// Sum returns the total of all five weights.
func (w UpsellScoringWeights) Sum() float64 {
	return w.TerpeneEffectMatch + w.MarginContribution + w.InventoryPriority + w.CategoryComplement + w.PriceFit
}

// DefaultUpsellWeights is the baseline weight set (product_detail, chatbot).
var DefaultUpsellWeights = UpsellScoringWeights{
	TerpeneEffectMatch: 0.30,
	MarginContribution: 0.20,
	InventoryPriority:  0.15,
	CategoryComplement: 0.20,
	PriceFit:           0.15,
}

// WeightPatch is a partial weight override. Nil fields fall back to the
// default weight for that factor.
type WeightPatch struct {
	TerpeneEffectMatch *float64
	MarginContribution *float64
	InventoryPriority  *float64
	CategoryComplement *float64
	PriceFit           *float64
}

// placementWeightPatches covers every placement explicitly. Checkout leans on
// margin and clearance pressure; cart leans on category and terpene affinity.
// Each patched set still sums to 1.0 with the unpatched defaults filled in.
var placementWeightPatches = map[models.Placement]WeightPatch{
	models.PlacementProductDetail: {},
	models.PlacementCart: {
		TerpeneEffectMatch: weightOf(0.35),
		MarginContribution: weightOf(0.15),
		InventoryPriority:  weightOf(0.05),
		CategoryComplement: weightOf(0.30),
	},
	models.PlacementCheckout: {
		TerpeneEffectMatch: weightOf(0.10),
		MarginContribution: weightOf(0.35),
		InventoryPriority:  weightOf(0.25),
		CategoryComplement: weightOf(0.15),
	},
	models.PlacementChatbot: {},
}

// MergeWeights applies a partial patch over a base weight set.
func MergeWeights(base UpsellScoringWeights, patch WeightPatch) UpsellScoringWeights {
	merged := base
	if patch.TerpeneEffectMatch != nil {
		merged.TerpeneEffectMatch = *patch.TerpeneEffectMatch
	}
	if patch.MarginContribution != nil {
		merged.MarginContribution = *patch.MarginContribution
	}
	if patch.InventoryPriority != nil {
		merged.InventoryPriority = *patch.InventoryPriority
	}
	if patch.CategoryComplement != nil {
		merged.CategoryComplement = *patch.CategoryComplement
	}
	if patch.PriceFit != nil {
		merged.PriceFit = *patch.PriceFit
	}
	return merged
}

// EffectiveWeights resolves the weight set for a placement. Placements
// without a registered patch use the full defaults.
func EffectiveWeights(placement models.Placement) UpsellScoringWeights {
	patch, ok := placementWeightPatches[placement]
	if !ok {
		return DefaultUpsellWeights
	}
	return MergeWeights(DefaultUpsellWeights, patch)
}

func weightOf(v float64) *float64 {
	return &v
}
