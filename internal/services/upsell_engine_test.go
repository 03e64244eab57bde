package services

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"upsell-service/internal/models"
)

func productID(n byte) uuid.UUID {
	id := uuid.UUID{}
	id[15] = n
	return id
}

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }

func testProduct(n byte, category string, price float64) models.Product {
	return models.Product{
		ID:       productID(n),
		TenantID: "tenant-1",
		Name:     "Product",
		SKU:      "SKU",
		Category: category,
		Price:    price,
		Status:   models.ProductStatusActive,
	}
}

func TestGenerateInvalidPlacement(t *testing.T) {
	engine := NewUpsellEngine(nil)

	_, err := engine.Generate(models.UpsellContext{Placement: "sidebar"}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidPlacement))
}

func TestGenerateEmptyPool(t *testing.T) {
	engine := NewUpsellEngine(nil)

	result, err := engine.Generate(models.UpsellContext{Placement: models.PlacementChatbot}, nil)
	require.NoError(t, err)
	assert.Empty(t, result.Suggestions)
	assert.Equal(t, models.PlacementChatbot, result.Placement)
	assert.WithinDuration(t, time.Now().UTC(), result.GeneratedAt, 5*time.Second)
}

func TestGenerateFiltersExclusions(t *testing.T) {
	engine := NewUpsellEngine(nil)

	current := testProduct(1, "flower", 30)
	cartItem := testProduct(2, "edibles", 15)
	excluded := testProduct(3, "vapes", 40)
	kept := testProduct(4, "pre-rolls", 12)

	ctx := models.UpsellContext{
		Placement:         models.PlacementProductDetail,
		CurrentProduct:    &current,
		CartItems:         []models.Product{cartItem},
		ExcludeProductIDs: []uuid.UUID{excluded.ID},
	}
	candidates := []models.Product{current, cartItem, excluded, kept}

	result, err := engine.Generate(ctx, candidates)
	require.NoError(t, err)
	require.Len(t, result.Suggestions, 1)
	assert.Equal(t, kept.ID, result.Suggestions[0].Product.ID)
}

func TestGenerateSubScoresInRange(t *testing.T) {
	engine := NewUpsellEngine(nil)

	current := testProduct(1, "flower", 30)
	current.Terpenes = models.TerpeneProfile{"myrcene": 1.2, "limonene": 0.4}
	current.Effects = models.StringArray{"relaxed", "happy"}

	candidates := []models.Product{
		testProduct(2, "edibles", 8),
		testProduct(3, "pre-rolls", 14),
		testProduct(4, "vapes", 55),
	}
	candidates[0].Terpenes = models.TerpeneProfile{"linalool": 2.0, "caryophyllene": 0.8}
	candidates[0].Effects = models.StringArray{"sleepy", "calm"}
	candidates[0].WholesaleCost = floatPtr(3)
	candidates[0].DaysInStock = intPtr(40)
	candidates[1].WholesaleCost = floatPtr(10)
	candidates[1].DaysInStock = intPtr(5)
	candidates[2].DaysInStock = intPtr(20)

	ctx := models.UpsellContext{
		Placement:       models.PlacementProductDetail,
		CurrentProduct:  &current,
		PricePreference: models.PriceBudget,
		MaxResults:      10,
	}

	result, err := engine.Generate(ctx, candidates)
	require.NoError(t, err)
	require.Len(t, result.Suggestions, 3)

	for _, s := range result.Suggestions {
		breakdown := s.ScoreBreakdown
		for name, score := range map[string]float64{
			"terpeneEffectMatch": breakdown.TerpeneEffectMatch,
			"marginContribution": breakdown.MarginContribution,
			"inventoryPriority":  breakdown.InventoryPriority,
			"categoryComplement": breakdown.CategoryComplement,
			"priceFit":           breakdown.PriceFit,
			"totalScore":         breakdown.TotalScore,
		} {
			assert.GreaterOrEqual(t, score, 0.0, "%s below range", name)
			assert.LessOrEqual(t, score, 1.0, "%s above range", name)
		}
		assert.Equal(t, breakdown.TotalScore, s.ConfidenceScore)
	}
}

func TestGenerateCompositeUsesEffectiveWeights(t *testing.T) {
	engine := NewUpsellEngine(nil)

	current := testProduct(1, "flower", 30)
	candidate := testProduct(2, "pre-rolls", 12)
	candidate.WholesaleCost = floatPtr(4)
	candidate.DaysInStock = intPtr(10)

	ctx := models.UpsellContext{
		Placement:      models.PlacementProductDetail,
		CurrentProduct: &current,
	}

	result, err := engine.Generate(ctx, []models.Product{candidate})
	require.NoError(t, err)
	require.Len(t, result.Suggestions, 1)

	weights := EffectiveWeights(models.PlacementProductDetail)
	b := result.Suggestions[0].ScoreBreakdown
	expected := weights.TerpeneEffectMatch*b.TerpeneEffectMatch +
		weights.MarginContribution*b.MarginContribution +
		weights.InventoryPriority*b.InventoryPriority +
		weights.CategoryComplement*b.CategoryComplement +
		weights.PriceFit*b.PriceFit
	assert.InDelta(t, expected, b.TotalScore, 1e-9)
}

// Checkout weight overrides push margin to the top factor, so with every other
// sub-score tied the higher-margin product wins.
func TestGenerateCheckoutFavorsMargin(t *testing.T) {
	engine := NewUpsellEngine(nil)

	lowMargin := testProduct(1, "edibles", 30)
	lowMargin.WholesaleCost = floatPtr(25) // $5 margin
	highMargin := testProduct(2, "edibles", 40)
	highMargin.WholesaleCost = floatPtr(20) // $20 margin

	ctx := models.UpsellContext{Placement: models.PlacementCheckout}

	result, err := engine.Generate(ctx, []models.Product{lowMargin, highMargin})
	require.NoError(t, err)
	require.Len(t, result.Suggestions, 2)

	first := result.Suggestions[0]
	assert.Equal(t, highMargin.ID, first.Product.ID)
	assert.Equal(t, models.StrategyMarginBoost, first.Strategy)
	assert.Equal(t, 1.0, first.ScoreBreakdown.MarginContribution)
	assert.Equal(t, 0.0, result.Suggestions[1].ScoreBreakdown.MarginContribution)
}

// A candidate whose terpenes pair with the reference product outranks one
// whose terpenes do not, all else equal.
func TestGenerateTerpenePairingRanksHigher(t *testing.T) {
	engine := NewUpsellEngine(nil)

	current := testProduct(1, "flower", 30)
	current.Terpenes = models.TerpeneProfile{"myrcene": 1.0}

	paired := testProduct(2, "edibles", 20)
	paired.Terpenes = models.TerpeneProfile{"linalool": 0.5}
	unpaired := testProduct(3, "edibles", 20)
	unpaired.Terpenes = models.TerpeneProfile{"limonene": 0.5}

	ctx := models.UpsellContext{
		Placement:      models.PlacementProductDetail,
		CurrentProduct: &current,
	}

	result, err := engine.Generate(ctx, []models.Product{unpaired, paired})
	require.NoError(t, err)
	require.Len(t, result.Suggestions, 2)

	first, second := result.Suggestions[0], result.Suggestions[1]
	assert.Equal(t, paired.ID, first.Product.ID)
	assert.Greater(t, first.ScoreBreakdown.TerpeneEffectMatch, second.ScoreBreakdown.TerpeneEffectMatch)
}

// Bundle membership always labels the suggestion bundle_match, regardless of
// which sub-score dominates numerically.
func TestGenerateBundleMatchOverridesStrategy(t *testing.T) {
	engine := NewUpsellEngine(nil)

	current := testProduct(1, "flower", 30)
	bundled := testProduct(2, "pre-rolls", 12)
	bundled.WholesaleCost = floatPtr(2)
	other := testProduct(3, "edibles", 18)

	bundle := models.Bundle{
		ID:          productID(9),
		TenantID:    "tenant-1",
		Name:        "Starter Pack",
		ProductIDs:  models.UUIDStrings([]uuid.UUID{current.ID, bundled.ID}),
		SavingsText: "Save 15% when bought together",
		IsActive:    true,
	}

	ctx := models.UpsellContext{
		Placement:      models.PlacementProductDetail,
		CurrentProduct: &current,
		ActiveBundles:  []models.Bundle{bundle},
	}

	result, err := engine.Generate(ctx, []models.Product{bundled, other})
	require.NoError(t, err)
	require.Len(t, result.Suggestions, 2)

	for _, s := range result.Suggestions {
		if s.Product.ID == bundled.ID {
			assert.Equal(t, models.StrategyBundleMatch, s.Strategy)
			assert.Equal(t, bundle.SavingsText, s.Reason)
			require.NotNil(t, s.BundleID)
			assert.Equal(t, bundle.ID, *s.BundleID)
		} else {
			assert.NotEqual(t, models.StrategyBundleMatch, s.Strategy)
			assert.Nil(t, s.BundleID)
		}
	}
}

func TestGenerateInactiveBundleIgnored(t *testing.T) {
	engine := NewUpsellEngine(nil)

	current := testProduct(1, "flower", 30)
	bundled := testProduct(2, "pre-rolls", 12)

	bundle := models.Bundle{
		ID:          productID(9),
		ProductIDs:  models.UUIDStrings([]uuid.UUID{current.ID, bundled.ID}),
		SavingsText: "Save 15%",
		IsActive:    false,
	}

	ctx := models.UpsellContext{
		Placement:      models.PlacementProductDetail,
		CurrentProduct: &current,
		ActiveBundles:  []models.Bundle{bundle},
	}

	result, err := engine.Generate(ctx, []models.Product{bundled})
	require.NoError(t, err)
	require.Len(t, result.Suggestions, 1)
	assert.NotEqual(t, models.StrategyBundleMatch, result.Suggestions[0].Strategy)
}

func TestGenerateMaxResultsTruncation(t *testing.T) {
	engine := NewUpsellEngine(nil)

	current := testProduct(1, "flower", 30)
	candidates := []models.Product{
		testProduct(2, "edibles", 10),
		testProduct(3, "pre-rolls", 12),
		testProduct(4, "vapes", 50),
	}
	candidates[0].WholesaleCost = floatPtr(2) // widest margin
	candidates[1].WholesaleCost = floatPtr(8)
	candidates[2].WholesaleCost = floatPtr(45)

	ctx := models.UpsellContext{
		Placement:      models.PlacementProductDetail,
		CurrentProduct: &current,
		MaxResults:     1,
	}

	result, err := engine.Generate(ctx, candidates)
	require.NoError(t, err)
	require.Len(t, result.Suggestions, 1)

	// The single survivor must be the top scorer over the whole pool.
	ctx.MaxResults = 10
	full, err := engine.Generate(ctx, candidates)
	require.NoError(t, err)
	assert.Equal(t, full.Suggestions[0].Product.ID, result.Suggestions[0].Product.ID)
}

func TestGenerateDefaultMaxResults(t *testing.T) {
	engine := NewUpsellEngine(nil)

	candidates := make([]models.Product, 0, 6)
	for n := byte(2); n < 8; n++ {
		candidates = append(candidates, testProduct(n, "edibles", float64(10+n)))
	}

	for _, maxResults := range []int{0, -5} {
		ctx := models.UpsellContext{Placement: models.PlacementChatbot, MaxResults: maxResults}
		result, err := engine.Generate(ctx, candidates)
		require.NoError(t, err)
		assert.Len(t, result.Suggestions, 3)
	}
}

func TestGenerateSortStableTieBreak(t *testing.T) {
	engine := NewUpsellEngine(nil)

	// Identical products except id; scores tie exactly, so ascending id wins.
	a := testProduct(5, "edibles", 20)
	b := testProduct(3, "edibles", 20)

	ctx := models.UpsellContext{Placement: models.PlacementChatbot}

	result, err := engine.Generate(ctx, []models.Product{a, b})
	require.NoError(t, err)
	require.Len(t, result.Suggestions, 2)
	assert.Equal(t, result.Suggestions[0].ConfidenceScore, result.Suggestions[1].ConfidenceScore)
	assert.Equal(t, b.ID, result.Suggestions[0].Product.ID)
	assert.Equal(t, a.ID, result.Suggestions[1].Product.ID)
}

func TestGenerateIdempotent(t *testing.T) {
	engine := NewUpsellEngine(nil)

	current := testProduct(1, "flower", 30)
	current.Terpenes = models.TerpeneProfile{"myrcene": 1.0, "pinene": 0.3}
	current.Effects = models.StringArray{"relaxed"}

	candidates := []models.Product{
		testProduct(2, "edibles", 10),
		testProduct(3, "pre-rolls", 12),
		testProduct(4, "vapes", 50),
	}
	candidates[0].Terpenes = models.TerpeneProfile{"linalool": 0.4}
	candidates[1].WholesaleCost = floatPtr(6)
	candidates[2].DaysInStock = intPtr(30)

	ctx := models.UpsellContext{
		Placement:       models.PlacementCart,
		CartItems:       []models.Product{current},
		PricePreference: models.PriceMid,
		MaxResults:      10,
	}

	first, err := engine.Generate(ctx, candidates)
	require.NoError(t, err)
	second, err := engine.Generate(ctx, candidates)
	require.NoError(t, err)

	require.Equal(t, len(first.Suggestions), len(second.Suggestions))
	for i := range first.Suggestions {
		assert.Equal(t, first.Suggestions[i].Product.ID, second.Suggestions[i].Product.ID)
		assert.Equal(t, first.Suggestions[i].ConfidenceScore, second.Suggestions[i].ConfidenceScore)
		assert.Equal(t, first.Suggestions[i].Strategy, second.Suggestions[i].Strategy)
	}
}

// Cart placement with no cart items degrades to the no-reference baselines
// instead of erroring.
func TestGenerateCartWithoutItemsFallsBack(t *testing.T) {
	engine := NewUpsellEngine(nil)

	candidate := testProduct(2, "edibles", 15)
	candidate.Terpenes = models.TerpeneProfile{"linalool": 0.4}

	ctx := models.UpsellContext{Placement: models.PlacementCart}

	result, err := engine.Generate(ctx, []models.Product{candidate})
	require.NoError(t, err)
	require.Len(t, result.Suggestions, 1)

	breakdown := result.Suggestions[0].ScoreBreakdown
	assert.Equal(t, 0.0, breakdown.TerpeneEffectMatch)
	assert.Equal(t, 0.3, breakdown.CategoryComplement)
}

// The dominant cart item (highest price, ties to lowest id) is the reference
// for cart-derived placements.
func TestGenerateDominantCartItemIsReference(t *testing.T) {
	engine := NewUpsellEngine(nil)

	cheap := testProduct(1, "edibles", 10)
	expensive := testProduct(2, "flower", 45)
	expensive.Terpenes = models.TerpeneProfile{"myrcene": 1.0}

	paired := testProduct(3, "pre-rolls", 14)
	paired.Terpenes = models.TerpeneProfile{"linalool": 0.6}

	ctx := models.UpsellContext{
		Placement: models.PlacementCart,
		CartItems: []models.Product{cheap, expensive},
	}

	result, err := engine.Generate(ctx, []models.Product{paired})
	require.NoError(t, err)
	require.Len(t, result.Suggestions, 1)

	// linalool pairs with the expensive item's myrcene; a cheap-item reference
	// would have scored zero.
	assert.Greater(t, result.Suggestions[0].ScoreBreakdown.TerpeneEffectMatch, 0.0)
	// pre-rolls complements flower (the dominant item's category), not edibles.
	assert.Equal(t, 1.0, result.Suggestions[0].ScoreBreakdown.CategoryComplement)
}

// Effect stacking is chosen over terpene pairing when the effect signal
// dominates within the combined sub-score.
func TestGenerateEffectStackingStrategy(t *testing.T) {
	tables := DefaultReferenceTables()
	engine := NewUpsellEngine(tables)

	current := testProduct(1, "flower", 30)
	current.Effects = models.StringArray{"relaxed"}

	candidate := testProduct(2, "topicals", 25)
	candidate.Effects = models.StringArray{"sleepy", "calm"}

	ctx := models.UpsellContext{
		Placement: models.PlacementCart,
		CartItems: []models.Product{current},
	}

	result, err := engine.Generate(ctx, []models.Product{candidate})
	require.NoError(t, err)
	require.Len(t, result.Suggestions, 1)

	suggestion := result.Suggestions[0]
	assert.Equal(t, models.StrategyEffectStacking, suggestion.Strategy)
	assert.Equal(t, tables.ReasonTemplates[models.StrategyEffectStacking], suggestion.Reason)
}

func TestGenerateNeutralScoresWithoutData(t *testing.T) {
	engine := NewUpsellEngine(nil)

	// No wholesale cost, no age data, no price preference, no reference.
	candidates := []models.Product{
		testProduct(2, "edibles", 15),
		testProduct(3, "vapes", 60),
	}

	ctx := models.UpsellContext{Placement: models.PlacementChatbot}

	result, err := engine.Generate(ctx, candidates)
	require.NoError(t, err)
	require.Len(t, result.Suggestions, 2)

	for _, s := range result.Suggestions {
		assert.Equal(t, 0.5, s.ScoreBreakdown.MarginContribution)
		assert.Equal(t, 0.5, s.ScoreBreakdown.InventoryPriority)
		assert.Equal(t, 0.5, s.ScoreBreakdown.PriceFit)
	}
}

func TestGeneratePriceFitBudgetPreference(t *testing.T) {
	engine := NewUpsellEngine(nil)

	cheap := testProduct(2, "edibles", 10)
	pricey := testProduct(3, "edibles", 100)

	ctx := models.UpsellContext{
		Placement:       models.PlacementChatbot,
		PricePreference: models.PriceBudget,
		MaxResults:      10,
	}

	result, err := engine.Generate(ctx, []models.Product{pricey, cheap})
	require.NoError(t, err)
	require.Len(t, result.Suggestions, 2)

	assert.Equal(t, cheap.ID, result.Suggestions[0].Product.ID)
	assert.Greater(t, result.Suggestions[0].ScoreBreakdown.PriceFit,
		result.Suggestions[1].ScoreBreakdown.PriceFit)
}
