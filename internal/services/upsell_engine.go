package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"upsell-service/internal/models"
)

// ErrInvalidPlacement is returned when the caller passes a placement outside
// the four supported surfaces.
var ErrInvalidPlacement = errors.New("invalid placement")

// Neutral fallback scores for missing data. See scoring docs on each
// sub-score for when these apply.
const (
	neutralScore          = 0.5
	noReferenceCatScore   = 0.3
	defaultMaxSuggestions = 3
)

// Price band targets per preference, as a fraction of the pool price range.
var priceBandTargets = map[models.PricePreference]float64{
	models.PriceBudget:  0.15,
	models.PriceMid:     0.50,
	models.PricePremium: 0.85,
}

// UpsellEngine scores and ranks upsell candidates for a placement. It is
// pure and stateless across calls; a single instance is safe for concurrent
// use by all request handlers.
type UpsellEngine struct {
	tables *ReferenceTables
}

// NewUpsellEngine creates an engine backed by the given reference tables.
// Passing nil uses the production defaults.
func NewUpsellEngine(tables *ReferenceTables) *UpsellEngine {
	if tables == nil {
		tables = DefaultReferenceTables()
	}
	return &UpsellEngine{tables: tables}
}

// poolStats holds the min-max bounds used for pool-relative normalization.
// Margin, age and price scores are always relative to the current request's
// candidate set, never to the whole catalog.
type poolStats struct {
	minMargin, maxMargin float64
	hasMargin            bool
	minAge, maxAge       float64
	minPrice, maxPrice   float64
	hasPrice             bool
}

// Generate produces ranked, deduplicated upsell suggestions for the context.
// An empty candidate pool after filtering yields an empty suggestion list,
// not an error.
func (e *UpsellEngine) Generate(ctx models.UpsellContext, candidates []models.Product) (*models.UpsellResult, error) {
	if !ctx.Placement.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPlacement, ctx.Placement)
	}

	maxResults := ctx.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxSuggestions
	}

	weights := EffectiveWeights(ctx.Placement)
	reference := e.referenceProduct(ctx)
	pool := e.filterCandidates(ctx, candidates)
	stats := computePoolStats(pool)
	now := time.Now().UTC()

	suggestions := make([]models.UpsellSuggestion, 0, len(pool))
	for i := range pool {
		candidate := &pool[i]
		suggestions = append(suggestions, e.scoreCandidate(candidate, reference, ctx, weights, stats, now))
	}

	// Rank by confidence, ties broken by ascending product id for stable output.
	sort.SliceStable(suggestions, func(i, j int) bool {
		if suggestions[i].ConfidenceScore != suggestions[j].ConfidenceScore {
			return suggestions[i].ConfidenceScore > suggestions[j].ConfidenceScore
		}
		return suggestions[i].Product.ID.String() < suggestions[j].Product.ID.String()
	})

	if len(suggestions) > maxResults {
		suggestions = suggestions[:maxResults]
	}

	return &models.UpsellResult{
		Suggestions: suggestions,
		Placement:   ctx.Placement,
		GeneratedAt: now,
	}, nil
}

// referenceProduct resolves the product the candidates are compared against:
// the viewed product when present, otherwise the dominant (highest-priced)
// cart item. Ties go to the lowest product id so the choice is deterministic.
func (e *UpsellEngine) referenceProduct(ctx models.UpsellContext) *models.Product {
	if ctx.CurrentProduct != nil {
		return ctx.CurrentProduct
	}
	var dominant *models.Product
	for i := range ctx.CartItems {
		item := &ctx.CartItems[i]
		if dominant == nil ||
			item.Price > dominant.Price ||
			(item.Price == dominant.Price && item.ID.String() < dominant.ID.String()) {
			dominant = item
		}
	}
	return dominant
}

// filterCandidates drops excluded products, the viewed product, and anything
// already in the cart.
func (e *UpsellEngine) filterCandidates(ctx models.UpsellContext, candidates []models.Product) []models.Product {
	excluded := make(map[uuid.UUID]struct{}, len(ctx.ExcludeProductIDs)+len(ctx.CartItems)+1)
	for _, id := range ctx.ExcludeProductIDs {
		excluded[id] = struct{}{}
	}
	if ctx.CurrentProduct != nil {
		excluded[ctx.CurrentProduct.ID] = struct{}{}
	}
	for i := range ctx.CartItems {
		excluded[ctx.CartItems[i].ID] = struct{}{}
	}

	filtered := make([]models.Product, 0, len(candidates))
	for _, candidate := range candidates {
		if _, skip := excluded[candidate.ID]; skip {
			continue
		}
		filtered = append(filtered, candidate)
	}
	return filtered
}

func (e *UpsellEngine) scoreCandidate(candidate, reference *models.Product, ctx models.UpsellContext, weights UpsellScoringWeights, stats poolStats, now time.Time) models.UpsellSuggestion {
	terpeneSignal, effectSignal := e.pairingSignals(candidate, reference)

	breakdown := models.UpsellScoreBreakdown{
		TerpeneEffectMatch: clamp01((terpeneSignal + effectSignal) / 2),
		MarginContribution: e.marginScore(candidate, stats),
		InventoryPriority:  e.inventoryScore(candidate, stats),
		CategoryComplement: e.categoryScore(candidate, reference),
		PriceFit:           e.priceFitScore(candidate, ctx.PricePreference, stats),
	}
	breakdown.TotalScore = clamp01(
		weights.TerpeneEffectMatch*breakdown.TerpeneEffectMatch +
			weights.MarginContribution*breakdown.MarginContribution +
			weights.InventoryPriority*breakdown.InventoryPriority +
			weights.CategoryComplement*breakdown.CategoryComplement +
			weights.PriceFit*breakdown.PriceFit)

	strategy := e.assignStrategy(breakdown, weights, terpeneSignal, effectSignal)
	reason := e.tables.ReasonFor(strategy)

	suggestion := models.UpsellSuggestion{
		Product:         candidate,
		Strategy:        strategy,
		Reason:          reason,
		ConfidenceScore: breakdown.TotalScore,
		ScoreBreakdown:  breakdown,
	}

	// Bundle membership beats the winner-take-all label: a candidate bundled
	// with the reference product is always presented as a bundle deal.
	if bundle := e.matchBundle(candidate, reference, ctx.ActiveBundles, now); bundle != nil {
		suggestion.Strategy = models.StrategyBundleMatch
		suggestion.Reason = bundle.SavingsText
		suggestion.SavingsText = &bundle.SavingsText
		suggestion.BundleID = &bundle.ID
	}

	return suggestion
}

// pairingSignals computes the terpene and effect complement signals, each
// normalized by the reference product's terpene/effect count. A missing
// reference scores zero on both.
func (e *UpsellEngine) pairingSignals(candidate, reference *models.Product) (float64, float64) {
	if reference == nil {
		return 0, 0
	}

	terpeneSignal := 0.0
	if len(reference.Terpenes) > 0 {
		matches := 0
		for refTerpene := range reference.Terpenes {
			complements := e.tables.TerpenePairings[normalizeKey(refTerpene)]
			for candTerpene := range candidate.Terpenes {
				if containsString(complements, normalizeKey(candTerpene)) {
					matches++
				}
			}
		}
		terpeneSignal = clamp01(float64(matches) / float64(len(reference.Terpenes)))
	}

	effectSignal := 0.0
	if len(reference.Effects) > 0 {
		matches := 0
		for _, refEffect := range reference.Effects {
			complements := e.tables.EffectComplements[normalizeKey(refEffect)]
			for _, candEffect := range candidate.Effects {
				if containsString(complements, normalizeKey(candEffect)) {
					matches++
				}
			}
		}
		effectSignal = clamp01(float64(matches) / float64(len(reference.Effects)))
	}

	return terpeneSignal, effectSignal
}

// marginScore min-max scales the candidate's margin against the pool.
// Products without wholesale cost score a neutral 0.5, as does a pool with
// no margin spread.
func (e *UpsellEngine) marginScore(candidate *models.Product, stats poolStats) float64 {
	margin, ok := candidate.Margin()
	if !ok || !stats.hasMargin {
		return neutralScore
	}
	spread := stats.maxMargin - stats.minMargin
	if spread == 0 {
		return neutralScore
	}
	return clamp01((margin - stats.minMargin) / spread)
}

// inventoryScore rewards older stock (clearance pressure), min-max scaled
// over the pool. Products without age data count as freshly received.
func (e *UpsellEngine) inventoryScore(candidate *models.Product, stats poolStats) float64 {
	spread := stats.maxAge - stats.minAge
	if spread == 0 {
		return neutralScore
	}
	return clamp01((productAge(candidate) - stats.minAge) / spread)
}

// categoryScore is binary on the category complement graph, with a 0.3
// baseline when no reference category exists (chatbot with no context).
func (e *UpsellEngine) categoryScore(candidate, reference *models.Product) float64 {
	if reference == nil || reference.Category == "" {
		return noReferenceCatScore
	}
	complements := e.tables.CategoryComplements[normalizeKey(reference.Category)]
	if containsString(complements, normalizeKey(candidate.Category)) {
		return 1.0
	}
	return 0.0
}

// priceFitScore measures distance from the target price implied by the
// shopper's preference, normalized over the pool price range. No stated
// preference scores neutral.
func (e *UpsellEngine) priceFitScore(candidate *models.Product, preference models.PricePreference, stats poolStats) float64 {
	band, ok := priceBandTargets[preference]
	if !ok {
		return neutralScore
	}
	spread := stats.maxPrice - stats.minPrice
	if !stats.hasPrice || spread == 0 {
		return neutralScore
	}
	target := stats.minPrice + band*spread
	return clamp01(1 - abs(candidate.Price-target)/spread)
}

// assignStrategy picks the strategy of the highest-contributing weighted
// sub-score. Ties keep the earlier factor in the fixed order: terpene/effect,
// margin, inventory, category, price.
func (e *UpsellEngine) assignStrategy(breakdown models.UpsellScoreBreakdown, weights UpsellScoringWeights, terpeneSignal, effectSignal float64) models.UpsellStrategy {
	terpeneStrategy := models.StrategyTerpenePairing
	if effectSignal > terpeneSignal {
		terpeneStrategy = models.StrategyEffectStacking
	}

	type contribution struct {
		value    float64
		strategy models.UpsellStrategy
	}
	contributions := []contribution{
		{weights.TerpeneEffectMatch * breakdown.TerpeneEffectMatch, terpeneStrategy},
		{weights.MarginContribution * breakdown.MarginContribution, models.StrategyMarginBoost},
		{weights.InventoryPriority * breakdown.InventoryPriority, models.StrategyClearance},
		{weights.CategoryComplement * breakdown.CategoryComplement, models.StrategyCategoryComplement},
		{weights.PriceFit * breakdown.PriceFit, models.StrategyPotencyLadder},
	}

	winner := contributions[0]
	for _, c := range contributions[1:] {
		if c.value > winner.value {
			winner = c
		}
	}
	return winner.strategy
}

// matchBundle returns the first active bundle containing both the candidate
// and the reference product.
func (e *UpsellEngine) matchBundle(candidate, reference *models.Product, bundles []models.Bundle, now time.Time) *models.Bundle {
	if reference == nil {
		return nil
	}
	for i := range bundles {
		bundle := &bundles[i]
		if bundle.ActiveAt(now) && bundle.Contains(reference.ID) && bundle.Contains(candidate.ID) {
			return bundle
		}
	}
	return nil
}

func computePoolStats(pool []models.Product) poolStats {
	var stats poolStats
	for i := range pool {
		p := &pool[i]

		if margin, ok := p.Margin(); ok {
			if !stats.hasMargin {
				stats.minMargin, stats.maxMargin = margin, margin
				stats.hasMargin = true
			} else {
				stats.minMargin = min(stats.minMargin, margin)
				stats.maxMargin = max(stats.maxMargin, margin)
			}
		}

		age := productAge(p)
		if i == 0 {
			stats.minAge, stats.maxAge = age, age
		} else {
			stats.minAge = min(stats.minAge, age)
			stats.maxAge = max(stats.maxAge, age)
		}

		if !stats.hasPrice {
			stats.minPrice, stats.maxPrice = p.Price, p.Price
			stats.hasPrice = true
		} else {
			stats.minPrice = min(stats.minPrice, p.Price)
			stats.maxPrice = max(stats.maxPrice, p.Price)
		}
	}
	return stats
}

func productAge(p *models.Product) float64 {
	if p.DaysInStock == nil {
		return 0
	}
	return float64(*p.DaysInStock)
}

func normalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
