package models

import (
	"time"

	"github.com/google/uuid"
)

// Placement identifies the UI surface requesting upsell suggestions.
// Each placement can carry its own scoring weight overrides.
type Placement string

const (
	PlacementProductDetail Placement = "product_detail"
	PlacementCart          Placement = "cart"
	PlacementCheckout      Placement = "checkout"
	PlacementChatbot       Placement = "chatbot"
)

// Valid reports whether the placement is one of the four supported surfaces.
func (p Placement) Valid() bool {
	switch p {
	case PlacementProductDetail, PlacementCart, PlacementCheckout, PlacementChatbot:
		return true
	}
	return false
}

// UpsellStrategy labels why a product was suggested.
type UpsellStrategy string

const (
	StrategyTerpenePairing     UpsellStrategy = "terpene_pairing"
	StrategyEffectStacking     UpsellStrategy = "effect_stacking"
	StrategyCategoryComplement UpsellStrategy = "category_complement"
	StrategyPotencyLadder      UpsellStrategy = "potency_ladder"
	StrategyClearance          UpsellStrategy = "clearance"
	StrategyMarginBoost        UpsellStrategy = "margin_boost"
	StrategyBundleMatch        UpsellStrategy = "bundle_match"
	StrategyPopularPairing     UpsellStrategy = "popular_pairing"
)

// UserTolerance is the shopper's self-reported potency tolerance.
type UserTolerance string

const (
	ToleranceLow    UserTolerance = "low"
	ToleranceMedium UserTolerance = "medium"
	ToleranceHigh   UserTolerance = "high"
)

// PricePreference is the shopper's price band preference.
type PricePreference string

const (
	PriceBudget  PricePreference = "budget"
	PriceMid     PricePreference = "mid"
	PricePremium PricePreference = "premium"
)

// UpsellContext carries everything the engine needs for one request.
// It is built fresh per request and never persisted.
type UpsellContext struct {
	Placement         Placement
	CurrentProduct    *Product
	CartItems         []Product
	UserTolerance     UserTolerance
	PricePreference   PricePreference
	MaxResults        int
	ExcludeProductIDs []uuid.UUID
	ActiveBundles     []Bundle
}

// UpsellScoreBreakdown exposes the five sub-scores behind a suggestion.
// Every field is clamped to [0,1]; TotalScore is the weighted composite.
type UpsellScoreBreakdown struct {
	TerpeneEffectMatch float64 `json:"terpeneEffectMatch"`
	MarginContribution float64 `json:"marginContribution"`
	InventoryPriority  float64 `json:"inventoryPriority"`
	CategoryComplement float64 `json:"categoryComplement"`
	PriceFit           float64 `json:"priceFit"`
	TotalScore         float64 `json:"totalScore"`
}

// UpsellSuggestion is a single ranked recommendation.
type UpsellSuggestion struct {
	Product         *Product             `json:"product"`
	Strategy        UpsellStrategy       `json:"strategy"`
	Reason          string               `json:"reason"`
	SavingsText     *string              `json:"savingsText,omitempty"`
	ConfidenceScore float64              `json:"confidenceScore"`
	BundleID        *uuid.UUID           `json:"bundleId,omitempty"`
	ScoreBreakdown  UpsellScoreBreakdown `json:"scoreBreakdown"`
}

// UpsellResult is the engine's output for one request.
type UpsellResult struct {
	Suggestions []UpsellSuggestion `json:"suggestions"`
	Placement   Placement          `json:"placement"`
	GeneratedAt time.Time          `json:"generatedAt"`
}

// GenerateSuggestionsRequest is the HTTP payload for suggestion generation.
type GenerateSuggestionsRequest struct {
	Placement         Placement       `json:"placement" binding:"required"`
	CurrentProductID  *uuid.UUID      `json:"currentProductId,omitempty"`
	CartProductIDs    []uuid.UUID     `json:"cartProductIds,omitempty"`
	UserTolerance     UserTolerance   `json:"userTolerance,omitempty"`
	PricePreference   PricePreference `json:"pricePreference,omitempty"`
	MaxResults        int             `json:"maxResults,omitempty"`
	ExcludeProductIDs []uuid.UUID     `json:"excludeProductIds,omitempty"`
}

// UpsellResponse wraps an UpsellResult in the standard response envelope.
type UpsellResponse struct {
	Success bool          `json:"success"`
	Data    *UpsellResult `json:"data"`
	Message *string       `json:"message,omitempty"`
}
