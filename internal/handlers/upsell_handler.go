package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"upsell-service/internal/events"
	"upsell-service/internal/models"
	"upsell-service/internal/repository"
	"upsell-service/internal/services"
)

type UpsellHandler struct {
	productRepo     repository.ProductRepositoryInterface
	bundleRepo      repository.BundleRepositoryInterface
	engine          *services.UpsellEngine
	eventsPublisher *events.Publisher
}

func NewUpsellHandler(productRepo repository.ProductRepositoryInterface, bundleRepo repository.BundleRepositoryInterface, engine *services.UpsellEngine, eventsPublisher *events.Publisher) *UpsellHandler {
	return &UpsellHandler{
		productRepo:     productRepo,
		bundleRepo:      bundleRepo,
		engine:          engine,
		eventsPublisher: eventsPublisher,
	}
}

// GenerateSuggestions produces ranked upsell suggestions for a placement
// @Summary Generate upsell suggestions
// @Description Score and rank upsell candidates for the requesting placement
// @Tags upsell
// @Accept json
// @Produce json
// @Param request body models.GenerateSuggestionsRequest true "Suggestion request"
// @Success 200 {object} models.UpsellResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /upsell/suggestions [post]
func (h *UpsellHandler) GenerateSuggestions(c *gin.Context) {
	tenantID, _ := c.Get("tenant_id")

	var req models.GenerateSuggestionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "VALIDATION_ERROR",
				Message: err.Error(),
			},
		})
		return
	}

	if !req.Placement.Valid() {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "INVALID_PLACEMENT",
				Message: "Placement must be one of: product_detail, cart, checkout, chatbot",
				Field:   "placement",
			},
		})
		return
	}

	upsellCtx := models.UpsellContext{
		Placement:         req.Placement,
		UserTolerance:     req.UserTolerance,
		PricePreference:   req.PricePreference,
		MaxResults:        req.MaxResults,
		ExcludeProductIDs: req.ExcludeProductIDs,
	}

	if req.CurrentProductID != nil {
		product, err := h.productRepo.GetByID(tenantID.(string), *req.CurrentProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, models.ErrorResponse{
					Success: false,
					Error: models.Error{
						Code:    "PRODUCT_NOT_FOUND",
						Message: "Current product not found",
						Field:   "currentProductId",
					},
				})
				return
			}
			h.respondInternalError(c, "Failed to load current product", err)
			return
		}
		upsellCtx.CurrentProduct = product
	}

	if len(req.CartProductIDs) > 0 {
		cartItems, err := h.productRepo.BatchGetByIDs(tenantID.(string), req.CartProductIDs)
		if err != nil {
			h.respondInternalError(c, "Failed to load cart items", err)
			return
		}
		// Unknown cart ids are dropped rather than rejected; the engine
		// degrades to its no-reference fallbacks when nothing resolves.
		upsellCtx.CartItems = cartItems
	}

	candidates, err := h.productRepo.ListCandidates(tenantID.(string))
	if err != nil {
		h.respondInternalError(c, "Failed to load candidate pool", err)
		return
	}

	bundles, err := h.bundleRepo.ListActive(tenantID.(string))
	if err != nil {
		h.respondInternalError(c, "Failed to load bundles", err)
		return
	}
	upsellCtx.ActiveBundles = bundles

	result, err := h.engine.Generate(upsellCtx, candidates)
	if err != nil {
		if errors.Is(err, services.ErrInvalidPlacement) {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Success: false,
				Error: models.Error{
					Code:    "INVALID_PLACEMENT",
					Message: err.Error(),
					Field:   "placement",
				},
			})
			return
		}
		h.respondInternalError(c, "Failed to generate suggestions", err)
		return
	}

	if h.eventsPublisher != nil {
		_ = h.eventsPublisher.PublishUpsellGenerated(c.Request.Context(), tenantID.(string), result, len(candidates))
	}

	c.JSON(http.StatusOK, models.UpsellResponse{
		Success: true,
		Data:    result,
	})
}

func (h *UpsellHandler) respondInternalError(c *gin.Context, message string, err error) {
	c.JSON(http.StatusInternalServerError, models.ErrorResponse{
		Success: false,
		Error: models.Error{
			Code:    "INTERNAL_ERROR",
			Message: message,
			Details: &models.JSON{"error": err.Error()},
		},
	})
}
