package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"upsell-service/internal/models"
	"upsell-service/internal/repository"
)

type BundleHandler struct {
	repo repository.BundleRepositoryInterface
}

func NewBundleHandler(repo repository.BundleRepositoryInterface) *BundleHandler {
	return &BundleHandler{repo: repo}
}

// CreateBundle creates a new product bundle
// @Summary Create bundle
// @Tags bundles
// @Accept json
// @Produce json
// @Param request body models.CreateBundleRequest true "Bundle"
// @Success 201 {object} models.BundleResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /bundles [post]
func (h *BundleHandler) CreateBundle(c *gin.Context) {
	tenantID, _ := c.Get("tenant_id")
	userID, _ := c.Get("user_id")

	var req models.CreateBundleRequest
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

	bundle := &models.Bundle{
		Name:        req.Name,
		Description: req.Description,
		ProductIDs:  models.UUIDStrings(req.ProductIDs),
		SavingsText: req.SavingsText,
		DiscountPct: req.DiscountPct,
		IsActive:    true,
		StartsAt:    req.StartsAt,
		EndsAt:      req.EndsAt,
	}
	if userID != nil {
		uid := userID.(string)
		bundle.CreatedBy = &uid
	}

	if err := h.repo.Create(tenantID.(string), bundle); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "CREATION_FAILED",
				Message: "Failed to create bundle",
				Details: &models.JSON{"error": err.Error()},
			},
		})
		return
	}

	c.JSON(http.StatusCreated, models.BundleResponse{
		Success: true,
		Data:    bundle,
	})
}

// GetBundle retrieves a single bundle
// @Summary Get bundle by ID
// @Tags bundles
// @Produce json
// @Param id path string true "Bundle ID"
// @Success 200 {object} models.BundleResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /bundles/{id} [get]
func (h *BundleHandler) GetBundle(c *gin.Context) {
	tenantID, _ := c.Get("tenant_id")

	bundleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "INVALID_ID",
				Message: "Bundle ID must be a valid UUID",
				Field:   "id",
			},
		})
		return
	}

	bundle, err := h.repo.GetByID(tenantID.(string), bundleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				Success: false,
				Error: models.Error{
					Code:    "BUNDLE_NOT_FOUND",
					Message: "Bundle not found",
				},
			})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "INTERNAL_ERROR",
				Message: "Failed to load bundle",
				Details: &models.JSON{"error": err.Error()},
			},
		})
		return
	}

	c.JSON(http.StatusOK, models.BundleResponse{
		Success: true,
		Data:    bundle,
	})
}

// GetBundles lists bundles with pagination
// @Summary List bundles
// @Tags bundles
// @Produce json
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} models.BundleListResponse
// @Router /bundles [get]
func (h *BundleHandler) GetBundles(c *gin.Context) {
	tenantID, _ := c.Get("tenant_id")

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	bundles, total, err := h.repo.List(tenantID.(string), page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "INTERNAL_ERROR",
				Message: "Failed to list bundles",
				Details: &models.JSON{"error": err.Error()},
			},
		})
		return
	}

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	totalPages := int((total + int64(limit) - 1) / int64(limit))

	c.JSON(http.StatusOK, models.BundleListResponse{
		Success: true,
		Data:    bundles,
		Pagination: &models.PaginationInfo{
			Page:        page,
			Limit:       limit,
			Total:       total,
			TotalPages:  totalPages,
			HasNext:     page < totalPages,
			HasPrevious: page > 1,
		},
	})
}

// UpdateBundle updates a bundle
// @Summary Update bundle
// @Tags bundles
// @Accept json
// @Produce json
// @Param id path string true "Bundle ID"
// @Param request body models.UpdateBundleRequest true "Updates"
// @Success 200 {object} models.BundleResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /bundles/{id} [put]
func (h *BundleHandler) UpdateBundle(c *gin.Context) {
	tenantID, _ := c.Get("tenant_id")

	bundleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "INVALID_ID",
				Message: "Bundle ID must be a valid UUID",
				Field:   "id",
			},
		})
		return
	}

	var req models.UpdateBundleRequest
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

	updates := make(map[string]interface{})
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if len(req.ProductIDs) > 0 {
		updates["product_ids"] = models.UUIDStrings(req.ProductIDs)
	}
	if req.SavingsText != nil {
		updates["savings_text"] = *req.SavingsText
	}
	if req.DiscountPct != nil {
		updates["discount_pct"] = *req.DiscountPct
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if req.StartsAt != nil {
		updates["starts_at"] = *req.StartsAt
	}
	if req.EndsAt != nil {
		updates["ends_at"] = *req.EndsAt
	}

	bundle, err := h.repo.Update(tenantID.(string), bundleID, updates)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				Success: false,
				Error: models.Error{
					Code:    "BUNDLE_NOT_FOUND",
					Message: "Bundle not found",
				},
			})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "UPDATE_FAILED",
				Message: "Failed to update bundle",
				Details: &models.JSON{"error": err.Error()},
			},
		})
		return
	}

	c.JSON(http.StatusOK, models.BundleResponse{
		Success: true,
		Data:    bundle,
	})
}

// DeleteBundle soft deletes a bundle
// @Summary Delete bundle
// @Tags bundles
// @Produce json
// @Param id path string true "Bundle ID"
// @Success 200 {object} models.SuccessResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /bundles/{id} [delete]
func (h *BundleHandler) DeleteBundle(c *gin.Context) {
	tenantID, _ := c.Get("tenant_id")

	bundleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "INVALID_ID",
				Message: "Bundle ID must be a valid UUID",
				Field:   "id",
			},
		})
		return
	}

	if err := h.repo.Delete(tenantID.(string), bundleID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				Success: false,
				Error: models.Error{
					Code:    "BUNDLE_NOT_FOUND",
					Message: "Bundle not found",
				},
			})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "DELETE_FAILED",
				Message: "Failed to delete bundle",
				Details: &models.JSON{"error": err.Error()},
			},
		})
		return
	}

	message := "Bundle deleted"
	c.JSON(http.StatusOK, models.SuccessResponse{
		Success: true,
		Message: &message,
	})
}
