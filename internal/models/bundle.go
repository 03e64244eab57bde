package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Bundle represents a curated product bundle defined by the dispensary.
// A candidate that shares an active bundle with the reference product is
// always labeled bundle_match, overriding score-based strategy assignment.
type Bundle struct {
	ID          uuid.UUID       `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID    string          `json:"tenantId" gorm:"not null;index:idx_bundles_tenant;index:idx_bundles_tenant_active"`
	Name        string          `json:"name" gorm:"not null"`
	Description *string         `json:"description,omitempty"`
	ProductIDs  StringArray     `json:"productIds" gorm:"type:jsonb;not null"`
	SavingsText string          `json:"savingsText" gorm:"not null"`
	DiscountPct *float64        `json:"discountPct,omitempty" gorm:"column:discount_pct"`
	IsActive    bool            `json:"isActive" gorm:"column:is_active;default:true;index:idx_bundles_tenant_active"`
	StartsAt    *time.Time      `json:"startsAt,omitempty" gorm:"column:starts_at"`
	EndsAt      *time.Time      `json:"endsAt,omitempty" gorm:"column:ends_at"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
	DeletedAt   *gorm.DeletedAt `json:"deletedAt,omitempty" gorm:"index"`
	CreatedBy   *string         `json:"createdBy,omitempty"`
}

// Contains reports whether the bundle includes the given product ID.
func (b *Bundle) Contains(productID uuid.UUID) bool {
	id := productID.String()
	for _, pid := range b.ProductIDs {
		if pid == id {
			return true
		}
	}
	return false
}

// ActiveAt reports whether the bundle is live at the given time,
// honoring the optional start/end window.
func (b *Bundle) ActiveAt(t time.Time) bool {
	if !b.IsActive {
		return false
	}
	if b.StartsAt != nil && t.Before(*b.StartsAt) {
		return false
	}
	if b.EndsAt != nil && t.After(*b.EndsAt) {
		return false
	}
	return true
}

// CreateBundleRequest represents a request to create a bundle
type CreateBundleRequest struct {
	Name        string      `json:"name" binding:"required"`
	Description *string     `json:"description,omitempty"`
	ProductIDs  []uuid.UUID `json:"productIds" binding:"required,min=2"`
	SavingsText string      `json:"savingsText" binding:"required"`
	DiscountPct *float64    `json:"discountPct,omitempty"`
	StartsAt    *time.Time  `json:"startsAt,omitempty"`
	EndsAt      *time.Time  `json:"endsAt,omitempty"`
}

// UpdateBundleRequest represents a request to update a bundle
type UpdateBundleRequest struct {
	Name        *string     `json:"name,omitempty"`
	Description *string     `json:"description,omitempty"`
	ProductIDs  []uuid.UUID `json:"productIds,omitempty"`
	SavingsText *string     `json:"savingsText,omitempty"`
	DiscountPct *float64    `json:"discountPct,omitempty"`
	IsActive    *bool       `json:"isActive,omitempty"`
	StartsAt    *time.Time  `json:"startsAt,omitempty"`
	EndsAt      *time.Time  `json:"endsAt,omitempty"`
}

type BundleResponse struct {
	Success bool    `json:"success"`
	Data    *Bundle `json:"data"`
	Message *string `json:"message,omitempty"`
}

type BundleListResponse struct {
	Success    bool            `json:"success"`
	Data       []Bundle        `json:"data"`
	Pagination *PaginationInfo `json:"pagination"`
}

// UUIDStrings converts product IDs to their string form for JSONB storage.
func UUIDStrings(ids []uuid.UUID) StringArray {
	out := make(StringArray, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

// TableName returns the table name for the Bundle model
func (Bundle) TableName() string {
	return "bundles"
}
