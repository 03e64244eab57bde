package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProductStatus represents the status of a product
type ProductStatus string

const (
	ProductStatusDraft    ProductStatus = "DRAFT"
	ProductStatusActive   ProductStatus = "ACTIVE"
	ProductStatusInactive ProductStatus = "INACTIVE"
	ProductStatusArchived ProductStatus = "ARCHIVED"
)

// InventoryStatus represents the inventory status of a product
type InventoryStatus string

const (
	InventoryStatusInStock      InventoryStatus = "IN_STOCK"
	InventoryStatusLowStock     InventoryStatus = "LOW_STOCK"
	InventoryStatusOutOfStock   InventoryStatus = "OUT_OF_STOCK"
	InventoryStatusDiscontinued InventoryStatus = "DISCONTINUED"
)

// TerpeneProfile maps terpene name to potency (mg/g or percent, POS-dependent)
type TerpeneProfile map[string]float64

func (t TerpeneProfile) Value() (driver.Value, error) {
	return json.Marshal(t)
}

func (t *TerpeneProfile) Scan(value interface{}) error {
	if value == nil {
		*t = make(TerpeneProfile)
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, t)
}

// StringArray is a JSONB-backed string slice (effect tags, keywords)
type StringArray []string

func (a StringArray) Value() (driver.Value, error) {
	return json.Marshal(a)
}

func (a *StringArray) Scan(value interface{}) error {
	if value == nil {
		*a = make(StringArray, 0)
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, a)
}

// JSON type for PostgreSQL JSONB (object/map)
type JSON map[string]interface{}

func (j JSON) Value() (driver.Value, error) {
	return json.Marshal(j)
}

func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = make(JSON)
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, j)
}

// Product represents a catalog item synced from the dispensary's POS/menu.
// Terpene and effect data power the upsell scoring engine; wholesale cost and
// days-in-stock feed the margin and clearance signals.
type Product struct {
	ID              uuid.UUID        `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID        string           `json:"tenantId" gorm:"not null;index:idx_upsell_products_tenant;index:idx_upsell_products_tenant_status;index:idx_upsell_products_tenant_sku,unique"`
	Name            string           `json:"name" gorm:"not null"`
	SKU             string           `json:"sku" gorm:"not null;index:idx_upsell_products_tenant_sku,unique"`
	Brand           *string          `json:"brand,omitempty" gorm:"index"`
	Category        string           `json:"category" gorm:"not null;index"`
	Description     *string          `json:"description,omitempty"`
	Price           float64          `json:"price" gorm:"not null"`
	WholesaleCost   *float64         `json:"wholesaleCost,omitempty"`
	THCPercent      *float64         `json:"thcPercent,omitempty" gorm:"column:thc_percent"`
	CBDPercent      *float64         `json:"cbdPercent,omitempty" gorm:"column:cbd_percent"`
	Terpenes        TerpeneProfile   `json:"terpenes" gorm:"type:jsonb"`
	Effects         StringArray      `json:"effects" gorm:"type:jsonb"`
	StrainType      *string          `json:"strainType,omitempty" gorm:"column:strain_type"`
	Status          ProductStatus    `json:"status" gorm:"not null;default:'DRAFT';index:idx_upsell_products_tenant_status"`
	InventoryStatus *InventoryStatus `json:"inventoryStatus,omitempty" gorm:"index"`
	Quantity        *int             `json:"quantity,omitempty"`
	DaysInStock     *int             `json:"daysInStock,omitempty" gorm:"column:days_in_stock"`
	ReceivedAt      *time.Time       `json:"receivedAt,omitempty" gorm:"column:received_at"`
	ImageURL        *string          `json:"imageUrl,omitempty" gorm:"column:image_url"`
	POSProductID    *string          `json:"posProductId,omitempty" gorm:"column:pos_product_id;index"`
	Metadata        *JSON            `json:"metadata,omitempty" gorm:"type:jsonb"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
	DeletedAt       *gorm.DeletedAt  `json:"deletedAt,omitempty" gorm:"index"`
	CreatedBy       *string          `json:"createdBy,omitempty"`
	UpdatedBy       *string          `json:"updatedBy,omitempty"`
}

// Margin returns price minus wholesale cost, and whether cost data exists.
func (p *Product) Margin() (float64, bool) {
	if p.WholesaleCost == nil {
		return 0, false
	}
	return p.Price - *p.WholesaleCost, true
}

// CreateProductRequest represents a request to create a new product
type CreateProductRequest struct {
	Name          string         `json:"name" binding:"required"`
	SKU           string         `json:"sku" binding:"required"`
	Brand         *string        `json:"brand,omitempty"`
	Category      string         `json:"category" binding:"required"`
	Description   *string        `json:"description,omitempty"`
	Price         float64        `json:"price" binding:"required,gt=0"`
	WholesaleCost *float64       `json:"wholesaleCost,omitempty"`
	THCPercent    *float64       `json:"thcPercent,omitempty"`
	CBDPercent    *float64       `json:"cbdPercent,omitempty"`
	Terpenes      TerpeneProfile `json:"terpenes,omitempty"`
	Effects       []string       `json:"effects,omitempty"`
	StrainType    *string        `json:"strainType,omitempty"`
	Quantity      *int           `json:"quantity,omitempty"`
	DaysInStock   *int           `json:"daysInStock,omitempty"`
	ImageURL      *string        `json:"imageUrl,omitempty"`
	POSProductID  *string        `json:"posProductId,omitempty"`
}

// UpdateProductRequest represents a request to update a product
type UpdateProductRequest struct {
	Name          *string        `json:"name,omitempty"`
	SKU           *string        `json:"sku,omitempty"`
	Brand         *string        `json:"brand,omitempty"`
	Category      *string        `json:"category,omitempty"`
	Description   *string        `json:"description,omitempty"`
	Price         *float64       `json:"price,omitempty"`
	WholesaleCost *float64       `json:"wholesaleCost,omitempty"`
	THCPercent    *float64       `json:"thcPercent,omitempty"`
	CBDPercent    *float64       `json:"cbdPercent,omitempty"`
	Terpenes      TerpeneProfile `json:"terpenes,omitempty"`
	Effects       []string       `json:"effects,omitempty"`
	StrainType    *string        `json:"strainType,omitempty"`
	Quantity      *int           `json:"quantity,omitempty"`
	DaysInStock   *int           `json:"daysInStock,omitempty"`
	ImageURL      *string        `json:"imageUrl,omitempty"`
	Status        *ProductStatus `json:"status,omitempty"`
}

// ListProductsQuery represents query parameters for listing products
type ListProductsQuery struct {
	Category *string        `form:"category"`
	Status   *ProductStatus `form:"status"`
	Page     int            `form:"page,default=1"`
	Limit    int            `form:"limit,default=20"`
}

// Response types
type PaginationInfo struct {
	Page        int   `json:"page"`
	Limit       int   `json:"limit"`
	Total       int64 `json:"total"`
	TotalPages  int   `json:"totalPages"`
	HasNext     bool  `json:"hasNext"`
	HasPrevious bool  `json:"hasPrevious"`
}

type ProductResponse struct {
	Success bool     `json:"success"`
	Data    *Product `json:"data"`
	Message *string  `json:"message,omitempty"`
}

type ProductListResponse struct {
	Success    bool            `json:"success"`
	Data       []Product       `json:"data"`
	Pagination *PaginationInfo `json:"pagination"`
}

type ErrorResponse struct {
	Success   bool   `json:"success"`
	Error     Error  `json:"error"`
	Timestamp string `json:"timestamp,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Details *JSON  `json:"details,omitempty"`
}

type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message *string     `json:"message,omitempty"`
}

// TableName returns the table name for the Product model
func (Product) TableName() string {
	return "products"
}
