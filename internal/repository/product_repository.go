package repository

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"upsell-service/internal/models"
)

// Cache TTL constants
const (
	ProductCacheTTL   = 5 * time.Minute // Single product cache
	CandidateCacheTTL = 2 * time.Minute // Candidate pool cache (menus change often)
	ListCacheTTL      = 2 * time.Minute // Product list cache
)

// ProductRepositoryInterface abstracts product storage for handlers and tests.
type ProductRepositoryInterface interface {
	Create(tenantID string, product *models.Product) error
	GetByID(tenantID string, productID uuid.UUID) (*models.Product, error)
	BatchGetByIDs(tenantID string, productIDs []uuid.UUID) ([]models.Product, error)
	List(tenantID string, query models.ListProductsQuery) ([]models.Product, int64, error)
	ListCandidates(tenantID string) ([]models.Product, error)
	Update(tenantID string, productID uuid.UUID, updates map[string]interface{}) (*models.Product, error)
	Delete(tenantID string, productID uuid.UUID) error
	BulkUpsert(tenantID string, products []models.Product) (int, error)
}

type ProductRepository struct {
	db    *gorm.DB
	redis *redis.Client
}

var _ ProductRepositoryInterface = (*ProductRepository)(nil)

func NewProductRepository(db *gorm.DB, redisClient *redis.Client) *ProductRepository {
	return &ProductRepository{
		db:    db,
		redis: redisClient,
	}
}

// generateListCacheKey creates a deterministic cache key for list queries
func generateListCacheKey(tenantID string, prefix string, params interface{}) string {
	data, _ := json.Marshal(params)
	hash := md5.Sum(data)
	return fmt.Sprintf("upsell:%s:%s:%s", prefix, tenantID, hex.EncodeToString(hash[:]))
}

// deletePattern removes all redis keys matching the pattern via SCAN.
func (r *ProductRepository) deletePattern(ctx context.Context, pattern string) {
	if r.redis == nil {
		return
	}
	iter := r.redis.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		_ = r.redis.Del(ctx, iter.Val()).Err()
	}
}

// invalidateProductCaches invalidates all caches related to a product
func (r *ProductRepository) invalidateProductCaches(ctx context.Context, tenantID string, productID uuid.UUID) {
	if r.redis == nil {
		return
	}
	_ = r.redis.Del(ctx, fmt.Sprintf("upsell:product:%s:%s", tenantID, productID.String())).Err()
	r.deletePattern(ctx, fmt.Sprintf("upsell:products:%s:*", tenantID))
	_ = r.redis.Del(ctx, fmt.Sprintf("upsell:candidates:%s", tenantID)).Err()
}

// invalidateTenantCaches invalidates all product caches for a tenant
func (r *ProductRepository) invalidateTenantCaches(ctx context.Context, tenantID string) {
	if r.redis == nil {
		return
	}
	r.deletePattern(ctx, fmt.Sprintf("upsell:product:%s:*", tenantID))
	r.deletePattern(ctx, fmt.Sprintf("upsell:products:%s:*", tenantID))
	_ = r.redis.Del(ctx, fmt.Sprintf("upsell:candidates:%s", tenantID)).Err()
}

// Create creates a new product
func (r *ProductRepository) Create(tenantID string, product *models.Product) error {
	product.TenantID = tenantID
	product.CreatedAt = time.Now()
	product.UpdatedAt = time.Now()
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}

	err := r.db.Create(product).Error
	if err == nil {
		r.invalidateTenantCaches(context.Background(), tenantID)
	}
	return err
}

// GetByID retrieves a product by ID with caching
func (r *ProductRepository) GetByID(tenantID string, productID uuid.UUID) (*models.Product, error) {
	ctx := context.Background()
	cacheKey := fmt.Sprintf("upsell:product:%s:%s", tenantID, productID.String())

	if r.redis != nil {
		val, err := r.redis.Get(ctx, cacheKey).Result()
		if err == nil {
			var product models.Product
			if err := json.Unmarshal([]byte(val), &product); err == nil {
				return &product, nil
			}
		}
	}

	var product models.Product
	if err := r.db.Where("tenant_id = ? AND id = ?", tenantID, productID).First(&product).Error; err != nil {
		return nil, err
	}

	if r.redis != nil {
		if data, err := json.Marshal(product); err == nil {
			r.redis.Set(ctx, cacheKey, data, ProductCacheTTL)
		}
	}

	return &product, nil
}

// BatchGetByIDs retrieves multiple products by IDs in a single query
func (r *ProductRepository) BatchGetByIDs(tenantID string, productIDs []uuid.UUID) ([]models.Product, error) {
	if len(productIDs) == 0 {
		return []models.Product{}, nil
	}

	var products []models.Product
	err := r.db.Where("tenant_id = ? AND id IN ?", tenantID, productIDs).Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

// List retrieves products for a tenant with pagination and filters
func (r *ProductRepository) List(tenantID string, query models.ListProductsQuery) ([]models.Product, int64, error) {
	ctx := context.Background()
	cacheKey := generateListCacheKey(tenantID, "products", query)

	type cachedList struct {
		Products []models.Product `json:"products"`
		Total    int64            `json:"total"`
	}

	if r.redis != nil {
		val, err := r.redis.Get(ctx, cacheKey).Result()
		if err == nil {
			var cached cachedList
			if err := json.Unmarshal([]byte(val), &cached); err == nil {
				return cached.Products, cached.Total, nil
			}
		}
	}

	dbQuery := r.db.Model(&models.Product{}).Where("tenant_id = ?", tenantID)
	if query.Category != nil && *query.Category != "" {
		dbQuery = dbQuery.Where("category = ?", *query.Category)
	}
	if query.Status != nil && *query.Status != "" {
		dbQuery = dbQuery.Where("status = ?", *query.Status)
	}

	var total int64
	if err := dbQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := query.Page
	if page < 1 {
		page = 1
	}
	limit := query.Limit
	if limit < 1 {
		limit = 20
	}

	var products []models.Product
	err := dbQuery.Order("name asc").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&products).Error
	if err != nil {
		return nil, 0, err
	}

	if r.redis != nil {
		if data, err := json.Marshal(cachedList{Products: products, Total: total}); err == nil {
			r.redis.Set(ctx, cacheKey, data, ListCacheTTL)
		}
	}

	return products, total, nil
}

// ListCandidates returns the sellable candidate pool for upsell scoring:
// active products that are not out of stock.
func (r *ProductRepository) ListCandidates(tenantID string) ([]models.Product, error) {
	ctx := context.Background()
	cacheKey := fmt.Sprintf("upsell:candidates:%s", tenantID)

	if r.redis != nil {
		val, err := r.redis.Get(ctx, cacheKey).Result()
		if err == nil {
			var products []models.Product
			if err := json.Unmarshal([]byte(val), &products); err == nil {
				return products, nil
			}
		}
	}

	var products []models.Product
	err := r.db.
		Where("tenant_id = ? AND status = ?", tenantID, models.ProductStatusActive).
		Where("inventory_status IS NULL OR inventory_status NOT IN ?",
			[]models.InventoryStatus{models.InventoryStatusOutOfStock, models.InventoryStatusDiscontinued}).
		Order("id asc").
		Find(&products).Error
	if err != nil {
		return nil, err
	}

	if r.redis != nil {
		if data, err := json.Marshal(products); err == nil {
			r.redis.Set(ctx, cacheKey, data, CandidateCacheTTL)
		}
	}

	return products, nil
}

// Update applies field updates to a product and invalidates caches
func (r *ProductRepository) Update(tenantID string, productID uuid.UUID, updates map[string]interface{}) (*models.Product, error) {
	updates["updated_at"] = time.Now()

	result := r.db.Model(&models.Product{}).
		Where("tenant_id = ? AND id = ?", tenantID, productID).
		Updates(updates)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}

	r.invalidateProductCaches(context.Background(), tenantID, productID)

	var product models.Product
	if err := r.db.Where("tenant_id = ? AND id = ?", tenantID, productID).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// Delete soft deletes a product
func (r *ProductRepository) Delete(tenantID string, productID uuid.UUID) error {
	result := r.db.Where("tenant_id = ? AND id = ?", tenantID, productID).
		Delete(&models.Product{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	r.invalidateProductCaches(context.Background(), tenantID, productID)
	return nil
}

// BulkUpsert inserts or updates products by tenant+SKU inside a transaction.
// Used by menu import; returns the number of rows written.
func (r *ProductRepository) BulkUpsert(tenantID string, products []models.Product) (int, error) {
	if len(products) == 0 {
		return 0, nil
	}

	written := 0
	err := r.db.Transaction(func(tx *gorm.DB) error {
		for i := range products {
			product := &products[i]
			product.TenantID = tenantID
			product.UpdatedAt = time.Now()

			var existing models.Product
			err := tx.Where("tenant_id = ? AND sku = ?", tenantID, product.SKU).First(&existing).Error
			switch {
			case err == nil:
				product.ID = existing.ID
				product.CreatedAt = existing.CreatedAt
				if err := tx.Model(&existing).Updates(product).Error; err != nil {
					return err
				}
			case err == gorm.ErrRecordNotFound:
				if product.ID == uuid.Nil {
					product.ID = uuid.New()
				}
				product.CreatedAt = time.Now()
				if err := tx.Create(product).Error; err != nil {
					return err
				}
			default:
				return err
			}
			written++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	r.invalidateTenantCaches(context.Background(), tenantID)
	return written, nil
}
