package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"upsell-service/internal/models"
)

// BundleCacheTTL is the TTL for the active bundle cache; bundles change
// rarely compared to the menu.
const BundleCacheTTL = 10 * time.Minute

// BundleRepositoryInterface abstracts bundle storage for handlers and tests.
type BundleRepositoryInterface interface {
	Create(tenantID string, bundle *models.Bundle) error
	GetByID(tenantID string, bundleID uuid.UUID) (*models.Bundle, error)
	List(tenantID string, page, limit int) ([]models.Bundle, int64, error)
	ListActive(tenantID string) ([]models.Bundle, error)
	Update(tenantID string, bundleID uuid.UUID, updates map[string]interface{}) (*models.Bundle, error)
	Delete(tenantID string, bundleID uuid.UUID) error
}

type BundleRepository struct {
	db    *gorm.DB
	redis *redis.Client
}

var _ BundleRepositoryInterface = (*BundleRepository)(nil)

func NewBundleRepository(db *gorm.DB, redisClient *redis.Client) *BundleRepository {
	return &BundleRepository{
		db:    db,
		redis: redisClient,
	}
}

func (r *BundleRepository) activeCacheKey(tenantID string) string {
	return fmt.Sprintf("upsell:bundles:active:%s", tenantID)
}

func (r *BundleRepository) invalidate(ctx context.Context, tenantID string) {
	if r.redis == nil {
		return
	}
	_ = r.redis.Del(ctx, r.activeCacheKey(tenantID)).Err()
}

// Create creates a new bundle
func (r *BundleRepository) Create(tenantID string, bundle *models.Bundle) error {
	bundle.TenantID = tenantID
	bundle.CreatedAt = time.Now()
	bundle.UpdatedAt = time.Now()
	if bundle.ID == uuid.Nil {
		bundle.ID = uuid.New()
	}

	err := r.db.Create(bundle).Error
	if err == nil {
		r.invalidate(context.Background(), tenantID)
	}
	return err
}

// GetByID retrieves a bundle by ID
func (r *BundleRepository) GetByID(tenantID string, bundleID uuid.UUID) (*models.Bundle, error) {
	var bundle models.Bundle
	if err := r.db.Where("tenant_id = ? AND id = ?", tenantID, bundleID).First(&bundle).Error; err != nil {
		return nil, err
	}
	return &bundle, nil
}

// List retrieves bundles for a tenant with pagination
func (r *BundleRepository) List(tenantID string, page, limit int) ([]models.Bundle, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}

	var total int64
	if err := r.db.Model(&models.Bundle{}).Where("tenant_id = ?", tenantID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var bundles []models.Bundle
	err := r.db.Where("tenant_id = ?", tenantID).
		Order("created_at desc").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&bundles).Error
	if err != nil {
		return nil, 0, err
	}
	return bundles, total, nil
}

// ListActive returns the tenant's active bundles with caching. Time-window
// checks (StartsAt/EndsAt) are left to the engine so cached rows stay valid.
func (r *BundleRepository) ListActive(tenantID string) ([]models.Bundle, error) {
	ctx := context.Background()
	cacheKey := r.activeCacheKey(tenantID)

	if r.redis != nil {
		val, err := r.redis.Get(ctx, cacheKey).Result()
		if err == nil {
			var bundles []models.Bundle
			if err := json.Unmarshal([]byte(val), &bundles); err == nil {
				return bundles, nil
			}
		}
	}

	var bundles []models.Bundle
	err := r.db.Where("tenant_id = ? AND is_active = ?", tenantID, true).
		Order("created_at desc").
		Find(&bundles).Error
	if err != nil {
		return nil, err
	}

	if r.redis != nil {
		if data, err := json.Marshal(bundles); err == nil {
			r.redis.Set(ctx, cacheKey, data, BundleCacheTTL)
		}
	}

	return bundles, nil
}

// Update applies field updates to a bundle and invalidates the cache
func (r *BundleRepository) Update(tenantID string, bundleID uuid.UUID, updates map[string]interface{}) (*models.Bundle, error) {
	updates["updated_at"] = time.Now()

	result := r.db.Model(&models.Bundle{}).
		Where("tenant_id = ? AND id = ?", tenantID, bundleID).
		Updates(updates)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}

	r.invalidate(context.Background(), tenantID)

	var bundle models.Bundle
	if err := r.db.Where("tenant_id = ? AND id = ?", tenantID, bundleID).First(&bundle).Error; err != nil {
		return nil, err
	}
	return &bundle, nil
}

// Delete soft deletes a bundle
func (r *BundleRepository) Delete(tenantID string, bundleID uuid.UUID) error {
	result := r.db.Where("tenant_id = ? AND id = ?", tenantID, bundleID).
		Delete(&models.Bundle{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	r.invalidate(context.Background(), tenantID)
	return nil
}
