package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"upsell-service/internal/models"
	"upsell-service/internal/services"
)

type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) Create(tenantID string, product *models.Product) error {
	args := m.Called(tenantID, product)
	return args.Error(0)
}

func (m *MockProductRepository) GetByID(tenantID string, productID uuid.UUID) (*models.Product, error) {
	args := m.Called(tenantID, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockProductRepository) BatchGetByIDs(tenantID string, productIDs []uuid.UUID) ([]models.Product, error) {
	args := m.Called(tenantID, productIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Product), args.Error(1)
}

func (m *MockProductRepository) List(tenantID string, query models.ListProductsQuery) ([]models.Product, int64, error) {
	args := m.Called(tenantID, query)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]models.Product), args.Get(1).(int64), args.Error(2)
}

func (m *MockProductRepository) ListCandidates(tenantID string) ([]models.Product, error) {
	args := m.Called(tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Product), args.Error(1)
}

func (m *MockProductRepository) Update(tenantID string, productID uuid.UUID, updates map[string]interface{}) (*models.Product, error) {
	args := m.Called(tenantID, productID, updates)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockProductRepository) Delete(tenantID string, productID uuid.UUID) error {
	args := m.Called(tenantID, productID)
	return args.Error(0)
}

func (m *MockProductRepository) BulkUpsert(tenantID string, products []models.Product) (int, error) {
	args := m.Called(tenantID, products)
	return args.Int(0), args.Error(1)
}

type MockBundleRepository struct {
	mock.Mock
}

func (m *MockBundleRepository) Create(tenantID string, bundle *models.Bundle) error {
	args := m.Called(tenantID, bundle)
	return args.Error(0)
}

func (m *MockBundleRepository) GetByID(tenantID string, bundleID uuid.UUID) (*models.Bundle, error) {
	args := m.Called(tenantID, bundleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Bundle), args.Error(1)
}

func (m *MockBundleRepository) List(tenantID string, page, limit int) ([]models.Bundle, int64, error) {
	args := m.Called(tenantID, page, limit)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]models.Bundle), args.Get(1).(int64), args.Error(2)
}

func (m *MockBundleRepository) ListActive(tenantID string) ([]models.Bundle, error) {
	args := m.Called(tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Bundle), args.Error(1)
}

func (m *MockBundleRepository) Update(tenantID string, bundleID uuid.UUID, updates map[string]interface{}) (*models.Bundle, error) {
	args := m.Called(tenantID, bundleID, updates)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Bundle), args.Error(1)
}

func (m *MockBundleRepository) Delete(tenantID string, bundleID uuid.UUID) error {
	args := m.Called(tenantID, bundleID)
	return args.Error(0)
}

const testTenantID = "tenant-abc"

func setupUpsellRouter(productRepo *MockProductRepository, bundleRepo *MockBundleRepository) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("tenant_id", testTenantID)
		c.Set("user_id", "user-123")
		c.Next()
	})

	handler := NewUpsellHandler(productRepo, bundleRepo, services.NewUpsellEngine(nil), nil)
	router.POST("/api/v1/upsell/suggestions", handler.GenerateSuggestions)
	return router
}

func performSuggestionRequest(router *gin.Engine, body interface{}) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/upsell/suggestions", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func catalogProduct(name, category string, price float64) models.Product {
	return models.Product{
		ID:       uuid.New(),
		TenantID: testTenantID,
		Name:     name,
		SKU:      name,
		Category: category,
		Price:    price,
		Status:   models.ProductStatusActive,
	}
}

func TestGenerateSuggestionsSuccess(t *testing.T) {
	productRepo := new(MockProductRepository)
	bundleRepo := new(MockBundleRepository)

	candidates := []models.Product{
		catalogProduct("Gummies 10pk", "edibles", 18),
		catalogProduct("Pre-Roll 1g", "pre-rolls", 10),
	}
	productRepo.On("ListCandidates", testTenantID).Return(candidates, nil)
	bundleRepo.On("ListActive", testTenantID).Return([]models.Bundle{}, nil)

	router := setupUpsellRouter(productRepo, bundleRepo)
	w := performSuggestionRequest(router, models.GenerateSuggestionsRequest{
		Placement: models.PlacementCart,
	})

	require.Equal(t, http.StatusOK, w.Code)

	var resp models.UpsellResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Data)
	assert.Equal(t, models.PlacementCart, resp.Data.Placement)
	assert.Len(t, resp.Data.Suggestions, 2)

	productRepo.AssertExpectations(t)
	bundleRepo.AssertExpectations(t)
}

func TestGenerateSuggestionsInvalidPlacement(t *testing.T) {
	productRepo := new(MockProductRepository)
	bundleRepo := new(MockBundleRepository)

	router := setupUpsellRouter(productRepo, bundleRepo)
	w := performSuggestionRequest(router, models.GenerateSuggestionsRequest{
		Placement: "kiosk",
	})

	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "INVALID_PLACEMENT", resp.Error.Code)
	productRepo.AssertNotCalled(t, "ListCandidates", mock.Anything)
}

func TestGenerateSuggestionsMissingPlacement(t *testing.T) {
	productRepo := new(MockProductRepository)
	bundleRepo := new(MockBundleRepository)

	router := setupUpsellRouter(productRepo, bundleRepo)
	w := performSuggestionRequest(router, map[string]interface{}{})

	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
}

func TestGenerateSuggestionsCurrentProductNotFound(t *testing.T) {
	productRepo := new(MockProductRepository)
	bundleRepo := new(MockBundleRepository)

	missingID := uuid.New()
	productRepo.On("GetByID", testTenantID, missingID).Return(nil, gorm.ErrRecordNotFound)

	router := setupUpsellRouter(productRepo, bundleRepo)
	w := performSuggestionRequest(router, models.GenerateSuggestionsRequest{
		Placement:        models.PlacementProductDetail,
		CurrentProductID: &missingID,
	})

	require.Equal(t, http.StatusNotFound, w.Code)

	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "PRODUCT_NOT_FOUND", resp.Error.Code)
	productRepo.AssertExpectations(t)
}

func TestGenerateSuggestionsCandidateLoadFailure(t *testing.T) {
	productRepo := new(MockProductRepository)
	bundleRepo := new(MockBundleRepository)

	productRepo.On("ListCandidates", testTenantID).Return(nil, errors.New("connection refused"))

	router := setupUpsellRouter(productRepo, bundleRepo)
	w := performSuggestionRequest(router, models.GenerateSuggestionsRequest{
		Placement: models.PlacementChatbot,
	})

	require.Equal(t, http.StatusInternalServerError, w.Code)

	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "INTERNAL_ERROR", resp.Error.Code)
}

func TestGenerateSuggestionsResolvesCartItems(t *testing.T) {
	productRepo := new(MockProductRepository)
	bundleRepo := new(MockBundleRepository)

	cartProduct := catalogProduct("Blue Dream 3.5g", "flower", 35)
	cartIDs := []uuid.UUID{cartProduct.ID}

	candidates := []models.Product{
		catalogProduct("Gummies 10pk", "edibles", 18),
	}
	productRepo.On("BatchGetByIDs", testTenantID, cartIDs).Return([]models.Product{cartProduct}, nil)
	productRepo.On("ListCandidates", testTenantID).Return(candidates, nil)
	bundleRepo.On("ListActive", testTenantID).Return([]models.Bundle{}, nil)

	router := setupUpsellRouter(productRepo, bundleRepo)
	w := performSuggestionRequest(router, models.GenerateSuggestionsRequest{
		Placement:      models.PlacementCart,
		CartProductIDs: cartIDs,
	})

	require.Equal(t, http.StatusOK, w.Code)
	productRepo.AssertExpectations(t)
}

func TestGenerateSuggestionsExcludesCartProducts(t *testing.T) {
	productRepo := new(MockProductRepository)
	bundleRepo := new(MockBundleRepository)

	inCart := catalogProduct("Blue Dream 3.5g", "flower", 35)
	other := catalogProduct("Gummies 10pk", "edibles", 18)

	productRepo.On("ListCandidates", testTenantID).Return([]models.Product{inCart, other}, nil)
	bundleRepo.On("ListActive", testTenantID).Return([]models.Bundle{}, nil)

	router := setupUpsellRouter(productRepo, bundleRepo)
	w := performSuggestionRequest(router, models.GenerateSuggestionsRequest{
		Placement:         models.PlacementCheckout,
		ExcludeProductIDs: []uuid.UUID{inCart.ID},
	})

	require.Equal(t, http.StatusOK, w.Code)

	var resp models.UpsellResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Data)
	for _, suggestion := range resp.Data.Suggestions {
		assert.NotEqual(t, inCart.ID, suggestion.Product.ID)
	}
}

func TestGenerateSuggestionsBundleFlagged(t *testing.T) {
	productRepo := new(MockProductRepository)
	bundleRepo := new(MockBundleRepository)

	current := catalogProduct("Blue Dream 3.5g", "flower", 35)
	partner := catalogProduct("Pre-Roll 1g", "pre-rolls", 10)

	savings := "Save $5 together"
	bundle := models.Bundle{
		ID:          uuid.New(),
		TenantID:    testTenantID,
		Name:        "Starter Pack",
		ProductIDs:  models.UUIDStrings([]uuid.UUID{current.ID, partner.ID}),
		SavingsText: savings,
		IsActive:    true,
	}

	productRepo.On("GetByID", testTenantID, current.ID).Return(&current, nil)
	productRepo.On("ListCandidates", testTenantID).Return([]models.Product{partner}, nil)
	bundleRepo.On("ListActive", testTenantID).Return([]models.Bundle{bundle}, nil)

	router := setupUpsellRouter(productRepo, bundleRepo)
	w := performSuggestionRequest(router, models.GenerateSuggestionsRequest{
		Placement:        models.PlacementProductDetail,
		CurrentProductID: &current.ID,
	})

	require.Equal(t, http.StatusOK, w.Code)

	var resp models.UpsellResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Data)
	require.NotEmpty(t, resp.Data.Suggestions)

	top := resp.Data.Suggestions[0]
	assert.Equal(t, models.StrategyBundleMatch, top.Strategy)
	require.NotNil(t, top.BundleID)
	assert.Equal(t, bundle.ID, *top.BundleID)
	require.NotNil(t, top.SavingsText)
	assert.Equal(t, savings, *top.SavingsText)
}
