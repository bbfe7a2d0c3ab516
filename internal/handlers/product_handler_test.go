// internal/handlers/product_handler_test.go
package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/shoplane/storefront-backend/internal/cache"
	"github.com/shoplane/storefront-backend/internal/models"
	"github.com/shoplane/storefront-backend/internal/services"
)

func newCatalogRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Category{}, &models.Product{}))

	productService := services.NewProductService(db, cache.New(nil, "catalog"))
	handler := NewProductHandler(productService)

	r := gin.New()
	r.GET("/v1/products", handler.GetProducts)
	r.GET("/v1/products/featured", handler.GetFeaturedProducts)
	r.GET("/v1/categories", handler.GetCategories)
	return r, db
}

func seedCatalog(t *testing.T, db *gorm.DB) models.Product {
	category := models.Category{Name: "Gadgets", Slug: "gadgets", IsActive: true}
	require.NoError(t, db.Create(&category).Error)

	product := models.Product{
		Name:       "Widget",
		CategoryID: category.ID,
		Price:      1000,
		Stock:      5,
		IsActive:   true,
		IsFeatured: true,
	}
	require.NoError(t, db.Create(&product).Error)

	hidden := models.Product{
		Name:       "Retired",
		CategoryID: category.ID,
		Price:      900,
		Stock:      0,
		IsActive:   false,
	}
	require.NoError(t, db.Create(&hidden).Error)
	return product
}

func TestGetProductsListsOnlyActive(t *testing.T) {
	r, db := newCatalogRouter(t)
	seedCatalog(t, db)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/v1/products", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool `json:"success"`
		Data    []struct {
			Name string `json:"name"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "Widget", resp.Data[0].Name)
	assert.Equal(t, "1", w.Header().Get("X-Total-Count"))
}

func TestGetProductsSearchFiltersByName(t *testing.T) {
	r, db := newCatalogRouter(t)
	seedCatalog(t, db)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/v1/products?search=widg", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1", w.Header().Get("X-Total-Count"))

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/v1/products?search=nomatch", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-Total-Count"))
}

// Catalog reads must degrade to structured JSON with empty data when the
// database is gone, not to a blank 500, so storefront list views keep
// rendering.
func TestGetProductsDegradesWhenDatabaseDown(t *testing.T) {
	r, db := newCatalogRouter(t)
	seedCatalog(t, db)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	for _, path := range []string{"/v1/products", "/v1/products/featured", "/v1/categories"} {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, path, nil)
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusServiceUnavailable, w.Code, path)

		var resp struct {
			Success bool          `json:"success"`
			Data    []interface{} `json:"data"`
			Error   *struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), path)
		assert.False(t, resp.Success)
		assert.Empty(t, resp.Data)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "SERVICE_UNAVAILABLE", resp.Error.Code)
	}
}
