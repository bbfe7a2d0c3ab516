// internal/services/product_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/shoplane/storefront-backend/internal/cache"
	"github.com/shoplane/storefront-backend/internal/models"
	"github.com/shoplane/storefront-backend/internal/utils"
)

var ErrCategoryNotFound = errors.New("category not found")

const (
	productCacheTTL    = 5 * time.Minute
	featuredCacheKey   = "products:featured"
	categoriesCacheKey = "categories:all"
)

type ProductService struct {
	db    *gorm.DB
	cache *cache.Cache
}

type CreateProductRequest struct {
	Name          string   `json:"name" validate:"required,min=2,max=200"`
	Description   string   `json:"description,omitempty"`
	CategoryID    string   `json:"category_id" validate:"required,uuid"`
	Price         int64    `json:"price" validate:"required,min=1"`
	OriginalPrice *int64   `json:"original_price,omitempty"`
	Stock         int      `json:"stock" validate:"min=0"`
	IsFeatured    bool     `json:"is_featured"`
	Images        []string `json:"images,omitempty"`
	Tags          []string `json:"tags,omitempty"`
}

type UpdateProductRequest struct {
	Name          *string   `json:"name,omitempty"`
	Description   *string   `json:"description,omitempty"`
	CategoryID    *string   `json:"category_id,omitempty"`
	Price         *int64    `json:"price,omitempty" validate:"omitempty,min=1"`
	OriginalPrice *int64    `json:"original_price,omitempty"`
	Stock         *int      `json:"stock,omitempty" validate:"omitempty,min=0"`
	IsActive      *bool     `json:"is_active,omitempty"`
	IsFeatured    *bool     `json:"is_featured,omitempty"`
	Images        *[]string `json:"images,omitempty"`
	Tags          *[]string `json:"tags,omitempty"`
}

func NewProductService(db *gorm.DB, c *cache.Cache) *ProductService {
	return &ProductService{db: db, cache: c}
}

// ListProducts returns the public catalog page. Only active products are
// visible; search matches name and description, category filters by slug.
func (s *ProductService) ListProducts(ctx context.Context, params utils.PaginationParams) (*utils.PaginationResult, error) {
	cacheKey := fmt.Sprintf("products:list:%d:%d:%s:%s:%s:%s",
		params.Page, params.Limit, params.Sort, params.Order, params.Search, params.Category)

	var cached utils.PaginationResult
	if s.cache.GetJSON(ctx, cacheKey, &cached) {
		return &cached, nil
	}

	query := s.db.Model(&models.Product{}).Where("products.is_active = ?", true)

	if params.Search != "" {
		like := "%" + strings.ToLower(params.Search) + "%"
		query = query.Where("LOWER(products.name) LIKE ? OR LOWER(products.description) LIKE ?", like, like)
	}
	if params.Category != "" {
		query = query.Joins("JOIN categories ON categories.id = products.category_id").
			Where("categories.slug = ?", params.Category)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	// The category join brings a second created_at into scope, so the sort
	// column is qualified instead of going through ApplySort.
	sortField := params.Sort
	switch sortField {
	case "created_at", "price", "name", "rating":
	default:
		sortField = "created_at"
	}
	query = query.Order("products." + sortField + " " + params.Order)

	var products []models.Product
	if err := utils.ApplyPagination(query.Preload("Category"), params).Find(&products).Error; err != nil {
		return nil, err
	}

	result := utils.CreatePaginationResult(products, total, params)
	s.cache.SetJSON(ctx, cacheKey, result, productCacheTTL)
	return &result, nil
}

// ListAllProducts is the admin catalog view. Inactive products are
// included so deactivated items stay manageable, and nothing is cached.
func (s *ProductService) ListAllProducts(params utils.PaginationParams) (*utils.PaginationResult, error) {
	query := s.db.Model(&models.Product{})

	if params.Search != "" {
		like := "%" + strings.ToLower(params.Search) + "%"
		query = query.Where("LOWER(products.name) LIKE ? OR LOWER(products.description) LIKE ?", like, like)
	}
	if params.Category != "" {
		query = query.Joins("JOIN categories ON categories.id = products.category_id").
			Where("categories.slug = ?", params.Category)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	sortField := params.Sort
	switch sortField {
	case "created_at", "price", "name", "rating", "stock":
	default:
		sortField = "created_at"
	}
	query = query.Order("products." + sortField + " " + params.Order)

	var products []models.Product
	if err := utils.ApplyPagination(query.Preload("Category"), params).Find(&products).Error; err != nil {
		return nil, err
	}

	result := utils.CreatePaginationResult(products, total, params)
	return &result, nil
}

// GetProduct loads a single active product by ID.
func (s *ProductService) GetProduct(productID uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := s.db.Preload("Category").
		First(&product, "id = ? AND is_active = ?", productID, true).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// GetFeaturedProducts returns the homepage strip, cached briefly.
func (s *ProductService) GetFeaturedProducts(ctx context.Context, limit int) ([]models.Product, error) {
	if limit < 1 || limit > 24 {
		limit = 8
	}

	var cached []models.Product
	if s.cache.GetJSON(ctx, featuredCacheKey, &cached) && len(cached) >= limit {
		return cached[:limit], nil
	}

	var products []models.Product
	err := s.db.Preload("Category").
		Where("is_active = ? AND is_featured = ?", true, true).
		Order("rating DESC, created_at DESC").
		Limit(limit).
		Find(&products).Error
	if err != nil {
		return nil, err
	}

	s.cache.SetJSON(ctx, featuredCacheKey, products, productCacheTTL)
	return products, nil
}

// ListCategories returns active categories with product counts.
func (s *ProductService) ListCategories(ctx context.Context) ([]map[string]interface{}, error) {
	var cached []map[string]interface{}
	if s.cache.GetJSON(ctx, categoriesCacheKey, &cached) {
		return cached, nil
	}

	var categories []models.Category
	if err := s.db.Where("is_active = ?", true).Order("name ASC").Find(&categories).Error; err != nil {
		return nil, err
	}

	out := make([]map[string]interface{}, 0, len(categories))
	for _, cat := range categories {
		var count int64
		s.db.Model(&models.Product{}).
			Where("category_id = ? AND is_active = ?", cat.ID, true).
			Count(&count)
		out = append(out, map[string]interface{}{
			"id":            cat.ID,
			"name":          cat.Name,
			"slug":          cat.Slug,
			"product_count": count,
		})
	}

	s.cache.SetJSON(ctx, categoriesCacheKey, out, productCacheTTL)
	return out, nil
}

// CreateProduct is the admin catalog insert.
func (s *ProductService) CreateProduct(ctx context.Context, req *CreateProductRequest) (*models.Product, error) {
	categoryID, err := uuid.Parse(req.CategoryID)
	if err != nil {
		return nil, ErrCategoryNotFound
	}

	var category models.Category
	if err := s.db.First(&category, "id = ?", categoryID).Error; err != nil {
		return nil, ErrCategoryNotFound
	}

	product := &models.Product{
		Name:          strings.TrimSpace(req.Name),
		Description:   req.Description,
		CategoryID:    categoryID,
		Price:         req.Price,
		OriginalPrice: req.OriginalPrice,
		Stock:         req.Stock,
		IsActive:      true,
		IsFeatured:    req.IsFeatured,
		Images:        pq.StringArray(req.Images),
		Tags:          pq.StringArray(req.Tags),
	}

	if err := s.db.Create(product).Error; err != nil {
		return nil, err
	}

	s.invalidateCatalog(ctx)
	return product, nil
}

// UpdateProduct applies a partial admin edit.
func (s *ProductService) UpdateProduct(ctx context.Context, productID uuid.UUID, req *UpdateProductRequest) (*models.Product, error) {
	var product models.Product
	if err := s.db.First(&product, "id = ?", productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.CategoryID != nil {
		categoryID, err := uuid.Parse(*req.CategoryID)
		if err != nil {
			return nil, ErrCategoryNotFound
		}
		var category models.Category
		if err := s.db.First(&category, "id = ?", categoryID).Error; err != nil {
			return nil, ErrCategoryNotFound
		}
		updates["category_id"] = categoryID
	}
	if req.Price != nil {
		updates["price"] = *req.Price
	}
	if req.OriginalPrice != nil {
		updates["original_price"] = *req.OriginalPrice
	}
	if req.Stock != nil {
		updates["stock"] = *req.Stock
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if req.IsFeatured != nil {
		updates["is_featured"] = *req.IsFeatured
	}
	if req.Images != nil {
		updates["images"] = pq.StringArray(*req.Images)
	}
	if req.Tags != nil {
		updates["tags"] = pq.StringArray(*req.Tags)
	}

	if len(updates) > 0 {
		if err := s.db.Model(&product).Updates(updates).Error; err != nil {
			return nil, err
		}
	}

	s.invalidateCatalog(ctx)
	return &product, nil
}

// DeleteProduct removes a product from the catalog. Products already sold
// are deactivated instead of deleted so order lines keep a valid reference.
func (s *ProductService) DeleteProduct(ctx context.Context, productID uuid.UUID) error {
	var product models.Product
	if err := s.db.First(&product, "id = ?", productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProductNotFound
		}
		return err
	}

	var orderCount int64
	if err := s.db.Model(&models.OrderItem{}).
		Where("product_id = ?", productID).
		Count(&orderCount).Error; err != nil {
		return err
	}

	if orderCount > 0 {
		if err := s.db.Model(&product).Update("is_active", false).Error; err != nil {
			return err
		}
	} else if err := s.db.Delete(&product).Error; err != nil {
		return err
	}

	s.invalidateCatalog(ctx)
	return nil
}

// CreateCategory adds a catalog category with a URL slug.
func (s *ProductService) CreateCategory(ctx context.Context, name string) (*models.Category, error) {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = strings.ReplaceAll(slug, " ", "-")

	category := &models.Category{
		Name:     strings.TrimSpace(name),
		Slug:     slug,
		IsActive: true,
	}
	if err := s.db.Create(category).Error; err != nil {
		return nil, err
	}

	s.invalidateCatalog(ctx)
	return category, nil
}

func (s *ProductService) invalidateCatalog(ctx context.Context) {
	s.cache.Invalidate(ctx, "products:*")
	s.cache.Invalidate(ctx, "categories:*")
}
