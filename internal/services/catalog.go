package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/example/couture/internal/apperr"
	"github.com/example/couture/internal/models"
	"github.com/example/couture/internal/storage"
	"github.com/example/couture/internal/validation"
)

// ProductQuery is the raw product listing query.
type ProductQuery struct {
	Category string
	Search   string
	MinPrice string
	MaxPrice string
	Ordering string
	Limit    int
	Offset   int
}

// CatalogService serves categories and products.
type CatalogService struct {
	store storage.Store
	log   *zap.Logger
}

// NewCatalogService constructs a CatalogService.
func NewCatalogService(store storage.Store, log *zap.Logger) *CatalogService {
	return &CatalogService{store: store, log: log}
}

// Categories lists every category by name.
func (s *CatalogService) Categories(ctx context.Context) ([]models.Category, error) {
	categories, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	if categories == nil {
		categories = []models.Category{}
	}
	return categories, nil
}

func parsePrice(field, value string) (*decimal.Decimal, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return nil, apperr.FieldError(field, fmt.Sprintf("Invalid %s value. Must be a number.", field))
	}
	return &d, nil
}

// Products filters, orders and pages the catalog. An unknown category slug
// is reported as not found; an unknown ordering falls back to name.
func (s *CatalogService) Products(ctx context.Context, q ProductQuery) ([]models.Product, int64, error) {
	filter := models.ProductFilter{
		Search:   strings.TrimSpace(q.Search),
		Ordering: q.Ordering,
		Limit:    q.Limit,
		Offset:   q.Offset,
	}
	if _, ok := models.ProductOrdering[filter.Ordering]; !ok {
		filter.Ordering = models.DefaultProductOrdering
	}

	var err error
	if filter.MinPrice, err = parsePrice("min_price", q.MinPrice); err != nil {
		return nil, 0, err
	}
	if filter.MaxPrice, err = parsePrice("max_price", q.MaxPrice); err != nil {
		return nil, 0, err
	}

	if slug := strings.TrimSpace(q.Category); slug != "" {
		category, err := s.store.GetCategoryBySlug(ctx, slug)
		if errors.Is(err, storage.ErrNotFound) {
			return nil, 0, ErrCategoryNotFound
		}
		if err != nil {
			return nil, 0, fmt.Errorf("load category: %w", err)
		}
		filter.CategoryID = &category.ID
	}

	products, total, err := s.store.ListProducts(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	if products == nil {
		products = []models.Product{}
	}
	return products, total, nil
}

// Product returns one product with its category.
func (s *CatalogService) Product(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.store.GetProduct(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load product: %w", err)
	}
	return product, nil
}

// CategoryInput describes a new category.
type CategoryInput struct {
	Name        string
	Slug        string
	Description string
	ImageURL    string
}

// CreateCategory adds a category. The slug defaults to one derived from the name.
func (s *CatalogService) CreateCategory(ctx context.Context, in CategoryInput) (*models.Category, error) {
	slug := Slugify(in.Slug)
	if slug == "" {
		slug = Slugify(in.Name)
	}
	err := validation.New().
		Field("name", validation.Required(in.Name, "This field is required."), func() error { return validation.Length(in.Name, 1, 100, "Name") }).
		Field("slug", validation.Required(slug, "Enter a valid slug.")).
		Validate()
	if err != nil {
		return nil, err
	}

	category := &models.Category{
		Name:        strings.TrimSpace(in.Name),
		Slug:        slug,
		Description: strings.TrimSpace(in.Description),
		ImageURL:    in.ImageURL,
	}
	if err := s.store.CreateCategory(ctx, category); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, apperr.FieldError("slug", "Category with this slug already exists.")
		}
		return nil, fmt.Errorf("create category: %w", err)
	}
	s.log.Info("category created", zap.String("slug", category.Slug))
	return category, nil
}

// ProductInput describes a new product.
type ProductInput struct {
	Name         string
	Slug         string
	Description  string
	Price        string
	ImageURL     string
	Measurements string
	CategorySlug string
}

// CreateProduct adds a product to the catalog.
func (s *CatalogService) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	slug := Slugify(in.Slug)
	if slug == "" {
		slug = Slugify(in.Name)
	}
	var price decimal.Decimal
	err := validation.New().
		Field("name", validation.Required(in.Name, "This field is required.")).
		Field("slug", validation.Required(slug, "Enter a valid slug.")).
		Field("price", validation.Required(in.Price, "This field is required."), func() error {
			d, err := decimal.NewFromString(strings.TrimSpace(in.Price))
			if err != nil {
				return errors.New("A valid number is required.")
			}
			if d.IsNegative() {
				return errors.New("Ensure this value is greater than or equal to 0.")
			}
			price = d.Round(2)
			return nil
		}).
		Validate()
	if err != nil {
		return nil, err
	}

	product := &models.Product{
		Name:         strings.TrimSpace(in.Name),
		Slug:         slug,
		Description:  strings.TrimSpace(in.Description),
		Price:        price,
		ImageURL:     in.ImageURL,
		Measurements: in.Measurements,
	}
	if in.CategorySlug != "" {
		category, err := s.store.GetCategoryBySlug(ctx, in.CategorySlug)
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrCategoryNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("load category: %w", err)
		}
		product.CategoryID = &category.ID
	}
	if err := s.store.CreateProduct(ctx, product); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, apperr.FieldError("slug", "Product with this slug already exists.")
		}
		return nil, fmt.Errorf("create product: %w", err)
	}
	s.log.Info("product created", zap.String("slug", product.Slug), zap.String("price", product.Price.StringFixed(2)))
	return product, nil
}

// Slugify lower-cases s and joins its letters and digits with hyphens.
func Slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
