package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/couture/internal/services"
	"github.com/example/couture/internal/utils"
)

// CatalogHandler serves categories and products.
type CatalogHandler struct {
	catalog *services.CatalogService
}

// NewCatalogHandler constructs CatalogHandler.
func NewCatalogHandler(catalog *services.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// ListCategories returns every category.
func (h *CatalogHandler) ListCategories(c *fiber.Ctx) error {
	categories, err := h.catalog.Categories(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(categories)
}

// ListProducts filters the catalog by category slug, name, price range and ordering.
func (h *CatalogHandler) ListProducts(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	products, total, err := h.catalog.Products(c.UserContext(), services.ProductQuery{
		Category: c.Query("category"),
		Search:   c.Query("search"),
		MinPrice: c.Query("min_price"),
		MaxPrice: c.Query("max_price"),
		Ordering: c.Query("ordering"),
		Limit:    pg.Limit,
		Offset:   pg.Offset,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"count":      total,
		"results":    products,
		"pagination": pg.Meta(total),
	})
}

// GetProduct returns one product.
func (h *CatalogHandler) GetProduct(c *fiber.Ctx) error {
	id, err := parseID(c.Params("id"), services.ErrProductNotFound)
	if err != nil {
		return err
	}
	product, err := h.catalog.Product(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(product)
}

type categoryRequest struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
}

// CreateCategory adds a category. Staff only.
func (h *CatalogHandler) CreateCategory(c *fiber.Ctx) error {
	var req categoryRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	category, err := h.catalog.CreateCategory(c.UserContext(), services.CategoryInput(req))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(category)
}

type productRequest struct {
	Name         string `json:"name"`
	Slug         string `json:"slug"`
	Description  string `json:"description"`
	Price        string `json:"price"`
	ImageURL     string `json:"image_url"`
	Measurements string `json:"measurements"`
	Category     string `json:"category"`
}

// CreateProduct adds a product. Staff only.
func (h *CatalogHandler) CreateProduct(c *fiber.Ctx) error {
	var req productRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	product, err := h.catalog.CreateProduct(c.UserContext(), services.ProductInput{
		Name:         req.Name,
		Slug:         req.Slug,
		Description:  req.Description,
		Price:        req.Price,
		ImageURL:     req.ImageURL,
		Measurements: req.Measurements,
		CategorySlug: req.Category,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(product)
}
