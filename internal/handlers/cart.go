package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/couture/internal/services"
)

// CartHandler serves the anonymous product cart.
type CartHandler struct {
	carts *services.CartService
}

// NewCartHandler constructs CartHandler.
func NewCartHandler(carts *services.CartService) *CartHandler {
	return &CartHandler{carts: carts}
}

type addToCartRequest struct {
	CartCode  string `json:"cart_code"`
	ProductID string `json:"productId"`
	Quantity  *int   `json:"quantity"`
}

// AddToCart adds a product to the cart, incrementing an existing line. A
// missing cart code starts a new cart.
func (h *CartHandler) AddToCart(c *fiber.Ctx) error {
	var req addToCartRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := required(field("productId", req.ProductID)); err != nil {
		return err
	}
	productID, err := parseID(req.ProductID, services.ErrProductNotFound)
	if err != nil {
		return err
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	res, err := h.carts.Add(c.UserContext(), req.CartCode, productID, quantity)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":   "Product added to cart",
		"cart_code": res.CartCode,
		"item_id":   res.ItemID,
		"quantity":  res.Quantity,
	})
}

// ListItems returns the cart lines and the exact total.
func (h *CartHandler) ListItems(c *fiber.Ctx) error {
	view, err := h.carts.List(c.UserContext(), c.Query("cart_code"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"cart_code":   view.CartCode,
		"items":       view.Items,
		"total_price": view.Total.StringFixed(2),
	})
}

type updateCartItemRequest struct {
	CartCode string `json:"cart_code"`
	ItemID   string `json:"itemId"`
	Quantity *int   `json:"quantity"`
}

// UpdateItem overwrites the quantity of a cart line.
func (h *CartHandler) UpdateItem(c *fiber.Ctx) error {
	var req updateCartItemRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := required(field("cart_code", req.CartCode), field("itemId", req.ItemID)); err != nil {
		return err
	}
	if req.Quantity == nil {
		return fiber.NewError(fiber.StatusBadRequest, "quantity is required")
	}
	itemID, err := parseID(req.ItemID, services.ErrItemNotFound)
	if err != nil {
		return err
	}

	item, err := h.carts.UpdateQuantity(c.UserContext(), req.CartCode, itemID, *req.Quantity)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Cart item updated", "item": item})
}

type deleteCartItemRequest struct {
	CartCode string `json:"cart_code"`
	ItemID   string `json:"productId"`
}

// DeleteItem removes a line from the cart.
func (h *CartHandler) DeleteItem(c *fiber.Ctx) error {
	var req deleteCartItemRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := required(field("cart_code", req.CartCode), field("productId", req.ItemID)); err != nil {
		return err
	}
	itemID, err := parseID(req.ItemID, services.ErrItemNotFound)
	if err != nil {
		return err
	}

	if err := h.carts.Remove(c.UserContext(), req.CartCode, itemID); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
