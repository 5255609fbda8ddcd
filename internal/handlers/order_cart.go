package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/couture/internal/services"
)

// OrderCartHandler serves the identity-scoped list of custom orders.
type OrderCartHandler struct {
	carts *services.OrderCartService
}

// NewOrderCartHandler constructs OrderCartHandler.
func NewOrderCartHandler(carts *services.OrderCartService) *OrderCartHandler {
	return &OrderCartHandler{carts: carts}
}

// List returns the orders grouped under identity_code.
func (h *OrderCartHandler) List(c *fiber.Ctx) error {
	view, err := h.carts.List(c.UserContext(), c.Query("identity_code"))
	if err != nil {
		return err
	}
	return c.JSON(view)
}

// Remove takes one order out of the cart. product_code carries the order id.
func (h *OrderCartHandler) Remove(c *fiber.Ctx) error {
	if err := required(field("identity_code", c.Query("identity_code")), field("product_code", c.Query("product_code"))); err != nil {
		return err
	}
	id, err := parseID(c.Query("product_code"), services.ErrItemNotFound)
	if err != nil {
		return err
	}
	if err := h.carts.Remove(c.UserContext(), c.Query("identity_code"), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

type attachRequest struct {
	IdentityCode string `json:"identity_code"`
	OrderID      string `json:"order_id"`
}

// Attach adds an existing order to a cart.
func (h *OrderCartHandler) Attach(c *fiber.Ctx) error {
	var req attachRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := required(field("order_id", req.OrderID)); err != nil {
		return err
	}
	id, err := parseID(req.OrderID, services.ErrOrderNotFound)
	if err != nil {
		return err
	}
	item, err := h.carts.Attach(c.UserContext(), req.IdentityCode, id)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(item)
}
