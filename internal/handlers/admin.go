package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/couture/internal/middleware"
	"github.com/example/couture/internal/services"
)

// AdminHandler manages staff dashboard endpoints.
type AdminHandler struct {
	orders *services.CustomOrderService
}

// NewAdminHandler constructs AdminHandler.
func NewAdminHandler(orders *services.CustomOrderService) *AdminHandler {
	return &AdminHandler{orders: orders}
}

// DashboardStats returns custom order counts by status and occasion, the
// total and the number submitted in the last 30 days.
func (h *AdminHandler) DashboardStats(c *fiber.Ctx) error {
	stats, err := h.orders.Stats(c.UserContext(), middleware.CurrentActor(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    stats,
	})
}
