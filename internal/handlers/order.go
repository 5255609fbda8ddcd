package handlers

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/couture/internal/middleware"
	"github.com/example/couture/internal/models"
	"github.com/example/couture/internal/services"
	"github.com/example/couture/internal/utils"
)

// OrderHandler serves the custom order workflow.
type OrderHandler struct {
	orders *services.CustomOrderService
}

// NewOrderHandler constructs OrderHandler.
func NewOrderHandler(orders *services.CustomOrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// orderForm reads a custom order submitted either as multipart form data or
// as a JSON object. Images in JSON are base64 strings, optionally data URIs.
type orderForm struct {
	values map[string]string
	files  map[string]*services.Upload
}

func readOrderForm(c *fiber.Ctx) (*orderForm, error) {
	form := &orderForm{values: map[string]string{}, files: map[string]*services.Upload{}}

	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		mf, err := c.MultipartForm()
		if err != nil {
			return nil, fiber.NewError(fiber.StatusBadRequest, "invalid multipart form")
		}
		for key, vals := range mf.Value {
			if len(vals) > 0 {
				form.values[key] = vals[0]
			}
		}
		for _, name := range []string{"image", "picture"} {
			headers := mf.File[name]
			if len(headers) == 0 {
				continue
			}
			f, err := headers[0].Open()
			if err != nil {
				return nil, fmt.Errorf("open upload %s: %w", name, err)
			}
			data, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				return nil, fmt.Errorf("read upload %s: %w", name, err)
			}
			form.files[name] = &services.Upload{Filename: headers[0].Filename, Data: data}
		}
		return form, nil
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(c.Body(), &raw); err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	for key, v := range raw {
		switch val := v.(type) {
		case nil:
			form.values[key] = ""
		case string:
			form.values[key] = val
		case float64:
			form.values[key] = strconv.FormatFloat(val, 'f', -1, 64)
		default:
			form.values[key] = fmt.Sprint(val)
		}
	}
	for _, name := range []string{"image", "picture"} {
		encoded, ok := form.values[name]
		if !ok || encoded == "" {
			continue
		}
		delete(form.values, name)
		if i := strings.Index(encoded, ","); strings.HasPrefix(encoded, "data:") && i > 0 {
			encoded = encoded[i+1:]
		}
		data, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fiber.NewError(fiber.StatusBadRequest, name+" must be base64 encoded")
		}
		form.files[name] = &services.Upload{Filename: name, Data: data}
	}
	return form, nil
}

// ptr returns the value of key when the client sent it.
func (f *orderForm) ptr(key string) *string {
	if v, ok := f.values[key]; ok {
		return &v
	}
	return nil
}

func (f *orderForm) measurements() map[string]string {
	out := map[string]string{}
	for _, rule := range models.MeasurementRules {
		if v, ok := f.values[rule.Field]; ok {
			out[rule.Field] = v
		}
	}
	return out
}

// CreateOrder validates and stores a custom order, then adds it to the cart
// for the submitted identity code.
func (h *OrderHandler) CreateOrder(c *fiber.Ctx) error {
	form, err := readOrderForm(c)
	if err != nil {
		return err
	}

	v := form.values
	identity := v["custom_identity"]
	if identity == "" {
		identity = v["identity_code"]
	}
	res, err := h.orders.Create(c.UserContext(), middleware.CurrentActor(c), services.CustomOrderInput{
		FirstName:        v["first_name"],
		LastName:         v["last_name"],
		Email:            v["email"],
		Phone:            v["phone"],
		StyleDescription: v["style_description"],
		Occasion:         v["occasion"],
		Budget:           v["budget"],
		Timeline:         v["timeline"],
		Measurements:     form.measurements(),
		Image:            form.files["image"],
		Picture:          form.files["picture"],
		IdentityCode:     identity,
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":       "Custom order created successfully",
		"order_id":      res.Order.ID,
		"identity_code": res.IdentityCode,
		"order":         res.Order,
	})
}

// ListOrders returns a filtered page of custom orders. Staff only.
func (h *OrderHandler) ListOrders(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	filter := models.CustomOrderFilter{
		Status:   models.OrderStatus(strings.ToLower(c.Query("status"))),
		Occasion: strings.ToLower(c.Query("occasion")),
		Search:   c.Query("search"),
		Limit:    pg.Limit,
		Offset:   pg.Offset,
	}

	orders, total, err := h.orders.List(c.UserContext(), middleware.CurrentActor(c), filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"count":      total,
		"results":    orders,
		"pagination": pg.Meta(total),
	})
}

func orderID(c *fiber.Ctx) (uuid.UUID, error) {
	return parseID(c.Params("id"), services.ErrOrderNotFound)
}

// GetOrder returns one order to staff or its owner.
func (h *OrderHandler) GetOrder(c *fiber.Ctx) error {
	id, err := orderID(c)
	if err != nil {
		return err
	}
	order, err := h.orders.Get(c.UserContext(), middleware.CurrentActor(c), id)
	if err != nil {
		return err
	}
	return c.JSON(order)
}

// UpdateOrder changes the submitted fields of an order.
func (h *OrderHandler) UpdateOrder(c *fiber.Ctx) error {
	id, err := orderID(c)
	if err != nil {
		return err
	}
	form, err := readOrderForm(c)
	if err != nil {
		return err
	}
	if _, ok := form.values["status"]; ok {
		return fiber.NewError(fiber.StatusBadRequest, "status is changed through the status endpoint")
	}

	patch := services.CustomOrderPatch{
		FirstName:        form.ptr("first_name"),
		LastName:         form.ptr("last_name"),
		Email:            form.ptr("email"),
		Phone:            form.ptr("phone"),
		StyleDescription: form.ptr("style_description"),
		Occasion:         form.ptr("occasion"),
		Budget:           form.ptr("budget"),
		Timeline:         form.ptr("timeline"),
		Measurements:     form.measurements(),
	}
	order, err := h.orders.Update(c.UserContext(), middleware.CurrentActor(c), id, patch)
	if err != nil {
		return err
	}
	return c.JSON(order)
}

// DeleteOrder removes an order. Staff only.
func (h *OrderHandler) DeleteOrder(c *fiber.Ctx) error {
	id, err := orderID(c)
	if err != nil {
		return err
	}
	if err := h.orders.Delete(c.UserContext(), middleware.CurrentActor(c), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

type statusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus applies a status transition. Staff only.
func (h *OrderHandler) UpdateStatus(c *fiber.Ctx) error {
	id, err := orderID(c)
	if err != nil {
		return err
	}
	var req statusRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := required(field("status", req.Status)); err != nil {
		return err
	}

	order, err := h.orders.Transition(c.UserContext(), middleware.CurrentActor(c), id, req.Status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message": fmt.Sprintf("Order status updated to %s", order.Status),
		"order":   order,
	})
}

// StatusHistory lists the transitions of an order. Staff only.
func (h *OrderHandler) StatusHistory(c *fiber.Ctx) error {
	id, err := orderID(c)
	if err != nil {
		return err
	}
	history, err := h.orders.StatusHistory(c.UserContext(), middleware.CurrentActor(c), id)
	if err != nil {
		return err
	}
	return c.JSON(history)
}

type noteRequest struct {
	Note string `json:"note"`
}

// AddNote attaches a staff note to an order.
func (h *OrderHandler) AddNote(c *fiber.Ctx) error {
	id, err := orderID(c)
	if err != nil {
		return err
	}
	var req noteRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	note, err := h.orders.AddNote(c.UserContext(), middleware.CurrentActor(c), id, req.Note)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(note)
}

// ListNotes returns the notes of an order, newest first.
func (h *OrderHandler) ListNotes(c *fiber.Ctx) error {
	id, err := orderID(c)
	if err != nil {
		return err
	}
	notes, err := h.orders.ListNotes(c.UserContext(), middleware.CurrentActor(c), id)
	if err != nil {
		return err
	}
	return c.JSON(notes)
}
