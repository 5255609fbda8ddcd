package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/couture/internal/apperr"
	"github.com/example/couture/internal/models"
	"github.com/example/couture/internal/storage"
)

// OrderCartView lists the custom orders grouped under one identity code.
type OrderCartView struct {
	IdentityCode string                 `json:"identity_code"`
	Items        []models.OrderCartItem `json:"items"`
}

// OrderCartService manages the anonymous carts of custom orders.
type OrderCartService struct {
	store storage.Store
	log   *zap.Logger
}

// NewOrderCartService constructs an OrderCartService.
func NewOrderCartService(store storage.Store, log *zap.Logger) *OrderCartService {
	return &OrderCartService{store: store, log: log}
}

// attach links order to the cart for code, creating the cart on first use.
// Every call inserts a new row, even for an order already in the cart.
func attach(ctx context.Context, store storage.Store, code string, orderID uuid.UUID) (*models.OrderCart, *models.OrderCartItem, error) {
	cart, err := store.GetOrCreateOrderCart(ctx, code)
	if err != nil {
		return nil, nil, fmt.Errorf("get order cart: %w", err)
	}
	item := &models.OrderCartItem{OrderCartID: cart.ID, CustomOrderID: orderID}
	if err := store.CreateOrderCartItem(ctx, item); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, ErrOrderNotFound
		}
		return nil, nil, fmt.Errorf("attach order: %w", err)
	}
	return cart, item, nil
}

// Attach adds an existing custom order to the cart for code.
func (s *OrderCartService) Attach(ctx context.Context, code string, orderID uuid.UUID) (*models.OrderCartItem, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, apperr.FieldError("identity_code", "Custom identity code is required.")
	}
	if _, err := s.store.GetCustomOrder(ctx, orderID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("load order: %w", err)
	}

	var item *models.OrderCartItem
	err := s.store.Transaction(ctx, func(tx storage.Store) error {
		var err error
		_, item, err = attach(ctx, tx, code, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (s *OrderCartService) cart(ctx context.Context, code string) (*models.OrderCart, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, apperr.FieldError("identity_code", "Custom identity code is required.")
	}
	cart, err := s.store.GetOrderCartByCode(ctx, code)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrCartNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load order cart: %w", err)
	}
	return cart, nil
}

// List returns every item of the cart joined to its order.
func (s *OrderCartService) List(ctx context.Context, code string) (*OrderCartView, error) {
	cart, err := s.cart(ctx, code)
	if err != nil {
		return nil, err
	}
	items, err := s.store.ListOrderCartItems(ctx, cart.ID)
	if err != nil {
		return nil, fmt.Errorf("list order cart items: %w", err)
	}
	if items == nil {
		items = []models.OrderCartItem{}
	}
	return &OrderCartView{IdentityCode: cart.IdentityCode, Items: items}, nil
}

// Remove deletes one row linking orderID to the cart. The order itself is kept.
func (s *OrderCartService) Remove(ctx context.Context, code string, orderID uuid.UUID) error {
	cart, err := s.cart(ctx, code)
	if err != nil {
		return err
	}
	item, err := s.store.FindOrderCartItem(ctx, cart.ID, orderID)
	if errors.Is(err, storage.ErrNotFound) {
		return ErrItemNotFound
	}
	if err != nil {
		return fmt.Errorf("find order cart item: %w", err)
	}
	if err := s.store.DeleteOrderCartItem(ctx, item.ID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrItemNotFound
		}
		return fmt.Errorf("delete order cart item: %w", err)
	}
	s.log.Info("order removed from cart", zap.String("identity_code", cart.IdentityCode), zap.String("order_id", orderID.String()))
	return nil
}
