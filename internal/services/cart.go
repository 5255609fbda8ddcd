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
)

// CartView is a cart with its items and the exact total.
type CartView struct {
	CartCode string            `json:"cart_code"`
	Items    []models.CartItem `json:"items"`
	Total    decimal.Decimal   `json:"total_price"`
}

// AddResult describes the item after an add.
type AddResult struct {
	CartCode string    `json:"cart_code"`
	ItemID   uuid.UUID `json:"item_id"`
	Quantity int       `json:"quantity"`
}

// CartService manages anonymous product carts keyed by a cart code.
type CartService struct {
	store storage.Store
	log   *zap.Logger
}

// NewCartService constructs a CartService.
func NewCartService(store storage.Store, log *zap.Logger) *CartService {
	return &CartService{store: store, log: log}
}

// Add puts quantity units of a product in the cart, creating the cart when
// the code is new. Adding a product already in the cart increases its
// quantity. An empty code gets a fresh one.
func (s *CartService) Add(ctx context.Context, code string, productID uuid.UUID, quantity int) (AddResult, error) {
	if quantity < 1 {
		return AddResult{}, apperr.FieldError("quantity", "Ensure this value is greater than or equal to 1.")
	}
	if _, err := s.store.GetProduct(ctx, productID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return AddResult{}, ErrProductNotFound
		}
		return AddResult{}, fmt.Errorf("load product: %w", err)
	}

	code = strings.TrimSpace(code)
	if code == "" {
		code = uuid.NewString()
	}
	cart, err := s.store.GetOrCreateCart(ctx, code)
	if err != nil {
		return AddResult{}, fmt.Errorf("get cart: %w", err)
	}

	item, err := s.increment(ctx, cart.ID, productID, quantity)
	if errors.Is(err, storage.ErrDuplicate) {
		// another request inserted the row between our lookup and insert
		item, err = s.increment(ctx, cart.ID, productID, quantity)
	}
	if err != nil {
		return AddResult{}, err
	}
	return AddResult{CartCode: cart.CartCode, ItemID: item.ID, Quantity: item.Quantity}, nil
}

func (s *CartService) increment(ctx context.Context, cartID, productID uuid.UUID, quantity int) (*models.CartItem, error) {
	item, err := s.store.GetCartItemByProduct(ctx, cartID, productID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		item = &models.CartItem{CartID: cartID, ProductID: productID, Quantity: quantity}
	case err != nil:
		return nil, fmt.Errorf("load cart item: %w", err)
	default:
		item.Quantity += quantity
	}
	if err := s.store.SaveCartItem(ctx, item); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, err
		}
		return nil, fmt.Errorf("save cart item: %w", err)
	}
	return item, nil
}

func (s *CartService) cart(ctx context.Context, code string) (*models.Cart, error) {
	if strings.TrimSpace(code) == "" {
		return nil, apperr.FieldError("cart_code", "Cart code is required.")
	}
	cart, err := s.store.GetCartByCode(ctx, code)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrCartNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	return cart, nil
}

// List returns the cart items and their total, price × quantity summed in
// decimal arithmetic.
func (s *CartService) List(ctx context.Context, code string) (*CartView, error) {
	cart, err := s.cart(ctx, code)
	if err != nil {
		return nil, err
	}
	items, err := s.store.ListCartItems(ctx, cart.ID)
	if err != nil {
		return nil, fmt.Errorf("list cart items: %w", err)
	}

	if items == nil {
		items = []models.CartItem{}
	}
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal())
	}
	return &CartView{CartCode: cart.CartCode, Items: items, Total: total.Round(2)}, nil
}

func (s *CartService) item(ctx context.Context, code string, itemID uuid.UUID) (*models.CartItem, error) {
	cart, err := s.cart(ctx, code)
	if err != nil {
		return nil, err
	}
	item, err := s.store.GetCartItem(ctx, cart.ID, itemID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load cart item: %w", err)
	}
	return item, nil
}

// UpdateQuantity overwrites the quantity of one item. The value is stored as
// given, including zero or negative values.
func (s *CartService) UpdateQuantity(ctx context.Context, code string, itemID uuid.UUID, quantity int) (*models.CartItem, error) {
	item, err := s.item(ctx, code, itemID)
	if err != nil {
		return nil, err
	}
	if quantity < 1 {
		s.log.Warn("cart item quantity set below one",
			zap.String("cart_code", code),
			zap.String("item_id", itemID.String()),
			zap.Int("quantity", quantity),
		)
	}
	item.Quantity = quantity
	if err := s.store.SaveCartItem(ctx, item); err != nil {
		return nil, fmt.Errorf("save cart item: %w", err)
	}
	return item, nil
}

// Remove deletes one item from the cart.
func (s *CartService) Remove(ctx context.Context, code string, itemID uuid.UUID) error {
	item, err := s.item(ctx, code, itemID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteCartItem(ctx, item.ID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrItemNotFound
		}
		return fmt.Errorf("delete cart item: %w", err)
	}
	return nil
}
