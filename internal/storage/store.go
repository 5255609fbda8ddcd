// Package storage is the persistence boundary. Services depend on Store; the
// server wires either the Postgres-backed DatabaseStore or the in-process
// MemoryStore.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/example/couture/internal/models"
)

var (
	// ErrNotFound is returned when a lookup matches no record.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique constraint would be violated.
	ErrDuplicate = errors.New("duplicate record")
)

// Store defines the interface for storage operations.
//
// Lookups return ErrNotFound rather than a nil record. Associations are never
// loaded implicitly: only the methods documented as joining do so.
type Store interface {
	// Users
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error

	// Catalog
	CreateCategory(ctx context.Context, category *models.Category) error
	ListCategories(ctx context.Context) ([]models.Category, error)
	GetCategoryBySlug(ctx context.Context, slug string) (*models.Category, error)
	CreateProduct(ctx context.Context, product *models.Product) error
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	// ListProducts returns one page of matching products and the total match count.
	ListProducts(ctx context.Context, filter models.ProductFilter) ([]models.Product, int64, error)

	// Product carts
	GetCartByCode(ctx context.Context, code string) (*models.Cart, error)
	GetOrCreateCart(ctx context.Context, code string) (*models.Cart, error)
	GetCartItem(ctx context.Context, cartID, itemID uuid.UUID) (*models.CartItem, error)
	GetCartItemByProduct(ctx context.Context, cartID, productID uuid.UUID) (*models.CartItem, error)
	// ListCartItems joins each item to its product.
	ListCartItems(ctx context.Context, cartID uuid.UUID) ([]models.CartItem, error)
	SaveCartItem(ctx context.Context, item *models.CartItem) error
	DeleteCartItem(ctx context.Context, id uuid.UUID) error

	// Custom orders
	CreateCustomOrder(ctx context.Context, order *models.CustomOrder) error
	GetCustomOrder(ctx context.Context, id uuid.UUID) (*models.CustomOrder, error)
	UpdateCustomOrder(ctx context.Context, order *models.CustomOrder) error
	// DeleteCustomOrder removes the order with its notes, status log and cart links.
	DeleteCustomOrder(ctx context.Context, id uuid.UUID) error
	ListCustomOrders(ctx context.Context, filter models.CustomOrderFilter) ([]models.CustomOrder, int64, error)
	CustomOrderStats(ctx context.Context, since time.Time) (*models.CustomOrderStats, error)
	CreateOrderNote(ctx context.Context, note *models.OrderNote) error
	// ListOrderNotes returns notes newest first.
	ListOrderNotes(ctx context.Context, orderID uuid.UUID) ([]models.OrderNote, error)
	CreateStatusLog(ctx context.Context, entry *models.OrderStatusLog) error
	ListStatusLogs(ctx context.Context, orderID uuid.UUID) ([]models.OrderStatusLog, error)

	// Order carts
	GetOrderCartByCode(ctx context.Context, code string) (*models.OrderCart, error)
	GetOrCreateOrderCart(ctx context.Context, code string) (*models.OrderCart, error)
	CreateOrderCartItem(ctx context.Context, item *models.OrderCartItem) error
	// ListOrderCartItems joins each item to its custom order.
	ListOrderCartItems(ctx context.Context, cartID uuid.UUID) ([]models.OrderCartItem, error)
	FindOrderCartItem(ctx context.Context, cartID, orderID uuid.UUID) (*models.OrderCartItem, error)
	DeleteOrderCartItem(ctx context.Context, id uuid.UUID) error

	// Transaction runs fn against a store bound to one transaction. A non-nil
	// error from fn rolls back every write fn made.
	Transaction(ctx context.Context, fn func(tx Store) error) error
	Ping(ctx context.Context) error
}
