package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Cart is an anonymous product cart identified by a client-held code.
type Cart struct {
	BaseModel
	CartCode string     `gorm:"uniqueIndex;not null" json:"cart_code"`
	Items    []CartItem `json:"items,omitempty"`
}

// CartItem is one product line in a cart. (CartID, ProductID) is unique.
type CartItem struct {
	BaseModel
	CartID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_cart_product" json:"cart_id"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_cart_product" json:"product_id"`
	Product   *Product  `json:"product,omitempty"`
	Quantity  int       `gorm:"not null" json:"quantity"`
}

// LineTotal returns price × quantity, or zero when the product is not loaded.
func (i CartItem) LineTotal() decimal.Decimal {
	if i.Product == nil {
		return decimal.Zero
	}
	return i.Product.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// OrderCart groups custom orders under an anonymous identity code.
type OrderCart struct {
	BaseModel
	IdentityCode string          `gorm:"uniqueIndex;not null" json:"identity_code"`
	Items        []OrderCartItem `json:"items,omitempty"`
}

// OrderCartItem links one custom order to an order cart.
type OrderCartItem struct {
	BaseModel
	OrderCartID   uuid.UUID    `gorm:"type:uuid;index;not null" json:"order_cart_id"`
	CustomOrderID uuid.UUID    `gorm:"type:uuid;index;not null" json:"custom_order_id"`
	CustomOrder   *CustomOrder `json:"custom_order,omitempty"`
}
