package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a ready-to-wear catalog item.
type Product struct {
	BaseModel
	Slug         string          `gorm:"uniqueIndex" json:"slug"`
	Name         string          `gorm:"index" json:"name"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	ImageURL     string          `json:"image_url"`
	Measurements string          `json:"measurements"`
	CategoryID   *uuid.UUID      `gorm:"type:uuid;index" json:"category_id"`
	Category     *Category       `json:"category,omitempty"`
}

// ProductFilter narrows a product listing.
type ProductFilter struct {
	CategoryID *uuid.UUID
	Search     string
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	Ordering   string
	Limit      int
	Offset     int
}
