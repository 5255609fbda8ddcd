package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderStatus is the lifecycle state of a custom order.
type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusInProgress OrderStatus = "in_progress"
	StatusCompleted  OrderStatus = "completed"
	StatusCancelled  OrderStatus = "cancelled"
)

// orderTransitions maps each status to the statuses it may move to.
// Completed and cancelled have no successors.
var orderTransitions = map[OrderStatus][]OrderStatus{
	StatusPending:    {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusCancelled},
	StatusCompleted:  nil,
	StatusCancelled:  nil,
}

// OrderStatuses lists every valid status in lifecycle order.
var OrderStatuses = []OrderStatus{StatusPending, StatusInProgress, StatusCompleted, StatusCancelled}

// Valid reports whether s is one of the four known statuses.
func (s OrderStatus) Valid() bool {
	_, ok := orderTransitions[s]
	return ok
}

// Terminal reports whether no transition may leave s.
func (s OrderStatus) Terminal() bool {
	return s.Valid() && len(orderTransitions[s]) == 0
}

// CanTransitionTo reports whether target is an allowed successor of s.
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	for _, next := range orderTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// Successors returns a copy of the statuses reachable from s in one step.
func (s OrderStatus) Successors() []OrderStatus {
	out := make([]OrderStatus, len(orderTransitions[s]))
	copy(out, orderTransitions[s])
	return out
}

// Occasion values accepted for a custom order.
var Occasions = []string{"birthday", "burial", "graduation", "office", "wedding", "other"}

// Budget bands accepted for a custom order, in naira.
var BudgetBands = []string{"15000-25000", "25000-30000", "30000-40000", "40000-50000", "50000+"}

// Measurements holds body measurements in centimetres. Chest, Waist and
// Height are always recorded; the rest are optional.
type Measurements struct {
	Neck      *float64 `json:"neck"`
	Arms      *float64 `json:"arms"`
	Shoulders *float64 `json:"shoulders"`
	Chest     float64  `gorm:"not null" json:"chest"`
	Waist     float64  `gorm:"not null" json:"waist"`
	Hips      *float64 `json:"hips"`
	Inseam    *float64 `json:"inseam"`
	Height    float64  `gorm:"not null" json:"height"`
}

// MeasurementRange bounds a single measurement (exclusive minimum of zero is
// always enforced in addition to Min).
type MeasurementRange struct {
	Min      float64
	Max      float64
	Required bool
}

// MeasurementRules lists the measurement fields in submission order.
var MeasurementRules = []struct {
	Field string
	MeasurementRange
}{
	{"neck", MeasurementRange{Min: 20, Max: 80}},
	{"arms", MeasurementRange{Min: 20, Max: 120}},
	{"shoulders", MeasurementRange{Min: 20, Max: 90}},
	{"chest", MeasurementRange{Min: 40, Max: 250, Required: true}},
	{"waist", MeasurementRange{Min: 30, Max: 250, Required: true}},
	{"hips", MeasurementRange{Min: 40, Max: 250}},
	{"inseam", MeasurementRange{Min: 30, Max: 130}},
	{"height", MeasurementRange{Min: 50, Max: 250, Required: true}},
}

// CustomOrder is a request for a bespoke garment.
type CustomOrder struct {
	BaseModel
	FirstName        string       `json:"first_name"`
	LastName         string       `json:"last_name"`
	Email            string       `gorm:"index" json:"email"`
	Phone            string       `json:"phone"`
	StyleDescription string       `gorm:"type:text" json:"style_description"`
	Occasion         string       `gorm:"index" json:"occasion"`
	Budget           string       `json:"budget"`
	Timeline         time.Time    `gorm:"type:date" json:"timeline"`
	Measurements     Measurements `gorm:"embedded" json:"measurements"`
	StyleImageURL    string       `json:"image_url"`
	PictureURL       string       `json:"picture_url"`
	Status           OrderStatus  `gorm:"type:varchar(20);index;not null;default:pending" json:"status"`
	UserID           *uuid.UUID   `gorm:"type:uuid;index" json:"user_id"`
}

// OwnedBy reports whether the order belongs to the given user.
func (o *CustomOrder) OwnedBy(userID uuid.UUID) bool {
	return o.UserID != nil && userID != uuid.Nil && *o.UserID == userID
}

// OrderNote is an append-only staff remark on a custom order.
type OrderNote struct {
	BaseModel
	CustomOrderID uuid.UUID `gorm:"type:uuid;index;not null" json:"custom_order_id"`
	Note          string    `gorm:"type:text;not null" json:"note"`
	AuthorID      uuid.UUID `gorm:"type:uuid;not null" json:"author_id"`
}

// OrderStatusLog records one successful status transition.
type OrderStatusLog struct {
	BaseModel
	CustomOrderID uuid.UUID   `gorm:"type:uuid;index;not null" json:"custom_order_id"`
	FromStatus    OrderStatus `gorm:"type:varchar(20)" json:"from_status"`
	ToStatus      OrderStatus `gorm:"type:varchar(20)" json:"to_status"`
	ActorID       uuid.UUID   `gorm:"type:uuid" json:"actor_id"`
}

// CustomOrderFilter narrows a staff listing of custom orders.
type CustomOrderFilter struct {
	Status   OrderStatus
	Occasion string
	Search   string
	Limit    int
	Offset   int
}

// CustomOrderStats aggregates custom orders for the staff dashboard.
type CustomOrderStats struct {
	Total       int64            `json:"total"`
	ByStatus    map[string]int64 `json:"by_status"`
	ByOccasion  map[string]int64 `json:"by_occasion"`
	LastThirty  int64            `json:"last_30_days"`
	WindowStart time.Time        `json:"window_start"`
}
