package types

import (
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderPlaced    OrderStatus = "placed"
	OrderPreparing OrderStatus = "preparing"
	OrderDelivered OrderStatus = "delivered"
	OrderCancelled OrderStatus = "cancelled"
)

// CanTransition reports whether an order in status s may move to next.
func (s OrderStatus) CanTransition(next OrderStatus) bool {
	switch s {
	case OrderPlaced:
		return next == OrderPreparing || next == OrderCancelled
	case OrderPreparing:
		return next == OrderDelivered || next == OrderCancelled
	default:
		return false
	}
}

type OrderItem struct {
	Name     string  `json:"name" validate:"notblank,max=120"`
	Quantity int     `json:"quantity" validate:"min=1,max=99"`
	Price    float64 `json:"price" validate:"min=0,max=100000"`
}

type Order struct {
	ID         uuid.UUID   `json:"id"`
	UserID     uuid.UUID   `json:"user_id"`
	Restaurant string      `json:"restaurant"`
	Items      []OrderItem `json:"items"`
	Notes      string      `json:"notes,omitempty"`
	Status     OrderStatus `json:"status"`
	Total      float64     `json:"total"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

type CreateOrderParams struct {
	Restaurant string      `json:"restaurant" validate:"notblank,max=120"`
	Items      []OrderItem `json:"items" validate:"required,min=1,max=50,dive"`
	Notes      string      `json:"notes,omitempty" validate:"max=500"`
}

type UpdateOrderStatusParams struct {
	Status OrderStatus `json:"status" validate:"required,oneof=placed preparing delivered cancelled"`
}
