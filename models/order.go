package models

import "time"

type OrderStatus string

// Orders are created pending and never transitioned; fulfillment is out
// of scope.
const OrderStatusPending OrderStatus = "pending"

type Order struct {
	ID         string      `json:"id"`
	UserID     string      `json:"user_id"`
	TotalPrice float64     `json:"total_price"`
	Status     OrderStatus `json:"status"`
	CreatedAt  time.Time   `json:"created_at"`
	Items      []OrderItem `json:"items"`
}

type OrderItem struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     float64         `json:"price"` // unit price snapshot at order time
	Product   *ProductSummary `json:"product,omitempty"`
}

// ProductSummary is the slim product view attached to order items when
// listing orders.
type ProductSummary struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

type OrderLineRequest struct {
	ProductID string `json:"product_id" binding:"required,uuid"`
	Quantity  int    `json:"quantity" binding:"required,gt=0"`
}

type OrderEvent struct {
	OrderID    string      `json:"order_id"`
	UserID     string      `json:"user_id"`
	Status     OrderStatus `json:"status"`
	TotalPrice float64     `json:"total_price"`
	EventType  string      `json:"event_type"`
}
