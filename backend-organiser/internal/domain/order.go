package domain

import (
	"time"
)

// OrderStatus is the lifecycle state shared by orders and their tickets
type OrderStatus string

const (
	OrderStatusPending  OrderStatus = "PENDING"
	OrderStatusApproved OrderStatus = "APPROVED"
	OrderStatusRejected OrderStatus = "REJECTED"
)

// IsValid reports whether s is a known status
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusApproved, OrderStatusRejected:
		return true
	}
	return false
}

// Order is a single purchase transaction. Money is in minor units (cents).
type Order struct {
	ID                    string      `json:"orderId"`
	EventID               string      `json:"eventId"`
	Email                 string      `json:"email"`
	FullName              string      `json:"fullName"`
	Phone                 string      `json:"phone"`
	Discounts             int64       `json:"discounts"`
	ApplicationFees       int64       `json:"applicationFees"`
	Status                OrderStatus `json:"status"`
	StripePaymentIntentID string      `json:"stripePaymentIntentId,omitempty"`
	DatePurchased         time.Time   `json:"datePurchased"`
	TicketIDs             []string    `json:"tickets"`
}

// Ticket is one admission unit belonging to an order
type Ticket struct {
	ID             string      `json:"ticketId"`
	OrderID        string      `json:"orderId"`
	EventID        string      `json:"eventId"`
	Price          int64       `json:"price"`
	Status         OrderStatus `json:"status"`
	PurchaseDate   time.Time   `json:"purchaseDate"`
	FormResponseID string      `json:"formResponseId,omitempty"`
}
