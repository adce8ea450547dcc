package dto

import (
	"strings"
	"time"

	"github.com/owya490/social-sports-sub003/backend-organiser/internal/domain"
)

// CreateTicketRequest is one ticket line of a CreateOrderRequest
type CreateTicketRequest struct {
	Price          int64  `json:"price"`
	FormResponseID string `json:"form_response_id,omitempty"`
}

// CreateOrderRequest represents the request to record an order
type CreateOrderRequest struct {
	Email                 string                `json:"email" binding:"required"`
	FullName              string                `json:"full_name"`
	Phone                 string                `json:"phone"`
	Discounts             int64                 `json:"discounts"`
	ApplicationFees       int64                 `json:"application_fees"`
	Status                string                `json:"status"`
	StripePaymentIntentID string                `json:"stripe_payment_intent_id,omitempty"`
	Tickets               []CreateTicketRequest `json:"tickets"`
}

// Validate validates the CreateOrderRequest
func (r *CreateOrderRequest) Validate() (bool, string) {
	if strings.TrimSpace(r.Email) == "" {
		return false, "Email is required"
	}
	if len(r.Tickets) == 0 {
		return false, "At least one ticket is required"
	}
	if r.Discounts < 0 {
		return false, "Discounts cannot be negative"
	}
	if r.ApplicationFees < 0 {
		return false, "Application fees cannot be negative"
	}
	for _, t := range r.Tickets {
		if t.Price < 0 {
			return false, "Ticket price cannot be negative"
		}
	}
	if r.Status != "" && !domain.OrderStatus(r.Status).IsValid() {
		return false, "Status must be one of PENDING, APPROVED, REJECTED"
	}
	return true, ""
}

// UpdateOrderStatusRequest represents the request to change an order's status
type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// Validate validates the UpdateOrderStatusRequest
func (r *UpdateOrderStatusRequest) Validate() (bool, string) {
	if !domain.OrderStatus(r.Status).IsValid() {
		return false, "Status must be one of PENDING, APPROVED, REJECTED"
	}
	return true, ""
}

// TicketResponse represents a ticket in API responses
type TicketResponse struct {
	ID             string    `json:"id"`
	OrderID        string    `json:"order_id"`
	EventID        string    `json:"event_id"`
	Price          int64     `json:"price"`
	Status         string    `json:"status"`
	PurchaseDate   time.Time `json:"purchase_date"`
	FormResponseID string    `json:"form_response_id,omitempty"`
}

// OrderResponse represents an order and its tickets in API responses
type OrderResponse struct {
	ID                    string            `json:"id"`
	EventID               string            `json:"event_id"`
	Email                 string            `json:"email"`
	FullName              string            `json:"full_name"`
	Phone                 string            `json:"phone,omitempty"`
	Discounts             int64             `json:"discounts"`
	ApplicationFees       int64             `json:"application_fees"`
	Status                string            `json:"status"`
	StripePaymentIntentID string            `json:"stripe_payment_intent_id,omitempty"`
	DatePurchased         time.Time         `json:"date_purchased"`
	TicketCount           int               `json:"ticket_count"`
	Tickets               []*TicketResponse `json:"tickets"`
}

// FromOrder converts a domain order and its tickets to an OrderResponse
func FromOrder(o *domain.Order, tickets []*domain.Ticket) *OrderResponse {
	resp := &OrderResponse{
		ID:                    o.ID,
		EventID:               o.EventID,
		Email:                 o.Email,
		FullName:              o.FullName,
		Phone:                 o.Phone,
		Discounts:             o.Discounts,
		ApplicationFees:       o.ApplicationFees,
		Status:                string(o.Status),
		StripePaymentIntentID: o.StripePaymentIntentID,
		DatePurchased:         o.DatePurchased,
		Tickets:               make([]*TicketResponse, 0, len(tickets)),
	}
	for _, t := range tickets {
		if t == nil {
			continue
		}
		resp.Tickets = append(resp.Tickets, &TicketResponse{
			ID:             t.ID,
			OrderID:        t.OrderID,
			EventID:        t.EventID,
			Price:          t.Price,
			Status:         string(t.Status),
			PurchaseDate:   t.PurchaseDate,
			FormResponseID: t.FormResponseID,
		})
	}
	resp.TicketCount = len(resp.Tickets)
	return resp
}

// ParseStatusFilter parses a comma separated status list such as
// "APPROVED,PENDING". An empty string means no filter.
func ParseStatusFilter(raw string) ([]domain.OrderStatus, bool) {
	if strings.TrimSpace(raw) == "" {
		return nil, true
	}
	var statuses []domain.OrderStatus
	for _, part := range strings.Split(raw, ",") {
		s := domain.OrderStatus(strings.ToUpper(strings.TrimSpace(part)))
		if s == "" {
			continue
		}
		if !s.IsValid() {
			return nil, false
		}
		statuses = append(statuses, s)
	}
	return statuses, true
}
