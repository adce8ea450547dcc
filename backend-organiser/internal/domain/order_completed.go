package domain

import (
	"fmt"
	"strings"
)

// OrderCompleted is the message published once a purchase has been paid
// and its tickets issued
type OrderCompleted struct {
	EventID      string `json:"event_id"`
	OrderID      string `json:"order_id"`
	Email        string `json:"email"`
	FullName     string `json:"full_name"`
	AttendeeName string `json:"attendee_name,omitempty"`
	Phone        string `json:"phone"`
	Quantity     int    `json:"quantity"`
}

// Attendee returns the attendee name the tickets are recorded under
func (e *OrderCompleted) Attendee() string {
	if strings.TrimSpace(e.AttendeeName) != "" {
		return e.AttendeeName
	}
	return e.FullName
}

// Validate checks the fields needed to apply the purchase
func (e *OrderCompleted) Validate() error {
	if e.EventID == "" {
		return ErrInvalidEventID
	}
	if e.OrderID == "" {
		return ErrInvalidOrderID
	}
	if e.Email == "" || strings.TrimSpace(e.Attendee()) == "" {
		return fmt.Errorf("%w: email and attendee name are required", ErrInvalidPurchaser)
	}
	if e.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	return nil
}
