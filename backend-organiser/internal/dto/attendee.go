package dto

import (
	"maps"
	"slices"
	"strings"

	"github.com/owya490/social-sports-sub003/backend-organiser/internal/domain"
)

// AddAttendeeRequest adds tickets for a named attendee under a purchaser
type AddAttendeeRequest struct {
	Email        string `json:"email" binding:"required"`
	AttendeeName string `json:"attendee_name" binding:"required"`
	Phone        string `json:"phone"`
	Quantity     int    `json:"quantity"`
}

// Validate validates the AddAttendeeRequest
func (r *AddAttendeeRequest) Validate() (bool, string) {
	if strings.TrimSpace(r.Email) == "" {
		return false, "Email is required"
	}
	if strings.TrimSpace(r.AttendeeName) == "" {
		return false, "Attendee name is required"
	}
	if r.Quantity <= 0 {
		return false, "Quantity must be greater than zero"
	}
	return true, ""
}

// AttendeeRef identifies an attendee either by purchaser email or by the
// purchaser map key
type AttendeeRef struct {
	Email        string `json:"email,omitempty"`
	EmailHash    string `json:"email_hash,omitempty"`
	AttendeeName string `json:"attendee_name"`
}

// Validate validates the AttendeeRef
func (r *AttendeeRef) Validate() (bool, string) {
	if r.Email == "" && r.EmailHash == "" {
		return false, "Either email or email_hash is required"
	}
	if strings.TrimSpace(r.AttendeeName) == "" {
		return false, "Attendee name is required"
	}
	return true, ""
}

// SetAttendeeTicketsRequest sets an attendee's ticket count
type SetAttendeeTicketsRequest struct {
	AttendeeRef
	TicketCount *int `json:"ticket_count"`
}

// Validate validates the SetAttendeeTicketsRequest
func (r *SetAttendeeTicketsRequest) Validate() (bool, string) {
	if valid, msg := r.AttendeeRef.Validate(); !valid {
		return false, msg
	}
	if r.TicketCount == nil {
		return false, "Ticket count is required"
	}
	if *r.TicketCount < 0 {
		return false, "Ticket count cannot be negative"
	}
	return true, ""
}

// AttendeeResponse is a single attendee inside a PurchaserResponse
type AttendeeResponse struct {
	Name        string `json:"name"`
	Phone       string `json:"phone,omitempty"`
	TicketCount int    `json:"ticket_count"`
}

// PurchaserResponse is one purchaser of an event
type PurchaserResponse struct {
	EmailHash        string              `json:"email_hash"`
	Email            string              `json:"email"`
	TotalTicketCount int                 `json:"total_ticket_count"`
	Attendees        []*AttendeeResponse `json:"attendees"`
}

// EventMetadataResponse is the purchaser breakdown of an event with its
// remaining vacancy
type EventMetadataResponse struct {
	EventID             string               `json:"event_id"`
	CompleteTicketCount int                  `json:"complete_ticket_count"`
	Capacity            int                  `json:"capacity"`
	Vacancy             int                  `json:"vacancy"`
	OrderCount          int                  `json:"order_count"`
	Purchasers          []*PurchaserResponse `json:"purchasers"`
}

// FromEventMetadata converts metadata to a response. Purchasers and
// attendees are sorted so responses are stable.
func FromEventMetadata(meta *domain.EventMetadata, capacity *domain.EventCapacity) *EventMetadataResponse {
	resp := &EventMetadataResponse{
		EventID:             meta.EventID,
		CompleteTicketCount: meta.CompleteTicketCount,
		OrderCount:          len(meta.OrderIDs),
		Purchasers:          make([]*PurchaserResponse, 0, len(meta.PurchaserMap)),
	}
	if capacity != nil {
		resp.Capacity = capacity.Capacity
		resp.Vacancy = capacity.Vacancy
	}

	for _, key := range sortedKeys(meta.PurchaserMap) {
		p := meta.PurchaserMap[key]
		if p == nil {
			continue
		}
		pr := &PurchaserResponse{
			EmailHash:        key,
			Email:            p.Email,
			TotalTicketCount: p.TotalTicketCount,
			Attendees:        make([]*AttendeeResponse, 0, len(p.Attendees)),
		}
		for _, name := range sortedKeys(p.Attendees) {
			a := p.Attendees[name]
			if a == nil {
				continue
			}
			pr.Attendees = append(pr.Attendees, &AttendeeResponse{Name: name, Phone: a.Phone, TicketCount: a.TicketCount})
		}
		resp.Purchasers = append(resp.Purchasers, pr)
	}
	return resp
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
