package domain

// EventMetadata is the per-event purchaser aggregate. CompleteTicketCount
// must equal the sum of every purchaser's TotalTicketCount.
type EventMetadata struct {
	EventID             string                `json:"eventId"`
	PurchaserMap        map[string]*Purchaser `json:"purchaserMap"`
	CompleteTicketCount int                   `json:"completeTicketCount"`
	OrderIDs            []string              `json:"orderIds"`
}

// Purchaser is one purchaser's standing within an event, keyed in
// EventMetadata.PurchaserMap by the hashed email
type Purchaser struct {
	Email            string               `json:"email"`
	Attendees        map[string]*Attendee `json:"attendees"`
	TotalTicketCount int                  `json:"totalTicketCount"`
}

// Attendee is a named ticket holder under a purchaser
type Attendee struct {
	Phone       string `json:"phone"`
	TicketCount int    `json:"ticketCount"`
}

// EventCapacity tracks how many tickets an event can still sell
type EventCapacity struct {
	EventID  string `json:"eventId"`
	Capacity int    `json:"capacity"`
	Vacancy  int    `json:"vacancy"`
}

// NewEventMetadata returns empty metadata for an event
func NewEventMetadata(eventID string) *EventMetadata {
	return &EventMetadata{
		EventID:      eventID,
		PurchaserMap: map[string]*Purchaser{},
		OrderIDs:     []string{},
	}
}

// Clone returns a deep copy
func (m *EventMetadata) Clone() *EventMetadata {
	if m == nil {
		return nil
	}
	out := &EventMetadata{
		EventID:             m.EventID,
		PurchaserMap:        make(map[string]*Purchaser, len(m.PurchaserMap)),
		CompleteTicketCount: m.CompleteTicketCount,
		OrderIDs:            append([]string(nil), m.OrderIDs...),
	}
	for key, p := range m.PurchaserMap {
		if p == nil {
			out.PurchaserMap[key] = nil
			continue
		}
		cp := &Purchaser{
			Email:            p.Email,
			Attendees:        make(map[string]*Attendee, len(p.Attendees)),
			TotalTicketCount: p.TotalTicketCount,
		}
		for name, a := range p.Attendees {
			if a == nil {
				cp.Attendees[name] = nil
				continue
			}
			ca := *a
			cp.Attendees[name] = &ca
		}
		out.PurchaserMap[key] = cp
	}
	return out
}

// HasOrder reports whether orderID is already recorded
func (m *EventMetadata) HasOrder(orderID string) bool {
	for _, id := range m.OrderIDs {
		if id == orderID {
			return true
		}
	}
	return false
}
