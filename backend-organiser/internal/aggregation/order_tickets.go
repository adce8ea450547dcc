package aggregation

import (
	"github.com/owya490/social-sports-sub003/backend-organiser/internal/domain"
)

// Entry pairs an order with its tickets
type Entry struct {
	Order   *domain.Order
	Tickets []*domain.Ticket
}

// OrderTicketsMap associates orders with their tickets, preserving
// insertion order. Lookups over duplicate order ids always resolve to the
// first inserted entry.
type OrderTicketsMap struct {
	entries []Entry
}

// NewOrderTicketsMap returns an empty map with room for n entries
func NewOrderTicketsMap(n int) *OrderTicketsMap {
	return &OrderTicketsMap{entries: make([]Entry, 0, n)}
}

// Add appends an entry. Nil orders are ignored.
func (m *OrderTicketsMap) Add(order *domain.Order, tickets []*domain.Ticket) {
	if order == nil {
		return
	}
	m.entries = append(m.entries, Entry{Order: order, Tickets: tickets})
}

// Len returns the number of entries
func (m *OrderTicketsMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}

// Entries returns a copy of the entries in insertion order
func (m *OrderTicketsMap) Entries() []Entry {
	if m == nil {
		return nil
	}
	return append([]Entry(nil), m.entries...)
}

// Filter returns a new map holding only orders with one of statuses. No
// statuses means no filtering.
func (m *OrderTicketsMap) Filter(statuses ...domain.OrderStatus) *OrderTicketsMap {
	out := NewOrderTicketsMap(m.Len())
	for _, e := range m.Entries() {
		if len(statuses) == 0 || containsStatus(statuses, e.Order.Status) {
			out.entries = append(out.entries, e)
		}
	}
	return out
}

func containsStatus(statuses []domain.OrderStatus, s domain.OrderStatus) bool {
	for _, want := range statuses {
		if want == s {
			return true
		}
	}
	return false
}

// FindEntryByOrderID returns the first entry whose order id matches. The
// boolean is false when no entry matches.
func FindEntryByOrderID(m *OrderTicketsMap, orderID string) (Entry, bool) {
	if m == nil {
		return Entry{}, false
	}
	for _, e := range m.entries {
		if e.Order.ID == orderID {
			return e, true
		}
	}
	return Entry{}, false
}
