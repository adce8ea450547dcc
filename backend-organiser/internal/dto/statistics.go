package dto

import "github.com/owya490/social-sports-sub003/backend-organiser/internal/aggregation"

// EventStatisticsResponse is the organiser dashboard summary for an event.
// Money fields are in cents.
type EventStatisticsResponse struct {
	EventID             string   `json:"event_id"`
	NetSales            int64    `json:"net_sales"`
	OrderCount          int      `json:"order_count"`
	TicketCount         int      `json:"ticket_count"`
	CompleteTicketCount int      `json:"complete_ticket_count"`
	PurchaserCount      int      `json:"purchaser_count"`
	Capacity            int      `json:"capacity"`
	Vacancy             int      `json:"vacancy"`
	StatusFilter        []string `json:"status_filter,omitempty"`
}

// FromStatistics converts aggregated statistics to a response
func FromStatistics(s *aggregation.EventStatistics) *EventStatisticsResponse {
	return &EventStatisticsResponse{
		EventID:             s.EventID,
		NetSales:            s.NetSales,
		OrderCount:          s.OrderCount,
		TicketCount:         s.TicketCount,
		CompleteTicketCount: s.CompleteTicketCount,
		PurchaserCount:      s.PurchaserCount,
	}
}
