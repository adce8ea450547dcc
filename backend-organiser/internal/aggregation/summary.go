package aggregation

import (
	"github.com/owya490/social-sports-sub003/backend-organiser/internal/domain"
)

// EventStatistics is the organiser dashboard summary for an event
type EventStatistics struct {
	EventID             string `json:"eventId"`
	NetSales            int64  `json:"netSales"`
	OrderCount          int    `json:"orderCount"`
	TicketCount         int    `json:"ticketCount"`
	CompleteTicketCount int    `json:"completeTicketCount"`
	PurchaserCount      int    `json:"purchaserCount"`
}

// Summarise combines order totals with the metadata's purchaser counts.
// meta may be nil.
func Summarise(eventID string, m *OrderTicketsMap, meta *domain.EventMetadata) (*EventStatistics, error) {
	netSales, err := CalculateNetSales(m)
	if err != nil {
		return nil, err
	}

	stats := &EventStatistics{
		EventID:     eventID,
		NetSales:    netSales,
		OrderCount:  m.Len(),
		TicketCount: CalculateTotalTicketCount(m),
	}

	if meta != nil {
		recalculated, err := RecalculateTotalTicketCounts(meta)
		if err != nil {
			return nil, err
		}
		stats.CompleteTicketCount = recalculated.CompleteTicketCount
		for _, p := range recalculated.PurchaserMap {
			if p != nil && p.TotalTicketCount > 0 {
				stats.PurchaserCount++
			}
		}
	}
	return stats, nil
}
