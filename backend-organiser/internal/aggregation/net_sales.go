package aggregation

// CalculateNetSales returns total ticket sales minus total order discounts
// in minor currency units. Discounts are counted once per order whatever
// its ticket count, and the result is not clamped at zero.
func CalculateNetSales(m *OrderTicketsMap) (int64, error) {
	var ticketSales, discounts int64
	for _, e := range m.Entries() {
		if e.Order.Discounts < 0 {
			return 0, &ValidationError{Field: "discounts", Key: "order " + e.Order.ID, Value: e.Order.Discounts}
		}
		discounts += e.Order.Discounts

		for _, t := range e.Tickets {
			if t == nil {
				continue
			}
			if t.Price < 0 {
				return 0, &ValidationError{Field: "price", Key: "ticket " + t.ID, Value: t.Price}
			}
			ticketSales += t.Price
		}
	}
	return ticketSales - discounts, nil
}

// CalculateTotalTicketCount returns the number of tickets across all orders
func CalculateTotalTicketCount(m *OrderTicketsMap) int {
	total := 0
	for _, e := range m.Entries() {
		for _, t := range e.Tickets {
			if t != nil {
				total++
			}
		}
	}
	return total
}
