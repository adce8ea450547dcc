package aggregation

import (
	"crypto/md5"
	"math/big"
	"strings"

	"github.com/owya490/social-sports-sub003/backend-organiser/internal/domain"
)

// NormalizeEmail returns the form purchaser emails are stored and hashed in
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// PurchaserEmailHash returns the PurchaserMap key for an email: its MD5
// digest read as an unsigned integer, in decimal
func PurchaserEmailHash(email string) string {
	sum := md5.Sum([]byte(email))
	return new(big.Int).SetBytes(sum[:]).String()
}

// RecalculateTotalTicketCounts returns a copy of meta whose purchaser
// totals and complete ticket count are recomputed from attendee ticket
// counts. The input is left untouched. A nil meta yields nil metadata and
// no error.
func RecalculateTotalTicketCounts(meta *domain.EventMetadata) (*domain.EventMetadata, error) {
	out := meta.Clone()
	if out == nil {
		return nil, nil
	}
	if err := recalculateInPlace(out); err != nil {
		return nil, err
	}
	return out, nil
}

// recalculateInPlace runs both passes on metadata the caller owns
func recalculateInPlace(meta *domain.EventMetadata) error {
	for key, p := range meta.PurchaserMap {
		if p == nil {
			continue
		}
		total := 0
		for name, a := range p.Attendees {
			if a == nil {
				continue
			}
			if a.TicketCount < 0 {
				return &ValidationError{
					Field: "ticketCount",
					Key:   "attendee " + name + " of purchaser " + key,
					Value: int64(a.TicketCount),
				}
			}
			total += a.TicketCount
		}
		p.TotalTicketCount = total
	}

	complete := 0
	for _, p := range meta.PurchaserMap {
		if p != nil {
			complete += p.TotalTicketCount
		}
	}
	meta.CompleteTicketCount = complete
	return nil
}

// SetAttendeeTicketCount returns a copy of meta with the attendee's ticket
// count set to n, and the vacancy left under capacity. The update is
// rejected with a *CapacityError when the complete ticket count would leave
// [0, capacity].
func SetAttendeeTicketCount(meta *domain.EventMetadata, emailHash, attendeeName string, n, capacity int) (*domain.EventMetadata, int, error) {
	if n < 0 {
		return nil, 0, &ValidationError{Field: "ticketCount", Key: "attendee " + attendeeName, Value: int64(n)}
	}

	out, err := RecalculateTotalTicketCounts(meta)
	if err != nil {
		return nil, 0, err
	}
	if out == nil {
		return nil, 0, ErrPurchaserNotFound
	}

	purchaser, ok := out.PurchaserMap[emailHash]
	if !ok || purchaser == nil {
		return nil, 0, ErrPurchaserNotFound
	}
	attendee, ok := purchaser.Attendees[attendeeName]
	if !ok || attendee == nil {
		return nil, 0, ErrAttendeeNotFound
	}

	newTotal := out.CompleteTicketCount - attendee.TicketCount + n
	if newTotal < 0 || newTotal > capacity {
		return nil, 0, &CapacityError{EventID: out.EventID, Requested: newTotal, Capacity: capacity}
	}

	attendee.TicketCount = n
	if err := recalculateInPlace(out); err != nil {
		return nil, 0, err
	}
	return out, capacity - out.CompleteTicketCount, nil
}

// AddPurchase returns a copy of meta with quantity tickets added to the
// named attendee of the purchaser identified by email, creating either if
// absent. The email is normalised before hashing. A non-empty phone
// replaces the stored one.
func AddPurchase(meta *domain.EventMetadata, email, attendeeName, phone string, quantity int) (*domain.EventMetadata, error) {
	email = NormalizeEmail(email)
	if quantity <= 0 {
		return nil, &ValidationError{Field: "quantity", Key: "purchaser " + email, Value: int64(quantity)}
	}

	out := meta.Clone()
	if out == nil {
		out = domain.NewEventMetadata("")
	}
	if out.PurchaserMap == nil {
		out.PurchaserMap = map[string]*domain.Purchaser{}
	}

	key := PurchaserEmailHash(email)
	purchaser := out.PurchaserMap[key]
	if purchaser == nil {
		purchaser = &domain.Purchaser{Email: email}
		out.PurchaserMap[key] = purchaser
	}
	if purchaser.Attendees == nil {
		purchaser.Attendees = map[string]*domain.Attendee{}
	}

	attendee := purchaser.Attendees[attendeeName]
	if attendee == nil {
		attendee = &domain.Attendee{}
		purchaser.Attendees[attendeeName] = attendee
	}
	attendee.TicketCount += quantity
	if phone != "" {
		attendee.Phone = phone
	}

	if err := recalculateInPlace(out); err != nil {
		return nil, err
	}
	return out, nil
}

// CheckCapacity returns the vacancy left by meta under capacity, or a
// *CapacityError when the complete ticket count exceeds it
func CheckCapacity(meta *domain.EventMetadata, capacity int) (int, error) {
	if meta.CompleteTicketCount < 0 || meta.CompleteTicketCount > capacity {
		return 0, &CapacityError{EventID: meta.EventID, Requested: meta.CompleteTicketCount, Capacity: capacity}
	}
	return capacity - meta.CompleteTicketCount, nil
}
