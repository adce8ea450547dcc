package aggregation

import (
	"errors"
	"fmt"
)

var (
	ErrPurchaserNotFound = errors.New("purchaser not found in event metadata")
	ErrAttendeeNotFound  = errors.New("attendee not found for purchaser")
)

// ValidationError reports a numeric field that cannot be aggregated
type ValidationError struct {
	// Field is the offending field, e.g. "price", "discounts", "ticketCount"
	Field string
	// Key identifies the record holding the field
	Key   string
	Value int64
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s for %s: %d must not be negative", e.Field, e.Key, e.Value)
}

// CapacityError reports an update that would leave the event's complete
// ticket count outside [0, Capacity]
type CapacityError struct {
	EventID   string
	Requested int
	Capacity  int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("event %s total ticket count %d is out of range [0, %d]", e.EventID, e.Requested, e.Capacity)
}
