package settlement

import (
	"fmt"

	"github.com/gemvault/gemvault-backend/pkg/enums"
	"github.com/gemvault/gemvault-backend/pkg/errors"
)

var orderTransitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending:    {enums.OrderStatusPaid, enums.OrderStatusDispatched, enums.OrderStatusCancelled},
	enums.OrderStatusPaid:       {enums.OrderStatusDispatched, enums.OrderStatusCancelled},
	enums.OrderStatusDispatched: {enums.OrderStatusDelivered},
	enums.OrderStatusDelivered:  {},
	enums.OrderStatusCancelled:  {},
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to enums.OrderStatus) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func ensureTransition(from, to enums.OrderStatus) error {
	if !CanTransition(from, to) {
		return errors.New(errors.CodeStateConflict,
			fmt.Sprintf("order cannot move from %s to %s", from, to))
	}
	return nil
}
