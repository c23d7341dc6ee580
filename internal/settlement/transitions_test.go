package settlement

import (
	"testing"

	"github.com/gemvault/gemvault-backend/pkg/enums"
)

func TestCanTransition(t *testing.T) {
	t.Parallel()

	allowed := []struct{ from, to enums.OrderStatus }{
		{enums.OrderStatusPending, enums.OrderStatusPaid},
		{enums.OrderStatusPending, enums.OrderStatusDispatched},
		{enums.OrderStatusPending, enums.OrderStatusCancelled},
		{enums.OrderStatusPaid, enums.OrderStatusDispatched},
		{enums.OrderStatusPaid, enums.OrderStatusCancelled},
		{enums.OrderStatusDispatched, enums.OrderStatusDelivered},
	}
	for _, tc := range allowed {
		if !CanTransition(tc.from, tc.to) {
			t.Errorf("%s -> %s should be allowed", tc.from, tc.to)
		}
	}

	forbidden := []struct{ from, to enums.OrderStatus }{
		{enums.OrderStatusPending, enums.OrderStatusDelivered},
		{enums.OrderStatusPaid, enums.OrderStatusPending},
		{enums.OrderStatusDispatched, enums.OrderStatusCancelled},
		{enums.OrderStatusDelivered, enums.OrderStatusCancelled},
		{enums.OrderStatusCancelled, enums.OrderStatusPending},
		{enums.OrderStatusDelivered, enums.OrderStatusDelivered},
	}
	for _, tc := range forbidden {
		if CanTransition(tc.from, tc.to) {
			t.Errorf("%s -> %s should be rejected", tc.from, tc.to)
		}
	}
}
