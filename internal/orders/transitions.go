package orders

import (
	"fmt"

	"github.com/giftlane/giftlane-backend/pkg/enums"
	pkgerrors "github.com/giftlane/giftlane-backend/pkg/errors"
)

// transitionTable lists the allowed next statuses per current status.
// Terminal states have no entry.
var transitionTable = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPlaced: {
		enums.OrderStatusConfirmed,
		enums.OrderStatusCancelled,
		enums.OrderStatusInProduction,
	},
	enums.OrderStatusConfirmed: {
		enums.OrderStatusDetailsReceived,
		enums.OrderStatusInProduction,
		enums.OrderStatusPreviewReady,
		enums.OrderStatusCancelled,
	},
	enums.OrderStatusDetailsReceived: {
		enums.OrderStatusPreviewReady,
		enums.OrderStatusCancelled,
	},
	enums.OrderStatusPreviewReady: {
		enums.OrderStatusApproved,
		enums.OrderStatusRevisionRequested,
		enums.OrderStatusCancelled,
	},
	enums.OrderStatusRevisionRequested: {
		enums.OrderStatusPreviewReady,
		enums.OrderStatusCancelled,
	},
	enums.OrderStatusApproved: {
		enums.OrderStatusInProduction,
		enums.OrderStatusCancelled,
	},
	enums.OrderStatusInProduction: {
		enums.OrderStatusPacked,
		enums.OrderStatusCancelled,
	},
	enums.OrderStatusPacked: {
		enums.OrderStatusDispatched,
		enums.OrderStatusCancelled,
	},
	enums.OrderStatusDispatched: {
		enums.OrderStatusOutForDelivery,
		enums.OrderStatusDelivered,
	},
	enums.OrderStatusOutForDelivery: {
		enums.OrderStatusDelivered,
	},
	enums.OrderStatusDelivered: {
		enums.OrderStatusRefunded,
	},
}

// ValidateTransition applies the hard guards first, then the table.
// Guards exist because the table alone would admit paths the business
// forbids: design-cycle progress before a partner commits, and packing
// without production.
func ValidateTransition(from, to enums.OrderStatus) error {
	if !to.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown order status %q", to))
	}
	if from == enums.OrderStatusPlaced && to == enums.OrderStatusDetailsReceived {
		return pkgerrors.New(pkgerrors.CodeStateConflict,
			"order must be confirmed before design details are recorded")
	}
	if to == enums.OrderStatusPacked &&
		(from == enums.OrderStatusApproved || from == enums.OrderStatusConfirmed) {
		return pkgerrors.New(pkgerrors.CodeStateConflict,
			"order must enter production before packing")
	}
	for _, allowed := range transitionTable[from] {
		if allowed == to {
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict,
		fmt.Sprintf("cannot move order from %s to %s", from, to))
}
