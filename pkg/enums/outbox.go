package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateOrder       OutboxAggregateType = "order"
	AggregateOrderItem   OutboxAggregateType = "order_item"
	AggregateCart        OutboxAggregateType = "cart"
	AggregateReservation OutboxAggregateType = "reservation"
	AggregateWallet      OutboxAggregateType = "wallet"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregateOrderItem,
	AggregateCart,
	AggregateReservation,
	AggregateWallet,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventOrderPlaced         OutboxEventType = "order_placed"
	EventOrderStateChanged   OutboxEventType = "order_state_changed"
	EventOrderItemChanged    OutboxEventType = "order_item_changed"
	EventOrderCancelled      OutboxEventType = "order_cancelled"
	EventOrderDelivered      OutboxEventType = "order_delivered"
	EventOrderRefunded       OutboxEventType = "order_refunded"
	EventDetailsSubmitted    OutboxEventType = "details_submitted"
	EventDetailsNudge        OutboxEventType = "details_nudge"
	EventPreviewSubmitted    OutboxEventType = "preview_submitted"
	EventPreviewApproved     OutboxEventType = "preview_approved"
	EventChangesRequested    OutboxEventType = "changes_requested"
	EventDispatchRequested   OutboxEventType = "dispatch_requested"
	EventCashbackCredited    OutboxEventType = "cashback_credited"
	EventRefundCredited      OutboxEventType = "refund_credited"
	EventReservationReleased OutboxEventType = "reservation_released"
	EventCartConverted       OutboxEventType = "cart_converted"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderPlaced,
	EventOrderStateChanged,
	EventOrderItemChanged,
	EventOrderCancelled,
	EventOrderDelivered,
	EventOrderRefunded,
	EventDetailsSubmitted,
	EventDetailsNudge,
	EventPreviewSubmitted,
	EventPreviewApproved,
	EventChangesRequested,
	EventDispatchRequested,
	EventCashbackCredited,
	EventRefundCredited,
	EventReservationReleased,
	EventCartConverted,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
