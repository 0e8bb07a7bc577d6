package enums

import "fmt"

// OrderItemStatus tracks an individual item inside an order. It may
// diverge from the order-level status on orders that mix personalized
// and off-the-shelf items.
type OrderItemStatus string

const (
	OrderItemStatusPending           OrderItemStatus = "pending"
	OrderItemStatusDetailsReceived   OrderItemStatus = "details_received"
	OrderItemStatusPreviewReady      OrderItemStatus = "preview_ready"
	OrderItemStatusRevisionRequested OrderItemStatus = "revision_requested"
	OrderItemStatusApproved          OrderItemStatus = "approved"
	OrderItemStatusInProduction      OrderItemStatus = "in_production"
	OrderItemStatusCancelled         OrderItemStatus = "cancelled"
)

var validOrderItemStatuses = []OrderItemStatus{
	OrderItemStatusPending,
	OrderItemStatusDetailsReceived,
	OrderItemStatusPreviewReady,
	OrderItemStatusRevisionRequested,
	OrderItemStatusApproved,
	OrderItemStatusInProduction,
	OrderItemStatusCancelled,
}

// IsValid reports whether the value is a known OrderItemStatus.
func (s OrderItemStatus) IsValid() bool {
	for _, candidate := range validOrderItemStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseOrderItemStatus converts raw input into an OrderItemStatus.
func ParseOrderItemStatus(value string) (OrderItemStatus, error) {
	for _, candidate := range validOrderItemStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order item status %q", value)
}
