package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/giftlane/giftlane-backend/pkg/enums"
)

// OrderPlacedEvent signals a cart converted into an order.
type OrderPlacedEvent struct {
	OrderID            uuid.UUID `json:"order_id"`
	OrderNumber        string    `json:"order_number"`
	UserID             uuid.UUID `json:"user_id"`
	PartnerID          uuid.UUID `json:"partner_id"`
	TotalCents         int       `json:"total_cents"`
	HasPersonalization bool      `json:"has_personalization"`
}

// OrderStateChangedEvent is emitted on every committed status transition.
type OrderStateChangedEvent struct {
	OrderID    uuid.UUID         `json:"order_id"`
	UserID     uuid.UUID         `json:"user_id"`
	PartnerID  uuid.UUID         `json:"partner_id"`
	FromStatus enums.OrderStatus `json:"from_status"`
	ToStatus   enums.OrderStatus `json:"to_status"`
	Reason     string            `json:"reason,omitempty"`
}

// DetailsSubmittedEvent reports the customer's personalization brief.
type DetailsSubmittedEvent struct {
	OrderID     uuid.UUID   `json:"order_id"`
	OrderItemID []uuid.UUID `json:"order_item_ids"`
	UserID      uuid.UUID   `json:"user_id"`
}

// PreviewSubmittedEvent tells the customer a design preview is waiting.
type PreviewSubmittedEvent struct {
	OrderID      uuid.UUID `json:"order_id"`
	OrderItemID  uuid.UUID `json:"order_item_id"`
	SubmissionID uuid.UUID `json:"submission_id"`
	PreviewURL   string    `json:"preview_url"`
}

// ChangesRequestedEvent carries customer feedback back to the partner.
type ChangesRequestedEvent struct {
	OrderID            uuid.UUID `json:"order_id"`
	OrderItemID        uuid.UUID `json:"order_item_id"`
	Feedback           string    `json:"feedback"`
	ChangeRequestCount int       `json:"change_request_count"`
}

// DesignDeadlineNudgeEvent reminds a partner the preview SLA has lapsed.
type DesignDeadlineNudgeEvent struct {
	OrderID          uuid.UUID `json:"order_id"`
	PartnerID        uuid.UUID `json:"partner_id"`
	DesignDeadlineAt time.Time `json:"design_deadline_at"`
}

// DispatchRequestedEvent records a courier handoff attempt.
type DispatchRequestedEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	PartnerID   uuid.UUID `json:"partner_id"`
	DispatchRef string    `json:"dispatch_ref,omitempty"`
	Succeeded   bool      `json:"succeeded"`
}

// WalletCreditEvent covers cashback and refund credits.
type WalletCreditEvent struct {
	UserID      uuid.UUID             `json:"user_id"`
	OrderID     uuid.UUID             `json:"order_id"`
	Type        enums.WalletEntryType `json:"type"`
	AmountCents int                   `json:"amount_cents"`
}

// CartConvertedEvent marks a cart cleared by successful checkout.
type CartConvertedEvent struct {
	UserID    uuid.UUID `json:"user_id"`
	OrderID   uuid.UUID `json:"order_id"`
	LineCount int       `json:"line_count"`
}
