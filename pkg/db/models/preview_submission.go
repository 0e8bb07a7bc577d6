package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/giftlane/giftlane-backend/pkg/enums"
)

// PreviewSubmission is one partner-submitted design preview for an order item.
// Rows are append-only; the latest submission is the one with the greatest
// submitted_at.
type PreviewSubmission struct {
	ID               uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	OrderItemID      uuid.UUID           `gorm:"column:order_item_id;type:uuid;not null;index"`
	PreviewURL       string              `gorm:"column:preview_url;type:text;not null"`
	PartnerNotes     *string             `gorm:"column:partner_notes;type:text"`
	Status           enums.PreviewStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	CustomerFeedback *string             `gorm:"column:customer_feedback;type:text"`
	SubmittedAt      time.Time           `gorm:"column:submitted_at;not null"`
	DecidedAt        *time.Time          `gorm:"column:decided_at"`
}
