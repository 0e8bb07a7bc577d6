package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/giftlane/giftlane-backend/pkg/enums"
	"github.com/giftlane/giftlane-backend/pkg/types"
)

// Order is created atomically from a cart, its recomputed pricing breakdown,
// and a payment confirmation. Monetary columns snapshot the breakdown at
// charge time and never change afterwards.
type Order struct {
	ID                    uuid.UUID                   `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber           string                      `gorm:"column:order_number;type:text;not null;uniqueIndex"`
	UserID                uuid.UUID                   `gorm:"column:user_id;type:uuid;not null;index"`
	PartnerID             uuid.UUID                   `gorm:"column:partner_id;type:uuid;not null;index"`
	Status                enums.OrderStatus           `gorm:"column:status;type:text;not null;default:'placed'"`
	PaymentStatus         enums.PaymentStatus         `gorm:"column:payment_status;type:text;not null;default:'pending'"`
	PaymentRef            *string                     `gorm:"column:payment_ref;type:text"`
	HasPersonalization    bool                        `gorm:"column:has_personalization;not null;default:false"`
	PersonalizationStatus enums.PersonalizationStatus `gorm:"column:personalization_status;type:text;not null;default:'none'"`
	DesignDeadlineAt      *time.Time                  `gorm:"column:design_deadline_at"`
	DeadlineNudgedAt      *time.Time                  `gorm:"column:deadline_nudged_at"`
	MaxChangeRequests     int                         `gorm:"column:max_change_requests;not null;default:2"`
	ChangeRequestCount    int                         `gorm:"column:change_request_count;not null;default:0"`
	SubtotalCents         int                         `gorm:"column:subtotal_cents;not null"`
	PersonalizationCents  int                         `gorm:"column:personalization_cents;not null;default:0"`
	DeliveryFeeCents      int                         `gorm:"column:delivery_fee_cents;not null;default:0"`
	PlatformFeeCents      int                         `gorm:"column:platform_fee_cents;not null;default:0"`
	GSTCents              int                         `gorm:"column:gst_cents;not null;default:0"`
	DiscountCents         int                         `gorm:"column:discount_cents;not null;default:0"`
	WalletDiscountCents   int                         `gorm:"column:wallet_discount_cents;not null;default:0"`
	TotalCents            int                         `gorm:"column:total_cents;not null"`
	CouponCode            *string                     `gorm:"column:coupon_code;type:text"`
	DeliveryAddress       *types.Address              `gorm:"column:delivery_address;type:jsonb;serializer:json"`
	DispatchRef           *string                     `gorm:"column:dispatch_ref;type:text"`
	ConfirmedAt           *time.Time                  `gorm:"column:confirmed_at"`
	DeliveredAt           *time.Time                  `gorm:"column:delivered_at"`
	CancelledAt           *time.Time                  `gorm:"column:cancelled_at"`
	RefundedAt            *time.Time                  `gorm:"column:refunded_at"`
	Items                 []OrderItem                 `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt             time.Time                   `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time                   `gorm:"column:updated_at;autoUpdateTime"`
}
