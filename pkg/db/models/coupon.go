package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/giftlane/giftlane-backend/pkg/enums"
)

// Coupon is a discount code validated inside the pricing transaction.
// Value holds a percent for percentage coupons and cents for fixed ones.
type Coupon struct {
	ID                 uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	Code               string           `gorm:"column:code;type:text;not null;uniqueIndex"`
	Type               enums.CouponType `gorm:"column:type;type:text;not null"`
	Value              int              `gorm:"column:value;not null"`
	MinOrderValueCents int              `gorm:"column:min_order_value_cents;not null;default:0"`
	MaxDiscountCents   int              `gorm:"column:max_discount_cents;not null;default:0"`
	StartsAt           *time.Time       `gorm:"column:starts_at"`
	ExpiresAt          *time.Time       `gorm:"column:expires_at"`
	UsageLimit         int              `gorm:"column:usage_limit;not null;default:0"`
	UsedCount          int              `gorm:"column:used_count;not null;default:0"`
	IsActive           bool             `gorm:"column:is_active;not null;default:true"`
	CreatedAt          time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
