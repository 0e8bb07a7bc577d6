package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/giftlane/giftlane-backend/pkg/types"
)

// TimelineEvent is an immutable audit entry recorded for every order
// transition and settlement side effect.
type TimelineEvent struct {
	ID          uuid.UUID     `gorm:"column:id;type:uuid;primaryKey"`
	OrderID     uuid.UUID     `gorm:"column:order_id;type:uuid;not null;index"`
	Title       string        `gorm:"column:title;type:text;not null"`
	Description string        `gorm:"column:description;type:text;not null;default:''"`
	Metadata    types.JSONMap `gorm:"column:metadata;type:jsonb;serializer:json"`
	CreatedAt   time.Time     `gorm:"column:created_at;autoCreateTime"`
}
