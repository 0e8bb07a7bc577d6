package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/giftlane/giftlane-backend/pkg/enums"
	"github.com/giftlane/giftlane-backend/pkg/types"
)

// OrderItem snapshots one cart line at order time. Its status may run ahead of
// or behind the order-level status on mixed-personalization orders.
type OrderItem struct {
	ID                   uuid.UUID                         `gorm:"column:id;type:uuid;primaryKey"`
	OrderID              uuid.UUID                         `gorm:"column:order_id;type:uuid;not null;index"`
	ItemID               uuid.UUID                         `gorm:"column:item_id;type:uuid;not null"`
	VariantID            *uuid.UUID                        `gorm:"column:variant_id;type:uuid"`
	Name                 string                            `gorm:"column:name;type:text;not null"`
	Quantity             int                               `gorm:"column:quantity;not null"`
	UnitPriceCents       int                               `gorm:"column:unit_price_cents;not null"`
	PersonalizationCents int                               `gorm:"column:personalization_cents;not null;default:0"`
	AddonCents           int                               `gorm:"column:addon_cents;not null;default:0"`
	IsPersonalized       bool                              `gorm:"column:is_personalized;not null;default:false"`
	Status               enums.OrderItemStatus             `gorm:"column:status;type:text;not null;default:'pending'"`
	Personalization      *types.Personalization            `gorm:"column:personalization;type:jsonb;serializer:json"`
	SelectedAddons       types.SelectedAddons              `gorm:"column:selected_addons;type:jsonb;serializer:json"`
	Requirement          *types.PersonalizationRequirement `gorm:"column:requirement;type:jsonb;serializer:json"`
	CreatedAt            time.Time                         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time                         `gorm:"column:updated_at;autoUpdateTime"`
}
