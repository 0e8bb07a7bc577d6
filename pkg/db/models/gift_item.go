package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/giftlane/giftlane-backend/pkg/enums"
	"github.com/giftlane/giftlane-backend/pkg/types"
)

// GiftItem is the catalog entry a cart line references. Pricing always reads
// these rows inside the quote transaction; client-sent prices are never trusted.
type GiftItem struct {
	ID                   uuid.UUID                         `gorm:"column:id;type:uuid;primaryKey"`
	PartnerID            uuid.UUID                         `gorm:"column:partner_id;type:uuid;not null;index"`
	Name                 string                            `gorm:"column:name;type:text;not null"`
	BasePriceCents       int                               `gorm:"column:base_price_cents;not null"`
	HasVariants          bool                              `gorm:"column:has_variants;not null;default:false"`
	PersonalizationKind  enums.PersonalizationKind         `gorm:"column:personalization_kind;type:text;not null;default:'none'"`
	PersonalizationCents int                               `gorm:"column:personalization_cents;not null;default:0"`
	TextLimit            int                               `gorm:"column:text_limit;not null;default:0"`
	Requirement          *types.PersonalizationRequirement `gorm:"column:requirement;type:jsonb;serializer:json"`
	IsActive             bool                              `gorm:"column:is_active;not null;default:true"`
	CreatedAt            time.Time                         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time                         `gorm:"column:updated_at;autoUpdateTime"`
}

// GiftItemVariant is a purchasable variation of a gift item with its own price.
type GiftItemVariant struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	ItemID     uuid.UUID `gorm:"column:item_id;type:uuid;not null;index"`
	Name       string    `gorm:"column:name;type:text;not null"`
	PriceCents int       `gorm:"column:price_cents;not null"`
	IsActive   bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// GiftItemAddon is an optional extra offered on an item, charged per unit.
type GiftItemAddon struct {
	ID              uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	ItemID          uuid.UUID `gorm:"column:item_id;type:uuid;not null;index"`
	Name            string    `gorm:"column:name;type:text;not null"`
	PriceCents      int       `gorm:"column:price_cents;not null"`
	RequiresPreview bool      `gorm:"column:requires_preview;not null;default:false"`
	IsActive        bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
