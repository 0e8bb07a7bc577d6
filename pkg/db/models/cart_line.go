package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/giftlane/giftlane-backend/pkg/types"
)

// CartLine is one entry in a shopper's cart. Exactly one of UserID/SessionID
// is set; all lines sharing an owner reference the same partner.
type CartLine struct {
	ID              uuid.UUID                         `gorm:"column:id;type:uuid;primaryKey"`
	UserID          *uuid.UUID                        `gorm:"column:user_id;type:uuid;index"`
	SessionID       *string                           `gorm:"column:session_id;type:text;index"`
	PartnerID       uuid.UUID                         `gorm:"column:partner_id;type:uuid;not null"`
	ItemID          uuid.UUID                         `gorm:"column:item_id;type:uuid;not null"`
	VariantID       *uuid.UUID                        `gorm:"column:variant_id;type:uuid"`
	Quantity        int                               `gorm:"column:quantity;not null"`
	Personalization types.Personalization             `gorm:"column:personalization;type:jsonb;serializer:json"`
	SelectedAddons  types.SelectedAddons              `gorm:"column:selected_addons;type:jsonb;serializer:json"`
	Requirement     *types.PersonalizationRequirement `gorm:"column:requirement;type:jsonb;serializer:json"`
	DedupKey        string                            `gorm:"column:dedup_key;type:text;not null;index"`
	CreatedAt       time.Time                         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time                         `gorm:"column:updated_at;autoUpdateTime"`
}

// VariantKey returns the variant id as the text key used by the stock ledger.
func (c CartLine) VariantKey() string {
	if c.VariantID == nil {
		return ""
	}
	return c.VariantID.String()
}
