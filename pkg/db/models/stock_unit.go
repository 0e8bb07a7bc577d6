package models

import (
	"time"

	"github.com/google/uuid"
)

// StockUnit tracks the on-hand count per (item, variant). VariantID is the
// empty string for items without variants so the pair can form the primary key.
type StockUnit struct {
	ItemID     uuid.UUID `gorm:"column:item_id;type:uuid;primaryKey"`
	VariantID  string    `gorm:"column:variant_id;type:text;primaryKey;default:''"`
	OnHandQty  int       `gorm:"column:on_hand_qty;not null;default:0"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
