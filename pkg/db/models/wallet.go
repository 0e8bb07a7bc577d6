package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/giftlane/giftlane-backend/pkg/enums"
)

// Wallet holds a user's store-credit balance in cents.
type Wallet struct {
	UserID       uuid.UUID `gorm:"column:user_id;type:uuid;primaryKey"`
	BalanceCents int       `gorm:"column:balance_cents;not null;default:0"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// WalletEntry is an append-only ledger row behind every balance change.
// AmountCents is positive for credits and negative for debits.
type WalletEntry struct {
	ID          uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	UserID      uuid.UUID             `gorm:"column:user_id;type:uuid;not null;index"`
	Type        enums.WalletEntryType `gorm:"column:type;type:text;not null"`
	AmountCents int                   `gorm:"column:amount_cents;not null"`
	OrderID     *uuid.UUID            `gorm:"column:order_id;type:uuid;index"`
	Note        *string               `gorm:"column:note;type:text"`
	CreatedAt   time.Time             `gorm:"column:created_at;autoCreateTime"`
}
