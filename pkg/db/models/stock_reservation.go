package models

import (
	"time"

	"github.com/google/uuid"
)

// StockReservation is a time-limited soft lock on a stock unit, owned one-to-one
// by a cart line. Rows with expires_at in the past are treated as non-existent
// for availability purposes; they are reaped opportunistically by the sweep job.
type StockReservation struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	CartLineID uuid.UUID `gorm:"column:cart_line_id;type:uuid;not null;uniqueIndex:idx_reservations_cart_line"`
	ItemID     uuid.UUID `gorm:"column:item_id;type:uuid;not null;index:idx_reservations_stock_unit"`
	VariantID  string    `gorm:"column:variant_id;type:text;not null;default:'';index:idx_reservations_stock_unit"`
	Quantity   int       `gorm:"column:quantity;not null"`
	ReservedAt time.Time `gorm:"column:reserved_at;not null"`
	ExpiresAt  time.Time `gorm:"column:expires_at;not null;index"`
}
