package reservation

import (
	"context"
	"errors"
	"time"

	"github.com/giftlane/giftlane-backend/internal/stock"
	"github.com/giftlane/giftlane-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository manages soft stock reservations.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the repository to the provided DB handle.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx scopes the repository to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// Reserve writes or refreshes the reservation for a cart line in one
// conditional statement. The insert only lands when the requested
// quantity plus every other unexpired reservation still fits inside the
// on-hand quantity, so two concurrent reservations can never jointly
// oversell a unit. Zero rows affected means insufficient stock.
func (r *Repository) Reserve(ctx context.Context, cartLineID uuid.UUID, ref stock.UnitRef, qty int, now, expiresAt time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
		INSERT INTO stock_reservations (id, cart_line_id, item_id, variant_id, quantity, reserved_at, expires_at)
		SELECT ?, ?, su.item_id, su.variant_id, ?, ?, ?
		FROM stock_units su
		WHERE su.item_id = ? AND su.variant_id = ?
		  AND ? + COALESCE((
				SELECT SUM(sr.quantity)
				FROM stock_reservations sr
				WHERE sr.item_id = su.item_id
				  AND sr.variant_id = su.variant_id
				  AND sr.cart_line_id <> ?
				  AND sr.expires_at > ?
			), 0) <= su.on_hand_qty
		ON CONFLICT (cart_line_id) DO UPDATE SET
			item_id = excluded.item_id,
			variant_id = excluded.variant_id,
			quantity = excluded.quantity,
			reserved_at = excluded.reserved_at,
			expires_at = excluded.expires_at`,
		uuid.New(), cartLineID, qty, now, expiresAt,
		ref.ItemID, ref.VariantKey,
		qty, cartLineID, now,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// GetByCartLine returns the reservation held for a cart line, expired or
// not, or nil when none exists.
func (r *Repository) GetByCartLine(ctx context.Context, cartLineID uuid.UUID) (*models.StockReservation, error) {
	var res models.StockReservation
	err := r.db.WithContext(ctx).Where("cart_line_id = ?", cartLineID).First(&res).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// DeleteByCartLine releases the reservation held for a cart line.
func (r *Repository) DeleteByCartLine(ctx context.Context, cartLineID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("cart_line_id = ?", cartLineID).
		Delete(&models.StockReservation{}).Error
}

// DeleteByCartLines releases reservations for a batch of cart lines.
func (r *Repository) DeleteByCartLines(ctx context.Context, cartLineIDs []uuid.UUID) error {
	if len(cartLineIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Where("cart_line_id IN ?", cartLineIDs).
		Delete(&models.StockReservation{}).Error
}

// DeleteExpired removes reservations whose TTL has lapsed and reports
// how many rows were swept.
func (r *Repository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("expires_at <= ?", now).
		Delete(&models.StockReservation{})
	return res.RowsAffected, res.Error
}
