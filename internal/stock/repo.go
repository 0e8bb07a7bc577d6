package stock

import (
	"context"
	"errors"
	"time"

	"github.com/giftlane/giftlane-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UnitRef identifies a stock unit. VariantKey is empty for items without
// variants, otherwise the variant UUID in string form.
type UnitRef struct {
	ItemID     uuid.UUID
	VariantKey string
}

// Repository manages on-hand stock rows.
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

// GetUnit loads the stock row for a unit, or nil when none exists.
func (r *Repository) GetUnit(ctx context.Context, ref UnitRef) (*models.StockUnit, error) {
	var unit models.StockUnit
	err := r.db.WithContext(ctx).
		Where("item_id = ? AND variant_id = ?", ref.ItemID, ref.VariantKey).
		First(&unit).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &unit, nil
}

// UpsertOnHand creates or replaces the on-hand quantity for a unit.
func (r *Repository) UpsertOnHand(ctx context.Context, ref UnitRef, qty int, now time.Time) error {
	unit := models.StockUnit{
		ItemID:    ref.ItemID,
		VariantID: ref.VariantKey,
		OnHandQty: qty,
		UpdatedAt: now,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "item_id"}, {Name: "variant_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"on_hand_qty", "updated_at"}),
	}).Create(&unit).Error
}

// Available computes on-hand minus the sum of unexpired reservations in a
// single statement. excludeCartLineID, when non-nil, removes that cart
// line's own reservation from the pool so a quantity update is checked
// against the delta it actually needs.
func (r *Repository) Available(ctx context.Context, ref UnitRef, now time.Time, excludeCartLineID *uuid.UUID) (int, error) {
	exclude := uuid.Nil
	if excludeCartLineID != nil {
		exclude = *excludeCartLineID
	}
	var available *int
	err := r.db.WithContext(ctx).Raw(`
		SELECT su.on_hand_qty - COALESCE((
			SELECT SUM(sr.quantity)
			FROM stock_reservations sr
			WHERE sr.item_id = su.item_id
			  AND sr.variant_id = su.variant_id
			  AND sr.expires_at > ?
			  AND sr.cart_line_id <> ?
		), 0)
		FROM stock_units su
		WHERE su.item_id = ? AND su.variant_id = ?`,
		now, exclude, ref.ItemID, ref.VariantKey,
	).Scan(&available).Error
	if err != nil {
		return 0, err
	}
	if available == nil {
		return 0, nil
	}
	return *available, nil
}

// DecrementOnHand permanently consumes stock. The WHERE guard keeps the
// row from going negative; zero rows affected means insufficient stock.
func (r *Repository) DecrementOnHand(ctx context.Context, ref UnitRef, qty int, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE stock_units
		SET on_hand_qty = on_hand_qty - ?, updated_at = ?
		WHERE item_id = ? AND variant_id = ? AND on_hand_qty >= ?`,
		qty, now, ref.ItemID, ref.VariantKey, qty,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
