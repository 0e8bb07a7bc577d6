package catalog

import (
	"context"
	"errors"

	"github.com/giftlane/giftlane-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository loads authoritative catalog rows. Pricing and cart flows
// must read these inside their own transactions rather than trusting
// client-supplied prices.
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

// GetItem loads an active gift item, or nil when missing or inactive.
func (r *Repository) GetItem(ctx context.Context, itemID uuid.UUID) (*models.GiftItem, error) {
	var item models.GiftItem
	err := r.db.WithContext(ctx).
		Where("id = ? AND is_active = ?", itemID, true).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// GetVariant loads an active variant of an item, or nil when missing.
func (r *Repository) GetVariant(ctx context.Context, itemID, variantID uuid.UUID) (*models.GiftItemVariant, error) {
	var variant models.GiftItemVariant
	err := r.db.WithContext(ctx).
		Where("id = ? AND item_id = ? AND is_active = ?", variantID, itemID, true).
		First(&variant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &variant, nil
}

// GetAddons loads the active addons of an item matching the given ids.
func (r *Repository) GetAddons(ctx context.Context, itemID uuid.UUID, addonIDs []uuid.UUID) ([]models.GiftItemAddon, error) {
	if len(addonIDs) == 0 {
		return nil, nil
	}
	var addons []models.GiftItemAddon
	err := r.db.WithContext(ctx).
		Where("item_id = ? AND id IN ? AND is_active = ?", itemID, addonIDs, true).
		Find(&addons).Error
	if err != nil {
		return nil, err
	}
	return addons, nil
}

// GetPartner loads an active partner, or nil when missing.
func (r *Repository) GetPartner(ctx context.Context, partnerID uuid.UUID) (*models.Partner, error) {
	var partner models.Partner
	err := r.db.WithContext(ctx).
		Where("id = ? AND is_active = ?", partnerID, true).
		First(&partner).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &partner, nil
}
