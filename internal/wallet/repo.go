package wallet

import (
	"context"
	"errors"
	"time"

	"github.com/giftlane/giftlane-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository manages wallet balances and their ledger entries.
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

// Get loads a user's wallet, or nil when none exists yet.
func (r *Repository) Get(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	var wallet models.Wallet
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&wallet).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

// Debit subtracts from the balance with a non-negative guard. Zero rows
// affected means the balance no longer covers the amount.
func (r *Repository) Debit(ctx context.Context, userID uuid.UUID, amountCents int, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE wallets
		SET balance_cents = balance_cents - ?, updated_at = ?
		WHERE user_id = ? AND balance_cents >= ?`,
		amountCents, now, userID, amountCents,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Credit adds to the balance, creating the wallet row on first credit.
func (r *Repository) Credit(ctx context.Context, userID uuid.UUID, amountCents int, now time.Time) error {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE wallets
		SET balance_cents = balance_cents + ?, updated_at = ?
		WHERE user_id = ?`,
		amountCents, now, userID,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	wallet := models.Wallet{UserID: userID, BalanceCents: amountCents, UpdatedAt: now}
	return r.db.WithContext(ctx).Create(&wallet).Error
}

// AppendEntry records a ledger row behind a balance change.
func (r *Repository) AppendEntry(ctx context.Context, entry *models.WalletEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// ListEntries returns a user's ledger, newest first.
func (r *Repository) ListEntries(ctx context.Context, userID uuid.UUID, limit int) ([]models.WalletEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	var entries []models.WalletEntry
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
