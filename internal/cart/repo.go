package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/giftlane/giftlane-backend/pkg/db/models"
	"github.com/giftlane/giftlane-backend/pkg/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Owner identifies who holds a cart: an authenticated user or an
// anonymous guest session, never both.
type Owner struct {
	UserID    *uuid.UUID
	SessionID *string
}

// UserOwner builds an Owner for an authenticated user.
func UserOwner(userID uuid.UUID) Owner {
	return Owner{UserID: &userID}
}

// SessionOwner builds an Owner for a guest session.
func SessionOwner(sessionID string) Owner {
	return Owner{SessionID: &sessionID}
}

// Validate enforces the xor ownership rule.
func (o Owner) Validate() error {
	hasUser := o.UserID != nil && *o.UserID != uuid.Nil
	hasSession := o.SessionID != nil && *o.SessionID != ""
	if hasUser == hasSession {
		return fmt.Errorf("cart owner must be exactly one of user id or session id")
	}
	return nil
}

func (o Owner) scope(q *gorm.DB) *gorm.DB {
	if o.UserID != nil {
		return q.Where("user_id = ?", *o.UserID)
	}
	return q.Where("session_id = ?", *o.SessionID)
}

// DedupKey builds the line identity used to coalesce duplicate adds.
// Add-on order must not matter, so the add-on ids are sorted.
func DedupKey(itemID uuid.UUID, variantID *uuid.UUID, personalization types.Personalization, addons types.SelectedAddons) string {
	variant := ""
	if variantID != nil {
		variant = variantID.String()
	}
	return strings.Join([]string{
		itemID.String(),
		variant,
		personalization.Key(),
		addons.SortedIDsKey(),
	}, "|")
}

// Repository manages persistent cart lines.
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

// ListByOwner returns the owner's lines, oldest first.
func (r *Repository) ListByOwner(ctx context.Context, owner Owner) ([]models.CartLine, error) {
	var lines []models.CartLine
	err := owner.scope(r.db.WithContext(ctx)).
		Order("created_at ASC, id ASC").
		Find(&lines).Error
	if err != nil {
		return nil, err
	}
	return lines, nil
}

// GetByID loads a line owned by the given owner, or nil when missing.
func (r *Repository) GetByID(ctx context.Context, owner Owner, lineID uuid.UUID) (*models.CartLine, error) {
	var line models.CartLine
	err := owner.scope(r.db.WithContext(ctx)).
		Where("id = ?", lineID).
		First(&line).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &line, nil
}

// FindByDedupKey loads the owner's line matching the dedup key, or nil.
func (r *Repository) FindByDedupKey(ctx context.Context, owner Owner, dedupKey string) (*models.CartLine, error) {
	var line models.CartLine
	err := owner.scope(r.db.WithContext(ctx)).
		Where("dedup_key = ?", dedupKey).
		First(&line).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &line, nil
}

// Create inserts a new line.
func (r *Repository) Create(ctx context.Context, line *models.CartLine) error {
	return r.db.WithContext(ctx).Create(line).Error
}

// Save persists the full line state.
func (r *Repository) Save(ctx context.Context, line *models.CartLine) error {
	return r.db.WithContext(ctx).Save(line).Error
}

// UpdateQuantity sets a line's quantity.
func (r *Repository) UpdateQuantity(ctx context.Context, lineID uuid.UUID, qty int) error {
	return r.db.WithContext(ctx).
		Model(&models.CartLine{}).
		Where("id = ?", lineID).
		Update("quantity", qty).Error
}

// Delete removes a line.
func (r *Repository) Delete(ctx context.Context, lineID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", lineID).
		Delete(&models.CartLine{}).Error
}

// DeleteByOwner removes all of the owner's lines and returns their ids
// so the caller can release the matching reservations.
func (r *Repository) DeleteByOwner(ctx context.Context, owner Owner) ([]uuid.UUID, error) {
	lines, err := r.ListByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ID)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	err = r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Delete(&models.CartLine{}).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// ReassignToUser re-owns a guest line to an authenticated user.
func (r *Repository) ReassignToUser(ctx context.Context, lineID, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.CartLine{}).
		Where("id = ?", lineID).
		Updates(map[string]interface{}{
			"user_id":    userID,
			"session_id": nil,
		}).Error
}
