package pricing

import (
	"context"
	"errors"
	"strings"

	"github.com/giftlane/giftlane-backend/pkg/db/models"
	"gorm.io/gorm"
)

// CouponRepository loads and consumes coupon rows.
type CouponRepository struct {
	db *gorm.DB
}

// NewCouponRepository binds the repository to the provided DB handle.
func NewCouponRepository(db *gorm.DB) *CouponRepository {
	return &CouponRepository{db: db}
}

// WithTx scopes the repository to the provided transaction.
func (r *CouponRepository) WithTx(tx *gorm.DB) *CouponRepository {
	if tx == nil {
		return r
	}
	return &CouponRepository{db: tx}
}

// GetByCode loads a coupon by its case-insensitive code, or nil.
func (r *CouponRepository) GetByCode(ctx context.Context, code string) (*models.Coupon, error) {
	var coupon models.Coupon
	err := r.db.WithContext(ctx).
		Where("code = ?", strings.ToUpper(strings.TrimSpace(code))).
		First(&coupon).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}

// ConsumeUsage bumps used_count while re-checking the usage limit. Zero
// rows affected means the limit was hit by a competing checkout.
func (r *CouponRepository) ConsumeUsage(ctx context.Context, code string) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE coupons
		SET used_count = used_count + 1
		WHERE code = ? AND is_active = ? AND (usage_limit = 0 OR used_count < usage_limit)`,
		strings.ToUpper(strings.TrimSpace(code)), true,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
