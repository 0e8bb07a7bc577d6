package orders

import (
	"context"
	"errors"
	"time"

	"github.com/giftlane/giftlane-backend/pkg/db/models"
	"github.com/giftlane/giftlane-backend/pkg/enums"
	"github.com/giftlane/giftlane-backend/pkg/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository manages order rows and their children.
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

// Create inserts the order and its items.
func (r *Repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

// GetByID loads an order with its items, or nil when missing.
func (r *Repository) GetByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ?", orderID).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ListByUser returns a user's orders, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Order, error) {
	if limit <= 0 {
		limit = 20
	}
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// ListByPartner returns a partner's orders, newest first.
func (r *Repository) ListByPartner(ctx context.Context, partnerID uuid.UUID, limit int) ([]models.Order, error) {
	if limit <= 0 {
		limit = 20
	}
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("partner_id = ?", partnerID).
		Order("created_at DESC").
		Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// UpdateStatus writes the new status only when the row still carries the
// expected one. Zero rows affected means a competing writer got there
// first and the caller must re-read and re-validate.
func (r *Repository) UpdateStatus(ctx context.Context, orderID uuid.UUID, expected, next enums.OrderStatus, extra map[string]interface{}) (bool, error) {
	updates := map[string]interface{}{
		"status":     next,
		"updated_at": time.Now(),
	}
	for column, value := range extra {
		updates[column] = value
	}
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, expected).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// UpdateFields patches order columns without touching the status.
func (r *Repository) UpdateFields(ctx context.Context, orderID uuid.UUID, updates map[string]interface{}) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(updates).Error
}

// IncrementChangeRequests bumps the revision counter only while it is
// still under the cap; zero rows affected means the cap was reached.
func (r *Repository) IncrementChangeRequests(ctx context.Context, orderID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE orders
		SET change_request_count = change_request_count + 1, updated_at = ?
		WHERE id = ? AND change_request_count < max_change_requests`,
		time.Now(), orderID,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// FindDesignDeadlineLapsed returns personalized orders whose preview SLA
// passed before the cutoff and that have not been nudged yet. Orders
// already in or past production are excluded.
func (r *Repository) FindDesignDeadlineLapsed(ctx context.Context, cutoff time.Time) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Where("has_personalization = ?", true).
		Where("design_deadline_at IS NOT NULL AND design_deadline_at < ?", cutoff).
		Where("deadline_nudged_at IS NULL").
		Where("status IN ?", []enums.OrderStatus{
			enums.OrderStatusConfirmed,
			enums.OrderStatusDetailsReceived,
			enums.OrderStatusRevisionRequested,
		}).
		Order("design_deadline_at ASC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// MarkDeadlineNudged stamps the order so the nudge is sent once.
func (r *Repository) MarkDeadlineNudged(ctx context.Context, orderID uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Update("deadline_nudged_at", at).Error
}

// GetItem loads one order item, or nil when missing.
func (r *Repository) GetItem(ctx context.Context, itemID uuid.UUID) (*models.OrderItem, error) {
	var item models.OrderItem
	err := r.db.WithContext(ctx).Where("id = ?", itemID).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// UpdateItemStatus sets an item's status.
func (r *Repository) UpdateItemStatus(ctx context.Context, itemID uuid.UUID, status enums.OrderItemStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.OrderItem{}).
		Where("id = ?", itemID).
		Update("status", status).Error
}

// AppendTimeline records an immutable timeline event.
func (r *Repository) AppendTimeline(ctx context.Context, orderID uuid.UUID, title, description string, metadata types.JSONMap) error {
	event := models.TimelineEvent{
		ID:          uuid.New(),
		OrderID:     orderID,
		Title:       title,
		Description: description,
		Metadata:    metadata,
		CreatedAt:   time.Now(),
	}
	return r.db.WithContext(ctx).Create(&event).Error
}

// ListTimeline returns an order's events, oldest first.
func (r *Repository) ListTimeline(ctx context.Context, orderID uuid.UUID) ([]models.TimelineEvent, error) {
	var events []models.TimelineEvent
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC, id ASC").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

// CreatePreview appends a preview submission row.
func (r *Repository) CreatePreview(ctx context.Context, preview *models.PreviewSubmission) error {
	return r.db.WithContext(ctx).Create(preview).Error
}

// LatestPreview loads the newest submission for an item, or nil.
func (r *Repository) LatestPreview(ctx context.Context, orderItemID uuid.UUID) (*models.PreviewSubmission, error) {
	var preview models.PreviewSubmission
	err := r.db.WithContext(ctx).
		Where("order_item_id = ?", orderItemID).
		Order("submitted_at DESC, id DESC").
		First(&preview).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &preview, nil
}

// DecidePreview stamps the customer's decision on a pending submission.
func (r *Repository) DecidePreview(ctx context.Context, previewID uuid.UUID, status enums.PreviewStatus, feedback *string, decidedAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.PreviewSubmission{}).
		Where("id = ? AND status = ?", previewID, enums.PreviewStatusPending).
		Updates(map[string]interface{}{
			"status":            status,
			"customer_feedback": feedback,
			"decided_at":        decidedAt,
		}).Error
}
