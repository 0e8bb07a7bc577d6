package stock

import (
	"context"
	"fmt"
	"time"

	pkgerrors "github.com/giftlane/giftlane-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes stock ledger operations.
type Service interface {
	AvailableStock(ctx context.Context, ref UnitRef) (int, error)
	SetOnHand(ctx context.Context, ref UnitRef, qty int) error
}

type service struct {
	repo *Repository
	tx   txRunner
	now  func() time.Time
}

// NewService builds a stock service backed by the provided stack.
func NewService(repo *Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("stock repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx, now: time.Now}, nil
}

// AvailableStock reports how many units can still be reserved right now.
// Expired reservations are ignored by the predicate, not deleted.
func (s *service) AvailableStock(ctx context.Context, ref UnitRef) (int, error) {
	if ref.ItemID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "item id is required")
	}
	available, err := s.repo.Available(ctx, ref, s.now(), nil)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "compute available stock")
	}
	return available, nil
}

// SetOnHand replaces the on-hand quantity for a unit.
func (s *service) SetOnHand(ctx context.Context, ref UnitRef, qty int) error {
	if ref.ItemID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "item id is required")
	}
	if qty < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "on-hand quantity must be non-negative")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).UpsertOnHand(ctx, ref, qty, s.now()); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "upsert on-hand stock")
		}
		return nil
	})
}
