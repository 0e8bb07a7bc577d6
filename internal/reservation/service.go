package reservation

import (
	"context"
	"fmt"
	"time"

	"github.com/giftlane/giftlane-backend/internal/stock"
	"github.com/giftlane/giftlane-backend/pkg/config"
	pkgerrors "github.com/giftlane/giftlane-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes reservation lifecycle operations. Reservations are
// soft locks with a TTL; expiry is lazy and enforced by predicates, the
// sweeper only reclaims rows.
type Service interface {
	Reserve(ctx context.Context, cartLineID uuid.UUID, ref stock.UnitRef, qty int) error
	ReserveTx(ctx context.Context, tx *gorm.DB, cartLineID uuid.UUID, ref stock.UnitRef, qty int) error
	Release(ctx context.Context, cartLineID uuid.UUID) error
	SweepExpired(ctx context.Context) (int64, error)
}

type service struct {
	repo *Repository
	tx   txRunner
	ttl  time.Duration
	now  func() time.Time
}

// NewService builds a reservation service backed by the provided stack.
func NewService(repo *Repository, tx txRunner, cfg config.CheckoutConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("reservation repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if cfg.ReservationTTL <= 0 {
		return nil, fmt.Errorf("reservation TTL must be positive")
	}
	return &service{repo: repo, tx: tx, ttl: cfg.ReservationTTL, now: time.Now}, nil
}

// Reserve places or refreshes the soft lock for a cart line.
func (s *service) Reserve(ctx context.Context, cartLineID uuid.UUID, ref stock.UnitRef, qty int) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.ReserveTx(ctx, tx, cartLineID, ref, qty)
	})
}

// ReserveTx is Reserve bound to a caller-owned transaction so cart
// writes and their reservations commit or roll back together.
func (s *service) ReserveTx(ctx context.Context, tx *gorm.DB, cartLineID uuid.UUID, ref stock.UnitRef, qty int) error {
	if cartLineID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart line id is required")
	}
	if ref.ItemID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "item id is required")
	}
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "reservation quantity must be positive")
	}

	now := s.now()
	reserved, err := s.repo.WithTx(tx).Reserve(ctx, cartLineID, ref, qty, now, now.Add(s.ttl))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "write stock reservation")
	}
	if !reserved {
		return pkgerrors.New(pkgerrors.CodeOutOfStock, "insufficient stock for requested quantity")
	}
	return nil
}

// Release drops the reservation for a cart line. Releasing a line with
// no reservation is a no-op.
func (s *service) Release(ctx context.Context, cartLineID uuid.UUID) error {
	if cartLineID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart line id is required")
	}
	if err := s.repo.DeleteByCartLine(ctx, cartLineID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "release stock reservation")
	}
	return nil
}

// SweepExpired reclaims lapsed reservation rows. Correctness never
// depends on the sweep; every availability predicate already ignores
// expired rows.
func (s *service) SweepExpired(ctx context.Context) (int64, error) {
	swept, err := s.repo.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sweep expired reservations")
	}
	return swept, nil
}
