package reservation

import (
	"context"
	"testing"
	"time"

	"github.com/giftlane/giftlane-backend/internal/stock"
	"github.com/giftlane/giftlane-backend/pkg/db"
	"github.com/giftlane/giftlane-backend/pkg/db/models"
	pkgerrors "github.com/giftlane/giftlane-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:reservation_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&models.StockUnit{}, &models.StockReservation{}); err != nil {
		t.Fatalf("failed to migrate sqlite: %v", err)
	}
	return conn
}

func newTestService(t *testing.T, conn *gorm.DB, now time.Time) *service {
	t.Helper()
	return &service{
		repo: NewRepository(conn),
		tx:   db.NewWithConn(conn),
		ttl:  10 * time.Minute,
		now:  func() time.Time { return now },
	}
}

func seedStock(t *testing.T, conn *gorm.DB, ref stock.UnitRef, onHand int) {
	t.Helper()
	unit := models.StockUnit{
		ItemID:    ref.ItemID,
		VariantID: ref.VariantKey,
		OnHandQty: onHand,
		UpdatedAt: time.Now(),
	}
	if err := conn.Create(&unit).Error; err != nil {
		t.Fatalf("failed to seed stock: %v", err)
	}
}

func TestReserve_LastUnitSingleWinner(t *testing.T) {
	conn := newTestDB(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(t, conn, now)
	ctx := context.Background()

	ref := stock.UnitRef{ItemID: uuid.New()}
	seedStock(t, conn, ref, 1)

	first := uuid.New()
	if err := svc.Reserve(ctx, first, ref, 1); err != nil {
		t.Fatalf("first reservation failed: %v", err)
	}

	err := svc.Reserve(ctx, uuid.New(), ref, 1)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeOutOfStock {
		t.Fatalf("expected out-of-stock error, got %v", err)
	}

	var count int64
	if err := conn.Model(&models.StockReservation{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly one reservation, got %d", count)
	}
}

func TestReserve_RefreshesOwnReservation(t *testing.T) {
	conn := newTestDB(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(t, conn, now)
	ctx := context.Background()

	ref := stock.UnitRef{ItemID: uuid.New(), VariantKey: uuid.NewString()}
	seedStock(t, conn, ref, 5)

	cartLineID := uuid.New()
	if err := svc.Reserve(ctx, cartLineID, ref, 2); err != nil {
		t.Fatalf("initial reservation failed: %v", err)
	}

	// Raising the same line to 5 must be checked against the full
	// on-hand pool, not 5 on top of the line's existing 2.
	if err := svc.Reserve(ctx, cartLineID, ref, 5); err != nil {
		t.Fatalf("refresh to full stock failed: %v", err)
	}

	res, err := NewRepository(conn).GetByCartLine(ctx, cartLineID)
	if err != nil {
		t.Fatalf("load reservation: %v", err)
	}
	if res == nil || res.Quantity != 5 {
		t.Fatalf("expected refreshed quantity 5, got %+v", res)
	}

	err = svc.Reserve(ctx, cartLineID, ref, 6)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeOutOfStock {
		t.Fatalf("expected out-of-stock when exceeding on-hand, got %v", err)
	}
}

func TestReserve_IgnoresExpiredReservations(t *testing.T) {
	conn := newTestDB(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(t, conn, now)
	ctx := context.Background()

	ref := stock.UnitRef{ItemID: uuid.New()}
	seedStock(t, conn, ref, 1)

	stale := models.StockReservation{
		ID:         uuid.New(),
		CartLineID: uuid.New(),
		ItemID:     ref.ItemID,
		VariantID:  ref.VariantKey,
		Quantity:   1,
		ReservedAt: now.Add(-20 * time.Minute),
		ExpiresAt:  now.Add(-10 * time.Minute),
	}
	if err := conn.Create(&stale).Error; err != nil {
		t.Fatalf("seed stale reservation: %v", err)
	}

	if err := svc.Reserve(ctx, uuid.New(), ref, 1); err != nil {
		t.Fatalf("expected expired reservation to free stock, got %v", err)
	}
}

func TestReserve_ValidatesInput(t *testing.T) {
	conn := newTestDB(t)
	svc := newTestService(t, conn, time.Now())
	ctx := context.Background()

	cases := []struct {
		name       string
		cartLineID uuid.UUID
		ref        stock.UnitRef
		qty        int
	}{
		{"missing cart line", uuid.Nil, stock.UnitRef{ItemID: uuid.New()}, 1},
		{"missing item", uuid.New(), stock.UnitRef{}, 1},
		{"zero quantity", uuid.New(), stock.UnitRef{ItemID: uuid.New()}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := svc.Reserve(ctx, tc.cartLineID, tc.ref, tc.qty)
			typed := pkgerrors.As(err)
			if typed == nil || typed.Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestReleaseAndSweep(t *testing.T) {
	conn := newTestDB(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(t, conn, now)
	ctx := context.Background()

	ref := stock.UnitRef{ItemID: uuid.New()}
	seedStock(t, conn, ref, 10)

	held := uuid.New()
	if err := svc.Reserve(ctx, held, ref, 3); err != nil {
		t.Fatalf("reserve failed: %v", err)
	}
	if err := svc.Release(ctx, held); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	// Releasing again is a no-op.
	if err := svc.Release(ctx, held); err != nil {
		t.Fatalf("repeat release failed: %v", err)
	}

	expired := models.StockReservation{
		ID:         uuid.New(),
		CartLineID: uuid.New(),
		ItemID:     ref.ItemID,
		VariantID:  ref.VariantKey,
		Quantity:   2,
		ReservedAt: now.Add(-30 * time.Minute),
		ExpiresAt:  now.Add(-20 * time.Minute),
	}
	active := models.StockReservation{
		ID:         uuid.New(),
		CartLineID: uuid.New(),
		ItemID:     ref.ItemID,
		VariantID:  ref.VariantKey,
		Quantity:   2,
		ReservedAt: now,
		ExpiresAt:  now.Add(5 * time.Minute),
	}
	if err := conn.Create(&expired).Error; err != nil {
		t.Fatalf("seed expired: %v", err)
	}
	if err := conn.Create(&active).Error; err != nil {
		t.Fatalf("seed active: %v", err)
	}

	swept, err := svc.SweepExpired(ctx)
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if swept != 1 {
		t.Fatalf("expected 1 swept row, got %d", swept)
	}

	var remaining int64
	if err := conn.Model(&models.StockReservation{}).Count(&remaining).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if remaining != 1 {
		t.Fatalf("expected active reservation to survive, got %d rows", remaining)
	}
}
