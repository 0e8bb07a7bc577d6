package stock

import (
	"context"
	"testing"
	"time"

	"github.com/giftlane/giftlane-backend/pkg/db"
	"github.com/giftlane/giftlane-backend/pkg/db/models"
	pkgerrors "github.com/giftlane/giftlane-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:stock_" + uuid.NewString() + "?mode=memory&cache=shared"
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
		now:  func() time.Time { return now },
	}
}

func TestAvailableStock_SubtractsActiveReservations(t *testing.T) {
	conn := newTestDB(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(t, conn, now)
	ctx := context.Background()

	ref := UnitRef{ItemID: uuid.New()}
	if err := svc.SetOnHand(ctx, ref, 5); err != nil {
		t.Fatalf("set on-hand failed: %v", err)
	}

	active := models.StockReservation{
		ID:         uuid.New(),
		CartLineID: uuid.New(),
		ItemID:     ref.ItemID,
		VariantID:  ref.VariantKey,
		Quantity:   2,
		ReservedAt: now,
		ExpiresAt:  now.Add(10 * time.Minute),
	}
	expired := models.StockReservation{
		ID:         uuid.New(),
		CartLineID: uuid.New(),
		ItemID:     ref.ItemID,
		VariantID:  ref.VariantKey,
		Quantity:   4,
		ReservedAt: now.Add(-30 * time.Minute),
		ExpiresAt:  now.Add(-20 * time.Minute),
	}
	if err := conn.Create(&active).Error; err != nil {
		t.Fatalf("seed active reservation: %v", err)
	}
	if err := conn.Create(&expired).Error; err != nil {
		t.Fatalf("seed expired reservation: %v", err)
	}

	available, err := svc.AvailableStock(ctx, ref)
	if err != nil {
		t.Fatalf("available stock failed: %v", err)
	}
	if available != 3 {
		t.Fatalf("expected 3 available, got %d", available)
	}
}

func TestAvailableStock_UnknownUnitIsZero(t *testing.T) {
	conn := newTestDB(t)
	svc := newTestService(t, conn, time.Now())

	available, err := svc.AvailableStock(context.Background(), UnitRef{ItemID: uuid.New()})
	if err != nil {
		t.Fatalf("available stock failed: %v", err)
	}
	if available != 0 {
		t.Fatalf("expected 0 for unknown unit, got %d", available)
	}
}

func TestSetOnHand_Validates(t *testing.T) {
	conn := newTestDB(t)
	svc := newTestService(t, conn, time.Now())
	ctx := context.Background()

	err := svc.SetOnHand(ctx, UnitRef{}, 5)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for missing item id, got %v", err)
	}

	err = svc.SetOnHand(ctx, UnitRef{ItemID: uuid.New()}, -1)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for negative quantity, got %v", err)
	}
}

func TestSetOnHand_Upserts(t *testing.T) {
	conn := newTestDB(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(t, conn, now)
	ctx := context.Background()

	ref := UnitRef{ItemID: uuid.New(), VariantKey: uuid.NewString()}
	if err := svc.SetOnHand(ctx, ref, 4); err != nil {
		t.Fatalf("initial set failed: %v", err)
	}
	if err := svc.SetOnHand(ctx, ref, 9); err != nil {
		t.Fatalf("replacing set failed: %v", err)
	}

	unit, err := NewRepository(conn).GetUnit(ctx, ref)
	if err != nil {
		t.Fatalf("load unit: %v", err)
	}
	if unit == nil || unit.OnHandQty != 9 {
		t.Fatalf("expected on-hand 9, got %+v", unit)
	}
}

func TestDecrementOnHand_GuardsNegative(t *testing.T) {
	conn := newTestDB(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := NewRepository(conn)
	ctx := context.Background()

	ref := UnitRef{ItemID: uuid.New()}
	if err := repo.UpsertOnHand(ctx, ref, 3, now); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	ok, err := repo.DecrementOnHand(ctx, ref, 2, now)
	if err != nil || !ok {
		t.Fatalf("expected decrement to succeed, ok=%v err=%v", ok, err)
	}
	ok, err = repo.DecrementOnHand(ctx, ref, 2, now)
	if err != nil {
		t.Fatalf("decrement errored: %v", err)
	}
	if ok {
		t.Fatal("expected decrement past zero to be rejected")
	}

	unit, err := repo.GetUnit(ctx, ref)
	if err != nil {
		t.Fatalf("load unit: %v", err)
	}
	if unit.OnHandQty != 1 {
		t.Fatalf("expected 1 remaining, got %d", unit.OnHandQty)
	}
}
