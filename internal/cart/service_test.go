package cart

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/giftlane/giftlane-backend/internal/catalog"
	"github.com/giftlane/giftlane-backend/internal/reservation"
	"github.com/giftlane/giftlane-backend/pkg/config"
	"github.com/giftlane/giftlane-backend/pkg/db"
	"github.com/giftlane/giftlane-backend/pkg/db/models"
	"github.com/giftlane/giftlane-backend/pkg/enums"
	pkgerrors "github.com/giftlane/giftlane-backend/pkg/errors"
	"github.com/giftlane/giftlane-backend/pkg/logger"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:cart_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	err = conn.AutoMigrate(
		&models.Partner{},
		&models.GiftItem{},
		&models.GiftItemVariant{},
		&models.GiftItemAddon{},
		&models.StockUnit{},
		&models.StockReservation{},
		&models.CartLine{},
	)
	if err != nil {
		t.Fatalf("failed to migrate sqlite: %v", err)
	}
	return conn
}

type fixture struct {
	svc       Service
	conn      *gorm.DB
	partnerID uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn := newTestDB(t)
	client := db.NewWithConn(conn)
	cfg := config.CheckoutConfig{ReservationTTL: 10 * time.Minute, MaxLineQuantity: 10}

	resSvc, err := reservation.NewService(reservation.NewRepository(conn), client, cfg)
	if err != nil {
		t.Fatalf("reservation service: %v", err)
	}
	log := logger.New(logger.Options{ServiceName: "cart-test", Output: io.Discard})
	svc, err := NewService(NewRepository(conn), client, catalog.NewRepository(conn), resSvc, cfg, log)
	if err != nil {
		t.Fatalf("cart service: %v", err)
	}

	partnerID := uuid.New()
	partner := models.Partner{ID: partnerID, Name: "Wrapped & Co", IsActive: true}
	if err := conn.Create(&partner).Error; err != nil {
		t.Fatalf("seed partner: %v", err)
	}
	return &fixture{svc: svc, conn: conn, partnerID: partnerID}
}

func (f *fixture) seedItem(t *testing.T, onHand int) uuid.UUID {
	t.Helper()
	item := models.GiftItem{
		ID:                   uuid.New(),
		PartnerID:            f.partnerID,
		Name:                 "Engraved Tumbler",
		BasePriceCents:       45000,
		PersonalizationKind:  enums.PersonalizationKindTextOnly,
		PersonalizationCents: 5000,
		TextLimit:            40,
		IsActive:             true,
	}
	if err := f.conn.Create(&item).Error; err != nil {
		t.Fatalf("seed item: %v", err)
	}
	unit := models.StockUnit{ItemID: item.ID, OnHandQty: onHand, UpdatedAt: time.Now()}
	if err := f.conn.Create(&unit).Error; err != nil {
		t.Fatalf("seed stock: %v", err)
	}
	return item.ID
}

func (f *fixture) seedItemForPartner(t *testing.T, partnerID uuid.UUID, onHand int) uuid.UUID {
	t.Helper()
	item := models.GiftItem{
		ID:             uuid.New(),
		PartnerID:      partnerID,
		Name:           "Photo Frame",
		BasePriceCents: 30000,
		IsActive:       true,
	}
	if err := f.conn.Create(&item).Error; err != nil {
		t.Fatalf("seed item: %v", err)
	}
	unit := models.StockUnit{ItemID: item.ID, OnHandQty: onHand, UpdatedAt: time.Now()}
	if err := f.conn.Create(&unit).Error; err != nil {
		t.Fatalf("seed stock: %v", err)
	}
	return item.ID
}

func TestAddLine_DedupIncrementsAndCaps(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := SessionOwner("guest-session-1")
	itemID := f.seedItem(t, 50)

	first, err := f.svc.AddLine(ctx, owner, AddLineInput{ItemID: itemID, Quantity: 6})
	if err != nil {
		t.Fatalf("first add failed: %v", err)
	}
	second, err := f.svc.AddLine(ctx, owner, AddLineInput{ItemID: itemID, Quantity: 6})
	if err != nil {
		t.Fatalf("second add failed: %v", err)
	}
	if second.ID != first.ID {
		t.Fatal("expected duplicate add to coalesce into the existing line")
	}
	if second.Quantity != 10 {
		t.Fatalf("expected quantity capped at 10, got %d", second.Quantity)
	}

	var count int64
	if err := f.conn.Model(&models.CartLine{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 line, got %d", count)
	}

	res, err := reservation.NewRepository(f.conn).GetByCartLine(ctx, first.ID)
	if err != nil || res == nil {
		t.Fatalf("expected reservation, got %v err %v", res, err)
	}
	if res.Quantity != 10 {
		t.Fatalf("expected reservation refreshed to 10, got %d", res.Quantity)
	}
}

func TestAddLine_QuantityElevenClampsToTen(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := SessionOwner("guest-session-2")
	itemID := f.seedItem(t, 50)

	line, err := f.svc.AddLine(ctx, owner, AddLineInput{ItemID: itemID, Quantity: 11})
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if line.Quantity != 10 {
		t.Fatalf("expected clamp to 10, got %d", line.Quantity)
	}
}

func TestAddLine_PartnerMismatchSignalsCartClear(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := SessionOwner("guest-session-3")
	itemID := f.seedItem(t, 20)

	otherPartner := models.Partner{ID: uuid.New(), Name: "Bloom Crafts", IsActive: true}
	if err := f.conn.Create(&otherPartner).Error; err != nil {
		t.Fatalf("seed partner: %v", err)
	}
	otherItem := f.seedItemForPartner(t, otherPartner.ID, 20)

	if _, err := f.svc.AddLine(ctx, owner, AddLineInput{ItemID: itemID, Quantity: 1}); err != nil {
		t.Fatalf("first add failed: %v", err)
	}
	_, err := f.svc.AddLine(ctx, owner, AddLineInput{ItemID: otherItem, Quantity: 1})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodePartnerMismatch {
		t.Fatalf("expected partner mismatch, got %v", err)
	}
	details, ok := typed.Details().(map[string]any)
	if !ok || details["requires_cart_clear"] != true {
		t.Fatalf("expected requires_cart_clear detail, got %v", typed.Details())
	}
}

func TestAddLine_VariantRequired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := SessionOwner("guest-session-4")

	item := models.GiftItem{
		ID:             uuid.New(),
		PartnerID:      f.partnerID,
		Name:           "Mug",
		BasePriceCents: 20000,
		HasVariants:    true,
		IsActive:       true,
	}
	if err := f.conn.Create(&item).Error; err != nil {
		t.Fatalf("seed item: %v", err)
	}

	_, err := f.svc.AddLine(ctx, owner, AddLineInput{ItemID: item.ID, Quantity: 1})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeVariantRequired {
		t.Fatalf("expected variant required, got %v", err)
	}
}

func TestAddLine_OutOfStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := SessionOwner("guest-session-5")
	itemID := f.seedItem(t, 2)

	_, err := f.svc.AddLine(ctx, owner, AddLineInput{ItemID: itemID, Quantity: 3})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeOutOfStock {
		t.Fatalf("expected out of stock, got %v", err)
	}

	var count int64
	if err := f.conn.Model(&models.CartLine{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no line created, got %d", count)
	}
}

func TestUpdateLineQuantity_ZeroDeletesLineAndReservation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := SessionOwner("guest-session-6")
	itemID := f.seedItem(t, 20)

	line, err := f.svc.AddLine(ctx, owner, AddLineInput{ItemID: itemID, Quantity: 2})
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}

	updated, err := f.svc.UpdateLineQuantity(ctx, owner, line.ID, 0)
	if err != nil {
		t.Fatalf("update to zero failed: %v", err)
	}
	if updated != nil {
		t.Fatal("expected nil line after deletion")
	}

	var lines int64
	if err := f.conn.Model(&models.CartLine{}).Count(&lines).Error; err != nil {
		t.Fatalf("count lines: %v", err)
	}
	var reservations int64
	if err := f.conn.Model(&models.StockReservation{}).Count(&reservations).Error; err != nil {
		t.Fatalf("count reservations: %v", err)
	}
	if lines != 0 || reservations != 0 {
		t.Fatalf("expected empty cart and no reservations, got %d/%d", lines, reservations)
	}
}

func TestUpdateLineQuantity_DeltaCheckedAgainstOwnHold(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := SessionOwner("guest-session-7")
	itemID := f.seedItem(t, 5)

	line, err := f.svc.AddLine(ctx, owner, AddLineInput{ItemID: itemID, Quantity: 4})
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}

	// Stock 5, line holds 4. Raising to 5 needs only the delta of 1.
	updated, err := f.svc.UpdateLineQuantity(ctx, owner, line.ID, 5)
	if err != nil {
		t.Fatalf("raise to 5 failed: %v", err)
	}
	if updated.Quantity != 5 {
		t.Fatalf("expected quantity 5, got %d", updated.Quantity)
	}

	_, err = f.svc.UpdateLineQuantity(ctx, owner, line.ID, 6)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeOutOfStock {
		t.Fatalf("expected out of stock at 6, got %v", err)
	}
}

func TestMerge_IsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sessionID := "guest-session-8"
	userID := uuid.New()
	itemID := f.seedItem(t, 50)
	otherItem := f.seedItemForPartner(t, f.partnerID, 50)

	guest := SessionOwner(sessionID)
	user := UserOwner(userID)

	// User already has the same tumbler line; guest adds the same item
	// plus a frame only the guest holds.
	if _, err := f.svc.AddLine(ctx, user, AddLineInput{ItemID: itemID, Quantity: 7}); err != nil {
		t.Fatalf("seed user line: %v", err)
	}
	if _, err := f.svc.AddLine(ctx, guest, AddLineInput{ItemID: itemID, Quantity: 6}); err != nil {
		t.Fatalf("seed guest duplicate: %v", err)
	}
	if _, err := f.svc.AddLine(ctx, guest, AddLineInput{ItemID: otherItem, Quantity: 2}); err != nil {
		t.Fatalf("seed guest line: %v", err)
	}

	if err := f.svc.Merge(ctx, sessionID, userID); err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	if err := f.svc.Merge(ctx, sessionID, userID); err != nil {
		t.Fatalf("repeat merge failed: %v", err)
	}

	userLines, err := f.svc.GetCart(ctx, user)
	if err != nil {
		t.Fatalf("get cart: %v", err)
	}
	if len(userLines) != 2 {
		t.Fatalf("expected 2 user lines after merge, got %d", len(userLines))
	}
	byItem := map[uuid.UUID]int{}
	for _, line := range userLines {
		byItem[line.ItemID] = line.Quantity
	}
	if byItem[itemID] != 10 {
		t.Fatalf("expected coalesced quantity capped at 10, got %d", byItem[itemID])
	}
	if byItem[otherItem] != 2 {
		t.Fatalf("expected re-owned guest line quantity 2, got %d", byItem[otherItem])
	}

	guestLines, err := f.svc.GetCart(ctx, SessionOwner(sessionID))
	if err != nil {
		t.Fatalf("get guest cart: %v", err)
	}
	if len(guestLines) != 0 {
		t.Fatalf("expected empty guest cart, got %d lines", len(guestLines))
	}
}

func TestClear_ReleasesEverything(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := SessionOwner("guest-session-9")
	itemID := f.seedItem(t, 50)
	otherItem := f.seedItemForPartner(t, f.partnerID, 50)

	if _, err := f.svc.AddLine(ctx, owner, AddLineInput{ItemID: itemID, Quantity: 2}); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if _, err := f.svc.AddLine(ctx, owner, AddLineInput{ItemID: otherItem, Quantity: 3}); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	if err := f.svc.Clear(ctx, owner); err != nil {
		t.Fatalf("clear failed: %v", err)
	}

	var lines, reservations int64
	if err := f.conn.Model(&models.CartLine{}).Count(&lines).Error; err != nil {
		t.Fatalf("count lines: %v", err)
	}
	if err := f.conn.Model(&models.StockReservation{}).Count(&reservations).Error; err != nil {
		t.Fatalf("count reservations: %v", err)
	}
	if lines != 0 || reservations != 0 {
		t.Fatalf("expected empty state, got %d lines %d reservations", lines, reservations)
	}
}
