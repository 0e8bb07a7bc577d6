package pricing

import (
	"context"
	"testing"
	"time"

	"github.com/giftlane/giftlane-backend/internal/catalog"
	"github.com/giftlane/giftlane-backend/internal/wallet"
	"github.com/giftlane/giftlane-backend/pkg/config"
	"github.com/giftlane/giftlane-backend/pkg/db"
	"github.com/giftlane/giftlane-backend/pkg/db/models"
	"github.com/giftlane/giftlane-backend/pkg/enums"
	pkgerrors "github.com/giftlane/giftlane-backend/pkg/errors"
	"github.com/giftlane/giftlane-backend/pkg/types"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:pricing_" + uuid.NewString() + "?mode=memory&cache=shared"
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
		&models.Coupon{},
		&models.Wallet{},
	)
	if err != nil {
		t.Fatalf("failed to migrate sqlite: %v", err)
	}
	return conn
}

func testPricingConfig() config.PricingConfig {
	return config.PricingConfig{
		PlatformFeeCents:   2000,
		GSTRatePercent:     18,
		DeliveryBaseCents:  4000,
		DeliveryBaseKM:     5,
		DeliveryPerKMCents: 800,
		DeliveryMaxKM:      50,
		CashbackPercent:    2,
	}
}

type fixture struct {
	svc       Service
	conn      *gorm.DB
	partnerID uuid.UUID
	itemID    uuid.UUID
}

// The partner sits at the test origin; addresses at the same coordinates
// are zero km away and take the flat delivery fee.
const (
	originLat = 12.9716
	originLng = 77.5946
)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn := newTestDB(t)
	client := db.NewWithConn(conn)

	svc, err := NewService(
		catalog.NewRepository(conn),
		NewCouponRepository(conn),
		wallet.NewRepository(conn),
		client,
		testPricingConfig(),
	)
	if err != nil {
		t.Fatalf("pricing service: %v", err)
	}

	partnerID := uuid.New()
	partner := models.Partner{ID: partnerID, Name: "Wrapped & Co", Lat: originLat, Lng: originLng, IsActive: true}
	if err := conn.Create(&partner).Error; err != nil {
		t.Fatalf("seed partner: %v", err)
	}
	item := models.GiftItem{
		ID:                   uuid.New(),
		PartnerID:            partnerID,
		Name:                 "Engraved Tumbler",
		BasePriceCents:       20000,
		PersonalizationKind:  enums.PersonalizationKindTextOnly,
		PersonalizationCents: 5000,
		IsActive:             true,
	}
	if err := conn.Create(&item).Error; err != nil {
		t.Fatalf("seed item: %v", err)
	}
	return &fixture{svc: svc, conn: conn, partnerID: partnerID, itemID: item.ID}
}

func (f *fixture) address() *types.Address {
	return &types.Address{
		Line1:      "14 Rose Garden Street",
		City:       "Bengaluru",
		State:      "KA",
		PostalCode: "560001",
		Country:    "IN",
		Lat:        originLat,
		Lng:        originLng,
	}
}

func (f *fixture) line(qty int) models.CartLine {
	return models.CartLine{
		ID:        uuid.New(),
		PartnerID: f.partnerID,
		ItemID:    f.itemID,
		Quantity:  qty,
	}
}

func TestQuote_BaseBreakdown(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	quote, err := f.svc.Quote(ctx, Input{
		Lines:   []models.CartLine{f.line(2)},
		Address: f.address(),
	})
	if err != nil {
		t.Fatalf("quote failed: %v", err)
	}
	if quote == nil {
		t.Fatal("expected a breakdown")
	}
	if quote.SubtotalCents != 40000 {
		t.Fatalf("expected subtotal 40000, got %d", quote.SubtotalCents)
	}
	if quote.DeliveryFeeCents != 4000 {
		t.Fatalf("expected flat delivery fee 4000, got %d", quote.DeliveryFeeCents)
	}
	if quote.PlatformFeeCents != 2000 {
		t.Fatalf("expected platform fee 2000, got %d", quote.PlatformFeeCents)
	}
	want := quote.SubtotalCents + quote.PersonalizationCents + quote.DeliveryFeeCents +
		quote.PlatformFeeCents - quote.DiscountCents - quote.WalletDiscountCents
	if quote.TotalCents != want {
		t.Fatalf("total identity broken: got %d want %d", quote.TotalCents, want)
	}
	// 18% inclusive GST on 46000: 46000*18/118.
	if quote.GSTCents != 7017 {
		t.Fatalf("expected inclusive gst 7017, got %d", quote.GSTCents)
	}
}

func TestQuote_Deterministic(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	input := Input{Lines: []models.CartLine{f.line(3)}, Address: f.address()}

	first, err := f.svc.Quote(ctx, input)
	if err != nil {
		t.Fatalf("first quote failed: %v", err)
	}
	second, err := f.svc.Quote(ctx, input)
	if err != nil {
		t.Fatalf("second quote failed: %v", err)
	}
	if *first != *second {
		t.Fatalf("expected identical quotes, got %+v vs %+v", first, second)
	}
}

func TestQuote_AddresslessIsPending(t *testing.T) {
	f := newFixture(t)

	quote, err := f.svc.Quote(context.Background(), Input{Lines: []models.CartLine{f.line(1)}})
	if err != nil {
		t.Fatalf("quote failed: %v", err)
	}
	if quote != nil {
		t.Fatalf("expected pending (nil) quote without address, got %+v", quote)
	}
}

func TestQuote_PersonalizationAndAddonCharges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	addon := models.GiftItemAddon{
		ID:         uuid.New(),
		ItemID:     f.itemID,
		Name:       "Gift Wrap",
		PriceCents: 1500,
		IsActive:   true,
	}
	if err := f.conn.Create(&addon).Error; err != nil {
		t.Fatalf("seed addon: %v", err)
	}

	line := f.line(2)
	line.Personalization = types.Personalization{Enabled: true}
	line.SelectedAddons = types.SelectedAddons{{ID: addon.ID.String(), Name: addon.Name, PriceCents: 999}}

	quote, err := f.svc.Quote(ctx, Input{Lines: []models.CartLine{line}, Address: f.address()})
	if err != nil {
		t.Fatalf("quote failed: %v", err)
	}
	// Catalog prices win over the snapshot on the line: (5000 + 1500) * 2.
	if quote.PersonalizationCents != 13000 {
		t.Fatalf("expected personalization charges 13000, got %d", quote.PersonalizationCents)
	}
}

func TestQuote_CouponMinOrderValue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Subtotal will be 40000; the coupon needs 50000.
	coupon := models.Coupon{
		ID:                 uuid.New(),
		Code:               "GIFT10",
		Type:               enums.CouponTypePercentage,
		Value:              10,
		MinOrderValueCents: 50000,
		IsActive:           true,
	}
	if err := f.conn.Create(&coupon).Error; err != nil {
		t.Fatalf("seed coupon: %v", err)
	}

	code := "GIFT10"
	_, err := f.svc.Quote(ctx, Input{
		Lines:      []models.CartLine{f.line(2)},
		Address:    f.address(),
		CouponCode: &code,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeCouponInvalid {
		t.Fatalf("expected coupon invalid, got %v", err)
	}

	// The same cart without the coupon prices normally with no discount.
	quote, err := f.svc.Quote(ctx, Input{Lines: []models.CartLine{f.line(2)}, Address: f.address()})
	if err != nil {
		t.Fatalf("quote without coupon failed: %v", err)
	}
	if quote.DiscountCents != 0 {
		t.Fatalf("expected discount 0, got %d", quote.DiscountCents)
	}
}

func TestQuote_PercentageDiscountCapped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	coupon := models.Coupon{
		ID:               uuid.New(),
		Code:             "BIG20",
		Type:             enums.CouponTypePercentage,
		Value:            20,
		MaxDiscountCents: 5000,
		IsActive:         true,
	}
	if err := f.conn.Create(&coupon).Error; err != nil {
		t.Fatalf("seed coupon: %v", err)
	}

	code := "BIG20"
	quote, err := f.svc.Quote(ctx, Input{
		Lines:      []models.CartLine{f.line(2)},
		Address:    f.address(),
		CouponCode: &code,
	})
	if err != nil {
		t.Fatalf("quote failed: %v", err)
	}
	// 20% of 40000 is 8000, capped at 5000.
	if quote.DiscountCents != 5000 {
		t.Fatalf("expected capped discount 5000, got %d", quote.DiscountCents)
	}
}

func TestQuote_ExpiredCoupon(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	past := time.Now().Add(-24 * time.Hour)
	coupon := models.Coupon{
		ID:        uuid.New(),
		Code:      "OLD",
		Type:      enums.CouponTypeFixed,
		Value:     1000,
		ExpiresAt: &past,
		IsActive:  true,
	}
	if err := f.conn.Create(&coupon).Error; err != nil {
		t.Fatalf("seed coupon: %v", err)
	}

	code := "OLD"
	_, err := f.svc.Quote(ctx, Input{
		Lines:      []models.CartLine{f.line(1)},
		Address:    f.address(),
		CouponCode: &code,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeCouponInvalid {
		t.Fatalf("expected coupon invalid for expired code, got %v", err)
	}
}

func TestQuote_WalletCoversRemainder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	userID := uuid.New()
	w := models.Wallet{UserID: userID, BalanceCents: 10000}
	if err := f.conn.Create(&w).Error; err != nil {
		t.Fatalf("seed wallet: %v", err)
	}

	quote, err := f.svc.Quote(ctx, Input{
		Lines:     []models.CartLine{f.line(2)},
		Address:   f.address(),
		UseWallet: true,
		UserID:    &userID,
	})
	if err != nil {
		t.Fatalf("quote failed: %v", err)
	}
	if quote.WalletDiscountCents != 10000 {
		t.Fatalf("expected wallet discount 10000, got %d", quote.WalletDiscountCents)
	}
	if quote.TotalCents != 36000 {
		t.Fatalf("expected total 36000, got %d", quote.TotalCents)
	}
}

func TestQuote_DistanceTieredDeliveryFee(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Roughly 0.09 degrees of latitude is ~10 km.
	addr := f.address()
	addr.Lat = originLat + 0.09

	quote, err := f.svc.Quote(ctx, Input{Lines: []models.CartLine{f.line(1)}, Address: addr})
	if err != nil {
		t.Fatalf("quote failed: %v", err)
	}
	if quote.DeliveryFeeCents <= 4000 {
		t.Fatalf("expected per-km surcharge beyond base radius, got %d", quote.DeliveryFeeCents)
	}

	// Far beyond the 50 km service radius.
	addr.Lat = originLat + 1.0
	_, err = f.svc.Quote(ctx, Input{Lines: []models.CartLine{f.line(1)}, Address: addr})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected out-of-area rejection, got %v", err)
	}
}
