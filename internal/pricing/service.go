package pricing

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/giftlane/giftlane-backend/internal/catalog"
	"github.com/giftlane/giftlane-backend/internal/wallet"
	"github.com/giftlane/giftlane-backend/pkg/config"
	"github.com/giftlane/giftlane-backend/pkg/db/models"
	"github.com/giftlane/giftlane-backend/pkg/enums"
	pkgerrors "github.com/giftlane/giftlane-backend/pkg/errors"
	"github.com/giftlane/giftlane-backend/pkg/geo"
	"github.com/giftlane/giftlane-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Input carries everything a quote depends on. Lines come straight from
// the cart; their snapshot prices are ignored in favor of catalog rows
// read inside the quote transaction.
type Input struct {
	Lines      []models.CartLine
	Address    *types.Address
	CouponCode *string
	UseWallet  bool
	UserID     *uuid.UUID
}

// Breakdown is the authoritative price of a cart. All amounts are cents;
// GST is already inside the charge fields and surfaced only for display.
type Breakdown struct {
	SubtotalCents        int     `json:"subtotal_cents"`
	PersonalizationCents int     `json:"personalization_cents"`
	DeliveryFeeCents     int     `json:"delivery_fee_cents"`
	PlatformFeeCents     int     `json:"platform_fee_cents"`
	GSTCents             int     `json:"gst_cents"`
	DiscountCents        int     `json:"discount_cents"`
	WalletDiscountCents  int     `json:"wallet_discount_cents"`
	TotalCents           int     `json:"total_cents"`
	CouponCode           string  `json:"coupon_code,omitempty"`
	DistanceKM           float64 `json:"distance_km,omitempty"`
}

// Service computes authoritative quotes.
type Service interface {
	// Quote prices the cart inside one transaction. A nil breakdown with
	// a nil error means the quote is pending an address.
	Quote(ctx context.Context, input Input) (*Breakdown, error)
	// QuoteTx is Quote bound to a caller-owned transaction, for callers
	// that need the breakdown and their own reads from the same snapshot.
	QuoteTx(ctx context.Context, tx *gorm.DB, input Input) (*Breakdown, error)
}

type service struct {
	catalog *catalog.Repository
	coupons *CouponRepository
	wallets *wallet.Repository
	tx      txRunner
	cfg     config.PricingConfig
	now     func() time.Time
}

// NewService builds a pricing service backed by the provided stack.
func NewService(catalogRepo *catalog.Repository, coupons *CouponRepository, wallets *wallet.Repository, tx txRunner, cfg config.PricingConfig) (Service, error) {
	if catalogRepo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if coupons == nil {
		return nil, fmt.Errorf("coupon repository required")
	}
	if wallets == nil {
		return nil, fmt.Errorf("wallet repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		catalog: catalogRepo,
		coupons: coupons,
		wallets: wallets,
		tx:      tx,
		cfg:     cfg,
		now:     time.Now,
	}, nil
}

func (s *service) Quote(ctx context.Context, input Input) (*Breakdown, error) {
	var breakdown *Breakdown
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		breakdown, err = s.QuoteTx(ctx, tx, input)
		return err
	})
	if err != nil {
		return nil, err
	}
	return breakdown, nil
}

func (s *service) QuoteTx(ctx context.Context, tx *gorm.DB, input Input) (*Breakdown, error) {
	if len(input.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	if input.Address == nil {
		// Pending quote: no address means no delivery math, and a wrong
		// number is worse than none.
		return nil, nil
	}
	if err := input.Address.Validate(); err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
	}

	catalogRepo := s.catalog.WithTx(tx)

	subtotal := 0
	personalization := 0
	for i := range input.Lines {
		line := &input.Lines[i]
		item, err := catalogRepo.GetItem(ctx, line.ItemID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodePricingUnavailable, err, "load gift item")
		}
		if item == nil {
			return nil, pkgerrors.New(pkgerrors.CodePricingUnavailable, "a cart item is no longer available")
		}

		unitPrice := item.BasePriceCents
		if line.VariantID != nil {
			variant, err := catalogRepo.GetVariant(ctx, line.ItemID, *line.VariantID)
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodePricingUnavailable, err, "load item variant")
			}
			if variant == nil {
				return nil, pkgerrors.New(pkgerrors.CodePricingUnavailable, "a selected variant is no longer available")
			}
			unitPrice = variant.PriceCents
		}
		subtotal += unitPrice * line.Quantity

		perUnit := 0
		if line.Personalization.Enabled {
			perUnit += item.PersonalizationCents
		}
		if len(line.SelectedAddons) > 0 {
			addonIDs := make([]uuid.UUID, 0, len(line.SelectedAddons))
			for _, addon := range line.SelectedAddons {
				id, err := uuid.Parse(addon.ID)
				if err != nil {
					return nil, pkgerrors.New(pkgerrors.CodePricingUnavailable, "a selected add-on reference is invalid")
				}
				addonIDs = append(addonIDs, id)
			}
			rows, err := catalogRepo.GetAddons(ctx, line.ItemID, addonIDs)
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodePricingUnavailable, err, "load item add-ons")
			}
			if len(rows) != len(addonIDs) {
				return nil, pkgerrors.New(pkgerrors.CodePricingUnavailable, "a selected add-on is no longer available")
			}
			for _, row := range rows {
				perUnit += row.PriceCents
			}
		}
		personalization += perUnit * line.Quantity
	}

	partner, err := catalogRepo.GetPartner(ctx, input.Lines[0].PartnerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePricingUnavailable, err, "load partner")
	}
	if partner == nil {
		return nil, pkgerrors.New(pkgerrors.CodePricingUnavailable, "partner is no longer available")
	}

	distanceKM := geo.DistanceKM(
		geo.Point{Lat: partner.Lat, Lng: partner.Lng},
		geo.Point{Lat: input.Address.Lat, Lng: input.Address.Lng},
	)
	deliveryFee, err := s.deliveryFee(distanceKM)
	if err != nil {
		return nil, err
	}

	discount := 0
	appliedCoupon := ""
	if input.CouponCode != nil && *input.CouponCode != "" {
		discount, err = s.couponDiscount(ctx, tx, *input.CouponCode, subtotal)
		if err != nil {
			return nil, err
		}
		appliedCoupon = *input.CouponCode
	}

	gross := subtotal + personalization + deliveryFee + s.cfg.PlatformFeeCents
	gst := inclusiveGST(gross, s.cfg.GSTRatePercent)

	remaining := gross - discount
	if remaining < 0 {
		remaining = 0
	}

	walletDiscount := 0
	if input.UseWallet {
		if input.UserID == nil || *input.UserID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "wallet payment requires an authenticated user")
		}
		w, err := s.wallets.WithTx(tx).Get(ctx, *input.UserID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodePricingUnavailable, err, "load wallet")
		}
		if w != nil && w.BalanceCents > 0 {
			walletDiscount = w.BalanceCents
			if walletDiscount > remaining {
				walletDiscount = remaining
			}
		}
	}

	total := gross - discount - walletDiscount
	if total < 0 {
		total = 0
	}

	return &Breakdown{
		SubtotalCents:        subtotal,
		PersonalizationCents: personalization,
		DeliveryFeeCents:     deliveryFee,
		PlatformFeeCents:     s.cfg.PlatformFeeCents,
		GSTCents:             gst,
		DiscountCents:        discount,
		WalletDiscountCents:  walletDiscount,
		TotalCents:           total,
		CouponCode:           appliedCoupon,
		DistanceKM:           distanceKM,
	}, nil
}

// deliveryFee tiers on distance: flat inside the base radius, per-km
// beyond it, refused past the service radius.
func (s *service) deliveryFee(distanceKM float64) (int, error) {
	if distanceKM > s.cfg.DeliveryMaxKM {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "delivery address is outside the service area")
	}
	fee := s.cfg.DeliveryBaseCents
	if distanceKM > s.cfg.DeliveryBaseKM {
		extraKM := int(math.Ceil(distanceKM - s.cfg.DeliveryBaseKM))
		fee += extraKM * s.cfg.DeliveryPerKMCents
	}
	return fee, nil
}

func (s *service) couponDiscount(ctx context.Context, tx *gorm.DB, code string, subtotal int) (int, error) {
	coupon, err := s.coupons.WithTx(tx).GetByCode(ctx, code)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodePricingUnavailable, err, "load coupon")
	}
	now := s.now()
	switch {
	case coupon == nil || !coupon.IsActive:
		return 0, pkgerrors.New(pkgerrors.CodeCouponInvalid, "coupon code is not valid")
	case coupon.StartsAt != nil && now.Before(*coupon.StartsAt):
		return 0, pkgerrors.New(pkgerrors.CodeCouponInvalid, "coupon is not active yet")
	case coupon.ExpiresAt != nil && now.After(*coupon.ExpiresAt):
		return 0, pkgerrors.New(pkgerrors.CodeCouponInvalid, "coupon has expired")
	case coupon.UsageLimit > 0 && coupon.UsedCount >= coupon.UsageLimit:
		return 0, pkgerrors.New(pkgerrors.CodeCouponInvalid, "coupon usage limit reached")
	case subtotal < coupon.MinOrderValueCents:
		return 0, pkgerrors.New(pkgerrors.CodeCouponInvalid,
			fmt.Sprintf("order must be at least %d to use this coupon", coupon.MinOrderValueCents))
	}

	discount := 0
	switch coupon.Type {
	case enums.CouponTypePercentage:
		discount = int(decimal.NewFromInt(int64(subtotal)).
			Mul(decimal.NewFromInt(int64(coupon.Value))).
			Div(decimal.NewFromInt(100)).
			Round(0).IntPart())
		if coupon.MaxDiscountCents > 0 && discount > coupon.MaxDiscountCents {
			discount = coupon.MaxDiscountCents
		}
	case enums.CouponTypeFixed:
		discount = coupon.Value
	default:
		return 0, pkgerrors.New(pkgerrors.CodeCouponInvalid, "coupon type is not supported")
	}
	if discount > subtotal {
		discount = subtotal
	}
	return discount, nil
}

// inclusiveGST extracts the tax component already contained in a
// GST-inclusive amount: amount * rate / (100 + rate).
func inclusiveGST(amountCents int, ratePercent float64) int {
	if amountCents <= 0 || ratePercent <= 0 {
		return 0
	}
	rate := decimal.NewFromFloat(ratePercent)
	amount := decimal.NewFromInt(int64(amountCents))
	gst := amount.Mul(rate).Div(rate.Add(decimal.NewFromInt(100)))
	return int(gst.Round(0).IntPart())
}
