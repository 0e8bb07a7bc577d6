package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/giftlane/giftlane-backend/internal/cart"
	"github.com/giftlane/giftlane-backend/internal/catalog"
	"github.com/giftlane/giftlane-backend/internal/pricing"
	"github.com/giftlane/giftlane-backend/internal/stock"
	"github.com/giftlane/giftlane-backend/internal/wallet"
	"github.com/giftlane/giftlane-backend/pkg/config"
	"github.com/giftlane/giftlane-backend/pkg/db/models"
	"github.com/giftlane/giftlane-backend/pkg/dispatch"
	"github.com/giftlane/giftlane-backend/pkg/enums"
	pkgerrors "github.com/giftlane/giftlane-backend/pkg/errors"
	"github.com/giftlane/giftlane-backend/pkg/logger"
	"github.com/giftlane/giftlane-backend/pkg/outbox"
	"github.com/giftlane/giftlane-backend/pkg/outbox/payloads"
	"github.com/giftlane/giftlane-backend/pkg/payments"
	"github.com/giftlane/giftlane-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// PlaceInput carries the checkout payload for order placement.
type PlaceInput struct {
	UserID     uuid.UUID
	Address    *types.Address
	CouponCode *string
	UseWallet  bool
}

// DetailsInput is the customer's personalization brief.
type DetailsInput struct {
	Text     *string
	ImageURL *string
}

// Service drives the order lifecycle.
type Service interface {
	Place(ctx context.Context, input PlaceInput) (*models.Order, error)
	Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Order, error)
	ListForPartner(ctx context.Context, partnerID uuid.UUID, limit int) ([]models.Order, error)
	Timeline(ctx context.Context, orderID uuid.UUID) ([]models.TimelineEvent, error)
	Transition(ctx context.Context, orderID uuid.UUID, to enums.OrderStatus, actor outbox.ActorRef) (*models.Order, error)
	SubmitDetails(ctx context.Context, orderID uuid.UUID, input DetailsInput, actor outbox.ActorRef) (*models.Order, error)
	SubmitPreview(ctx context.Context, orderItemID uuid.UUID, previewURL string, partnerNotes *string, actor outbox.ActorRef) (*models.PreviewSubmission, error)
	ApprovePreview(ctx context.Context, orderItemID uuid.UUID, actor outbox.ActorRef) error
	RequestChange(ctx context.Context, orderItemID uuid.UUID, feedback string, actor outbox.ActorRef) error
}

type service struct {
	repo    *Repository
	tx      txRunner
	carts   cart.Service
	catalog *catalog.Repository
	pricing pricing.Service
	stocks  *stock.Repository
	wallets wallet.Service
	gateway payments.Gateway
	courier dispatch.Courier
	events  *outbox.Service
	cfg     config.OrdersConfig
	pricfg  config.PricingConfig
	log     *logger.Logger
	now     func() time.Time
}

// NewService builds the order service backed by the provided stack.
func NewService(
	repo *Repository,
	tx txRunner,
	carts cart.Service,
	catalogRepo *catalog.Repository,
	pricingSvc pricing.Service,
	stocks *stock.Repository,
	wallets wallet.Service,
	gateway payments.Gateway,
	courier dispatch.Courier,
	events *outbox.Service,
	cfg config.OrdersConfig,
	pricfg config.PricingConfig,
	log *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if carts == nil {
		return nil, fmt.Errorf("cart service required")
	}
	if catalogRepo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if pricingSvc == nil {
		return nil, fmt.Errorf("pricing service required")
	}
	if stocks == nil {
		return nil, fmt.Errorf("stock repository required")
	}
	if wallets == nil {
		return nil, fmt.Errorf("wallet service required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if courier == nil {
		return nil, fmt.Errorf("dispatch courier required")
	}
	if events == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:    repo,
		tx:      tx,
		carts:   carts,
		catalog: catalogRepo,
		pricing: pricingSvc,
		stocks:  stocks,
		wallets: wallets,
		gateway: gateway,
		courier: courier,
		events:  events,
		cfg:     cfg,
		pricfg:  pricfg,
		log:     log,
		now:     time.Now,
	}, nil
}

// Place converts the user's cart into an order: recompute the price
// server-side, charge the gateway, then in one transaction decrement
// stock, write the order and its items, and clear the cart. The payment
// call stays outside the transaction; a failed charge aborts placement,
// and a failed placement best-effort refunds the charge.
func (s *service) Place(ctx context.Context, input PlaceInput) (*models.Order, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if input.Address == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery address is required")
	}

	owner := cart.UserOwner(input.UserID)
	lines, err := s.carts.GetCart(ctx, owner)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	quote, err := s.pricing.Quote(ctx, pricing.Input{
		Lines:      lines,
		Address:    input.Address,
		CouponCode: input.CouponCode,
		UseWallet:  input.UseWallet,
		UserID:     &input.UserID,
	})
	if err != nil {
		return nil, err
	}
	if quote == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery address could not be priced")
	}

	orderID := uuid.New()
	var paymentRef *string
	if quote.TotalCents > 0 {
		charge, err := s.gateway.Charge(ctx, payments.ChargeRequest{
			OrderID:     orderID,
			UserID:      input.UserID,
			AmountCents: quote.TotalCents,
			Currency:    "INR",
		})
		if err != nil {
			return nil, err
		}
		paymentRef = &charge.PaymentRef
	}

	var order *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		stocks := s.stocks.WithTx(tx)
		now := s.now()
		for i := range lines {
			line := &lines[i]
			ref := stock.UnitRef{ItemID: line.ItemID, VariantKey: line.VariantKey()}
			ok, err := stocks.DecrementOnHand(ctx, ref, line.Quantity, now)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decrement stock")
			}
			if !ok {
				return pkgerrors.New(pkgerrors.CodeOutOfStock, "an item sold out during checkout")
			}
		}

		if quote.WalletDiscountCents > 0 {
			if err := s.wallets.DebitTx(ctx, tx, input.UserID, quote.WalletDiscountCents, orderID); err != nil {
				return err
			}
		}
		if input.CouponCode != nil && *input.CouponCode != "" {
			ok, err := pricing.NewCouponRepository(tx).ConsumeUsage(ctx, *input.CouponCode)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "consume coupon usage")
			}
			if !ok {
				return pkgerrors.New(pkgerrors.CodeCouponInvalid, "coupon usage limit reached")
			}
		}

		var err error
		order, err = s.buildOrder(ctx, tx, orderID, input, lines, quote, paymentRef)
		if err != nil {
			return err
		}

		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
		}
		if err := repo.AppendTimeline(ctx, orderID, "Order placed",
			fmt.Sprintf("Order %s placed with %d items", order.OrderNumber, len(order.Items)),
			types.JSONMap{"total_cents": order.TotalCents}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "append timeline")
		}
		if err := s.carts.ClearTx(ctx, tx, owner); err != nil {
			return err
		}

		actor := outbox.ActorRef{UserID: input.UserID, Role: enums.RoleCustomer}
		if err := s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPlaced,
			AggregateType: enums.AggregateOrder,
			AggregateID:   orderID,
			Actor:         &actor,
			Data: payloads.OrderPlacedEvent{
				OrderID:            orderID,
				OrderNumber:        order.OrderNumber,
				UserID:             input.UserID,
				PartnerID:          order.PartnerID,
				TotalCents:         order.TotalCents,
				HasPersonalization: order.HasPersonalization,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit order placed event")
		}
		if err := s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventCartConverted,
			AggregateType: enums.AggregateCart,
			AggregateID:   orderID,
			Actor:         &actor,
			Data: payloads.CartConvertedEvent{
				UserID:    input.UserID,
				OrderID:   orderID,
				LineCount: len(lines),
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit cart converted event")
		}
		return nil
	})
	if err != nil {
		if paymentRef != nil {
			if refundErr := s.gateway.Refund(ctx, *paymentRef, quote.TotalCents); refundErr != nil {
				s.log.Error(s.log.WithOrderID(ctx, orderID.String()),
					"refund after failed placement did not go through", refundErr)
			}
		}
		return nil, err
	}
	return order, nil
}

// buildOrder snapshots cart lines into order items. Names and unit
// prices come from catalog rows inside the placement transaction so they
// match what the quote charged.
func (s *service) buildOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, input PlaceInput, lines []models.CartLine, quote *pricing.Breakdown, paymentRef *string) (*models.Order, error) {
	catalogRepo := s.catalog.WithTx(tx)
	items := make([]models.OrderItem, 0, len(lines))
	hasPersonalization := false
	for i := range lines {
		line := &lines[i]
		item, err := catalogRepo.GetItem(ctx, line.ItemID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load item snapshot")
		}
		if item == nil {
			return nil, pkgerrors.New(pkgerrors.CodePricingUnavailable, "an item in the cart is no longer available")
		}
		name := item.Name
		unitPrice := item.BasePriceCents
		if line.VariantID != nil {
			variant, err := catalogRepo.GetVariant(ctx, line.ItemID, *line.VariantID)
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load variant snapshot")
			}
			if variant == nil {
				return nil, pkgerrors.New(pkgerrors.CodePricingUnavailable, "a variant in the cart is no longer available")
			}
			name = fmt.Sprintf("%s (%s)", item.Name, variant.Name)
			unitPrice = variant.PriceCents
		}

		personalized := line.Personalization.Enabled || line.SelectedAddons.RequiresPreview()
		if personalized {
			hasPersonalization = true
		}
		personalization := line.Personalization
		items = append(items, models.OrderItem{
			ID:                   uuid.New(),
			OrderID:              orderID,
			ItemID:               line.ItemID,
			VariantID:            line.VariantID,
			Name:                 name,
			Quantity:             line.Quantity,
			UnitPriceCents:       unitPrice,
			PersonalizationCents: personalization.PriceCents,
			AddonCents:           line.SelectedAddons.TotalCents(),
			IsPersonalized:       personalized,
			Status:               enums.OrderItemStatusPending,
			Personalization:      &personalization,
			SelectedAddons:       line.SelectedAddons,
			Requirement:          line.Requirement,
		})
	}

	paymentStatus := enums.PaymentStatusPending
	if paymentRef != nil || quote.TotalCents == 0 {
		paymentStatus = enums.PaymentStatusPaid
	}
	personalizationStatus := enums.PersonalizationStatusNone
	if hasPersonalization {
		personalizationStatus = enums.PersonalizationStatusPending
	}
	var couponCode *string
	if quote.CouponCode != "" {
		code := quote.CouponCode
		couponCode = &code
	}
	address := *input.Address

	return &models.Order{
		ID:                    orderID,
		OrderNumber:           newOrderNumber(s.now()),
		UserID:                input.UserID,
		PartnerID:             lines[0].PartnerID,
		Status:                enums.OrderStatusPlaced,
		PaymentStatus:         paymentStatus,
		PaymentRef:            paymentRef,
		HasPersonalization:    hasPersonalization,
		PersonalizationStatus: personalizationStatus,
		MaxChangeRequests:     s.cfg.MaxChangeRequests,
		SubtotalCents:         quote.SubtotalCents,
		PersonalizationCents:  quote.PersonalizationCents,
		DeliveryFeeCents:      quote.DeliveryFeeCents,
		PlatformFeeCents:      quote.PlatformFeeCents,
		GSTCents:              quote.GSTCents,
		DiscountCents:         quote.DiscountCents,
		WalletDiscountCents:   quote.WalletDiscountCents,
		TotalCents:            quote.TotalCents,
		CouponCode:            couponCode,
		DeliveryAddress:       &address,
		Items:                 items,
	}, nil
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Order, error) {
	orders, err := s.repo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	return orders, nil
}

func (s *service) ListForPartner(ctx context.Context, partnerID uuid.UUID, limit int) ([]models.Order, error) {
	orders, err := s.repo.ListByPartner(ctx, partnerID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	return orders, nil
}

func (s *service) Timeline(ctx context.Context, orderID uuid.UUID) ([]models.TimelineEvent, error) {
	events, err := s.repo.ListTimeline(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list timeline")
	}
	return events, nil
}

// Transition validates and applies a status change as one conditional
// write, runs its side effects, and records the timeline event.
func (s *service) Transition(ctx context.Context, orderID uuid.UUID, to enums.OrderStatus, actor outbox.ActorRef) (*models.Order, error) {
	order, err := s.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := ValidateTransition(order.Status, to); err != nil {
		return nil, err
	}

	// Confirming an order whose details already arrived lands directly
	// on details_received; the customer submitted early, the partner
	// has now accepted.
	final := to
	if to == enums.OrderStatusConfirmed &&
		order.PersonalizationStatus == enums.PersonalizationStatusSubmitted {
		final = enums.OrderStatusDetailsReceived
	}

	if err := s.applyTransition(ctx, order, final, actor, ""); err != nil {
		return nil, err
	}

	switch final {
	case enums.OrderStatusPacked:
		s.attemptDispatch(ctx, order, actor)
	case enums.OrderStatusCancelled:
		s.attemptRefund(ctx, order, actor)
	}

	return s.Get(ctx, orderID)
}

// applyTransition performs the conditional status write plus the
// bookkeeping that always accompanies the target status.
func (s *service) applyTransition(ctx context.Context, order *models.Order, to enums.OrderStatus, actor outbox.ActorRef, reason string) error {
	now := s.now()
	extra := map[string]interface{}{}
	switch to {
	case enums.OrderStatusConfirmed, enums.OrderStatusDetailsReceived:
		if order.ConfirmedAt == nil {
			extra["confirmed_at"] = now
			if order.HasPersonalization && order.DesignDeadlineAt == nil {
				extra["design_deadline_at"] = now.Add(s.cfg.DesignDeadline())
			}
		}
	case enums.OrderStatusDelivered:
		extra["delivered_at"] = now
	case enums.OrderStatusCancelled:
		extra["cancelled_at"] = now
	case enums.OrderStatusRefunded:
		extra["refunded_at"] = now
		extra["payment_status"] = enums.PaymentStatusRefunded
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ok, err := repo.UpdateStatus(ctx, order.ID, order.Status, to, extra)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order status")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				"order status changed concurrently, retry with fresh state")
		}
		if err := repo.AppendTimeline(ctx, order.ID,
			fmt.Sprintf("Order %s", to),
			fmt.Sprintf("Status changed from %s to %s", order.Status, to),
			types.JSONMap{"from": string(order.Status), "to": string(to)}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "append timeline")
		}
		if err := s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     stateChangeEventType(to),
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &actor,
			Data: payloads.OrderStateChangedEvent{
				OrderID:    order.ID,
				UserID:     order.UserID,
				PartnerID:  order.PartnerID,
				FromStatus: order.Status,
				ToStatus:   to,
				Reason:     reason,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit state change event")
		}

		if to == enums.OrderStatusDelivered {
			if err := s.creditCashback(ctx, tx, order); err != nil {
				return err
			}
		}
		return nil
	})
}

func stateChangeEventType(to enums.OrderStatus) enums.OutboxEventType {
	switch to {
	case enums.OrderStatusCancelled:
		return enums.EventOrderCancelled
	case enums.OrderStatusDelivered:
		return enums.EventOrderDelivered
	case enums.OrderStatusRefunded:
		return enums.EventOrderRefunded
	}
	return enums.EventOrderStateChanged
}

// attemptDispatch hands the packed order to the courier. Success
// upgrades the recorded status to dispatched; failure leaves it packed.
func (s *service) attemptDispatch(ctx context.Context, order *models.Order, actor outbox.ActorRef) {
	result, err := s.courier.CreateShipment(ctx, dispatch.ShipmentRequest{
		OrderID:   order.ID,
		PartnerID: order.PartnerID,
		Address:   order.DeliveryAddress,
	})
	if err != nil {
		s.log.Error(s.log.WithOrderID(ctx, order.ID.String()),
			"courier handoff failed, order stays packed", err)
		return
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ok, err := repo.UpdateStatus(ctx, order.ID,
			enums.OrderStatusPacked, enums.OrderStatusDispatched,
			map[string]interface{}{"dispatch_ref": result.DispatchRef})
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := repo.AppendTimeline(ctx, order.ID, "Order dispatched",
			"Courier pickup confirmed",
			types.JSONMap{"dispatch_ref": result.DispatchRef}); err != nil {
			return err
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventDispatchRequested,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &actor,
			Data: payloads.DispatchRequestedEvent{
				OrderID:     order.ID,
				PartnerID:   order.PartnerID,
				DispatchRef: result.DispatchRef,
				Succeeded:   true,
			},
		})
	})
	if err != nil {
		s.log.Error(s.log.WithOrderID(ctx, order.ID.String()),
			"recording dispatch result failed", err)
	}
}

// attemptRefund returns money after a cancellation from a paid state.
// Failures are logged; the cancellation stands either way.
func (s *service) attemptRefund(ctx context.Context, order *models.Order, actor outbox.ActorRef) {
	if !order.PaymentStatus.IsPaid() {
		return
	}

	charged := order.TotalCents
	if order.PaymentRef != nil && charged > 0 {
		if err := s.gateway.Refund(ctx, *order.PaymentRef, charged); err != nil {
			s.log.Error(s.log.WithOrderID(ctx, order.ID.String()),
				"refund attempt failed, order stays cancelled", err)
			return
		}
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.UpdateFields(ctx, order.ID, map[string]interface{}{
			"payment_status": enums.PaymentStatusRefunded,
		}); err != nil {
			return err
		}
		if order.WalletDiscountCents > 0 {
			orderID := order.ID
			if err := s.wallets.CreditTx(ctx, tx, order.UserID, order.WalletDiscountCents,
				enums.WalletEntryTypeRefundCredit, &orderID, "refund of wallet payment"); err != nil {
				return err
			}
			if err := s.events.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventRefundCredited,
				AggregateType: enums.AggregateWallet,
				AggregateID:   order.UserID,
				Actor:         &actor,
				Data: payloads.WalletCreditEvent{
					UserID:      order.UserID,
					OrderID:     order.ID,
					Type:        enums.WalletEntryTypeRefundCredit,
					AmountCents: order.WalletDiscountCents,
				},
			}); err != nil {
				return err
			}
		}
		return repo.AppendTimeline(ctx, order.ID, "Refund issued",
			"Payment returned after cancellation",
			types.JSONMap{"amount_cents": charged})
	})
	if err != nil {
		s.log.Error(s.log.WithOrderID(ctx, order.ID.String()),
			"recording refund failed", err)
	}
}

// creditCashback rewards delivery with a fixed percentage of the total.
func (s *service) creditCashback(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	if s.pricfg.CashbackPercent <= 0 || order.TotalCents <= 0 {
		return nil
	}
	amount := int(decimal.NewFromInt(int64(order.TotalCents)).
		Mul(decimal.NewFromFloat(s.pricfg.CashbackPercent)).
		Div(decimal.NewFromInt(100)).
		Round(0).IntPart())
	if amount <= 0 {
		return nil
	}
	orderID := order.ID
	if err := s.wallets.CreditTx(ctx, tx, order.UserID, amount,
		enums.WalletEntryTypeCashbackCredit, &orderID, "delivery cashback"); err != nil {
		return err
	}
	return s.events.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventCashbackCredited,
		AggregateType: enums.AggregateWallet,
		AggregateID:   order.UserID,
		Data: payloads.WalletCreditEvent{
			UserID:      order.UserID,
			OrderID:     order.ID,
			Type:        enums.WalletEntryTypeCashbackCredit,
			AmountCents: amount,
		},
	})
}

// SubmitDetails stores the customer's personalization brief. Submitting
// on a placed order parks the brief until the partner confirms; on a
// confirmed order the status advances to details_received immediately.
func (s *service) SubmitDetails(ctx context.Context, orderID uuid.UUID, input DetailsInput, actor outbox.ActorRef) (*models.Order, error) {
	order, err := s.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.HasPersonalization {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order has no personalized items")
	}
	if order.Status != enums.OrderStatusPlaced && order.Status != enums.OrderStatusConfirmed {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			"details can only be submitted before design work starts")
	}
	if input.Text == nil && input.ImageURL == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "details must include text or an image")
	}

	personalizedItemIDs := make([]uuid.UUID, 0, len(order.Items))
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		for i := range order.Items {
			item := &order.Items[i]
			if !item.IsPersonalized {
				continue
			}
			personalizedItemIDs = append(personalizedItemIDs, item.ID)
			personalization := types.Personalization{Enabled: true}
			if item.Personalization != nil {
				personalization = *item.Personalization
			}
			personalization.Text = input.Text
			personalization.ImageURL = input.ImageURL
			if err := tx.WithContext(ctx).
				Model(&models.OrderItem{}).
				Where("id = ?", item.ID).
				Updates(map[string]interface{}{
					"personalization": &personalization,
					"status":          enums.OrderItemStatusDetailsReceived,
				}).Error; err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store item details")
			}
		}

		repo := s.repo.WithTx(tx)
		if err := repo.UpdateFields(ctx, orderID, map[string]interface{}{
			"personalization_status": enums.PersonalizationStatusSubmitted,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark details submitted")
		}
		if err := repo.AppendTimeline(ctx, orderID, "Details submitted",
			"Customer submitted the personalization brief", nil); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "append timeline")
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventDetailsSubmitted,
			AggregateType: enums.AggregateOrder,
			AggregateID:   orderID,
			Actor:         &actor,
			Data: payloads.DetailsSubmittedEvent{
				OrderID:     orderID,
				OrderItemID: personalizedItemIDs,
				UserID:      order.UserID,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	if order.Status == enums.OrderStatusConfirmed {
		order.PersonalizationStatus = enums.PersonalizationStatusSubmitted
		if err := s.applyTransition(ctx, order, enums.OrderStatusDetailsReceived, actor, "details submitted"); err != nil {
			return nil, err
		}
	}
	return s.Get(ctx, orderID)
}

// SubmitPreview records a partner design preview. Uploading while the
// order is still placed confirms it first instead of rejecting the work.
func (s *service) SubmitPreview(ctx context.Context, orderItemID uuid.UUID, previewURL string, partnerNotes *string, actor outbox.ActorRef) (*models.PreviewSubmission, error) {
	if previewURL == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "preview url is required")
	}
	item, err := s.repo.GetItem(ctx, orderItemID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order item")
	}
	if item == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order item not found")
	}
	if !item.IsPersonalized {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item is not personalized")
	}
	order, err := s.Get(ctx, item.OrderID)
	if err != nil {
		return nil, err
	}

	if order.Status == enums.OrderStatusPlaced {
		if _, err := s.Transition(ctx, order.ID, enums.OrderStatusConfirmed, actor); err != nil {
			return nil, err
		}
		order, err = s.Get(ctx, order.ID)
		if err != nil {
			return nil, err
		}
	}
	if err := ValidateTransition(order.Status, enums.OrderStatusPreviewReady); err != nil {
		return nil, err
	}

	preview := &models.PreviewSubmission{
		ID:           uuid.New(),
		OrderItemID:  orderItemID,
		PreviewURL:   previewURL,
		PartnerNotes: partnerNotes,
		Status:       enums.PreviewStatusPending,
		SubmittedAt:  s.now(),
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.CreatePreview(ctx, preview); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create preview submission")
		}
		if err := repo.UpdateItemStatus(ctx, orderItemID, enums.OrderItemStatusPreviewReady); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update item status")
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPreviewSubmitted,
			AggregateType: enums.AggregateOrderItem,
			AggregateID:   orderItemID,
			Actor:         &actor,
			Data: payloads.PreviewSubmittedEvent{
				OrderID:      order.ID,
				OrderItemID:  orderItemID,
				SubmissionID: preview.ID,
				PreviewURL:   previewURL,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	if err := s.applyTransition(ctx, order, enums.OrderStatusPreviewReady, actor, "preview submitted"); err != nil {
		return nil, err
	}
	return preview, nil
}

// ApprovePreview accepts the pending preview and moves the order toward
// production.
func (s *service) ApprovePreview(ctx context.Context, orderItemID uuid.UUID, actor outbox.ActorRef) error {
	item, preview, order, err := s.loadPreviewContext(ctx, orderItemID)
	if err != nil {
		return err
	}
	if err := ValidateTransition(order.Status, enums.OrderStatusApproved); err != nil {
		return err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.DecidePreview(ctx, preview.ID, enums.PreviewStatusApproved, nil, s.now()); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "approve preview")
		}
		if err := repo.UpdateItemStatus(ctx, item.ID, enums.OrderItemStatusApproved); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update item status")
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPreviewApproved,
			AggregateType: enums.AggregateOrderItem,
			AggregateID:   item.ID,
			Actor:         &actor,
			Data: payloads.PreviewSubmittedEvent{
				OrderID:      order.ID,
				OrderItemID:  item.ID,
				SubmissionID: preview.ID,
				PreviewURL:   preview.PreviewURL,
			},
		})
	})
	if err != nil {
		return err
	}
	return s.applyTransition(ctx, order, enums.OrderStatusApproved, actor, "preview approved")
}

// RequestChange sends the preview back with feedback. The revision
// counter is bumped with a conditional update so the cap can never be
// overshot by concurrent requests; hitting the cap leaves the counter
// untouched.
func (s *service) RequestChange(ctx context.Context, orderItemID uuid.UUID, feedback string, actor outbox.ActorRef) error {
	if feedback == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "feedback is required")
	}
	item, preview, order, err := s.loadPreviewContext(ctx, orderItemID)
	if err != nil {
		return err
	}
	if err := ValidateTransition(order.Status, enums.OrderStatusRevisionRequested); err != nil {
		return err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ok, err := repo.IncrementChangeRequests(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "increment change requests")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("change request limit of %d reached", order.MaxChangeRequests))
		}
		if err := repo.DecidePreview(ctx, preview.ID, enums.PreviewStatusChangesRequested, &feedback, s.now()); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record preview decision")
		}
		if err := repo.UpdateItemStatus(ctx, item.ID, enums.OrderItemStatusRevisionRequested); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update item status")
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventChangesRequested,
			AggregateType: enums.AggregateOrderItem,
			AggregateID:   item.ID,
			Actor:         &actor,
			Data: payloads.ChangesRequestedEvent{
				OrderID:            order.ID,
				OrderItemID:        item.ID,
				Feedback:           feedback,
				ChangeRequestCount: order.ChangeRequestCount + 1,
			},
		})
	})
	if err != nil {
		return err
	}
	return s.applyTransition(ctx, order, enums.OrderStatusRevisionRequested, actor, "changes requested")
}

func (s *service) loadPreviewContext(ctx context.Context, orderItemID uuid.UUID) (*models.OrderItem, *models.PreviewSubmission, *models.Order, error) {
	item, err := s.repo.GetItem(ctx, orderItemID)
	if err != nil {
		return nil, nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order item")
	}
	if item == nil {
		return nil, nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "order item not found")
	}
	preview, err := s.repo.LatestPreview(ctx, orderItemID)
	if err != nil {
		return nil, nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load preview")
	}
	if preview == nil || preview.Status != enums.PreviewStatusPending {
		return nil, nil, nil, pkgerrors.New(pkgerrors.CodeStateConflict, "no pending preview to decide")
	}
	order, err := s.Get(ctx, item.OrderID)
	if err != nil {
		return nil, nil, nil, err
	}
	return item, preview, order, nil
}
