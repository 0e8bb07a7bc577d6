package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/giftlane/giftlane-backend/api/middleware"
	"github.com/giftlane/giftlane-backend/api/responses"
	"github.com/giftlane/giftlane-backend/api/validators"
	ordersvc "github.com/giftlane/giftlane-backend/internal/orders"
	"github.com/giftlane/giftlane-backend/pkg/db/models"
	"github.com/giftlane/giftlane-backend/pkg/enums"
	pkgerrors "github.com/giftlane/giftlane-backend/pkg/errors"
	"github.com/giftlane/giftlane-backend/pkg/logger"
	"github.com/giftlane/giftlane-backend/pkg/outbox"
	"github.com/giftlane/giftlane-backend/pkg/types"
)

const defaultListLimit = 20

type placeOrderRequest struct {
	Address    addressRequest `json:"address" validate:"required"`
	CouponCode *string        `json:"coupon_code,omitempty"`
	UseWallet  bool           `json:"use_wallet"`
}

type transitionRequest struct {
	To string `json:"to" validate:"required"`
}

type submitDetailsRequest struct {
	Text     *string `json:"text,omitempty"`
	ImageURL *string `json:"image_url,omitempty" validate:"omitempty,url"`
}

type submitPreviewRequest struct {
	PreviewURL   string  `json:"preview_url" validate:"required,url"`
	PartnerNotes *string `json:"partner_notes,omitempty"`
}

type requestChangeRequest struct {
	Feedback string `json:"feedback" validate:"required"`
}

type orderItemResponse struct {
	ID                   uuid.UUID              `json:"id"`
	ItemID               uuid.UUID              `json:"item_id"`
	VariantID            *uuid.UUID             `json:"variant_id,omitempty"`
	Name                 string                 `json:"name"`
	Quantity             int                    `json:"quantity"`
	UnitPriceCents       int                    `json:"unit_price_cents"`
	PersonalizationCents int                    `json:"personalization_cents"`
	AddonCents           int                    `json:"addon_cents"`
	IsPersonalized       bool                   `json:"is_personalized"`
	Status               enums.OrderItemStatus  `json:"status"`
	Personalization      *types.Personalization `json:"personalization,omitempty"`
	SelectedAddons       types.SelectedAddons   `json:"selected_addons"`
}

type orderResponse struct {
	ID                    uuid.UUID                   `json:"id"`
	OrderNumber           string                      `json:"order_number"`
	PartnerID             uuid.UUID                   `json:"partner_id"`
	Status                enums.OrderStatus           `json:"status"`
	PaymentStatus         enums.PaymentStatus         `json:"payment_status"`
	HasPersonalization    bool                        `json:"has_personalization"`
	PersonalizationStatus enums.PersonalizationStatus `json:"personalization_status"`
	DesignDeadlineAt      *time.Time                  `json:"design_deadline_at,omitempty"`
	ChangeRequestCount    int                         `json:"change_request_count"`
	MaxChangeRequests     int                         `json:"max_change_requests"`
	SubtotalCents         int                         `json:"subtotal_cents"`
	PersonalizationCents  int                         `json:"personalization_cents"`
	DeliveryFeeCents      int                         `json:"delivery_fee_cents"`
	PlatformFeeCents      int                         `json:"platform_fee_cents"`
	GSTCents              int                         `json:"gst_cents"`
	DiscountCents         int                         `json:"discount_cents"`
	WalletDiscountCents   int                         `json:"wallet_discount_cents"`
	TotalCents            int                         `json:"total_cents"`
	CouponCode            *string                     `json:"coupon_code,omitempty"`
	DeliveryAddress       *types.Address              `json:"delivery_address,omitempty"`
	DispatchRef           *string                     `json:"dispatch_ref,omitempty"`
	Items                 []orderItemResponse         `json:"items"`
	CreatedAt             time.Time                   `json:"created_at"`
}

type timelineEventResponse struct {
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Metadata    types.JSONMap `json:"metadata,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
}

func newOrderResponse(order *models.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(order.Items))
	for i := range order.Items {
		item := &order.Items[i]
		items = append(items, orderItemResponse{
			ID:                   item.ID,
			ItemID:               item.ItemID,
			VariantID:            item.VariantID,
			Name:                 item.Name,
			Quantity:             item.Quantity,
			UnitPriceCents:       item.UnitPriceCents,
			PersonalizationCents: item.PersonalizationCents,
			AddonCents:           item.AddonCents,
			IsPersonalized:       item.IsPersonalized,
			Status:               item.Status,
			Personalization:      item.Personalization,
			SelectedAddons:       item.SelectedAddons,
		})
	}
	return orderResponse{
		ID:                    order.ID,
		OrderNumber:           order.OrderNumber,
		PartnerID:             order.PartnerID,
		Status:                order.Status,
		PaymentStatus:         order.PaymentStatus,
		HasPersonalization:    order.HasPersonalization,
		PersonalizationStatus: order.PersonalizationStatus,
		DesignDeadlineAt:      order.DesignDeadlineAt,
		ChangeRequestCount:    order.ChangeRequestCount,
		MaxChangeRequests:     order.MaxChangeRequests,
		SubtotalCents:         order.SubtotalCents,
		PersonalizationCents:  order.PersonalizationCents,
		DeliveryFeeCents:      order.DeliveryFeeCents,
		PlatformFeeCents:      order.PlatformFeeCents,
		GSTCents:              order.GSTCents,
		DiscountCents:         order.DiscountCents,
		WalletDiscountCents:   order.WalletDiscountCents,
		TotalCents:            order.TotalCents,
		CouponCode:            order.CouponCode,
		DeliveryAddress:       order.DeliveryAddress,
		DispatchRef:           order.DispatchRef,
		Items:                 items,
		CreatedAt:             order.CreatedAt,
	}
}

func newOrderListResponse(orders []models.Order) []orderResponse {
	resp := make([]orderResponse, 0, len(orders))
	for i := range orders {
		resp = append(resp, newOrderResponse(&orders[i]))
	}
	return resp
}

func actorFromContext(r *http.Request) (outbox.ActorRef, error) {
	userID, err := authedUserID(r)
	if err != nil {
		return outbox.ActorRef{}, err
	}
	actor := outbox.ActorRef{UserID: userID}
	if role, parseErr := enums.ParseActorRole(middleware.RoleFromContext(r.Context())); parseErr == nil {
		actor.Role = role
	}
	if raw := middleware.PartnerIDFromContext(r.Context()); raw != "" {
		if partnerID, parseErr := uuid.Parse(raw); parseErr == nil {
			actor.PartnerID = &partnerID
		}
	}
	return actor, nil
}

// PlaceOrder converts the authenticated user's cart into an order.
func PlaceOrder(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := authedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload placeOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.Place(r.Context(), ordersvc.PlaceInput{
			UserID:     userID,
			Address:    payload.Address.toAddress(),
			CouponCode: payload.CouponCode,
			UseWallet:  payload.UseWallet,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newOrderResponse(order))
	}
}

// ListOrders returns the authenticated user's orders, newest first.
func ListOrders(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := authedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orders, err := svc.ListForUser(r.Context(), userID, listLimit(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderListResponse(orders))
	}
}

// ListPartnerOrders returns the partner's order queue.
func ListPartnerOrders(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		partnerID, err := partnerIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orders, err := svc.ListForPartner(r.Context(), partnerID, listLimit(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderListResponse(orders))
	}
}

// GetOrder returns one order visible to the caller.
func GetOrder(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := parseIDParam(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := loadVisibleOrder(r, svc, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

// GetOrderTimeline returns the order's customer-visible event feed.
func GetOrderTimeline(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := parseIDParam(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if _, err := loadVisibleOrder(r, svc, orderID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		events, err := svc.Timeline(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		resp := make([]timelineEventResponse, 0, len(events))
		for i := range events {
			resp = append(resp, timelineEventResponse{
				Title:       events[i].Title,
				Description: events[i].Description,
				Metadata:    events[i].Metadata,
				CreatedAt:   events[i].CreatedAt,
			})
		}
		responses.WriteSuccess(w, resp)
	}
}

// TransitionOrder applies a requested status change.
func TransitionOrder(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := parseIDParam(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		actor, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload transitionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		to := enums.OrderStatus(payload.To)
		if !to.IsValid() {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "unknown order status"))
			return
		}
		if _, err := loadVisibleOrder(r, svc, orderID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.Transition(r.Context(), orderID, to, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

// SubmitOrderDetails stores the personalization brief for an order.
func SubmitOrderDetails(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := parseIDParam(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		actor, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload submitDetailsRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if _, err := loadVisibleOrder(r, svc, orderID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.SubmitDetails(r.Context(), orderID, ordersvc.DetailsInput{
			Text:     payload.Text,
			ImageURL: payload.ImageURL,
		}, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

// SubmitPreview records a partner's design preview for an order item.
func SubmitPreview(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID, err := parseIDParam(r, "itemID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		actor, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload submitPreviewRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		preview, err := svc.SubmitPreview(r.Context(), itemID, payload.PreviewURL, payload.PartnerNotes, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{
			"submission_id": preview.ID,
			"status":        preview.Status,
		})
	}
}

// ApprovePreview records the customer's approval of the latest preview.
func ApprovePreview(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID, err := parseIDParam(r, "itemID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		actor, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.ApprovePreview(r.Context(), itemID, actor); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"approved": true})
	}
}

// RequestPreviewChange sends the preview back with customer feedback.
func RequestPreviewChange(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID, err := parseIDParam(r, "itemID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		actor, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload requestChangeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.RequestChange(r.Context(), itemID, payload.Feedback, actor); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"changes_requested": true})
	}
}

// loadVisibleOrder enforces that the caller owns the order (customer)
// or serves it (partner). Admin tokens see everything.
func loadVisibleOrder(r *http.Request, svc ordersvc.Service, orderID uuid.UUID) (*models.Order, error) {
	order, err := svc.Get(r.Context(), orderID)
	if err != nil {
		return nil, err
	}
	role := middleware.RoleFromContext(r.Context())
	if role == string(enums.RoleAdmin) {
		return order, nil
	}
	if role == string(enums.RolePartner) {
		if raw := middleware.PartnerIDFromContext(r.Context()); raw == order.PartnerID.String() {
			return order, nil
		}
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if raw := middleware.UserIDFromContext(r.Context()); raw == order.UserID.String() {
		return order, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
}

func partnerIDFromContext(r *http.Request) (uuid.UUID, error) {
	raw := middleware.PartnerIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "partner context missing")
	}
	partnerID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeForbidden, err, "invalid partner id")
	}
	return partnerID, nil
}

func listLimit(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultListLimit
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 || limit > 100 {
		return defaultListLimit
	}
	return limit
}
