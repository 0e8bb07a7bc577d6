package controllers

import (
	"net/http"

	"github.com/giftlane/giftlane-backend/api/responses"
	"github.com/giftlane/giftlane-backend/api/validators"
	cartsvc "github.com/giftlane/giftlane-backend/internal/cart"
	pricingsvc "github.com/giftlane/giftlane-backend/internal/pricing"
	pkgerrors "github.com/giftlane/giftlane-backend/pkg/errors"
	"github.com/giftlane/giftlane-backend/pkg/logger"
	"github.com/giftlane/giftlane-backend/pkg/types"
)

type addressRequest struct {
	Line1      string  `json:"line1" validate:"required"`
	Line2      *string `json:"line2,omitempty"`
	City       string  `json:"city" validate:"required"`
	State      string  `json:"state" validate:"required"`
	PostalCode string  `json:"postal_code" validate:"required"`
	Country    string  `json:"country" validate:"required"`
	Lat        float64 `json:"lat" validate:"required"`
	Lng        float64 `json:"lng" validate:"required"`
}

func (a *addressRequest) toAddress() *types.Address {
	if a == nil {
		return nil
	}
	return &types.Address{
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
		Lat:        a.Lat,
		Lng:        a.Lng,
	}
}

type quoteRequest struct {
	Address    *addressRequest `json:"address,omitempty"`
	CouponCode *string         `json:"coupon_code,omitempty"`
	UseWallet  bool            `json:"use_wallet"`
}

type quoteResponse struct {
	Pending   bool                  `json:"pending"`
	Breakdown *pricingsvc.Breakdown `json:"breakdown,omitempty"`
}

// QuoteCart prices the caller's cart. Without an address the quote is
// pending rather than an error, so the cart page can render early.
func QuoteCart(carts cartsvc.Service, pricing pricingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := ownerFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload quoteRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		lines, err := carts.GetCart(r.Context(), owner)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := pricingsvc.Input{
			Lines:      lines,
			Address:    payload.Address.toAddress(),
			CouponCode: payload.CouponCode,
			UseWallet:  payload.UseWallet,
		}
		if owner.UserID != nil {
			input.UserID = owner.UserID
		}
		if payload.UseWallet && owner.UserID == nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeUnauthorized, "wallet requires a signed-in account"))
			return
		}

		breakdown, err := pricing.Quote(r.Context(), input)
		if err != nil {
			// An invalid coupon keeps the quote usable: reprice without it
			// and let the client surface the coupon error separately.
			typed := pkgerrors.As(err)
			if typed != nil && typed.Code() == pkgerrors.CodeCouponInvalid && payload.CouponCode != nil {
				input.CouponCode = nil
				breakdown, err = pricing.Quote(r.Context(), input)
				if err == nil {
					responses.WriteSuccess(w, struct {
						quoteResponse
						CouponError string `json:"coupon_error"`
					}{
						quoteResponse: quoteResponse{Pending: false, Breakdown: breakdown},
						CouponError:   typed.Message(),
					})
					return
				}
			}
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if breakdown == nil {
			responses.WriteSuccess(w, quoteResponse{Pending: true})
			return
		}
		responses.WriteSuccess(w, quoteResponse{Pending: false, Breakdown: breakdown})
	}
}
