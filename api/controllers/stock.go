package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/giftlane/giftlane-backend/api/responses"
	"github.com/giftlane/giftlane-backend/api/validators"
	stocksvc "github.com/giftlane/giftlane-backend/internal/stock"
	pkgerrors "github.com/giftlane/giftlane-backend/pkg/errors"
	"github.com/giftlane/giftlane-backend/pkg/logger"
)

type setStockRequest struct {
	ItemID    string  `json:"item_id" validate:"required,uuid"`
	VariantID *string `json:"variant_id,omitempty" validate:"omitempty,uuid"`
	OnHand    int     `json:"on_hand" validate:"min=0"`
}

func (r setStockRequest) toRef() (stocksvc.UnitRef, error) {
	itemID, err := uuid.Parse(r.ItemID)
	if err != nil {
		return stocksvc.UnitRef{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid item id")
	}
	ref := stocksvc.UnitRef{ItemID: itemID}
	if r.VariantID != nil {
		ref.VariantKey = *r.VariantID
	}
	return ref, nil
}

// SetStock lets a partner write the on-hand count for a stock unit.
func SetStock(svc stocksvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload setStockRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ref, err := payload.toRef()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.SetOnHand(r.Context(), ref, payload.OnHand); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int{"on_hand": payload.OnHand})
	}
}

// GetAvailability reports how many units of an item can still be reserved.
func GetAvailability(svc stocksvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID, err := parseIDParam(r, "itemID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ref := stocksvc.UnitRef{ItemID: itemID, VariantKey: r.URL.Query().Get("variant_id")}
		available, err := svc.AvailableStock(r.Context(), ref)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int{"available": available})
	}
}
