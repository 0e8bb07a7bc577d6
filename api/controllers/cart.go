package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/giftlane/giftlane-backend/api/middleware"
	"github.com/giftlane/giftlane-backend/api/responses"
	"github.com/giftlane/giftlane-backend/api/validators"
	cartsvc "github.com/giftlane/giftlane-backend/internal/cart"
	"github.com/giftlane/giftlane-backend/pkg/db/models"
	pkgerrors "github.com/giftlane/giftlane-backend/pkg/errors"
	"github.com/giftlane/giftlane-backend/pkg/logger"
	"github.com/giftlane/giftlane-backend/pkg/types"
)

type addLineRequest struct {
	ItemID          string                  `json:"item_id" validate:"required,uuid"`
	VariantID       *string                 `json:"variant_id,omitempty" validate:"omitempty,uuid"`
	Quantity        int                     `json:"quantity" validate:"required,min=1"`
	Personalization *personalizationRequest `json:"personalization,omitempty"`
	AddonIDs        []string                `json:"addon_ids,omitempty" validate:"omitempty,dive,uuid"`
}

type personalizationRequest struct {
	Enabled  bool    `json:"enabled"`
	OptionID *string `json:"option_id,omitempty"`
	Text     *string `json:"text,omitempty"`
	ImageURL *string `json:"image_url,omitempty" validate:"omitempty,url"`
}

type updateLineRequest struct {
	VariantID       *string                 `json:"variant_id,omitempty" validate:"omitempty,uuid"`
	Personalization *personalizationRequest `json:"personalization,omitempty"`
	AddonIDs        []string                `json:"addon_ids,omitempty" validate:"omitempty,dive,uuid"`
}

type updateQuantityRequest struct {
	Quantity int `json:"quantity" validate:"min=0,max=10"`
}

type mergeCartRequest struct {
	SessionID string `json:"session_id" validate:"required"`
}

type cartLineResponse struct {
	ID              uuid.UUID             `json:"id"`
	PartnerID       uuid.UUID             `json:"partner_id"`
	ItemID          uuid.UUID             `json:"item_id"`
	VariantID       *uuid.UUID            `json:"variant_id,omitempty"`
	Quantity        int                   `json:"quantity"`
	Personalization types.Personalization `json:"personalization"`
	SelectedAddons  types.SelectedAddons  `json:"selected_addons"`
	CreatedAt       time.Time             `json:"created_at"`
}

type cartResponse struct {
	Lines []cartLineResponse `json:"lines"`
}

func newCartLineResponse(line *models.CartLine) cartLineResponse {
	return cartLineResponse{
		ID:              line.ID,
		PartnerID:       line.PartnerID,
		ItemID:          line.ItemID,
		VariantID:       line.VariantID,
		Quantity:        line.Quantity,
		Personalization: line.Personalization,
		SelectedAddons:  line.SelectedAddons,
		CreatedAt:       line.CreatedAt,
	}
}

func newCartResponse(lines []models.CartLine) cartResponse {
	resp := cartResponse{Lines: make([]cartLineResponse, 0, len(lines))}
	for i := range lines {
		resp.Lines = append(resp.Lines, newCartLineResponse(&lines[i]))
	}
	return resp
}

// ownerFromContext resolves the cart owner seeded by the identity
// middleware: an authenticated user wins over a guest session.
func ownerFromContext(r *http.Request) (cartsvc.Owner, error) {
	if raw := middleware.UserIDFromContext(r.Context()); raw != "" {
		userID, err := uuid.Parse(raw)
		if err != nil {
			return cartsvc.Owner{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
		}
		return cartsvc.UserOwner(userID), nil
	}
	if sessionID := middleware.GuestSessionFromContext(r.Context()); sessionID != "" {
		return cartsvc.SessionOwner(sessionID), nil
	}
	return cartsvc.Owner{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
}

// GetCart returns the owner's cart lines.
func GetCart(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := ownerFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		lines, err := svc.GetCart(r.Context(), owner)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(lines))
	}
}

// AddCartLine adds or coalesces a line, reserving stock on the way in.
func AddCartLine(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := ownerFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload addLineRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		line, err := svc.AddLine(r.Context(), owner, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newCartLineResponse(line))
	}
}

// UpdateCartLineQuantity sets a line's quantity; zero removes the line.
func UpdateCartLineQuantity(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := ownerFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		lineID, err := parseIDParam(r, "lineID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload updateQuantityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		line, err := svc.UpdateLineQuantity(r.Context(), owner, lineID, payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if line == nil {
			responses.WriteSuccess(w, map[string]bool{"removed": true})
			return
		}
		responses.WriteSuccess(w, newCartLineResponse(line))
	}
}

// UpdateCartLine edits a line's variant, personalization, or add-ons.
func UpdateCartLine(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := ownerFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		lineID, err := parseIDParam(r, "lineID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload updateLineRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		line, err := svc.UpdateLine(r.Context(), owner, lineID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartLineResponse(line))
	}
}

// RemoveCartLine deletes a line and releases its reservation.
func RemoveCartLine(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := ownerFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		lineID, err := parseIDParam(r, "lineID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.RemoveLine(r.Context(), owner, lineID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"removed": true})
	}
}

// ClearCart empties the owner's cart.
func ClearCart(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := ownerFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Clear(r.Context(), owner); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"cleared": true})
	}
}

// MergeCart folds a guest cart into the authenticated user's cart.
func MergeCart(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := authedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload mergeCartRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Merge(r.Context(), payload.SessionID, userID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		lines, err := svc.GetCart(r.Context(), cartsvc.UserOwner(userID))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(lines))
	}
}

func (p addLineRequest) toInput() (cartsvc.AddLineInput, error) {
	itemID, err := uuid.Parse(p.ItemID)
	if err != nil {
		return cartsvc.AddLineInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid item id")
	}
	input := cartsvc.AddLineInput{
		ItemID:   itemID,
		Quantity: p.Quantity,
	}
	if p.VariantID != nil {
		variantID, err := uuid.Parse(*p.VariantID)
		if err != nil {
			return cartsvc.AddLineInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid variant id")
		}
		input.VariantID = &variantID
	}
	if p.Personalization != nil {
		input.Personalization = p.Personalization.toInput()
	}
	input.AddonIDs, err = parseAddonIDs(p.AddonIDs)
	if err != nil {
		return cartsvc.AddLineInput{}, err
	}
	return input, nil
}

func (p updateLineRequest) toInput() (cartsvc.UpdateLineInput, error) {
	input := cartsvc.UpdateLineInput{}
	if p.VariantID != nil {
		variantID, err := uuid.Parse(*p.VariantID)
		if err != nil {
			return cartsvc.UpdateLineInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid variant id")
		}
		input.VariantID = &variantID
	}
	if p.Personalization != nil {
		input.Personalization = p.Personalization.toInput()
	}
	var err error
	input.AddonIDs, err = parseAddonIDs(p.AddonIDs)
	if err != nil {
		return cartsvc.UpdateLineInput{}, err
	}
	return input, nil
}

func (p personalizationRequest) toInput() cartsvc.PersonalizationInput {
	return cartsvc.PersonalizationInput{
		Enabled:  p.Enabled,
		OptionID: p.OptionID,
		Text:     p.Text,
		ImageURL: p.ImageURL,
	}
}

func parseAddonIDs(raw []string) ([]uuid.UUID, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	ids := make([]uuid.UUID, 0, len(raw))
	for _, value := range raw {
		id, err := uuid.Parse(value)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid addon id")
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func parseIDParam(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+name)
	}
	return id, nil
}

func authedUserID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	return userID, nil
}
