package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/giftlane/giftlane-backend/api/responses"
	walletsvc "github.com/giftlane/giftlane-backend/internal/wallet"
	"github.com/giftlane/giftlane-backend/pkg/enums"
	"github.com/giftlane/giftlane-backend/pkg/logger"
)

type walletEntryResponse struct {
	ID          uuid.UUID             `json:"id"`
	Type        enums.WalletEntryType `json:"type"`
	AmountCents int                   `json:"amount_cents"`
	OrderID     *uuid.UUID            `json:"order_id,omitempty"`
	Note        *string               `json:"note,omitempty"`
	CreatedAt   time.Time             `json:"created_at"`
}

type walletResponse struct {
	BalanceCents int                   `json:"balance_cents"`
	Entries      []walletEntryResponse `json:"entries"`
}

// GetWallet returns the caller's balance plus recent ledger entries.
func GetWallet(svc walletsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := authedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		balance, err := svc.Balance(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		entries, err := svc.Entries(r.Context(), userID, listLimit(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		resp := walletResponse{BalanceCents: balance, Entries: make([]walletEntryResponse, 0, len(entries))}
		for i := range entries {
			resp.Entries = append(resp.Entries, walletEntryResponse{
				ID:          entries[i].ID,
				Type:        entries[i].Type,
				AmountCents: entries[i].AmountCents,
				OrderID:     entries[i].OrderID,
				Note:        entries[i].Note,
				CreatedAt:   entries[i].CreatedAt,
			})
		}
		responses.WriteSuccess(w, resp)
	}
}
