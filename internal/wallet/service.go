package wallet

import (
	"context"
	"fmt"
	"time"

	"github.com/giftlane/giftlane-backend/pkg/db/models"
	"github.com/giftlane/giftlane-backend/pkg/enums"
	pkgerrors "github.com/giftlane/giftlane-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes the store-credit wallet. Every balance change writes a
// ledger entry in the same transaction.
type Service interface {
	Balance(ctx context.Context, userID uuid.UUID) (int, error)
	Entries(ctx context.Context, userID uuid.UUID, limit int) ([]models.WalletEntry, error)
	DebitTx(ctx context.Context, tx *gorm.DB, userID uuid.UUID, amountCents int, orderID uuid.UUID) error
	CreditTx(ctx context.Context, tx *gorm.DB, userID uuid.UUID, amountCents int, entryType enums.WalletEntryType, orderID *uuid.UUID, note string) error
}

type service struct {
	repo *Repository
	tx   txRunner
	now  func() time.Time
}

// NewService builds a wallet service backed by the provided stack.
func NewService(repo *Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("wallet repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx, now: time.Now}, nil
}

// Balance returns the user's current balance; a missing wallet is zero.
func (s *service) Balance(ctx context.Context, userID uuid.UUID) (int, error) {
	if userID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	wallet, err := s.repo.Get(ctx, userID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load wallet")
	}
	if wallet == nil {
		return 0, nil
	}
	return wallet.BalanceCents, nil
}

// Entries lists the user's ledger, newest first.
func (s *service) Entries(ctx context.Context, userID uuid.UUID, limit int) ([]models.WalletEntry, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	entries, err := s.repo.ListEntries(ctx, userID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list wallet entries")
	}
	return entries, nil
}

// DebitTx spends balance at checkout inside the caller's transaction.
func (s *service) DebitTx(ctx context.Context, tx *gorm.DB, userID uuid.UUID, amountCents int, orderID uuid.UUID) error {
	if amountCents <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "debit amount must be positive")
	}
	repo := s.repo.WithTx(tx)
	ok, err := repo.Debit(ctx, userID, amountCents, s.now())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "debit wallet")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeConflict, "wallet balance no longer covers the debit")
	}
	entry := &models.WalletEntry{
		ID:          uuid.New(),
		UserID:      userID,
		Type:        enums.WalletEntryTypeCheckoutDebit,
		AmountCents: -amountCents,
		OrderID:     &orderID,
	}
	if err := repo.AppendEntry(ctx, entry); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "append wallet entry")
	}
	return nil
}

// CreditTx adds balance (cashback, refunds) inside the caller's transaction.
func (s *service) CreditTx(ctx context.Context, tx *gorm.DB, userID uuid.UUID, amountCents int, entryType enums.WalletEntryType, orderID *uuid.UUID, note string) error {
	if amountCents <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "credit amount must be positive")
	}
	if !entryType.IsCredit() {
		return pkgerrors.New(pkgerrors.CodeValidation, "entry type must be a credit")
	}
	repo := s.repo.WithTx(tx)
	if err := repo.Credit(ctx, userID, amountCents, s.now()); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "credit wallet")
	}
	entry := &models.WalletEntry{
		ID:          uuid.New(),
		UserID:      userID,
		Type:        entryType,
		AmountCents: amountCents,
		OrderID:     orderID,
	}
	if note != "" {
		entry.Note = &note
	}
	if err := repo.AppendEntry(ctx, entry); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "append wallet entry")
	}
	return nil
}
