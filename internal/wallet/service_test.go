package wallet

import (
	"context"
	"testing"

	"github.com/giftlane/giftlane-backend/pkg/db"
	"github.com/giftlane/giftlane-backend/pkg/db/models"
	"github.com/giftlane/giftlane-backend/pkg/enums"
	pkgerrors "github.com/giftlane/giftlane-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:wallet_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&models.Wallet{}, &models.WalletEntry{}); err != nil {
		t.Fatalf("failed to migrate sqlite: %v", err)
	}
	return conn
}

func TestCreditThenDebit_WritesLedger(t *testing.T) {
	conn := newTestDB(t)
	client := db.NewWithConn(conn)
	svc, err := NewService(NewRepository(conn), client)
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	ctx := context.Background()
	userID := uuid.New()
	orderID := uuid.New()

	err = client.WithTx(ctx, func(tx *gorm.DB) error {
		return svc.CreditTx(ctx, tx, userID, 10000, enums.WalletEntryTypeCashbackCredit, &orderID, "delivery cashback")
	})
	if err != nil {
		t.Fatalf("credit failed: %v", err)
	}

	balance, err := svc.Balance(ctx, userID)
	if err != nil || balance != 10000 {
		t.Fatalf("expected balance 10000, got %d err %v", balance, err)
	}

	err = client.WithTx(ctx, func(tx *gorm.DB) error {
		return svc.DebitTx(ctx, tx, userID, 4000, orderID)
	})
	if err != nil {
		t.Fatalf("debit failed: %v", err)
	}

	balance, err = svc.Balance(ctx, userID)
	if err != nil || balance != 6000 {
		t.Fatalf("expected balance 6000, got %d err %v", balance, err)
	}

	entries, err := svc.Entries(ctx, userID, 10)
	if err != nil {
		t.Fatalf("entries failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 ledger entries, got %d", len(entries))
	}
	var sum int
	for _, entry := range entries {
		sum += entry.AmountCents
	}
	if sum != 6000 {
		t.Fatalf("expected ledger to sum to balance, got %d", sum)
	}
}

func TestDebit_InsufficientBalanceRollsBack(t *testing.T) {
	conn := newTestDB(t)
	client := db.NewWithConn(conn)
	svc, err := NewService(NewRepository(conn), client)
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	ctx := context.Background()
	userID := uuid.New()
	orderID := uuid.New()

	err = client.WithTx(ctx, func(tx *gorm.DB) error {
		return svc.CreditTx(ctx, tx, userID, 1000, enums.WalletEntryTypeRefundCredit, nil, "")
	})
	if err != nil {
		t.Fatalf("credit failed: %v", err)
	}

	err = client.WithTx(ctx, func(tx *gorm.DB) error {
		return svc.DebitTx(ctx, tx, userID, 5000, orderID)
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict on overdraft, got %v", err)
	}

	balance, err := svc.Balance(ctx, userID)
	if err != nil || balance != 1000 {
		t.Fatalf("expected balance untouched at 1000, got %d err %v", balance, err)
	}
	entries, err := svc.Entries(ctx, userID, 10)
	if err != nil {
		t.Fatalf("entries failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the credit entry, got %d", len(entries))
	}
}

func TestCreditTx_RejectsDebitTypes(t *testing.T) {
	conn := newTestDB(t)
	client := db.NewWithConn(conn)
	svc, err := NewService(NewRepository(conn), client)
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	ctx := context.Background()

	err = client.WithTx(ctx, func(tx *gorm.DB) error {
		return svc.CreditTx(ctx, tx, uuid.New(), 100, enums.WalletEntryTypeCheckoutDebit, nil, "")
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
