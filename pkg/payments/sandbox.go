package payments

import (
	"context"
	"strings"

	"github.com/google/uuid"

	pkgerrors "github.com/giftlane/giftlane-backend/pkg/errors"
)

// Sandbox approves every charge without calling out. Local development
// and test environments only.
type Sandbox struct{}

// NewSandbox returns the in-process gateway stand-in.
func NewSandbox() *Sandbox {
	return &Sandbox{}
}

func (s *Sandbox) Charge(_ context.Context, req ChargeRequest) (*ChargeResult, error) {
	if req.AmountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "charge amount must be positive")
	}
	return &ChargeResult{PaymentRef: "sbx_" + uuid.NewString()}, nil
}

func (s *Sandbox) Refund(_ context.Context, paymentRef string, _ int) error {
	if strings.TrimSpace(paymentRef) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment reference is required")
	}
	return nil
}
