package dispatch

import (
	"context"

	"github.com/google/uuid"

	pkgerrors "github.com/giftlane/giftlane-backend/pkg/errors"
)

// Sandbox accepts every shipment without calling out. Local development
// and test environments only.
type Sandbox struct{}

// NewSandbox returns the in-process courier stand-in.
func NewSandbox() *Sandbox {
	return &Sandbox{}
}

func (s *Sandbox) CreateShipment(_ context.Context, req ShipmentRequest) (*ShipmentResult, error) {
	if req.Address == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery address is required")
	}
	return &ShipmentResult{DispatchRef: "trk_" + uuid.NewString()}, nil
}
