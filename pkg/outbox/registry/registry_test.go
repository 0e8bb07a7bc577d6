package registry

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/giftlane/giftlane-backend/pkg/config"
	"github.com/giftlane/giftlane-backend/pkg/db/models"
	"github.com/giftlane/giftlane-backend/pkg/enums"
	"github.com/giftlane/giftlane-backend/pkg/outbox"
	"github.com/giftlane/giftlane-backend/pkg/outbox/payloads"
)

func testConfig() config.PubSubConfig {
	return config.PubSubConfig{
		ProjectID:         "test",
		OrdersTopic:       "orders",
		NotificationTopic: "notifications",
	}
}

func envelopeFor(t *testing.T, data any) json.RawMessage {
	t.Helper()
	payload, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal data: %v", err)
	}
	envelope := outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       payload,
	}
	raw, err := json.Marshal(envelope)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return raw
}

func TestResolveOrderPlaced(t *testing.T) {
	reg, err := NewEventRegistry(testConfig())
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}

	orderID := uuid.New()
	row := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventOrderPlaced,
		AggregateType: enums.AggregateOrder,
		AggregateID:   orderID,
		Payload: envelopeFor(t, payloads.OrderPlacedEvent{
			OrderID:    orderID,
			TotalCents: 99900,
		}),
	}

	resolved, err := reg.Resolve(row)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.Descriptor.Topic != "orders" {
		t.Fatalf("unexpected topic %s", resolved.Descriptor.Topic)
	}
	placed, ok := resolved.Payload.(*payloads.OrderPlacedEvent)
	if !ok {
		t.Fatalf("unexpected payload type %T", resolved.Payload)
	}
	if placed.OrderID != orderID || placed.TotalCents != 99900 {
		t.Fatalf("payload fields not preserved: %+v", placed)
	}
}

func TestResolveRejectsUnknownType(t *testing.T) {
	reg, err := NewEventRegistry(testConfig())
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}

	row := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     "mystery",
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       envelopeFor(t, map[string]any{}),
	}
	_, err = reg.Resolve(row)
	var nonRetry NonRetryableError
	if !errors.As(err, &nonRetry) {
		t.Fatalf("expected non-retryable error, got %v", err)
	}
}

func TestResolveRejectsAggregateMismatch(t *testing.T) {
	reg, err := NewEventRegistry(testConfig())
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}

	row := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventOrderPlaced,
		AggregateType: enums.AggregateWallet,
		AggregateID:   uuid.New(),
		Payload:       envelopeFor(t, payloads.OrderPlacedEvent{}),
	}
	_, err = reg.Resolve(row)
	var nonRetry NonRetryableError
	if !errors.As(err, &nonRetry) {
		t.Fatalf("expected non-retryable error, got %v", err)
	}
}

func TestResolveRejectsEmptyPayload(t *testing.T) {
	reg, err := NewEventRegistry(testConfig())
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}

	envelope, err := json.Marshal(outbox.PayloadEnvelope{Version: 1, EventID: uuid.NewString(), Data: json.RawMessage("null")})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	row := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventOrderPlaced,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       envelope,
	}
	if _, err := reg.Resolve(row); err == nil {
		t.Fatal("expected error for null payload")
	}
}
