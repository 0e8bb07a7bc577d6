package routes

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/giftlane/giftlane-backend/internal/cart"
	"github.com/giftlane/giftlane-backend/internal/orders"
	"github.com/giftlane/giftlane-backend/internal/pricing"
	"github.com/giftlane/giftlane-backend/internal/stock"
	pkgauth "github.com/giftlane/giftlane-backend/pkg/auth"
	"github.com/giftlane/giftlane-backend/pkg/config"
	"github.com/giftlane/giftlane-backend/pkg/db/models"
	"github.com/giftlane/giftlane-backend/pkg/enums"
	"github.com/giftlane/giftlane-backend/pkg/logger"
	"github.com/giftlane/giftlane-backend/pkg/outbox"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error { return nil }

type stubSessionStore struct {
	issued string
	known  map[string]bool
}

func (s *stubSessionStore) Issue(context.Context) (string, error) {
	return s.issued, nil
}

func (s *stubSessionStore) Validate(_ context.Context, sessionID string) error {
	if s.known[sessionID] {
		return nil
	}
	return context.Canceled
}

type stubCartService struct{}

func (stubCartService) GetCart(context.Context, cart.Owner) ([]models.CartLine, error) {
	return nil, nil
}

func (stubCartService) AddLine(context.Context, cart.Owner, cart.AddLineInput) (*models.CartLine, error) {
	return &models.CartLine{ID: uuid.New(), Quantity: 1}, nil
}

func (stubCartService) UpdateLineQuantity(context.Context, cart.Owner, uuid.UUID, int) (*models.CartLine, error) {
	return nil, nil
}

func (stubCartService) UpdateLine(context.Context, cart.Owner, uuid.UUID, cart.UpdateLineInput) (*models.CartLine, error) {
	return nil, nil
}

func (stubCartService) RemoveLine(context.Context, cart.Owner, uuid.UUID) error { return nil }

func (stubCartService) Clear(context.Context, cart.Owner) error { return nil }

func (stubCartService) ClearTx(context.Context, *gorm.DB, cart.Owner) error { return nil }

func (stubCartService) Merge(context.Context, string, uuid.UUID) error { return nil }

type stubPricingService struct{}

func (stubPricingService) Quote(context.Context, pricing.Input) (*pricing.Breakdown, error) {
	return nil, nil
}

func (stubPricingService) QuoteTx(context.Context, *gorm.DB, pricing.Input) (*pricing.Breakdown, error) {
	return nil, nil
}

type stubOrdersService struct{}

func (stubOrdersService) Place(context.Context, orders.PlaceInput) (*models.Order, error) {
	return nil, nil
}

func (stubOrdersService) Get(context.Context, uuid.UUID) (*models.Order, error) {
	return nil, nil
}

func (stubOrdersService) ListForUser(context.Context, uuid.UUID, int) ([]models.Order, error) {
	return nil, nil
}

func (stubOrdersService) ListForPartner(context.Context, uuid.UUID, int) ([]models.Order, error) {
	return nil, nil
}

func (stubOrdersService) Timeline(context.Context, uuid.UUID) ([]models.TimelineEvent, error) {
	return nil, nil
}

func (stubOrdersService) Transition(context.Context, uuid.UUID, enums.OrderStatus, outbox.ActorRef) (*models.Order, error) {
	return nil, nil
}

func (stubOrdersService) SubmitDetails(context.Context, uuid.UUID, orders.DetailsInput, outbox.ActorRef) (*models.Order, error) {
	return nil, nil
}

func (stubOrdersService) SubmitPreview(context.Context, uuid.UUID, string, *string, outbox.ActorRef) (*models.PreviewSubmission, error) {
	return nil, nil
}

func (stubOrdersService) ApprovePreview(context.Context, uuid.UUID, outbox.ActorRef) error {
	return nil
}

func (stubOrdersService) RequestChange(context.Context, uuid.UUID, string, outbox.ActorRef) error {
	return nil
}

type stubStockService struct{}

func (stubStockService) AvailableStock(context.Context, stock.UnitRef) (int, error) { return 7, nil }

func (stubStockService) SetOnHand(context.Context, stock.UnitRef, int) error { return nil }

type stubWalletService struct{}

func (stubWalletService) Balance(context.Context, uuid.UUID) (int, error) { return 0, nil }

func (stubWalletService) Entries(context.Context, uuid.UUID, int) ([]models.WalletEntry, error) {
	return nil, nil
}

func (stubWalletService) DebitTx(context.Context, *gorm.DB, uuid.UUID, int, uuid.UUID) error {
	return nil
}

func (stubWalletService) CreditTx(context.Context, *gorm.DB, uuid.UUID, int, enums.WalletEntryType, *uuid.UUID, string) error {
	return nil
}

func testRouter(t *testing.T, sessions *stubSessionStore) (http.Handler, *config.Config) {
	t.Helper()
	cfg := &config.Config{}
	cfg.App.Env = "test"
	cfg.JWT.Secret = "router-test-secret"
	cfg.JWT.Issuer = "giftlane-test"
	cfg.JWT.ExpirationMinutes = 30

	logg := logger.New(logger.Options{ServiceName: "router-test", Output: io.Discard})

	handler := NewRouter(Deps{
		Config:   cfg,
		Logger:   logg,
		DB:       stubPinger{},
		Cache:    stubPinger{},
		Sessions: sessions,
		Carts:    stubCartService{},
		Pricing:  stubPricingService{},
		Orders:   stubOrdersService{},
		Stocks:   stubStockService{},
		Wallets:  stubWalletService{},
	})
	return handler, cfg
}

func mintToken(t *testing.T, cfg *config.Config, role enums.ActorRole, partnerID *uuid.UUID) string {
	t.Helper()
	token, err := pkgauth.MintAccessToken(cfg.JWT, time.Now(), pkgauth.AccessTokenPayload{
		UserID:    uuid.New(),
		Role:      role,
		PartnerID: partnerID,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestRouterHealthzIsPublic(t *testing.T) {
	handler, _ := testRouter(t, &stubSessionStore{})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("healthz status = %d", rec.Code)
	}
}

func TestRouterGuestSessionFlow(t *testing.T) {
	sessions := &stubSessionStore{issued: "guest-1", known: map[string]bool{"guest-1": true}}
	handler, _ := testRouter(t, sessions)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/guest-sessions", nil))
	if rec.Code != http.StatusCreated {
		t.Fatalf("guest session status = %d, body %s", rec.Code, rec.Body.String())
	}
	var envelope struct {
		Data struct {
			SessionID string `json:"session_id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.SessionID != "guest-1" {
		t.Fatalf("session id = %q", envelope.Data.SessionID)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart/", nil)
	req.Header.Set("X-Guest-Session", "guest-1")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("guest cart status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestRouterCartRejectsAnonymousCallers(t *testing.T) {
	handler, _ := testRouter(t, &stubSessionStore{})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/cart/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous cart status = %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart/", nil)
	req.Header.Set("X-Guest-Session", "unknown")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("stale guest session status = %d", rec.Code)
	}
}

func TestRouterOrdersRequireBearerToken(t *testing.T) {
	handler, cfg := testRouter(t, &stubSessionStore{})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/orders/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous orders status = %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, cfg, enums.RoleCustomer, nil))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("authed orders status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestRouterPartnerRoutesRejectCustomers(t *testing.T) {
	handler, cfg := testRouter(t, &stubSessionStore{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/partner/orders", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, cfg, enums.RoleCustomer, nil))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("customer on partner route status = %d", rec.Code)
	}

	partnerID := uuid.New()
	req = httptest.NewRequest(http.MethodGet, "/api/v1/partner/orders", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, cfg, enums.RolePartner, &partnerID))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("partner orders status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestRouterStockWriteIsPartnerOnly(t *testing.T) {
	handler, cfg := testRouter(t, &stubSessionStore{})
	partnerID := uuid.New()
	body := `{"item_id":"` + uuid.NewString() + `","on_hand":4}`

	req := httptest.NewRequest(http.MethodPost, "/api/v1/partner/stock", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+mintToken(t, cfg, enums.RolePartner, &partnerID))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("partner stock write status = %d, body %s", rec.Code, rec.Body.String())
	}
}
