package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/giftlane/giftlane-backend/api/controllers"
	"github.com/giftlane/giftlane-backend/api/middleware"
	cartsvc "github.com/giftlane/giftlane-backend/internal/cart"
	ordersvc "github.com/giftlane/giftlane-backend/internal/orders"
	pricingsvc "github.com/giftlane/giftlane-backend/internal/pricing"
	stocksvc "github.com/giftlane/giftlane-backend/internal/stock"
	walletsvc "github.com/giftlane/giftlane-backend/internal/wallet"
	"github.com/giftlane/giftlane-backend/pkg/auth/session"
	"github.com/giftlane/giftlane-backend/pkg/config"
	"github.com/giftlane/giftlane-backend/pkg/logger"
)

// SessionStore issues guest sessions and validates them on later calls.
type SessionStore interface {
	session.Checker
	Issue(ctx context.Context) (string, error)
}

// Deps carries everything the HTTP surface needs. Keeping it a struct
// saves the router signature from growing a parameter per service.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       controllers.Pinger
	Cache    controllers.Pinger
	Sessions SessionStore
	Carts    cartsvc.Service
	Pricing  pricingsvc.Service
	Orders   ordersvc.Service
	Stocks   stocksvc.Service
	Wallets  walletsvc.Service
}

func NewRouter(d Deps) http.Handler {
	cfg := d.Config
	logg := d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Get("/healthz", controllers.Healthz(d.DB, d.Cache))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/guest-sessions", controllers.CreateGuestSession(d.Sessions, logg))

		// Cart and quoting accept either a bearer token or a guest
		// session header.
		r.Group(func(r chi.Router) {
			r.Use(middleware.ShopperIdentity(cfg.JWT, d.Sessions, logg))
			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.GetCart(d.Carts, logg))
				r.Delete("/", controllers.ClearCart(d.Carts, logg))
				r.Post("/lines", controllers.AddCartLine(d.Carts, logg))
				r.Patch("/lines/{lineID}/quantity", controllers.UpdateCartLineQuantity(d.Carts, logg))
				r.Put("/lines/{lineID}", controllers.UpdateCartLine(d.Carts, logg))
				r.Delete("/lines/{lineID}", controllers.RemoveCartLine(d.Carts, logg))
				r.Post("/quote", controllers.QuoteCart(d.Carts, d.Pricing, logg))
			})
			r.Get("/items/{itemID}/availability", controllers.GetAvailability(d.Stocks, logg))
		})

		// Everything below requires a real account.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))

			r.Post("/cart/merge", controllers.MergeCart(d.Carts, logg))

			r.Route("/orders", func(r chi.Router) {
				r.Post("/", controllers.PlaceOrder(d.Orders, logg))
				r.Get("/", controllers.ListOrders(d.Orders, logg))
				r.Get("/{orderID}", controllers.GetOrder(d.Orders, logg))
				r.Get("/{orderID}/timeline", controllers.GetOrderTimeline(d.Orders, logg))
				r.Post("/{orderID}/transition", controllers.TransitionOrder(d.Orders, logg))
				r.Post("/{orderID}/details", controllers.SubmitOrderDetails(d.Orders, logg))
			})
			r.Route("/order-items/{itemID}/preview", func(r chi.Router) {
				r.Post("/approve", controllers.ApprovePreview(d.Orders, logg))
				r.Post("/changes", controllers.RequestPreviewChange(d.Orders, logg))
			})
			r.Get("/wallet", controllers.GetWallet(d.Wallets, logg))

			r.Route("/partner", func(r chi.Router) {
				r.Use(middleware.RequirePartner(logg))
				r.Get("/orders", controllers.ListPartnerOrders(d.Orders, logg))
				r.Post("/orders/{orderID}/transition", controllers.TransitionOrder(d.Orders, logg))
				r.Post("/order-items/{itemID}/preview", controllers.SubmitPreview(d.Orders, logg))
				r.Post("/stock", controllers.SetStock(d.Stocks, logg))
			})
		})
	})

	return r
}
