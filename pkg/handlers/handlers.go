// Package handlers assembles the HTTP API: one router, one handler
// package per resource, all backed by the ledger engine.
package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/wattbase/wattledger/pkg/api"
	"github.com/wattbase/wattledger/pkg/handlers/devices"
	"github.com/wattbase/wattledger/pkg/handlers/events"
	"github.com/wattbase/wattledger/pkg/handlers/market"
	"github.com/wattbase/wattledger/pkg/handlers/tokens"
	"github.com/wattbase/wattledger/pkg/handlers/wallets"
	wshandler "github.com/wattbase/wattledger/pkg/handlers/websockets"
	"github.com/wattbase/wattledger/pkg/ledger"
	"github.com/wattbase/wattledger/pkg/metrics"
	"github.com/wattbase/wattledger/pkg/middleware"
	"github.com/wattbase/wattledger/pkg/websockets"
)

// NewRouter wires every resource handler onto a chi router with request
// logging and metrics collection.
func NewRouter(eng *ledger.Ledger, hub websockets.ConnectionManager, logger *slog.Logger) http.Handler {
	d := devices.NewDevicesHandler(eng)
	tk := tokens.NewTokensHandler(eng)
	mk := market.NewMarketHandler(eng)
	wl := wallets.NewWalletsHandler(eng)
	ev := events.NewEventsHandler(eng)
	sock := wshandler.NewWebsocketsHandler(hub)

	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(middleware.NewStructuredLogger(logger))
	router.Use(metrics.InstrumentHandler)
	router.Use(chimiddleware.Recoverer)

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		api.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	router.Method(http.MethodGet, "/metrics", metrics.Handler())

	router.Route("/v1", func(r chi.Router) {
		r.Route("/devices", func(r chi.Router) {
			r.Post("/", d.RegisterDevice)
			r.Get("/{deviceId}", d.GetDeviceById)
			r.Post("/{deviceId}/deactivate", d.DeactivateDevice)
		})
		r.Post("/readings", d.CreateReading)

		r.Route("/wallets", func(r chi.Router) {
			r.Get("/{address}", wl.GetWalletByAddress)
			r.Get("/{address}/value", wl.GetWalletValue)
		})

		r.Route("/token", func(r chi.Router) {
			r.Get("/", tk.GetToken)
			r.Post("/mint", tk.Mint)
			r.Post("/transfer", tk.Transfer)
			r.Post("/approve", tk.Approve)
			r.Post("/transferfrom", tk.TransferFrom)
			r.Post("/issuer", tk.SetIssuer)
			r.Get("/balances/{address}", tk.GetBalance)
			r.Get("/allowances/{owner}/{spender}", tk.GetAllowance)
		})

		r.Route("/market", func(r chi.Router) {
			r.Get("/stats", mk.GetStats)
			r.Get("/payouts/{address}", mk.GetPayout)
			r.Route("/listings", func(r chi.Router) {
				r.Post("/", mk.CreateListing)
				r.Get("/", mk.ListListings)
				r.Get("/{listingId}", mk.GetListingById)
				r.Post("/{listingId}/buy", mk.BuyListing)
				r.Post("/{listingId}/offers", mk.CreateOffer)
			})
			r.Route("/offers", func(r chi.Router) {
				r.Get("/{offerId}", mk.GetOfferById)
				r.Post("/{offerId}/accept", mk.AcceptOffer)
			})
		})

		r.Route("/ledger", func(r chi.Router) {
			r.Get("/events", ev.ListEvents)
			r.Get("/audit", ev.GetAudit)
			r.Get("/stream", sock.Stream)
		})
	})

	return router
}
