package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gemvault/gemvault-backend/api/controllers"
	webhookcontrollers "github.com/gemvault/gemvault-backend/api/controllers/webhooks"
	"github.com/gemvault/gemvault-backend/api/middleware"
	"github.com/gemvault/gemvault-backend/internal/accounts"
	"github.com/gemvault/gemvault-backend/internal/announcements"
	"github.com/gemvault/gemvault-backend/internal/investments"
	"github.com/gemvault/gemvault-backend/internal/ledger"
	"github.com/gemvault/gemvault-backend/internal/payouts"
	"github.com/gemvault/gemvault-backend/internal/settlement"
	pkgAuth "github.com/gemvault/gemvault-backend/pkg/auth"
	"github.com/gemvault/gemvault-backend/pkg/config"
	"github.com/gemvault/gemvault-backend/pkg/logger"
)

// Pingers names the dependencies the readiness probe checks.
type Pingers map[string]controllers.Pinger

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	readiness Pingers,
	accountsSvc accounts.Service,
	settlementSvc settlement.Service,
	investmentsSvc investments.Service,
	payoutsSvc payouts.Service,
	ledgerSvc ledger.Service,
	announcementsSvc announcements.Service,
	payfastWebhook webhookcontrollers.PayFastWebhookService,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/login", controllers.AuthLogin(accountsSvc, cfg.JWT, logg))
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/payfast-itn", webhookcontrollers.PayFastITN(payfastWebhook, logg))
	})

	// public storefront surface; guest checkout is allowed
	r.Route("/api/v1/public", func(r chi.Router) {
		r.Get("/announcement", controllers.CurrentAnnouncement(announcementsSvc, logg))
		r.Post("/orders", controllers.PlaceOrder(settlementSvc, logg))
		r.Get("/orders/{orderNumber}", controllers.OrderDetail(settlementSvc, logg))
		r.Get("/payment-cancel/{orderNumber}", controllers.PaymentCancelled(settlementSvc, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Get("/me", controllers.MyProfile(accountsSvc, logg))
		r.Get("/me/orders", controllers.MyOrders(settlementSvc, logg))
		r.Get("/me/transactions", controllers.MyTransactions(ledgerSvc, logg))

		// signed-in checkout shares the public handler; the buyer is taken
		// from the bearer token
		r.Post("/orders", controllers.PlaceOrder(settlementSvc, logg))

		r.Route("/investor", func(r chi.Router) {
			r.Use(middleware.RequireInvestor(logg))
			r.Post("/invest/{productId}", controllers.OpenInvestment(investmentsSvc, logg))
			r.Post("/refund/{investmentId}", controllers.RefundInvestment(investmentsSvc, logg))
			r.Get("/investments", controllers.MyInvestments(investmentsSvc, logg))
			r.Post("/payout", controllers.RequestPayout(payoutsSvc, logg))
			r.Get("/payouts", controllers.MyPayouts(payoutsSvc, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(pkgAuth.RoleAdmin, logg))

		r.Patch("/orders/{orderId}/status", controllers.AdminUpdateOrderStatus(settlementSvc, logg))
		r.Get("/payouts", controllers.AdminListPayouts(payoutsSvc, logg))
		r.Put("/payouts/{payoutId}", controllers.AdminUpdatePayoutStatus(payoutsSvc, logg))
		r.Put("/announcement", controllers.AdminPublishAnnouncement(announcementsSvc, logg))
		r.Delete("/announcement", controllers.AdminDeactivateAnnouncement(announcementsSvc, logg))
	})

	return r
}
