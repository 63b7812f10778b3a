package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/order-fulfillment/internal"
	"github.com/frahmantamala/order-fulfillment/internal/order"
	"github.com/frahmantamala/order-fulfillment/internal/payment"
	"github.com/frahmantamala/order-fulfillment/internal/shipping"
	"github.com/frahmantamala/order-fulfillment/internal/transport/middleware"
	"github.com/frahmantamala/order-fulfillment/internal/transport/swagger"
)

// RegisterAllRoutes wires the fulfillment pipeline endpoints. Identity is
// stamped, never enforced: authorization belongs to the session service, this
// pipeline only records who placed the order.
func RegisterAllRoutes(
	router *chi.Mux,
	db *sql.DB,
	cfg *internal.Config,
	orderHandler *order.Handler,
	paymentHandler *payment.Handler,
	webhookHandler *payment.WebhookHandler,
	shippingHandler *shipping.Handler,
	logger *slog.Logger,
) {
	healthHandler := NewHealthHandler(db)

	publicKey, err := cfg.Security.GetPublicKey()
	if err != nil {
		logger.Warn("session public key unavailable, requests are treated as anonymous", "error", err)
	}

	router.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))

	// OpenAPI spec and Swagger UI live at root, outside the API prefix
	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	router.Handle("/swagger/*", swagger.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.readinessHandler)
		r.Get("/ping", healthHandler.livenessHandler)

		// webhook is authenticated by its body signature, not a session
		if webhookHandler != nil {
			r.Post("/payments/webhook", webhookHandler.HandleWebhook)
		}

		r.Group(func(ar chi.Router) {
			ar.Use(middleware.Identity(publicKey, logger))

			if orderHandler != nil {
				ar.Post("/orders", orderHandler.CreateOrder)
			}
			if paymentHandler != nil {
				ar.Post("/payments/verify", paymentHandler.VerifyPayment)
			}
			if shippingHandler != nil {
				ar.Post("/shipments/{awb}/cancel", shippingHandler.CancelShipment)
			}
		})
	})
}
