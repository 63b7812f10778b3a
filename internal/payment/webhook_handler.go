package payment

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/order-fulfillment/internal/transport"
)

// WebhookServiceAPI is the reconciler surface the webhook transport needs.
type WebhookServiceAPI interface {
	ProcessWebhook(env *webhookEnvelope, fingerprint string) (idempotent bool, err error)
}

// WebhookHandler is the inbound notification endpoint. It authenticates the
// raw body, enforces the event contract and always answers 2xx once the event
// is recorded; the provider redelivers until it sees 2xx, and redelivery
// cannot fix a reconciliation failure.
type WebhookHandler struct {
	*transport.BaseHandler
	service WebhookServiceAPI
	gateway GatewayAPI
	logger  *slog.Logger
}

func NewWebhookHandler(baseHandler *transport.BaseHandler, service WebhookServiceAPI, gateway GatewayAPI, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		BaseHandler: baseHandler,
		service:     service,
		gateway:     gateway,
		logger:      logger,
	}
}

// HandleWebhook handles POST /api/v1/payments/webhook
func (h *WebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	rawBody, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Error("failed to read webhook body", "error", err)
		h.writeWebhookError(w, http.StatusBadRequest, "unreadable body")
		return
	}

	signature := r.Header.Get("X-Razorpay-Signature")
	if signature == "" || !h.gateway.VerifyWebhookSignature(rawBody, signature) {
		h.logger.Warn("webhook signature verification failed",
			"signature_present", signature != "")
		h.writeWebhookError(w, http.StatusUnauthorized, "invalid signature")
		return
	}

	var env webhookEnvelope
	if err := json.Unmarshal(rawBody, &env); err != nil {
		h.logger.Error("webhook body is not valid JSON", "error", err)
		h.writeWebhookError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// older gateway configurations omit the body-level id
	if env.ID == "" {
		env.ID = r.Header.Get("X-Razorpay-Event-Id")
	}
	if env.ID == "" || env.Event == "" {
		h.logger.Error("webhook missing event id or type", "event_type", env.Event)
		h.writeWebhookError(w, http.StatusBadRequest, "event id and type are required")
		return
	}

	fingerprint := sha256.Sum256(rawBody)

	idempotent, err := h.service.ProcessWebhook(&env, hex.EncodeToString(fingerprint[:]))
	if err != nil {
		h.logger.Error("failed to record webhook event",
			"event_id", env.ID,
			"error", err)
		h.writeWebhookError(w, http.StatusInternalServerError, "failed to record event")
		return
	}

	body := map[string]interface{}{"status": "ok"}
	if !IsKnownEventType(env.Event) {
		body["status"] = "accepted"
	}
	if idempotent {
		body["idempotent"] = true
	}
	h.WriteJSON(w, http.StatusOK, body)
}

func (h *WebhookHandler) writeWebhookError(w http.ResponseWriter, statusCode int, message string) {
	h.WriteJSON(w, statusCode, map[string]string{"error": message})
}
