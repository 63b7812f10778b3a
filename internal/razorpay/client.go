package razorpay

import (
	"encoding/json"
	"fmt"
	"log/slog"

	razorpaygo "github.com/razorpay/razorpay-go"

	"github.com/frahmantamala/order-fulfillment/internal"
)

// ProviderOrder is the subset of the gateway order we keep locally.
type ProviderOrder struct {
	ID       string
	Amount   int64
	Currency string
	Status   string
	Raw      json.RawMessage
}

// Client wraps the Razorpay SDK plus the local HMAC primitives. The SDK is
// only used for provider-side order management; signature verification never
// leaves the process.
type Client struct {
	api           *razorpaygo.Client
	keySecret     string
	webhookSecret string
	logger        *slog.Logger
}

func NewClient(cfg internal.RazorpayConfig, logger *slog.Logger) *Client {
	return &Client{
		api:           razorpaygo.NewClient(cfg.KeyID, cfg.KeySecret),
		keySecret:     cfg.KeySecret,
		webhookSecret: cfg.WebhookSecret,
		logger:        logger,
	}
}

// CreateOrder registers the order with the gateway. Amount is in minor units
// as the gateway expects.
func (c *Client) CreateOrder(amount int64, currency, receipt string, notes map[string]interface{}) (*ProviderOrder, error) {
	data := map[string]interface{}{
		"amount":   amount,
		"currency": currency,
		"receipt":  receipt,
	}
	if len(notes) > 0 {
		data["notes"] = notes
	}

	body, err := c.api.Order.Create(data, nil)
	if err != nil {
		c.logger.Error("gateway order creation failed", "error", err, "receipt", receipt)
		return nil, fmt.Errorf("gateway order creation failed: %w", err)
	}

	id, _ := body["id"].(string)
	if id == "" {
		c.logger.Error("gateway order response missing id", "receipt", receipt)
		return nil, fmt.Errorf("gateway order response missing id")
	}

	raw, err := json.Marshal(body)
	if err != nil {
		raw = nil
	}

	status, _ := body["status"].(string)
	providerAmount := amount
	if f, ok := body["amount"].(float64); ok {
		providerAmount = int64(f)
	}

	c.logger.Info("gateway order created",
		"provider_order_id", id,
		"amount", providerAmount,
		"currency", currency,
		"receipt", receipt)

	return &ProviderOrder{
		ID:       id,
		Amount:   providerAmount,
		Currency: currency,
		Status:   status,
		Raw:      raw,
	}, nil
}

// FetchOrderNotes reads the notes stored on the gateway order. Used as the
// last consignee-name fallback for prepaid orders.
func (c *Client) FetchOrderNotes(providerOrderID string) (map[string]interface{}, error) {
	body, err := c.api.Order.Fetch(providerOrderID, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("gateway order fetch failed: %w", err)
	}

	notes, ok := body["notes"].(map[string]interface{})
	if !ok {
		return map[string]interface{}{}, nil
	}
	return notes, nil
}
