package shipping

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/frahmantamala/order-fulfillment/internal"
)

// Client talks to the logistics provider over HTTP. All calls carry explicit
// timeouts; provider calls must never hang a request handler.
type Client struct {
	baseURL             string
	apiToken            string
	alternateCancelPath string
	timeout             time.Duration
	httpClient          *http.Client
	logger              *slog.Logger
}

func NewClient(cfg internal.ShippingConfig, logger *slog.Logger) *Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:             cfg.BaseURL,
		apiToken:            cfg.APIToken,
		alternateCancelPath: cfg.AlternateCancelPath,
		timeout:             timeout,
		httpClient:          &http.Client{Timeout: timeout},
		logger:              logger,
	}
}

// CreateShipment posts the shipment request and returns the raw provider
// answer. Transient network failures get exactly one retry; non-2xx responses
// are returned as-is for the service to judge, never retried.
func (c *Client) CreateShipment(ctx context.Context, payload map[string]interface{}) (*ProviderResponse, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal shipment request: %w", err)
	}

	resp, err := c.post(ctx, c.baseURL+"/shipments", "application/json", jsonData)
	if err != nil {
		c.logger.Warn("shipment creation request failed, retrying once", "error", err)
		resp, err = c.post(ctx, c.baseURL+"/shipments", "application/json", jsonData)
		if err != nil {
			return nil, fmt.Errorf("shipment provider unreachable: %w", err)
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read provider response: %w", err)
	}

	parsed := &ProviderResponse{
		StatusCode: resp.StatusCode,
		Body:       body,
	}
	parsed.TrackingID, parsed.Status = extractShipmentFields(body)

	c.logger.Info("shipment provider responded",
		"status_code", parsed.StatusCode,
		"tracking_id", parsed.TrackingID)

	return parsed, nil
}

func (c *Client) post(ctx context.Context, url, contentType string, body []byte) (*http.Response, error) {
	reqCtx, cancel := internal.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Authorization", "Bearer "+c.apiToken)

	return c.httpClient.Do(httpReq)
}

func (c *Client) get(ctx context.Context, url string) (*http.Response, error) {
	reqCtx, cancel := internal.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiToken)

	return c.httpClient.Do(httpReq)
}

// extractShipmentFields digs the tracking id and provider status out of the
// response body. Providers are inconsistent about key names and nesting, so
// several spellings are checked, top-level first, then under data/shipment.
func extractShipmentFields(body []byte) (trackingID, status string) {
	var parsed map[string]json.RawMessage
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", ""
	}

	trackingID = firstString(parsed, "awb", "awb_code", "tracking_id", "waybill")
	status = firstString(parsed, "status", "shipment_status", "current_status")

	for _, nestedKey := range []string{"data", "shipment"} {
		nested, ok := parsed[nestedKey]
		if !ok {
			continue
		}
		var inner map[string]json.RawMessage
		if err := json.Unmarshal(nested, &inner); err != nil {
			continue
		}
		if trackingID == "" {
			trackingID = firstString(inner, "awb", "awb_code", "tracking_id", "waybill")
		}
		if status == "" {
			status = firstString(inner, "status", "shipment_status", "current_status")
		}
	}
	return trackingID, status
}

func firstString(m map[string]json.RawMessage, keys ...string) string {
	for _, key := range keys {
		raw, ok := m[key]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && s != "" {
			return s
		}
		// some providers return numeric waybills
		var n json.Number
		if err := json.Unmarshal(raw, &n); err == nil && n.String() != "" {
			return n.String()
		}
	}
	return ""
}
