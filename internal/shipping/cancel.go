package shipping

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// cancelVariant is one request shape against the provider's cancellation
// endpoint. The provider's accepted payload shape is inconsistent across
// accounts and not reliably documented, so the executor walks a fixed ordered
// list instead of hard-coding one shape.
type cancelVariant func(ctx context.Context, c *Client, trackingID string) (*http.Response, error)

var cancelVariants = []cancelVariant{
	cancelJSONStringFlag,
	cancelJSONBoolFlag,
	cancelFormFlag,
	cancelFormAltFlagName,
	cancelFormArrayKey,
	cancelAltEndpointGet,
	cancelAltEndpointForm,
	cancelFormNestedJSON,
}

// CancelShipment walks the variant list in order; the first 2xx response wins
// and short-circuits the chain. If every variant fails, variant 1 is replayed
// once so the caller sees the most representative error response.
func (c *Client) CancelShipment(ctx context.Context, trackingID string) (*CancelResult, error) {
	for i, variant := range cancelVariants {
		result, err := c.tryCancel(ctx, variant, trackingID, i+1)
		if err != nil {
			c.logger.Warn("cancellation variant errored",
				"tracking_id", trackingID,
				"variant", i+1,
				"error", err)
			continue
		}
		if result.Success {
			c.logger.Info("shipment cancelled",
				"tracking_id", trackingID,
				"variant", i+1,
				"status_code", result.StatusCode)
			return result, nil
		}
		c.logger.Debug("cancellation variant rejected",
			"tracking_id", trackingID,
			"variant", i+1,
			"status_code", result.StatusCode)
	}

	// all variants failed; replay the first purely to surface its error body
	result, err := c.tryCancel(ctx, cancelVariants[0], trackingID, 1)
	if err != nil {
		return nil, fmt.Errorf("all cancellation variants failed for %s: %w", trackingID, err)
	}
	c.logger.Error("all cancellation variants rejected",
		"tracking_id", trackingID,
		"final_status_code", result.StatusCode)
	return result, nil
}

func (c *Client) tryCancel(ctx context.Context, variant cancelVariant, trackingID string, variantNum int) (*CancelResult, error) {
	resp, err := variant(ctx, c, trackingID)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read cancellation response: %w", err)
	}

	// providers occasionally answer with HTML error pages
	raw := json.RawMessage(body)
	if !json.Valid(body) {
		raw, _ = json.Marshal(string(body))
	}

	return &CancelResult{
		Success:    resp.StatusCode >= 200 && resp.StatusCode < 300,
		StatusCode: resp.StatusCode,
		Variant:    variantNum,
		Body:       raw,
	}, nil
}

func (c *Client) cancelURL(trackingID string) string {
	return c.baseURL + "/shipments/" + url.PathEscape(trackingID) + "/cancel"
}

func (c *Client) alternateCancelURL() string {
	path := c.alternateCancelPath
	if path == "" {
		path = "/courier/cancel"
	}
	return c.baseURL + path
}

func cancelJSONStringFlag(ctx context.Context, c *Client, trackingID string) (*http.Response, error) {
	body, _ := json.Marshal(map[string]interface{}{"cancelled": "true"})
	return c.post(ctx, c.cancelURL(trackingID), "application/json", body)
}

func cancelJSONBoolFlag(ctx context.Context, c *Client, trackingID string) (*http.Response, error) {
	body, _ := json.Marshal(map[string]interface{}{"cancelled": true})
	return c.post(ctx, c.cancelURL(trackingID), "application/json", body)
}

func cancelFormFlag(ctx context.Context, c *Client, trackingID string) (*http.Response, error) {
	form := url.Values{}
	form.Set("cancelled", "true")
	form.Set("awb", trackingID)
	return c.post(ctx, c.cancelURL(trackingID), "application/x-www-form-urlencoded", []byte(form.Encode()))
}

func cancelFormAltFlagName(ctx context.Context, c *Client, trackingID string) (*http.Response, error) {
	form := url.Values{}
	form.Set("is_cancelled", "true")
	form.Set("awb", trackingID)
	return c.post(ctx, c.cancelURL(trackingID), "application/x-www-form-urlencoded", []byte(form.Encode()))
}

func cancelFormArrayKey(ctx context.Context, c *Client, trackingID string) (*http.Response, error) {
	form := url.Values{}
	form.Set("cancelled", "true")
	form.Set("awb[]", trackingID)
	return c.post(ctx, c.cancelURL(trackingID), "application/x-www-form-urlencoded", []byte(form.Encode()))
}

func cancelAltEndpointGet(ctx context.Context, c *Client, trackingID string) (*http.Response, error) {
	return c.get(ctx, c.alternateCancelURL()+"?awb="+url.QueryEscape(trackingID))
}

func cancelAltEndpointForm(ctx context.Context, c *Client, trackingID string) (*http.Response, error) {
	form := url.Values{}
	form.Set("awb", trackingID)
	form.Set("cancelled", "true")
	return c.post(ctx, c.alternateCancelURL(), "application/x-www-form-urlencoded", []byte(form.Encode()))
}

func cancelFormNestedJSON(ctx context.Context, c *Client, trackingID string) (*http.Response, error) {
	nested, _ := json.Marshal(map[string]interface{}{"awb": trackingID, "cancelled": true})
	form := url.Values{}
	form.Set("payload", string(nested))
	return c.post(ctx, c.cancelURL(trackingID), "application/x-www-form-urlencoded", []byte(form.Encode()))
}
