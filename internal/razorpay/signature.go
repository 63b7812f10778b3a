package razorpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// VerifyPaymentSignature recomputes the HMAC the gateway signs the checkout
// callback with: SHA-256 over "orderID|paymentID" keyed by the key secret.
// The comparison is constant time.
func (c *Client) VerifyPaymentSignature(providerOrderID, providerPaymentID, signature string) bool {
	return verifyHMAC([]byte(providerOrderID+"|"+providerPaymentID), signature, c.keySecret)
}

// VerifyWebhookSignature checks the webhook header signature against the raw,
// unparsed request body. The webhook secret is distinct from the key secret.
func (c *Client) VerifyWebhookSignature(rawBody []byte, signature string) bool {
	return verifyHMAC(rawBody, signature, c.webhookSecret)
}

func verifyHMAC(payload []byte, signature, secret string) bool {
	if signature == "" || secret == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// SignPayment produces the checkout-style payment signature. Only used by
// tests and local tooling; the verifier above is the production path.
func SignPayment(providerOrderID, providerPaymentID, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(providerOrderID + "|" + providerPaymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// SignWebhook produces the webhook body signature with the webhook secret.
func SignWebhook(rawBody []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(rawBody)
	return hex.EncodeToString(mac.Sum(nil))
}
