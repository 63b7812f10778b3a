package shipping_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/order-fulfillment/internal"
	shippingpkg "github.com/frahmantamala/order-fulfillment/internal/shipping"
)

func newTestClient(baseURL string) *shippingpkg.Client {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	return shippingpkg.NewClient(internal.ShippingConfig{
		BaseURL:  baseURL,
		APIToken: "test-token",
	}, logger)
}

var _ = Describe("Provider Client", func() {
	Describe("CreateShipment", func() {
		It("extracts a top-level awb and status", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				Expect(r.Header.Get("Authorization")).To(Equal("Bearer test-token"))
				w.WriteHeader(http.StatusCreated)
				w.Write([]byte(`{"awb":"AWB1","status":"created"}`))
			}))
			defer server.Close()

			resp, err := newTestClient(server.URL).CreateShipment(context.Background(), map[string]interface{}{"order_id": 1})

			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusCreated))
			Expect(resp.TrackingID).To(Equal("AWB1"))
			Expect(resp.Status).To(Equal("created"))
		})

		It("digs the tracking id out of a nested data object", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"data":{"awb_code":"AWB2","shipment_status":"pickup_scheduled"}}`))
			}))
			defer server.Close()

			resp, err := newTestClient(server.URL).CreateShipment(context.Background(), map[string]interface{}{})

			Expect(err).NotTo(HaveOccurred())
			Expect(resp.TrackingID).To(Equal("AWB2"))
			Expect(resp.Status).To(Equal("pickup_scheduled"))
		})

		It("accepts numeric waybills", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"waybill":123456789}`))
			}))
			defer server.Close()

			resp, err := newTestClient(server.URL).CreateShipment(context.Background(), map[string]interface{}{})

			Expect(err).NotTo(HaveOccurred())
			Expect(resp.TrackingID).To(Equal("123456789"))
		})

		It("returns non-2xx responses as-is for the service to judge", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnprocessableEntity)
				w.Write([]byte(`{"error":"invalid pincode"}`))
			}))
			defer server.Close()

			resp, err := newTestClient(server.URL).CreateShipment(context.Background(), map[string]interface{}{})

			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusUnprocessableEntity))
			Expect(resp.TrackingID).To(BeEmpty())
		})
	})

	Describe("CancelShipment", func() {
		// recordedRequest captures enough of each attempt to tell variants apart.
		type recordedRequest struct {
			method      string
			path        string
			contentType string
			body        string
			query       url.Values
		}

		var requests []recordedRequest

		record := func(r *http.Request) recordedRequest {
			body, _ := io.ReadAll(r.Body)
			rec := recordedRequest{
				method:      r.Method,
				path:        r.URL.EscapedPath(),
				contentType: r.Header.Get("Content-Type"),
				body:        string(body),
				query:       r.URL.Query(),
			}
			requests = append(requests, rec)
			return rec
		}

		BeforeEach(func() {
			requests = nil
		})

		It("stops at the first variant the provider accepts", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				rec := record(r)
				// only the form shape with is_cancelled is accepted
				if strings.Contains(rec.contentType, "x-www-form-urlencoded") && strings.Contains(rec.body, "is_cancelled=true") {
					w.Write([]byte(`{"cancelled":true}`))
					return
				}
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(`{"error":"unsupported payload"}`))
			}))
			defer server.Close()

			result, err := newTestClient(server.URL).CancelShipment(context.Background(), "AWB900")

			Expect(err).NotTo(HaveOccurred())
			Expect(result.Success).To(BeTrue())
			Expect(result.Variant).To(Equal(4))
			Expect(result.StatusCode).To(Equal(http.StatusOK))
			Expect(requests).To(HaveLen(4))
			Expect(requests[0].contentType).To(ContainSubstring("json"))
			Expect(requests[0].body).To(MatchJSON(`{"cancelled":"true"}`))
			Expect(requests[1].body).To(MatchJSON(`{"cancelled":true}`))
		})

		It("falls through to the alternate endpoint", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				rec := record(r)
				if rec.method == http.MethodGet && rec.path == "/courier/cancel" && rec.query.Get("awb") == "AWB900" {
					w.Write([]byte(`{"cancelled":true}`))
					return
				}
				w.WriteHeader(http.StatusBadRequest)
			}))
			defer server.Close()

			result, err := newTestClient(server.URL).CancelShipment(context.Background(), "AWB900")

			Expect(err).NotTo(HaveOccurred())
			Expect(result.Success).To(BeTrue())
			Expect(result.Variant).To(Equal(6))
			Expect(requests).To(HaveLen(6))
		})

		It("replays the first variant when every shape is rejected", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				record(r)
				w.WriteHeader(http.StatusConflict)
				w.Write([]byte(`{"error":"shipment already dispatched"}`))
			}))
			defer server.Close()

			result, err := newTestClient(server.URL).CancelShipment(context.Background(), "AWB900")

			Expect(err).NotTo(HaveOccurred())
			Expect(result.Success).To(BeFalse())
			Expect(result.Variant).To(Equal(1))
			Expect(result.StatusCode).To(Equal(http.StatusConflict))
			Expect(result.Body).To(MatchJSON(`{"error":"shipment already dispatched"}`))
			// 8 variants plus the final replay of variant 1
			Expect(requests).To(HaveLen(9))
		})

		It("wraps non-JSON provider answers so the result still marshals", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`<html>cancelled</html>`))
			}))
			defer server.Close()

			result, err := newTestClient(server.URL).CancelShipment(context.Background(), "AWB900")

			Expect(err).NotTo(HaveOccurred())
			Expect(result.Success).To(BeTrue())
			Expect(result.Variant).To(Equal(1))

			var asString string
			Expect(json.Unmarshal(result.Body, &asString)).To(Succeed())
			Expect(asString).To(Equal("<html>cancelled</html>"))

			_, marshalErr := json.Marshal(result)
			Expect(marshalErr).NotTo(HaveOccurred())
		})

		It("escapes the tracking id in the cancellation path", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				record(r)
				w.Write([]byte(`{"cancelled":true}`))
			}))
			defer server.Close()

			_, err := newTestClient(server.URL).CancelShipment(context.Background(), "AWB/900")

			Expect(err).NotTo(HaveOccurred())
			Expect(requests[0].path).To(Equal("/shipments/AWB%2F900/cancel"))
		})
	})
})
