package shipping

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/frahmantamala/order-fulfillment/internal/core/datamodel/order"
	"github.com/frahmantamala/order-fulfillment/internal/core/datamodel/shipment"
)

// Sentinel errors surfaced by the repository.
var (
	ErrNotFound = errors.New("shipment not found")
)

// Consignee is the recipient block sent to the logistics provider. Derived
// once from the normalized order metadata; incomplete consignees are a hard
// failure before any provider call.
type Consignee struct {
	Name         string `json:"name"`
	Address      string `json:"address"`
	AddressLine2 string `json:"address_line2,omitempty"`
	City         string `json:"city"`
	State        string `json:"state"`
	Pincode      string `json:"pincode"`
	Phone        string `json:"phone"`
	Email        string `json:"email,omitempty"`
}

func (c *Consignee) marshal() json.RawMessage {
	raw, err := json.Marshal(c)
	if err != nil {
		return nil
	}
	return raw
}

// Parcel carries weight/dimensions/declared value, defaulted from config when
// the order metadata omits them.
type Parcel struct {
	WeightKg      float64 `json:"weight_kg"`
	LengthCm      float64 `json:"length_cm"`
	BreadthCm     float64 `json:"breadth_cm"`
	HeightCm      float64 `json:"height_cm"`
	DeclaredValue float64 `json:"declared_value"`
}

// CreateResult is the outcome of a successful provisioning call.
type CreateResult struct {
	TrackingID     string
	ProviderStatus string
	Raw            json.RawMessage
}

// CancelResult is the outcome of the cancellation strategy chain. Variant
// records which request shape the provider finally accepted.
type CancelResult struct {
	Success    bool            `json:"success"`
	StatusCode int             `json:"status_code"`
	Variant    int             `json:"variant"`
	Body       json.RawMessage `json:"body,omitempty"`
}

// ProviderResponse is one raw answer from the logistics provider. TrackingID
// is extracted from the body when present; validity is decided by the service.
type ProviderResponse struct {
	StatusCode int
	TrackingID string
	Status     string
	Body       json.RawMessage
}

// ProviderAPI is the logistics provider HTTP surface.
type ProviderAPI interface {
	CreateShipment(ctx context.Context, payload map[string]interface{}) (*ProviderResponse, error)
	CancelShipment(ctx context.Context, trackingID string) (*CancelResult, error)
}

// RepositoryAPI persists shipments. One shipment per order, enforced by a
// unique constraint on order_id.
type RepositoryAPI interface {
	Create(sh *shipment.Shipment) error
	GetByOrderID(orderID int64) (*shipment.Shipment, error)
	GetByTrackingID(trackingID string) (*shipment.Shipment, error)
	UpdateStatus(id int64, status string) error
}

// OrderDataAPI is the slice of order persistence provisioning needs: reload
// rows and snapshot provider responses and audit fields onto their metadata.
type OrderDataAPI interface {
	GetByID(id int64) (*order.Order, error)
	MergeMetadata(id int64, fields map[string]interface{}) error
}

// CatalogAPI resolves the seller's registered pickup location.
type CatalogAPI interface {
	PickupLocation(sellerID int64) (string, error)
}

// GatewayAPI is the consignee-name fallback for prepaid orders whose metadata
// carries no name: the gateway order notes are the last place to look.
type GatewayAPI interface {
	FetchOrderNotes(providerOrderID string) (map[string]interface{}, error)
}
