package order

import (
	"encoding/json"
	"strconv"
	"strings"
)

// ShippingInfo is the normalized view of the order metadata bag. Callers
// normalize once at the intake/verification boundary instead of re-deriving
// key variants at every consumer.
type ShippingInfo struct {
	FullName      string  `json:"full_name,omitempty"`
	FirstName     string  `json:"first_name,omitempty"`
	LastName      string  `json:"last_name,omitempty"`
	Address       string  `json:"address,omitempty"`
	AddressLine2  string  `json:"address_line2,omitempty"`
	City          string  `json:"city,omitempty"`
	State         string  `json:"state,omitempty"`
	Pincode       string  `json:"pincode,omitempty"`
	Phone         string  `json:"phone,omitempty"`
	Email         string  `json:"email,omitempty"`
	ProductID     *int64  `json:"product_id,omitempty"`
	ProductName   string  `json:"product_name,omitempty"`
	SellerID      *int64  `json:"seller_id,omitempty"`
	WeightKg      float64 `json:"weight_kg,omitempty"`
	LengthCm      float64 `json:"length_cm,omitempty"`
	BreadthCm     float64 `json:"breadth_cm,omitempty"`
	HeightCm      float64 `json:"height_cm,omitempty"`
	DeclaredValue float64 `json:"declared_value,omitempty"`
}

// metadata arrives with shipping fields either nested under an address object
// or flat, with snake_case or camelCase keys depending on which client wrote it.
var nestedKeys = []string{"shipping_address", "shippingAddress", "address", "shipping"}

// ParseShippingInfo normalizes the raw metadata bag into a ShippingInfo.
// Unknown fields are ignored; a nil or empty bag yields an empty struct.
func ParseShippingInfo(raw json.RawMessage) (*ShippingInfo, error) {
	info := &ShippingInfo{}
	if len(raw) == 0 {
		return info, nil
	}

	var bag map[string]json.RawMessage
	if err := json.Unmarshal(raw, &bag); err != nil {
		return nil, err
	}

	flat := map[string]json.RawMessage{}
	for k, v := range bag {
		flat[normalizeKey(k)] = v
	}

	// nested address objects are flattened over the top-level keys
	for _, key := range nestedKeys {
		if nested, ok := bag[key]; ok {
			var inner map[string]json.RawMessage
			if err := json.Unmarshal(nested, &inner); err == nil {
				for k, v := range inner {
					flat[normalizeKey(k)] = v
				}
			}
		}
	}

	info.FullName = stringField(flat, "full_name", "name", "customer_name", "consignee_name")
	info.FirstName = stringField(flat, "first_name")
	info.LastName = stringField(flat, "last_name")
	info.Address = stringField(flat, "address", "address_line1", "street", "line1")
	info.AddressLine2 = stringField(flat, "address_line2", "line2")
	info.City = stringField(flat, "city")
	info.State = stringField(flat, "state")
	info.Pincode = stringField(flat, "pincode", "pin_code", "postal_code", "zip")
	info.Phone = stringField(flat, "phone", "phone_number", "mobile", "contact")
	info.Email = stringField(flat, "email")
	info.ProductName = stringField(flat, "product_name")
	info.ProductID = intField(flat, "product_id")
	info.SellerID = intField(flat, "seller_id")
	info.WeightKg = floatField(flat, "weight_kg", "weight")
	info.LengthCm = floatField(flat, "length_cm", "length")
	info.BreadthCm = floatField(flat, "breadth_cm", "breadth", "width")
	info.HeightCm = floatField(flat, "height_cm", "height")
	info.DeclaredValue = floatField(flat, "declared_value")

	return info, nil
}

// NormalizeMetadata merges the canonical snake_case shipping keys over the
// original bag so downstream consumers read one convention. Unknown fields
// survive untouched.
func NormalizeMetadata(raw json.RawMessage) (json.RawMessage, *ShippingInfo, error) {
	info, err := ParseShippingInfo(raw)
	if err != nil {
		return nil, nil, err
	}

	bag := map[string]json.RawMessage{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &bag); err != nil {
			return nil, nil, err
		}
	}

	infoJSON, err := json.Marshal(info)
	if err != nil {
		return nil, nil, err
	}
	var canonical map[string]json.RawMessage
	if err := json.Unmarshal(infoJSON, &canonical); err != nil {
		return nil, nil, err
	}
	for k, v := range canonical {
		bag[k] = v
	}

	merged, err := json.Marshal(bag)
	if err != nil {
		return nil, nil, err
	}
	return merged, info, nil
}

// ConsigneeName prefers an explicit full name, then joined first/last name.
// Empty means the caller must fall back to gateway order notes (prepaid only).
func (s *ShippingInfo) ConsigneeName() string {
	if s.FullName != "" {
		return s.FullName
	}
	name := strings.TrimSpace(s.FirstName + " " + s.LastName)
	return name
}

// MissingConsigneeFields returns the required shipping fields that are absent.
// Shipment creation must not be attempted while any are missing.
func (s *ShippingInfo) MissingConsigneeFields() []string {
	var missing []string
	if s.Address == "" {
		missing = append(missing, "address")
	}
	if s.City == "" {
		missing = append(missing, "city")
	}
	if s.State == "" {
		missing = append(missing, "state")
	}
	if s.Pincode == "" {
		missing = append(missing, "pincode")
	}
	if s.Phone == "" {
		missing = append(missing, "phone")
	}
	return missing
}

// normalizeKey lowers camelCase keys into snake_case so both client
// conventions hit the same lookup table.
func normalizeKey(key string) string {
	var b strings.Builder
	for i, r := range key {
		if r >= 'A' && r <= 'Z' {
			if i > 0 && key[i-1] != '_' {
				b.WriteByte('_')
			}
			b.WriteRune(r - 'A' + 'a')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func stringField(flat map[string]json.RawMessage, keys ...string) string {
	for _, key := range keys {
		raw, ok := flat[key]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && s != "" {
			return s
		}
	}
	return ""
}

func intField(flat map[string]json.RawMessage, keys ...string) *int64 {
	for _, key := range keys {
		raw, ok := flat[key]
		if !ok {
			continue
		}
		var n int64
		if err := json.Unmarshal(raw, &n); err == nil {
			return &n
		}
		// some clients send numeric ids as strings
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && s != "" {
			if parsed, err := strconv.ParseInt(s, 10, 64); err == nil {
				return &parsed
			}
		}
	}
	return nil
}

func floatField(flat map[string]json.RawMessage, keys ...string) float64 {
	for _, key := range keys {
		raw, ok := flat[key]
		if !ok {
			continue
		}
		var f float64
		if err := json.Unmarshal(raw, &f); err == nil {
			return f
		}
	}
	return 0
}
