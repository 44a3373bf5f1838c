package listing

import (
	"fmt"
	"strings"
)

type columnSet map[string]struct{}

func newColumnSet(cols ...string) columnSet {
	s := make(columnSet, len(cols))
	for _, c := range cols {
		s[c] = struct{}{}
	}
	return s
}

func (s columnSet) has(col string) bool {
	_, ok := s[col]
	return ok
}

// listingColumns are the caller-writable listing columns. Server-controlled
// fields (id, user_id, vertical_id, public_profile_id, timestamps, document_urls)
// are never accepted.
var listingColumns = newColumnSet(
	"listing_type", "title", "description", "price", "currency", "status", "visibility",
	"allow_financing", "allow_exchange", "contact_phone", "contact_email", "contact_whatsapp",
	"location", "region_id", "commune_id", "metadata", "tags",
	"rent_daily_price", "rent_weekly_price", "rent_monthly_price", "rent_security_deposit",
	"auction_start_price", "auction_start_at", "auction_end_at", "is_featured",
)

var detailColumns = map[Vertical]columnSet{
	VerticalAutos: newColumnSet(
		"vehicle_type_id", "brand_id", "model_id", "year", "mileage",
		"transmission", "fuel_type", "body_type", "color", "condition",
	),
	VerticalProperties: newColumnSet(
		"property_type", "bedrooms", "bathrooms", "total_area", "built_area", "parking_spaces",
		"floor", "building_floors", "furnished", "pet_friendly", "features", "amenities",
	),
	VerticalStores: newColumnSet(
		"product_category", "brand", "condition", "sku", "stock", "shipping_available",
	),
	VerticalFood: newColumnSet(
		"cuisine_type", "serving_size", "prep_time_minutes", "is_vegetarian", "is_vegan", "delivery_available",
	),
}

// arrayColumns hold text[] values
var arrayColumns = newColumnSet("tags", "features", "amenities")

var validStatuses = newColumnSet(StatusDraft, StatusPublished, StatusInactive, StatusSold)

var validListingTypes = newColumnSet(TypeSale, TypeRent, TypeAuction)

// SanitizeListingFields keeps the writable listing columns and validates status and listing_type
func SanitizeListingFields(raw map[string]interface{}) (Fields, error) {
	out, err := sanitize(raw, listingColumns)
	if err != nil {
		return nil, err
	}

	if v, ok := out["status"]; ok {
		s, ok := v.(string)
		if !ok || !validStatuses.has(strings.ToLower(strings.TrimSpace(s))) {
			return nil, fmt.Errorf("%w: status %v", ErrInvalidInput, v)
		}
		out["status"] = strings.ToLower(strings.TrimSpace(s))
	}
	if v, ok := out["listing_type"]; ok {
		s, ok := v.(string)
		if !ok || !validListingTypes.has(s) {
			return nil, fmt.Errorf("%w: listing_type %v", ErrInvalidInput, v)
		}
	}
	return out, nil
}

// SanitizeDetailFields keeps the detail columns of vertical v
func SanitizeDetailFields(v Vertical, raw map[string]interface{}) (Fields, error) {
	cols, ok := detailColumns[v]
	if !ok {
		return nil, fmt.Errorf("%w: unknown vertical %q", ErrInvalidInput, v)
	}
	return sanitize(raw, cols)
}

// NextStatus returns the status a write will leave the listing in
func NextStatus(f Fields) string {
	if s, ok := f["status"].(string); ok && s != "" {
		return s
	}
	return StatusDraft
}

func sanitize(raw map[string]interface{}, allowed columnSet) (Fields, error) {
	out := make(Fields, len(raw))
	for col, v := range raw {
		if !allowed.has(col) {
			continue
		}
		if arrayColumns.has(col) && v != nil {
			arr, err := toStringSlice(v)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrInvalidInput, col, err)
			}
			v = arr
		}
		if col == "metadata" && v != nil {
			if _, ok := v.(map[string]interface{}); !ok {
				return nil, fmt.Errorf("%w: metadata must be an object", ErrInvalidInput)
			}
		}
		out[col] = v
	}
	return out, nil
}

func toStringSlice(v interface{}) ([]string, error) {
	switch t := v.(type) {
	case []string:
		return t, nil
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("expected string items, got %T", item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected an array, got %T", v)
	}
}
