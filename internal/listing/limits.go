package listing

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Free tier ceilings used when a plan carries no usable value
const (
	DefaultMaxActiveListings = 1
	DefaultMaxTotalListings  = 1
)

// Limits is the plan's limits object
type Limits map[string]interface{}

// ResolvePlanLimits returns the limits of the owner's active subscription for
// verticalID, falling back to any active subscription. It returns nil when the
// owner has none.
func ResolvePlanLimits(ctx context.Context, store PlanStore, ownerID, verticalID string) (Limits, error) {
	limits, ok, err := store.ActivePlanLimits(ctx, ownerID, verticalID)
	if err != nil {
		return nil, fmt.Errorf("load vertical subscription: %w", err)
	}
	if ok {
		return limits, nil
	}

	limits, ok, err = store.ActivePlanLimits(ctx, ownerID, "")
	if err != nil {
		return nil, fmt.Errorf("load subscription: %w", err)
	}
	if !ok {
		return nil, nil
	}
	return limits, nil
}

// ResolveMaxActiveListings reads max_active_listings, then max_listings
func ResolveMaxActiveListings(l Limits) int {
	return resolveLimit(l, DefaultMaxActiveListings, "max_active_listings", "max_listings")
}

// ResolveMaxTotalListings reads max_total_listings, then max_listings
func ResolveMaxTotalListings(l Limits) int {
	return resolveLimit(l, DefaultMaxTotalListings, "max_total_listings", "max_listings")
}

func resolveLimit(l Limits, def int, keys ...string) int {
	for _, key := range keys {
		v, ok := l[key]
		if !ok || v == nil {
			continue
		}
		// the first present key decides, even if unusable
		if f, ok := toFloat(v); ok {
			return int(math.Ceil(f))
		}
		return def
	}
	return def
}

func toFloat(v interface{}) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
