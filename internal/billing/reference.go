package billing

import (
	"strconv"
	"strings"
	"time"
)

const (
	BoostReferencePrefix        = "boost_"
	SubscriptionReferencePrefix = "subscription_"

	// DefaultBoostDays applies when the duration key is unknown
	DefaultBoostDays = 7
	// IndefiniteDuration produces a boost without an end
	IndefiniteDuration = "indefinido"
)

var boostDurationDays = map[string]int{
	"1_dia":   1,
	"3_dias":  3,
	"7_dias":  7,
	"15_dias": 15,
	"30_dias": 30,
	"90_dias": 90,
}

// BoostReference is what the legacy boost external reference encodes:
// boost_<listingId>_<slotKey>_<durationA>_<durationB>_<timestamp>
type BoostReference struct {
	ListingID string
	SlotKey   string
	Duration  string
}

// ParseBoostReference decodes a legacy boost reference. ok is false when the
// reference has too few parts to carry a listing id.
func ParseBoostReference(ref string) (BoostReference, bool) {
	if !strings.HasPrefix(ref, BoostReferencePrefix) {
		return BoostReference{}, false
	}
	parts := strings.Split(strings.TrimPrefix(ref, BoostReferencePrefix), "_")
	if len(parts) < 4 || parts[0] == "" {
		return BoostReference{}, false
	}
	// trailing timestamp
	parts = parts[:len(parts)-1]
	n := len(parts)
	out := BoostReference{
		ListingID: parts[0],
		Duration:  parts[n-2] + "_" + parts[n-1],
	}
	if n > 3 {
		out.SlotKey = strings.Join(parts[1:n-2], "_")
	}
	return out, true
}

// SubscriptionReference is what subscription_<userId>_<planKey> encodes
type SubscriptionReference struct {
	UserID  string
	PlanKey string
}

// ParseSubscriptionReference decodes a subscription external reference. The
// plan key may contain underscores.
func ParseSubscriptionReference(ref string) (SubscriptionReference, bool) {
	if !strings.HasPrefix(ref, SubscriptionReferencePrefix) {
		return SubscriptionReference{}, false
	}
	parts := strings.SplitN(ref, "_", 3)
	if len(parts) < 3 || parts[1] == "" || parts[2] == "" {
		return SubscriptionReference{}, false
	}
	return SubscriptionReference{UserID: parts[1], PlanKey: parts[2]}, true
}

// BoostWindowEnd returns when a boost bought at now with the given duration
// key expires. nil means it never does.
func BoostWindowEnd(now time.Time, duration string) *time.Time {
	duration = strings.TrimSpace(strings.ToLower(duration))
	if duration == IndefiniteDuration {
		return nil
	}
	days, ok := boostDurationDays[duration]
	if !ok {
		if n, err := strconv.Atoi(duration); err == nil && n > 0 {
			days = n
		} else {
			days = DefaultBoostDays
		}
	}
	end := now.AddDate(0, 0, days)
	return &end
}

// SubscriptionPeriod returns the paid period. A renewal bought before the
// current period ends starts when it ends.
func SubscriptionPeriod(now time.Time, currentEnd *time.Time) (time.Time, time.Time) {
	start := now
	if currentEnd != nil && currentEnd.After(now) {
		start = *currentEnd
	}
	return start, start.AddDate(0, 1, 0)
}
