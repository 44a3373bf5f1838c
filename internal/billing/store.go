package billing

import (
	"context"
	"time"
)

// Boost is a paid highlight window for a listing
type Boost struct {
	ID        string
	ListingID string
	UserID    string
	StartsAt  time.Time
	EndsAt    *time.Time // nil means indefinite
	PaymentID string
	Amount    float64
	Currency  string
	Metadata  map[string]interface{}
}

// Plan is the active subscription plan purchased by a payment
type Plan struct {
	ID           string
	Key          string
	Name         string
	Currency     string
	PriceMonthly float64
}

// Activation is the subscription state written after an approved payment
type Activation struct {
	UserID      string
	VerticalID  string
	PlanID      string
	PeriodStart time.Time
	PeriodEnd   time.Time
	Metadata    map[string]interface{}
}

// PaymentRecord is the local ledger row for a gateway payment
type PaymentRecord struct {
	UserID         string
	SubscriptionID string
	Amount         float64
	Currency       string
	Status         string
	Method         string
	ExternalID     string
	Description    string
}

// Tx is the set of persistence calls a payment is applied with
type Tx interface {
	ResolveVerticalID(ctx context.Context, keys []string) (string, error)
	FindListingOwner(ctx context.Context, listingID string) (string, bool, error)
	FindActiveBoost(ctx context.Context, listingID string) (*Boost, error)
	InsertBoost(ctx context.Context, b Boost) (string, error)
	UpdateBoost(ctx context.Context, b Boost) error
	FindActivePlan(ctx context.Context, planKey, verticalID string) (*Plan, error)
	FindActiveSubscriptionEnd(ctx context.Context, userID, verticalID string) (*time.Time, error)
	UpsertSubscription(ctx context.Context, a Activation) (string, error)
	PaymentRecorded(ctx context.Context, externalID string) (bool, error)
	InsertPayment(ctx context.Context, p PaymentRecord) error
}

// Store runs fn in a single transaction
type Store interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}
