package listing

import (
	"context"
	"time"
)

// SummaryRow is a joined listing row as read from storage. Related records
// (vertical, commune, primary image) are already flattened to optional values.
type SummaryRow struct {
	ID          string
	VerticalKey string
	ListingType string
	Title       string
	Description *string
	Price       *float64
	Currency    *string
	Status      string
	UserID      string
	Location    *string
	RegionID    *string
	CommuneID   *string
	CommuneName *string
	ImageURL    *string
	CreatedAt   *time.Time
	PublishedAt *time.Time
}

// SummaryFilter selects listings for List and ListMine
type SummaryFilter struct {
	VerticalKeys []string
	OwnerID      string
	Status       string
	ListingType  string
	Keyword      string
	City         string
	Currency     string
	MinPrice     *float64
	MaxPrice     *float64
	Limit        int
	Offset       int
}

// ImageRow is a persisted image
type ImageRow struct {
	ID        string
	ListingID string
	URL       string
	Position  int
	IsPrimary bool
}

// DocumentRow is a persisted document. URL holds the stored path.
type DocumentRow struct {
	ID        string
	ListingID string
	UserID    string
	Name      string
	URL       string
	FileType  *string
	FileSize  *int64
	IsPublic  bool
}

// OwnedListing is the subset of a listing the update path needs
type OwnedListing struct {
	ID          string
	VerticalID  string
	Status      string
	PublishedAt *time.Time
}

// NewPublicProfile describes a lazily created storefront
type NewPublicProfile struct {
	OwnerID  string
	Slug     string
	Status   string
	IsPublic bool
}

// CountFilter scopes a listing count. Empty Status counts every status.
type CountFilter struct {
	OwnerID    string
	VerticalID string
	Status     string
	ExcludeID  string
}

// Reader serves the read-only operations
type Reader interface {
	ListSummaries(ctx context.Context, f SummaryFilter) ([]SummaryRow, int64, error)
	// FindPublishedSummary returns nil when the listing is absent or not published
	FindPublishedSummary(ctx context.Context, id string) (*SummaryRow, error)
	ListImages(ctx context.Context, listingID string) ([]ImageRow, error)
}

// ProfileStore backs the public profile bootstrapper
type ProfileStore interface {
	// FindPublicProfileID returns "" when the owner has no profile with status
	FindPublicProfileID(ctx context.Context, ownerID, status string) (string, error)
	// InsertPublicProfile is insert-if-absent by slug and returns the row id
	InsertPublicProfile(ctx context.Context, p NewPublicProfile) (string, error)
}

// PlanStore backs the plan limit resolver
type PlanStore interface {
	// ActivePlanLimits returns the plan limits of an active subscription.
	// An empty verticalID matches any vertical.
	ActivePlanLimits(ctx context.Context, ownerID, verticalID string) (Limits, bool, error)
}

// ImageStore backs the media reconciler
type ImageStore interface {
	DeleteImages(ctx context.Context, listingID string) error
	InsertImages(ctx context.Context, images []ImageRow) error
}

// DocumentStore backs the document reconciler
type DocumentStore interface {
	ListDocuments(ctx context.Context, listingID string) ([]DocumentRow, error)
	InsertDocument(ctx context.Context, d DocumentRow) error
	UpdateDocument(ctx context.Context, d DocumentRow) error
	DeleteDocuments(ctx context.Context, ids []string) error
	PublicDocumentPaths(ctx context.Context, listingID string) ([]string, error)
	SetDocumentURLs(ctx context.Context, listingID string, paths []string) error
}

// Tx is the unit of work used by the upsert orchestrator
type Tx interface {
	ProfileStore
	PlanStore
	ImageStore
	DocumentStore

	// ResolveVerticalID returns the registry id for the first matching key,
	// or ErrVerticalNotRegistered.
	ResolveVerticalID(ctx context.Context, keys []string) (string, error)
	// LockOwnerQuota serializes quota checks for owner+vertical until the unit of work ends
	LockOwnerQuota(ctx context.Context, ownerID, verticalID string) error
	CountListings(ctx context.Context, f CountFilter) (int64, error)
	// FindOwnedListing returns nil when id is absent or owned by someone else
	FindOwnedListing(ctx context.Context, id, ownerID string) (*OwnedListing, error)
	// InsertListing stores a new listing and returns its generated id
	InsertListing(ctx context.Context, fields Fields) (string, error)
	UpdateListing(ctx context.Context, id string, fields Fields) error
	// UpsertDetail inserts or replaces the single detail row of a listing
	UpsertDetail(ctx context.Context, table, listingID string, fields Fields) error
	// EnsureMetrics inserts a zeroed metrics row only if none exists
	EnsureMetrics(ctx context.Context, listingID string) error
}

// Store is the persistence boundary of the listings domain
type Store interface {
	Reader
	// WithinTx runs fn in one transaction, rolled back when fn returns an error
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}

// SummaryCache caches published summaries by id
type SummaryCache interface {
	// Get returns nil on a miss
	Get(ctx context.Context, id string) (*Summary, error)
	Set(ctx context.Context, s *Summary) error
	Invalidate(ctx context.Context, id string) error
}
