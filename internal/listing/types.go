package listing

import "time"

const (
	StatusDraft     = "draft"
	StatusPublished = "published"
	StatusInactive  = "inactive"
	StatusSold      = "sold"
)

const (
	TypeSale    = "sale"
	TypeRent    = "rent"
	TypeAuction = "auction"
)

// Fields is a sanitized column -> value map written to a listing or detail row
type Fields map[string]interface{}

// ImageInput is one entry of the desired gallery
type ImageInput struct {
	URL       string `json:"url"`
	IsPrimary bool   `json:"is_primary,omitempty"`
}

// DocumentInput is one entry of the desired document set.
// Path may be a full storage URL or an already relative path.
type DocumentInput struct {
	RecordID string  `json:"record_id,omitempty"`
	Name     string  `json:"name"`
	Type     *string `json:"type,omitempty"`
	Size     *int64  `json:"size,omitempty"`
	IsPublic bool    `json:"is_public"`
	Path     string  `json:"path"`
}

// UpsertInput is a create (empty ListingID) or update request.
// A nil Documents slice leaves documents untouched; an empty one removes them all.
type UpsertInput struct {
	Vertical      Vertical
	ListingID     string
	AuthUserID    string
	Listing       map[string]interface{}
	Detail        map[string]interface{}
	ReplaceImages bool
	Images        []ImageInput
	Documents     []DocumentInput
}

// UpsertResult is returned after a successful upsert
type UpsertResult struct {
	ID        string    `json:"id"`
	Created   bool      `json:"created"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Summary is the public projection of a listing
type Summary struct {
	ID          string     `json:"id"`
	Vertical    Vertical   `json:"vertical"`
	Type        string     `json:"type"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Price       float64    `json:"price"`
	Currency    string     `json:"currency"`
	City        string     `json:"city"`
	Location    string     `json:"location,omitempty"`
	Status      string     `json:"status,omitempty"`
	RegionID    string     `json:"regionId,omitempty"`
	CommuneID   string     `json:"communeId,omitempty"`
	OwnerID     string     `json:"ownerId,omitempty"`
	ImageURL    string     `json:"imageUrl,omitempty"`
	CreatedAt   *time.Time `json:"createdAt,omitempty"`
	PublishedAt time.Time  `json:"publishedAt"`
}

// Media is one ordered image of a listing
type Media struct {
	ID        string `json:"id"`
	ListingID string `json:"listingId"`
	URL       string `json:"url"`
	Kind      string `json:"kind"`
	Order     int    `json:"order"`
}

// Page is a window of summaries plus the unpaginated total
type Page struct {
	Items  []Summary `json:"items"`
	Total  int64     `json:"total"`
	Limit  int       `json:"limit"`
	Offset int       `json:"offset"`
}
