package model

import (
	"time"

	"github.com/lib/pq"
)

// Vertical is a marketplace domain registry row. Keys are the stored
// names ("vehicles", "properties", "stores", "food").
type Vertical struct {
	ID   string `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Key  string `json:"key" gorm:"type:varchar(50);uniqueIndex;not null"`
	Name string `json:"name" gorm:"type:varchar(100)"`
}

// Region and Commune are read-only location lookups joined by listing summaries
type Region struct {
	ID   string `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name string `json:"name" gorm:"type:varchar(120);not null"`
}

type Commune struct {
	ID       string `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	RegionID string `json:"region_id" gorm:"type:uuid;index"`
	Name     string `json:"name" gorm:"type:varchar(120);not null"`
}

// PublicProfile is the owner's storefront that listings attach to
type PublicProfile struct {
	ID             string    `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OwnerProfileID string    `json:"owner_profile_id" gorm:"type:uuid;index;not null"`
	Slug           string    `json:"slug" gorm:"type:varchar(160);uniqueIndex;not null"`
	Status         string    `json:"status" gorm:"type:varchar(20);not null;default:'draft'"`
	IsPublic       bool      `json:"is_public" gorm:"default:false"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Listing is the vertical-agnostic marketplace entry
type Listing struct {
	ID                  string         `json:"id" gorm:"type:uuid;primaryKey"`
	VerticalID          string         `json:"vertical_id" gorm:"type:uuid;index;not null"`
	UserID              string         `json:"user_id" gorm:"type:uuid;index;not null"`
	PublicProfileID     *string        `json:"public_profile_id" gorm:"type:uuid;index"`
	ListingType         string         `json:"listing_type" gorm:"type:varchar(20);not null;default:'sale'"`
	Title               string         `json:"title" gorm:"type:varchar(255);not null;default:''"`
	Description         *string        `json:"description" gorm:"type:text"`
	Price               *float64       `json:"price"`
	Currency            *string        `json:"currency" gorm:"type:varchar(12)"`
	Status              string         `json:"status" gorm:"type:varchar(20);index;not null;default:'draft'"`
	Visibility          *string        `json:"visibility" gorm:"type:varchar(40)"`
	AllowFinancing      *bool          `json:"allow_financing"`
	AllowExchange       *bool          `json:"allow_exchange"`
	ContactPhone        *string        `json:"contact_phone" gorm:"type:varchar(40)"`
	ContactEmail        *string        `json:"contact_email" gorm:"type:varchar(255)"`
	ContactWhatsapp     *string        `json:"contact_whatsapp" gorm:"type:varchar(40)"`
	Location            *string        `json:"location" gorm:"type:text"`
	RegionID            *string        `json:"region_id" gorm:"type:uuid"`
	CommuneID           *string        `json:"commune_id" gorm:"type:uuid"`
	Metadata            *string        `json:"metadata" gorm:"type:jsonb"`
	Tags                pq.StringArray `json:"tags" gorm:"type:text[]"`
	DocumentURLs        pq.StringArray `json:"document_urls" gorm:"column:document_urls;type:text[]"`
	RentDailyPrice      *float64       `json:"rent_daily_price"`
	RentWeeklyPrice     *float64       `json:"rent_weekly_price"`
	RentMonthlyPrice    *float64       `json:"rent_monthly_price"`
	RentSecurityDeposit *float64       `json:"rent_security_deposit"`
	AuctionStartPrice   *float64       `json:"auction_start_price"`
	AuctionStartAt      *time.Time     `json:"auction_start_at"`
	AuctionEndAt        *time.Time     `json:"auction_end_at"`
	IsFeatured          bool           `json:"is_featured" gorm:"default:false"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
	PublishedAt         *time.Time     `json:"published_at" gorm:"index"`
}

// Image is ordered media attached to a listing
type Image struct {
	ID        string    `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ListingID string    `json:"listing_id" gorm:"type:uuid;index;not null"`
	URL       string    `json:"url" gorm:"type:text;not null"`
	Position  int       `json:"position" gorm:"not null;default:0"`
	IsPrimary bool      `json:"is_primary" gorm:"default:false"`
	AltText   *string   `json:"alt_text" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at"`
}

// Document is a listing attachment. URL holds the storage-relative path.
type Document struct {
	ID        string    `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ListingID string    `json:"listing_id" gorm:"type:uuid;index;not null"`
	UserID    string    `json:"user_id" gorm:"type:uuid;index;not null"`
	Name      string    `json:"name" gorm:"type:varchar(255);not null"`
	URL       string    `json:"url" gorm:"type:text;not null"`
	FileType  *string   `json:"file_type" gorm:"type:varchar(120)"`
	FileSize  *int64    `json:"file_size"`
	IsPublic  bool      `json:"is_public" gorm:"default:false"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ListingMetrics holds per-listing counters
type ListingMetrics struct {
	ListingID string `json:"listing_id" gorm:"type:uuid;primaryKey"`
	Views     int64  `json:"views" gorm:"not null;default:0"`
	Clicks    int64  `json:"clicks" gorm:"not null;default:0"`
	Favorites int64  `json:"favorites" gorm:"not null;default:0"`
	Shares    int64  `json:"shares" gorm:"not null;default:0"`
}

// TableName overrides the pluralized default
func (ListingMetrics) TableName() string { return "listing_metrics" }
