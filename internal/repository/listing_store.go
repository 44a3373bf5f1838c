package repository

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"listing-service/internal/listing"
	"listing-service/internal/model"
	"listing-service/prometheus"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ListingStore is the Postgres implementation of listing.Store
type ListingStore struct {
	db *gorm.DB
}

var _ listing.Store = (*ListingStore)(nil)

// NewListingStore creates a store over an open gorm connection
func NewListingStore(db *gorm.DB) *ListingStore {
	return &ListingStore{db: db}
}

// WithinTx runs fn in a database transaction
func (s *ListingStore) WithinTx(ctx context.Context, fn func(tx listing.Tx) error) error {
	defer prometheus.TrackDBOperation("listing_upsert_tx")(time.Now())

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&listingTx{db: tx})
	})
}

// summaryRecord is the flat shape of the summary query
type summaryRecord struct {
	ID          string     `gorm:"column:id"`
	VerticalKey string     `gorm:"column:vertical_key"`
	ListingType string     `gorm:"column:listing_type"`
	Title       string     `gorm:"column:title"`
	Description *string    `gorm:"column:description"`
	Price       *float64   `gorm:"column:price"`
	Currency    *string    `gorm:"column:currency"`
	Status      string     `gorm:"column:status"`
	UserID      string     `gorm:"column:user_id"`
	Location    *string    `gorm:"column:location"`
	RegionID    *string    `gorm:"column:region_id"`
	CommuneID   *string    `gorm:"column:commune_id"`
	CommuneName *string    `gorm:"column:commune_name"`
	ImageURL    *string    `gorm:"column:image_url"`
	CreatedAt   *time.Time `gorm:"column:created_at"`
	PublishedAt *time.Time `gorm:"column:published_at"`
}

const summaryColumns = `l.id, v.key AS vertical_key, l.listing_type, l.title, l.description, l.price,
	l.currency, l.status, l.user_id, l.location, l.region_id, l.commune_id,
	c.name AS commune_name, img.url AS image_url, l.created_at, l.published_at`

// summaryQuery joins the vertical key, commune name and the primary image.
// Each related record collapses to at most one value per listing.
func (s *ListingStore) summaryQuery(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Table("listings AS l").
		Joins("JOIN verticals v ON v.id = l.vertical_id").
		Joins("LEFT JOIN communes c ON c.id = l.commune_id").
		Joins(`LEFT JOIN LATERAL (
			SELECT i.url FROM images i
			WHERE i.listing_id = l.id
			ORDER BY i.is_primary DESC, i.position ASC
			LIMIT 1
		) img ON true`)
}

// ListSummaries returns one page of listings plus the unpaginated total
func (s *ListingStore) ListSummaries(ctx context.Context, f listing.SummaryFilter) ([]listing.SummaryRow, int64, error) {
	defer prometheus.TrackDBOperation("listing_list")(time.Now())

	q := s.summaryQuery(ctx)
	if len(f.VerticalKeys) > 0 {
		q = q.Where("v.key IN ?", f.VerticalKeys)
	}
	if f.OwnerID != "" {
		q = q.Where("l.user_id = ?", f.OwnerID)
	}
	if f.Status != "" {
		q = q.Where("l.status = ?", f.Status)
	}
	if f.ListingType != "" {
		q = q.Where("l.listing_type = ?", f.ListingType)
	}
	if f.Keyword != "" {
		pattern := likePattern(f.Keyword)
		q = q.Where("(l.title ILIKE ? OR l.description ILIKE ?)", pattern, pattern)
	}
	if f.City != "" {
		pattern := likePattern(f.City)
		q = q.Where("(c.name ILIKE ? OR l.location ILIKE ?)", pattern, pattern)
	}
	if f.Currency != "" {
		q = q.Where("UPPER(l.currency) = UPPER(?)", f.Currency)
	}
	if f.MinPrice != nil {
		q = q.Where("l.price >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		q = q.Where("l.price <= ?", *f.MaxPrice)
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var records []summaryRecord
	err := q.Select(summaryColumns).
		Order("l.published_at DESC NULLS LAST, l.created_at DESC").
		Limit(f.Limit).
		Offset(f.Offset).
		Scan(&records).Error
	if err != nil {
		return nil, 0, err
	}

	rows := make([]listing.SummaryRow, 0, len(records))
	for _, r := range records {
		rows = append(rows, r.toRow())
	}
	return rows, total, nil
}

// FindPublishedSummary returns nil when the listing is absent or not published
func (s *ListingStore) FindPublishedSummary(ctx context.Context, id string) (*listing.SummaryRow, error) {
	defer prometheus.TrackDBOperation("listing_find")(time.Now())

	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}

	var records []summaryRecord
	err := s.summaryQuery(ctx).
		Select(summaryColumns).
		Where("l.id = ? AND l.status = ?", id, listing.StatusPublished).
		Limit(1).
		Scan(&records).Error
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	row := records[0].toRow()
	return &row, nil
}

// ListImages returns the listing's images ordered by position
func (s *ListingStore) ListImages(ctx context.Context, listingID string) ([]listing.ImageRow, error) {
	defer prometheus.TrackDBOperation("listing_media")(time.Now())

	if _, err := uuid.Parse(listingID); err != nil {
		return []listing.ImageRow{}, nil
	}

	var images []model.Image
	err := s.db.WithContext(ctx).
		Where("listing_id = ?", listingID).
		Order("position ASC").
		Find(&images).Error
	if err != nil {
		return nil, err
	}

	rows := make([]listing.ImageRow, 0, len(images))
	for _, img := range images {
		rows = append(rows, listing.ImageRow{
			ID:        img.ID,
			ListingID: img.ListingID,
			URL:       img.URL,
			Position:  img.Position,
			IsPrimary: img.IsPrimary,
		})
	}
	return rows, nil
}

func (r summaryRecord) toRow() listing.SummaryRow {
	return listing.SummaryRow{
		ID:          r.ID,
		VerticalKey: r.VerticalKey,
		ListingType: r.ListingType,
		Title:       r.Title,
		Description: r.Description,
		Price:       r.Price,
		Currency:    r.Currency,
		Status:      r.Status,
		UserID:      r.UserID,
		Location:    r.Location,
		RegionID:    r.RegionID,
		CommuneID:   r.CommuneID,
		CommuneName: r.CommuneName,
		ImageURL:    r.ImageURL,
		CreatedAt:   r.CreatedAt,
		PublishedAt: r.PublishedAt,
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePattern(s string) string {
	return "%" + likeEscaper.Replace(strings.TrimSpace(s)) + "%"
}

// encodeColumns converts domain values to driver values: string slices
// become text[] and objects become jsonb text.
func encodeColumns(fields listing.Fields) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(fields))
	for col, v := range fields {
		switch t := v.(type) {
		case []string:
			out[col] = stringArray(t)
		case map[string]interface{}:
			b, err := json.Marshal(t)
			if err != nil {
				return nil, err
			}
			out[col] = string(b)
		default:
			out[col] = v
		}
	}
	return out, nil
}
