package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"listing-service/internal/listing"
	"listing-service/internal/model"
	"listing-service/pkg/database"
	"listing-service/prometheus"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// listingTx implements listing.Tx on a gorm transaction
type listingTx struct {
	db *gorm.DB
}

var _ listing.Tx = (*listingTx)(nil)

var detailModels = map[string]interface{}{
	"listings_vehicles":   &model.VehicleDetail{},
	"listings_properties": &model.PropertyDetail{},
	"listings_stores":     &model.StoreDetail{},
	"listings_food":       &model.FoodDetail{},
}

func stringArray(s []string) pq.StringArray {
	if s == nil {
		return pq.StringArray{}
	}
	return pq.StringArray(s)
}

func (t *listingTx) ResolveVerticalID(ctx context.Context, keys []string) (string, error) {
	if len(keys) == 0 {
		return "", listing.ErrVerticalNotRegistered
	}
	var id string
	err := t.db.Raw(
		"SELECT id FROM verticals WHERE key IN ? ORDER BY key = ? DESC LIMIT 1",
		keys, keys[0],
	).Scan(&id).Error
	if err != nil {
		return "", err
	}
	if id == "" {
		return "", listing.ErrVerticalNotRegistered
	}
	return id, nil
}

func (t *listingTx) FindPublicProfileID(ctx context.Context, ownerID, status string) (string, error) {
	var profiles []model.PublicProfile
	err := t.db.
		Where("owner_profile_id = ? AND status = ?", ownerID, status).
		Order("created_at ASC").
		Limit(1).
		Find(&profiles).Error
	if err != nil || len(profiles) == 0 {
		return "", err
	}
	return profiles[0].ID, nil
}

func (t *listingTx) InsertPublicProfile(ctx context.Context, p listing.NewPublicProfile) (string, error) {
	profile := model.PublicProfile{
		OwnerProfileID: p.OwnerID,
		Slug:           p.Slug,
		Status:         p.Status,
		IsPublic:       p.IsPublic,
	}
	err := t.db.
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "slug"}}, DoNothing: true}).
		Create(&profile).Error
	if err != nil {
		return "", err
	}
	if profile.ID != "" {
		return profile.ID, nil
	}

	// slug already taken by a concurrent bootstrap
	var existing model.PublicProfile
	if err := t.db.Where("slug = ?", p.Slug).Take(&existing).Error; err != nil {
		return "", err
	}
	return existing.ID, nil
}

func (t *listingTx) ActivePlanLimits(ctx context.Context, ownerID, verticalID string) (listing.Limits, bool, error) {
	defer prometheus.TrackDBOperation("plan_limits")(time.Now())

	q := t.db.Table("subscriptions AS s").
		Select("p.limits").
		Joins("JOIN subscription_plans p ON p.id = s.plan_id").
		Where("s.user_id = ? AND s.status = ?", ownerID, "active")
	if verticalID != "" {
		q = q.Where("s.vertical_id = ?", verticalID)
	}

	var rows []struct {
		Limits *string `gorm:"column:limits"`
	}
	if err := q.Order("s.current_period_end DESC NULLS LAST").Limit(1).Scan(&rows).Error; err != nil {
		return nil, false, err
	}
	if len(rows) == 0 {
		return nil, false, nil
	}
	if rows[0].Limits == nil {
		return listing.Limits{}, true, nil
	}
	limits, err := decodeLimits(*rows[0].Limits)
	if err != nil {
		return nil, false, fmt.Errorf("decode plan limits: %w", err)
	}
	return limits, true, nil
}

// decodeLimits keeps numbers as json.Number; a non-object document yields empty limits
func decodeLimits(raw string) (listing.Limits, error) {
	var v interface{}
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	obj, ok := v.(map[string]interface{})
	if !ok {
		return listing.Limits{}, nil
	}
	return listing.Limits(obj), nil
}

func (t *listingTx) LockOwnerQuota(ctx context.Context, ownerID, verticalID string) error {
	return t.db.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", ownerID+":"+verticalID).Error
}

func (t *listingTx) CountListings(ctx context.Context, f listing.CountFilter) (int64, error) {
	defer prometheus.TrackDBOperation("listing_count")(time.Now())

	q := t.db.Model(&model.Listing{}).Where("user_id = ? AND vertical_id = ?", f.OwnerID, f.VerticalID)
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.ExcludeID != "" {
		q = q.Where("id <> ?", f.ExcludeID)
	}
	var n int64
	err := q.Count(&n).Error
	return n, err
}

func (t *listingTx) FindOwnedListing(ctx context.Context, id, ownerID string) (*listing.OwnedListing, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	var rows []model.Listing
	err := t.db.
		Select("id", "vertical_id", "status", "published_at").
		Where("id = ? AND user_id = ?", id, ownerID).
		Limit(1).
		Find(&rows).Error
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return &listing.OwnedListing{
		ID:          rows[0].ID,
		VerticalID:  rows[0].VerticalID,
		Status:      rows[0].Status,
		PublishedAt: rows[0].PublishedAt,
	}, nil
}

// InsertListing generates the id and retries on the unlikely primary key
// collision. Each attempt runs in a savepoint so a failed insert does not
// abort the enclosing transaction.
func (t *listingTx) InsertListing(ctx context.Context, fields listing.Fields) (string, error) {
	defer prometheus.TrackDBOperation("listing_insert")(time.Now())

	values, err := encodeColumns(fields)
	if err != nil {
		return "", err
	}

	var id string
	err = database.Try(func() error {
		id = uuid.NewString()
		values["id"] = id
		return t.db.Transaction(func(sp *gorm.DB) error {
			return sp.Model(&model.Listing{}).Create(values).Error
		})
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (t *listingTx) UpdateListing(ctx context.Context, id string, fields listing.Fields) error {
	defer prometheus.TrackDBOperation("listing_update")(time.Now())

	values, err := encodeColumns(fields)
	if err != nil {
		return err
	}
	return t.db.Model(&model.Listing{}).Where("id = ?", id).Updates(values).Error
}

func (t *listingTx) UpsertDetail(ctx context.Context, table, listingID string, fields listing.Fields) error {
	defer prometheus.TrackDBOperation("listing_detail_upsert")(time.Now())

	m, ok := detailModels[table]
	if !ok {
		return fmt.Errorf("unknown detail table %q", table)
	}
	values, err := encodeColumns(fields)
	if err != nil {
		return err
	}
	values["listing_id"] = listingID

	cols := make([]string, 0, len(fields))
	for col := range fields {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	conflict := clause.OnConflict{Columns: []clause.Column{{Name: "listing_id"}}}
	if len(cols) == 0 {
		conflict.DoNothing = true
	} else {
		conflict.DoUpdates = clause.AssignmentColumns(cols)
	}
	return t.db.Model(m).Clauses(conflict).Create(values).Error
}

func (t *listingTx) DeleteImages(ctx context.Context, listingID string) error {
	return t.db.Where("listing_id = ?", listingID).Delete(&model.Image{}).Error
}

func (t *listingTx) InsertImages(ctx context.Context, images []listing.ImageRow) error {
	defer prometheus.TrackDBOperation("listing_images_insert")(time.Now())

	rows := make([]model.Image, 0, len(images))
	for _, img := range images {
		rows = append(rows, model.Image{
			ListingID: img.ListingID,
			URL:       img.URL,
			Position:  img.Position,
			IsPrimary: img.IsPrimary,
		})
	}
	return t.db.Create(&rows).Error
}

func (t *listingTx) ListDocuments(ctx context.Context, listingID string) ([]listing.DocumentRow, error) {
	var docs []model.Document
	if err := t.db.Where("listing_id = ?", listingID).Order("created_at ASC").Find(&docs).Error; err != nil {
		return nil, err
	}
	rows := make([]listing.DocumentRow, 0, len(docs))
	for _, d := range docs {
		rows = append(rows, listing.DocumentRow{
			ID:        d.ID,
			ListingID: d.ListingID,
			UserID:    d.UserID,
			Name:      d.Name,
			URL:       d.URL,
			FileType:  d.FileType,
			FileSize:  d.FileSize,
			IsPublic:  d.IsPublic,
		})
	}
	return rows, nil
}

func (t *listingTx) InsertDocument(ctx context.Context, d listing.DocumentRow) error {
	return t.db.Create(&model.Document{
		ListingID: d.ListingID,
		UserID:    d.UserID,
		Name:      d.Name,
		URL:       d.URL,
		FileType:  d.FileType,
		FileSize:  d.FileSize,
		IsPublic:  d.IsPublic,
	}).Error
}

func (t *listingTx) UpdateDocument(ctx context.Context, d listing.DocumentRow) error {
	return t.db.Model(&model.Document{}).
		Where("id = ? AND listing_id = ?", d.ID, d.ListingID).
		Updates(map[string]interface{}{
			"name":       d.Name,
			"url":        d.URL,
			"file_type":  d.FileType,
			"file_size":  d.FileSize,
			"is_public":  d.IsPublic,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (t *listingTx) DeleteDocuments(ctx context.Context, ids []string) error {
	return t.db.Where("id IN ?", ids).Delete(&model.Document{}).Error
}

func (t *listingTx) PublicDocumentPaths(ctx context.Context, listingID string) ([]string, error) {
	var urls []string
	err := t.db.Model(&model.Document{}).
		Where("listing_id = ? AND is_public = ?", listingID, true).
		Order("url ASC").
		Pluck("url", &urls).Error
	return urls, err
}

func (t *listingTx) SetDocumentURLs(ctx context.Context, listingID string, paths []string) error {
	return t.db.Model(&model.Listing{}).
		Where("id = ?", listingID).
		UpdateColumn("document_urls", stringArray(paths)).Error
}

func (t *listingTx) EnsureMetrics(ctx context.Context, listingID string) error {
	return t.db.
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "listing_id"}}, DoNothing: true}).
		Create(&model.ListingMetrics{ListingID: listingID}).Error
}
