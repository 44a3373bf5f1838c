package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"listing-service/internal/billing"
	"listing-service/internal/listing"
	"listing-service/internal/model"
	"listing-service/prometheus"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const boostStatusActive = "active"

// BillingStore is the Postgres implementation of billing.Store
type BillingStore struct {
	db *gorm.DB
}

var _ billing.Store = (*BillingStore)(nil)

// NewBillingStore creates a billing store over an open gorm connection
func NewBillingStore(db *gorm.DB) *BillingStore {
	return &BillingStore{db: db}
}

// WithinTx runs fn in a database transaction
func (s *BillingStore) WithinTx(ctx context.Context, fn func(tx billing.Tx) error) error {
	defer prometheus.TrackDBOperation("billing_payment_tx")(time.Now())

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&billingTx{db: tx})
	})
}

type billingTx struct {
	db *gorm.DB
}

func encodeMetadata(meta map[string]interface{}) (string, error) {
	if len(meta) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(meta)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (t *billingTx) ResolveVerticalID(ctx context.Context, keys []string) (string, error) {
	id, err := (&listingTx{db: t.db}).ResolveVerticalID(ctx, keys)
	if errors.Is(err, listing.ErrVerticalNotRegistered) {
		return "", nil
	}
	return id, err
}

func (t *billingTx) FindListingOwner(ctx context.Context, listingID string) (string, bool, error) {
	if _, err := uuid.Parse(listingID); err != nil {
		return "", false, nil
	}
	var rows []model.Listing
	err := t.db.Select("id", "user_id").Where("id = ?", listingID).Limit(1).Find(&rows).Error
	if err != nil || len(rows) == 0 {
		return "", false, err
	}
	return rows[0].UserID, true, nil
}

func (t *billingTx) FindActiveBoost(ctx context.Context, listingID string) (*billing.Boost, error) {
	var rows []model.ListingBoost
	err := t.db.
		Where("listing_id = ? AND status = ?", listingID, boostStatusActive).
		Where("ends_at IS NULL OR ends_at > NOW()").
		Order("starts_at DESC").
		Limit(1).
		Find(&rows).Error
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	b := rows[0]
	out := &billing.Boost{ID: b.ID, ListingID: b.ListingID, StartsAt: b.StartsAt, EndsAt: b.EndsAt}
	if b.UserID != nil {
		out.UserID = *b.UserID
	}
	return out, nil
}

func boostModel(b billing.Boost) (model.ListingBoost, error) {
	meta, err := encodeMetadata(b.Metadata)
	if err != nil {
		return model.ListingBoost{}, err
	}
	row := model.ListingBoost{
		ID:              b.ID,
		ListingID:       b.ListingID,
		Status:          boostStatusActive,
		StartsAt:        b.StartsAt,
		EndsAt:          b.EndsAt,
		PaymentAmount:   &b.Amount,
		PaymentCurrency: &b.Currency,
		Metadata:        meta,
	}
	if b.UserID != "" {
		row.UserID = &b.UserID
	}
	if b.PaymentID != "" {
		row.PaymentID = &b.PaymentID
	}
	return row, nil
}

func (t *billingTx) InsertBoost(ctx context.Context, b billing.Boost) (string, error) {
	row, err := boostModel(b)
	if err != nil {
		return "", err
	}
	row.ID = ""
	if err := t.db.Create(&row).Error; err != nil {
		return "", err
	}
	return row.ID, nil
}

func (t *billingTx) UpdateBoost(ctx context.Context, b billing.Boost) error {
	row, err := boostModel(b)
	if err != nil {
		return err
	}
	return t.db.Model(&model.ListingBoost{}).
		Where("id = ?", b.ID).
		Updates(map[string]interface{}{
			"status":           row.Status,
			"starts_at":        row.StartsAt,
			"ends_at":          row.EndsAt,
			"payment_id":       row.PaymentID,
			"payment_amount":   row.PaymentAmount,
			"payment_currency": row.PaymentCurrency,
			"metadata":         row.Metadata,
		}).Error
}

func (t *billingTx) FindActivePlan(ctx context.Context, planKey, verticalID string) (*billing.Plan, error) {
	var plans []model.SubscriptionPlan
	err := t.db.
		Where("plan_key = ? AND vertical_id = ? AND is_active = ?", planKey, verticalID, true).
		Limit(1).
		Find(&plans).Error
	if err != nil || len(plans) == 0 {
		return nil, err
	}
	p := plans[0]
	return &billing.Plan{ID: p.ID, Key: p.PlanKey, Name: p.Name, Currency: p.Currency, PriceMonthly: p.PriceMonthly}, nil
}

func (t *billingTx) FindActiveSubscriptionEnd(ctx context.Context, userID, verticalID string) (*time.Time, error) {
	var subs []model.Subscription
	err := t.db.
		Where("user_id = ? AND vertical_id = ? AND status = ?", userID, verticalID, "active").
		Limit(1).
		Find(&subs).Error
	if err != nil || len(subs) == 0 {
		return nil, err
	}
	return subs[0].CurrentPeriodEnd, nil
}

func (t *billingTx) UpsertSubscription(ctx context.Context, a billing.Activation) (string, error) {
	meta, err := encodeMetadata(a.Metadata)
	if err != nil {
		return "", err
	}
	sub := model.Subscription{
		UserID:             a.UserID,
		VerticalID:         a.VerticalID,
		PlanID:             a.PlanID,
		Status:             "active",
		CurrentPeriodStart: &a.PeriodStart,
		CurrentPeriodEnd:   &a.PeriodEnd,
		CancelAtPeriodEnd:  false,
		Metadata:           meta,
	}
	err = t.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "vertical_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"plan_id", "status", "current_period_start", "current_period_end",
			"cancel_at_period_end", "metadata",
		}),
	}).Create(&sub).Error
	if err != nil {
		return "", err
	}

	var id string
	err = t.db.Model(&model.Subscription{}).
		Select("id").
		Where("user_id = ? AND vertical_id = ?", a.UserID, a.VerticalID).
		Scan(&id).Error
	return id, err
}

func (t *billingTx) PaymentRecorded(ctx context.Context, externalID string) (bool, error) {
	var count int64
	err := t.db.Model(&model.Payment{}).Where("external_id = ?", externalID).Count(&count).Error
	return count > 0, err
}

func (t *billingTx) InsertPayment(ctx context.Context, p billing.PaymentRecord) error {
	row := model.Payment{
		UserID:        p.UserID,
		Amount:        p.Amount,
		Currency:      p.Currency,
		Status:        p.Status,
		PaymentMethod: p.Method,
		ExternalID:    p.ExternalID,
		Description:   p.Description,
	}
	if p.SubscriptionID != "" {
		row.SubscriptionID = &p.SubscriptionID
	}
	return t.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_id"}},
		DoNothing: true,
	}).Create(&row).Error
}
