package repository

import (
	"context"
	"testing"

	"listing-service/internal/billing"
	"listing-service/internal/listing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var ctx = context.Background()

// dryRunDB builds statements with the postgres dialector without a server and
// records every INSERT and SELECT it renders.
func dryRunDB(t *testing.T) (*gorm.DB, *[]string) {
	t.Helper()
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: "host=127.0.0.1 port=5432 user=listing dbname=listing sslmode=disable",
	}), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
		Logger:               logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	var statements []string
	capture := func(d *gorm.DB) {
		statements = append(statements, d.Statement.SQL.String())
	}
	require.NoError(t, db.Callback().Create().After("gorm:create").Register("test:capture_create", capture))
	require.NoError(t, db.Callback().Query().After("gorm:query").Register("test:capture_query", capture))
	return db, &statements
}

func TestListingTx_EnsureMetricsNeverOverwrites(t *testing.T) {
	db, statements := dryRunDB(t)
	tx := &listingTx{db: db}

	require.NoError(t, tx.EnsureMetrics(ctx, "5f1c7a3e-8a7e-4c57-9a53-0d8e3c1a2b10"))

	require.Len(t, *statements, 1)
	sql := (*statements)[0]
	assert.Contains(t, sql, `INSERT INTO "listing_metrics"`)
	assert.Contains(t, sql, `ON CONFLICT ("listing_id") DO NOTHING`)
	assert.NotContains(t, sql, "DO UPDATE")
}

func TestListingTx_InsertPublicProfileFallsBackToExistingSlug(t *testing.T) {
	db, statements := dryRunDB(t)
	tx := &listingTx{db: db}

	_, err := tx.InsertPublicProfile(ctx, listing.NewPublicProfile{
		OwnerID: "0b6d2f4e-1c3a-4f7e-9d2b-6a5c4e3f2a10",
		Slug:    listing.PlaceholderSlug("0b6d2f4e-1c3a-4f7e-9d2b-6a5c4e3f2a10"),
		Status:  listing.ProfileStatusDraft,
	})
	require.NoError(t, err)

	require.Len(t, *statements, 2)
	insert, lookup := (*statements)[0], (*statements)[1]
	assert.Contains(t, insert, `INSERT INTO "public_profiles"`)
	assert.Contains(t, insert, `ON CONFLICT ("slug") DO NOTHING`)
	assert.Contains(t, lookup, `FROM "public_profiles"`)
	assert.Contains(t, lookup, "slug = $1")
}

func TestBillingTx_InsertPaymentIsRecordedOnce(t *testing.T) {
	db, statements := dryRunDB(t)
	tx := &billingTx{db: db}

	require.NoError(t, tx.InsertPayment(ctx, billing.PaymentRecord{
		UserID:     "0b6d2f4e-1c3a-4f7e-9d2b-6a5c4e3f2a10",
		Amount:     9990,
		Currency:   "CLP",
		Status:     "approved",
		Method:     "credit_card",
		ExternalID: "123456789",
	}))

	require.Len(t, *statements, 1)
	assert.Contains(t, (*statements)[0], `INSERT INTO "payments"`)
	assert.Contains(t, (*statements)[0], `ON CONFLICT ("external_id") DO NOTHING`)
}
