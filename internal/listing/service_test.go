package listing_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"listing-service/internal/listing"
	"listing-service/internal/repository/memory"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var ctx = context.Background()

func newService(t *testing.T) (*listing.Service, *memory.Store) {
	t.Helper()
	store := memory.New()
	return listing.NewService(store, nil, zap.NewNop()), store
}

func createDraft(t *testing.T, svc *listing.Service, owner string, title string) string {
	t.Helper()
	res, err := svc.UpsertListing(ctx, listing.UpsertInput{
		Vertical:   listing.VerticalAutos,
		AuthUserID: owner,
		Listing:    map[string]interface{}{"title": title, "status": listing.StatusDraft},
	})
	require.NoError(t, err)
	require.True(t, res.Created)
	return res.ID
}

func publish(svc *listing.Service, owner, id string) error {
	_, err := svc.UpsertListing(ctx, listing.UpsertInput{
		Vertical:   listing.VerticalAutos,
		ListingID:  id,
		AuthUserID: owner,
		Listing:    map[string]interface{}{"status": listing.StatusPublished},
	})
	return err
}

func TestUpsert_PlanLimitsScenario(t *testing.T) {
	svc, store := newService(t)
	owner := uuid.NewString()
	store.AddSubscription(owner, store.VerticalID("vehicles"), listing.Limits{
		"max_active_listings": float64(1),
		"max_total_listings":  float64(3),
	}, true)

	a := createDraft(t, svc, owner, "A")
	b := createDraft(t, svc, owner, "B")
	require.NoError(t, publish(svc, owner, a))

	err := publish(svc, owner, b)
	require.Error(t, err)
	assert.Equal(t, "publish_limit_exceeded:1", err.Error())
	row, _ := store.Listing(b)
	assert.Equal(t, listing.StatusDraft, row["status"])

	createDraft(t, svc, owner, "C")

	_, err = svc.UpsertListing(ctx, listing.UpsertInput{
		Vertical:   listing.VerticalAutos,
		AuthUserID: owner,
		Listing:    map[string]interface{}{"title": "D"},
	})
	qe, ok := listing.AsQuotaError(err)
	require.True(t, ok)
	assert.Equal(t, listing.QuotaCreate, qe.Kind)
	assert.Equal(t, 3, qe.Max)
}

func TestUpsert_RepublishingSelfIsNotCounted(t *testing.T) {
	svc, store := newService(t)
	owner := uuid.NewString()
	store.AddSubscription(owner, "", listing.Limits{"max_listings": float64(1)}, true)

	id := createDraft(t, svc, owner, "only")
	require.NoError(t, publish(svc, owner, id))
	require.NoError(t, publish(svc, owner, id))
}

func TestUpsert_FreeTierDefaults(t *testing.T) {
	svc, store := newService(t)
	owner := uuid.NewString()
	// inactive subscriptions are ignored
	store.AddSubscription(owner, "", listing.Limits{"max_listings": float64(50)}, false)

	createDraft(t, svc, owner, "first")
	_, err := svc.UpsertListing(ctx, listing.UpsertInput{
		Vertical:   listing.VerticalAutos,
		AuthUserID: owner,
		Listing:    map[string]interface{}{"title": "second"},
	})
	assert.EqualError(t, err, "create_limit_exceeded:1")
}

func TestUpsert_CreatePublishedChecksActiveQuotaFirst(t *testing.T) {
	svc, store := newService(t)
	owner := uuid.NewString()
	store.AddSubscription(owner, store.VerticalID("properties"), listing.Limits{
		"max_active_listings": float64(1),
		"max_total_listings":  float64(5),
	}, true)

	in := listing.UpsertInput{
		Vertical:   listing.VerticalProperties,
		AuthUserID: owner,
		Listing:    map[string]interface{}{"title": "Casa", "status": "published"},
	}
	_, err := svc.UpsertListing(ctx, in)
	require.NoError(t, err)

	_, err = svc.UpsertListing(ctx, in)
	assert.EqualError(t, err, "publish_limit_exceeded:1")

	in.Listing = map[string]interface{}{"title": "Casa", "status": "draft"}
	_, err = svc.UpsertListing(ctx, in)
	assert.NoError(t, err)
}

func TestUpsert_QuotaIsPerVertical(t *testing.T) {
	svc, _ := newService(t)
	owner := uuid.NewString()

	createDraft(t, svc, owner, "auto")
	_, err := svc.UpsertListing(ctx, listing.UpsertInput{
		Vertical:   listing.VerticalFood,
		AuthUserID: owner,
		Listing:    map[string]interface{}{"title": "Empanadas"},
	})
	assert.NoError(t, err)
}

func TestUpsert_OwnershipIsolation(t *testing.T) {
	svc, store := newService(t)
	owner := uuid.NewString()
	intruder := uuid.NewString()
	id := createDraft(t, svc, owner, "mine")

	_, err := svc.UpsertListing(ctx, listing.UpsertInput{
		Vertical:   listing.VerticalAutos,
		ListingID:  id,
		AuthUserID: intruder,
		Listing:    map[string]interface{}{"title": "stolen"},
	})
	assert.ErrorIs(t, err, listing.ErrNotFoundOrDenied)

	_, err = svc.UpsertListing(ctx, listing.UpsertInput{
		Vertical:   listing.VerticalAutos,
		ListingID:  uuid.NewString(),
		AuthUserID: intruder,
		Listing:    map[string]interface{}{"title": "ghost"},
	})
	assert.ErrorIs(t, err, listing.ErrNotFoundOrDenied)

	row, _ := store.Listing(id)
	assert.Equal(t, "mine", row["title"])
	assert.Equal(t, 0, store.PublicProfileCount(intruder))
}

func TestUpsert_VerticalMismatch(t *testing.T) {
	svc, _ := newService(t)
	owner := uuid.NewString()
	id := createDraft(t, svc, owner, "auto")

	_, err := svc.UpsertListing(ctx, listing.UpsertInput{
		Vertical:   listing.VerticalStores,
		ListingID:  id,
		AuthUserID: owner,
		Listing:    map[string]interface{}{"title": "now a store"},
	})
	assert.ErrorIs(t, err, listing.ErrVerticalMismatch)
}

func TestUpsert_RequiresUser(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.UpsertListing(ctx, listing.UpsertInput{Vertical: listing.VerticalAutos})
	assert.ErrorIs(t, err, listing.ErrUnauthenticated)
}

func TestUpsert_ServerControlsIdentityColumns(t *testing.T) {
	svc, store := newService(t)
	owner := uuid.NewString()

	res, err := svc.UpsertListing(ctx, listing.UpsertInput{
		Vertical:   listing.VerticalAutos,
		AuthUserID: owner,
		Listing: map[string]interface{}{
			"id":            "forged",
			"user_id":       "someone-else",
			"title":         "Corolla",
			"document_urls": []interface{}{"x.pdf"},
		},
		Detail: map[string]interface{}{"listing_id": "forged", "year": float64(2019), "bedrooms": float64(2)},
	})
	require.NoError(t, err)
	assert.NotEqual(t, "forged", res.ID)

	row, ok := store.Listing(res.ID)
	require.True(t, ok)
	assert.Equal(t, owner, row["user_id"])
	assert.Equal(t, store.VerticalID("vehicles"), row["vertical_id"])
	assert.Equal(t, listing.TypeSale, row["listing_type"])
	assert.NotContains(t, row, "document_urls")
	assert.Nil(t, row["published_at"])

	detail, ok := store.Detail("listings_vehicles", res.ID)
	require.True(t, ok)
	assert.Equal(t, listing.Fields{"listing_id": res.ID, "year": float64(2019)}, detail)
}

func TestUpsert_DetailRowExistsWithoutFields(t *testing.T) {
	svc, store := newService(t)
	id := createDraft(t, svc, uuid.NewString(), "bare")

	_, ok := store.Detail("listings_vehicles", id)
	assert.True(t, ok)
}

func TestUpsert_PublishedAtLifecycle(t *testing.T) {
	svc, store := newService(t)
	owner := uuid.NewString()
	store.AddSubscription(owner, "", listing.Limits{"max_listings": float64(5)}, true)
	id := createDraft(t, svc, owner, "x")

	require.NoError(t, publish(svc, owner, id))
	row, _ := store.Listing(id)
	first, ok := row["published_at"].(time.Time)
	require.True(t, ok)

	time.Sleep(2 * time.Millisecond)
	require.NoError(t, publish(svc, owner, id))
	row, _ = store.Listing(id)
	assert.Equal(t, first, row["published_at"])

	_, err := svc.UpsertListing(ctx, listing.UpsertInput{
		Vertical:   listing.VerticalAutos,
		ListingID:  id,
		AuthUserID: owner,
		Listing:    map[string]interface{}{"status": listing.StatusInactive},
	})
	require.NoError(t, err)
	row, _ = store.Listing(id)
	assert.Nil(t, row["published_at"])

	require.NoError(t, publish(svc, owner, id))
	row, _ = store.Listing(id)
	again, ok := row["published_at"].(time.Time)
	require.True(t, ok)
	assert.True(t, again.After(first))
}

func TestUpsert_OmittedStatusResetsToDraft(t *testing.T) {
	svc, store := newService(t)
	owner := uuid.NewString()
	id := createDraft(t, svc, owner, "x")
	require.NoError(t, publish(svc, owner, id))

	_, err := svc.UpsertListing(ctx, listing.UpsertInput{
		Vertical:   listing.VerticalAutos,
		ListingID:  id,
		AuthUserID: owner,
		Listing:    map[string]interface{}{"title": "renamed"},
	})
	require.NoError(t, err)
	row, _ := store.Listing(id)
	assert.Equal(t, listing.StatusDraft, row["status"])
}

func TestEnsureOwnerPublicProfileID_Idempotent(t *testing.T) {
	store := memory.New()
	owner := uuid.NewString()

	var first, second string
	require.NoError(t, store.WithinTx(ctx, func(tx listing.Tx) error {
		var err error
		first, err = listing.EnsureOwnerPublicProfileID(ctx, tx, owner)
		return err
	}))
	require.NoError(t, store.WithinTx(ctx, func(tx listing.Tx) error {
		var err error
		second, err = listing.EnsureOwnerPublicProfileID(ctx, tx, owner)
		return err
	}))

	assert.NotEmpty(t, first)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, store.PublicProfileCount(owner))
}

func TestEnsureOwnerPublicProfileID_PrefersActive(t *testing.T) {
	store := memory.New()
	owner := uuid.NewString()
	store.AddPublicProfile(owner, "draft-one", listing.ProfileStatusDraft)
	active := store.AddPublicProfile(owner, "active-one", listing.ProfileStatusActive)

	require.NoError(t, store.WithinTx(ctx, func(tx listing.Tx) error {
		id, err := listing.EnsureOwnerPublicProfileID(ctx, tx, owner)
		assert.Equal(t, active, id)
		return err
	}))
}

func TestUpsert_AttachesOwnerProfile(t *testing.T) {
	svc, store := newService(t)
	owner := uuid.NewString()
	a := createDraft(t, svc, owner, "a")

	store.AddSubscription(owner, "", listing.Limits{"max_listings": float64(5)}, true)
	b := createDraft(t, svc, owner, "b")

	rowA, _ := store.Listing(a)
	rowB, _ := store.Listing(b)
	assert.NotEmpty(t, rowA["public_profile_id"])
	assert.Equal(t, rowA["public_profile_id"], rowB["public_profile_id"])
	assert.Equal(t, 1, store.PublicProfileCount(owner))
}

func TestUpsert_MetricsAreNotReset(t *testing.T) {
	svc, store := newService(t)
	owner := uuid.NewString()
	id := createDraft(t, svc, owner, "x")

	m, ok := store.Metrics(id)
	require.True(t, ok)
	assert.Equal(t, memory.Metrics{}, m)

	store.SetMetrics(id, memory.Metrics{Views: 40, Clicks: 7, Favorites: 3, Shares: 1})
	_, err := svc.UpsertListing(ctx, listing.UpsertInput{
		Vertical:   listing.VerticalAutos,
		ListingID:  id,
		AuthUserID: owner,
		Listing:    map[string]interface{}{"title": "edited"},
	})
	require.NoError(t, err)

	m, _ = store.Metrics(id)
	assert.Equal(t, memory.Metrics{Views: 40, Clicks: 7, Favorites: 3, Shares: 1}, m)
}

func TestUpsert_ReplaceImages(t *testing.T) {
	svc, store := newService(t)
	owner := uuid.NewString()
	res, err := svc.UpsertListing(ctx, listing.UpsertInput{
		Vertical:   listing.VerticalAutos,
		AuthUserID: owner,
		Listing:    map[string]interface{}{"title": "gallery"},
		Images:     []listing.ImageInput{{URL: "https://img/1.jpg"}, {URL: "https://img/2.jpg"}, {URL: "https://img/3.jpg"}},
	})
	require.NoError(t, err)
	assert.Len(t, store.Images(res.ID), 3)

	// without the flag an update leaves the gallery alone
	_, err = svc.UpsertListing(ctx, listing.UpsertInput{
		Vertical:   listing.VerticalAutos,
		ListingID:  res.ID,
		AuthUserID: owner,
		Listing:    map[string]interface{}{"title": "gallery"},
		Images:     []listing.ImageInput{{URL: "https://img/9.jpg"}},
	})
	require.NoError(t, err)
	assert.Len(t, store.Images(res.ID), 3)

	_, err = svc.UpsertListing(ctx, listing.UpsertInput{
		Vertical:      listing.VerticalAutos,
		ListingID:     res.ID,
		AuthUserID:    owner,
		Listing:       map[string]interface{}{"title": "gallery"},
		ReplaceImages: true,
		Images:        []listing.ImageInput{},
	})
	require.NoError(t, err)
	assert.Empty(t, store.Images(res.ID))
}

func TestUpsert_DocumentReconciliationRoundTrip(t *testing.T) {
	svc, store := newService(t)
	owner := uuid.NewString()
	base := "https://files.example.com/storage/v1/object/public/documents/"

	res, err := svc.UpsertListing(ctx, listing.UpsertInput{
		Vertical:   listing.VerticalAutos,
		AuthUserID: owner,
		Listing:    map[string]interface{}{"title": "docs"},
		Documents: []listing.DocumentInput{
			{Name: "Padron", Path: base + owner + "/a.pdf", IsPublic: true},
			{Name: "SOAP", Path: owner + "/b.pdf"},
			{Name: "Revision", Path: base + owner + "/c.pdf", IsPublic: true},
		},
	})
	require.NoError(t, err)
	docs := store.Documents(res.ID)
	require.Len(t, docs, 3)
	row, _ := store.Listing(res.ID)
	assert.Equal(t, []string{owner + "/a.pdf", owner + "/c.pdf"}, row["document_urls"])

	var idA string
	for _, d := range docs {
		if d.URL == owner+"/a.pdf" {
			idA = d.ID
		}
	}
	require.NotEmpty(t, idA)

	// a keeps its id, b survives by path and is sent again without an id, c is dropped, d is new
	_, err = svc.UpsertListing(ctx, listing.UpsertInput{
		Vertical:   listing.VerticalAutos,
		ListingID:  res.ID,
		AuthUserID: owner,
		Listing:    map[string]interface{}{"title": "docs"},
		Documents: []listing.DocumentInput{
			{RecordID: idA, Name: "Padron", Path: base + owner + "/a.pdf", IsPublic: true},
			{Name: "SOAP", Path: base + owner + "/b.pdf"},
			{Name: "Permiso", Path: owner + "/d.pdf", IsPublic: true},
		},
	})
	require.NoError(t, err)

	docs = store.Documents(res.ID)
	paths := make([]string, 0, len(docs))
	for _, d := range docs {
		paths = append(paths, d.URL)
		if d.URL == owner+"/a.pdf" {
			assert.Equal(t, idA, d.ID)
		}
	}
	assert.ElementsMatch(t, []string{owner + "/a.pdf", owner + "/b.pdf", owner + "/d.pdf"}, paths)
	row, _ = store.Listing(res.ID)
	assert.Equal(t, []string{owner + "/a.pdf", owner + "/d.pdf"}, row["document_urls"])

	// omitting documents leaves them untouched; an empty set clears them
	_, err = svc.UpsertListing(ctx, listing.UpsertInput{
		Vertical: listing.VerticalAutos, ListingID: res.ID, AuthUserID: owner,
		Listing: map[string]interface{}{"title": "docs"},
	})
	require.NoError(t, err)
	assert.Len(t, store.Documents(res.ID), 3)

	_, err = svc.UpsertListing(ctx, listing.UpsertInput{
		Vertical: listing.VerticalAutos, ListingID: res.ID, AuthUserID: owner,
		Listing:   map[string]interface{}{"title": "docs"},
		Documents: []listing.DocumentInput{},
	})
	require.NoError(t, err)
	assert.Empty(t, store.Documents(res.ID))
	row, _ = store.Listing(res.ID)
	assert.Equal(t, []string{}, row["document_urls"])
}

func TestUpsert_ResubmittedDocumentsAreNotDuplicated(t *testing.T) {
	svc, store := newService(t)
	owner := uuid.NewString()
	docs := []listing.DocumentInput{
		{Name: "Padron", Path: owner + "/a.pdf", IsPublic: true},
		{Name: "SOAP", Path: owner + "/b.pdf"},
	}

	res, err := svc.UpsertListing(ctx, listing.UpsertInput{
		Vertical:   listing.VerticalAutos,
		AuthUserID: owner,
		Listing:    map[string]interface{}{"title": "docs"},
		Documents:  docs,
	})
	require.NoError(t, err)
	first := store.Documents(res.ID)
	require.Len(t, first, 2)

	_, err = svc.UpsertListing(ctx, listing.UpsertInput{
		Vertical:   listing.VerticalAutos,
		ListingID:  res.ID,
		AuthUserID: owner,
		Listing:    map[string]interface{}{"title": "docs"},
		Documents:  docs,
	})
	require.NoError(t, err)

	second := store.Documents(res.ID)
	assert.ElementsMatch(t, first, second)
	row, _ := store.Listing(res.ID)
	assert.Equal(t, []string{owner + "/a.pdf"}, row["document_urls"])
}

func TestUpsert_FailedStepRollsBack(t *testing.T) {
	svc, store := newService(t)
	owner := uuid.NewString()
	store.FailOn("ensure_metrics", errors.New("connection reset"))

	_, err := svc.UpsertListing(ctx, listing.UpsertInput{
		Vertical:   listing.VerticalAutos,
		AuthUserID: owner,
		Listing:    map[string]interface{}{"title": "x"},
		Images:     []listing.ImageInput{{URL: "https://img/1.jpg"}},
	})
	var se *listing.StepError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "ensure metrics", se.Step)
	assert.Equal(t, 0, store.PublicProfileCount(owner))

	store.FailOn("ensure_metrics", nil)
	page, err := svc.ListMine(ctx, owner, listing.MineQuery{})
	require.NoError(t, err)
	assert.Zero(t, page.Total)
}

// Quota checks are serialized per owner and vertical, so concurrent creates
// cannot overshoot the ceiling.
func TestUpsert_ConcurrentCreatesRespectQuota(t *testing.T) {
	svc, store := newService(t)
	owner := uuid.NewString()
	store.AddSubscription(owner, "", listing.Limits{"max_total_listings": float64(3)}, true)

	var wg sync.WaitGroup
	var mu sync.Mutex
	created, rejected := 0, 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.UpsertListing(ctx, listing.UpsertInput{
				Vertical:   listing.VerticalAutos,
				AuthUserID: owner,
				Listing:    map[string]interface{}{"title": "race"},
			})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				created++
			} else if _, ok := listing.AsQuotaError(err); ok {
				rejected++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, created)
	assert.Equal(t, 7, rejected)
}
