package memory

import (
	"context"
	"sort"

	"listing-service/internal/listing"

	"github.com/google/uuid"
)

type tx struct {
	st       *state
	failures map[string]error
}

var _ listing.Tx = (*tx)(nil)

func (t *tx) fail(op string) error {
	return t.failures[op]
}

func (t *tx) ResolveVerticalID(ctx context.Context, keys []string) (string, error) {
	for _, key := range keys {
		for id, k := range t.st.verticals {
			if k == key {
				return id, nil
			}
		}
	}
	return "", listing.ErrVerticalNotRegistered
}

func (t *tx) FindPublicProfileID(ctx context.Context, ownerID, status string) (string, error) {
	for _, p := range t.st.profiles {
		if p.OwnerID == ownerID && p.Status == status {
			return p.ID, nil
		}
	}
	return "", nil
}

func (t *tx) InsertPublicProfile(ctx context.Context, p listing.NewPublicProfile) (string, error) {
	if err := t.fail("insert_public_profile"); err != nil {
		return "", err
	}
	for _, existing := range t.st.profiles {
		if existing.Slug == p.Slug {
			return existing.ID, nil
		}
	}
	id := uuid.NewString()
	t.st.profiles = append(t.st.profiles, profile{
		ID:       id,
		OwnerID:  p.OwnerID,
		Slug:     p.Slug,
		Status:   p.Status,
		IsPublic: p.IsPublic,
	})
	return id, nil
}

func (t *tx) ActivePlanLimits(ctx context.Context, ownerID, verticalID string) (listing.Limits, bool, error) {
	for _, s := range t.st.subscriptions {
		if s.OwnerID != ownerID || !s.Active {
			continue
		}
		if verticalID != "" && s.VerticalID != verticalID {
			continue
		}
		return s.Limits, true, nil
	}
	return nil, false, nil
}

// LockOwnerQuota is a no-op; WithinTx already serializes every unit of work
func (t *tx) LockOwnerQuota(ctx context.Context, ownerID, verticalID string) error {
	return nil
}

func (t *tx) CountListings(ctx context.Context, f listing.CountFilter) (int64, error) {
	var n int64
	for id, l := range t.st.listings {
		if l["user_id"] != f.OwnerID || l["vertical_id"] != f.VerticalID {
			continue
		}
		if f.Status != "" && l["status"] != f.Status {
			continue
		}
		if f.ExcludeID != "" && id == f.ExcludeID {
			continue
		}
		n++
	}
	return n, nil
}

func (t *tx) FindOwnedListing(ctx context.Context, id, ownerID string) (*listing.OwnedListing, error) {
	l, ok := t.st.listings[id]
	if !ok || l["user_id"] != ownerID {
		return nil, nil
	}
	return &listing.OwnedListing{
		ID:          id,
		VerticalID:  stringValue(l["vertical_id"]),
		Status:      stringValue(l["status"]),
		PublishedAt: optionalTime(l["published_at"]),
	}, nil
}

func (t *tx) InsertListing(ctx context.Context, fields listing.Fields) (string, error) {
	if err := t.fail("insert_listing"); err != nil {
		return "", err
	}
	id := uuid.NewString()
	row := copyFields(fields)
	row["id"] = id
	t.st.listings[id] = row
	t.st.order = append(t.st.order, id)
	return id, nil
}

func (t *tx) UpdateListing(ctx context.Context, id string, fields listing.Fields) error {
	if err := t.fail("update_listing"); err != nil {
		return err
	}
	row, ok := t.st.listings[id]
	if !ok {
		return notFound("listing", id)
	}
	for k, v := range fields {
		row[k] = v
	}
	return nil
}

func (t *tx) UpsertDetail(ctx context.Context, table, listingID string, fields listing.Fields) error {
	if err := t.fail("upsert_detail"); err != nil {
		return err
	}
	rows, ok := t.st.details[table]
	if !ok {
		rows = map[string]listing.Fields{}
		t.st.details[table] = rows
	}
	row, ok := rows[listingID]
	if !ok {
		row = listing.Fields{"listing_id": listingID}
		rows[listingID] = row
	}
	for k, v := range fields {
		row[k] = v
	}
	return nil
}

func (t *tx) DeleteImages(ctx context.Context, listingID string) error {
	delete(t.st.images, listingID)
	return nil
}

func (t *tx) InsertImages(ctx context.Context, images []listing.ImageRow) error {
	if err := t.fail("insert_images"); err != nil {
		return err
	}
	for _, img := range images {
		img.ID = uuid.NewString()
		t.st.images[img.ListingID] = append(t.st.images[img.ListingID], img)
	}
	return nil
}

func (t *tx) ListDocuments(ctx context.Context, listingID string) ([]listing.DocumentRow, error) {
	var out []listing.DocumentRow
	for _, d := range t.st.documents {
		if d.ListingID == listingID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (t *tx) InsertDocument(ctx context.Context, d listing.DocumentRow) error {
	if err := t.fail("insert_document"); err != nil {
		return err
	}
	d.ID = uuid.NewString()
	t.st.documents = append(t.st.documents, d)
	return nil
}

func (t *tx) UpdateDocument(ctx context.Context, d listing.DocumentRow) error {
	for i, existing := range t.st.documents {
		if existing.ID == d.ID && existing.ListingID == d.ListingID {
			t.st.documents[i] = d
			return nil
		}
	}
	return notFound("document", d.ID)
}

func (t *tx) DeleteDocuments(ctx context.Context, ids []string) error {
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	kept := t.st.documents[:0:0]
	for _, d := range t.st.documents {
		if _, ok := drop[d.ID]; !ok {
			kept = append(kept, d)
		}
	}
	t.st.documents = kept
	return nil
}

func (t *tx) PublicDocumentPaths(ctx context.Context, listingID string) ([]string, error) {
	var paths []string
	for _, d := range t.st.documents {
		if d.ListingID == listingID && d.IsPublic {
			paths = append(paths, d.URL)
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func (t *tx) SetDocumentURLs(ctx context.Context, listingID string, paths []string) error {
	row, ok := t.st.listings[listingID]
	if !ok {
		return notFound("listing", listingID)
	}
	row["document_urls"] = append([]string{}, paths...)
	return nil
}

func (t *tx) EnsureMetrics(ctx context.Context, listingID string) error {
	if err := t.fail("ensure_metrics"); err != nil {
		return err
	}
	if _, ok := t.st.metrics[listingID]; !ok {
		t.st.metrics[listingID] = Metrics{}
	}
	return nil
}
