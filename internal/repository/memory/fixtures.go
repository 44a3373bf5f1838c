package memory

import (
	"listing-service/internal/listing"

	"github.com/google/uuid"
)

// VerticalID returns the registry id of a storage key, or ""
func (s *Store) VerticalID(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, k := range s.st.verticals {
		if k == key {
			return id
		}
	}
	return ""
}

// AddCommune registers a commune name and returns its id
func (s *Store) AddCommune(name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.NewString()
	s.st.communes[id] = name
	return id
}

// AddSubscription attaches plan limits to an owner. An empty verticalID is stored as is.
func (s *Store) AddSubscription(ownerID, verticalID string, limits listing.Limits, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.subscriptions = append(s.st.subscriptions, subscription{
		OwnerID:    ownerID,
		VerticalID: verticalID,
		Active:     active,
		Limits:     limits,
	})
}

// AddPublicProfile stores a profile and returns its id
func (s *Store) AddPublicProfile(ownerID, slug, status string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.NewString()
	s.st.profiles = append(s.st.profiles, profile{ID: id, OwnerID: ownerID, Slug: slug, Status: status})
	return id
}

// PublicProfileCount counts the owner's profiles
func (s *Store) PublicProfileCount(ownerID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, p := range s.st.profiles {
		if p.OwnerID == ownerID {
			n++
		}
	}
	return n
}

// Listing returns a copy of the stored listing columns
func (s *Store) Listing(id string) (listing.Fields, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.st.listings[id]
	if !ok {
		return nil, false
	}
	return copyFields(row), true
}

// Detail returns a copy of a detail row
func (s *Store) Detail(table, listingID string) (listing.Fields, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.st.details[table][listingID]
	if !ok {
		return nil, false
	}
	return copyFields(row), true
}

// Images returns the stored images of a listing in insertion order
func (s *Store) Images(listingID string) []listing.ImageRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]listing.ImageRow(nil), s.st.images[listingID]...)
}

// Documents returns the stored documents of a listing
func (s *Store) Documents(listingID string) []listing.DocumentRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []listing.DocumentRow
	for _, d := range s.st.documents {
		if d.ListingID == listingID {
			out = append(out, d)
		}
	}
	return out
}

// Metrics returns the listing's counters
func (s *Store) Metrics(listingID string) (Metrics, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.st.metrics[listingID]
	return m, ok
}

// SetMetrics overwrites the listing's counters
func (s *Store) SetMetrics(listingID string, m Metrics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.metrics[listingID] = m
}

// FailOn makes the named write return err until cleared with a nil err.
// Names: insert_public_profile, insert_listing, update_listing, upsert_detail,
// insert_images, insert_document, ensure_metrics.
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, op)
		return
	}
	s.failures[op] = err
}
