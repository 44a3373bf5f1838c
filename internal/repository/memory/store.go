// Package memory is an in-process listing.Store used by the "memory" storage
// driver and by tests. Transactions are serialized and rolled back by
// restoring a snapshot.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"listing-service/internal/listing"

	"github.com/google/uuid"
)

// Metrics mirrors a listing_metrics row
type Metrics struct {
	Views     int64
	Clicks    int64
	Favorites int64
	Shares    int64
}

type profile struct {
	ID       string
	OwnerID  string
	Slug     string
	Status   string
	IsPublic bool
}

type subscription struct {
	OwnerID    string
	VerticalID string
	Active     bool
	Limits     listing.Limits
}

type state struct {
	verticals     map[string]string // id -> key
	communes      map[string]string // id -> name
	profiles      []profile
	subscriptions []subscription
	listings      map[string]listing.Fields
	order         []string
	details       map[string]map[string]listing.Fields // table -> listing id -> row
	images        map[string][]listing.ImageRow
	documents     []listing.DocumentRow
	metrics       map[string]Metrics
}

// Store is a mutex guarded in-memory listing.Store
type Store struct {
	mu       sync.Mutex
	st       *state
	failures map[string]error
}

// New returns a store with the four verticals registered
func New() *Store {
	st := &state{
		verticals: map[string]string{},
		communes:  map[string]string{},
		listings:  map[string]listing.Fields{},
		details:   map[string]map[string]listing.Fields{},
		images:    map[string][]listing.ImageRow{},
		metrics:   map[string]Metrics{},
	}
	for _, v := range listing.Verticals {
		st.verticals[uuid.NewString()] = v.StorageKey()
	}
	return &Store{st: st, failures: map[string]error{}}
}

// WithinTx runs fn against a private copy of the state and publishes it only on success
func (s *Store) WithinTx(ctx context.Context, fn func(tx listing.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.st.clone()
	if err := fn(&tx{st: work, failures: s.failures}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.st = work
	return nil
}

// ListSummaries filters, sorts by publish time (newest first) and paginates
func (s *Store) ListSummaries(ctx context.Context, f listing.SummaryFilter) ([]listing.SummaryRow, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make(map[string]struct{}, len(f.VerticalKeys))
	for _, k := range f.VerticalKeys {
		keys[k] = struct{}{}
	}

	var matched []listing.SummaryRow
	for _, id := range s.st.order {
		row := s.st.summaryRow(id)
		if f.Status != "" && row.Status != f.Status {
			continue
		}
		if f.OwnerID != "" && row.UserID != f.OwnerID {
			continue
		}
		if len(keys) > 0 {
			if _, ok := keys[row.VerticalKey]; !ok {
				continue
			}
		}
		if f.ListingType != "" && row.ListingType != f.ListingType {
			continue
		}
		if f.Keyword != "" && !containsFold(row.Title, f.Keyword) && !containsFold(deref(row.Description), f.Keyword) {
			continue
		}
		if f.City != "" && !containsFold(deref(row.CommuneName), f.City) && !containsFold(deref(row.Location), f.City) {
			continue
		}
		if f.Currency != "" && !strings.EqualFold(deref(row.Currency), f.Currency) {
			continue
		}
		if f.MinPrice != nil && (row.Price == nil || *row.Price < *f.MinPrice) {
			continue
		}
		if f.MaxPrice != nil && (row.Price == nil || *row.Price > *f.MaxPrice) {
			continue
		}
		matched = append(matched, row)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i].PublishedAt, matched[j].PublishedAt
		if a == nil || b == nil {
			return a != nil
		}
		return a.After(*b)
	})

	total := int64(len(matched))
	if f.Offset >= len(matched) {
		return []listing.SummaryRow{}, total, nil
	}
	end := len(matched)
	if f.Limit > 0 && f.Offset+f.Limit < end {
		end = f.Offset + f.Limit
	}
	return matched[f.Offset:end], total, nil
}

// FindPublishedSummary returns nil when id is absent or not published
func (s *Store) FindPublishedSummary(ctx context.Context, id string) (*listing.SummaryRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.st.listings[id]; !ok {
		return nil, nil
	}
	row := s.st.summaryRow(id)
	if row.Status != listing.StatusPublished {
		return nil, nil
	}
	return &row, nil
}

// ListImages returns the listing's images by position
func (s *Store) ListImages(ctx context.Context, listingID string) ([]listing.ImageRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := append([]listing.ImageRow(nil), s.st.images[listingID]...)
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Position < rows[j].Position })
	return rows, nil
}

func (st *state) summaryRow(id string) listing.SummaryRow {
	f := st.listings[id]
	row := listing.SummaryRow{
		ID:          id,
		VerticalKey: st.verticals[stringValue(f["vertical_id"])],
		ListingType: stringValue(f["listing_type"]),
		Title:       stringValue(f["title"]),
		Description: optionalString(f["description"]),
		Price:       optionalFloat(f["price"]),
		Currency:    optionalString(f["currency"]),
		Status:      stringValue(f["status"]),
		UserID:      stringValue(f["user_id"]),
		Location:    optionalString(f["location"]),
		RegionID:    optionalString(f["region_id"]),
		CommuneID:   optionalString(f["commune_id"]),
		CreatedAt:   optionalTime(f["created_at"]),
		PublishedAt: optionalTime(f["published_at"]),
	}
	if row.CommuneID != nil {
		if name, ok := st.communes[*row.CommuneID]; ok {
			row.CommuneName = &name
		}
	}
	if images := orderedImages(st.images[id]); len(images) > 0 {
		url := images[0].URL
		row.ImageURL = &url
	}
	return row
}

// orderedImages puts the primary image first, then by position
func orderedImages(images []listing.ImageRow) []listing.ImageRow {
	out := append([]listing.ImageRow(nil), images...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].IsPrimary != out[j].IsPrimary {
			return out[i].IsPrimary
		}
		return out[i].Position < out[j].Position
	})
	return out
}

func (st *state) clone() *state {
	c := &state{
		verticals:     make(map[string]string, len(st.verticals)),
		communes:      make(map[string]string, len(st.communes)),
		profiles:      append([]profile(nil), st.profiles...),
		subscriptions: append([]subscription(nil), st.subscriptions...),
		listings:      make(map[string]listing.Fields, len(st.listings)),
		order:         append([]string(nil), st.order...),
		details:       make(map[string]map[string]listing.Fields, len(st.details)),
		images:        make(map[string][]listing.ImageRow, len(st.images)),
		documents:     append([]listing.DocumentRow(nil), st.documents...),
		metrics:       make(map[string]Metrics, len(st.metrics)),
	}
	for k, v := range st.verticals {
		c.verticals[k] = v
	}
	for k, v := range st.communes {
		c.communes[k] = v
	}
	for k, v := range st.listings {
		c.listings[k] = copyFields(v)
	}
	for table, rows := range st.details {
		c.details[table] = make(map[string]listing.Fields, len(rows))
		for k, v := range rows {
			c.details[table][k] = copyFields(v)
		}
	}
	for k, v := range st.images {
		c.images[k] = append([]listing.ImageRow(nil), v...)
	}
	for k, v := range st.metrics {
		c.metrics[k] = v
	}
	return c
}

func copyFields(f listing.Fields) listing.Fields {
	out := make(listing.Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

func stringValue(v interface{}) string {
	s, _ := v.(string)
	return s
}

func optionalString(v interface{}) *string {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	return &s
}

func optionalFloat(v interface{}) *float64 {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	default:
		return nil
	}
	return &f
}

func optionalTime(v interface{}) *time.Time {
	t, ok := v.(time.Time)
	if !ok {
		return nil
	}
	return &t
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func notFound(what, id string) error {
	return fmt.Errorf("%s %s not found", what, id)
}
var _ listing.Store = (*Store)(nil)
