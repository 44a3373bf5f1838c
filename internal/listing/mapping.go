package listing

import (
	"strings"
	"time"
)

const (
	defaultCurrency = "CLP"
	defaultCity     = "Sin comuna"
)

// ToSummary maps a joined storage row to the public projection. Rows whose
// vertical key or listing type is unknown are dropped.
func ToSummary(row SummaryRow) (Summary, bool) {
	vertical, ok := VerticalFromStorageKey(row.VerticalKey)
	if !ok {
		return Summary{}, false
	}
	if !validListingTypes.has(row.ListingType) || strings.TrimSpace(row.Title) == "" {
		return Summary{}, false
	}

	s := Summary{
		ID:          row.ID,
		Vertical:    vertical,
		Type:        row.ListingType,
		Title:       row.Title,
		Description: deref(row.Description),
		Currency:    defaultCurrency,
		City:        cityOf(row),
		Location:    deref(row.Location),
		Status:      row.Status,
		RegionID:    deref(row.RegionID),
		CommuneID:   deref(row.CommuneID),
		OwnerID:     row.UserID,
		ImageURL:    deref(row.ImageURL),
		CreatedAt:   row.CreatedAt,
		PublishedAt: publishedAtOf(row),
	}
	if row.Price != nil && *row.Price >= 0 {
		s.Price = *row.Price
	}
	if c := strings.TrimSpace(deref(row.Currency)); c != "" {
		s.Currency = c
	}
	return s, true
}

// ToMedia maps persisted images to media items
func ToMedia(rows []ImageRow) []Media {
	out := make([]Media, 0, len(rows))
	for _, r := range rows {
		out = append(out, Media{
			ID:        r.ID,
			ListingID: r.ListingID,
			URL:       r.URL,
			Kind:      "image",
			Order:     r.Position,
		})
	}
	return out
}

func cityOf(row SummaryRow) string {
	if name := strings.TrimSpace(deref(row.CommuneName)); name != "" {
		return name
	}
	if loc := deref(row.Location); loc != "" {
		if first := strings.TrimSpace(strings.SplitN(loc, ",", 2)[0]); first != "" {
			return first
		}
	}
	return defaultCity
}

func publishedAtOf(row SummaryRow) time.Time {
	switch {
	case row.PublishedAt != nil:
		return row.PublishedAt.UTC()
	case row.CreatedAt != nil:
		return row.CreatedAt.UTC()
	default:
		return time.Unix(0, 0).UTC()
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
