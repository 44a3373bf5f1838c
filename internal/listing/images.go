package listing

import (
	"context"
	"fmt"
	"strings"
)

// ReplaceListingImages deletes every image of the listing and inserts the
// given gallery in order. Entries with an empty URL are skipped. The first
// image flagged primary is the only primary; without a flag, position 0 is.
func ReplaceListingImages(ctx context.Context, store ImageStore, listingID string, images []ImageInput) error {
	if err := store.DeleteImages(ctx, listingID); err != nil {
		return fmt.Errorf("delete images: %w", err)
	}

	rows := BuildImageRows(listingID, images)
	if len(rows) == 0 {
		return nil
	}
	if err := store.InsertImages(ctx, rows); err != nil {
		return fmt.Errorf("insert images: %w", err)
	}
	return nil
}

// BuildImageRows assigns positions and the primary flag
func BuildImageRows(listingID string, images []ImageInput) []ImageRow {
	rows := make([]ImageRow, 0, len(images))
	primary := -1
	for _, img := range images {
		url := strings.TrimSpace(img.URL)
		if url == "" {
			continue
		}
		if img.IsPrimary && primary < 0 {
			primary = len(rows)
		}
		rows = append(rows, ImageRow{
			ListingID: listingID,
			URL:       url,
			Position:  len(rows),
		})
	}
	if len(rows) == 0 {
		return rows
	}
	if primary < 0 {
		primary = 0
	}
	rows[primary].IsPrimary = true
	return rows
}
