package listing

import (
	"context"
	"fmt"
)

const (
	ProfileStatusActive = "active"
	ProfileStatusDraft  = "draft"
)

// PlaceholderSlug is the slug given to a lazily created profile
func PlaceholderSlug(ownerID string) string {
	return "u-" + ownerID
}

// EnsureOwnerPublicProfileID returns the owner's active profile, else the
// draft one, else creates a private draft profile with a placeholder slug.
func EnsureOwnerPublicProfileID(ctx context.Context, store ProfileStore, ownerID string) (string, error) {
	for _, status := range []string{ProfileStatusActive, ProfileStatusDraft} {
		id, err := store.FindPublicProfileID(ctx, ownerID, status)
		if err != nil {
			return "", fmt.Errorf("find %s public profile: %w", status, err)
		}
		if id != "" {
			return id, nil
		}
	}

	id, err := store.InsertPublicProfile(ctx, NewPublicProfile{
		OwnerID:  ownerID,
		Slug:     PlaceholderSlug(ownerID),
		Status:   ProfileStatusDraft,
		IsPublic: false,
	})
	if err != nil {
		return "", fmt.Errorf("create public profile: %w", err)
	}
	return id, nil
}
