package listing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type imageStub struct {
	deleted  []string
	inserted []ImageRow
}

func (s *imageStub) DeleteImages(ctx context.Context, listingID string) error {
	s.deleted = append(s.deleted, listingID)
	return nil
}

func (s *imageStub) InsertImages(ctx context.Context, images []ImageRow) error {
	s.inserted = append(s.inserted, images...)
	return nil
}

func primaries(rows []ImageRow) []int {
	var out []int
	for _, r := range rows {
		if r.IsPrimary {
			out = append(out, r.Position)
		}
	}
	return out
}

func TestBuildImageRows_FirstIsPrimaryByDefault(t *testing.T) {
	rows := BuildImageRows("l1", []ImageInput{{URL: "a"}, {URL: "b"}, {URL: "c"}})
	require.Len(t, rows, 3)
	assert.Equal(t, []int{0}, primaries(rows))
	for i, r := range rows {
		assert.Equal(t, i, r.Position)
		assert.Equal(t, "l1", r.ListingID)
	}
}

func TestBuildImageRows_ExplicitFlagWins(t *testing.T) {
	rows := BuildImageRows("l1", []ImageInput{{URL: "a"}, {URL: "b", IsPrimary: true}, {URL: "c", IsPrimary: true}})
	assert.Equal(t, []int{1}, primaries(rows))
}

func TestBuildImageRows_SkipsEmptyURLs(t *testing.T) {
	rows := BuildImageRows("l1", []ImageInput{{URL: "  "}, {URL: "a"}, {URL: ""}, {URL: "b", IsPrimary: true}})
	require.Len(t, rows, 2)
	assert.Equal(t, "a", rows[0].URL)
	assert.Equal(t, 0, rows[0].Position)
	assert.Equal(t, "b", rows[1].URL)
	assert.Equal(t, 1, rows[1].Position)
	assert.Equal(t, []int{1}, primaries(rows))
}

func TestReplaceListingImages_EmptyListClearsGallery(t *testing.T) {
	stub := &imageStub{}
	require.NoError(t, ReplaceListingImages(context.Background(), stub, "l1", nil))
	assert.Equal(t, []string{"l1"}, stub.deleted)
	assert.Empty(t, stub.inserted)
}
