package listing

import (
	"context"
	"fmt"
	"path"
	"strings"
)

// DocumentPathMarker is the storage segment preceding a document's relative path
const DocumentPathMarker = "/documents/"

// StoragePath derives the storage-relative path from a full document URL.
// Strings without the marker are treated as already relative.
func StoragePath(raw string) string {
	s := strings.TrimSpace(raw)
	if i := strings.Index(s, DocumentPathMarker); i >= 0 {
		s = s[i+len(DocumentPathMarker):]
	}
	return strings.TrimLeft(s, "/")
}

// DocumentPlan is the set of writes that brings persisted documents to the desired state
type DocumentPlan struct {
	Delete []string
	Update []DocumentRow
	Insert []DocumentRow
}

// PlanDocumentSync diffs the desired documents against the persisted ones.
//   - persisted rows referenced neither by id nor by path are deleted
//   - desired entries with a known record id are updated only when a field differs
//   - entries without a known id whose path is already persisted are left untouched
//   - remaining entries are inserted once per path
func PlanDocumentSync(listingID, ownerID string, existing []DocumentRow, desired []DocumentInput) DocumentPlan {
	var plan DocumentPlan

	wanted := make([]DocumentRow, 0, len(desired))
	wantedIDs := make(map[string]struct{})
	wantedPaths := make(map[string]struct{})
	for _, d := range desired {
		p := StoragePath(d.Path)
		if p == "" {
			continue
		}
		name := strings.TrimSpace(d.Name)
		if name == "" {
			name = path.Base(p)
		}
		row := DocumentRow{
			ID:        strings.TrimSpace(d.RecordID),
			ListingID: listingID,
			UserID:    ownerID,
			Name:      name,
			URL:       p,
			FileType:  d.Type,
			FileSize:  d.Size,
			IsPublic:  d.IsPublic,
		}
		wanted = append(wanted, row)
		if row.ID != "" {
			wantedIDs[row.ID] = struct{}{}
		}
		wantedPaths[p] = struct{}{}
	}

	byID := make(map[string]DocumentRow, len(existing))
	persistedPaths := make(map[string]struct{}, len(existing))
	for _, e := range existing {
		_, idWanted := wantedIDs[e.ID]
		_, pathWanted := wantedPaths[StoragePath(e.URL)]
		if !idWanted && !pathWanted {
			plan.Delete = append(plan.Delete, e.ID)
			continue
		}
		byID[e.ID] = e
		persistedPaths[StoragePath(e.URL)] = struct{}{}
	}

	// paths already accounted for in this call
	seen := make(map[string]struct{}, len(wanted))
	for _, w := range wanted {
		if current, ok := byID[w.ID]; ok && w.ID != "" {
			if documentChanged(current, w) {
				plan.Update = append(plan.Update, w)
			}
			seen[w.URL] = struct{}{}
			continue
		}
		if _, ok := persistedPaths[w.URL]; ok {
			continue
		}
		if _, ok := seen[w.URL]; ok {
			continue
		}
		seen[w.URL] = struct{}{}
		w.ID = ""
		plan.Insert = append(plan.Insert, w)
	}
	return plan
}

// SyncListingDocuments applies PlanDocumentSync and recomputes the listing's
// document_urls from the documents currently flagged public.
func SyncListingDocuments(ctx context.Context, store DocumentStore, listingID, ownerID string, desired []DocumentInput) error {
	existing, err := store.ListDocuments(ctx, listingID)
	if err != nil {
		return fmt.Errorf("list documents: %w", err)
	}

	plan := PlanDocumentSync(listingID, ownerID, existing, desired)
	if len(plan.Delete) > 0 {
		if err := store.DeleteDocuments(ctx, plan.Delete); err != nil {
			return fmt.Errorf("delete documents: %w", err)
		}
	}
	for _, d := range plan.Update {
		if err := store.UpdateDocument(ctx, d); err != nil {
			return fmt.Errorf("update document %s: %w", d.ID, err)
		}
	}
	for _, d := range plan.Insert {
		if err := store.InsertDocument(ctx, d); err != nil {
			return fmt.Errorf("insert document %s: %w", d.URL, err)
		}
	}

	urls, err := store.PublicDocumentPaths(ctx, listingID)
	if err != nil {
		return fmt.Errorf("load public documents: %w", err)
	}
	paths := make([]string, 0, len(urls))
	for _, u := range urls {
		if p := StoragePath(u); p != "" {
			paths = append(paths, p)
		}
	}
	if err := store.SetDocumentURLs(ctx, listingID, paths); err != nil {
		return fmt.Errorf("update document_urls: %w", err)
	}
	return nil
}

func documentChanged(current, next DocumentRow) bool {
	return current.URL != next.URL ||
		current.Name != next.Name ||
		current.IsPublic != next.IsPublic ||
		!equalStringPtr(current.FileType, next.FileType) ||
		!equalInt64Ptr(current.FileSize, next.FileSize)
}

func equalStringPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func equalInt64Ptr(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
