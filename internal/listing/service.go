package listing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"listing-service/pkg/logger"
	"listing-service/prometheus"

	"go.uber.org/zap"
)

// IListingService defines the listings operations exposed to handlers
type IListingService interface {
	UpsertListing(ctx context.Context, in UpsertInput) (*UpsertResult, error)
	List(ctx context.Context, q ListQuery) (*Page, error)
	ListMine(ctx context.Context, ownerID string, q MineQuery) (*Page, error)
	FindByID(ctx context.Context, id string) (*Summary, error)
	ListMedia(ctx context.Context, listingID string) ([]Media, error)
}

// Service implements IListingService on top of a Store
type Service struct {
	store Store
	cache SummaryCache
	log   *zap.Logger
	now   func() time.Time
}

// NewService creates a listing service. cache may be nil.
func NewService(store Store, cache SummaryCache, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		store: store,
		cache: cache,
		log:   log,
		now: func() time.Time {
			// storage keeps microseconds
			return time.Now().UTC().Truncate(time.Microsecond)
		},
	}
}

// UpsertListing creates (empty ListingID) or updates a listing with its detail
// row, images, documents and metrics row in a single transaction. Quotas are
// checked before the first write.
func (s *Service) UpsertListing(ctx context.Context, in UpsertInput) (*UpsertResult, error) {
	if in.AuthUserID == "" {
		return nil, ErrUnauthenticated
	}
	if !in.Vertical.Valid() {
		return nil, fmt.Errorf("%w: unknown vertical %q", ErrInvalidInput, in.Vertical)
	}

	listingFields, err := SanitizeListingFields(in.Listing)
	if err != nil {
		return nil, err
	}
	detailFields, err := SanitizeDetailFields(in.Vertical, in.Detail)
	if err != nil {
		return nil, err
	}

	creating := in.ListingID == ""
	nextStatus := NextStatus(listingFields)
	listingFields["status"] = nextStatus
	if _, ok := listingFields["listing_type"]; creating && !ok {
		listingFields["listing_type"] = TypeSale
	}

	log := logger.FromStdContext(ctx, s.log).With(
		zap.String("vertical", string(in.Vertical)),
		zap.String("user_id", in.AuthUserID),
	)

	var result UpsertResult
	err = s.store.WithinTx(ctx, func(tx Tx) error {
		verticalID, err := tx.ResolveVerticalID(ctx, in.Vertical.StorageCandidates())
		if err != nil {
			if errors.Is(err, ErrVerticalNotRegistered) {
				return err
			}
			return stepErr("resolve vertical", err)
		}

		var existing *OwnedListing
		if !creating {
			existing, err = tx.FindOwnedListing(ctx, in.ListingID, in.AuthUserID)
			if err != nil {
				return stepErr("load listing", err)
			}
			if existing == nil {
				return ErrNotFoundOrDenied
			}
			if existing.VerticalID != verticalID {
				return ErrVerticalMismatch
			}
		}

		if err := tx.LockOwnerQuota(ctx, in.AuthUserID, verticalID); err != nil {
			return stepErr("lock quota", err)
		}
		excludeID := ""
		if existing != nil {
			excludeID = existing.ID
		}
		if err := s.enforceQuotas(ctx, tx, in.AuthUserID, verticalID, excludeID, creating, nextStatus == StatusPublished); err != nil {
			return err
		}

		profileID, err := EnsureOwnerPublicProfileID(ctx, tx, in.AuthUserID)
		if err != nil {
			return stepErr("ensure public profile", err)
		}

		now := s.now()
		row := make(Fields, len(listingFields)+6)
		for k, v := range listingFields {
			row[k] = v
		}
		row["vertical_id"] = verticalID
		row["public_profile_id"] = profileID
		row["updated_at"] = now
		row["published_at"] = nextPublishedAt(existing, nextStatus, now)

		if creating {
			row["user_id"] = in.AuthUserID
			row["created_at"] = now
			id, err := tx.InsertListing(ctx, row)
			if err != nil {
				return stepErr("insert listing", err)
			}
			result.ID = id
			result.Created = true
		} else {
			if err := tx.UpdateListing(ctx, existing.ID, row); err != nil {
				return stepErr("update listing", err)
			}
			result.ID = existing.ID
		}
		result.UpdatedAt = now

		if err := tx.UpsertDetail(ctx, in.Vertical.DetailTable(), result.ID, detailFields); err != nil {
			return stepErr("upsert detail", err)
		}

		if in.ReplaceImages || (creating && len(in.Images) > 0) {
			if err := ReplaceListingImages(ctx, tx, result.ID, in.Images); err != nil {
				return stepErr("replace images", err)
			}
		}

		if in.Documents != nil {
			if err := SyncListingDocuments(ctx, tx, result.ID, in.AuthUserID, in.Documents); err != nil {
				return stepErr("sync documents", err)
			}
		}

		if err := tx.EnsureMetrics(ctx, result.ID); err != nil {
			return stepErr("ensure metrics", err)
		}
		return nil
	})
	if err != nil {
		if qe, ok := AsQuotaError(err); ok {
			prometheus.RecordQuotaRejection(string(qe.Kind), string(in.Vertical))
			log.Info("Listing write rejected by plan limits",
				zap.String("kind", string(qe.Kind)),
				zap.Int("max", qe.Max))
			return nil, err
		}
		var se *StepError
		if errors.As(err, &se) {
			log.Error("Listing upsert failed", zap.String("step", se.Step), zap.Error(se.Err))
		}
		return nil, err
	}

	s.invalidate(ctx, log, result.ID)

	operation := "update"
	if result.Created {
		operation = "create"
	}
	prometheus.RecordListingOperation(operation, string(in.Vertical))
	log.Info("Listing upserted",
		zap.String("listing_id", result.ID),
		zap.String("operation", operation),
		zap.String("status", nextStatus))

	return &result, nil
}

func (s *Service) enforceQuotas(ctx context.Context, tx Tx, ownerID, verticalID, excludeID string, creating, publishing bool) error {
	if !creating && !publishing {
		return nil
	}

	limits, err := ResolvePlanLimits(ctx, tx, ownerID, verticalID)
	if err != nil {
		return stepErr("resolve plan limits", err)
	}

	if publishing {
		maxActive := ResolveMaxActiveListings(limits)
		published, err := tx.CountListings(ctx, CountFilter{
			OwnerID:    ownerID,
			VerticalID: verticalID,
			Status:     StatusPublished,
			ExcludeID:  excludeID,
		})
		if err != nil {
			return stepErr("count published listings", err)
		}
		if published >= int64(maxActive) {
			return &QuotaError{Kind: QuotaPublish, Max: maxActive}
		}
	}

	if creating {
		maxTotal := ResolveMaxTotalListings(limits)
		total, err := tx.CountListings(ctx, CountFilter{OwnerID: ownerID, VerticalID: verticalID})
		if err != nil {
			return stepErr("count listings", err)
		}
		if total >= int64(maxTotal) {
			return &QuotaError{Kind: QuotaCreate, Max: maxTotal}
		}
	}
	return nil
}

// nextPublishedAt keeps the first publish time while a listing stays published
func nextPublishedAt(existing *OwnedListing, nextStatus string, now time.Time) interface{} {
	if nextStatus != StatusPublished {
		return nil
	}
	if existing != nil && existing.Status == StatusPublished && existing.PublishedAt != nil {
		return *existing.PublishedAt
	}
	return now
}

// List returns published listings matching q
func (s *Service) List(ctx context.Context, q ListQuery) (*Page, error) {
	if err := q.normalize(); err != nil {
		return nil, err
	}
	return s.page(ctx, SummaryFilter{
		VerticalKeys: verticalKeys(q.Vertical),
		Status:       StatusPublished,
		ListingType:  q.Type,
		Keyword:      q.Keyword,
		City:         q.City,
		Currency:     q.Currency,
		MinPrice:     q.MinPrice,
		MaxPrice:     q.MaxPrice,
		Limit:        q.Limit,
		Offset:       q.Offset,
	})
}

// ListMine returns the owner's listings in any status
func (s *Service) ListMine(ctx context.Context, ownerID string, q MineQuery) (*Page, error) {
	if ownerID == "" {
		return nil, ErrUnauthenticated
	}
	if err := q.normalize(); err != nil {
		return nil, err
	}
	return s.page(ctx, SummaryFilter{
		VerticalKeys: verticalKeys(q.Vertical),
		OwnerID:      ownerID,
		Status:       q.Status,
		ListingType:  q.Type,
		Limit:        q.Limit,
		Offset:       q.Offset,
	})
}

func (s *Service) page(ctx context.Context, f SummaryFilter) (*Page, error) {
	rows, total, err := s.store.ListSummaries(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list listings: %w", err)
	}
	items := make([]Summary, 0, len(rows))
	for _, row := range rows {
		if summary, ok := ToSummary(row); ok {
			items = append(items, summary)
		}
	}
	return &Page{Items: items, Total: total, Limit: f.Limit, Offset: f.Offset}, nil
}

// FindByID returns a published listing, or nil when there is none
func (s *Service) FindByID(ctx context.Context, id string) (*Summary, error) {
	log := logger.FromStdContext(ctx, s.log)

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, id)
		if err != nil {
			log.Warn("Listing cache read failed", zap.String("listing_id", id), zap.Error(err))
		}
		if cached != nil {
			prometheus.RecordCacheLookup(true)
			return cached, nil
		}
		prometheus.RecordCacheLookup(false)
	}

	row, err := s.store.FindPublishedSummary(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find listing %s: %w", id, err)
	}
	if row == nil {
		return nil, nil
	}
	summary, ok := ToSummary(*row)
	if !ok {
		return nil, nil
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, &summary); err != nil {
			log.Warn("Listing cache write failed", zap.String("listing_id", id), zap.Error(err))
		}
	}
	return &summary, nil
}

// ListMedia returns the listing's images ordered by position
func (s *Service) ListMedia(ctx context.Context, listingID string) ([]Media, error) {
	rows, err := s.store.ListImages(ctx, listingID)
	if err != nil {
		return nil, fmt.Errorf("list media for listing %s: %w", listingID, err)
	}
	return ToMedia(rows), nil
}

func (s *Service) invalidate(ctx context.Context, log *zap.Logger, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, id); err != nil {
		log.Warn("Listing cache invalidation failed", zap.String("listing_id", id), zap.Error(err))
	}
}
