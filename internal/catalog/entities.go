package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/playrate/playrate/internal/domain"
	"github.com/playrate/playrate/internal/store"
)

// SortOrder selects the single order clause applied to entity listings.
type SortOrder string

const (
	// SortByRating orders by average rating, highest first. Default.
	SortByRating SortOrder = "rating"
	// SortByReviewCount orders by number of ratings, highest first.
	SortByReviewCount SortOrder = "reviews"
)

// Filters narrows an entity listing. Zero values mean "no filter"; price is
// always an integer tier here, never a symbol string.
type Filters struct {
	Category  string
	Platform  string
	PriceTier int
	Sort      SortOrder
}

func (f Filters) validate() error {
	if f.PriceTier != 0 && !domain.ValidPriceTier(f.PriceTier) {
		return fmt.Errorf("%w: price tier must be between %d and %d", ErrInvalidArgument, domain.PriceTierMin, domain.PriceTierMax)
	}
	switch f.Sort {
	case "", SortByRating, SortByReviewCount:
		return nil
	default:
		return fmt.Errorf("%w: unknown sort order %q", ErrInvalidArgument, f.Sort)
	}
}

func (f Filters) query() store.Query {
	q := store.Query{Desc: true, OrderBy: fieldAvgRating}
	if f.Sort == SortByReviewCount {
		q.OrderBy = fieldNumRatings
	}
	if f.Category != "" {
		q.Filters = append(q.Filters, store.Filter{Field: fieldCategory, Value: f.Category})
	}
	if f.Platform != "" {
		q.Filters = append(q.Filters, store.Filter{Field: fieldPlatform, Value: f.Platform})
	}
	if f.PriceTier != 0 {
		q.Filters = append(q.Filters, store.Filter{Field: fieldPrice, Value: f.PriceTier})
	}
	return q
}

// EntityParams bundles the fields required to add a new catalog entity.
type EntityParams struct {
	Name       string
	Category   string
	Platform   string
	PriceTier  int
	PhotoURL   string
	AvgRating  float64
	NumRatings int64
	SumRating  float64
}

// AddEntity inserts a new entity document and returns its id. Used by the
// seeding process; normal operation never creates entities.
func (s *Service) AddEntity(ctx context.Context, params EntityParams) (string, error) {
	if strings.TrimSpace(params.Name) == "" {
		return "", fmt.Errorf("%w: entity name is required", ErrInvalidArgument)
	}
	if !domain.ValidPriceTier(params.PriceTier) {
		return "", fmt.Errorf("%w: price tier must be between %d and %d", ErrInvalidArgument, domain.PriceTierMin, domain.PriceTierMax)
	}

	id, err := s.store.Create(ctx, s.collection, map[string]interface{}{
		fieldName:       params.Name,
		fieldCategory:   params.Category,
		fieldPlatform:   params.Platform,
		fieldPrice:      params.PriceTier,
		fieldAvgRating:  params.AvgRating,
		fieldNumRatings: params.NumRatings,
		fieldSumRating:  params.SumRating,
		fieldPhoto:      params.PhotoURL,
		fieldTimestamp:  store.ServerTimestamp,
	})
	if err != nil {
		s.logger.Printf("catalog: add entity %q failed: %v", params.Name, err)
		return "", err
	}
	return id, nil
}

// GetEntity fetches a single entity by id.
func (s *Service) GetEntity(ctx context.Context, id string) (domain.Entity, error) {
	if strings.TrimSpace(id) == "" {
		return domain.Entity{}, fmt.Errorf("%w: entity id is required", ErrInvalidArgument)
	}

	doc, err := s.store.Get(ctx, s.entityPath(id))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Entity{}, ErrNotFound
		}
		s.logger.Printf("catalog: get entity %s failed: %v", id, err)
		return domain.Entity{}, err
	}
	return projectEntity(doc), nil
}

// ListEntities returns entities matching the filters, sorted by the requested
// order (average rating descending by default).
func (s *Service) ListEntities(ctx context.Context, f Filters) ([]domain.Entity, error) {
	if err := f.validate(); err != nil {
		return nil, err
	}

	docs, err := s.store.Query(ctx, s.collection, f.query())
	if err != nil {
		s.logger.Printf("catalog: list entities failed: %v", err)
		return nil, err
	}
	return projectEntities(docs), nil
}

// SetPhotoURL writes the public image URL onto the entity. Last write wins;
// this is deliberately not transactional with anything else.
func (s *Service) SetPhotoURL(ctx context.Context, id, url string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: entity id is required", ErrInvalidArgument)
	}

	err := s.store.Update(ctx, s.entityPath(id), map[string]interface{}{fieldPhoto: url})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		s.logger.Printf("catalog: set photo url for %s failed: %v", id, err)
		return err
	}
	return nil
}

// WatchEntities streams the filtered listing: the latest matching snapshot is
// delivered after every relevant change, and a slow consumer sees only the
// most recent one. The returned cancel func must be called on teardown; it
// closes the channel.
func (s *Service) WatchEntities(ctx context.Context, f Filters) (<-chan []domain.Entity, func(), error) {
	if err := f.validate(); err != nil {
		return nil, nil, err
	}

	sub, err := s.store.Subscribe(ctx, s.collection, f.query())
	if err != nil {
		s.logger.Printf("catalog: watch entities failed: %v", err)
		return nil, nil, err
	}

	out := make(chan []domain.Entity, 1)
	go func() {
		defer close(out)
		for docs := range sub.Updates() {
			pushLatest(out, projectEntities(docs))
		}
	}()
	return out, sub.Cancel, nil
}

// WatchEntity streams updates for one entity so detail views stay live. The
// store only watches whole collections, so the bridge filters the collection
// stream by document id.
func (s *Service) WatchEntity(ctx context.Context, id string) (<-chan domain.Entity, func(), error) {
	if strings.TrimSpace(id) == "" {
		return nil, nil, fmt.Errorf("%w: entity id is required", ErrInvalidArgument)
	}

	sub, err := s.store.Subscribe(ctx, s.collection, store.Query{})
	if err != nil {
		s.logger.Printf("catalog: watch entity %s failed: %v", id, err)
		return nil, nil, err
	}

	out := make(chan domain.Entity, 1)
	go func() {
		defer close(out)
		for docs := range sub.Updates() {
			for _, doc := range docs {
				if doc.ID == id {
					pushLatest(out, projectEntity(doc))
					break
				}
			}
		}
	}()
	return out, sub.Cancel, nil
}
