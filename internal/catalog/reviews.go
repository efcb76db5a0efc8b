package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/playrate/playrate/internal/domain"
	"github.com/playrate/playrate/internal/store"
)

// ReviewInput captures a user's rating submission.
type ReviewInput struct {
	AuthorID string
	Rating   int
	Text     string
}

// SubmitReview appends a review under an entity and folds its rating into the
// entity's aggregates in one atomic transaction. Concurrent submissions
// against the same entity are serialized by the store's conflict retry, so
// avgRating == sumRating/numRatings holds for every committed state and no
// update is ever lost.
func (s *Service) SubmitReview(ctx context.Context, entityID string, input *ReviewInput) error {
	if strings.TrimSpace(entityID) == "" {
		return fmt.Errorf("%w: entity id is required", ErrInvalidArgument)
	}
	if input == nil {
		return fmt.Errorf("%w: review payload is required", ErrInvalidArgument)
	}
	if !domain.ValidRating(input.Rating) {
		return fmt.Errorf("%w: rating must be between %d and %d", ErrInvalidArgument, domain.RatingMin, domain.RatingMax)
	}

	err := s.store.RunTransaction(ctx, func(tx store.Tx) error {
		doc, err := tx.Get(s.entityPath(entityID))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("entity %s: %w", entityID, ErrNotFound)
			}
			return err
		}

		// Absent aggregate fields count as zero, matching entities that have
		// never been rated.
		count := asInt(doc.Data[fieldNumRatings])
		sum := asFloat(doc.Data[fieldSumRating])
		newCount := count + 1
		newSum := sum + float64(input.Rating)

		if err := tx.Update(s.entityPath(entityID), map[string]interface{}{
			fieldNumRatings: newCount,
			fieldSumRating:  newSum,
			fieldAvgRating:  newSum / float64(newCount),
		}); err != nil {
			return err
		}

		return tx.Create(s.ratingsCollection(entityID), map[string]interface{}{
			fieldRating:    input.Rating,
			fieldText:      input.Text,
			fieldAuthor:    input.AuthorID,
			fieldTimestamp: store.ServerTimestamp,
		})
	})
	if err != nil {
		s.logger.Printf("catalog: submit review for %s failed: %v", entityID, err)
		return err
	}
	return nil
}

// ListReviews returns an entity's reviews, newest first.
func (s *Service) ListReviews(ctx context.Context, entityID string) ([]domain.Review, error) {
	if strings.TrimSpace(entityID) == "" {
		return nil, fmt.Errorf("%w: entity id is required", ErrInvalidArgument)
	}

	docs, err := s.store.Query(ctx, s.ratingsCollection(entityID), store.Query{
		OrderBy: fieldTimestamp,
		Desc:    true,
	})
	if err != nil {
		s.logger.Printf("catalog: list reviews for %s failed: %v", entityID, err)
		return nil, err
	}
	return projectReviews(entityID, docs), nil
}

// WatchReviews streams an entity's reviews, newest first, delivering the
// latest snapshot after every change. Cancel closes the channel.
func (s *Service) WatchReviews(ctx context.Context, entityID string) (<-chan []domain.Review, func(), error) {
	if strings.TrimSpace(entityID) == "" {
		return nil, nil, fmt.Errorf("%w: entity id is required", ErrInvalidArgument)
	}

	sub, err := s.store.Subscribe(ctx, s.ratingsCollection(entityID), store.Query{
		OrderBy: fieldTimestamp,
		Desc:    true,
	})
	if err != nil {
		s.logger.Printf("catalog: watch reviews for %s failed: %v", entityID, err)
		return nil, nil, err
	}

	out := make(chan []domain.Review, 1)
	go func() {
		defer close(out)
		for docs := range sub.Updates() {
			pushLatest(out, projectReviews(entityID, docs))
		}
	}()
	return out, sub.Cancel, nil
}
