package seed

import (
	"context"
	"io"
	"log"
	"testing"

	"github.com/playrate/playrate/internal/catalog"
	"github.com/playrate/playrate/internal/store"
)

func TestSeed(t *testing.T) {
	ctx := context.Background()
	logger := log.New(io.Discard, "", 0)
	st := store.NewMemory(logger)
	cat := catalog.New(st, "", logger)

	if err := New(cat, 42, logger).Seed(ctx, 5); err != nil {
		t.Fatalf("Seed: %v", err)
	}

	entities, err := cat.ListEntities(ctx, catalog.Filters{})
	if err != nil {
		t.Fatalf("list entities: %v", err)
	}
	if len(entities) != 5 {
		t.Fatalf("seeded entities = %d, want 5", len(entities))
	}

	for _, entity := range entities {
		if entity.Name == "" || entity.Category == "" || entity.Platform == "" {
			t.Fatalf("seeded entity missing fields: %+v", entity)
		}
		if entity.PriceTier < 1 || entity.PriceTier > 4 {
			t.Fatalf("seeded price tier out of range: %d", entity.PriceTier)
		}

		reviews, err := cat.ListReviews(ctx, entity.ID)
		if err != nil {
			t.Fatalf("list reviews for %s: %v", entity.ID, err)
		}
		if int64(len(reviews)) != entity.NumRatings {
			t.Fatalf("review count %d does not match NumRatings %d", len(reviews), entity.NumRatings)
		}

		var sum float64
		for _, review := range reviews {
			sum += float64(review.Rating)
		}
		if sum != entity.SumRating {
			t.Fatalf("sum of ratings %v does not match SumRating %v", sum, entity.SumRating)
		}
	}
}

func TestSeedDeterministicForSameSeed(t *testing.T) {
	ctx := context.Background()
	logger := log.New(io.Discard, "", 0)

	run := func() []string {
		st := store.NewMemory(logger)
		cat := catalog.New(st, "", logger)
		if err := New(cat, 7, logger).Seed(ctx, 3); err != nil {
			t.Fatalf("Seed: %v", err)
		}
		entities, err := cat.ListEntities(ctx, catalog.Filters{})
		if err != nil {
			t.Fatalf("list entities: %v", err)
		}
		names := make([]string, 0, len(entities))
		for _, entity := range entities {
			names = append(names, entity.Name)
		}
		return names
	}

	first := run()
	second := run()
	if len(first) != len(second) {
		t.Fatalf("runs differ in size: %d vs %d", len(first), len(second))
	}
	seen := make(map[string]int)
	for _, name := range first {
		seen[name]++
	}
	for _, name := range second {
		if seen[name] == 0 {
			t.Fatalf("second run produced %q not present in first", name)
		}
		seen[name]--
	}
}
