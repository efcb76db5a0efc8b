package seed

import (
	"context"
	"fmt"
	"log"
	"math/rand"

	"github.com/playrate/playrate/internal/catalog"
	"github.com/playrate/playrate/internal/domain"
)

// Seeder populates the catalog with randomly generated entities and reviews
// for demos and local development. Reviews go through the regular submission
// path so the aggregate invariant holds by construction.
type Seeder struct {
	catalog *catalog.Service
	rand    *rand.Rand
	logger  *log.Logger
}

// New constructs a Seeder with the given random seed.
func New(cat *catalog.Service, randSeed int64, logger *log.Logger) *Seeder {
	if logger == nil {
		logger = log.Default()
	}
	return &Seeder{
		catalog: cat,
		rand:    rand.New(rand.NewSource(randSeed)),
		logger:  logger,
	}
}

// Seed creates count entities, each with up to five random reviews.
func (s *Seeder) Seed(ctx context.Context, count int) error {
	for i := 0; i < count; i++ {
		params := catalog.EntityParams{
			Name:      s.pick(names),
			Category:  s.pick(categories),
			Platform:  s.pick(platforms),
			PriceTier: domain.PriceTierMin + s.rand.Intn(domain.PriceTierMax-domain.PriceTierMin+1),
		}

		id, err := s.catalog.AddEntity(ctx, params)
		if err != nil {
			return fmt.Errorf("seed entity %q: %w", params.Name, err)
		}

		reviews := s.rand.Intn(6)
		for j := 0; j < reviews; j++ {
			sample := cannedReviews[s.rand.Intn(len(cannedReviews))]
			input := &catalog.ReviewInput{
				AuthorID: fmt.Sprintf("user-%04d", s.rand.Intn(10000)),
				Rating:   sample.rating,
				Text:     sample.text,
			}
			if err := s.catalog.SubmitReview(ctx, id, input); err != nil {
				return fmt.Errorf("seed review for %q: %w", params.Name, err)
			}
		}
		s.logger.Printf("seed: created %q (%s, %s) with %d reviews", params.Name, params.Category, params.Platform, reviews)
	}
	return nil
}

func (s *Seeder) pick(pool []string) string {
	return pool[s.rand.Intn(len(pool))]
}

var names = []string{
	"Starfall Odyssey",
	"Neon Drift",
	"Dungeon Ledger",
	"Harvest Lane",
	"Iron Bastion",
	"Echoes of Aster",
	"Pixel Harbor",
	"Cinder Peak",
	"Lunar Relay",
	"Thornwood Tales",
}

var categories = []string{
	"RPG",
	"Shooter",
	"Strategy",
	"Puzzle",
	"Simulation",
	"Adventure",
	"Racing",
}

var platforms = []string{
	"PC",
	"Switch",
	"PlayStation",
	"Xbox",
	"Mobile",
}

var cannedReviews = []struct {
	rating int
	text   string
}{
	{5, "Absolutely hooked, lost a whole weekend to this."},
	{5, "Best in its genre in years."},
	{4, "Great pacing, a few rough edges in the late game."},
	{4, "Solid mechanics and a lovely soundtrack."},
	{3, "Fun for a while but repetitive after the midpoint."},
	{3, "Decent, wait for a sale."},
	{2, "Clunky controls got in the way of a good idea."},
	{1, "Crashed constantly, could not finish it."},
}
