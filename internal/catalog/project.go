package catalog

import (
	"time"

	"github.com/playrate/playrate/internal/domain"
	"github.com/playrate/playrate/internal/store"
)

// The projector converts raw store documents, with their store-native field
// types, into plain display records. Both backends may hand back ints as
// int64 and ratings as float64, so every numeric read goes through a coercion
// helper instead of a bare type assertion.

func projectEntity(doc store.Doc) domain.Entity {
	data := doc.Data
	return domain.Entity{
		ID:         doc.ID,
		Name:       asString(data[fieldName]),
		Category:   asString(data[fieldCategory]),
		Platform:   asString(data[fieldPlatform]),
		PriceTier:  int(asInt(data[fieldPrice])),
		AvgRating:  asFloat(data[fieldAvgRating]),
		NumRatings: asInt(data[fieldNumRatings]),
		SumRating:  asFloat(data[fieldSumRating]),
		PhotoURL:   asString(data[fieldPhoto]),
		CreatedAt:  asTime(data[fieldTimestamp]),
	}
}

func projectEntities(docs []store.Doc) []domain.Entity {
	entities := make([]domain.Entity, 0, len(docs))
	for _, doc := range docs {
		entities = append(entities, projectEntity(doc))
	}
	return entities
}

func projectReview(entityID string, doc store.Doc) domain.Review {
	data := doc.Data
	return domain.Review{
		ID:        doc.ID,
		EntityID:  entityID,
		AuthorID:  asString(data[fieldAuthor]),
		Rating:    int(asInt(data[fieldRating])),
		Text:      asString(data[fieldText]),
		CreatedAt: asTime(data[fieldTimestamp]),
	}
}

func projectReviews(entityID string, docs []store.Doc) []domain.Review {
	reviews := make([]domain.Review, 0, len(docs))
	for _, doc := range docs {
		reviews = append(reviews, projectReview(entityID, doc))
	}
	return reviews
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func asInt(v interface{}) int64 {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case int64:
		return n
	case float32:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}

func asFloat(v interface{}) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case float32:
		return float64(n)
	case float64:
		return n
	default:
		return 0
	}
}

func asTime(v interface{}) time.Time {
	t, _ := v.(time.Time)
	return t
}
