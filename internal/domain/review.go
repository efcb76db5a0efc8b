package domain

import "time"

// Review is a single user's rating plus text for an entity. Reviews are
// immutable once written; aggregates on the parent entity are maintained in
// the same transaction that creates the review.
type Review struct {
	ID        string
	EntityID  string
	AuthorID  string
	Rating    int
	Text      string
	CreatedAt time.Time
}

// RatingMin and RatingMax bound submitted star ratings.
const (
	RatingMin = 1
	RatingMax = 5
)

// ValidRating reports whether a submitted star rating is inside 1..5.
func ValidRating(rating int) bool {
	return rating >= RatingMin && rating <= RatingMax
}
