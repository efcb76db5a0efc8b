package catalog

import (
	"errors"
	"log"

	"github.com/playrate/playrate/internal/store"
)

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("catalog: not found")

// ErrInvalidArgument indicates a request was rejected before any I/O.
var ErrInvalidArgument = errors.New("catalog: invalid argument")

// DefaultCollection is the entity collection used unless configured otherwise.
const DefaultCollection = "entities"

// Field names shared by the entity documents and their ratings subcollection.
const (
	fieldName       = "name"
	fieldCategory   = "category"
	fieldPlatform   = "platform"
	fieldPrice      = "price"
	fieldAvgRating  = "avgRating"
	fieldNumRatings = "numRatings"
	fieldSumRating  = "sumRating"
	fieldPhoto      = "photo"
	fieldTimestamp  = "timestamp"
	fieldRating     = "rating"
	fieldText       = "text"
	fieldAuthor     = "userId"
)

// Service owns every read and write against the entity catalog. One instance
// serves any entity kind; the collection name is the only configuration, so
// games and restaurants share the exact same logic.
type Service struct {
	store      store.Store
	collection string
	logger     *log.Logger
}

// New constructs a Service over the given store handle. An empty collection
// selects DefaultCollection.
func New(st store.Store, collection string, logger *log.Logger) *Service {
	if collection == "" {
		collection = DefaultCollection
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Service{store: st, collection: collection, logger: logger}
}

func (s *Service) entityPath(id string) string {
	return s.collection + "/" + id
}

func (s *Service) ratingsCollection(id string) string {
	return s.collection + "/" + id + "/ratings"
}

// pushLatest delivers v on a buffer-1 channel without blocking, replacing a
// stale undelivered value. Keeps the watch bridges from hanging on consumers
// that stopped reading.
func pushLatest[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
