package store

import (
	"context"
	"errors"
	"strings"
)

// ErrNotFound indicates the requested document does not exist.
var ErrNotFound = errors.New("store: document not found")

// ErrConflict indicates a transaction kept colliding with concurrent writes
// and gave up after exhausting its retries.
var ErrConflict = errors.New("store: transaction conflict")

// serverTimestamp is a sentinel field value replaced by the backend with the
// commit-time timestamp.
type serverTimestamp struct{}

// ServerTimestamp marks a field to be assigned by the store at commit time.
var ServerTimestamp = serverTimestamp{}

// Doc is a raw stored document: its id within the parent collection plus the
// field payload as the backend returned it (numbers and timestamps keep their
// store-native types until the read-model projector converts them).
type Doc struct {
	ID   string
	Data map[string]interface{}
}

// Filter is an equality predicate on a document field.
type Filter struct {
	Field string
	Value interface{}
}

// Query composes zero or more equality filters with at most one order clause.
type Query struct {
	Filters []Filter
	OrderBy string
	Desc    bool
	Limit   int
}

// Tx exposes the operations available inside a transaction body. Reads are
// optimistic: a conflicting concurrent write invalidates them and causes the
// whole body to be retried by the backend.
type Tx interface {
	Get(path string) (Doc, error)
	Update(path string, fields map[string]interface{}) error
	Create(collection string, data map[string]interface{}) error
}

// Store is the document-database handle injected into every component that
// persists state. Paths are slash-separated and alternate collection and
// document segments ("entities/e1", "entities/e1/ratings").
type Store interface {
	// Get fetches a single document or ErrNotFound.
	Get(ctx context.Context, path string) (Doc, error)
	// Set writes a full document at the given path, creating it if absent.
	Set(ctx context.Context, path string, data map[string]interface{}) error
	// Update patches individual fields of an existing document.
	Update(ctx context.Context, path string, fields map[string]interface{}) error
	// Create adds a document with a generated id and returns that id.
	Create(ctx context.Context, collection string, data map[string]interface{}) (string, error)
	// Query runs a one-shot query against a collection.
	Query(ctx context.Context, collection string, q Query) ([]Doc, error)
	// Subscribe opens a live snapshot stream for a query. The consumer owns
	// the returned subscription and must cancel it on teardown.
	Subscribe(ctx context.Context, collection string, q Query) (*Subscription, error)
	// RunTransaction executes fn atomically, retrying on conflict up to a
	// backend-defined limit before surfacing ErrConflict.
	RunTransaction(ctx context.Context, fn func(tx Tx) error) error
	// Close releases backend resources.
	Close() error
}

// Subscription is a cancellable live query result stream. Rapid successive
// changes may be coalesced into a single delivery of the latest snapshot.
type Subscription struct {
	ch     chan []Doc
	cancel context.CancelFunc
}

func newSubscription(cancel context.CancelFunc) *Subscription {
	return &Subscription{ch: make(chan []Doc, 1), cancel: cancel}
}

// Updates returns the snapshot channel. It is closed after Cancel or once the
// backend stops delivering.
func (s *Subscription) Updates() <-chan []Doc {
	return s.ch
}

// Cancel revokes the subscription; no further snapshots are delivered after
// the channel drains.
func (s *Subscription) Cancel() {
	s.cancel()
}

// push delivers the latest snapshot, dropping a stale undelivered one rather
// than blocking the notifier.
func (s *Subscription) push(docs []Doc) {
	for {
		select {
		case s.ch <- docs:
			return
		default:
		}
		select {
		case <-s.ch:
		default:
		}
	}
}

func splitPath(path string) []string {
	return strings.Split(strings.Trim(path, "/"), "/")
}
