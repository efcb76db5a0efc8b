package store

import (
	"context"
	"fmt"
	"log"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// transaction attempts before the backend reports exhaustion.
const firestoreMaxAttempts = 5

// FirestoreOptions controls construction of the Firestore-backed store.
type FirestoreOptions struct {
	ProjectID       string
	CredentialsFile string
	Logger          *log.Logger
}

// Firestore implements Store on Cloud Firestore. Transactional retry and
// snapshot delivery are delegated to the client library.
type Firestore struct {
	client *firestore.Client
	logger *log.Logger
}

// NewFirestore initializes the Firebase app and opens a Firestore client.
func NewFirestore(ctx context.Context, opts FirestoreOptions) (*Firestore, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	var clientOpts []option.ClientOption
	if opts.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.CredentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: opts.ProjectID}, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firestore client: %w", err)
	}

	logger.Printf("store: firestore client ready (project=%s)", opts.ProjectID)
	return &Firestore{client: client, logger: logger}, nil
}

// Get implements Store.
func (f *Firestore) Get(ctx context.Context, path string) (Doc, error) {
	snap, err := f.client.Doc(path).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return Doc{}, ErrNotFound
		}
		return Doc{}, fmt.Errorf("get %s: %w", path, err)
	}
	return Doc{ID: snap.Ref.ID, Data: snap.Data()}, nil
}

// Set implements Store.
func (f *Firestore) Set(ctx context.Context, path string, data map[string]interface{}) error {
	if _, err := f.client.Doc(path).Set(ctx, translateSentinels(data)); err != nil {
		return fmt.Errorf("set %s: %w", path, err)
	}
	return nil
}

// Update implements Store.
func (f *Firestore) Update(ctx context.Context, path string, fields map[string]interface{}) error {
	_, err := f.client.Doc(path).Update(ctx, toFirestoreUpdates(fields))
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return ErrNotFound
		}
		return fmt.Errorf("update %s: %w", path, err)
	}
	return nil
}

// Create implements Store.
func (f *Firestore) Create(ctx context.Context, collection string, data map[string]interface{}) (string, error) {
	ref, _, err := f.client.Collection(collection).Add(ctx, translateSentinels(data))
	if err != nil {
		return "", fmt.Errorf("create in %s: %w", collection, err)
	}
	return ref.ID, nil
}

// Query implements Store.
func (f *Firestore) Query(ctx context.Context, collection string, q Query) ([]Doc, error) {
	iter := f.buildQuery(collection, q).Documents(ctx)
	defer iter.Stop()

	var docs []Doc
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", collection, err)
		}
		docs = append(docs, Doc{ID: snap.Ref.ID, Data: snap.Data()})
	}
	return docs, nil
}

// Subscribe implements Store. Snapshots are pumped until cancellation or a
// terminal stream error.
func (f *Firestore) Subscribe(ctx context.Context, collection string, q Query) (*Subscription, error) {
	subCtx, cancel := context.WithCancel(ctx)
	sub := newSubscription(cancel)
	snaps := f.buildQuery(collection, q).Snapshots(subCtx)

	go func() {
		defer close(sub.ch)
		defer snaps.Stop()
		for {
			snap, err := snaps.Next()
			if err != nil {
				if status.Code(err) != codes.Canceled {
					f.logger.Printf("store: snapshot stream for %s ended: %v", collection, err)
				}
				return
			}
			docSnaps, err := snap.Documents.GetAll()
			if err != nil {
				f.logger.Printf("store: read snapshot for %s: %v", collection, err)
				return
			}
			docs := make([]Doc, 0, len(docSnaps))
			for _, ds := range docSnaps {
				docs = append(docs, Doc{ID: ds.Ref.ID, Data: ds.Data()})
			}
			sub.push(docs)
		}
	}()

	return sub, nil
}

// RunTransaction implements Store. The Firestore client retries the body on
// conflicting concurrent writes; exhaustion surfaces as ErrConflict.
func (f *Firestore) RunTransaction(ctx context.Context, fn func(tx Tx) error) error {
	err := f.client.RunTransaction(ctx, func(_ context.Context, t *firestore.Transaction) error {
		return fn(&firestoreTx{client: f.client, t: t})
	}, firestore.MaxAttempts(firestoreMaxAttempts))
	if err != nil {
		if status.Code(err) == codes.Aborted {
			return ErrConflict
		}
		return err
	}
	return nil
}

// Close implements Store.
func (f *Firestore) Close() error {
	return f.client.Close()
}

func (f *Firestore) buildQuery(collection string, q Query) firestore.Query {
	fq := f.client.Collection(collection).Query
	for _, filter := range q.Filters {
		fq = fq.Where(filter.Field, "==", filter.Value)
	}
	if q.OrderBy != "" {
		dir := firestore.Asc
		if q.Desc {
			dir = firestore.Desc
		}
		fq = fq.OrderBy(q.OrderBy, dir)
	}
	if q.Limit > 0 {
		fq = fq.Limit(q.Limit)
	}
	return fq
}

type firestoreTx struct {
	client *firestore.Client
	t      *firestore.Transaction
}

func (tx *firestoreTx) Get(path string) (Doc, error) {
	snap, err := tx.t.Get(tx.client.Doc(path))
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return Doc{}, ErrNotFound
		}
		return Doc{}, err
	}
	return Doc{ID: snap.Ref.ID, Data: snap.Data()}, nil
}

func (tx *firestoreTx) Update(path string, fields map[string]interface{}) error {
	return tx.t.Update(tx.client.Doc(path), toFirestoreUpdates(fields))
}

func (tx *firestoreTx) Create(collection string, data map[string]interface{}) error {
	return tx.t.Create(tx.client.Collection(collection).NewDoc(), translateSentinels(data))
}

func toFirestoreUpdates(fields map[string]interface{}) []firestore.Update {
	updates := make([]firestore.Update, 0, len(fields))
	for field, value := range fields {
		if _, ok := value.(serverTimestamp); ok {
			value = firestore.ServerTimestamp
		}
		updates = append(updates, firestore.Update{Path: field, Value: value})
	}
	return updates
}

func translateSentinels(data map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(data))
	for field, value := range data {
		if _, ok := value.(serverTimestamp); ok {
			value = firestore.ServerTimestamp
		}
		out[field] = value
	}
	return out
}
