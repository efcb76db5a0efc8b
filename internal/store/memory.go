package store

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// memoryMaxAttempts bounds optimistic retries. Commits are cheap in process,
// so the budget is sized for heavy local contention rather than mirroring the
// remote backend's backoff-paced limit.
const memoryMaxAttempts = 64

// Memory implements Store entirely in process. It honors the same contract
// as the Firestore backend: optimistic transactions retried on conflict and
// live query subscriptions. Used by tests and as a local development backend.
type Memory struct {
	mu       sync.Mutex
	docs     map[string]*memDoc
	watchers map[int]*watcher
	nextID   int
	clock    func() time.Time
	logger   *log.Logger
}

type memDoc struct {
	data    map[string]interface{}
	version uint64
}

type watcher struct {
	collection string
	query      Query
	sub        *Subscription
}

// NewMemory constructs an empty in-memory store.
func NewMemory(logger *log.Logger) *Memory {
	if logger == nil {
		logger = log.Default()
	}
	return &Memory{
		docs:     make(map[string]*memDoc),
		watchers: make(map[int]*watcher),
		clock:    time.Now,
		logger:   logger,
	}
}

// Get implements Store.
func (m *Memory) Get(_ context.Context, path string) (Doc, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.docs[path]
	if !ok {
		return Doc{}, ErrNotFound
	}
	return Doc{ID: docID(path), Data: cloneData(doc.data)}, nil
}

// Set implements Store.
func (m *Memory) Set(_ context.Context, path string, data map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.writeLocked(path, m.resolveSentinels(data))
	m.notifyLocked(collectionOf(path))
	return nil
}

// Update implements Store.
func (m *Memory) Update(_ context.Context, path string, fields map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.docs[path]
	if !ok {
		return ErrNotFound
	}
	merged := cloneData(doc.data)
	for field, value := range m.resolveSentinels(fields) {
		merged[field] = value
	}
	m.writeLocked(path, merged)
	m.notifyLocked(collectionOf(path))
	return nil
}

// Create implements Store.
func (m *Memory) Create(_ context.Context, collection string, data map[string]interface{}) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.NewString()
	m.writeLocked(collection+"/"+id, m.resolveSentinels(data))
	m.notifyLocked(collection)
	return id, nil
}

// Query implements Store.
func (m *Memory) Query(_ context.Context, collection string, q Query) ([]Doc, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queryLocked(collection, q), nil
}

// Subscribe implements Store.
func (m *Memory) Subscribe(ctx context.Context, collection string, q Query) (*Subscription, error) {
	subCtx, cancel := context.WithCancel(ctx)
	sub := newSubscription(cancel)

	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.watchers[id] = &watcher{collection: collection, query: q, sub: sub}
	sub.push(m.queryLocked(collection, q))
	m.mu.Unlock()

	go func() {
		<-subCtx.Done()
		m.mu.Lock()
		delete(m.watchers, id)
		m.mu.Unlock()
		close(sub.ch)
	}()

	return sub, nil
}

// RunTransaction implements Store. Reads record document versions; a commit
// whose read set changed underneath it is retried with a fresh body run.
func (m *Memory) RunTransaction(ctx context.Context, fn func(tx Tx) error) error {
	for attempt := 0; attempt < memoryMaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		tx := &memoryTx{store: m, reads: make(map[string]uint64)}
		if err := fn(tx); err != nil {
			return err
		}

		committed, err := m.commit(tx)
		if err != nil {
			return err
		}
		if committed {
			return nil
		}
	}
	return ErrConflict
}

// Close implements Store.
func (m *Memory) Close() error {
	return nil
}

func (m *Memory) commit(tx *memoryTx) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for path, version := range tx.reads {
		if m.versionLocked(path) != version {
			return false, nil
		}
	}

	touched := make(map[string]struct{})
	for _, op := range tx.writes {
		switch op.kind {
		case opUpdate:
			doc, ok := m.docs[op.path]
			if !ok {
				return false, fmt.Errorf("update %s: %w", op.path, ErrNotFound)
			}
			merged := cloneData(doc.data)
			for field, value := range m.resolveSentinels(op.data) {
				merged[field] = value
			}
			m.writeLocked(op.path, merged)
			touched[collectionOf(op.path)] = struct{}{}
		case opCreate:
			path := op.path + "/" + uuid.NewString()
			m.writeLocked(path, m.resolveSentinels(op.data))
			touched[op.path] = struct{}{}
		}
	}

	for collection := range touched {
		m.notifyLocked(collection)
	}
	return true, nil
}

func (m *Memory) versionLocked(path string) uint64 {
	if doc, ok := m.docs[path]; ok {
		return doc.version
	}
	return 0
}

func (m *Memory) writeLocked(path string, data map[string]interface{}) {
	prev := m.versionLocked(path)
	m.docs[path] = &memDoc{data: data, version: prev + 1}
}

func (m *Memory) queryLocked(collection string, q Query) []Doc {
	var docs []Doc
	for path, doc := range m.docs {
		if collectionOf(path) != collection {
			continue
		}
		if !matches(doc.data, q.Filters) {
			continue
		}
		docs = append(docs, Doc{ID: docID(path), Data: cloneData(doc.data)})
	}

	if q.OrderBy != "" {
		sort.SliceStable(docs, func(i, j int) bool {
			c := compareValues(docs[i].Data[q.OrderBy], docs[j].Data[q.OrderBy])
			if q.Desc {
				return c > 0
			}
			return c < 0
		})
	}
	if q.Limit > 0 && len(docs) > q.Limit {
		docs = docs[:q.Limit]
	}
	return docs
}

func (m *Memory) notifyLocked(collection string) {
	for _, w := range m.watchers {
		if w.collection != collection {
			continue
		}
		w.sub.push(m.queryLocked(w.collection, w.query))
	}
}

func (m *Memory) resolveSentinels(data map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(data))
	for field, value := range data {
		if _, ok := value.(serverTimestamp); ok {
			value = m.clock()
		}
		out[field] = value
	}
	return out
}

type txOpKind int

const (
	opUpdate txOpKind = iota
	opCreate
)

type txOp struct {
	kind txOpKind
	path string
	data map[string]interface{}
}

type memoryTx struct {
	store  *Memory
	reads  map[string]uint64
	writes []txOp
}

func (tx *memoryTx) Get(path string) (Doc, error) {
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()

	tx.reads[path] = tx.store.versionLocked(path)
	doc, ok := tx.store.docs[path]
	if !ok {
		return Doc{}, ErrNotFound
	}
	return Doc{ID: docID(path), Data: cloneData(doc.data)}, nil
}

func (tx *memoryTx) Update(path string, fields map[string]interface{}) error {
	tx.writes = append(tx.writes, txOp{kind: opUpdate, path: path, data: fields})
	return nil
}

func (tx *memoryTx) Create(collection string, data map[string]interface{}) error {
	tx.writes = append(tx.writes, txOp{kind: opCreate, path: collection, data: data})
	return nil
}

func collectionOf(path string) string {
	parts := splitPath(path)
	if len(parts) < 2 {
		return path
	}
	return joinPath(parts[:len(parts)-1])
}

func docID(path string) string {
	parts := splitPath(path)
	return parts[len(parts)-1]
}

func joinPath(parts []string) string {
	out := parts[0]
	for _, p := range parts[1:] {
		out += "/" + p
	}
	return out
}

func matches(data map[string]interface{}, filters []Filter) bool {
	for _, f := range filters {
		if compareValues(data[f.Field], f.Value) != 0 {
			return false
		}
	}
	return true
}

func cloneData(data map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(data))
	for field, value := range data {
		out[field] = value
	}
	return out
}

// compareValues orders mixed store-native values: numerics by magnitude,
// timestamps chronologically, everything else by string form.
func compareValues(a, b interface{}) int {
	af, aNum := asFloat(a)
	bf, bNum := asFloat(b)
	if aNum && bNum {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}

	at, aTime := a.(time.Time)
	bt, bTime := b.(time.Time)
	if aTime && bTime {
		switch {
		case at.Before(bt):
			return -1
		case at.After(bt):
			return 1
		default:
			return 0
		}
	}

	as, bs := fmt.Sprint(a), fmt.Sprint(b)
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	default:
		return 0
	}
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
