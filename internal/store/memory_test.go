package store

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"testing"
	"time"
)

func newTestStore() *Memory {
	return NewMemory(log.New(io.Discard, "", 0))
}

func TestMemoryGetSetUpdate(t *testing.T) {
	ctx := context.Background()
	m := newTestStore()

	if _, err := m.Get(ctx, "entities/e1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get missing doc error = %v, want ErrNotFound", err)
	}
	if err := m.Update(ctx, "entities/e1", map[string]interface{}{"name": "x"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Update missing doc error = %v, want ErrNotFound", err)
	}

	if err := m.Set(ctx, "entities/e1", map[string]interface{}{"name": "Alpha", "price": 2}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	doc, err := m.Get(ctx, "entities/e1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if doc.ID != "e1" || doc.Data["name"] != "Alpha" {
		t.Fatalf("unexpected doc: %+v", doc)
	}

	if err := m.Update(ctx, "entities/e1", map[string]interface{}{"price": 3}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	doc, err = m.Get(ctx, "entities/e1")
	if err != nil {
		t.Fatalf("Get after update: %v", err)
	}
	if doc.Data["price"] != 3 || doc.Data["name"] != "Alpha" {
		t.Fatalf("patch lost fields: %+v", doc.Data)
	}
}

func TestMemoryCreateGeneratesIDs(t *testing.T) {
	ctx := context.Background()
	m := newTestStore()

	first, err := m.Create(ctx, "entities", map[string]interface{}{"name": "one"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	second, err := m.Create(ctx, "entities", map[string]interface{}{"name": "two"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if first == "" || first == second {
		t.Fatalf("ids not unique: %q vs %q", first, second)
	}
	if _, err := m.Get(ctx, "entities/"+first); err != nil {
		t.Fatalf("Get created doc: %v", err)
	}
}

func TestMemoryServerTimestamp(t *testing.T) {
	ctx := context.Background()
	m := newTestStore()
	fixed := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	m.clock = func() time.Time { return fixed }

	if err := m.Set(ctx, "entities/e1", map[string]interface{}{"timestamp": ServerTimestamp}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	doc, err := m.Get(ctx, "entities/e1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	got, ok := doc.Data["timestamp"].(time.Time)
	if !ok || !got.Equal(fixed) {
		t.Fatalf("timestamp sentinel not resolved: %v", doc.Data["timestamp"])
	}
}

func TestMemoryQuery(t *testing.T) {
	ctx := context.Background()
	m := newTestStore()

	seed := []struct {
		id    string
		tier  int
		score float64
	}{
		{"a", 1, 4.5},
		{"b", 2, 3.0},
		{"c", 2, 4.8},
		{"d", 3, 2.1},
	}
	for _, s := range seed {
		data := map[string]interface{}{"price": s.tier, "avgRating": s.score}
		if err := m.Set(ctx, "entities/"+s.id, data); err != nil {
			t.Fatalf("seed %s: %v", s.id, err)
		}
	}

	docs, err := m.Query(ctx, "entities", Query{
		Filters: []Filter{{Field: "price", Value: 2}},
		OrderBy: "avgRating",
		Desc:    true,
	})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(docs) != 2 || docs[0].ID != "c" || docs[1].ID != "b" {
		t.Fatalf("filtered ordered query wrong: %+v", docs)
	}

	docs, err = m.Query(ctx, "entities", Query{OrderBy: "avgRating", Desc: true, Limit: 2})
	if err != nil {
		t.Fatalf("Query with limit: %v", err)
	}
	if len(docs) != 2 || docs[0].ID != "c" || docs[1].ID != "a" {
		t.Fatalf("limited query wrong: %+v", docs)
	}

	docs, err = m.Query(ctx, "other", Query{})
	if err != nil {
		t.Fatalf("Query other collection: %v", err)
	}
	if len(docs) != 0 {
		t.Fatalf("collection isolation broken: %+v", docs)
	}
}

func TestMemoryTransactionAggregation(t *testing.T) {
	ctx := context.Background()
	m := newTestStore()

	if err := m.Set(ctx, "entities/e1", map[string]interface{}{"count": 0}); err != nil {
		t.Fatalf("Set: %v", err)
	}

	const workers = 40
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := m.RunTransaction(ctx, func(tx Tx) error {
				doc, err := tx.Get("entities/e1")
				if err != nil {
					return err
				}
				count, _ := asFloat(doc.Data["count"])
				return tx.Update("entities/e1", map[string]interface{}{"count": int(count) + 1})
			})
			if err != nil {
				t.Errorf("transaction: %v", err)
			}
		}()
	}
	wg.Wait()

	doc, err := m.Get(ctx, "entities/e1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if doc.Data["count"] != workers {
		t.Fatalf("count = %v, want %d (lost update)", doc.Data["count"], workers)
	}
}

func TestMemoryTransactionExhaustsRetries(t *testing.T) {
	ctx := context.Background()
	m := newTestStore()

	if err := m.Set(ctx, "entities/e1", map[string]interface{}{"count": 0}); err != nil {
		t.Fatalf("Set: %v", err)
	}

	// Every attempt invalidates its own read before commit.
	err := m.RunTransaction(ctx, func(tx Tx) error {
		if _, err := tx.Get("entities/e1"); err != nil {
			return err
		}
		if err := m.Update(ctx, "entities/e1", map[string]interface{}{"count": 1}); err != nil {
			return err
		}
		return tx.Update("entities/e1", map[string]interface{}{"count": 99})
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("error = %v, want ErrConflict", err)
	}
}

func TestMemoryTransactionBodyErrorAborts(t *testing.T) {
	ctx := context.Background()
	m := newTestStore()

	sentinel := errors.New("boom")
	err := m.RunTransaction(ctx, func(tx Tx) error {
		if err := tx.Create("entities", map[string]interface{}{"name": "orphan"}); err != nil {
			return err
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("error = %v, want wrapped sentinel", err)
	}

	docs, err := m.Query(ctx, "entities", Query{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(docs) != 0 {
		t.Fatalf("aborted transaction leaked writes: %+v", docs)
	}
}

func TestMemorySubscribe(t *testing.T) {
	ctx := context.Background()
	m := newTestStore()

	if err := m.Set(ctx, "entities/e1", map[string]interface{}{"name": "Alpha"}); err != nil {
		t.Fatalf("Set: %v", err)
	}

	sub, err := m.Subscribe(ctx, "entities", Query{})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	select {
	case docs := <-sub.Updates():
		if len(docs) != 1 || docs[0].ID != "e1" {
			t.Fatalf("initial snapshot wrong: %+v", docs)
		}
	case <-time.After(time.Second):
		t.Fatal("no initial snapshot")
	}

	if err := m.Set(ctx, "entities/e2", map[string]interface{}{"name": "Beta"}); err != nil {
		t.Fatalf("Set: %v", err)
	}

	deadline := time.After(time.Second)
grow:
	for {
		select {
		case docs := <-sub.Updates():
			if len(docs) == 2 {
				break grow
			}
		case <-deadline:
			t.Fatal("change snapshot never delivered")
		}
	}

	sub.Cancel()
	deadline = time.After(time.Second)
	for {
		select {
		case _, ok := <-sub.Updates():
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("channel not closed after cancel")
		}
	}
}

func TestMemorySubscribeCoalesces(t *testing.T) {
	ctx := context.Background()
	m := newTestStore()

	sub, err := m.Subscribe(ctx, "entities", Query{})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Cancel()

	// Burst of writes with no reader: only the latest snapshot survives.
	for i := 0; i < 10; i++ {
		if err := m.Set(ctx, "entities/e1", map[string]interface{}{"rev": i}); err != nil {
			t.Fatalf("Set %d: %v", i, err)
		}
	}

	select {
	case docs := <-sub.Updates():
		if len(docs) != 1 || docs[0].Data["rev"] != 9 {
			t.Fatalf("expected latest snapshot, got %+v", docs)
		}
	case <-time.After(time.Second):
		t.Fatal("no snapshot delivered")
	}
}
