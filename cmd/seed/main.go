package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/playrate/playrate/internal/catalog"
	"github.com/playrate/playrate/internal/config"
	"github.com/playrate/playrate/internal/seed"
	"github.com/playrate/playrate/internal/store"
)

func main() {
	count := flag.Int("count", 5, "number of entities to create")
	collection := flag.String("collection", "", "entity collection (defaults to ENTITY_COLLECTION)")
	randSeed := flag.Int64("seed", time.Now().UnixNano(), "random seed")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if *collection != "" {
		cfg.EntityCollection = *collection
	}

	logger := log.New(os.Stdout, "[playrate-seed] ", log.LstdFlags)

	var st store.Store
	if cfg.StoreBackend == config.BackendMemory {
		log.Fatalf("seeding the in-memory backend is pointless; set STORE_BACKEND=firestore")
	}
	st, err = store.NewFirestore(ctx, store.FirestoreOptions{
		ProjectID:       cfg.ProjectID,
		CredentialsFile: cfg.CredentialsFile,
		Logger:          logger,
	})
	if err != nil {
		log.Fatalf("init store: %v", err)
	}
	defer st.Close()

	cat := catalog.New(st, cfg.EntityCollection, logger)
	seeder := seed.New(cat, *randSeed, logger)

	if err := seeder.Seed(ctx, *count); err != nil {
		log.Fatalf("seed failed: %v", err)
	}
	logger.Printf("seeded %d entities into %q", *count, cfg.EntityCollection)
}
