package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/playrate/playrate/internal/catalog"
	"github.com/playrate/playrate/internal/config"
	httpserver "github.com/playrate/playrate/internal/http"
	"github.com/playrate/playrate/internal/images"
	"github.com/playrate/playrate/internal/store"
	"github.com/playrate/playrate/internal/summary"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := log.New(os.Stdout, "[playrate] ", log.LstdFlags|log.Lshortfile)

	st, err := newStore(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("init store: %v", err)
	}
	defer st.Close()

	cat := catalog.New(st, cfg.EntityCollection, logger)

	var img *images.Service
	if cfg.StorageBucket != "" {
		uploader, err := images.NewGCSUploader(ctx, cfg.StorageBucket, cfg.CredentialsFile, logger)
		if err != nil {
			log.Fatalf("init image storage: %v", err)
		}
		img = images.NewService(uploader, cat, logger)
	} else {
		logger.Println("STORAGE_BUCKET not set, image uploads disabled")
	}

	sum, err := summary.NewGeminiClient(cfg.GeminiBaseURL, cfg.GeminiAPIKey, cfg.GeminiModel,
		time.Duration(cfg.SummaryTimeoutSecs)*time.Second, logger)
	if err != nil {
		log.Fatalf("init summary client: %v", err)
	}

	server := httpserver.New(cfg, cat, img, sum, logger)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			serverErrCh <- err
			return
		}
		serverErrCh <- nil
	}()

	select {
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, context.Canceled) {
			log.Printf("server error: %v", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("graceful shutdown error: %v", err)
	}
}

func newStore(ctx context.Context, cfg config.Config, logger *log.Logger) (store.Store, error) {
	if cfg.StoreBackend == config.BackendMemory {
		logger.Println("store: using in-memory backend")
		return store.NewMemory(logger), nil
	}

	// The client keeps this context for its connection lifetime, so no
	// timeout wrapper here.
	return store.NewFirestore(ctx, store.FirestoreOptions{
		ProjectID:       cfg.ProjectID,
		CredentialsFile: cfg.CredentialsFile,
		Logger:          logger,
	})
}
