package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"example.com/ticketsales/internal/aggregate"
	"example.com/ticketsales/internal/config"
	"example.com/ticketsales/internal/ingest"
	"example.com/ticketsales/internal/publish"
	spg "example.com/ticketsales/internal/storage/postgres"
	"example.com/ticketsales/internal/tickettailor"
	transport "example.com/ticketsales/internal/transport/http"
)

func main() {
	cfg := config.Parse()
	log.Printf("config: DSN=%s port=%s", cfg.RedactedDSN(), cfg.Port)
	if err := cfg.RequireAPIKey(); err != nil {
		log.Fatalf("config: %v", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		log.Fatalf("config: timezone: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	db, err := spg.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()
	log.Printf("db: connected")

	if err := db.RunMigration(ctx, cfg.MigrationPath); err != nil {
		log.Fatalf("migration: %v", err)
	}
	log.Printf("db: migration applied")

	writer := spg.NewWriter(db)
	ingestor := ingest.NewIngestor(writer, cfg.QueueMaxSize, cfg.BatchMaxSize, cfg.BatchMaxWait)
	// Stopped only after the server has drained, so snapshots accepted by
	// in-flight requests still reach the final flush.
	ingestCtx, stopIngest := context.WithCancel(context.Background())
	defer stopIngest()
	ingestor.Start(ingestCtx)
	log.Printf("ingest: started (queue=%d batch=%d wait=%s)", cfg.QueueMaxSize, cfg.BatchMaxSize, cfg.BatchMaxWait)

	client, err := tickettailor.NewClient(tickettailor.ClientConfig{
		BaseURL:           cfg.APIBaseURL,
		APIKey:            cfg.APIKey,
		HTTPClient:        &http.Client{Timeout: cfg.HTTPTimeout},
		RequestsPerSecond: cfg.RequestsPerSecond,
	})
	if err != nil {
		log.Fatalf("tickettailor: %v", err)
	}
	run := func(ctx context.Context, includePast bool) (*aggregate.Aggregator, error) {
		return aggregate.Run(ctx, client, aggregate.Options{
			IncludePast: includePast,
			Resolver:    aggregate.ResolverConfig{Concurrency: cfg.Concurrency},
			Joiner:      aggregate.JoinerConfig{Location: loc, InspectFirst: cfg.InspectFirst},
		})
	}

	deps := &transport.ServerDeps{
		Cfg:      cfg,
		Run:      run,
		Ingestor: ingestor,
		Store:    db,
		Now:      func() time.Time { return time.Now().UTC() },
		NewRunID: publish.NewRunID,
	}
	h := deps.Router()

	// A summary walks the whole upstream API before the first byte is written.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel2 := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel2()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	stopIngest()

	flushCtx, cancel3 := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel3()
	select {
	case <-ingestor.Done():
		log.Printf("ingest: flushed (inserted=%d failed=%d)", ingestor.Inserted(), ingestor.Failed())
	case <-flushCtx.Done():
		log.Printf("ingest: gave up waiting for final flush")
	}
}
