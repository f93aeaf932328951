package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/finstream/bankfeed/internal/api"
	"github.com/finstream/bankfeed/internal/api/middleware"
	"github.com/finstream/bankfeed/internal/gcs"
	"github.com/finstream/bankfeed/internal/jobs"
	"github.com/finstream/bankfeed/internal/jobs/inmemory"
	"github.com/finstream/bankfeed/internal/logger"
	"github.com/finstream/bankfeed/internal/pipeline"
	bqstore "github.com/finstream/bankfeed/internal/store/bigquery"
	"github.com/finstream/bankfeed/internal/store/memory"
)

func main() {
	var (
		port    = flag.String("port", "8080", "HTTP server port")
		workers = flag.Int("workers", 1, "Concurrent import workers")
	)
	flag.Parse()

	log := logger.New()
	ctx := context.Background()

	store, closeStore := newStore(ctx, log)
	defer closeStore()

	importer := pipeline.NewImporter(store)

	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, *workers, jobStore)

	workerCtx, cancelWorker := context.WithCancel(logger.WithContext(ctx, log))
	defer cancelWorker()

	jobHandler := func(ctx context.Context, job *jobs.ImportStatementJob) (*pipeline.Stats, error) {
		log.Info().
			Str("job_id", job.JobID).
			Str("file", job.FileName).
			Msg("Processing import job")

		data := job.Data
		if len(data) == 0 && job.GCSURI != "" {
			var err error
			data, err = gcs.Fetch(ctx, job.GCSURI)
			if err != nil {
				return nil, fmt.Errorf("fetching %s: %w", job.GCSURI, err)
			}
		}

		stats, err := importer.ImportFile(ctx, pipeline.File{
			Name:        job.FileName,
			ContentType: job.ContentType,
			Data:        data,
		}, job.AccountID)
		if err != nil {
			log.Error().Err(err).Str("job_id", job.JobID).Msg("Import job failed")
			return nil, err
		}

		log.Info().
			Str("job_id", job.JobID).
			Int("imported", stats.Imported).
			Int("duplicates", stats.Duplicates).
			Msg("Import job completed")
		return stats, nil
	}

	if err := jobQueue.Start(workerCtx, jobHandler); err != nil {
		log.Fatal().Err(err).Msg("Failed to start import workers")
	}

	app := fiber.New(fiber.Config{
		AppName: "bankfeed",
	})
	app.Use(middleware.Logger(log))
	app.Use(middleware.Recovery(log))
	app.Use(middleware.CORS())
	api.NewHandler(importer, jobQueue, jobStore, log).RegisterRoutes(app)

	go func() {
		log.Info().Str("port", *port).Msg("Starting API server")
		if err := app.Listen(":" + *port); err != nil {
			log.Fatal().Err(err).Msg("Server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Job queue did not drain cleanly")
	}
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}
}

// newStore selects the persistence backend: BigQuery when BIGQUERY_PROJECT
// is set, the in-memory store otherwise.
func newStore(ctx context.Context, log zerolog.Logger) (pipeline.Store, func() error) {
	projectID := os.Getenv("BIGQUERY_PROJECT")
	if projectID == "" {
		log.Warn().Msg("BIGQUERY_PROJECT not set, using in-memory store (data is not persisted)")
		return memory.New(), func() error { return nil }
	}

	datasetID := os.Getenv("BIGQUERY_DATASET")
	if datasetID == "" {
		datasetID = "bankfeed"
	}

	store, err := bqstore.New(ctx, projectID, datasetID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery store")
	}
	return store, store.Close
}
