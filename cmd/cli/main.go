package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/finstream/bankfeed/internal/gcs"
	"github.com/finstream/bankfeed/internal/logger"
	"github.com/finstream/bankfeed/internal/pipeline"
	bqstore "github.com/finstream/bankfeed/internal/store/bigquery"
	"github.com/finstream/bankfeed/internal/store/memory"
)

func main() {
	log := logger.New()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "import":
		runImport(log)
	case "archive":
		runArchive(log)
	case "recalc":
		runRecalc(log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Bankfeed CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  import    Import a bank statement from a local file or GCS URI")
	fmt.Println("  archive   Upload a processed statement file to a GCS bucket")
	fmt.Println("  recalc    Recalculate an account balance from its stored transactions")
	fmt.Println("  help      Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

// newStore selects the persistence backend: BigQuery when BIGQUERY_PROJECT
// is set, the in-memory store otherwise. The returned closer is a no-op for
// the in-memory case.
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

func runImport(log zerolog.Logger) {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	source := fs.String("file", "", "Local statement path or gs:// URI")
	accountID := fs.String("account", "", "Target account ID (defaults to the first account)")
	fs.Parse(os.Args[2:])

	if *source == "" {
		log.Fatal().Msg("Error: --file is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	var (
		data []byte
		name string
		err  error
	)
	if gcs.IsURI(*source) {
		data, err = gcs.Fetch(ctx, *source)
		name = gcs.Filename(*source)
	} else {
		data, err = os.ReadFile(*source)
		name = filepath.Base(*source)
	}
	if err != nil {
		log.Fatal().Err(err).Str("source", *source).Msg("Failed to read statement")
	}

	store, closeStore := newStore(ctx, log)
	defer closeStore()

	stats, err := pipeline.NewImporter(store).ImportFile(ctx, pipeline.File{Name: name, Data: data}, *accountID)
	if err != nil {
		log.Fatal().Err(err).Msg("Import failed")
	}

	fmt.Printf("Imported %d of %d transactions (%d duplicates, %d failed).\n",
		stats.Imported, stats.Total, stats.Duplicates, stats.Failed)
}

func runArchive(log zerolog.Logger) {
	fs := flag.NewFlagSet("archive", flag.ExitOnError)
	bucketName := fs.String("bucket", "", "GCS bucket name")
	objectName := fs.String("object", "", "GCS object name (defaults to filename)")
	filePath := fs.String("file", "", "Path to local statement file")
	fs.Parse(os.Args[2:])

	if *bucketName == "" || *filePath == "" {
		log.Fatal().Msg("Usage: cli archive -bucket NAME -file PATH")
	}
	if *objectName == "" {
		*objectName = filepath.Base(*filePath)
	}

	ctx := logger.WithContext(context.Background(), log)

	data, err := os.ReadFile(*filePath)
	if err != nil {
		log.Fatal().Err(err).Str("file", *filePath).Msg("Failed to read file")
	}

	log.Info().
		Str("bucket", *bucketName).
		Str("object", *objectName).
		Str("file", *filePath).
		Msg("Archiving statement to GCS")

	if err := gcs.Archive(ctx, *bucketName, *objectName, data); err != nil {
		log.Fatal().Err(err).Msg("Archive failed")
	}

	fmt.Printf("Archived %s to gs://%s/%s\n", *filePath, *bucketName, *objectName)
}

func runRecalc(log zerolog.Logger) {
	fs := flag.NewFlagSet("recalc", flag.ExitOnError)
	accountID := fs.String("account", "", "Account ID to recalculate")
	fs.Parse(os.Args[2:])

	if *accountID == "" {
		log.Fatal().Msg("Error: --account is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	store, closeStore := newStore(ctx, log)
	defer closeStore()

	if err := pipeline.NewImporter(store).RefreshBalance(ctx, *accountID); err != nil {
		log.Fatal().Err(err).Msg("Balance recalculation failed")
	}

	fmt.Println("Balance recalculated.")
}
