// Command catalog-import loads gzipped product catalog files
// (productsN.csv.gz) into the database and creates missing stock rows.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"slices"

	"github.com/go-faster/errors"

	"github.com/xenking/stockroom/internal/catalogimport"
	"github.com/xenking/stockroom/internal/storage/postgres"
)

func main() {
	var (
		dataDir     string
		pattern     string
		databaseURL string
		batchSize   int
		workers     int
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing catalog files")
	flag.StringVar(&pattern, "pattern", "products*.csv.gz", "glob of catalog files inside data-dir")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.IntVar(&batchSize, "batch-size", 500, "products per write batch")
	flag.IntVar(&workers, "workers", 4, "concurrent write batches")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dataDir, pattern, databaseURL, batchSize, workers); err != nil {
		slog.Error("catalog import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("catalog import completed successfully")
}

func run(ctx context.Context, dataDir, pattern, databaseURL string, batchSize, workers int) error {
	files, err := filepath.Glob(filepath.Join(dataDir, pattern))
	if err != nil {
		return errors.Wrap(err, "glob catalog files")
	}
	if len(files) == 0 {
		return errors.Errorf("no files match %s in %s", pattern, dataDir)
	}
	slices.Sort(files)

	slog.Info("connecting to database", slog.Int("files", len(files)))

	pool, err := postgres.NewPool(ctx, databaseURL, int32(workers+1))
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	im := catalogimport.New(postgres.NewProductRepository(pool), catalogimport.Config{
		BatchSize: batchSize,
		Workers:   workers,
	})
	stats, err := im.Run(ctx, files)
	if err != nil {
		return err
	}

	slog.Info("import summary",
		slog.Int("parsed", stats.Parsed),
		slog.Int("duplicates", stats.Duplicates),
		slog.Int("rejected", stats.Rejected),
		slog.Int("written", stats.Written),
	)
	return nil
}
