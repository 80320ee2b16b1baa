package catalogimport

import (
	"cmp"
	"context"
	"log/slog"
	"slices"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/stockroom/internal/domain/catalog"
)

const (
	defaultBatchSize = 500
	defaultWorkers   = 4
	bloomFPR         = 0.001
)

// Store persists a batch of products together with their stock rows.
type Store interface {
	UpsertProducts(ctx context.Context, products []catalog.Product) error
}

// Config tunes an Importer.
type Config struct {
	// BatchSize is the number of products per write. Defaults to 500.
	BatchSize int
	// Workers bounds concurrent writes. Defaults to 4.
	Workers int
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Stats summarises one Run.
type Stats struct {
	Parsed     int
	Duplicates int
	Rejected   int
	Written    int
}

// Importer loads catalog files into a Store.
type Importer struct {
	store Store
	cfg   Config
}

// New returns an Importer writing to store.
func New(store Store, cfg Config) *Importer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Importer{store: store, cfg: cfg}
}

// Run parses paths concurrently, drops duplicate product ids and writes
// the rest in batches. When an id appears more than once the row from the
// later path wins, and within one path the later row wins.
func (im *Importer) Run(ctx context.Context, paths []string) (Stats, error) {
	var stats Stats
	lg := im.cfg.Logger

	parsed := make([][]catalog.Product, len(paths))
	rejected := make([][]*RowError, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		g.Go(func() error {
			products, bad, err := ParseFile(gctx, path)
			if err != nil {
				return errors.Wrapf(err, "parse file %d", i+1)
			}
			lg.Info("parsed file",
				slog.String("path", path),
				slog.Int("products", len(products)),
				slog.Int("rejected", len(bad)),
			)
			parsed[i], rejected[i] = products, bad
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return stats, err
	}

	for _, bad := range rejected {
		for _, re := range bad {
			lg.Warn("rejected row", slog.String("error", re.Error()))
		}
		stats.Rejected += len(bad)
	}
	for _, products := range parsed {
		stats.Parsed += len(products)
	}

	unique := Dedup(parsed)
	stats.Duplicates = stats.Parsed - len(unique)
	lg.Info("deduplicated products",
		slog.Int("unique", len(unique)),
		slog.Int("duplicates", stats.Duplicates),
	)

	written, err := im.write(ctx, unique)
	stats.Written = written
	if err != nil {
		return stats, errors.Wrap(err, "write products")
	}
	return stats, nil
}

func (im *Importer) write(ctx context.Context, products []catalog.Product) (int, error) {
	batches := slices.Collect(slices.Chunk(products, im.cfg.BatchSize))
	sizes := make([]int, len(batches))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(im.cfg.Workers)
	for i, batch := range batches {
		g.Go(func() error {
			if err := im.store.UpsertProducts(gctx, batch); err != nil {
				return errors.Wrapf(err, "batch %d", i+1)
			}
			sizes[i] = len(batch)
			return nil
		})
	}
	err := g.Wait()

	var written int
	for _, n := range sizes {
		written += n
	}
	return written, err
}

// Dedup flattens files into one product list keeping the last occurrence
// of every id, ordered by id. A bloom filter screens ids first so the
// exact set is consulted only for probable repeats.
func Dedup(files [][]catalog.Product) []catalog.Product {
	var total int
	for _, f := range files {
		total += len(f)
	}
	if total == 0 {
		return nil
	}

	filter := bloom.NewWithEstimates(uint(total), bloomFPR)
	seen := make(map[string]struct{}, total)
	out := make([]catalog.Product, 0, total)

	for i := len(files) - 1; i >= 0; i-- {
		rows := files[i]
		for j := len(rows) - 1; j >= 0; j-- {
			p := rows[j]
			if filter.TestString(p.ID) {
				if _, dup := seen[p.ID]; dup {
					continue
				}
			}
			filter.AddString(p.ID)
			seen[p.ID] = struct{}{}
			out = append(out, p)
		}
	}

	slices.SortFunc(out, func(a, b catalog.Product) int { return cmp.Compare(a.ID, b.ID) })
	return out
}
