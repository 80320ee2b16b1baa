// Command seed-db migrates the database and loads a demo catalog, initial
// stock levels and an API key.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/stockroom/internal/domain/auth"
	"github.com/xenking/stockroom/internal/domain/catalog"
	"github.com/xenking/stockroom/internal/domain/stock"
	"github.com/xenking/stockroom/internal/storage/postgres"
)

type seedFile struct {
	Units      []catalog.Unit     `json:"units"`
	Categories []catalog.Category `json:"categories"`
	Suppliers  []partyJSON        `json:"suppliers"`
	Customers  []partyJSON        `json:"customers"`
	Products   []productJSON      `json:"products"`
}

type partyJSON struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

type productJSON struct {
	ID            string          `json:"id"`
	SupplierID    string          `json:"supplierId"`
	CategoryID    string          `json:"categoryId"`
	UnitID        string          `json:"unitId"`
	Name          string          `json:"name"`
	PurchasePrice decimal.Decimal `json:"purchasePrice"`
	SalePrice     decimal.Decimal `json:"salePrice"`
	Stock         int             `json:"stock"`
}

func main() {
	var (
		databaseURL  string
		catalogFile  string
		apiKey       string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&catalogFile, "catalog-file", "db/seed/catalog.json", "path to catalog JSON file")
	flag.StringVar(&apiKey, "api-key", "", "API key to seed (or STOCKROOM_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or STOCKROOM_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("STOCKROOM_SEED_API_KEY")
	}
	if apiKey == "" {
		slog.Error("API key is required: set --api-key or STOCKROOM_SEED_API_KEY")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("STOCKROOM_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, catalogFile, apiKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, catalogFile, apiKey, pepper string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL, 4)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")
	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	data, err := os.ReadFile(catalogFile)
	if err != nil {
		return errors.Wrap(err, "read catalog file")
	}
	var seed seedFile
	if err := json.Unmarshal(data, &seed); err != nil {
		return errors.Wrap(err, "parse catalog JSON")
	}

	if err := seedReference(ctx, pool, seed); err != nil {
		return errors.Wrap(err, "seed reference data")
	}
	if err := seedProducts(ctx, pool, seed.Products); err != nil {
		return errors.Wrap(err, "seed products")
	}
	if err := seedAPIKey(ctx, pool, apiKey, pepper); err != nil {
		return errors.Wrap(err, "seed api key")
	}
	return nil
}

func seedReference(ctx context.Context, pool *pgxpool.Pool, seed seedFile) error {
	refs := postgres.NewReferenceRepository(pool)
	for _, u := range seed.Units {
		if err := refs.UpsertUnit(ctx, u); err != nil {
			return err
		}
	}
	for _, c := range seed.Categories {
		if err := refs.UpsertCategory(ctx, c); err != nil {
			return err
		}
	}

	suppliers := postgres.NewSupplierRepository(pool)
	for _, s := range seed.Suppliers {
		if err := suppliers.Upsert(ctx, catalog.Supplier(s)); err != nil {
			return err
		}
	}
	customers := postgres.NewCustomerRepository(pool)
	for _, c := range seed.Customers {
		if err := customers.Upsert(ctx, catalog.Customer(c)); err != nil {
			return err
		}
	}

	slog.Info("upserted reference data",
		slog.Int("units", len(seed.Units)),
		slog.Int("categories", len(seed.Categories)),
		slog.Int("suppliers", len(seed.Suppliers)),
		slog.Int("customers", len(seed.Customers)),
	)
	return nil
}

func seedProducts(ctx context.Context, pool *pgxpool.Pool, products []productJSON) error {
	repo := postgres.NewProductRepository(pool)
	levels := postgres.NewStockRepository(pool)

	for _, p := range products {
		if err := repo.Upsert(ctx, catalog.Product{
			ID:            p.ID,
			SupplierID:    p.SupplierID,
			CategoryID:    p.CategoryID,
			UnitID:        p.UnitID,
			Name:          p.Name,
			PurchasePrice: p.PurchasePrice,
			SalePrice:     p.SalePrice,
		}); err != nil {
			return err
		}
		if err := levels.Set(ctx, stock.Level{ProductID: p.ID, Quantity: p.Stock}); err != nil {
			return err
		}
		slog.Info("upserted product", slog.String("id", p.ID), slog.Int("stock", p.Stock))
	}
	return nil
}

func seedAPIKey(ctx context.Context, pool *pgxpool.Pool, apiKey, pepper string) error {
	info := auth.APIKeyInfo{
		ID:      "default",
		KeyHash: auth.HashKey([]byte(pepper), apiKey),
		Name:    "Default back-office key",
		Scopes:  []string{"orders", "purchases"},
	}
	if err := postgres.NewAPIKeyRepository(pool).Upsert(ctx, info); err != nil {
		return errors.Wrap(err, "upsert default API key")
	}

	slog.Info("upserted API key", slog.String("id", info.ID), slog.String("name", info.Name))
	return nil
}
