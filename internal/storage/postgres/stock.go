package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/stockroom/internal/domain/catalog"
	"github.com/xenking/stockroom/internal/domain/stock"
)

const (
	// Rows are locked in product id order so two transactions sharing
	// products always acquire their locks in the same sequence.
	getStockForUpdateSQL = `SELECT product_id, quantity FROM stock
		WHERE product_id = ANY($1) ORDER BY product_id FOR UPDATE`

	getStockSQL = `SELECT product_id, quantity FROM stock WHERE product_id = $1`

	updateStockSQL = `UPDATE stock SET quantity = $2, updated_at = now() WHERE product_id = $1`

	ensureStockSQL = `INSERT INTO stock (product_id, quantity) VALUES ($1, 0)
		ON CONFLICT (product_id) DO NOTHING`

	setStockSQL = `INSERT INTO stock (product_id, quantity) VALUES ($1, $2)
		ON CONFLICT (product_id) DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = now()`
)

var (
	_ stock.Ledger = (*StockRepository)(nil)
	_ stock.Reader = (*StockRepository)(nil)
)

// StockRepository reads and writes the stock table.
type StockRepository struct {
	q querier
}

// NewStockRepository returns a StockRepository for reads outside a
// transaction.
func NewStockRepository(pool *pgxpool.Pool) *StockRepository {
	return &StockRepository{q: pool}
}

func newStockRepository(q querier) *StockRepository {
	return &StockRepository{q: q}
}

// GetForUpdate locks and returns the stock rows of productIDs. It must be
// called inside a transaction.
func (r *StockRepository) GetForUpdate(ctx context.Context, productIDs []string) ([]stock.Level, error) {
	rows, err := r.q.Query(ctx, getStockForUpdateSQL, productIDs)
	if err != nil {
		return nil, fmt.Errorf("locking stock rows: %w", err)
	}
	return pgx.CollectRows(rows, scanLevel)
}

// Update writes the given absolute quantities in one batch.
func (r *StockRepository) Update(ctx context.Context, levels []stock.Level) error {
	if len(levels) == 0 {
		return nil
	}

	b := &pgx.Batch{}
	for _, l := range levels {
		b.Queue(updateStockSQL, l.ProductID, l.Quantity)
	}

	br := r.q.SendBatch(ctx, b)
	for _, l := range levels {
		tag, err := br.Exec()
		if err != nil {
			_ = br.Close()
			return fmt.Errorf("updating stock of %q: %w", l.ProductID, err)
		}
		if tag.RowsAffected() == 0 {
			_ = br.Close()
			return &stock.MissingError{ProductID: l.ProductID}
		}
	}
	return br.Close()
}

// GetByProductID returns the current level of one product.
func (r *StockRepository) GetByProductID(ctx context.Context, productID string) (*stock.Level, error) {
	rows, err := r.q.Query(ctx, getStockSQL, productID)
	if err != nil {
		return nil, fmt.Errorf("getting stock of %q: %w", productID, err)
	}

	l, err := pgx.CollectExactlyOneRow(rows, scanLevel)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrNotFound
		}
		return nil, fmt.Errorf("getting stock of %q: %w", productID, err)
	}
	return &l, nil
}

// Ensure creates a zero stock row for productID unless one exists.
func (r *StockRepository) Ensure(ctx context.Context, productID string) error {
	if _, err := r.q.Exec(ctx, ensureStockSQL, productID); err != nil {
		return fmt.Errorf("ensuring stock row for %q: %w", productID, err)
	}
	return nil
}

// Set overwrites the level of one product, creating the row if needed.
// Only the seeding tool uses it; lifecycle code goes through Update.
func (r *StockRepository) Set(ctx context.Context, l stock.Level) error {
	if _, err := r.q.Exec(ctx, setStockSQL, l.ProductID, l.Quantity); err != nil {
		return fmt.Errorf("setting stock of %q: %w", l.ProductID, err)
	}
	return nil
}

func scanLevel(row pgx.CollectableRow) (stock.Level, error) {
	var l stock.Level
	err := row.Scan(&l.ProductID, &l.Quantity)
	return l, err
}
