package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/xenking/stockroom/internal/domain/document"
	"github.com/xenking/stockroom/internal/domain/purchase"
)

const (
	createPurchaseSQL = `INSERT INTO purchases (id, supplier_id, created_at, arrived, arrived_at, total)
		VALUES ($1, $2, $3, $4, $5, $6)`

	getPurchaseSQL = `SELECT id, supplier_id, created_at, arrived, arrived_at, total
		FROM purchases WHERE id = $1`

	getPurchaseForUpdateSQL = getPurchaseSQL + ` FOR UPDATE`

	updatePurchaseSQL = `UPDATE purchases SET arrived = $2, arrived_at = $3, total = $4 WHERE id = $1`

	markPurchaseReceivedSQL = `UPDATE purchases SET arrived = true, arrived_at = $2 WHERE id = $1`

	deletePurchaseSQL = `DELETE FROM purchases WHERE id = $1`
)

var _ purchase.Repository = (*PurchaseRepository)(nil)

// PurchaseRepository implements purchase.Repository backed by PostgreSQL.
type PurchaseRepository struct {
	q querier
}

func newPurchaseRepository(q querier) *PurchaseRepository {
	return &PurchaseRepository{q: q}
}

func (r *PurchaseRepository) Create(ctx context.Context, p *purchase.Purchase) error {
	_, err := r.q.Exec(ctx, createPurchaseSQL,
		p.ID, p.SupplierID, p.CreatedAt, p.Arrived, p.ArrivedAt, p.Total,
	)
	if err != nil {
		return fmt.Errorf("creating purchase %q: %w", p.ID, err)
	}
	return insertItems(ctx, r.q, purchaseItemQueries, p.ID, p.Items)
}

func (r *PurchaseRepository) GetByID(ctx context.Context, id string) (*purchase.Purchase, error) {
	return r.get(ctx, getPurchaseSQL, id)
}

// GetForUpdate returns the purchase and locks its header row.
func (r *PurchaseRepository) GetForUpdate(ctx context.Context, id string) (*purchase.Purchase, error) {
	return r.get(ctx, getPurchaseForUpdateSQL, id)
}

func (r *PurchaseRepository) get(ctx context.Context, query, id string) (*purchase.Purchase, error) {
	var p purchase.Purchase
	err := r.q.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.SupplierID, &p.CreatedAt, &p.Arrived, &p.ArrivedAt, &p.Total,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.Wrapf(document.ErrDocumentNotFound, "purchase %s", id)
		}
		return nil, fmt.Errorf("getting purchase %q: %w", id, err)
	}

	items, err := selectItems(ctx, r.q, purchaseItemQueries, id)
	if err != nil {
		return nil, err
	}
	p.Items = items
	return &p, nil
}

func (r *PurchaseRepository) Update(ctx context.Context, p *purchase.Purchase) error {
	tag, err := r.q.Exec(ctx, updatePurchaseSQL, p.ID, p.Arrived, p.ArrivedAt, p.Total)
	if err != nil {
		return fmt.Errorf("updating purchase %q: %w", p.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrapf(document.ErrDocumentNotFound, "purchase %s", p.ID)
	}
	return replaceItems(ctx, r.q, purchaseItemQueries, p.ID, p.Items)
}

func (r *PurchaseRepository) MarkReceived(ctx context.Context, id string, at time.Time) error {
	tag, err := r.q.Exec(ctx, markPurchaseReceivedSQL, id, at)
	if err != nil {
		return fmt.Errorf("marking purchase %q received: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrapf(document.ErrDocumentNotFound, "purchase %s", id)
	}
	return nil
}

func (r *PurchaseRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.q.Exec(ctx, deletePurchaseSQL, id)
	if err != nil {
		return fmt.Errorf("deleting purchase %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrapf(document.ErrDocumentNotFound, "purchase %s", id)
	}
	return nil
}
