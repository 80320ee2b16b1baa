package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/xenking/stockroom/internal/domain/document"
	"github.com/xenking/stockroom/internal/domain/order"
)

const (
	createOrderSQL = `INSERT INTO orders (id, customer_id, ordered_at, delivered, delivered_at, total)
		VALUES ($1, $2, $3, $4, $5, $6)`

	getOrderSQL = `SELECT id, customer_id, ordered_at, delivered, delivered_at, total
		FROM orders WHERE id = $1`

	getOrderForUpdateSQL = getOrderSQL + ` FOR UPDATE`

	updateOrderSQL = `UPDATE orders SET delivered = $2, delivered_at = $3, total = $4 WHERE id = $1`

	markOrderDeliveredSQL = `UPDATE orders SET delivered = true, delivered_at = $2 WHERE id = $1`

	deleteOrderSQL = `DELETE FROM orders WHERE id = $1`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL. Items
// live in order_items and are rewritten wholesale on Update.
type OrderRepository struct {
	q querier
}

func newOrderRepository(q querier) *OrderRepository {
	return &OrderRepository{q: q}
}

// Create persists the order header and its items.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	_, err := r.q.Exec(ctx, createOrderSQL,
		o.ID, o.CustomerID, o.OrderedAt, o.Delivered, o.DeliveredAt, o.Total,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}
	return insertItems(ctx, r.q, orderItemQueries, o.ID, o.Items)
}

// GetByID returns the order with its items.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	return r.get(ctx, getOrderSQL, id)
}

// GetForUpdate returns the order and holds a row lock on its header until
// the surrounding transaction ends.
func (r *OrderRepository) GetForUpdate(ctx context.Context, id string) (*order.Order, error) {
	return r.get(ctx, getOrderForUpdateSQL, id)
}

func (r *OrderRepository) get(ctx context.Context, query, id string) (*order.Order, error) {
	var o order.Order
	err := r.q.QueryRow(ctx, query, id).Scan(
		&o.ID, &o.CustomerID, &o.OrderedAt, &o.Delivered, &o.DeliveredAt, &o.Total,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.Wrapf(document.ErrDocumentNotFound, "order %s", id)
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	items, err := selectItems(ctx, r.q, orderItemQueries, id)
	if err != nil {
		return nil, err
	}
	o.Items = items
	return &o, nil
}

// Update writes the header state and replaces all items.
func (r *OrderRepository) Update(ctx context.Context, o *order.Order) error {
	tag, err := r.q.Exec(ctx, updateOrderSQL, o.ID, o.Delivered, o.DeliveredAt, o.Total)
	if err != nil {
		return fmt.Errorf("updating order %q: %w", o.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrapf(document.ErrDocumentNotFound, "order %s", o.ID)
	}
	return replaceItems(ctx, r.q, orderItemQueries, o.ID, o.Items)
}

// MarkDelivered flips the header to delivered without touching items.
func (r *OrderRepository) MarkDelivered(ctx context.Context, id string, at time.Time) error {
	tag, err := r.q.Exec(ctx, markOrderDeliveredSQL, id, at)
	if err != nil {
		return fmt.Errorf("marking order %q delivered: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrapf(document.ErrDocumentNotFound, "order %s", id)
	}
	return nil
}

// Delete removes the order; items go with it via ON DELETE CASCADE.
func (r *OrderRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.q.Exec(ctx, deleteOrderSQL, id)
	if err != nil {
		return fmt.Errorf("deleting order %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrapf(document.ErrDocumentNotFound, "order %s", id)
	}
	return nil
}
