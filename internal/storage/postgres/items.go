package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/xenking/stockroom/internal/domain/document"
)

// itemQueries holds the statements for one line item table. Order and
// purchase items share a layout and differ only in the owning column.
type itemQueries struct {
	insert    string
	selectAll string
	deleteAll string
}

var (
	orderItemQueries = itemQueries{
		insert: `INSERT INTO order_items (order_id, position, product_id, product_name, unit_label, quantity, unit_price, total)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		selectAll: `SELECT product_id, product_name, unit_label, quantity, unit_price, total
			FROM order_items WHERE order_id = $1 ORDER BY position`,
		deleteAll: `DELETE FROM order_items WHERE order_id = $1`,
	}

	purchaseItemQueries = itemQueries{
		insert: `INSERT INTO purchase_items (purchase_id, position, product_id, product_name, unit_label, quantity, unit_price, total)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		selectAll: `SELECT product_id, product_name, unit_label, quantity, unit_price, total
			FROM purchase_items WHERE purchase_id = $1 ORDER BY position`,
		deleteAll: `DELETE FROM purchase_items WHERE purchase_id = $1`,
	}
)

// insertItems writes items for documentID in one batch, preserving order
// through the position column.
func insertItems(ctx context.Context, q querier, queries itemQueries, documentID string, items document.Items) error {
	b := &pgx.Batch{}
	for i, it := range items {
		b.Queue(queries.insert,
			documentID, i, it.ProductID, it.ProductName, it.UnitLabel,
			it.Quantity, it.UnitPrice, it.Total,
		)
	}
	if err := q.SendBatch(ctx, b).Close(); err != nil {
		return fmt.Errorf("inserting items of %q: %w", documentID, err)
	}
	return nil
}

// replaceItems drops every stored item of documentID and writes items.
func replaceItems(ctx context.Context, q querier, queries itemQueries, documentID string, items document.Items) error {
	if _, err := q.Exec(ctx, queries.deleteAll, documentID); err != nil {
		return fmt.Errorf("deleting items of %q: %w", documentID, err)
	}
	return insertItems(ctx, q, queries, documentID, items)
}

func selectItems(ctx context.Context, q querier, queries itemQueries, documentID string) (document.Items, error) {
	rows, err := q.Query(ctx, queries.selectAll, documentID)
	if err != nil {
		return nil, fmt.Errorf("selecting items of %q: %w", documentID, err)
	}
	items, err := pgx.CollectRows(rows, scanLineItem)
	if err != nil {
		return nil, fmt.Errorf("scanning items of %q: %w", documentID, err)
	}
	return items, nil
}

func scanLineItem(row pgx.CollectableRow) (document.LineItem, error) {
	var it document.LineItem
	err := row.Scan(&it.ProductID, &it.ProductName, &it.UnitLabel, &it.Quantity, &it.UnitPrice, &it.Total)
	return it, err
}
