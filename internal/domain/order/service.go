package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xenking/stockroom/internal/domain/catalog"
	"github.com/xenking/stockroom/internal/domain/document"
	"github.com/xenking/stockroom/internal/domain/stock"
)

// Service runs the order lifecycle: create, update, deliver, delete, read.
// Every mutation runs in a single transaction; delivery adjusts stock in
// the same transaction as the state change.
type Service struct {
	customers catalog.CustomerReader
	products  catalog.ProductReader
	tx        document.Transactor[Tx]

	now   func() time.Time
	newID func() string
}

// NewService creates an order Service with the required domain dependencies.
func NewService(
	customers catalog.CustomerReader,
	products catalog.ProductReader,
	tx document.Transactor[Tx],
) *Service {
	return &Service{
		customers: customers,
		products:  products,
		tx:        tx,
		now:       time.Now,
		newID:     func() string { return uuid.New().String() },
	}
}

// Create validates lines, resolves the customer and products, snapshots
// sale prices and persists a new open order. It returns the order id.
func (s *Service) Create(ctx context.Context, customerID string, lines []document.Line) (string, error) {
	if err := document.ValidateLines(lines); err != nil {
		return "", err
	}

	if _, err := s.customers.GetByID(ctx, customerID); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return "", &document.ReferenceNotFoundError{Entity: "customer", ID: customerID}
		}
		return "", document.Classify("get customer", err)
	}

	items, err := s.buildItems(ctx, lines)
	if err != nil {
		return "", document.Classify("create order", err)
	}

	o, err := New(s.newID(), customerID, items, s.now())
	if err != nil {
		return "", err
	}

	if err := s.tx.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		return tx.Orders().Create(ctx, o)
	}); err != nil {
		return "", document.Classify("create order", err)
	}

	zctx.From(ctx).Debug("Order created",
		zap.String("order_id", o.ID),
		zap.String("customer_id", customerID),
		zap.Int("items", len(o.Items)),
	)
	return o.ID, nil
}

// Update replaces the items of an open order with lines, re-snapshotting
// prices from the current catalog.
func (s *Service) Update(ctx context.Context, id string, lines []document.Line) error {
	if err := document.ValidateLines(lines); err != nil {
		return err
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		o, err := tx.Orders().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := o.EnsureUpdatable(); err != nil {
			return err
		}

		items, err := s.buildItems(ctx, lines)
		if err != nil {
			return err
		}
		if err := o.Replace(items); err != nil {
			return err
		}
		return tx.Orders().Update(ctx, o)
	})
	return document.Classify("update order", err)
}

// Deliver finalizes the order and decrements stock by every item quantity.
// Stock is allowed to go negative.
func (s *Service) Deliver(ctx context.Context, id string) error {
	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		o, err := tx.Orders().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}

		movements, err := o.Deliver(s.now())
		if err != nil {
			return err
		}

		levels, err := stock.Adjust(ctx, tx.Stock(), movements)
		if err != nil {
			var missing *stock.MissingError
			if errors.As(err, &missing) {
				return &document.ReferenceNotFoundError{Entity: "stock", ID: missing.ProductID}
			}
			return err
		}

		if err := tx.Orders().MarkDelivered(ctx, o.ID, *o.DeliveredAt); err != nil {
			return err
		}

		for _, l := range levels {
			if l.Quantity < 0 {
				zctx.From(ctx).Warn("Stock below zero after delivery",
					zap.String("order_id", id),
					zap.String("product_id", l.ProductID),
					zap.Int("quantity", l.Quantity),
				)
			}
		}
		return nil
	})
	if err != nil {
		return document.Classify("deliver order", err)
	}

	zctx.From(ctx).Info("Order delivered", zap.String("order_id", id))
	return nil
}

// Delete removes an open order. Delivered orders cannot be deleted.
func (s *Service) Delete(ctx context.Context, id string) error {
	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		o, err := tx.Orders().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := o.EnsureRemovable(); err != nil {
			return err
		}
		return tx.Orders().Delete(ctx, id)
	})
	if err != nil {
		return document.Classify("delete order", err)
	}

	zctx.From(ctx).Info("Order deleted", zap.String("order_id", id))
	return nil
}

// Get returns the order with its items and total.
func (s *Service) Get(ctx context.Context, id string) (*Order, error) {
	var o *Order
	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		o, err = tx.Orders().GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, document.Classify("get order", err)
	}
	return o, nil
}

func (s *Service) buildItems(ctx context.Context, lines []document.Line) (document.Items, error) {
	products, err := document.ResolveProducts(ctx, s.products, lines)
	if err != nil {
		return nil, err
	}
	return document.BuildItems(lines, products, document.SalePrice)
}
