package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/xenking/stockroom/internal/domain/document"
	"github.com/xenking/stockroom/internal/domain/order"
	"github.com/xenking/stockroom/internal/domain/purchase"
	"github.com/xenking/stockroom/internal/domain/stock"
)

const instrumentationName = "github.com/xenking/stockroom/internal/storage/postgres"

// TxConfig tunes every transaction a Transactor opens.
type TxConfig struct {
	// Timeout bounds the whole transaction. Zero means no extra deadline.
	Timeout time.Duration
	// LockTimeout is applied with SET LOCAL lock_timeout so a blocked
	// row lock fails the transaction instead of waiting forever.
	LockTimeout time.Duration

	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
}

// Transactor runs functions inside a pgx transaction with a repository set
// T bound to it.
type Transactor[T any] struct {
	pool  *pgxpool.Pool
	scope string
	bind  func(tx pgx.Tx) T
	cfg   TxConfig

	tracer   trace.Tracer
	txTotal  metric.Int64Counter
	duration metric.Float64Histogram
}

var (
	_ document.Transactor[order.Tx]    = (*Transactor[order.Tx])(nil)
	_ document.Transactor[purchase.Tx] = (*Transactor[purchase.Tx])(nil)
)

// NewTransactor returns a Transactor for scope (used in span names and
// metric attributes) that binds repositories with bind.
func NewTransactor[T any](pool *pgxpool.Pool, scope string, cfg TxConfig, bind func(tx pgx.Tx) T) (*Transactor[T], error) {
	if cfg.TracerProvider == nil {
		cfg.TracerProvider = otel.GetTracerProvider()
	}
	if cfg.MeterProvider == nil {
		cfg.MeterProvider = otel.GetMeterProvider()
	}

	meter := cfg.MeterProvider.Meter(instrumentationName)
	txTotal, err := meter.Int64Counter("stockroom.db.transactions",
		metric.WithDescription("Finished database transactions by scope and outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating transaction counter: %w", err)
	}
	duration, err := meter.Float64Histogram("stockroom.db.transaction.duration",
		metric.WithDescription("Database transaction duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating transaction histogram: %w", err)
	}

	return &Transactor[T]{
		pool:     pool,
		scope:    scope,
		bind:     bind,
		cfg:      cfg,
		tracer:   cfg.TracerProvider.Tracer(instrumentationName),
		txTotal:  txTotal,
		duration: duration,
	}, nil
}

// WithinTx begins a read-committed transaction, runs fn and commits when fn
// returns nil. Any error, panic or cancellation rolls the transaction back.
// Errors returned by fn are passed through unwrapped.
func (t *Transactor[T]) WithinTx(ctx context.Context, fn func(ctx context.Context, tx T) error) error {
	if t.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.cfg.Timeout)
		defer cancel()
	}

	ctx, span := t.tracer.Start(ctx, t.scope+".tx", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	start := time.Now()

	err := pgx.BeginTxFunc(ctx, t.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		if t.cfg.LockTimeout > 0 {
			if _, err := tx.Exec(ctx, `SELECT set_config('lock_timeout', $1, true)`, lockTimeoutValue(t.cfg.LockTimeout)); err != nil {
				return fmt.Errorf("setting lock timeout: %w", err)
			}
		}
		return fn(ctx, t.bind(tx))
	})

	outcome := "commit"
	if err != nil {
		outcome = "rollback"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	attrs := metric.WithAttributes(
		attribute.String("scope", t.scope),
		attribute.String("outcome", outcome),
	)
	t.txTotal.Add(ctx, 1, attrs)
	t.duration.Record(ctx, time.Since(start).Seconds(), attrs)

	return err
}

func lockTimeoutValue(d time.Duration) string {
	return fmt.Sprintf("%dms", d.Milliseconds())
}

// orderTx is the order.Tx bound to a pgx transaction.
type orderTx struct {
	orders *OrderRepository
	stock  *StockRepository
}

func (t orderTx) Orders() order.Repository { return t.orders }
func (t orderTx) Stock() stock.Ledger      { return t.stock }

// purchaseTx is the purchase.Tx bound to a pgx transaction.
type purchaseTx struct {
	purchases *PurchaseRepository
	stock     *StockRepository
}

func (t purchaseTx) Purchases() purchase.Repository { return t.purchases }
func (t purchaseTx) Stock() stock.Ledger            { return t.stock }

// NewOrderTransactor returns the transactor backing order.Service.
func NewOrderTransactor(pool *pgxpool.Pool, cfg TxConfig) (*Transactor[order.Tx], error) {
	return NewTransactor(pool, "order", cfg, func(tx pgx.Tx) order.Tx {
		return orderTx{orders: newOrderRepository(tx), stock: newStockRepository(tx)}
	})
}

// NewPurchaseTransactor returns the transactor backing purchase.Service.
func NewPurchaseTransactor(pool *pgxpool.Pool, cfg TxConfig) (*Transactor[purchase.Tx], error) {
	return NewTransactor(pool, "purchase", cfg, func(tx pgx.Tx) purchase.Tx {
		return purchaseTx{purchases: newPurchaseRepository(tx), stock: newStockRepository(tx)}
	})
}
