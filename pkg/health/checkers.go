package health

import (
	"context"
	"runtime"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
)

// GoroutineCountCheck fails when more than threshold goroutines are running.
func GoroutineCountCheck(threshold int) CheckFunc {
	return func(_ context.Context) error {
		if n := runtime.NumGoroutine(); n > threshold {
			return errors.Errorf("goroutine count %d exceeds threshold %d", n, threshold)
		}
		return nil
	}
}

// Pinger is implemented by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingCheck fails when p cannot be pinged.
func PingCheck(p Pinger) CheckFunc {
	return func(ctx context.Context) error {
		if err := p.Ping(ctx); err != nil {
			return errors.Wrap(err, "ping")
		}
		return nil
	}
}

// PoolStat reports acquired and maximum connections of a pool.
type PoolStat func() (acquired, max int32)

// PgxPoolStat adapts a pgx pool to PoolStat.
func PgxPoolStat(pool *pgxpool.Pool) PoolStat {
	return func() (int32, int32) {
		s := pool.Stat()
		return s.AcquiredConns(), s.MaxConns()
	}
}

// PoolSaturationCheck fails when the share of acquired connections reaches
// ratio. Finalizations hold connections while waiting on row locks, so
// a saturated pool means new lifecycle calls will queue.
func PoolSaturationCheck(stat PoolStat, ratio float64) CheckFunc {
	return func(_ context.Context) error {
		acquired, maxConns := stat()
		if maxConns <= 0 {
			return nil
		}
		if used := float64(acquired) / float64(maxConns); used >= ratio {
			return errors.Errorf("pool saturated: %d of %d connections acquired", acquired, maxConns)
		}
		return nil
	}
}
