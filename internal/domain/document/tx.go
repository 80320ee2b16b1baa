package document

import "context"

// Transactor runs fn inside one storage transaction bound to a tx-scoped
// repository set T. The transaction commits when fn returns nil and rolls
// back on any error, panic or context cancellation.
type Transactor[T any] interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx T) error) error
}
