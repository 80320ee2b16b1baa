package stock

import (
	"context"

	"github.com/go-faster/errors"
)

// Adjust locks the rows touched by movements, applies them and writes the
// new levels back through the ledger. It must run inside the same
// transaction as the document state change that produced the movements.
func Adjust(ctx context.Context, ledger Ledger, movements []Movement) ([]Level, error) {
	if len(movements) == 0 {
		return nil, nil
	}

	ids := ProductIDs(movements)
	levels, err := ledger.GetForUpdate(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "lock stock rows")
	}

	updated, err := Apply(levels, movements)
	if err != nil {
		return nil, err
	}

	if err := ledger.Update(ctx, updated); err != nil {
		return nil, errors.Wrap(err, "update stock rows")
	}
	return updated, nil
}
