package purchase

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/stockroom/internal/domain/document"
	"github.com/xenking/stockroom/internal/domain/stock"
)

func item(productID string, qty int, price string) document.LineItem {
	p := decimal.RequireFromString(price)
	return document.LineItem{
		ProductID: productID,
		Quantity:  qty,
		UnitPrice: p,
		Total:     p.Mul(decimal.NewFromInt(int64(qty))),
	}
}

func TestReceive(t *testing.T) {
	p, err := New("u1", "s1", document.Items{item("p1", 10, "2.50"), item("p2", 3, "4")}, time.Now())
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("37.00").Equal(p.Total))

	at := time.Date(2026, 9, 30, 8, 0, 0, 0, time.UTC)
	movements, err := p.Receive(at)
	require.NoError(t, err)

	assert.Equal(t, []stock.Movement{{ProductID: "p1", Delta: 10}, {ProductID: "p2", Delta: 3}}, movements)
	assert.True(t, p.Arrived)
	assert.Equal(t, at, *p.ArrivedAt)

	_, err = p.Receive(at)
	require.ErrorIs(t, err, document.ErrAlreadyFinalized)
	require.ErrorIs(t, p.Replace(document.Items{item("p1", 1, "1")}), document.ErrDocumentFinalized)
	require.ErrorIs(t, p.EnsureRemovable(), document.ErrDocumentFinalized)
}

func TestReplace(t *testing.T) {
	p, err := New("u1", "s1", document.Items{item("A", 5, "1"), item("B", 5, "1")}, time.Now())
	require.NoError(t, err)

	require.NoError(t, p.Replace(document.Items{item("A", 3, "2"), item("C", 2, "3")}))

	assert.Equal(t, []string{"A", "C"}, p.Items.ProductIDs())
	assert.True(t, decimal.RequireFromString("12").Equal(p.Total))
	require.NoError(t, p.EnsureRemovable())
}
