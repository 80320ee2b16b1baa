//go:build integration

package integration

import (
	"net/http"
	"testing"
)

func TestAPI_RequiresKey(t *testing.T) {
	for _, key := range []string{"", "wrong-key"} {
		resp, err := doRequest(http.MethodGet, "/api/products", nil, key)
		if err != nil {
			t.Fatalf("request: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("key %q: expected 401, got %d", key, resp.StatusCode)
		}
	}
}

func TestListProducts(t *testing.T) {
	resp := doGet(t, "/api/products")
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusOK)

	products := decodeJSON[[]productResponse](t, resp)
	if len(products) != 4 {
		t.Fatalf("expected 4 products, got %d", len(products))
	}
	p := products[0]
	if p.ID != "P1" || p.Unit != "box" || p.SalePrice != "100.00" || p.PurchasePrice != "80.00" {
		t.Errorf("unexpected first product: %+v", p)
	}
}

func TestProductStock_NotFound(t *testing.T) {
	resp := doGet(t, "/api/products/NOPE/stock")
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusNotFound)
}
