package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"testing"
)

type lineUpdate struct {
	Quantity   int     `json:"quantity"`
	ItemTotal  float64 `json:"item_total"`
	GrandTotal float64 `json:"grand_total"`
}

func updateQty(t *testing.T, ta *testApp, sid, productID, action string) (*http.Response, lineUpdate) {
	t.Helper()
	resp := ta.post(t, "/cart/update", sid, url.Values{"product_id": {productID}, "action": {action}})
	var upd lineUpdate
	if resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(&upd); err != nil {
			t.Fatalf("decode: %v", err)
		}
	}
	return resp, upd
}

func TestAddToCartRequiresLogin(t *testing.T) {
	ta := newTestApp(t, 0)

	resp := ta.post(t, "/add-to-cart/veg-puff", "", url.Values{"quantity": {"1"}})
	if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/login" {
		t.Fatalf("expected redirect to /login, got %d %q", resp.StatusCode, resp.Header.Get("Location"))
	}
}

func TestAddMergesLinesAndRendersCart(t *testing.T) {
	ta := newTestApp(t, 0)
	sid := ta.session(t, "sid-cart", "u-alice")

	for _, q := range []string{"2", "1"} {
		resp := ta.post(t, "/add-to-cart/sourdough", sid, url.Values{"quantity": {q}})
		if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/cart" {
			t.Fatalf("expected redirect to /cart, got %d", resp.StatusCode)
		}
	}
	var lines, qty int
	if err := ta.db.Get(&lines, `SELECT COUNT(*) FROM cart_items WHERE cart_id = ?`, sid); err != nil {
		t.Fatal(err)
	}
	if err := ta.db.Get(&qty, `SELECT qty FROM cart_items WHERE cart_id = ? AND product_id = 'sourdough'`, sid); err != nil {
		t.Fatal(err)
	}
	if lines != 1 || qty != 3 {
		t.Fatalf("expected one merged line with qty 3, got %d lines qty %d", lines, qty)
	}

	page := body(t, ta.get(t, "/cart", sid))
	if !strings.Contains(page, "Sourdough Loaf") || !strings.Contains(page, "Rs.721.50") {
		t.Fatalf("cart page missing line or total: %s", page)
	}
}

func TestAddUnknownProductIs404(t *testing.T) {
	ta := newTestApp(t, 0)
	sid := ta.session(t, "sid-ghost", "u-alice")

	resp := ta.post(t, "/add-to-cart/no-such-cake", sid, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestUpdateQuantityJSON(t *testing.T) {
	ta := newTestApp(t, 0)
	sid := ta.session(t, "sid-qty", "u-alice")
	ta.post(t, "/add-to-cart/choco-truffle", sid, url.Values{"quantity": {"1"}})
	ta.post(t, "/add-to-cart/veg-puff", sid, url.Values{"quantity": {"2"}})

	resp, upd := updateQty(t, ta, sid, "veg-puff", "increase")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if upd.Quantity != 3 || upd.ItemTotal != 105 || upd.GrandTotal != 755 {
		t.Fatalf("unexpected update %+v", upd)
	}

	// quantity never drops below one
	updateQty(t, ta, sid, "choco-truffle", "decrease")
	_, upd = updateQty(t, ta, sid, "choco-truffle", "decrease")
	if upd.Quantity != 1 || upd.ItemTotal != 650 {
		t.Fatalf("decrease below one: %+v", upd)
	}

	missing, _ := updateQty(t, ta, sid, "red-velvet", "increase")
	if missing.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for product not in cart, got %d", missing.StatusCode)
	}

	bad, _ := updateQty(t, ta, sid, "veg-puff", "double")
	if bad.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown action, got %d", bad.StatusCode)
	}
}

func TestRemoveLineAndAbsentIsNoop(t *testing.T) {
	ta := newTestApp(t, 0)
	sid := ta.session(t, "sid-rm", "u-alice")
	ta.post(t, "/add-to-cart/butter-cookies", sid, nil)

	for i := 0; i < 2; i++ {
		resp := ta.post(t, "/remove/butter-cookies", sid, nil)
		if resp.StatusCode != http.StatusFound {
			t.Fatalf("remove #%d: expected redirect, got %d", i, resp.StatusCode)
		}
	}
	var n int
	if err := ta.db.Get(&n, `SELECT COUNT(*) FROM cart_items WHERE cart_id = ?`, sid); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("expected empty cart, got %d lines", n)
	}
}
