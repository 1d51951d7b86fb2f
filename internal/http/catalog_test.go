package handlers_test

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"testing"
)

func TestCatalogFilters(t *testing.T) {
	ta := newTestApp(t, 0)

	home := body(t, ta.get(t, "/?q=muffin", ""))
	if !strings.Contains(home, "Blueberry Muffin") || strings.Contains(home, "Sourdough Loaf") {
		t.Fatalf("search did not filter: %s", home)
	}

	cakes := body(t, ta.get(t, "/products?category=cakes", ""))
	if !strings.Contains(cakes, "Red Velvet Cake") || strings.Contains(cakes, "Veg Puff") {
		t.Fatalf("category filter did not apply: %s", cakes)
	}

	all := body(t, ta.get(t, "/products?category=all", ""))
	for _, name := range []string{"Chocolate Truffle Cake", "Butter Cookies", "Veg Puff"} {
		if !strings.Contains(all, name) {
			t.Fatalf("%q missing from unfiltered list", name)
		}
	}
}

func TestCatalogRejectsBadInput(t *testing.T) {
	ta := newTestApp(t, 0)

	if resp := ta.get(t, "/?q=%3Cscript%3E", ""); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad search expected 400, got %d", resp.StatusCode)
	}
	if resp := ta.get(t, "/product/no-such-cake", ""); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown product expected 404, got %d", resp.StatusCode)
	}
	if resp := ta.get(t, "/nowhere", ""); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown route expected 404, got %d", resp.StatusCode)
	}
}

func TestFeedbackRequiresPaidPurchase(t *testing.T) {
	ta := newTestApp(t, 0)
	sid := ta.session(t, "sid-review", "u-alice")
	review := url.Values{"rating": {"5"}, "comment": {"Lovely crumb"}}

	entries := captureLogs(t, func() {
		ta.post(t, "/product/sourdough", sid, review)
	})
	if !hasAction(entries, "feedback.reject") {
		t.Fatal("expected feedback.reject log before purchase")
	}
	if page := body(t, ta.get(t, "/product/sourdough", sid)); strings.Contains(page, "Lovely crumb") {
		t.Fatal("feedback stored without a purchase")
	}

	ta.post(t, "/add-to-cart/sourdough", sid, nil)
	checkout(t, ta, sid)

	resp := ta.post(t, "/product/sourdough", sid, review)
	if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/product/sourdough" {
		t.Fatalf("expected redirect back to product, got %d", resp.StatusCode)
	}
	page := body(t, ta.get(t, "/product/sourdough", sid))
	if !strings.Contains(page, "Lovely crumb") || !strings.Contains(page, "alice") {
		t.Fatalf("feedback not shown: %s", page)
	}
}

func TestFeedbackRatingOutOfRange(t *testing.T) {
	ta := newTestApp(t, 0)
	sid := ta.session(t, "sid-rate", "u-alice")

	resp := ta.post(t, "/product/sourdough", sid, url.Values{"rating": {"9"}, "comment": {"too good"}})
	if f, _ := url.QueryUnescape(cookieValue(resp, "flash")); !strings.HasPrefix(f, "error|") {
		t.Fatalf("expected error flash, got %q", f)
	}
	var n int
	if err := ta.db.GetContext(context.Background(), &n, `SELECT COUNT(*) FROM product_feedback`); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("out of range rating stored")
	}
}
