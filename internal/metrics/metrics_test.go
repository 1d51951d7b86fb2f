package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddlewareCountsByRoutePattern(t *testing.T) {
	app := fiber.New()
	app.Use(Middleware())
	app.Get("/product/:id", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/metrics", Handler())

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/product/:id", "200"))
	for _, id := range []string{"sourdough", "veg-puff"} {
		if _, err := app.Test(httptest.NewRequest("GET", "/product/"+id, nil)); err != nil {
			t.Fatal(err)
		}
	}
	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/product/:id", "200"))
	if after-before != 2 {
		t.Fatalf("expected 2 requests on the route pattern, got %v", after-before)
	}

	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil))
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "bakery_http_requests_total") {
		t.Fatal("metrics endpoint does not expose request counter")
	}
}

func TestRecordOperation(t *testing.T) {
	before := testutil.ToFloat64(operations.WithLabelValues("order.checkout", "error"))
	RecordOperation("order.checkout", false)
	if got := testutil.ToFloat64(operations.WithLabelValues("order.checkout", "error")); got != before+1 {
		t.Fatalf("expected error counter to grow by one, got %v -> %v", before, got)
	}
}
