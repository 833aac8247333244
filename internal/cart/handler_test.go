package cart

import (
	"io"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"

	"github.com/dukahub/duka-backend/internal/product"
)

func makeAppWithCartHandler(h *Handler) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if v := c.Get("X-User-ID"); v != "" {
			id, err := strconv.Atoi(v)
			if err == nil {
				claims := jwt.MapClaims{"user_id": id}
				c.Locals("user", &jwt.Token{Claims: claims})
			}
		}
		return c.Next()
	})
	h.RegisterProtectedRoutes(app)
	return app
}

func testCatalog() []product.Product {
	return []product.Product{
		{ID: 1, Name: "Maize flour 2kg", Price: 150, StockQuantity: 10, IsActive: true},
		{ID: 2, Name: "Cooking oil 1L", Price: 320, StockQuantity: 2, IsActive: true},
		{ID: 3, Name: "Discontinued soap", Price: 50, StockQuantity: 5, IsActive: false},
	}
}

func newCartApp() *fiber.App {
	products := testCatalog()
	catalog := product.NewService(product.NewInMemoryRepository(products))
	service := NewService(NewInMemoryRepository(products), catalog)
	return makeAppWithCartHandler(NewHandler(service))
}

func TestCartRoutes_Basic(t *testing.T) {
	app := newCartApp()

	// unauthorized access is blocked
	req := httptest.NewRequest("GET", "/api/v1/cart", nil)
	res, _ := app.Test(req)
	if res.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("expected 401 for unauthenticated GET, got %d", res.StatusCode)
	}

	// add defaults to quantity 1
	req2 := httptest.NewRequest("POST", "/api/v1/cart", strings.NewReader(`{"productId":1}`))
	req2.Header.Set("Content-Type", "application/json")
	req2.Header.Set("X-User-ID", "42")
	res2, _ := app.Test(req2)
	if res2.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 for add, got %d", res2.StatusCode)
	}
	b2, _ := io.ReadAll(res2.Body)
	if !strings.Contains(string(b2), `"quantity":1`) {
		t.Fatalf("expected default quantity 1, got %s", string(b2))
	}

	// adding again accumulates
	req3 := httptest.NewRequest("POST", "/api/v1/cart", strings.NewReader(`{"productId":1,"quantity":2}`))
	req3.Header.Set("Content-Type", "application/json")
	req3.Header.Set("X-User-ID", "42")
	res3, _ := app.Test(req3)
	if res3.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 for second add, got %d", res3.StatusCode)
	}
	b3, _ := io.ReadAll(res3.Body)
	if !strings.Contains(string(b3), `"quantity":3`) {
		t.Fatalf("expected accumulated quantity 3, got %s", string(b3))
	}

	// set an explicit quantity
	req4 := httptest.NewRequest("PATCH", "/api/v1/cart/1", strings.NewReader(`{"quantity":5}`))
	req4.Header.Set("Content-Type", "application/json")
	req4.Header.Set("X-User-ID", "42")
	res4, _ := app.Test(req4)
	if res4.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 for update, got %d", res4.StatusCode)
	}
	b4, _ := io.ReadAll(res4.Body)
	if !strings.Contains(string(b4), `"quantity":5`) {
		t.Fatalf("expected quantity 5, got %s", string(b4))
	}

	// remove the line
	req5 := httptest.NewRequest("DELETE", "/api/v1/cart/1", nil)
	req5.Header.Set("X-User-ID", "42")
	res5, _ := app.Test(req5)
	if res5.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 for remove, got %d", res5.StatusCode)
	}
	b5, _ := io.ReadAll(res5.Body)
	if string(b5) != "[]" {
		t.Fatalf("expected empty cart, got %s", string(b5))
	}
}

func TestCartAdd_Rejections(t *testing.T) {
	app := newCartApp()

	cases := []struct {
		name string
		body string
		want int
	}{
		{"unknown product", `{"productId":99}`, fiber.StatusNotFound},
		{"inactive product", `{"productId":3}`, fiber.StatusBadRequest},
		{"over stock", `{"productId":2,"quantity":3}`, fiber.StatusConflict},
		{"negative quantity", `{"productId":1,"quantity":-2}`, fiber.StatusBadRequest},
		{"missing product id", `{}`, fiber.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/v1/cart", strings.NewReader(tc.body))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("X-User-ID", "42")
			res, _ := app.Test(req)
			if res.StatusCode != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, res.StatusCode)
			}
		})
	}
}

func TestCartClear(t *testing.T) {
	app := newCartApp()

	req := httptest.NewRequest("POST", "/api/v1/cart", strings.NewReader(`{"productId":1,"quantity":2}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "42")
	app.Test(req)

	req2 := httptest.NewRequest("DELETE", "/api/v1/cart", nil)
	req2.Header.Set("X-User-ID", "42")
	res2, _ := app.Test(req2)
	if res2.StatusCode != fiber.StatusNoContent {
		t.Fatalf("expected 204 for clear, got %d", res2.StatusCode)
	}

	req3 := httptest.NewRequest("GET", "/api/v1/cart", nil)
	req3.Header.Set("X-User-ID", "42")
	res3, _ := app.Test(req3)
	b3, _ := io.ReadAll(res3.Body)
	if string(b3) != "[]" {
		t.Fatalf("expected empty cart after clear, got %s", string(b3))
	}
}
