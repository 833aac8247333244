package payment

import (
	"io"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"

	"github.com/dukahub/duka-backend/internal/user"
)

func makeAppWithPaymentHandler(h *Handler) *fiber.App {
	app := fiber.New()
	h.RegisterPublicRoutes(app)
	app.Use(func(c *fiber.Ctx) error {
		if v := c.Get("X-User-ID"); v != "" {
			id, err := strconv.Atoi(v)
			if err == nil {
				claims := jwt.MapClaims{"user_id": id, "role": c.Get("X-User-Role")}
				c.Locals("user", &jwt.Token{Claims: claims})
			}
		}
		return c.Next()
	})
	h.RegisterProtectedRoutes(app)
	return app
}

func TestInitiatePaymentEndpoint(t *testing.T) {
	service, _, _, _, ord := newTestSetup(t)
	app := makeAppWithPaymentHandler(NewHandler(service))
	target := "/api/v1/payments/" + strconv.Itoa(ord.ID)

	// no claims
	req := httptest.NewRequest("POST", target, strings.NewReader(`{"phoneNumber":"0712345678"}`))
	req.Header.Set("Content-Type", "application/json")
	res, _ := app.Test(req)
	if res.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.StatusCode)
	}

	// owner initiates
	req2 := httptest.NewRequest("POST", target, strings.NewReader(`{"phoneNumber":"0712345678"}`))
	req2.Header.Set("Content-Type", "application/json")
	req2.Header.Set("X-User-ID", "7")
	res2, _ := app.Test(req2)
	if res2.StatusCode != fiber.StatusCreated {
		b, _ := io.ReadAll(res2.Body)
		t.Fatalf("expected 201, got %d: %s", res2.StatusCode, string(b))
	}
	b2, _ := io.ReadAll(res2.Body)
	if !strings.Contains(string(b2), `"status":"Pending"`) {
		t.Fatalf("expected pending payment in response: %s", string(b2))
	}

	// a second attempt while one is pending
	req3 := httptest.NewRequest("POST", target, strings.NewReader(`{"phoneNumber":"0712345678"}`))
	req3.Header.Set("Content-Type", "application/json")
	req3.Header.Set("X-User-ID", "7")
	res3, _ := app.Test(req3)
	if res3.StatusCode != fiber.StatusConflict {
		t.Fatalf("expected 409 for pending payment, got %d", res3.StatusCode)
	}

	// someone else's order
	req4 := httptest.NewRequest("POST", target, strings.NewReader(`{"phoneNumber":"0712345678"}`))
	req4.Header.Set("Content-Type", "application/json")
	req4.Header.Set("X-User-ID", "99")
	res4, _ := app.Test(req4)
	if res4.StatusCode != fiber.StatusForbidden {
		t.Fatalf("expected 403, got %d", res4.StatusCode)
	}

	// bad phone
	req5 := httptest.NewRequest("POST", "/api/v1/payments/"+strconv.Itoa(ord.ID), strings.NewReader(`{"phoneNumber":"12345"}`))
	req5.Header.Set("Content-Type", "application/json")
	req5.Header.Set("X-User-ID", "7")
	res5, _ := app.Test(req5)
	if res5.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected 400 for bad phone, got %d", res5.StatusCode)
	}

	// unknown order
	req6 := httptest.NewRequest("POST", "/api/v1/payments/9999", strings.NewReader(`{"phoneNumber":"0712345678"}`))
	req6.Header.Set("Content-Type", "application/json")
	req6.Header.Set("X-User-ID", "7")
	res6, _ := app.Test(req6)
	if res6.StatusCode != fiber.StatusNotFound {
		t.Fatalf("expected 404 for unknown order, got %d", res6.StatusCode)
	}
}

func TestCallbackEndpoint_AlwaysAcks(t *testing.T) {
	service, repo, orders, _, ord := newTestSetup(t)
	app := makeAppWithPaymentHandler(NewHandler(service))

	p, err := service.Initiate(7, false, ord.ID, "0712345678")
	if err != nil {
		t.Fatalf("initiate failed: %v", err)
	}

	success := `{
		"Body": {
			"stkCallback": {
				"MerchantRequestID": "29115-34620561-1",
				"CheckoutRequestID": "` + p.CheckoutRequestID + `",
				"ResultCode": 0,
				"ResultDesc": "Success",
				"CallbackMetadata": {"Item": [{"Name": "MpesaReceiptNumber", "Value": "QWERTY123"}]}
			}
		}
	}`

	bodies := []string{success, success, `not json at all`, `{"Body":{}}`}
	for i, body := range bodies {
		req := httptest.NewRequest("POST", "/api/v1/payments/mpesa/callback", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		res, _ := app.Test(req)
		if res.StatusCode != fiber.StatusOK {
			t.Fatalf("callback %d: expected 200 ack, got %d", i, res.StatusCode)
		}
		b, _ := io.ReadAll(res.Body)
		if !strings.Contains(string(b), `"ResultCode":0`) {
			t.Fatalf("callback %d: expected ack body, got %s", i, string(b))
		}
	}

	stored, _ := repo.GetByCheckoutID(p.CheckoutRequestID)
	if stored.Status != StatusCompleted || stored.TransactionID != "QWERTY123" {
		t.Fatalf("expected Completed payment with receipt, got %+v", stored)
	}
	o, _ := orders.GetByID(ord.ID)
	if o.Status != "Processing" {
		t.Fatalf("expected order Processing, got %s", o.Status)
	}
}

func TestPaymentListEndpoints(t *testing.T) {
	service, _, _, _, ord := newTestSetup(t)
	app := makeAppWithPaymentHandler(NewHandler(service))

	if _, err := service.Initiate(7, false, ord.ID, "0712345678"); err != nil {
		t.Fatalf("initiate failed: %v", err)
	}

	// admin-only list
	req := httptest.NewRequest("GET", "/api/v1/payments", nil)
	req.Header.Set("X-User-ID", "7")
	res, _ := app.Test(req)
	if res.StatusCode != fiber.StatusForbidden {
		t.Fatalf("expected 403 for non-admin, got %d", res.StatusCode)
	}
	req2 := httptest.NewRequest("GET", "/api/v1/payments", nil)
	req2.Header.Set("X-User-ID", "1")
	req2.Header.Set("X-User-Role", user.RoleAdmin)
	res2, _ := app.Test(req2)
	if res2.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 for admin, got %d", res2.StatusCode)
	}

	// own history
	req3 := httptest.NewRequest("GET", "/api/v1/payments/me", nil)
	req3.Header.Set("X-User-ID", "7")
	res3, _ := app.Test(req3)
	if res3.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 for own payments, got %d", res3.StatusCode)
	}
	b3, _ := io.ReadAll(res3.Body)
	if !strings.Contains(string(b3), `"checkoutRequestId"`) {
		t.Fatalf("expected payments in response: %s", string(b3))
	}

	// per-order, owner only
	req4 := httptest.NewRequest("GET", "/api/v1/payments/order/"+strconv.Itoa(ord.ID), nil)
	req4.Header.Set("X-User-ID", "99")
	res4, _ := app.Test(req4)
	if res4.StatusCode != fiber.StatusForbidden {
		t.Fatalf("expected 403 for another user, got %d", res4.StatusCode)
	}
	req5 := httptest.NewRequest("GET", "/api/v1/payments/order/"+strconv.Itoa(ord.ID), nil)
	req5.Header.Set("X-User-ID", "7")
	res5, _ := app.Test(req5)
	if res5.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 for owner, got %d", res5.StatusCode)
	}
}

func TestUpdatePaymentStatusEndpoint(t *testing.T) {
	service, _, _, _, ord := newTestSetup(t)
	app := makeAppWithPaymentHandler(NewHandler(service))

	p, err := service.Initiate(7, false, ord.ID, "0712345678")
	if err != nil {
		t.Fatalf("initiate failed: %v", err)
	}
	target := "/api/v1/payments/" + strconv.Itoa(p.ID) + "/status"

	req := httptest.NewRequest("PATCH", target, strings.NewReader(`{"status":"Refunded"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "7")
	res, _ := app.Test(req)
	if res.StatusCode != fiber.StatusForbidden {
		t.Fatalf("expected 403 for non-admin, got %d", res.StatusCode)
	}

	req2 := httptest.NewRequest("PATCH", target, strings.NewReader(`{"status":"Refunded"}`))
	req2.Header.Set("Content-Type", "application/json")
	req2.Header.Set("X-User-ID", "1")
	req2.Header.Set("X-User-Role", user.RoleAdmin)
	res2, _ := app.Test(req2)
	if res2.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 for admin, got %d", res2.StatusCode)
	}
	b2, _ := io.ReadAll(res2.Body)
	if !strings.Contains(string(b2), `"status":"Refunded"`) {
		t.Fatalf("expected Refunded payment: %s", string(b2))
	}

	req3 := httptest.NewRequest("PATCH", target, strings.NewReader(`{"status":"Almost"}`))
	req3.Header.Set("Content-Type", "application/json")
	req3.Header.Set("X-User-ID", "1")
	req3.Header.Set("X-User-Role", user.RoleAdmin)
	res3, _ := app.Test(req3)
	if res3.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected 400 for invalid status, got %d", res3.StatusCode)
	}
}
