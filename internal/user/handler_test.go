package user

import (
	"io"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"

	"github.com/dukahub/duka-backend/internal/ratelimit"
)

type denyLimiter struct{}

func (denyLimiter) Allow(name, subject string) (bool, error) { return false, nil }

func makeApp(h *Handler) *fiber.App {
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

func TestRegisterAndLogin(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	handler := NewHandler(NewService(NewInMemoryRepository(nil)), ratelimit.NopLimiter{})
	app := makeApp(handler)

	req := httptest.NewRequest("POST", "/api/v1/sign-up",
		strings.NewReader(`{"email":"amina@example.com","password":"hunter22","name":"Amina","phone":"0712345678"}`))
	req.Header.Set("Content-Type", "application/json")
	res, _ := app.Test(req)
	if res.StatusCode != fiber.StatusCreated {
		t.Fatalf("expected 201 for sign-up, got %d", res.StatusCode)
	}
	b, _ := io.ReadAll(res.Body)
	if strings.Contains(string(b), "hunter22") {
		t.Fatalf("response must not leak the password: %s", string(b))
	}

	// duplicate email
	req2 := httptest.NewRequest("POST", "/api/v1/sign-up",
		strings.NewReader(`{"email":"amina@example.com","password":"other","name":"Other"}`))
	req2.Header.Set("Content-Type", "application/json")
	res2, _ := app.Test(req2)
	if res2.StatusCode != fiber.StatusConflict {
		t.Fatalf("expected 409 for duplicate email, got %d", res2.StatusCode)
	}

	// login with the right password
	req3 := httptest.NewRequest("POST", "/api/v1/sign-in",
		strings.NewReader(`{"email":"amina@example.com","password":"hunter22"}`))
	req3.Header.Set("Content-Type", "application/json")
	res3, _ := app.Test(req3)
	if res3.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 for login, got %d", res3.StatusCode)
	}
	b3, _ := io.ReadAll(res3.Body)
	if !strings.Contains(string(b3), "token") {
		t.Fatalf("login response missing token: %s", string(b3))
	}

	// wrong password
	req4 := httptest.NewRequest("POST", "/api/v1/sign-in",
		strings.NewReader(`{"email":"amina@example.com","password":"wrong"}`))
	req4.Header.Set("Content-Type", "application/json")
	res4, _ := app.Test(req4)
	if res4.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("expected 401 for bad password, got %d", res4.StatusCode)
	}
}

func TestForgotPassword_RateLimited(t *testing.T) {
	handler := NewHandler(NewService(NewInMemoryRepository(nil)), denyLimiter{})
	app := makeApp(handler)

	req := httptest.NewRequest("POST", "/api/v1/forgot-password",
		strings.NewReader(`{"email":"amina@example.com"}`))
	req.Header.Set("Content-Type", "application/json")
	res, _ := app.Test(req)
	if res.StatusCode != fiber.StatusTooManyRequests {
		t.Fatalf("expected 429 when limiter denies, got %d", res.StatusCode)
	}
}

func TestForgotPassword_SameResponseForUnknownEmail(t *testing.T) {
	handler := NewHandler(NewService(NewInMemoryRepository(nil)), ratelimit.NopLimiter{})
	app := makeApp(handler)

	req := httptest.NewRequest("POST", "/api/v1/forgot-password",
		strings.NewReader(`{"email":"nobody@example.com"}`))
	req.Header.Set("Content-Type", "application/json")
	res, _ := app.Test(req)
	if res.StatusCode != fiber.StatusOK {
		t.Fatalf("unknown email must get the same 200, got %d", res.StatusCode)
	}
}

func TestPasswordResetFlow(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	service := NewService(NewInMemoryRepository(nil))
	handler := NewHandler(service, ratelimit.NopLimiter{})
	app := makeApp(handler)

	if _, err := service.Register(User{Email: "amina@example.com", Password: "hunter22", Name: "Amina"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	token, err := service.ForgotPassword("amina@example.com")
	if err != nil {
		t.Fatalf("forgot password: %v", err)
	}

	req := httptest.NewRequest("PUT", "/api/v1/reset-password",
		strings.NewReader(`{"token":"`+token+`","password":"newpass99"}`))
	req.Header.Set("Content-Type", "application/json")
	res, _ := app.Test(req)
	if res.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 for reset, got %d", res.StatusCode)
	}

	// token is single use
	res2, _ := app.Test(req)
	if res2.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected 400 for reused token, got %d", res2.StatusCode)
	}

	if _, err := service.Authenticate("amina@example.com", "newpass99"); err != nil {
		t.Fatalf("new password should authenticate: %v", err)
	}
	if _, err := service.Authenticate("amina@example.com", "hunter22"); err == nil {
		t.Fatalf("old password must no longer authenticate")
	}
}

func TestAdminRoutes_RequireAdminRole(t *testing.T) {
	service := NewService(NewInMemoryRepository(nil))
	handler := NewHandler(service, ratelimit.NopLimiter{})
	app := makeApp(handler)

	req := httptest.NewRequest("GET", "/api/v1/users", nil)
	req.Header.Set("X-User-ID", "1")
	res, _ := app.Test(req)
	if res.StatusCode != fiber.StatusForbidden {
		t.Fatalf("expected 403 for non-admin, got %d", res.StatusCode)
	}

	req2 := httptest.NewRequest("GET", "/api/v1/users", nil)
	req2.Header.Set("X-User-ID", "1")
	req2.Header.Set("X-User-Role", RoleAdmin)
	res2, _ := app.Test(req2)
	if res2.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 for admin, got %d", res2.StatusCode)
	}
}

func TestProfile(t *testing.T) {
	service := NewService(NewInMemoryRepository(nil))
	handler := NewHandler(service, ratelimit.NopLimiter{})
	app := makeApp(handler)

	created, err := service.Register(User{Email: "amina@example.com", Password: "hunter22", Name: "Amina"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	req := httptest.NewRequest("GET", "/api/v1/profile", nil)
	res, _ := app.Test(req)
	if res.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("expected 401 without claims, got %d", res.StatusCode)
	}

	req2 := httptest.NewRequest("GET", "/api/v1/profile", nil)
	req2.Header.Set("X-User-ID", strconv.Itoa(created.ID))
	res2, _ := app.Test(req2)
	if res2.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 with claims, got %d", res2.StatusCode)
	}
	b, _ := io.ReadAll(res2.Body)
	if !strings.Contains(string(b), "amina@example.com") {
		t.Fatalf("profile missing email: %s", string(b))
	}
}
