package user

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"

	"github.com/dukahub/duka-backend/internal/ratelimit"
)

type Handler struct {
	service *Service
	limiter ratelimit.Limiter
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
}

func NewHandler(service *Service, limiter ratelimit.Limiter) *Handler {
	return &Handler{service: service, limiter: limiter}
}

func (h *Handler) RegisterPublicRoutes(app *fiber.App) {
	app.Post("/api/v1/sign-up", h.register)
	app.Post("/api/v1/sign-in", h.login)
	app.Post("/api/v1/forgot-password", h.forgotPassword)
	app.Put("/api/v1/reset-password", h.resetPassword)
}

func (h *Handler) RegisterProtectedRoutes(app *fiber.App) {
	app.Get("/api/v1/profile", h.getProfile)
	app.Put("/api/v1/profile", h.updateProfile)
	app.Put("/api/v1/password", h.updatePassword)

	// admin user management
	app.Get("/api/v1/users", h.getUsers)
	app.Get("/api/v1/users/:id", h.getUser)
	app.Delete("/api/v1/users/:id", h.deleteUser)
}

func (h *Handler) register(c *fiber.Ctx) error {
	payload := new(registerRequest)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	if payload.Email == "" || payload.Password == "" || payload.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "email, password and name are required"})
	}

	now := time.Now().UTC().Format(time.RFC3339)
	created, err := h.service.Register(User{
		Email:     payload.Email,
		Password:  payload.Password,
		Name:      payload.Name,
		Phone:     payload.Phone,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		if err == ErrEmailExists {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"message": "Email already exists"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
	}

	return c.Status(fiber.StatusCreated).JSON(sanitizeUser(created))
}

func (h *Handler) login(c *fiber.Ctx) error {
	payload := new(loginRequest)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	user, err := h.service.Authenticate(payload.Email, payload.Password)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Invalid email or password"})
	}

	claims := jwt.MapClaims{
		"user_id": user.ID,
		"email":   user.Email,
		"role":    user.Role,
		"exp":     time.Now().Add(72 * time.Hour).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(os.Getenv("JWT_SECRET")))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "failed to generate token"})
	}

	return c.JSON(fiber.Map{
		"message": "Login successful",
		"user":    sanitizeUser(user),
		"token":   signed,
	})
}

func (h *Handler) forgotPassword(c *fiber.Ctx) error {
	payload := new(struct {
		Email string `json:"email"`
	})
	if err := c.BodyParser(payload); err != nil || payload.Email == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "email is required"})
	}

	ok, err := h.limiter.Allow("forgot-password", payload.Email+"|"+c.IP())
	if err != nil {
		log.Printf("forgot-password limiter error: %v", err)
	} else if !ok {
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"message": "Too many reset requests, try again later"})
	}

	if _, err := h.service.ForgotPassword(payload.Email); err != nil && err != ErrNotFound {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
	}
	// same response whether or not the account exists
	return c.JSON(fiber.Map{"message": "If that email exists, a reset link has been sent"})
}

func (h *Handler) resetPassword(c *fiber.Ctx) error {
	payload := new(struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	})
	if err := c.BodyParser(payload); err != nil || payload.Token == "" || payload.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "token and password are required"})
	}

	if err := h.service.ResetPassword(payload.Token, payload.Password); err != nil {
		if err == ErrBadResetToken {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid or expired reset token"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
	}
	return c.JSON(fiber.Map{"message": "Password reset successfully"})
}

func (h *Handler) updatePassword(c *fiber.Ctx) error {
	userID, err := GetUserIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}

	payload := new(struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	})
	if err := c.BodyParser(payload); err != nil || payload.CurrentPassword == "" || payload.NewPassword == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "currentPassword and newPassword are required"})
	}

	if err := h.service.UpdatePassword(userID, payload.CurrentPassword, payload.NewPassword); err != nil {
		switch err {
		case ErrWrongPassword:
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Current password is incorrect"})
		case ErrNotFound:
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "user not found"})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
		}
	}
	return c.JSON(fiber.Map{"message": "Password updated successfully"})
}

func (h *Handler) getProfile(c *fiber.Ctx) error {
	userID, err := GetUserIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}

	user, err := h.service.GetByID(userID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "user not found"})
	}

	return c.JSON(sanitizeUser(user))
}

type profileUpdateRequest struct {
	Name  *string `json:"name,omitempty"`
	Phone *string `json:"phone,omitempty"`
}

func (h *Handler) updateProfile(c *fiber.Ctx) error {
	userID, err := GetUserIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}

	existing, err := h.service.GetByID(userID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "user not found"})
	}

	var payload profileUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	if payload.Name != nil {
		existing.Name = *payload.Name
	}
	if payload.Phone != nil {
		existing.Phone = *payload.Phone
	}

	updated, err := h.service.Update(userID, existing)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
	}
	return c.JSON(sanitizeUser(updated))
}

func (h *Handler) getUsers(c *fiber.Ctx) error {
	if !IsAdmin(c) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"message": "Access denied"})
	}

	users := h.service.List()
	response := make([]User, 0, len(users))
	for _, u := range users {
		response = append(response, sanitizeUser(u))
	}
	return c.JSON(response)
}

func (h *Handler) getUser(c *fiber.Ctx) error {
	if !IsAdmin(c) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"message": "Access denied"})
	}

	userID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid user ID"})
	}

	user, err := h.service.GetByID(userID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "user not found"})
	}
	return c.JSON(sanitizeUser(user))
}

func (h *Handler) deleteUser(c *fiber.Ctx) error {
	if !IsAdmin(c) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"message": "Access denied"})
	}

	userID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid user ID"})
	}

	if err := h.service.Delete(userID); err != nil {
		if err == ErrNotFound {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "user not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetUserIDFromCtx extracts the user_id claim set by the JWT middleware.
func GetUserIDFromCtx(c *fiber.Ctx) (int, error) {
	claims, err := claimsFromCtx(c)
	if err != nil {
		return 0, err
	}
	if raw, ok := claims["user_id"]; ok {
		switch v := raw.(type) {
		case float64:
			return int(v), nil
		case int:
			return v, nil
		case int64:
			return int(v), nil
		case string:
			id, err := strconv.Atoi(v)
			if err != nil {
				return 0, fiber.ErrUnauthorized
			}
			return id, nil
		}
	}
	return 0, fiber.ErrUnauthorized
}

// GetRoleFromCtx extracts the role claim; missing role defaults to customer.
func GetRoleFromCtx(c *fiber.Ctx) string {
	claims, err := claimsFromCtx(c)
	if err != nil {
		return ""
	}
	if role, ok := claims["role"].(string); ok {
		return role
	}
	return RoleCustomer
}

// IsAdmin reports whether the authenticated caller holds the admin role.
func IsAdmin(c *fiber.Ctx) bool {
	return GetRoleFromCtx(c) == RoleAdmin
}

func claimsFromCtx(c *fiber.Ctx) (jwt.MapClaims, error) {
	u := c.Locals("user")
	if u == nil {
		return nil, fiber.ErrUnauthorized
	}
	tok, ok := u.(*jwt.Token)
	if !ok {
		return nil, fiber.ErrUnauthorized
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fiber.ErrUnauthorized
	}
	return claims, nil
}
