package payment

import (
	"errors"
	"log"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/dukahub/duka-backend/internal/mpesa"
	"github.com/dukahub/duka-backend/internal/user"
)

type Handler struct {
	service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{service: s}
}

// RegisterPublicRoutes must run before the JWT middleware: the gateway does
// not carry our tokens.
func (h *Handler) RegisterPublicRoutes(app *fiber.App) {
	app.Post("/api/v1/payments/mpesa/callback", h.mpesaCallback)
}

func (h *Handler) RegisterProtectedRoutes(app *fiber.App) {
	app.Post("/api/v1/payments/:orderId", h.initiatePayment)
	app.Get("/api/v1/payments", h.getPayments)
	app.Get("/api/v1/payments/me", h.getMyPayments)
	app.Get("/api/v1/payments/order/:orderId", h.getOrderPayments)
	app.Patch("/api/v1/payments/:id/status", h.updatePaymentStatus)
}

type initiateRequest struct {
	PhoneNumber string `json:"phoneNumber"`
}

func (h *Handler) initiatePayment(c *fiber.Ctx) error {
	userID, err := user.GetUserIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}

	orderID, err := strconv.Atoi(c.Params("orderId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid order ID"})
	}

	payload := new(initiateRequest)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	created, err := h.service.Initiate(userID, user.IsAdmin(c), orderID, payload.PhoneNumber)
	if err != nil {
		switch {
		case errors.Is(err, ErrOrderNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": err.Error()})
		case errors.Is(err, ErrForbidden):
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"message": err.Error()})
		case errors.Is(err, ErrPaymentPending):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"message": err.Error()})
		case errors.Is(err, mpesa.ErrInvalidPhone):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
		case errors.Is(err, mpesa.ErrGateway):
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"message": err.Error()})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
		}
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "STK push sent, complete the payment on your phone",
		"payment": created,
	})
}

// mpesaCallback always acks with ResultCode 0. The gateway retries anything
// else, and a malformed or unknown callback will not get better on redelivery.
func (h *Handler) mpesaCallback(c *fiber.Ctx) error {
	cb, err := ParseCallback(c.Body())
	if err != nil {
		log.Printf("mpesa callback: %v", err)
		return c.JSON(fiber.Map{"ResultCode": 0, "ResultDesc": "Accepted"})
	}

	h.service.HandleCallback(cb)
	return c.JSON(fiber.Map{"ResultCode": 0, "ResultDesc": "Accepted"})
}

func (h *Handler) getPayments(c *fiber.Ctx) error {
	if !user.IsAdmin(c) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"message": "Access denied"})
	}

	payments, err := h.service.List()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
	}
	return c.JSON(fiber.Map{"payments": payments})
}

func (h *Handler) getMyPayments(c *fiber.Ctx) error {
	userID, err := user.GetUserIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}

	payments, err := h.service.ListByUser(userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
	}
	return c.JSON(fiber.Map{"payments": payments})
}

func (h *Handler) getOrderPayments(c *fiber.Ctx) error {
	userID, err := user.GetUserIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}

	orderID, err := strconv.Atoi(c.Params("orderId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid order ID"})
	}

	payments, err := h.service.OrderPayments(userID, user.IsAdmin(c), orderID)
	if err != nil {
		switch {
		case errors.Is(err, ErrOrderNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": err.Error()})
		case errors.Is(err, ErrForbidden):
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"message": err.Error()})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
		}
	}
	return c.JSON(fiber.Map{"payments": payments})
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) updatePaymentStatus(c *fiber.Ctx) error {
	if !user.IsAdmin(c) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"message": "Access denied"})
	}

	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid payment ID"})
	}

	payload := new(statusRequest)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	updated, err := h.service.SetStatus(id, payload.Status)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidStatus):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
		case errors.Is(err, ErrNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": err.Error()})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
		}
	}
	return c.JSON(fiber.Map{"message": "Payment status updated successfully", "payment": updated})
}
