package order

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/dukahub/duka-backend/internal/user"
)

type Handler struct {
	service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{service: s}
}

func (h *Handler) RegisterProtectedRoutes(app *fiber.App) {
	app.Post("/api/v1/orders", h.createOrder)
	app.Get("/api/v1/orders", h.getOrders)
	app.Get("/api/v1/orders/me", h.getMyOrders)
	app.Get("/api/v1/orders/:id", h.getOrder)
	app.Patch("/api/v1/orders/:id/status", h.updateOrderStatus)
}

type checkoutRequest struct {
	DeliveryMethod string    `json:"deliveryMethod"`
	Shipping       *Shipping `json:"shipping,omitempty"`
	PickupLocation *int      `json:"pickupLocation,omitempty"`
}

func (h *Handler) createOrder(c *fiber.Ctx) error {
	userID, err := user.GetUserIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}

	payload := new(checkoutRequest)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	created, err := h.service.Checkout(userID, CheckoutInput{
		DeliveryMethod:   payload.DeliveryMethod,
		Shipping:         payload.Shipping,
		PickupLocationID: payload.PickupLocation,
	})
	if err != nil {
		var stockErr *StockError
		switch {
		case errors.As(err, &stockErr):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"message": stockErr.Error()})
		case err == ErrInvalidDelivery, err == ErrShippingRequired, err == ErrPickupRequired,
			err == ErrCartEmpty, err == ErrInvalidCartProduct:
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
		case err == ErrPickupUnavailable:
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
		}
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Order created successfully", "order": created})
}

func (h *Handler) getOrders(c *fiber.Ctx) error {
	if !user.IsAdmin(c) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"message": "Access denied"})
	}

	orders, err := h.service.List()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
	}
	return c.JSON(fiber.Map{"orders": orders})
}

func (h *Handler) getMyOrders(c *fiber.Ctx) error {
	userID, err := user.GetUserIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}

	orders, err := h.service.ListByUser(userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
	}
	return c.JSON(fiber.Map{"orders": orders})
}

func (h *Handler) getOrder(c *fiber.Ctx) error {
	userID, err := user.GetUserIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}

	orderID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid order ID"})
	}

	ord, err := h.service.GetByID(orderID)
	if err != nil {
		if err == ErrNotFound {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "order not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
	}

	if ord.UserID != userID && !user.IsAdmin(c) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"message": "Access denied"})
	}
	return c.JSON(fiber.Map{"order": ord})
}

func (h *Handler) updateOrderStatus(c *fiber.Ctx) error {
	if !user.IsAdmin(c) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"message": "Access denied"})
	}

	orderID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid order ID"})
	}

	payload := new(struct {
		OrderStatus string `json:"orderStatus"`
	})
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	updated, err := h.service.SetStatus(orderID, payload.OrderStatus)
	if err != nil {
		switch err {
		case ErrInvalidStatus:
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid or missing orderStatus"})
		case ErrNotFound:
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "order not found"})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
		}
	}
	return c.JSON(fiber.Map{"message": "Order status updated successfully", "order": updated})
}
