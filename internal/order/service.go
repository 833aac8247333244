package order

import (
	"errors"
	"time"
)

var (
	ErrInvalidDelivery  = errors.New("deliveryMethod must be Shipping or Pickup")
	ErrShippingRequired = errors.New("shipping address, city and postalCode are required")
	ErrPickupRequired   = errors.New("pickupLocation is required")
	ErrInvalidStatus    = errors.New("invalid order status")
)

// CheckoutInput is the caller-supplied part of a checkout; everything else
// (items, prices, totals) is derived from the cart inside the atomic unit.
type CheckoutInput struct {
	DeliveryMethod   string
	Shipping         *Shipping
	PickupLocationID *int
}

// ServiceInterface lets the payment package depend on orders without a hard
// type dependency.
type ServiceInterface interface {
	GetByID(id int) (Order, error)
	MarkPaid(id int) (bool, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Checkout validates the delivery payload and runs the atomic unit.
func (s *Service) Checkout(userID int, in CheckoutInput) (Order, error) {
	switch in.DeliveryMethod {
	case DeliveryShipping:
		if in.Shipping == nil || in.Shipping.Address == "" || in.Shipping.City == "" || in.Shipping.PostalCode == "" {
			return Order{}, ErrShippingRequired
		}
		in.PickupLocationID = nil
	case DeliveryPickup:
		if in.PickupLocationID == nil {
			return Order{}, ErrPickupRequired
		}
		in.Shipping = nil
	default:
		return Order{}, ErrInvalidDelivery
	}

	now := time.Now().UTC().Format(time.RFC3339)
	return s.repo.Checkout(Order{
		UserID:           userID,
		OrderNumber:      NewOrderNumber(),
		Status:           StatusPending,
		DeliveryMethod:   in.DeliveryMethod,
		Shipping:         in.Shipping,
		PickupLocationID: in.PickupLocationID,
		CreatedAt:        now,
		UpdatedAt:        now,
	})
}

func (s *Service) GetByID(id int) (Order, error) {
	return s.repo.GetByID(id)
}

func (s *Service) ListByUser(userID int) ([]Order, error) {
	return s.repo.ListByUser(userID)
}

func (s *Service) List() ([]Order, error) {
	return s.repo.List()
}

// SetStatus writes any member of the status set. Membership is the only
// validation so operators can repair stuck orders.
func (s *Service) SetStatus(id int, status string) (Order, error) {
	if !ValidStatus(status) {
		return Order{}, ErrInvalidStatus
	}
	return s.repo.UpdateStatus(id, status)
}

// MarkPaid advances a Pending order to Processing. Safe to retry: an already
// advanced order reports false without error.
func (s *Service) MarkPaid(id int) (bool, error) {
	return s.repo.MarkPaid(id)
}
