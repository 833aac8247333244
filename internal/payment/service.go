package payment

import (
	"errors"
	"log"
	"time"

	"github.com/dukahub/duka-backend/internal/mpesa"
	"github.com/dukahub/duka-backend/internal/order"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	ErrForbidden     = errors.New("not allowed to pay for this order")
	ErrInvalidStatus = errors.New("invalid payment status")
)

type Service struct {
	repo    Repository
	orders  order.ServiceInterface
	gateway mpesa.Gateway
}

func NewService(repo Repository, orders order.ServiceInterface, gateway mpesa.Gateway) *Service {
	return &Service{repo: repo, orders: orders, gateway: gateway}
}

// Initiate starts an STK push for an order. Nothing is persisted unless the
// gateway accepts the request, so a declined push leaves the order free for
// another attempt.
func (s *Service) Initiate(userID int, isAdmin bool, orderID int, phone string) (Payment, error) {
	o, err := s.orders.GetByID(orderID)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			return Payment{}, ErrOrderNotFound
		}
		return Payment{}, err
	}
	if o.UserID != userID && !isAdmin {
		return Payment{}, ErrForbidden
	}

	pending, err := s.repo.HasPending(orderID)
	if err != nil {
		return Payment{}, err
	}
	if pending {
		return Payment{}, ErrPaymentPending
	}

	normalized, err := mpesa.NormalizePhone(phone)
	if err != nil {
		return Payment{}, err
	}

	resp, err := s.gateway.InitiateSTKPush(normalized, o.TotalPrice, o.OrderNumber)
	if err != nil {
		return Payment{}, err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	return s.repo.CreatePending(Payment{
		OrderID:           orderID,
		UserID:            o.UserID,
		Method:            MethodMpesa,
		Amount:            o.TotalPrice,
		CheckoutRequestID: resp.CheckoutRequestID,
		MerchantRequestID: resp.MerchantRequestID,
		CreatedAt:         now,
		UpdatedAt:         now,
	})
}

// HandleCallback reconciles a gateway callback against the payment ledger.
// Unknown correlation ids and duplicate deliveries are absorbed: the gateway
// retries on anything but an ack, so reporting them as errors only causes
// redelivery of a callback we cannot use.
func (s *Service) HandleCallback(cb STKCallback) {
	if !cb.Succeeded() {
		p, advanced, err := s.repo.Fail(cb.CheckoutRequestID)
		if err != nil {
			log.Printf("payment callback: fail %s: %v", cb.CheckoutRequestID, err)
			return
		}
		if advanced {
			log.Printf("payment %d failed: %s", p.ID, cb.ResultDesc)
		}
		return
	}

	paidAt := time.Now().UTC().Format(time.RFC3339)
	p, advanced, err := s.repo.Complete(cb.CheckoutRequestID, cb.ReceiptNumber(), paidAt)
	if err != nil {
		log.Printf("payment callback: complete %s: %v", cb.CheckoutRequestID, err)
		return
	}
	if !advanced {
		return
	}

	if _, err := s.orders.MarkPaid(p.OrderID); err != nil {
		// The payment is Completed but the order did not advance. Surface it
		// loudly; the operator override can reconcile the order by hand.
		log.Printf("payment %d completed but order %d not advanced: %v", p.ID, p.OrderID, err)
	}
}

// SetStatus is the operator override. Moving a payment to Completed also
// nudges its order forward, matching what the callback path would have done.
func (s *Service) SetStatus(id int, status string) (Payment, error) {
	if !ValidStatus(status) {
		return Payment{}, ErrInvalidStatus
	}
	p, err := s.repo.UpdateStatus(id, status)
	if err != nil {
		return Payment{}, err
	}
	if status == StatusCompleted {
		if _, err := s.orders.MarkPaid(p.OrderID); err != nil {
			log.Printf("payment %d set completed but order %d not advanced: %v", p.ID, p.OrderID, err)
		}
	}
	return p, nil
}

func (s *Service) List() ([]Payment, error) {
	return s.repo.List()
}

func (s *Service) ListByUser(userID int) ([]Payment, error) {
	return s.repo.ListByUser(userID)
}

// OrderPayments lists the attempts against one order, owner or admin only.
func (s *Service) OrderPayments(userID int, isAdmin bool, orderID int) ([]Payment, error) {
	o, err := s.orders.GetByID(orderID)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if o.UserID != userID && !isAdmin {
		return nil, ErrForbidden
	}
	return s.repo.ListByOrder(orderID)
}
