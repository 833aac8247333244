package payment

import (
	"errors"
	"sync"
	"time"
)

var (
	ErrNotFound       = errors.New("payment not found")
	ErrPaymentPending = errors.New("payment already pending for this order")
)

// Repository owns payment rows. Complete and Fail are compare-and-set
// operations conditioned on the current status being Pending, which is what
// makes duplicate callback delivery a no-op; a plain read-then-write here
// would reopen the race.
type Repository interface {
	CreatePending(p Payment) (Payment, error)
	HasPending(orderID int) (bool, error)
	GetByID(id int) (Payment, error)
	GetByCheckoutID(checkoutID string) (Payment, error)
	// Complete moves Pending -> Completed, recording the receipt and paid-at.
	// advanced is false when the payment was already terminal.
	Complete(checkoutID, transactionID, paidAt string) (p Payment, advanced bool, err error)
	// Fail moves Pending -> Failed; advanced is false when already terminal.
	Fail(checkoutID string) (p Payment, advanced bool, err error)
	List() ([]Payment, error)
	ListByUser(userID int) ([]Payment, error)
	ListByOrder(orderID int) ([]Payment, error)
	// UpdateStatus is the unconditional operator override.
	UpdateStatus(id int, status string) (Payment, error)
}

// InMemoryRepository mirrors the Postgres semantics, including the one-pending
// invariant and the CAS status moves, under a single mutex.
type InMemoryRepository struct {
	mu       sync.Mutex
	payments []Payment
	nextID   int
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{nextID: 1}
}

func (r *InMemoryRepository) CreatePending(p Payment) (Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.payments {
		if existing.OrderID == p.OrderID && existing.Status == StatusPending {
			return Payment{}, ErrPaymentPending
		}
	}

	p.ID = r.nextID
	r.nextID++
	p.Status = StatusPending
	r.payments = append(r.payments, p)
	return p, nil
}

func (r *InMemoryRepository) HasPending(orderID int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range r.payments {
		if p.OrderID == orderID && p.Status == StatusPending {
			return true, nil
		}
	}
	return false, nil
}

func (r *InMemoryRepository) GetByID(id int) (Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range r.payments {
		if p.ID == id {
			return p, nil
		}
	}
	return Payment{}, ErrNotFound
}

func (r *InMemoryRepository) GetByCheckoutID(checkoutID string) (Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range r.payments {
		if p.CheckoutRequestID == checkoutID {
			return p, nil
		}
	}
	return Payment{}, ErrNotFound
}

func (r *InMemoryRepository) Complete(checkoutID, transactionID, paidAt string) (Payment, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, p := range r.payments {
		if p.CheckoutRequestID == checkoutID {
			if p.Status != StatusPending {
				return p, false, nil
			}
			r.payments[i].Status = StatusCompleted
			r.payments[i].TransactionID = transactionID
			r.payments[i].PaidAt = paidAt
			r.payments[i].UpdatedAt = time.Now().UTC().Format(time.RFC3339)
			return r.payments[i], true, nil
		}
	}
	return Payment{}, false, ErrNotFound
}

func (r *InMemoryRepository) Fail(checkoutID string) (Payment, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, p := range r.payments {
		if p.CheckoutRequestID == checkoutID {
			if p.Status != StatusPending {
				return p, false, nil
			}
			r.payments[i].Status = StatusFailed
			r.payments[i].UpdatedAt = time.Now().UTC().Format(time.RFC3339)
			return r.payments[i], true, nil
		}
	}
	return Payment{}, false, ErrNotFound
}

func (r *InMemoryRepository) List() ([]Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Payment, len(r.payments))
	copy(out, r.payments)
	return out, nil
}

func (r *InMemoryRepository) ListByUser(userID int) ([]Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Payment, 0)
	for _, p := range r.payments {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *InMemoryRepository) ListByOrder(orderID int) ([]Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Payment, 0)
	for _, p := range r.payments {
		if p.OrderID == orderID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *InMemoryRepository) UpdateStatus(id int, status string) (Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, p := range r.payments {
		if p.ID == id {
			r.payments[i].Status = status
			r.payments[i].UpdatedAt = time.Now().UTC().Format(time.RFC3339)
			return r.payments[i], nil
		}
	}
	return Payment{}, ErrNotFound
}
