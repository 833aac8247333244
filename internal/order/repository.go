package order

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/dukahub/duka-backend/internal/product"
)

var (
	ErrNotFound           = errors.New("order not found")
	ErrCartEmpty          = errors.New("cart is empty")
	ErrInvalidCartProduct = errors.New("cart has invalid product references")
	ErrPickupUnavailable  = errors.New("pickup location is not available")
)

// StockError reports which product could not cover the requested quantity.
type StockError struct {
	ProductName string
}

func (e *StockError) Error() string {
	return "not enough stock for " + e.ProductName
}

// Repository persists orders. Checkout is the atomic unit: it snapshots the
// caller's cart, freezes prices, writes the order, decrements stock with a
// floor at zero and clears the cart, all together or not at all.
type Repository interface {
	Checkout(ord Order) (Order, error)
	GetByID(id int) (Order, error)
	ListByUser(userID int) ([]Order, error)
	List() ([]Order, error)
	UpdateStatus(id int, status string) (Order, error)
	// MarkPaid advances Pending -> Processing; reports whether it advanced.
	MarkPaid(id int) (bool, error)
}

// InMemoryRepository implements the same checkout semantics as the Postgres
// repository under a single mutex, which makes it the vehicle for the
// atomicity and oversell tests.
type InMemoryRepository struct {
	mu       sync.Mutex
	products map[int]*product.Product
	carts    map[int]map[int]int // userID -> productID -> qty
	pickups  map[int]bool        // locationID -> active
	orders   []Order
	nextID   int
}

func NewInMemoryRepository(products []product.Product) *InMemoryRepository {
	repo := &InMemoryRepository{
		products: make(map[int]*product.Product, len(products)),
		carts:    make(map[int]map[int]int),
		pickups:  make(map[int]bool),
		nextID:   1,
	}
	for i := range products {
		p := products[i]
		repo.products[p.ID] = &p
	}
	return repo
}

// SetCart seeds a user's cart for tests.
func (r *InMemoryRepository) SetCart(userID int, items map[int]int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lines := make(map[int]int, len(items))
	for pid, qty := range items {
		lines[pid] = qty
	}
	r.carts[userID] = lines
}

// SetPickupLocation seeds a pickup location for tests.
func (r *InMemoryRepository) SetPickupLocation(id int, active bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pickups[id] = active
}

// ProductStock reports current stock for assertions.
func (r *InMemoryRepository) ProductStock(productID int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.products[productID]; ok {
		return p.StockQuantity
	}
	return 0
}

// SetProductPrice mutates catalog price, for price-freezing assertions.
func (r *InMemoryRepository) SetProductPrice(productID int, price float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.products[productID]; ok {
		p.Price = price
	}
}

// CartSize reports how many lines remain in a user's cart.
func (r *InMemoryRepository) CartSize(userID int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.carts[userID])
}

func (r *InMemoryRepository) Checkout(ord Order) (Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ord.DeliveryMethod == DeliveryPickup {
		if ord.PickupLocationID == nil || !r.pickups[*ord.PickupLocationID] {
			return Order{}, ErrPickupUnavailable
		}
	}

	lines := r.carts[ord.UserID]
	if len(lines) == 0 {
		return Order{}, ErrCartEmpty
	}

	// validate and freeze before mutating anything
	items := make([]OrderItem, 0, len(lines))
	total := 0.0
	for pid, qty := range lines {
		p, ok := r.products[pid]
		if !ok || !p.IsActive {
			return Order{}, ErrInvalidCartProduct
		}
		if p.StockQuantity < qty {
			return Order{}, &StockError{ProductName: p.Name}
		}
		items = append(items, OrderItem{ProductID: pid, Name: p.Name, Quantity: qty, Price: p.Price})
		total += float64(qty) * p.Price
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ProductID < items[j].ProductID })

	for _, it := range items {
		r.products[it.ProductID].StockQuantity -= it.Quantity
	}
	delete(r.carts, ord.UserID)

	ord.ID = r.nextID
	r.nextID++
	ord.Items = items
	ord.TotalPrice = total
	r.orders = append(r.orders, ord)
	return ord, nil
}

func (r *InMemoryRepository) GetByID(id int) (Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, ord := range r.orders {
		if ord.ID == id {
			return ord, nil
		}
	}
	return Order{}, ErrNotFound
}

func (r *InMemoryRepository) ListByUser(userID int) ([]Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Order, 0)
	for i := len(r.orders) - 1; i >= 0; i-- {
		if r.orders[i].UserID == userID {
			out = append(out, r.orders[i])
		}
	}
	return out, nil
}

func (r *InMemoryRepository) List() ([]Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Order, len(r.orders))
	copy(out, r.orders)
	return out, nil
}

func (r *InMemoryRepository) UpdateStatus(id int, status string) (Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, ord := range r.orders {
		if ord.ID == id {
			r.orders[i].Status = status
			r.orders[i].UpdatedAt = time.Now().UTC().Format(time.RFC3339)
			return r.orders[i], nil
		}
	}
	return Order{}, ErrNotFound
}

func (r *InMemoryRepository) MarkPaid(id int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, ord := range r.orders {
		if ord.ID == id {
			if ord.Status != StatusPending {
				return false, nil
			}
			r.orders[i].Status = StatusProcessing
			r.orders[i].UpdatedAt = time.Now().UTC().Format(time.RFC3339)
			return true, nil
		}
	}
	return false, ErrNotFound
}
