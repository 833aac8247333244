package cart

import (
	"errors"
	"sync"

	"github.com/dukahub/duka-backend/internal/product"
)

var (
	ErrItemNotFound = errors.New("item not in cart")
)

// Repository stores cart lines per user. There is no cart record as such; a
// user's cart is the set of their lines, and clearing it removes the lines.
type Repository interface {
	Get(userID int) ([]CartItem, error)
	Upsert(userID, productID, quantity int) error
	SetQuantity(userID, productID, quantity int) error
	Remove(userID, productID int) error
	Clear(userID int) error
}

// InMemoryRepository backs handler and service tests. It joins against a
// seeded product list the same way the Postgres implementation joins the
// products table.
type InMemoryRepository struct {
	mu       sync.RWMutex
	lines    map[int]map[int]int // userID -> productID -> qty
	products map[int]product.Product
}

func NewInMemoryRepository(products []product.Product) *InMemoryRepository {
	repo := &InMemoryRepository{
		lines:    make(map[int]map[int]int),
		products: make(map[int]product.Product, len(products)),
	}
	for _, p := range products {
		repo.products[p.ID] = p
	}
	return repo
}

func (r *InMemoryRepository) Get(userID int) ([]CartItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]CartItem, 0, len(r.lines[userID]))
	for pid, qty := range r.lines[userID] {
		p := r.products[pid]
		out = append(out, CartItem{
			ProductID:     pid,
			Name:          p.Name,
			Price:         p.Price,
			StockQuantity: p.StockQuantity,
			Quantity:      qty,
			InStock:       p.StockQuantity >= qty,
		})
	}
	return out, nil
}

func (r *InMemoryRepository) Upsert(userID, productID, quantity int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.lines[userID] == nil {
		r.lines[userID] = make(map[int]int)
	}
	r.lines[userID][productID] += quantity
	return nil
}

func (r *InMemoryRepository) SetQuantity(userID, productID, quantity int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.lines[userID][productID]; !ok {
		return ErrItemNotFound
	}
	r.lines[userID][productID] = quantity
	return nil
}

func (r *InMemoryRepository) Remove(userID, productID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.lines[userID][productID]; !ok {
		return ErrItemNotFound
	}
	delete(r.lines[userID], productID)
	return nil
}

func (r *InMemoryRepository) Clear(userID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.lines, userID)
	return nil
}
