package cart

import (
	"errors"

	"github.com/dukahub/duka-backend/internal/product"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrProductInactive = errors.New("product is not available")
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	ErrNotEnoughStock  = errors.New("insufficient stock")
)

// Catalog is the slice of the product service the cart needs.
type Catalog interface {
	GetByID(id int) (product.Product, error)
}

type Service struct {
	repo    Repository
	catalog Catalog
}

func NewService(repo Repository, catalog Catalog) *Service {
	return &Service{repo: repo, catalog: catalog}
}

func (s *Service) Get(userID int) ([]CartItem, error) {
	return s.repo.Get(userID)
}

// Add puts quantity units of a product into the cart, accumulating with any
// existing line. The stock check here is a courtesy for the shopper; the
// authoritative check happens inside the checkout transaction.
func (s *Service) Add(userID, productID, quantity int) ([]CartItem, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	p, err := s.catalog.GetByID(productID)
	if err != nil {
		return nil, ErrProductNotFound
	}
	if !p.IsActive {
		return nil, ErrProductInactive
	}
	if p.StockQuantity < quantity {
		return nil, ErrNotEnoughStock
	}

	if err := s.repo.Upsert(userID, productID, quantity); err != nil {
		return nil, err
	}
	return s.repo.Get(userID)
}

func (s *Service) UpdateQuantity(userID, productID, quantity int) ([]CartItem, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	if err := s.repo.SetQuantity(userID, productID, quantity); err != nil {
		return nil, err
	}
	return s.repo.Get(userID)
}

func (s *Service) Remove(userID, productID int) ([]CartItem, error) {
	if err := s.repo.Remove(userID, productID); err != nil {
		return nil, err
	}
	return s.repo.Get(userID)
}

func (s *Service) Clear(userID int) error {
	return s.repo.Clear(userID)
}
