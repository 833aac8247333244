package product

import "errors"

var ErrInvalidProduct = errors.New("product needs a name, a category and a non-negative price and stock")

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(categoryID int) ([]Product, error) {
	return s.repo.List(categoryID)
}

func (s *Service) GetByID(id int) (Product, error) {
	return s.repo.GetByID(id)
}

func (s *Service) Create(p Product) (Product, error) {
	if !valid(p) {
		return Product{}, ErrInvalidProduct
	}
	return s.repo.Create(p)
}

func (s *Service) Update(id int, p Product) (Product, error) {
	if !valid(p) {
		return Product{}, ErrInvalidProduct
	}
	return s.repo.Update(id, p)
}

func (s *Service) Delete(id int) error {
	return s.repo.Delete(id)
}

func valid(p Product) bool {
	return p.Name != "" && p.CategoryID > 0 && p.Price >= 0 && p.StockQuantity >= 0
}
