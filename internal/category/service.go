package category

import "errors"

var ErrNameRequired = errors.New("category name is required")

// Service provides business logic for categories.
type Service struct {
	repo Repository
}

func NewService(r Repository) *Service {
	return &Service{repo: r}
}

func (s *Service) List() ([]Category, error) {
	return s.repo.List()
}

func (s *Service) GetByID(id int) (Category, error) {
	return s.repo.GetByID(id)
}

func (s *Service) Create(cat Category) (Category, error) {
	if cat.Name == "" {
		return Category{}, ErrNameRequired
	}
	return s.repo.Create(cat)
}

func (s *Service) Update(id int, cat Category) (Category, error) {
	if cat.Name == "" {
		return Category{}, ErrNameRequired
	}
	return s.repo.Update(id, cat)
}

func (s *Service) Delete(id int) error {
	return s.repo.Delete(id)
}
