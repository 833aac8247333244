package pickup

import "errors"

var ErrMissingFields = errors.New("name, address and city are required")

type Service struct {
	repo Repository
}

func NewService(r Repository) *Service {
	return &Service{repo: r}
}

func (s *Service) ListActive() ([]Location, error) {
	return s.repo.ListActive()
}

func (s *Service) GetByID(id int) (Location, error) {
	return s.repo.GetByID(id)
}

func (s *Service) Create(loc Location) (Location, error) {
	if loc.Name == "" || loc.Address == "" || loc.City == "" {
		return Location{}, ErrMissingFields
	}
	return s.repo.Create(loc)
}

func (s *Service) Update(id int, loc Location) (Location, error) {
	if loc.Name == "" || loc.Address == "" || loc.City == "" {
		return Location{}, ErrMissingFields
	}
	return s.repo.Update(id, loc)
}

func (s *Service) Delete(id int) error {
	return s.repo.Delete(id)
}
