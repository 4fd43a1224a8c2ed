package services

import (
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"oakmart/internal/domain"
	"oakmart/internal/repos"
)

var ErrProductNotFound = errors.New("product not found")

type CatalogService struct {
	Prods *repos.ProductRepo
}

func NewCatalogService(prods *repos.ProductRepo) *CatalogService {
	return &CatalogService{Prods: prods}
}

func (s *CatalogService) List() ([]domain.Product, error) {
	return s.Prods.List()
}

// Get resolves a product by id, falling back to slug lookup so both
// forms of URL work.
func (s *CatalogService) Get(idOrSlug string) (domain.Product, error) {
	p, err := s.Prods.Get(idOrSlug)
	if errors.Is(err, sql.ErrNoRows) {
		p, err = s.Prods.GetBySlug(idOrSlug)
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Product{}, ErrProductNotFound
		}
		return domain.Product{}, err
	}
	return p, nil
}

func (s *CatalogService) Create(p *domain.Product) (domain.Product, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	for i := range p.Combinations {
		if p.Combinations[i].ID == "" {
			p.Combinations[i].ID = uuid.NewString()
		}
	}
	if err := s.Prods.Create(p); err != nil {
		return domain.Product{}, err
	}
	return s.Prods.Get(p.ID)
}

func (s *CatalogService) Update(p *domain.Product) (domain.Product, error) {
	for i := range p.Combinations {
		if p.Combinations[i].ID == "" {
			p.Combinations[i].ID = uuid.NewString()
		}
	}
	if err := s.Prods.Update(p); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Product{}, ErrProductNotFound
		}
		return domain.Product{}, err
	}
	return s.Prods.Get(p.ID)
}

func (s *CatalogService) Delete(id string) error {
	if err := s.Prods.Delete(id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrProductNotFound
		}
		return err
	}
	return nil
}

// Availability maps the aggregate counter to a coarse status bucket.
func (s *CatalogService) Availability(productID string) (domain.Availability, error) {
	qty, err := s.Prods.Stock(productID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Availability{}, ErrProductNotFound
		}
		return domain.Availability{}, err
	}

	status := "OUT_OF_STOCK"
	switch {
	case qty >= 5:
		status = "IN_STOCK"
	case qty > 0:
		status = "LOW_STOCK"
	}
	return domain.Availability{Status: status, Qty: qty}, nil
}
