package application

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dmehra2102/storefront/internal/catalog/domain"
)

type Service struct {
	repo ProductRepository
	now  func() time.Time
}

func NewService(repo ProductRepository) *Service {
	return &Service{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Service) List(ctx context.Context, f domain.Filter) (domain.Page, error) {
	f = f.Normalize()
	products, total, err := s.repo.List(ctx, f)
	if err != nil {
		return domain.Page{}, err
	}
	return domain.NewPage(products, f, total), nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.Product, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, f domain.Fields) (domain.Product, error) {
	p, err := domain.NewProduct(uuid.NewString(), f, s.now())
	if err != nil {
		return domain.Product{}, err
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return domain.Product{}, err
	}
	return p, nil
}

func (s *Service) Update(ctx context.Context, id string, f domain.Fields) (domain.Product, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	if err := p.Apply(f, s.now()); err != nil {
		return domain.Product{}, err
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return domain.Product{}, err
	}
	return p, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}
