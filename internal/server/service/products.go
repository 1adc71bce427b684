package service

import (
	"context"

	"restaurant-sync/internal/common/logger"
	"restaurant-sync/internal/domain"
	"restaurant-sync/internal/server/repository"
)

type ProductService struct {
	repo repository.ProductRepositoryInterface
	log  *logger.Logger
}

func NewProductService(repo repository.ProductRepositoryInterface, log *logger.Logger) *ProductService {
	return &ProductService{repo: repo, log: log}
}

func (s *ProductService) List(ctx context.Context) ([]domain.Product, error) {
	return s.repo.List(ctx)
}

// SetAvailability is the explicit toggle, independent of the order
// lifecycle; no push event is emitted for it.
func (s *ProductService) SetAvailability(ctx context.Context, id string, available bool) (domain.Product, error) {
	p, err := s.repo.SetAvailability(ctx, id, available)
	if err != nil {
		return domain.Product{}, err
	}
	s.log.Info("product_availability_changed", map[string]any{
		"product_id": p.ID, "available": p.Available,
	})
	return p, nil
}
