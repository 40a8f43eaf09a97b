package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/vncsmyrnk/accounts/internal/core/domain"
	"github.com/vncsmyrnk/accounts/internal/core/ports"
)

type entityService struct {
	repo ports.EntityRepository
}

func NewEntityService(repo ports.EntityRepository) ports.EntityService {
	return &entityService{
		repo: repo,
	}
}

func (s *entityService) Create(ctx context.Context, name string) (*domain.Entity, error) {
	name, err := entityName(name)
	if err != nil {
		return nil, err
	}

	entity := &domain.Entity{Name: name}
	if err := s.repo.Create(ctx, entity); err != nil {
		return nil, err
	}
	return entity, nil
}

func (s *entityService) GetByID(ctx context.Context, id int64) (*domain.Entity, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *entityService) List(ctx context.Context, page int) ([]*domain.Entity, int, error) {
	entities, err := s.repo.List(ctx, PageSize, pageOffset(page))
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, 0, err
	}
	return entities, total, nil
}

func (s *entityService) Update(ctx context.Context, id int64, name string) (*domain.Entity, error) {
	name, err := entityName(name)
	if err != nil {
		return nil, err
	}

	entity := &domain.Entity{ID: id, Name: name}
	if err := s.repo.Update(ctx, entity); err != nil {
		return nil, err
	}
	return entity, nil
}

func (s *entityService) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

func entityName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: name is required", domain.ErrValidation)
	}
	return name, nil
}
