package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/convenio/convenio/internal/platform/apperr"
	"github.com/convenio/convenio/pkg/money"
)

type CatalogService struct {
	categories CategoryRepository
	services   ServiceRepository
}

func NewCatalogService(categories CategoryRepository, services ServiceRepository) *CatalogService {
	return &CatalogService{categories: categories, services: services}
}

func (s *CatalogService) CreateCategory(ctx context.Context, name string) (*ServiceCategory, error) {
	if name == "" {
		return nil, apperr.New(apperr.ValidationFailed, "nome é obrigatório")
	}
	c := &ServiceCategory{Name: name}
	if err := s.categories.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]*ServiceCategory, error) {
	return s.categories.List(ctx)
}

func (s *CatalogService) UpdateCategory(ctx context.Context, id uuid.UUID, name string) (*ServiceCategory, error) {
	if name == "" {
		return nil, apperr.New(apperr.ValidationFailed, "nome é obrigatório")
	}
	c, err := s.categories.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Name = name
	if err := s.categories.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CatalogService) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	used, err := s.categories.HasServices(ctx, id)
	if err != nil {
		return fmt.Errorf("checking services: %w", err)
	}
	if used {
		return apperr.New(apperr.InUse, "categoria possui serviços vinculados")
	}
	return s.categories.Delete(ctx, id)
}

type ServiceInput struct {
	Name       string      `json:"name"`
	CategoryID *uuid.UUID  `json:"category_id"`
	Price      money.Cents `json:"price"`
	IsBase     bool        `json:"is_base"`
}

func (s *CatalogService) CreateService(ctx context.Context, in ServiceInput) (*Service, error) {
	if in.Name == "" {
		return nil, apperr.New(apperr.ValidationFailed, "nome é obrigatório")
	}
	if in.Price <= 0 {
		return nil, apperr.New(apperr.ValidationFailed, "preço deve ser positivo")
	}
	if in.CategoryID != nil {
		if _, err := s.categories.GetByID(ctx, *in.CategoryID); err != nil {
			return nil, err
		}
	}
	svc := &Service{Name: in.Name, CategoryID: in.CategoryID, Price: in.Price, IsBase: in.IsBase}
	if err := s.services.Create(ctx, svc); err != nil {
		return nil, err
	}
	return svc, nil
}

func (s *CatalogService) GetService(ctx context.Context, id uuid.UUID) (*Service, error) {
	return s.services.GetByID(ctx, id)
}

func (s *CatalogService) ListServices(ctx context.Context, categoryID *uuid.UUID) ([]*Service, error) {
	return s.services.List(ctx, categoryID)
}

func (s *CatalogService) UpdateService(ctx context.Context, id uuid.UUID, in ServiceInput) (*Service, error) {
	svc, err := s.services.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Name != "" {
		svc.Name = in.Name
	}
	if in.Price > 0 {
		svc.Price = in.Price
	}
	if in.CategoryID != nil {
		if _, err := s.categories.GetByID(ctx, *in.CategoryID); err != nil {
			return nil, err
		}
		svc.CategoryID = in.CategoryID
	}
	svc.IsBase = in.IsBase
	if err := s.services.Update(ctx, svc); err != nil {
		return nil, err
	}
	return svc, nil
}

// DeleteService refuses while any consultation references the service.
func (s *CatalogService) DeleteService(ctx context.Context, id uuid.UUID) error {
	used, err := s.services.InUse(ctx, id)
	if err != nil {
		return fmt.Errorf("checking consultations: %w", err)
	}
	if used {
		return apperr.New(apperr.InUse, "serviço possui consultas registradas")
	}
	return s.services.Delete(ctx, id)
}
