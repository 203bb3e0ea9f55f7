package catalog

import (
	"context"

	"github.com/google/uuid"
)

type CategoryRepository interface {
	Create(ctx context.Context, c *ServiceCategory) error
	GetByID(ctx context.Context, id uuid.UUID) (*ServiceCategory, error)
	Update(ctx context.Context, c *ServiceCategory) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]*ServiceCategory, error)
	// HasServices blocks category deletion while services reference it.
	HasServices(ctx context.Context, id uuid.UUID) (bool, error)
}

type ServiceRepository interface {
	Create(ctx context.Context, s *Service) error
	GetByID(ctx context.Context, id uuid.UUID) (*Service, error)
	Update(ctx context.Context, s *Service) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, categoryID *uuid.UUID) ([]*Service, error)
	// InUse reports whether any consultation references the service.
	InUse(ctx context.Context, id uuid.UUID) (bool, error)
}
