package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/convenio/convenio/internal/platform/apperr"
	"github.com/convenio/convenio/pkg/money"
)

type mockCategoryRepo struct {
	cats        map[uuid.UUID]*ServiceCategory
	hasServices map[uuid.UUID]bool
}

func newMockCategoryRepo() *mockCategoryRepo {
	return &mockCategoryRepo{cats: make(map[uuid.UUID]*ServiceCategory), hasServices: make(map[uuid.UUID]bool)}
}

func (m *mockCategoryRepo) Create(_ context.Context, c *ServiceCategory) error {
	for _, existing := range m.cats {
		if existing.Name == c.Name {
			return apperr.New(apperr.DuplicateIdentifier, "categoria com este nome já existe")
		}
	}
	c.ID = uuid.New()
	c.CreatedAt = time.Now()
	m.cats[c.ID] = c
	return nil
}

func (m *mockCategoryRepo) GetByID(_ context.Context, id uuid.UUID) (*ServiceCategory, error) {
	c, ok := m.cats[id]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "categoria não encontrada")
	}
	return c, nil
}

func (m *mockCategoryRepo) Update(_ context.Context, c *ServiceCategory) error {
	m.cats[c.ID] = c
	return nil
}

func (m *mockCategoryRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.cats, id)
	return nil
}

func (m *mockCategoryRepo) List(_ context.Context) ([]*ServiceCategory, error) {
	var out []*ServiceCategory
	for _, c := range m.cats {
		out = append(out, c)
	}
	return out, nil
}

func (m *mockCategoryRepo) HasServices(_ context.Context, id uuid.UUID) (bool, error) {
	return m.hasServices[id], nil
}

type mockServiceRepo struct {
	services map[uuid.UUID]*Service
	inUse    map[uuid.UUID]bool
}

func newMockServiceRepo() *mockServiceRepo {
	return &mockServiceRepo{services: make(map[uuid.UUID]*Service), inUse: make(map[uuid.UUID]bool)}
}

func (m *mockServiceRepo) Create(_ context.Context, s *Service) error {
	s.ID = uuid.New()
	s.CreatedAt = time.Now()
	m.services[s.ID] = s
	return nil
}

func (m *mockServiceRepo) GetByID(_ context.Context, id uuid.UUID) (*Service, error) {
	s, ok := m.services[id]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "serviço não encontrado")
	}
	return s, nil
}

func (m *mockServiceRepo) Update(_ context.Context, s *Service) error {
	m.services[s.ID] = s
	return nil
}

func (m *mockServiceRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.services, id)
	return nil
}

func (m *mockServiceRepo) List(_ context.Context, categoryID *uuid.UUID) ([]*Service, error) {
	var out []*Service
	for _, s := range m.services {
		if categoryID == nil || (s.CategoryID != nil && *s.CategoryID == *categoryID) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *mockServiceRepo) InUse(_ context.Context, id uuid.UUID) (bool, error) {
	return m.inUse[id], nil
}

func TestCreateCategory_DuplicateName(t *testing.T) {
	svc := NewCatalogService(newMockCategoryRepo(), newMockServiceRepo())
	ctx := context.Background()

	if _, err := svc.CreateCategory(ctx, "Odontologia"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.CreateCategory(ctx, "Odontologia"); apperr.KindOf(err) != apperr.DuplicateIdentifier {
		t.Errorf("expected DuplicateIdentifier, got %v", err)
	}
}

func TestDeleteService_InUse(t *testing.T) {
	services := newMockServiceRepo()
	svc := NewCatalogService(newMockCategoryRepo(), services)
	ctx := context.Background()

	created, err := svc.CreateService(ctx, ServiceInput{Name: "Consulta", Price: money.Cents(10000)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	services.inUse[created.ID] = true

	if err := svc.DeleteService(ctx, created.ID); apperr.KindOf(err) != apperr.InUse {
		t.Errorf("expected InUse, got %v", err)
	}

	services.inUse[created.ID] = false
	if err := svc.DeleteService(ctx, created.ID); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestCreateService_Validation(t *testing.T) {
	svc := NewCatalogService(newMockCategoryRepo(), newMockServiceRepo())
	ctx := context.Background()

	if _, err := svc.CreateService(ctx, ServiceInput{Name: "", Price: 100}); apperr.KindOf(err) != apperr.ValidationFailed {
		t.Errorf("expected ValidationFailed for empty name, got %v", err)
	}
	if _, err := svc.CreateService(ctx, ServiceInput{Name: "X", Price: 0}); apperr.KindOf(err) != apperr.ValidationFailed {
		t.Errorf("expected ValidationFailed for zero price, got %v", err)
	}

	unknown := uuid.New()
	if _, err := svc.CreateService(ctx, ServiceInput{Name: "X", Price: 100, CategoryID: &unknown}); apperr.KindOf(err) != apperr.NotFound {
		t.Errorf("expected NotFound for unknown category, got %v", err)
	}
}

func TestDeleteCategory_WithServices(t *testing.T) {
	cats := newMockCategoryRepo()
	svc := NewCatalogService(cats, newMockServiceRepo())
	ctx := context.Background()

	cat, err := svc.CreateCategory(ctx, "Psicologia")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cats.hasServices[cat.ID] = true

	if err := svc.DeleteCategory(ctx, cat.ID); apperr.KindOf(err) != apperr.InUse {
		t.Errorf("expected InUse, got %v", err)
	}
}
