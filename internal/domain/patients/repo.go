package patients

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type DependentRepository interface {
	Create(ctx context.Context, d *Dependent) error
	GetByID(ctx context.Context, id uuid.UUID) (*Dependent, error)
	GetByCPF(ctx context.Context, cpf string) (*Dependent, error)
	Update(ctx context.Context, d *Dependent) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByClient(ctx context.Context, clientID uuid.UUID) ([]*Dependent, error)
	CountByClient(ctx context.Context, clientID uuid.UUID) (int, error)
	SetSubscription(ctx context.Context, id uuid.UUID, status string, expiresAt *time.Time, gatewayPaymentID *string) error

	// CPFTaken checks users and dependents; the national id is globally
	// unique across both.
	CPFTaken(ctx context.Context, cpf string) (bool, error)
	// InUse reports whether any consultation references the dependent.
	InUse(ctx context.Context, id uuid.UUID) (bool, error)
}

type PrivatePatientRepository interface {
	Create(ctx context.Context, p *PrivatePatient) error
	GetByID(ctx context.Context, id uuid.UUID) (*PrivatePatient, error)
	Update(ctx context.Context, p *PrivatePatient) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByProfessional(ctx context.Context, professionalID uuid.UUID, limit, offset int) ([]*PrivatePatient, int, error)
	InUse(ctx context.Context, id uuid.UUID) (bool, error)
}
