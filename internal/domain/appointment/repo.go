package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository persists appointments.
type Repository interface {
	// Create fails with SlotConflict when the professional already has a
	// non-cancelled appointment at the same date and time.
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	Update(ctx context.Context, a *Appointment) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByProfessional(ctx context.Context, professionalID uuid.UUID, from, to *time.Time) ([]Appointment, error)
	ListForClient(ctx context.Context, clientID uuid.UUID) ([]Appointment, error)
}

// LocationRepository persists attendance locations.
type LocationRepository interface {
	Create(ctx context.Context, l *AttendanceLocation) error
	GetByID(ctx context.Context, id uuid.UUID) (*AttendanceLocation, error)
	ListByProfessional(ctx context.Context, professionalID uuid.UUID) ([]AttendanceLocation, error)
	Update(ctx context.Context, l *AttendanceLocation) error
	// ClearDefault unsets is_default on every location of the professional.
	ClearDefault(ctx context.Context, professionalID uuid.UUID) error
	SetDefault(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// AccessRepository persists scheduling access grants.
type AccessRepository interface {
	Insert(ctx context.Context, g *SchedulingAccess) error
	// Deactivate flips is_active off on every grant of the professional.
	Deactivate(ctx context.Context, professionalID uuid.UUID) error
	// Latest returns the most recently granted access, active or not.
	Latest(ctx context.Context, professionalID uuid.UUID) (*SchedulingAccess, error)
}
