package consultation

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ListFilter narrows consultation listings. Zero values mean no filter.
type ListFilter struct {
	ProfessionalID *uuid.UUID
	ClientID       *uuid.UUID
	Status         string
	From           *time.Time
	To             *time.Time
}

// Repository is the persistence boundary for the consultation ledger.
type Repository interface {
	Create(ctx context.Context, c *Consultation) error
	GetByID(ctx context.Context, id uuid.UUID) (*Consultation, error)
	UpdateNotes(ctx context.Context, id uuid.UUID, notes *string) error
	UpdateStatus(ctx context.Context, c *Consultation) error
	Reschedule(ctx context.Context, id uuid.UUID, at time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f ListFilter, limit, offset int) ([]Consultation, int, error)
	// ExistsAt reports whether the professional already has a
	// non-cancelled consultation at the given instant, excluding one id.
	ExistsAt(ctx context.Context, professionalID uuid.UUID, at time.Time, exclude uuid.UUID) (bool, error)
}
