package consultation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/convenio/convenio/internal/domain/catalog"
	"github.com/convenio/convenio/internal/domain/patients"
	"github.com/convenio/convenio/internal/platform/apperr"
	"github.com/convenio/convenio/internal/platform/auth"
	"github.com/convenio/convenio/pkg/money"
)

// maxRecurrences bounds a single recurring series request.
const maxRecurrences = 60

// ServiceCatalog resolves the billed service.
type ServiceCatalog interface {
	GetService(ctx context.Context, id uuid.UUID) (*catalog.Service, error)
}

// ClientSubscriptions answers whether a client's plan covers an instant.
type ClientSubscriptions interface {
	SubscriptionActive(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
}

// PatientRegistry resolves dependents and private patients.
type PatientRegistry interface {
	GetDependent(ctx context.Context, id uuid.UUID) (*patients.Dependent, error)
	DependentSubscriptionActive(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	GetPrivatePatient(ctx context.Context, professionalID, id uuid.UUID) (*patients.PrivatePatient, error)
}

// AppointmentBooker lets a consultation optionally carry a calendar slot.
// Booking failures do not fail the consultation.
type AppointmentBooker interface {
	BookForConsultation(ctx context.Context, c *Consultation) error
}

// Service implements the consultation ledger rules.
type Service struct {
	repo     Repository
	catalog  ServiceCatalog
	clients  ClientSubscriptions
	registry PatientRegistry
	booker   AppointmentBooker
	log      zerolog.Logger
}

func NewService(repo Repository, cat ServiceCatalog, clients ClientSubscriptions, registry PatientRegistry, booker AppointmentBooker, log zerolog.Logger) *Service {
	return &Service{repo: repo, catalog: cat, clients: clients, registry: registry, booker: booker, log: log}
}

// CreateInput carries a new ledger entry.
type CreateInput struct {
	Patient           PatientRef
	ServiceID         uuid.UUID
	LocationID        *uuid.UUID
	Value             money.Cents
	ScheduledAt       time.Time
	Status            string
	Notes             *string
	CreateAppointment bool
}

func (s *Service) Create(ctx context.Context, professionalID uuid.UUID, in CreateInput) (*Consultation, error) {
	if err := s.validate(ctx, professionalID, &in); err != nil {
		return nil, err
	}
	c := s.build(professionalID, in, in.ScheduledAt)
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	if in.CreateAppointment && s.booker != nil {
		if err := s.booker.BookForConsultation(ctx, c); err != nil {
			s.log.Warn().Err(err).Str("consultation_id", c.ID.String()).
				Msg("agendamento vinculado não foi criado")
		}
	}
	return c, nil
}

// CreateRecurring expands a recurrence into individual consultations.
// Occurrences that collide with an existing non-cancelled consultation at
// the same instant are skipped. Returns how many were created.
func (s *Service) CreateRecurring(ctx context.Context, professionalID uuid.UUID, in CreateInput, rec Recurrence) (int, error) {
	switch rec.Frequency {
	case FreqDaily, FreqWeekly, FreqMonthly:
	default:
		return 0, apperr.New(apperr.ValidationFailed, "frequência de recorrência inválida")
	}
	if rec.Interval < 1 {
		return 0, apperr.New(apperr.ValidationFailed, "intervalo de recorrência deve ser positivo")
	}
	if rec.Occurrences < 0 || rec.Occurrences > maxRecurrences {
		return 0, apperr.New(apperr.ValidationFailed, "número de ocorrências inválido")
	}
	if err := s.validate(ctx, professionalID, &in); err != nil {
		return 0, err
	}
	if rec.Occurrences == 0 && rec.EndDate == nil {
		return 0, nil
	}

	created := 0
	at := in.ScheduledAt
	for i := 0; ; i++ {
		if rec.Occurrences > 0 && i >= rec.Occurrences {
			break
		}
		if rec.EndDate != nil && at.After(*rec.EndDate) {
			break
		}
		if i >= maxRecurrences {
			break
		}
		taken, err := s.repo.ExistsAt(ctx, professionalID, at, uuid.Nil)
		if err != nil {
			return created, err
		}
		if !taken {
			if err := s.repo.Create(ctx, s.build(professionalID, in, at)); err != nil {
				return created, err
			}
			created++
		}
		at = rec.Step(at)
	}
	return created, nil
}

func (s *Service) Get(ctx context.Context, callerID uuid.UUID, role string, id uuid.UUID) (*Consultation, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeRead(ctx, callerID, role, c); err != nil {
		return nil, err
	}
	return c, nil
}

// List scopes results by the caller's role: professionals see their own
// ledger, clients see consultations for themselves and their dependents
// (cancelled included), admins see everything.
func (s *Service) List(ctx context.Context, callerID uuid.UUID, role string, f ListFilter, limit, offset int) ([]Consultation, int, error) {
	switch role {
	case auth.RoleAdmin:
	case auth.RoleProfessional:
		f.ProfessionalID = &callerID
		f.ClientID = nil
	default:
		f.ClientID = &callerID
		f.ProfessionalID = nil
	}
	return s.repo.List(ctx, f, limit, offset)
}

func (s *Service) UpdateStatus(ctx context.Context, callerID uuid.UUID, admin bool, id uuid.UUID, status string, reason *string) (*Consultation, error) {
	if !ValidStatus(status) {
		return nil, apperr.New(apperr.ValidationFailed, "status de consulta inválido")
	}
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !admin && c.ProfessionalID != callerID {
		return nil, apperr.New(apperr.Forbidden, "consulta pertence a outro profissional")
	}
	if !CanTransition(c.Status, status) {
		return nil, apperr.New(apperr.ValidationFailed, "transição de status inválida")
	}
	c.Status = status
	if status == StatusCancelled {
		now := time.Now()
		c.CancelledAt = &now
		c.CancelledBy = &callerID
		c.CancelReason = reason
	}
	if err := s.repo.UpdateStatus(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) Reschedule(ctx context.Context, callerID uuid.UUID, admin bool, id uuid.UUID, at time.Time) (*Consultation, error) {
	if at.IsZero() {
		return nil, apperr.New(apperr.ValidationFailed, "informe o novo horário")
	}
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !admin && c.ProfessionalID != callerID {
		return nil, apperr.New(apperr.Forbidden, "consulta pertence a outro profissional")
	}
	if c.Status != StatusScheduled && c.Status != StatusConfirmed {
		return nil, apperr.New(apperr.ValidationFailed, "apenas consultas agendadas ou confirmadas podem ser reagendadas")
	}
	taken, err := s.repo.ExistsAt(ctx, c.ProfessionalID, at, c.ID)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperr.New(apperr.SlotConflict, "o profissional já possui consulta neste horário")
	}
	if err := s.repo.Reschedule(ctx, id, at); err != nil {
		return nil, err
	}
	c.ScheduledAt = at
	return c, nil
}

func (s *Service) UpdateNotes(ctx context.Context, callerID uuid.UUID, admin bool, id uuid.UUID, notes *string) (*Consultation, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !admin && c.ProfessionalID != callerID {
		return nil, apperr.New(apperr.Forbidden, "consulta pertence a outro profissional")
	}
	if err := s.repo.UpdateNotes(ctx, id, notes); err != nil {
		return nil, err
	}
	c.Notes = notes
	return c, nil
}

// Delete removes the ledger entry permanently. Admin only.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) validate(ctx context.Context, professionalID uuid.UUID, in *CreateInput) error {
	if !in.Patient.Valid() {
		return apperr.New(apperr.PatientRefInvalid, "informe exatamente um paciente: cliente, dependente ou paciente particular")
	}
	if in.Value <= 0 {
		return apperr.New(apperr.ValidationFailed, "o valor da consulta deve ser positivo")
	}
	if in.ScheduledAt.IsZero() {
		in.ScheduledAt = time.Now()
	}
	if in.Status == "" {
		in.Status = StatusCompleted
	}
	if !ValidStatus(in.Status) || in.Status == StatusCancelled {
		return apperr.New(apperr.ValidationFailed, "status inicial de consulta inválido")
	}
	if _, err := s.catalog.GetService(ctx, in.ServiceID); err != nil {
		return err
	}
	switch {
	case in.Patient.ClientID != nil:
		active, err := s.clients.SubscriptionActive(ctx, *in.Patient.ClientID, in.ScheduledAt)
		if err != nil {
			return err
		}
		if !active {
			return apperr.New(apperr.SubscriptionInactive, "assinatura do cliente inativa ou vencida")
		}
	case in.Patient.DependentID != nil:
		active, err := s.registry.DependentSubscriptionActive(ctx, *in.Patient.DependentID, in.ScheduledAt)
		if err != nil {
			return err
		}
		if !active {
			return apperr.New(apperr.SubscriptionInactive, "assinatura do dependente inativa ou vencida")
		}
	case in.Patient.PrivatePatientID != nil:
		if _, err := s.registry.GetPrivatePatient(ctx, professionalID, *in.Patient.PrivatePatientID); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) build(professionalID uuid.UUID, in CreateInput, at time.Time) *Consultation {
	now := time.Now()
	return &Consultation{
		ID:               uuid.New(),
		ProfessionalID:   professionalID,
		ClientID:         in.Patient.ClientID,
		DependentID:      in.Patient.DependentID,
		PrivatePatientID: in.Patient.PrivatePatientID,
		ServiceID:        in.ServiceID,
		LocationID:       in.LocationID,
		Value:            in.Value,
		ScheduledAt:      at,
		Status:           in.Status,
		Notes:            in.Notes,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func (s *Service) authorizeRead(ctx context.Context, callerID uuid.UUID, role string, c *Consultation) error {
	switch role {
	case auth.RoleAdmin:
		return nil
	case auth.RoleProfessional:
		if c.ProfessionalID == callerID {
			return nil
		}
	default:
		if c.ClientID != nil && *c.ClientID == callerID {
			return nil
		}
		if c.DependentID != nil {
			dep, err := s.registry.GetDependent(ctx, *c.DependentID)
			if err == nil && dep.ClientID == callerID {
				return nil
			}
		}
	}
	return apperr.New(apperr.Forbidden, "consulta pertence a outro usuário")
}
