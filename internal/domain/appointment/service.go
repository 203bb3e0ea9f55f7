package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/convenio/convenio/internal/domain/consultation"
	"github.com/convenio/convenio/internal/domain/identity"
	"github.com/convenio/convenio/internal/platform/apperr"
	"github.com/convenio/convenio/internal/platform/auth"
	"github.com/convenio/convenio/internal/platform/db"
)

// ProfessionalDirectory resolves users for grant validation.
type ProfessionalDirectory interface {
	Get(ctx context.Context, id uuid.UUID) (*identity.User, error)
}

// Service enforces the agenda rules: slot uniqueness, location defaults and
// the admin-issued scheduling access gate.
type Service struct {
	repo      Repository
	locations LocationRepository
	access    AccessRepository
	directory ProfessionalDirectory
	tx        func(ctx context.Context, fn func(context.Context) error) error
}

func NewService(repo Repository, locations LocationRepository, access AccessRepository, directory ProfessionalDirectory, pool *pgxpool.Pool) *Service {
	return &Service{
		repo:      repo,
		locations: locations,
		access:    access,
		directory: directory,
		tx: func(ctx context.Context, fn func(context.Context) error) error {
			return db.InTx(ctx, pool, fn)
		},
	}
}

// requireAccess gates every agenda mutation. Admins bypass the grant.
func (s *Service) requireAccess(ctx context.Context, professionalID uuid.UUID, admin bool) error {
	if admin {
		return nil
	}
	g, err := s.access.Latest(ctx, professionalID)
	if err != nil {
		if apperr.Is(err, apperr.NotFound) {
			return apperr.New(apperr.SchedulingAccessExpired, "profissional sem acesso ativo à agenda")
		}
		return err
	}
	if !g.ActiveAt(time.Now()) {
		return apperr.New(apperr.SchedulingAccessExpired, "acesso à agenda expirado ou revogado")
	}
	return nil
}

// CreateInput carries a new agenda slot.
type CreateInput struct {
	ClientID         *uuid.UUID `json:"client_id"`
	DependentID      *uuid.UUID `json:"dependent_id"`
	PrivatePatientID *uuid.UUID `json:"private_patient_id"`
	ServiceID        *uuid.UUID `json:"service_id"`
	LocationID       *uuid.UUID `json:"location_id"`
	Date             time.Time  `json:"date"`
	Time             string     `json:"time"`
	Notes            *string    `json:"notes"`
}

func (s *Service) validate(ctx context.Context, professionalID uuid.UUID, in CreateInput) error {
	refs := 0
	for _, p := range []*uuid.UUID{in.ClientID, in.DependentID, in.PrivatePatientID} {
		if p != nil {
			refs++
		}
	}
	if refs != 1 {
		return apperr.New(apperr.PatientRefInvalid, "informe exatamente um paciente: cliente, dependente ou paciente particular")
	}
	if in.Date.IsZero() {
		return apperr.New(apperr.ValidationFailed, "informe a data do agendamento")
	}
	if !ValidSlotTime(in.Time) {
		return apperr.New(apperr.ValidationFailed, "horário inválido, use o formato HH:MM")
	}
	if in.LocationID != nil {
		l, err := s.locations.GetByID(ctx, *in.LocationID)
		if err != nil {
			return err
		}
		if l.ProfessionalID != professionalID {
			return apperr.New(apperr.Forbidden, "local de atendimento pertence a outro profissional")
		}
	}
	return nil
}

func (s *Service) Create(ctx context.Context, professionalID uuid.UUID, admin bool, in CreateInput) (*Appointment, error) {
	if err := s.requireAccess(ctx, professionalID, admin); err != nil {
		return nil, err
	}
	if err := s.validate(ctx, professionalID, in); err != nil {
		return nil, err
	}
	now := time.Now()
	a := &Appointment{
		ID:               uuid.New(),
		ProfessionalID:   professionalID,
		ClientID:         in.ClientID,
		DependentID:      in.DependentID,
		PrivatePatientID: in.PrivatePatientID,
		ServiceID:        in.ServiceID,
		LocationID:       in.LocationID,
		Date:             in.Date,
		Time:             in.Time,
		Status:           StatusScheduled,
		Notes:            in.Notes,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// BookForConsultation mirrors a consultation onto the agenda. The slot is
// derived from the consultation's scheduled instant.
func (s *Service) BookForConsultation(ctx context.Context, c *consultation.Consultation) error {
	if err := s.requireAccess(ctx, c.ProfessionalID, false); err != nil {
		return err
	}
	now := time.Now()
	// The agenda date is the calendar day in the consultation's own zone;
	// truncating in UTC would push evening slots onto the next day.
	at := c.ScheduledAt
	day := time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, at.Location())
	a := &Appointment{
		ID:               uuid.New(),
		ProfessionalID:   c.ProfessionalID,
		ClientID:         c.ClientID,
		DependentID:      c.DependentID,
		PrivatePatientID: c.PrivatePatientID,
		ServiceID:        &c.ServiceID,
		LocationID:       c.LocationID,
		Date:             day,
		Time:             at.Format("15:04"),
		Status:           StatusScheduled,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	return s.repo.Create(ctx, a)
}

func (s *Service) Get(ctx context.Context, callerID uuid.UUID, admin bool, id uuid.UUID) (*Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !admin && a.ProfessionalID != callerID {
		return nil, apperr.New(apperr.Forbidden, "agendamento pertence a outro profissional")
	}
	return a, nil
}

func (s *Service) ListMine(ctx context.Context, professionalID uuid.UUID, from, to *time.Time) ([]Appointment, error) {
	return s.repo.ListByProfessional(ctx, professionalID, from, to)
}

func (s *Service) ListForClient(ctx context.Context, clientID uuid.UUID) ([]Appointment, error) {
	return s.repo.ListForClient(ctx, clientID)
}

func (s *Service) Update(ctx context.Context, callerID uuid.UUID, admin bool, id uuid.UUID, in CreateInput) (*Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !admin && a.ProfessionalID != callerID {
		return nil, apperr.New(apperr.Forbidden, "agendamento pertence a outro profissional")
	}
	if err := s.requireAccess(ctx, a.ProfessionalID, admin); err != nil {
		return nil, err
	}
	if a.Status == StatusCancelled || a.Status == StatusCompleted {
		return nil, apperr.New(apperr.ValidationFailed, "agendamento encerrado não pode ser alterado")
	}
	if in.Date.IsZero() {
		return nil, apperr.New(apperr.ValidationFailed, "informe a data do agendamento")
	}
	if !ValidSlotTime(in.Time) {
		return nil, apperr.New(apperr.ValidationFailed, "horário inválido, use o formato HH:MM")
	}
	a.ServiceID = in.ServiceID
	a.LocationID = in.LocationID
	a.Date = in.Date
	a.Time = in.Time
	a.Notes = in.Notes
	if err := s.repo.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) UpdateStatus(ctx context.Context, callerID uuid.UUID, admin bool, id uuid.UUID, status string) (*Appointment, error) {
	if !ValidStatus(status) {
		return nil, apperr.New(apperr.ValidationFailed, "status de agendamento inválido")
	}
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !admin && a.ProfessionalID != callerID {
		return nil, apperr.New(apperr.Forbidden, "agendamento pertence a outro profissional")
	}
	if a.Status == StatusCancelled || a.Status == StatusCompleted {
		return nil, apperr.New(apperr.ValidationFailed, "agendamento encerrado não pode ser alterado")
	}
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}
	a.Status = status
	return a, nil
}

func (s *Service) Delete(ctx context.Context, callerID uuid.UUID, admin bool, id uuid.UUID) error {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !admin && a.ProfessionalID != callerID {
		return apperr.New(apperr.Forbidden, "agendamento pertence a outro profissional")
	}
	if err := s.requireAccess(ctx, a.ProfessionalID, admin); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// LocationInput carries attendance location fields.
type LocationInput struct {
	Name      string  `json:"name"`
	Address   *string `json:"address"`
	City      *string `json:"city"`
	IsDefault bool    `json:"is_default"`
}

func (s *Service) CreateLocation(ctx context.Context, professionalID uuid.UUID, in LocationInput) (*AttendanceLocation, error) {
	if in.Name == "" {
		return nil, apperr.New(apperr.ValidationFailed, "informe o nome do local")
	}
	l := &AttendanceLocation{
		ID:             uuid.New(),
		ProfessionalID: professionalID,
		Name:           in.Name,
		Address:        in.Address,
		City:           in.City,
		IsDefault:      in.IsDefault,
		CreatedAt:      time.Now(),
	}
	if !in.IsDefault {
		if err := s.locations.Create(ctx, l); err != nil {
			return nil, err
		}
		return l, nil
	}
	err := s.tx(ctx, func(ctx context.Context) error {
		if err := s.locations.ClearDefault(ctx, professionalID); err != nil {
			return err
		}
		return s.locations.Create(ctx, l)
	})
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (s *Service) ListLocations(ctx context.Context, professionalID uuid.UUID) ([]AttendanceLocation, error) {
	return s.locations.ListByProfessional(ctx, professionalID)
}

func (s *Service) ownedLocation(ctx context.Context, professionalID, id uuid.UUID) (*AttendanceLocation, error) {
	l, err := s.locations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if l.ProfessionalID != professionalID {
		return nil, apperr.New(apperr.Forbidden, "local de atendimento pertence a outro profissional")
	}
	return l, nil
}

func (s *Service) UpdateLocation(ctx context.Context, professionalID, id uuid.UUID, in LocationInput) (*AttendanceLocation, error) {
	l, err := s.ownedLocation(ctx, professionalID, id)
	if err != nil {
		return nil, err
	}
	if in.Name == "" {
		return nil, apperr.New(apperr.ValidationFailed, "informe o nome do local")
	}
	l.Name = in.Name
	l.Address = in.Address
	l.City = in.City
	if err := s.locations.Update(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

// SetDefaultLocation makes the location the professional's single default.
func (s *Service) SetDefaultLocation(ctx context.Context, professionalID, id uuid.UUID) (*AttendanceLocation, error) {
	l, err := s.ownedLocation(ctx, professionalID, id)
	if err != nil {
		return nil, err
	}
	err = s.tx(ctx, func(ctx context.Context) error {
		if err := s.locations.ClearDefault(ctx, professionalID); err != nil {
			return err
		}
		return s.locations.SetDefault(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	l.IsDefault = true
	return l, nil
}

func (s *Service) DeleteLocation(ctx context.Context, professionalID, id uuid.UUID) error {
	if _, err := s.ownedLocation(ctx, professionalID, id); err != nil {
		return err
	}
	return s.locations.Delete(ctx, id)
}

// GrantAccess issues a fresh scheduling grant, deactivating earlier ones.
func (s *Service) GrantAccess(ctx context.Context, grantedBy, professionalID uuid.UUID, expiresAt time.Time, reason *string) (*SchedulingAccess, error) {
	if !expiresAt.After(time.Now()) {
		return nil, apperr.New(apperr.ValidationFailed, "a validade do acesso deve estar no futuro")
	}
	u, err := s.directory.Get(ctx, professionalID)
	if err != nil {
		return nil, err
	}
	if !u.HasRole(auth.RoleProfessional) {
		return nil, apperr.New(apperr.ValidationFailed, "usuário não possui o perfil de profissional")
	}
	g := &SchedulingAccess{
		ID:             uuid.New(),
		ProfessionalID: professionalID,
		IsActive:       true,
		GrantedBy:      &grantedBy,
		GrantedAt:      time.Now(),
		ExpiresAt:      expiresAt,
		Reason:         reason,
	}
	err = s.tx(ctx, func(ctx context.Context) error {
		if err := s.access.Deactivate(ctx, professionalID); err != nil {
			return err
		}
		return s.access.Insert(ctx, g)
	})
	if err != nil {
		return nil, err
	}
	return g, nil
}

func (s *Service) RevokeAccess(ctx context.Context, professionalID uuid.UUID) error {
	return s.access.Deactivate(ctx, professionalID)
}

// GetAccess returns the most recent grant for the professional.
func (s *Service) GetAccess(ctx context.Context, professionalID uuid.UUID) (*SchedulingAccess, error) {
	return s.access.Latest(ctx, professionalID)
}
