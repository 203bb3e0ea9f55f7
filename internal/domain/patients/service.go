package patients

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/convenio/convenio/internal/platform/apperr"
	"github.com/convenio/convenio/internal/domain/identity"
)

type Service struct {
	dependents DependentRepository
	private    PrivatePatientRepository
}

func NewService(dependents DependentRepository, private PrivatePatientRepository) *Service {
	return &Service{dependents: dependents, private: private}
}

// -- Dependents --

type DependentInput struct {
	Name      string     `json:"name"`
	CPF       string     `json:"cpf"`
	BirthDate *time.Time `json:"birth_date"`
}

// CreateDependent registers a dependent under the client. Quota is ten per
// client and the CPF must be free across users and dependents.
func (s *Service) CreateDependent(ctx context.Context, clientID uuid.UUID, in DependentInput) (*Dependent, error) {
	cpf := identity.NormalizeCPF(in.CPF)
	if len(cpf) != 11 {
		return nil, apperr.New(apperr.ValidationFailed, "CPF deve conter 11 dígitos")
	}
	if in.Name == "" {
		return nil, apperr.New(apperr.ValidationFailed, "nome é obrigatório")
	}

	count, err := s.dependents.CountByClient(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("counting dependents: %w", err)
	}
	if count >= MaxDependents {
		return nil, apperr.New(apperr.QuotaExceeded, "limite de 10 dependentes atingido")
	}

	taken, err := s.dependents.CPFTaken(ctx, cpf)
	if err != nil {
		return nil, fmt.Errorf("checking cpf: %w", err)
	}
	if taken {
		return nil, apperr.New(apperr.DuplicateIdentifier, "CPF já cadastrado")
	}

	d := &Dependent{
		ClientID:           clientID,
		Name:               in.Name,
		CPF:                cpf,
		BirthDate:          in.BirthDate,
		SubscriptionStatus: identity.SubscriptionPending,
	}
	if err := s.dependents.Create(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Service) GetDependent(ctx context.Context, id uuid.UUID) (*Dependent, error) {
	return s.dependents.GetByID(ctx, id)
}

func (s *Service) LookupDependent(ctx context.Context, cpf string) (*Dependent, error) {
	return s.dependents.GetByCPF(ctx, identity.NormalizeCPF(cpf))
}

func (s *Service) ListDependents(ctx context.Context, clientID uuid.UUID) ([]*Dependent, error) {
	return s.dependents.ListByClient(ctx, clientID)
}

// CountDependents is used by the subscription price formula.
func (s *Service) CountDependents(ctx context.Context, clientID uuid.UUID) (int, error) {
	return s.dependents.CountByClient(ctx, clientID)
}

// UpdateDependent changes the mutable fields. Ownership is checked against
// callerID unless admin is set.
func (s *Service) UpdateDependent(ctx context.Context, callerID uuid.UUID, admin bool, id uuid.UUID, in DependentInput) (*Dependent, error) {
	d, err := s.dependents.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !admin && d.ClientID != callerID {
		return nil, apperr.New(apperr.Forbidden, "dependente pertence a outro cliente")
	}
	if in.Name != "" {
		d.Name = in.Name
	}
	if in.BirthDate != nil {
		d.BirthDate = in.BirthDate
	}
	if err := s.dependents.Update(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// DeleteDependent refuses when consultations reference the dependent.
func (s *Service) DeleteDependent(ctx context.Context, callerID uuid.UUID, admin bool, id uuid.UUID) error {
	d, err := s.dependents.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !admin && d.ClientID != callerID {
		return apperr.New(apperr.Forbidden, "dependente pertence a outro cliente")
	}
	used, err := s.dependents.InUse(ctx, id)
	if err != nil {
		return fmt.Errorf("checking consultations: %w", err)
	}
	if used {
		return apperr.New(apperr.InUse, "dependente possui consultas registradas")
	}
	return s.dependents.Delete(ctx, id)
}

// ActivateDependent is called by the payment webhook on settlement.
func (s *Service) ActivateDependent(ctx context.Context, id uuid.UUID, expiresAt time.Time, gatewayPaymentID string) error {
	var gw *string
	if gatewayPaymentID != "" {
		gw = &gatewayPaymentID
	}
	return s.dependents.SetSubscription(ctx, id, identity.SubscriptionActive, &expiresAt, gw)
}

// DependentSubscriptionActive is the consultation ledger's gate.
func (s *Service) DependentSubscriptionActive(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	d, err := s.dependents.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	return d.SubscriptionActiveAt(at), nil
}

// -- Private patients --

type PrivatePatientInput struct {
	Name      string     `json:"name"`
	CPF       *string    `json:"cpf"`
	Phone     *string    `json:"phone"`
	Email     *string    `json:"email"`
	BirthDate *time.Time `json:"birth_date"`
}

func (s *Service) CreatePrivatePatient(ctx context.Context, professionalID uuid.UUID, in PrivatePatientInput) (*PrivatePatient, error) {
	if in.Name == "" {
		return nil, apperr.New(apperr.ValidationFailed, "nome é obrigatório")
	}
	var cpf *string
	if in.CPF != nil && *in.CPF != "" {
		normalized := identity.NormalizeCPF(*in.CPF)
		if len(normalized) != 11 {
			return nil, apperr.New(apperr.ValidationFailed, "CPF deve conter 11 dígitos")
		}
		cpf = &normalized
	}

	p := &PrivatePatient{
		ProfessionalID: professionalID,
		Name:           in.Name,
		CPF:            cpf,
		Phone:          in.Phone,
		Email:          in.Email,
		BirthDate:      in.BirthDate,
	}
	if err := s.private.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// GetPrivatePatient hides other professionals' patients behind NotFound to
// avoid existence leaks.
func (s *Service) GetPrivatePatient(ctx context.Context, professionalID, id uuid.UUID) (*PrivatePatient, error) {
	p, err := s.private.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.ProfessionalID != professionalID {
		return nil, apperr.New(apperr.NotFound, "paciente não encontrado")
	}
	return p, nil
}

func (s *Service) ListPrivatePatients(ctx context.Context, professionalID uuid.UUID, limit, offset int) ([]*PrivatePatient, int, error) {
	return s.private.ListByProfessional(ctx, professionalID, limit, offset)
}

func (s *Service) UpdatePrivatePatient(ctx context.Context, professionalID, id uuid.UUID, in PrivatePatientInput) (*PrivatePatient, error) {
	p, err := s.GetPrivatePatient(ctx, professionalID, id)
	if err != nil {
		return nil, err
	}
	if in.Name != "" {
		p.Name = in.Name
	}
	if in.CPF != nil {
		if *in.CPF == "" {
			p.CPF = nil
		} else {
			normalized := identity.NormalizeCPF(*in.CPF)
			if len(normalized) != 11 {
				return nil, apperr.New(apperr.ValidationFailed, "CPF deve conter 11 dígitos")
			}
			p.CPF = &normalized
		}
	}
	if in.Phone != nil {
		p.Phone = in.Phone
	}
	if in.Email != nil {
		p.Email = in.Email
	}
	if in.BirthDate != nil {
		p.BirthDate = in.BirthDate
	}
	if err := s.private.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) DeletePrivatePatient(ctx context.Context, professionalID, id uuid.UUID) error {
	if _, err := s.GetPrivatePatient(ctx, professionalID, id); err != nil {
		return err
	}
	used, err := s.private.InUse(ctx, id)
	if err != nil {
		return fmt.Errorf("checking consultations: %w", err)
	}
	if used {
		return apperr.New(apperr.InUse, "paciente possui consultas registradas")
	}
	return s.private.Delete(ctx, id)
}
