package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/convenio/convenio/internal/platform/apperr"
	"github.com/convenio/convenio/internal/platform/auth"
)

const bcryptCost = 12

// ReferralLinker binds a pending affiliate referral to a freshly registered
// user. Implemented by the affiliate service; a nil linker disables it.
type ReferralLinker interface {
	LinkUser(ctx context.Context, userID uuid.UUID, visitorID string) error
}

type Service struct {
	users  UserRepository
	linker ReferralLinker
}

func NewService(users UserRepository, linker ReferralLinker) *Service {
	return &Service{users: users, linker: linker}
}

// RegisterInput is the self-service registration payload. VisitorID, when
// present, ties the new account to an open affiliate referral.
type RegisterInput struct {
	CPF       string     `json:"cpf"`
	Password  string     `json:"password"`
	Name      string     `json:"name"`
	Email     *string    `json:"email"`
	Phone     *string    `json:"phone"`
	BirthDate *time.Time `json:"birth_date"`
	Street    *string    `json:"street"`
	Number    *string    `json:"number"`
	District  *string    `json:"district"`
	City      *string    `json:"city"`
	State     *string    `json:"state"`
	ZipCode   *string    `json:"zip_code"`
	VisitorID string     `json:"visitor_id"`
}

// Register creates a self-service client account. The role set is always
// exactly {client} and the subscription starts pending.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	cpf := NormalizeCPF(in.CPF)
	if len(cpf) != 11 {
		return nil, apperr.New(apperr.ValidationFailed, "CPF deve conter 11 dígitos")
	}
	if in.Name == "" {
		return nil, apperr.New(apperr.ValidationFailed, "nome é obrigatório")
	}
	if len(in.Password) < 6 {
		return nil, apperr.New(apperr.ValidationFailed, "senha deve ter ao menos 6 caracteres")
	}

	taken, err := s.users.CPFTaken(ctx, cpf)
	if err != nil {
		return nil, fmt.Errorf("checking cpf: %w", err)
	}
	if taken {
		return nil, apperr.New(apperr.DuplicateIdentifier, "CPF já cadastrado")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	u := &User{
		CPF:                cpf,
		PasswordHash:       string(hash),
		Name:               in.Name,
		Email:              in.Email,
		Phone:              in.Phone,
		Roles:              []string{auth.RoleClient},
		BirthDate:          in.BirthDate,
		Street:             in.Street,
		Number:             in.Number,
		District:           in.District,
		City:               in.City,
		State:              in.State,
		ZipCode:            in.ZipCode,
		SubscriptionStatus: SubscriptionPending,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}

	if s.linker != nil && in.VisitorID != "" {
		// Attribution is best effort: a failed link never undoes the
		// registration.
		_ = s.linker.LinkUser(ctx, u.ID, in.VisitorID)
	}
	return u, nil
}

// AdminCreateInput extends registration with an arbitrary role set and the
// professional fields.
type AdminCreateInput struct {
	RegisterInput
	Roles         []string   `json:"roles"`
	Percentage    int        `json:"percentage"`
	CategoryID    *uuid.UUID `json:"category_id"`
	AffiliateCode *string    `json:"affiliate_code"`
}

// AdminCreate creates a user with any role set. Admin only; the handler
// enforces the role check.
func (s *Service) AdminCreate(ctx context.Context, in AdminCreateInput) (*User, error) {
	cpf := NormalizeCPF(in.CPF)
	if len(cpf) != 11 {
		return nil, apperr.New(apperr.ValidationFailed, "CPF deve conter 11 dígitos")
	}
	if in.Name == "" {
		return nil, apperr.New(apperr.ValidationFailed, "nome é obrigatório")
	}
	if len(in.Password) < 6 {
		return nil, apperr.New(apperr.ValidationFailed, "senha deve ter ao menos 6 caracteres")
	}
	roles := normalizeRoles(in.Roles)
	if len(roles) == 0 {
		return nil, apperr.New(apperr.ValidationFailed, "ao menos um perfil é obrigatório")
	}
	for _, r := range roles {
		if !auth.ValidRole(r) {
			return nil, apperr.New(apperr.ValidationFailed, fmt.Sprintf("perfil inválido: %s", r))
		}
	}
	if in.Percentage < 0 || in.Percentage > 100 {
		return nil, apperr.New(apperr.ValidationFailed, "percentual deve estar entre 0 e 100")
	}

	taken, err := s.users.CPFTaken(ctx, cpf)
	if err != nil {
		return nil, fmt.Errorf("checking cpf: %w", err)
	}
	if taken {
		return nil, apperr.New(apperr.DuplicateIdentifier, "CPF já cadastrado")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	u := &User{
		CPF:                cpf,
		PasswordHash:       string(hash),
		Name:               in.Name,
		Email:              in.Email,
		Phone:              in.Phone,
		Roles:              roles,
		BirthDate:          in.BirthDate,
		Street:             in.Street,
		Number:             in.Number,
		District:           in.District,
		City:               in.City,
		State:              in.State,
		ZipCode:            in.ZipCode,
		SubscriptionStatus: SubscriptionPending,
		Percentage:         in.Percentage,
		CategoryID:         in.CategoryID,
		AffiliateCode:      in.AffiliateCode,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Authenticate verifies CPF and password and returns the user. It never
// mints a token; role selection is a separate step.
func (s *Service) Authenticate(ctx context.Context, cpf, password string) (*User, error) {
	u, err := s.users.GetByCPF(ctx, NormalizeCPF(cpf))
	if err != nil {
		if apperr.KindOf(err) == apperr.NotFound {
			return nil, apperr.New(apperr.Unauthenticated, "CPF ou senha incorretos")
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, apperr.New(apperr.Unauthenticated, "CPF ou senha incorretos")
	}
	return u, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *Service) GetByCPF(ctx context.Context, cpf string) (*User, error) {
	return s.users.GetByCPF(ctx, NormalizeCPF(cpf))
}

func (s *Service) List(ctx context.Context, role string, limit, offset int) ([]*User, int, error) {
	return s.users.List(ctx, role, limit, offset)
}

// UpdateProfileInput carries the mutable profile fields. CPF, roles and
// subscription state are never touched here.
type UpdateProfileInput struct {
	Name          string     `json:"name"`
	Email         *string    `json:"email"`
	Phone         *string    `json:"phone"`
	BirthDate     *time.Time `json:"birth_date"`
	Street        *string    `json:"street"`
	Number        *string    `json:"number"`
	District      *string    `json:"district"`
	City          *string    `json:"city"`
	State         *string    `json:"state"`
	ZipCode       *string    `json:"zip_code"`
	Percentage    *int       `json:"percentage"`
	CategoryID    *uuid.UUID `json:"category_id"`
	AffiliateCode *string    `json:"affiliate_code"`
}

func (s *Service) UpdateProfile(ctx context.Context, id uuid.UUID, in UpdateProfileInput) (*User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Name != "" {
		u.Name = in.Name
	}
	if in.Email != nil {
		u.Email = in.Email
	}
	if in.Phone != nil {
		u.Phone = in.Phone
	}
	if in.BirthDate != nil {
		u.BirthDate = in.BirthDate
	}
	if in.Street != nil {
		u.Street = in.Street
	}
	if in.Number != nil {
		u.Number = in.Number
	}
	if in.District != nil {
		u.District = in.District
	}
	if in.City != nil {
		u.City = in.City
	}
	if in.State != nil {
		u.State = in.State
	}
	if in.ZipCode != nil {
		u.ZipCode = in.ZipCode
	}
	if in.Percentage != nil {
		if *in.Percentage < 0 || *in.Percentage > 100 {
			return nil, apperr.New(apperr.ValidationFailed, "percentual deve estar entre 0 e 100")
		}
		u.Percentage = *in.Percentage
	}
	if in.CategoryID != nil {
		u.CategoryID = in.CategoryID
	}
	if in.AffiliateCode != nil {
		u.AffiliateCode = in.AffiliateCode
	}
	if err := s.users.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// ChangePassword verifies the current password before storing the new hash.
func (s *Service) ChangePassword(ctx context.Context, id uuid.UUID, current, new string) error {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(current)); err != nil {
		return apperr.New(apperr.Unauthenticated, "senha atual incorreta")
	}
	if len(new) < 6 {
		return apperr.New(apperr.ValidationFailed, "senha deve ter ao menos 6 caracteres")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(new), bcryptCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	return s.users.UpdatePassword(ctx, id, string(hash))
}

// AssignRoles replaces the user's role set. Admin only.
func (s *Service) AssignRoles(ctx context.Context, id uuid.UUID, roles []string) error {
	roles = normalizeRoles(roles)
	if len(roles) == 0 {
		return apperr.New(apperr.ValidationFailed, "ao menos um perfil é obrigatório")
	}
	for _, r := range roles {
		if !auth.ValidRole(r) {
			return apperr.New(apperr.ValidationFailed, fmt.Sprintf("perfil inválido: %s", r))
		}
	}
	return s.users.UpdateRoles(ctx, id, roles)
}

// Delete removes a user and, through the schema cascades, everything it
// owns. Admin only and never the caller itself.
func (s *Service) Delete(ctx context.Context, callerID, id uuid.UUID) error {
	if callerID == id {
		return apperr.New(apperr.ValidationFailed, "não é possível excluir o próprio usuário")
	}
	return s.users.Delete(ctx, id)
}

// ActivateClient flips a client subscription to active with the given
// expiry. Besides the payment webhook this is the only path to active.
func (s *Service) ActivateClient(ctx context.Context, id uuid.UUID, expiresAt time.Time) (*User, error) {
	if !expiresAt.After(time.Now()) {
		return nil, apperr.New(apperr.ValidationFailed, "validade da assinatura deve estar no futuro")
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !u.HasRole(auth.RoleClient) {
		return nil, apperr.New(apperr.ValidationFailed, "usuário não possui o perfil de cliente")
	}
	if err := s.users.SetSubscription(ctx, id, SubscriptionActive, &expiresAt); err != nil {
		return nil, err
	}
	u.SubscriptionStatus = SubscriptionActive
	u.SubscriptionExpiresAt = &expiresAt
	return u, nil
}

// SubscriptionActive reports whether the user's subscription gates pass at
// the given instant. Used by the consultation ledger.
func (s *Service) SubscriptionActive(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	return u.SubscriptionActiveAt(at), nil
}
