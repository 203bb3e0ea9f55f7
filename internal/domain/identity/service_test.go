package identity

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/convenio/convenio/internal/platform/apperr"
	"github.com/convenio/convenio/internal/platform/auth"
)

// -- Mock Repository --

type mockUserRepo struct {
	users        map[uuid.UUID]*User
	dependentCPF map[string]bool
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[uuid.UUID]*User), dependentCPF: make(map[string]bool)}
}

func (m *mockUserRepo) Create(_ context.Context, u *User) error {
	for _, existing := range m.users {
		if existing.CPF == u.CPF {
			return apperr.New(apperr.DuplicateIdentifier, "CPF já cadastrado")
		}
	}
	u.ID = uuid.New()
	u.CreatedAt = time.Now()
	u.UpdatedAt = time.Now()
	m.users[u.ID] = u
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id uuid.UUID) (*User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "usuário não encontrado")
	}
	return u, nil
}

func (m *mockUserRepo) GetByCPF(_ context.Context, cpf string) (*User, error) {
	for _, u := range m.users {
		if u.CPF == cpf {
			return u, nil
		}
	}
	return nil, apperr.New(apperr.NotFound, "usuário não encontrado")
}

func (m *mockUserRepo) Update(_ context.Context, u *User) error {
	if _, ok := m.users[u.ID]; !ok {
		return apperr.New(apperr.NotFound, "usuário não encontrado")
	}
	m.users[u.ID] = u
	return nil
}

func (m *mockUserRepo) UpdateRoles(_ context.Context, id uuid.UUID, roles []string) error {
	u, ok := m.users[id]
	if !ok {
		return apperr.New(apperr.NotFound, "usuário não encontrado")
	}
	u.Roles = roles
	return nil
}

func (m *mockUserRepo) UpdatePassword(_ context.Context, id uuid.UUID, hash string) error {
	u, ok := m.users[id]
	if !ok {
		return apperr.New(apperr.NotFound, "usuário não encontrado")
	}
	u.PasswordHash = hash
	return nil
}

func (m *mockUserRepo) UpdatePhotoURL(_ context.Context, id uuid.UUID, url string) error {
	u, ok := m.users[id]
	if !ok {
		return apperr.New(apperr.NotFound, "usuário não encontrado")
	}
	u.PhotoURL = &url
	return nil
}

func (m *mockUserRepo) SetSubscription(_ context.Context, id uuid.UUID, status string, expiresAt *time.Time) error {
	u, ok := m.users[id]
	if !ok {
		return apperr.New(apperr.NotFound, "usuário não encontrado")
	}
	u.SubscriptionStatus = status
	u.SubscriptionExpiresAt = expiresAt
	return nil
}

func (m *mockUserRepo) GetByAffiliateCode(_ context.Context, code string) (*User, error) {
	for _, u := range m.users {
		if u.AffiliateCode != nil && *u.AffiliateCode == code {
			return u, nil
		}
	}
	return nil, apperr.New(apperr.NotFound, "usuário não encontrado")
}

func (m *mockUserRepo) SetReferral(_ context.Context, id, affiliateID, referralID uuid.UUID) error {
	u, ok := m.users[id]
	if !ok {
		return apperr.New(apperr.NotFound, "usuário não encontrado")
	}
	u.AffiliateID = &affiliateID
	u.ReferralID = &referralID
	return nil
}

func (m *mockUserRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.users[id]; !ok {
		return apperr.New(apperr.NotFound, "usuário não encontrado")
	}
	delete(m.users, id)
	return nil
}

func (m *mockUserRepo) List(_ context.Context, role string, limit, offset int) ([]*User, int, error) {
	var result []*User
	for _, u := range m.users {
		if role == "" || u.HasRole(role) {
			result = append(result, u)
		}
	}
	total := len(result)
	if offset >= len(result) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(result) {
		end = len(result)
	}
	return result[offset:end], total, nil
}

func (m *mockUserRepo) CPFTaken(_ context.Context, cpf string) (bool, error) {
	if m.dependentCPF[cpf] {
		return true, nil
	}
	for _, u := range m.users {
		if u.CPF == cpf {
			return true, nil
		}
	}
	return false, nil
}

type mockLinker struct {
	linked map[uuid.UUID]string
}

func (m *mockLinker) LinkUser(_ context.Context, userID uuid.UUID, visitorID string) error {
	if m.linked == nil {
		m.linked = make(map[uuid.UUID]string)
	}
	m.linked[userID] = visitorID
	return nil
}

// -- Tests --

func TestRegister_ClientRoleOnly(t *testing.T) {
	repo := newMockUserRepo()
	svc := NewService(repo, nil)

	u, err := svc.Register(context.Background(), RegisterInput{
		CPF: "123.456.789-01", Password: "secret1", Name: "Maria",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.CPF != "12345678901" {
		t.Errorf("expected normalized cpf, got %s", u.CPF)
	}
	if len(u.Roles) != 1 || u.Roles[0] != auth.RoleClient {
		t.Errorf("expected roles [client], got %v", u.Roles)
	}
	if u.SubscriptionStatus != SubscriptionPending {
		t.Errorf("expected pending subscription, got %s", u.SubscriptionStatus)
	}
	if u.PasswordHash == "secret1" {
		t.Error("password stored in clear")
	}
}

func TestRegister_InvalidCPF(t *testing.T) {
	svc := NewService(newMockUserRepo(), nil)
	_, err := svc.Register(context.Background(), RegisterInput{CPF: "123", Password: "secret1", Name: "Maria"})
	if apperr.KindOf(err) != apperr.ValidationFailed {
		t.Errorf("expected ValidationFailed, got %v", err)
	}
}

func TestRegister_DuplicateCPF(t *testing.T) {
	repo := newMockUserRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterInput{CPF: "12345678901", Password: "secret1", Name: "Maria"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := svc.Register(ctx, RegisterInput{CPF: "123.456.789-01", Password: "secret1", Name: "Outra"})
	if apperr.KindOf(err) != apperr.DuplicateIdentifier {
		t.Errorf("expected DuplicateIdentifier, got %v", err)
	}
}

func TestRegister_CPFCollidesWithDependent(t *testing.T) {
	repo := newMockUserRepo()
	repo.dependentCPF["12345678901"] = true
	svc := NewService(repo, nil)

	_, err := svc.Register(context.Background(), RegisterInput{CPF: "12345678901", Password: "secret1", Name: "Maria"})
	if apperr.KindOf(err) != apperr.DuplicateIdentifier {
		t.Errorf("expected DuplicateIdentifier, got %v", err)
	}
}

func TestRegister_LinksReferral(t *testing.T) {
	repo := newMockUserRepo()
	linker := &mockLinker{}
	svc := NewService(repo, linker)

	u, err := svc.Register(context.Background(), RegisterInput{
		CPF: "12345678901", Password: "secret1", Name: "Maria", VisitorID: "v-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if linker.linked[u.ID] != "v-1" {
		t.Error("expected referral to be linked at registration")
	}
}

func TestAuthenticate(t *testing.T) {
	repo := newMockUserRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterInput{CPF: "12345678901", Password: "secret1", Name: "Maria"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	u, err := svc.Authenticate(ctx, "123.456.789-01", "secret1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.Name != "Maria" {
		t.Errorf("expected Maria, got %s", u.Name)
	}

	if _, err := svc.Authenticate(ctx, "12345678901", "wrong"); apperr.KindOf(err) != apperr.Unauthenticated {
		t.Errorf("expected Unauthenticated for wrong password, got %v", err)
	}
	if _, err := svc.Authenticate(ctx, "00000000000", "secret1"); apperr.KindOf(err) != apperr.Unauthenticated {
		t.Errorf("expected Unauthenticated for unknown cpf, got %v", err)
	}
}

func TestAdminCreate_ValidatesRoles(t *testing.T) {
	svc := NewService(newMockUserRepo(), nil)
	ctx := context.Background()

	_, err := svc.AdminCreate(ctx, AdminCreateInput{
		RegisterInput: RegisterInput{CPF: "12345678901", Password: "secret1", Name: "Dr. X"},
		Roles:         []string{"superuser"},
	})
	if apperr.KindOf(err) != apperr.ValidationFailed {
		t.Errorf("expected ValidationFailed for unknown role, got %v", err)
	}

	u, err := svc.AdminCreate(ctx, AdminCreateInput{
		RegisterInput: RegisterInput{CPF: "12345678901", Password: "secret1", Name: "Dr. X"},
		Roles:         []string{auth.RoleProfessional, auth.RoleProfessional},
		Percentage:    40,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(u.Roles) != 1 {
		t.Errorf("expected deduplicated role set, got %v", u.Roles)
	}
	if u.Percentage != 40 {
		t.Errorf("expected percentage 40, got %d", u.Percentage)
	}
}

func TestChangePassword_RequiresCurrent(t *testing.T) {
	repo := newMockUserRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	u, err := svc.Register(ctx, RegisterInput{CPF: "12345678901", Password: "secret1", Name: "Maria"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := svc.ChangePassword(ctx, u.ID, "wrong", "newsecret"); apperr.KindOf(err) != apperr.Unauthenticated {
		t.Errorf("expected Unauthenticated, got %v", err)
	}
	if err := svc.ChangePassword(ctx, u.ID, "secret1", "newsecret"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Authenticate(ctx, "12345678901", "newsecret"); err != nil {
		t.Errorf("expected new password to authenticate: %v", err)
	}
}

func TestDelete_NeverSelf(t *testing.T) {
	repo := newMockUserRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	u, err := svc.Register(ctx, RegisterInput{CPF: "12345678901", Password: "secret1", Name: "Maria"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := svc.Delete(ctx, u.ID, u.ID); apperr.KindOf(err) != apperr.ValidationFailed {
		t.Errorf("expected ValidationFailed for self delete, got %v", err)
	}
	if err := svc.Delete(ctx, uuid.New(), u.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestActivateClient(t *testing.T) {
	repo := newMockUserRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	u, err := svc.Register(ctx, RegisterInput{CPF: "12345678901", Password: "secret1", Name: "Maria"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := svc.ActivateClient(ctx, u.ID, time.Now().Add(-time.Hour)); apperr.KindOf(err) != apperr.ValidationFailed {
		t.Errorf("expected ValidationFailed for past expiry, got %v", err)
	}

	expiry := time.Now().Add(30 * 24 * time.Hour)
	activated, err := svc.ActivateClient(ctx, u.ID, expiry)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if activated.SubscriptionStatus != SubscriptionActive {
		t.Errorf("expected active, got %s", activated.SubscriptionStatus)
	}
}

func TestSubscriptionActive_ExpiryBoundaryExclusive(t *testing.T) {
	repo := newMockUserRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	u, err := svc.Register(ctx, RegisterInput{CPF: "12345678901", Password: "secret1", Name: "Maria"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expiry := time.Now().Add(time.Hour)
	if _, err := svc.ActivateClient(ctx, u.ID, expiry); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	active, err := svc.SubscriptionActive(ctx, u.ID, expiry.Add(-time.Second))
	if err != nil || !active {
		t.Errorf("expected active just before expiry, got %v %v", active, err)
	}

	// Exactly at expiry counts as expired.
	active, err = svc.SubscriptionActive(ctx, u.ID, expiry)
	if err != nil || active {
		t.Errorf("expected inactive exactly at expiry, got %v %v", active, err)
	}
}

func TestNormalizeCPF(t *testing.T) {
	if got := NormalizeCPF("123.456.789-01"); got != "12345678901" {
		t.Errorf("expected 12345678901, got %s", got)
	}
	if ValidCPF("123") {
		t.Error("expected short cpf to be invalid")
	}
}
