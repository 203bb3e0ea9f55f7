package identity

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByCPF(ctx context.Context, cpf string) (*User, error)
	Update(ctx context.Context, u *User) error
	UpdateRoles(ctx context.Context, id uuid.UUID, roles []string) error
	UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error
	UpdatePhotoURL(ctx context.Context, id uuid.UUID, url string) error
	SetSubscription(ctx context.Context, id uuid.UUID, status string, expiresAt *time.Time) error
	GetByAffiliateCode(ctx context.Context, code string) (*User, error)
	SetReferral(ctx context.Context, id, affiliateID, referralID uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, role string, limit, offset int) ([]*User, int, error)

	// CPFTaken checks the identifier against users and dependents; the
	// national id is globally unique across both.
	CPFTaken(ctx context.Context, cpf string) (bool, error)
}
