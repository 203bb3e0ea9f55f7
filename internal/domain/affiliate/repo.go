package affiliate

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository persists affiliate referrals.
type Repository interface {
	Insert(ctx context.Context, r *Referral) error
	// OpenByPair returns the unbound referral for the visitor/affiliate
	// pair, if one exists. At most one such row exists at a time.
	OpenByPair(ctx context.Context, visitorID string, affiliateID uuid.UUID) (*Referral, error)
	// EarliestByUserAgent returns the oldest referral of the affiliate
	// whose metadata user_agent matches, created at or after since.
	EarliestByUserAgent(ctx context.Context, affiliateID uuid.UUID, userAgent string, since time.Time) (*Referral, error)
	// LatestAnonymousByVisitor returns the most recent unbound referral
	// for the visitor, across affiliates.
	LatestAnonymousByVisitor(ctx context.Context, visitorID string) (*Referral, error)
	BindUser(ctx context.Context, id, userID uuid.UUID) error
	ByUser(ctx context.Context, userID uuid.UUID) (*Referral, error)
	MarkConverted(ctx context.Context, id uuid.UUID, at time.Time) error
	ListByAffiliate(ctx context.Context, affiliateID uuid.UUID) ([]Referral, error)
	List(ctx context.Context, limit, offset int) ([]Referral, int, error)
	LatestByVisitor(ctx context.Context, visitorID string) (*Referral, error)
}
