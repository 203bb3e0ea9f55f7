package affiliate

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/convenio/convenio/internal/domain/identity"
	"github.com/convenio/convenio/internal/platform/apperr"
	"github.com/convenio/convenio/internal/platform/auth"
)

// UserDirectory is the slice of the identity store the attribution engine
// needs: resolving an affiliate code and stamping the referral on a user.
type UserDirectory interface {
	GetByAffiliateCode(ctx context.Context, code string) (*identity.User, error)
	SetReferral(ctx context.Context, id, affiliateID, referralID uuid.UUID) error
}

// Service implements the attribution lifecycle:
// anonymous click → bound at registration → converted on first payment.
type Service struct {
	repo  Repository
	users UserDirectory
}

func NewService(repo Repository, users UserDirectory) *Service {
	return &Service{repo: repo, users: users}
}

// TrackInput is the public click payload.
type TrackInput struct {
	ReferralCode string         `json:"referral_code"`
	VisitorID    string         `json:"visitor_id"`
	UserAgent    string         `json:"user_agent"`
	Metadata     map[string]any `json:"metadata"`
}

// Track records a visitor click. It is idempotent per open
// (visitor, affiliate) pair and deduplicates same-user-agent clicks from
// the same affiliate within seven days, keeping the earliest.
func (s *Service) Track(ctx context.Context, in TrackInput) (*Referral, error) {
	if in.ReferralCode == "" || in.VisitorID == "" {
		return nil, apperr.New(apperr.ValidationFailed, "informe o código de indicação e o identificador do visitante")
	}
	aff, err := s.users.GetByAffiliateCode(ctx, in.ReferralCode)
	if err != nil {
		if apperr.Is(err, apperr.NotFound) {
			return nil, apperr.New(apperr.NotFound, "código de indicação inválido")
		}
		return nil, err
	}
	if !aff.HasRole(auth.RoleVendedor) {
		return nil, apperr.New(apperr.NotFound, "código de indicação inválido")
	}

	if open, err := s.repo.OpenByPair(ctx, in.VisitorID, aff.ID); err == nil {
		return open, nil
	} else if !apperr.Is(err, apperr.NotFound) {
		return nil, err
	}

	if in.UserAgent != "" {
		since := time.Now().Add(-fingerprintWindow)
		if dup, err := s.repo.EarliestByUserAgent(ctx, aff.ID, in.UserAgent, since); err == nil {
			return dup, nil
		} else if !apperr.Is(err, apperr.NotFound) {
			return nil, err
		}
	}

	meta := in.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	if in.UserAgent != "" {
		meta["user_agent"] = in.UserAgent
	}
	ref := &Referral{
		ID:           uuid.New(),
		AffiliateID:  aff.ID,
		VisitorID:    in.VisitorID,
		ReferralCode: in.ReferralCode,
		Metadata:     meta,
		CreatedAt:    time.Now(),
	}
	if err := s.repo.Insert(ctx, ref); err != nil {
		return nil, err
	}
	return ref, nil
}

// LinkUser binds the most recent anonymous referral of the visitor to the
// user and stamps the affiliate on the user record. A no-op when the
// visitor has no anonymous referral. Satisfies identity.ReferralLinker.
func (s *Service) LinkUser(ctx context.Context, userID uuid.UUID, visitorID string) error {
	if visitorID == "" {
		return nil
	}
	ref, err := s.repo.LatestAnonymousByVisitor(ctx, visitorID)
	if err != nil {
		if apperr.Is(err, apperr.NotFound) {
			return nil
		}
		return err
	}
	if err := s.repo.BindUser(ctx, ref.ID, userID); err != nil {
		return err
	}
	return s.users.SetReferral(ctx, userID, ref.AffiliateID, ref.ID)
}

// Convert flips the user's bound referral to converted. Idempotent: users
// without a referral and already-converted referrals are no-ops.
func (s *Service) Convert(ctx context.Context, userID uuid.UUID) error {
	ref, err := s.repo.ByUser(ctx, userID)
	if err != nil {
		if apperr.Is(err, apperr.NotFound) {
			return nil
		}
		return err
	}
	if ref.Converted {
		return nil
	}
	err = s.repo.MarkConverted(ctx, ref.ID, time.Now())
	if err != nil && apperr.Is(err, apperr.NotFound) {
		return nil
	}
	return err
}

// MyReferrals lists the referrals attributed to the affiliate.
func (s *Service) MyReferrals(ctx context.Context, affiliateID uuid.UUID) ([]Referral, error) {
	return s.repo.ListByAffiliate(ctx, affiliateID)
}

// All lists every referral, paginated. Admin only.
func (s *Service) All(ctx context.Context, limit, offset int) ([]Referral, int, error) {
	return s.repo.List(ctx, limit, offset)
}

// Check returns the latest referral recorded for the visitor, if any.
func (s *Service) Check(ctx context.Context, visitorID string) (*Referral, error) {
	if visitorID == "" {
		return nil, apperr.New(apperr.ValidationFailed, "informe o identificador do visitante")
	}
	return s.repo.LatestByVisitor(ctx, visitorID)
}
