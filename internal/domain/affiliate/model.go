package affiliate

import (
	"time"

	"github.com/google/uuid"
)

// fingerprintWindow is the sliding dedup window for user-agent matches.
const fingerprintWindow = 7 * 24 * time.Hour

// Referral is a visitor-click record. It starts anonymous, is bound to a
// user at registration and flips to converted on the first paid
// subscription.
type Referral struct {
	ID           uuid.UUID      `db:"id" json:"id"`
	AffiliateID  uuid.UUID      `db:"affiliate_id" json:"affiliate_id"`
	VisitorID    string         `db:"visitor_id" json:"visitor_id"`
	ReferralCode string         `db:"referral_code" json:"referral_code"`
	Metadata     map[string]any `db:"metadata" json:"metadata,omitempty"`
	UserID       *uuid.UUID     `db:"user_id" json:"user_id,omitempty"`
	Converted    bool           `db:"converted" json:"converted"`
	ConvertedAt  *time.Time     `db:"converted_at" json:"converted_at,omitempty"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
}

// Anonymous reports whether the referral is still unbound.
func (r *Referral) Anonymous() bool {
	return r.UserID == nil
}
