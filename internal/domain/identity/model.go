package identity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Subscription lifecycle for the client role.
const (
	SubscriptionPending = "pending"
	SubscriptionActive  = "active"
	SubscriptionExpired = "expired"
)

// User maps to the users table. One record serves every role: clients carry
// the subscription fields, professionals carry percentage/category/photo,
// vendedores carry the affiliate code.
type User struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	CPF          string     `db:"cpf" json:"cpf"`
	PasswordHash string     `db:"password_hash" json:"-"`
	Name         string     `db:"name" json:"name"`
	Email        *string    `db:"email" json:"email,omitempty"`
	Phone        *string    `db:"phone" json:"phone,omitempty"`
	Roles        []string   `db:"roles" json:"roles"`
	BirthDate    *time.Time `db:"birth_date" json:"birth_date,omitempty"`

	Street   *string `db:"street" json:"street,omitempty"`
	Number   *string `db:"number" json:"number,omitempty"`
	District *string `db:"district" json:"district,omitempty"`
	City     *string `db:"city" json:"city,omitempty"`
	State    *string `db:"state" json:"state,omitempty"`
	ZipCode  *string `db:"zip_code" json:"zip_code,omitempty"`

	SubscriptionStatus    string     `db:"subscription_status" json:"subscription_status"`
	SubscriptionExpiresAt *time.Time `db:"subscription_expires_at" json:"subscription_expires_at,omitempty"`

	Percentage int        `db:"percentage" json:"percentage"`
	CategoryID *uuid.UUID `db:"category_id" json:"category_id,omitempty"`
	PhotoURL   *string    `db:"photo_url" json:"photo_url,omitempty"`

	AffiliateCode *string    `db:"affiliate_code" json:"affiliate_code,omitempty"`
	AffiliateID   *uuid.UUID `db:"affiliate_id" json:"affiliate_id,omitempty"`
	ReferralID    *uuid.UUID `db:"referral_id" json:"referral_id,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// HasRole reports whether the role is in the user's role set.
func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// SubscriptionActiveAt applies the expiry boundary: active status plus an
// expiry strictly in the future. A consultation created exactly at expiry
// is rejected.
func (u *User) SubscriptionActiveAt(at time.Time) bool {
	if u.SubscriptionStatus != SubscriptionActive {
		return false
	}
	if u.SubscriptionExpiresAt == nil {
		return true
	}
	return u.SubscriptionExpiresAt.After(at)
}

// NormalizeCPF strips every non-digit from the national identifier. The
// result is only valid when exactly 11 digits remain.
func NormalizeCPF(cpf string) string {
	var b strings.Builder
	for _, r := range cpf {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidCPF reports whether the normalized identifier has exactly 11 digits.
func ValidCPF(cpf string) bool {
	return len(NormalizeCPF(cpf)) == 11
}

// normalizeRoles deduplicates the role set preserving first occurrence.
func normalizeRoles(roles []string) []string {
	seen := make(map[string]bool, len(roles))
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		if r == "" || seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, r)
	}
	return out
}
