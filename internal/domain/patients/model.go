package patients

import (
	"time"

	"github.com/google/uuid"
)

// MaxDependents caps how many dependents one client may register.
const MaxDependents = 10

// Dependent is a family member of a subscribing client, billed
// incrementally. It carries its own subscription trio.
type Dependent struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	ClientID  uuid.UUID  `db:"client_id" json:"client_id"`
	Name      string     `db:"name" json:"name"`
	CPF       string     `db:"cpf" json:"cpf"`
	BirthDate *time.Time `db:"birth_date" json:"birth_date,omitempty"`

	SubscriptionStatus    string     `db:"subscription_status" json:"subscription_status"`
	SubscriptionExpiresAt *time.Time `db:"subscription_expires_at" json:"subscription_expires_at,omitempty"`
	GatewayPaymentID      *string    `db:"gateway_payment_id" json:"gateway_payment_id,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// SubscriptionActiveAt mirrors the client boundary: active status plus an
// expiry strictly in the future.
func (d *Dependent) SubscriptionActiveAt(at time.Time) bool {
	if d.SubscriptionStatus != "active" {
		return false
	}
	if d.SubscriptionExpiresAt == nil {
		return true
	}
	return d.SubscriptionExpiresAt.After(at)
}

// PrivatePatient is treated by one professional outside the convênio; no
// subscription state, CPF optional and unique only within the professional.
type PrivatePatient struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	ProfessionalID uuid.UUID  `db:"professional_id" json:"professional_id"`
	Name           string     `db:"name" json:"name"`
	CPF            *string    `db:"cpf" json:"cpf,omitempty"`
	Phone          *string    `db:"phone" json:"phone,omitempty"`
	Email          *string    `db:"email" json:"email,omitempty"`
	BirthDate      *time.Time `db:"birth_date" json:"birth_date,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}
