package consultation

import (
	"time"

	"github.com/google/uuid"

	"github.com/convenio/convenio/pkg/money"
)

// Consultation status lifecycle. scheduled → confirmed → completed, any
// state → cancelled, completed and cancelled are terminal.
const (
	StatusScheduled = "scheduled"
	StatusConfirmed = "confirmed"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// ValidStatus reports whether the name is a known consultation status.
func ValidStatus(s string) bool {
	switch s {
	case StatusScheduled, StatusConfirmed, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// CanTransition encodes the state machine.
func CanTransition(from, to string) bool {
	if from == StatusCompleted || from == StatusCancelled {
		return false
	}
	if to == StatusCancelled {
		return true
	}
	switch from {
	case StatusScheduled:
		return to == StatusConfirmed || to == StatusCompleted
	case StatusConfirmed:
		return to == StatusCompleted
	}
	return false
}

// PatientRef points at exactly one of the three patient kinds.
type PatientRef struct {
	ClientID         *uuid.UUID `json:"client_id,omitempty"`
	DependentID      *uuid.UUID `json:"dependent_id,omitempty"`
	PrivatePatientID *uuid.UUID `json:"private_patient_id,omitempty"`
}

// Valid enforces the XOR invariant.
func (p PatientRef) Valid() bool {
	n := 0
	if p.ClientID != nil {
		n++
	}
	if p.DependentID != nil {
		n++
	}
	if p.PrivatePatientID != nil {
		n++
	}
	return n == 1
}

// Convenio reports whether the reference is covered by a subscription
// (client or dependent) as opposed to private pay.
func (p PatientRef) Convenio() bool {
	return p.ClientID != nil || p.DependentID != nil
}

// Consultation is the ledger entry for one encounter. Professional and
// patient linkage are immutable after creation.
type Consultation struct {
	ID             uuid.UUID `db:"id" json:"id"`
	ProfessionalID uuid.UUID `db:"professional_id" json:"professional_id"`

	ClientID         *uuid.UUID `db:"client_id" json:"client_id,omitempty"`
	DependentID      *uuid.UUID `db:"dependent_id" json:"dependent_id,omitempty"`
	PrivatePatientID *uuid.UUID `db:"private_patient_id" json:"private_patient_id,omitempty"`

	ServiceID  uuid.UUID   `db:"service_id" json:"service_id"`
	LocationID *uuid.UUID  `db:"location_id" json:"location_id,omitempty"`
	Value      money.Cents `db:"value" json:"value"`
	ScheduledAt time.Time  `db:"scheduled_at" json:"scheduled_at"`
	Status     string      `db:"status" json:"status"`
	Notes      *string     `db:"notes" json:"notes,omitempty"`

	CancelledAt  *time.Time `db:"cancelled_at" json:"cancelled_at,omitempty"`
	CancelledBy  *uuid.UUID `db:"cancelled_by" json:"cancelled_by,omitempty"`
	CancelReason *string    `db:"cancel_reason" json:"cancel_reason,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Patient returns the reference variant stored on the row.
func (c *Consultation) Patient() PatientRef {
	return PatientRef{ClientID: c.ClientID, DependentID: c.DependentID, PrivatePatientID: c.PrivatePatientID}
}

// Split applies the professional's percentage to the consultation value.
func (c *Consultation) Split(percentage int) (professional, clinic money.Cents) {
	return c.Value.Split(percentage)
}

// Recurrence frequencies.
const (
	FreqDaily   = "daily"
	FreqWeekly  = "weekly"
	FreqMonthly = "monthly"
)

// Recurrence describes a series of consultations. Either Occurrences or
// EndDate bounds the series, whichever comes first.
type Recurrence struct {
	Frequency   string     `json:"frequency"`
	Interval    int        `json:"interval"`
	Occurrences int        `json:"occurrences"`
	EndDate     *time.Time `json:"end_date,omitempty"`
}

// Step advances a scheduled time by one recurrence interval.
func (r Recurrence) Step(t time.Time) time.Time {
	n := r.Interval
	if n < 1 {
		n = 1
	}
	switch r.Frequency {
	case FreqDaily:
		return t.AddDate(0, 0, n)
	case FreqWeekly:
		return t.AddDate(0, 0, 7*n)
	case FreqMonthly:
		return t.AddDate(0, n, 0)
	}
	return t
}
