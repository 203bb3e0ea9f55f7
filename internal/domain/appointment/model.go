package appointment

import (
	"time"

	"github.com/google/uuid"
)

const (
	StatusScheduled = "scheduled"
	StatusConfirmed = "confirmed"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

func ValidStatus(s string) bool {
	switch s {
	case StatusScheduled, StatusConfirmed, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Appointment is a calendar slot on a professional's agenda. The slot key
// is (professional, date, time); cancelled appointments release the slot.
type Appointment struct {
	ID             uuid.UUID `db:"id" json:"id"`
	ProfessionalID uuid.UUID `db:"professional_id" json:"professional_id"`

	ClientID         *uuid.UUID `db:"client_id" json:"client_id,omitempty"`
	DependentID      *uuid.UUID `db:"dependent_id" json:"dependent_id,omitempty"`
	PrivatePatientID *uuid.UUID `db:"private_patient_id" json:"private_patient_id,omitempty"`

	ServiceID  *uuid.UUID `db:"service_id" json:"service_id,omitempty"`
	LocationID *uuid.UUID `db:"location_id" json:"location_id,omitempty"`
	Date       time.Time  `db:"date" json:"date"`
	Time       string     `db:"time" json:"time"`
	Status     string     `db:"status" json:"status"`
	Notes      *string    `db:"notes" json:"notes,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ValidSlotTime checks the HH:MM wall-clock format stored in the time column.
func ValidSlotTime(s string) bool {
	_, err := time.Parse("15:04", s)
	return err == nil
}

// AttendanceLocation is a place where a professional sees patients. At most
// one location per professional is the default.
type AttendanceLocation struct {
	ID             uuid.UUID `db:"id" json:"id"`
	ProfessionalID uuid.UUID `db:"professional_id" json:"professional_id"`
	Name           string    `db:"name" json:"name"`
	Address        *string   `db:"address" json:"address,omitempty"`
	City           *string   `db:"city" json:"city,omitempty"`
	IsDefault      bool      `db:"is_default" json:"is_default"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// SchedulingAccess is an admin-issued grant that lets a professional manage
// the agenda. Granting a new access deactivates earlier ones.
type SchedulingAccess struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	ProfessionalID uuid.UUID  `db:"professional_id" json:"professional_id"`
	IsActive       bool       `db:"is_active" json:"is_active"`
	GrantedBy      *uuid.UUID `db:"granted_by" json:"granted_by,omitempty"`
	GrantedAt      time.Time  `db:"granted_at" json:"granted_at"`
	ExpiresAt      time.Time  `db:"expires_at" json:"expires_at"`
	Reason         *string    `db:"reason" json:"reason,omitempty"`
}

// ActiveAt reports whether the grant authorizes scheduling at the instant.
// A grant expiring exactly at the instant no longer authorizes.
func (a *SchedulingAccess) ActiveAt(at time.Time) bool {
	return a.IsActive && a.ExpiresAt.After(at)
}
