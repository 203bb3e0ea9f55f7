package medrecord

import (
	"time"

	"github.com/google/uuid"
)

// VitalSigns is the structured measurement block stored as JSONB. All
// fields are optional; absent measurements are omitted from the payload.
type VitalSigns struct {
	SystolicBP     *int     `json:"systolic_bp,omitempty"`
	DiastolicBP    *int     `json:"diastolic_bp,omitempty"`
	HeartRate      *int     `json:"heart_rate,omitempty"`
	RespiratoryRate *int    `json:"respiratory_rate,omitempty"`
	Temperature    *float64 `json:"temperature,omitempty"`
	OxygenSaturation *int   `json:"oxygen_saturation,omitempty"`
	WeightKg       *float64 `json:"weight_kg,omitempty"`
	HeightCm       *float64 `json:"height_cm,omitempty"`
}

// MedicalRecord is a professional's clinical note about a private patient.
// Records belong to the professional who wrote them.
type MedicalRecord struct {
	ID               uuid.UUID   `db:"id" json:"id"`
	ProfessionalID   uuid.UUID   `db:"professional_id" json:"professional_id"`
	PrivatePatientID uuid.UUID   `db:"private_patient_id" json:"private_patient_id"`
	ChiefComplaint   *string     `db:"chief_complaint" json:"chief_complaint,omitempty"`
	History          *string     `db:"history" json:"history,omitempty"`
	Medications      *string     `db:"medications" json:"medications,omitempty"`
	Allergies        *string     `db:"allergies" json:"allergies,omitempty"`
	Examination      *string     `db:"examination" json:"examination,omitempty"`
	Diagnosis        *string     `db:"diagnosis" json:"diagnosis,omitempty"`
	TreatmentPlan    *string     `db:"treatment_plan" json:"treatment_plan,omitempty"`
	Notes            *string     `db:"notes" json:"notes,omitempty"`
	VitalSigns       *VitalSigns `db:"vital_signs" json:"vital_signs,omitempty"`
	CreatedAt        time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time   `db:"updated_at" json:"updated_at"`
}

// Document kinds accepted by the renderer.
const (
	KindCertificate  = "certificate"
	KindPrescription = "prescription"
	KindReport       = "report"
	KindReferral     = "referral"
)

func ValidKind(k string) bool {
	switch k {
	case KindCertificate, KindPrescription, KindReport, KindReferral:
		return true
	}
	return false
}

// MedicalDocument is a rendered PDF linked to a patient and optionally to
// the record it was generated from. The record link is severed when the
// record is deleted; the document survives.
type MedicalDocument struct {
	ID               uuid.UUID      `db:"id" json:"id"`
	ProfessionalID   uuid.UUID      `db:"professional_id" json:"professional_id"`
	PrivatePatientID uuid.UUID      `db:"private_patient_id" json:"private_patient_id"`
	RecordID         *uuid.UUID     `db:"record_id" json:"record_id,omitempty"`
	Title            string         `db:"title" json:"title"`
	Kind             string         `db:"kind" json:"kind"`
	URL              string         `db:"url" json:"url"`
	TemplateInputs   map[string]any `db:"template_inputs" json:"template_inputs,omitempty"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
}
