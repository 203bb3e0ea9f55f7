package medrecord

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/convenio/convenio/internal/domain/patients"
	"github.com/convenio/convenio/internal/platform/apperr"
	"github.com/convenio/convenio/internal/platform/renderer"
)

// PatientRegistry confirms that a private patient belongs to the
// professional before clinical data is attached.
type PatientRegistry interface {
	GetPrivatePatient(ctx context.Context, professionalID, id uuid.UUID) (*patients.PrivatePatient, error)
}

// Service owns medical records and rendered documents. Both are scoped to
// the professional who created them; cross-professional access reads as
// not found.
type Service struct {
	records  RecordRepository
	docs     DocumentRepository
	renderer renderer.Client
	registry PatientRegistry
}

func NewService(records RecordRepository, docs DocumentRepository, r renderer.Client, registry PatientRegistry) *Service {
	return &Service{records: records, docs: docs, renderer: r, registry: registry}
}

// RecordInput carries the clinical note fields.
type RecordInput struct {
	PrivatePatientID uuid.UUID   `json:"private_patient_id"`
	ChiefComplaint   *string     `json:"chief_complaint"`
	History          *string     `json:"history"`
	Medications      *string     `json:"medications"`
	Allergies        *string     `json:"allergies"`
	Examination      *string     `json:"examination"`
	Diagnosis        *string     `json:"diagnosis"`
	TreatmentPlan    *string     `json:"treatment_plan"`
	Notes            *string     `json:"notes"`
	VitalSigns       *VitalSigns `json:"vital_signs"`
}

func (s *Service) CreateRecord(ctx context.Context, professionalID uuid.UUID, in RecordInput) (*MedicalRecord, error) {
	if in.PrivatePatientID == uuid.Nil {
		return nil, apperr.New(apperr.ValidationFailed, "informe o paciente")
	}
	if _, err := s.registry.GetPrivatePatient(ctx, professionalID, in.PrivatePatientID); err != nil {
		return nil, err
	}
	now := time.Now()
	rec := &MedicalRecord{
		ID:               uuid.New(),
		ProfessionalID:   professionalID,
		PrivatePatientID: in.PrivatePatientID,
		ChiefComplaint:   in.ChiefComplaint,
		History:          in.History,
		Medications:      in.Medications,
		Allergies:        in.Allergies,
		Examination:      in.Examination,
		Diagnosis:        in.Diagnosis,
		TreatmentPlan:    in.TreatmentPlan,
		Notes:            in.Notes,
		VitalSigns:       in.VitalSigns,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.records.Create(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Service) ownedRecord(ctx context.Context, professionalID, id uuid.UUID) (*MedicalRecord, error) {
	rec, err := s.records.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.ProfessionalID != professionalID {
		return nil, apperr.New(apperr.NotFound, "prontuário não encontrado")
	}
	return rec, nil
}

func (s *Service) GetRecord(ctx context.Context, professionalID, id uuid.UUID) (*MedicalRecord, error) {
	return s.ownedRecord(ctx, professionalID, id)
}

func (s *Service) ListRecords(ctx context.Context, professionalID, patientID uuid.UUID) ([]MedicalRecord, error) {
	if _, err := s.registry.GetPrivatePatient(ctx, professionalID, patientID); err != nil {
		return nil, err
	}
	return s.records.ListByPatient(ctx, professionalID, patientID)
}

func (s *Service) UpdateRecord(ctx context.Context, professionalID, id uuid.UUID, in RecordInput) (*MedicalRecord, error) {
	rec, err := s.ownedRecord(ctx, professionalID, id)
	if err != nil {
		return nil, err
	}
	rec.ChiefComplaint = in.ChiefComplaint
	rec.History = in.History
	rec.Medications = in.Medications
	rec.Allergies = in.Allergies
	rec.Examination = in.Examination
	rec.Diagnosis = in.Diagnosis
	rec.TreatmentPlan = in.TreatmentPlan
	rec.Notes = in.Notes
	rec.VitalSigns = in.VitalSigns
	if err := s.records.Update(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// DeleteRecord removes the clinical note. Documents generated from it keep
// existing with their record link cleared.
func (s *Service) DeleteRecord(ctx context.Context, professionalID, id uuid.UUID) error {
	if _, err := s.ownedRecord(ctx, professionalID, id); err != nil {
		return err
	}
	return s.records.Delete(ctx, id)
}

// DocumentInput carries a document generation request.
type DocumentInput struct {
	PrivatePatientID uuid.UUID      `json:"private_patient_id"`
	RecordID         *uuid.UUID     `json:"record_id"`
	Title            string         `json:"title"`
	Kind             string         `json:"kind"`
	Inputs           map[string]any `json:"inputs"`
}

// GenerateDocument renders the template through the external service and
// persists the returned URL.
func (s *Service) GenerateDocument(ctx context.Context, professionalID uuid.UUID, in DocumentInput) (*MedicalDocument, error) {
	if in.Title == "" {
		return nil, apperr.New(apperr.ValidationFailed, "informe o título do documento")
	}
	if !ValidKind(in.Kind) {
		return nil, apperr.New(apperr.ValidationFailed, "tipo de documento inválido")
	}
	if _, err := s.registry.GetPrivatePatient(ctx, professionalID, in.PrivatePatientID); err != nil {
		return nil, err
	}
	if in.RecordID != nil {
		if _, err := s.ownedRecord(ctx, professionalID, *in.RecordID); err != nil {
			return nil, err
		}
	}

	url, err := s.renderer.Render(ctx, in.Kind, in.Inputs)
	if err != nil {
		return nil, err
	}

	d := &MedicalDocument{
		ID:               uuid.New(),
		ProfessionalID:   professionalID,
		PrivatePatientID: in.PrivatePatientID,
		RecordID:         in.RecordID,
		Title:            in.Title,
		Kind:             in.Kind,
		URL:              url,
		TemplateInputs:   in.Inputs,
		CreatedAt:        time.Now(),
	}
	if err := s.docs.Create(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Service) GetDocument(ctx context.Context, professionalID, id uuid.UUID) (*MedicalDocument, error) {
	d, err := s.docs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.ProfessionalID != professionalID {
		return nil, apperr.New(apperr.NotFound, "documento não encontrado")
	}
	return d, nil
}

func (s *Service) ListDocuments(ctx context.Context, professionalID, patientID uuid.UUID) ([]MedicalDocument, error) {
	if _, err := s.registry.GetPrivatePatient(ctx, professionalID, patientID); err != nil {
		return nil, err
	}
	return s.docs.ListByPatient(ctx, professionalID, patientID)
}

func (s *Service) DeleteDocument(ctx context.Context, professionalID, id uuid.UUID) error {
	if _, err := s.GetDocument(ctx, professionalID, id); err != nil {
		return err
	}
	return s.docs.Delete(ctx, id)
}
