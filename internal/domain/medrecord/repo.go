package medrecord

import (
	"context"

	"github.com/google/uuid"
)

// RecordRepository persists medical records.
type RecordRepository interface {
	Create(ctx context.Context, r *MedicalRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*MedicalRecord, error)
	ListByPatient(ctx context.Context, professionalID, patientID uuid.UUID) ([]MedicalRecord, error)
	Update(ctx context.Context, r *MedicalRecord) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// DocumentRepository persists rendered documents.
type DocumentRepository interface {
	Create(ctx context.Context, d *MedicalDocument) error
	GetByID(ctx context.Context, id uuid.UUID) (*MedicalDocument, error)
	ListByPatient(ctx context.Context, professionalID, patientID uuid.UUID) ([]MedicalDocument, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
