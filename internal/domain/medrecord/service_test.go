package medrecord

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/convenio/convenio/internal/domain/patients"
	"github.com/convenio/convenio/internal/platform/apperr"
)

type mockRecordRepo struct {
	items map[uuid.UUID]*MedicalRecord
}

func (m *mockRecordRepo) Create(_ context.Context, r *MedicalRecord) error {
	cp := *r
	m.items[r.ID] = &cp
	return nil
}

func (m *mockRecordRepo) GetByID(_ context.Context, id uuid.UUID) (*MedicalRecord, error) {
	r, ok := m.items[id]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "prontuário não encontrado")
	}
	cp := *r
	return &cp, nil
}

func (m *mockRecordRepo) ListByPatient(_ context.Context, professionalID, patientID uuid.UUID) ([]MedicalRecord, error) {
	var out []MedicalRecord
	for _, r := range m.items {
		if r.ProfessionalID == professionalID && r.PrivatePatientID == patientID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *mockRecordRepo) Update(_ context.Context, r *MedicalRecord) error {
	if _, ok := m.items[r.ID]; !ok {
		return apperr.New(apperr.NotFound, "prontuário não encontrado")
	}
	cp := *r
	m.items[r.ID] = &cp
	return nil
}

func (m *mockRecordRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.items[id]; !ok {
		return apperr.New(apperr.NotFound, "prontuário não encontrado")
	}
	delete(m.items, id)
	return nil
}

type mockDocumentRepo struct {
	items map[uuid.UUID]*MedicalDocument
}

func (m *mockDocumentRepo) Create(_ context.Context, d *MedicalDocument) error {
	cp := *d
	m.items[d.ID] = &cp
	return nil
}

func (m *mockDocumentRepo) GetByID(_ context.Context, id uuid.UUID) (*MedicalDocument, error) {
	d, ok := m.items[id]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "documento não encontrado")
	}
	cp := *d
	return &cp, nil
}

func (m *mockDocumentRepo) ListByPatient(_ context.Context, professionalID, patientID uuid.UUID) ([]MedicalDocument, error) {
	var out []MedicalDocument
	for _, d := range m.items {
		if d.ProfessionalID == professionalID && d.PrivatePatientID == patientID {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (m *mockDocumentRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.items, id)
	return nil
}

type mockRegistry struct {
	patients map[uuid.UUID]*patients.PrivatePatient
}

func (m *mockRegistry) GetPrivatePatient(_ context.Context, professionalID, id uuid.UUID) (*patients.PrivatePatient, error) {
	p, ok := m.patients[id]
	if !ok || p.ProfessionalID != professionalID {
		return nil, apperr.New(apperr.NotFound, "paciente não encontrado")
	}
	return p, nil
}

type mockRenderer struct {
	url   string
	err   error
	calls int
}

func (m *mockRenderer) Render(_ context.Context, _ string, _ map[string]any) (string, error) {
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	return m.url, nil
}

type fixture struct {
	svc            *Service
	records        *mockRecordRepo
	docs           *mockDocumentRepo
	renderer       *mockRenderer
	professionalID uuid.UUID
	patientID      uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		records:        &mockRecordRepo{items: map[uuid.UUID]*MedicalRecord{}},
		docs:           &mockDocumentRepo{items: map[uuid.UUID]*MedicalDocument{}},
		renderer:       &mockRenderer{url: "https://docs.example.com/abc.pdf"},
		professionalID: uuid.New(),
		patientID:      uuid.New(),
	}
	registry := &mockRegistry{patients: map[uuid.UUID]*patients.PrivatePatient{
		f.patientID: {ID: f.patientID, ProfessionalID: f.professionalID},
	}}
	f.svc = NewService(f.records, f.docs, f.renderer, registry)
	return f
}

func strptr(s string) *string { return &s }

func TestCreateRecord_RequiresOwnedPatient(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateRecord(context.Background(), uuid.New(), RecordInput{PrivatePatientID: f.patientID})
	if apperr.KindOf(err) != apperr.NotFound {
		t.Fatalf("another professional's patient: want NotFound, got %v", err)
	}

	hr := 72
	rec, err := f.svc.CreateRecord(context.Background(), f.professionalID, RecordInput{
		PrivatePatientID: f.patientID,
		Diagnosis:        strptr("rinite alérgica"),
		VitalSigns:       &VitalSigns{HeartRate: &hr},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if rec.VitalSigns == nil || rec.VitalSigns.HeartRate == nil || *rec.VitalSigns.HeartRate != 72 {
		t.Fatalf("vital signs not stored: %+v", rec.VitalSigns)
	}
}

func TestGetRecord_CrossProfessionalReadsNotFound(t *testing.T) {
	f := newFixture(t)
	rec, err := f.svc.CreateRecord(context.Background(), f.professionalID, RecordInput{PrivatePatientID: f.patientID})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err = f.svc.GetRecord(context.Background(), uuid.New(), rec.ID)
	if apperr.KindOf(err) != apperr.NotFound {
		t.Fatalf("want NotFound, got %v", err)
	}
}

func TestGenerateDocument_PersistsRenderedURL(t *testing.T) {
	f := newFixture(t)
	d, err := f.svc.GenerateDocument(context.Background(), f.professionalID, DocumentInput{
		PrivatePatientID: f.patientID,
		Title:            "Atestado Médico",
		Kind:             KindCertificate,
		Inputs:           map[string]any{"days": 3},
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if d.URL != f.renderer.url {
		t.Fatalf("url = %q, want %q", d.URL, f.renderer.url)
	}
	if f.renderer.calls != 1 {
		t.Fatalf("renderer calls = %d, want 1", f.renderer.calls)
	}
	if _, ok := f.docs.items[d.ID]; !ok {
		t.Fatalf("document not persisted")
	}
}

func TestGenerateDocument_RenderFailureLeavesNoRow(t *testing.T) {
	f := newFixture(t)
	f.renderer.err = apperr.New(apperr.ExternalServiceFailed, "falha ao gerar o documento")

	_, err := f.svc.GenerateDocument(context.Background(), f.professionalID, DocumentInput{
		PrivatePatientID: f.patientID,
		Title:            "Receita",
		Kind:             KindPrescription,
	})
	if apperr.KindOf(err) != apperr.ExternalServiceFailed {
		t.Fatalf("want ExternalServiceFailed, got %v", err)
	}
	if len(f.docs.items) != 0 {
		t.Fatalf("failed render must not persist a document")
	}
}

func TestGenerateDocument_InvalidKind(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.GenerateDocument(context.Background(), f.professionalID, DocumentInput{
		PrivatePatientID: f.patientID,
		Title:            "Documento",
		Kind:             "invoice",
	})
	if apperr.KindOf(err) != apperr.ValidationFailed {
		t.Fatalf("want ValidationFailed, got %v", err)
	}
	if f.renderer.calls != 0 {
		t.Fatalf("renderer must not be called for an invalid kind")
	}
}

func TestDeleteRecord_DocumentSurvives(t *testing.T) {
	f := newFixture(t)
	rec, err := f.svc.CreateRecord(context.Background(), f.professionalID, RecordInput{PrivatePatientID: f.patientID})
	if err != nil {
		t.Fatalf("create record: %v", err)
	}
	d, err := f.svc.GenerateDocument(context.Background(), f.professionalID, DocumentInput{
		PrivatePatientID: f.patientID,
		RecordID:         &rec.ID,
		Title:            "Laudo",
		Kind:             KindReport,
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if err := f.svc.DeleteRecord(context.Background(), f.professionalID, rec.ID); err != nil {
		t.Fatalf("delete record: %v", err)
	}
	if _, err := f.svc.GetDocument(context.Background(), f.professionalID, d.ID); err != nil {
		t.Fatalf("document must survive record deletion: %v", err)
	}
}
