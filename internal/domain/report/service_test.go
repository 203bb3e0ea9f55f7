package report

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/convenio/convenio/internal/platform/apperr"
	"github.com/convenio/convenio/internal/platform/auth"
	"github.com/convenio/convenio/pkg/money"
)

type mockRepo struct {
	byProfessional []ProfessionalBreakdown
	byService      []ServiceBreakdown
	items          []RevenueItem

	convenioCount   int
	convenioRevenue money.Cents
	privateCount    int
	privateRevenue  money.Cents
	percentage      int

	cancellations     []Cancellation
	cancellationScope *uuid.UUID
	scopeSet          bool
}

func (m *mockRepo) ProfessionalAggregates(context.Context, Range) ([]ProfessionalBreakdown, error) {
	return m.byProfessional, nil
}

func (m *mockRepo) ServiceAggregates(context.Context, Range) ([]ServiceBreakdown, error) {
	return m.byService, nil
}

func (m *mockRepo) RevenueItems(context.Context, uuid.UUID, Range) ([]RevenueItem, error) {
	return m.items, nil
}

func (m *mockRepo) ProfessionalTotals(context.Context, uuid.UUID, Range) (int, money.Cents, int, money.Cents, int, error) {
	return m.convenioCount, m.convenioRevenue, m.privateCount, m.privateRevenue, m.percentage, nil
}

func (m *mockRepo) Cancellations(_ context.Context, professionalID *uuid.UUID, _ Range) ([]Cancellation, error) {
	m.cancellationScope = professionalID
	m.scopeSet = true
	return m.cancellations, nil
}

func (m *mockRepo) ClientsByCity(context.Context) ([]CityBucket, error)       { return nil, nil }
func (m *mockRepo) ProfessionalsByCity(context.Context) ([]CityBucket, error) { return nil, nil }

func validRange() Range {
	return Range{
		Start: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC),
	}
}

func roleCtx(role string) context.Context {
	return context.WithValue(context.Background(), auth.CurrentRoleKey, role)
}

func TestClinicRevenueComputesTakes(t *testing.T) {
	repo := &mockRepo{
		byProfessional: []ProfessionalBreakdown{
			{ProfessionalID: uuid.New(), Name: "Dra. Ana", Percentage: 40, Count: 3, Revenue: 30000},
			{ProfessionalID: uuid.New(), Name: "Dr. Bruno", Percentage: 55, Count: 2, Revenue: 10001},
		},
		byService: []ServiceBreakdown{
			{ServiceID: uuid.New(), Name: "Consulta geral", Count: 5, Revenue: 40001},
		},
	}
	svc := NewService(repo)

	out, err := svc.ClinicRevenue(context.Background(), validRange())
	if err != nil {
		t.Fatalf("ClinicRevenue: %v", err)
	}
	if out.Total != 40001 || out.Count != 5 {
		t.Fatalf("total errado: %d em %d consultas", out.Total, out.Count)
	}
	for _, b := range out.ByProfessional {
		if b.ProfessionalTake+b.ClinicTake != b.Revenue {
			t.Fatalf("%s: repasses não somam a receita: %d + %d != %d",
				b.Name, b.ProfessionalTake, b.ClinicTake, b.Revenue)
		}
	}
	if out.ByProfessional[0].ProfessionalTake != 12000 {
		t.Fatalf("40%% de 30000: esperava 12000, veio %d", out.ByProfessional[0].ProfessionalTake)
	}
}

func TestProfessionalRevenueOwedZeroForPrivate(t *testing.T) {
	repo := &mockRepo{
		items: []RevenueItem{
			{ConsultationID: uuid.New(), PatientName: "Cliente", ServiceName: "Consulta", Value: 10000, Convenio: true},
			{ConsultationID: uuid.New(), PatientName: "Particular", ServiceName: "Consulta", Value: 20000, Convenio: false},
		},
		percentage: 40,
	}
	svc := NewService(repo)

	out, err := svc.ProfessionalRevenue(context.Background(), uuid.New(), validRange())
	if err != nil {
		t.Fatalf("ProfessionalRevenue: %v", err)
	}
	if out.Items[0].OwedToClinic != 6000 {
		t.Fatalf("consulta convênio a 40%%: esperava dever 6000 à clínica, veio %d", out.Items[0].OwedToClinic)
	}
	if out.Items[1].OwedToClinic != 0 {
		t.Fatalf("consulta particular não deve nada à clínica, veio %d", out.Items[1].OwedToClinic)
	}
	if out.Total != 30000 || out.OwedToClinic != 6000 {
		t.Fatalf("totais errados: total=%d devido=%d", out.Total, out.OwedToClinic)
	}
}

func TestProfessionalDetailAmountToPay(t *testing.T) {
	repo := &mockRepo{
		convenioCount:   3,
		convenioRevenue: 10001,
		privateCount:    1,
		privateRevenue:  50000,
		percentage:      40,
	}
	svc := NewService(repo)

	out, err := svc.ProfessionalDetail(context.Background(), uuid.New(), validRange())
	if err != nil {
		t.Fatalf("ProfessionalDetail: %v", err)
	}
	// 40% of 10001 rounds half to even: 4000.4 → 4000; clinic keeps 6001.
	if out.AmountToPay != 6001 {
		t.Fatalf("valor a repassar errado: %d", out.AmountToPay)
	}
	if out.PrivateRevenue != 50000 || out.PrivateCount != 1 {
		t.Fatal("a produção particular não deveria entrar no repasse")
	}
}

func TestCancellationsRoleScoping(t *testing.T) {
	callerID := uuid.New()

	repo := &mockRepo{}
	svc := NewService(repo)
	if _, err := svc.Cancellations(roleCtx(auth.RoleAdmin), callerID, validRange()); err != nil {
		t.Fatalf("admin: %v", err)
	}
	if !repo.scopeSet || repo.cancellationScope != nil {
		t.Fatal("admin deveria ver todos os profissionais")
	}

	repo = &mockRepo{}
	svc = NewService(repo)
	if _, err := svc.Cancellations(roleCtx(auth.RoleProfessional), callerID, validRange()); err != nil {
		t.Fatalf("profissional: %v", err)
	}
	if repo.cancellationScope == nil || *repo.cancellationScope != callerID {
		t.Fatal("profissional deveria ver apenas os próprios cancelamentos")
	}

	_, err := svc.Cancellations(roleCtx(auth.RoleClient), callerID, validRange())
	if !apperr.Is(err, apperr.Forbidden) {
		t.Fatalf("cliente: esperava Forbidden, veio %v", err)
	}
}

func TestRangeValidation(t *testing.T) {
	svc := NewService(&mockRepo{})

	_, err := svc.ClinicRevenue(context.Background(), Range{})
	if !apperr.Is(err, apperr.ValidationFailed) {
		t.Fatalf("intervalo vazio: esperava ValidationFailed, veio %v", err)
	}

	r := validRange()
	r.Start, r.End = r.End, r.Start
	_, err = svc.ClinicRevenue(context.Background(), r)
	if !apperr.Is(err, apperr.ValidationFailed) {
		t.Fatalf("intervalo invertido: esperava ValidationFailed, veio %v", err)
	}
}
