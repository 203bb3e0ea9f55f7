package consultation

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/convenio/convenio/internal/domain/catalog"
	"github.com/convenio/convenio/internal/domain/patients"
	"github.com/convenio/convenio/internal/platform/apperr"
	"github.com/convenio/convenio/internal/platform/auth"
	"github.com/convenio/convenio/pkg/money"
)

type mockRepo struct {
	items map[uuid.UUID]*Consultation
}

func newMockRepo() *mockRepo {
	return &mockRepo{items: map[uuid.UUID]*Consultation{}}
}

func (m *mockRepo) Create(_ context.Context, c *Consultation) error {
	cp := *c
	m.items[c.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Consultation, error) {
	c, ok := m.items[id]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "consulta não encontrada")
	}
	cp := *c
	return &cp, nil
}

func (m *mockRepo) UpdateNotes(_ context.Context, id uuid.UUID, notes *string) error {
	c, ok := m.items[id]
	if !ok {
		return apperr.New(apperr.NotFound, "consulta não encontrada")
	}
	c.Notes = notes
	return nil
}

func (m *mockRepo) UpdateStatus(_ context.Context, c *Consultation) error {
	cur, ok := m.items[c.ID]
	if !ok {
		return apperr.New(apperr.NotFound, "consulta não encontrada")
	}
	cur.Status = c.Status
	cur.CancelledAt = c.CancelledAt
	cur.CancelledBy = c.CancelledBy
	cur.CancelReason = c.CancelReason
	return nil
}

func (m *mockRepo) Reschedule(_ context.Context, id uuid.UUID, at time.Time) error {
	c, ok := m.items[id]
	if !ok {
		return apperr.New(apperr.NotFound, "consulta não encontrada")
	}
	c.ScheduledAt = at
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.items[id]; !ok {
		return apperr.New(apperr.NotFound, "consulta não encontrada")
	}
	delete(m.items, id)
	return nil
}

func (m *mockRepo) List(_ context.Context, f ListFilter, limit, offset int) ([]Consultation, int, error) {
	var out []Consultation
	for _, c := range m.items {
		if f.ProfessionalID != nil && c.ProfessionalID != *f.ProfessionalID {
			continue
		}
		if f.ClientID != nil && (c.ClientID == nil || *c.ClientID != *f.ClientID) {
			continue
		}
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		out = append(out, *c)
	}
	return out, len(out), nil
}

func (m *mockRepo) ExistsAt(_ context.Context, professionalID uuid.UUID, at time.Time, exclude uuid.UUID) (bool, error) {
	for _, c := range m.items {
		if c.ProfessionalID == professionalID && c.ScheduledAt.Equal(at) &&
			c.Status != StatusCancelled && c.ID != exclude {
			return true, nil
		}
	}
	return false, nil
}

type mockCatalog struct {
	services map[uuid.UUID]*catalog.Service
}

func (m *mockCatalog) GetService(_ context.Context, id uuid.UUID) (*catalog.Service, error) {
	svc, ok := m.services[id]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "serviço não encontrado")
	}
	return svc, nil
}

type mockSubscriptions struct {
	active map[uuid.UUID]bool
}

func (m *mockSubscriptions) SubscriptionActive(_ context.Context, id uuid.UUID, _ time.Time) (bool, error) {
	return m.active[id], nil
}

type mockRegistry struct {
	dependents map[uuid.UUID]*patients.Dependent
	depActive  map[uuid.UUID]bool
	private    map[uuid.UUID]*patients.PrivatePatient
}

func (m *mockRegistry) GetDependent(_ context.Context, id uuid.UUID) (*patients.Dependent, error) {
	d, ok := m.dependents[id]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "dependente não encontrado")
	}
	return d, nil
}

func (m *mockRegistry) DependentSubscriptionActive(_ context.Context, id uuid.UUID, _ time.Time) (bool, error) {
	return m.depActive[id], nil
}

func (m *mockRegistry) GetPrivatePatient(_ context.Context, professionalID, id uuid.UUID) (*patients.PrivatePatient, error) {
	p, ok := m.private[id]
	if !ok || p.ProfessionalID != professionalID {
		return nil, apperr.New(apperr.NotFound, "paciente não encontrado")
	}
	return p, nil
}

type fixture struct {
	svc     *Service
	repo    *mockRepo
	subs    *mockSubscriptions
	reg     *mockRegistry
	serviceID      uuid.UUID
	professionalID uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	serviceID := uuid.New()
	repo := newMockRepo()
	subs := &mockSubscriptions{active: map[uuid.UUID]bool{}}
	reg := &mockRegistry{
		dependents: map[uuid.UUID]*patients.Dependent{},
		depActive:  map[uuid.UUID]bool{},
		private:    map[uuid.UUID]*patients.PrivatePatient{},
	}
	cat := &mockCatalog{services: map[uuid.UUID]*catalog.Service{
		serviceID: {ID: serviceID, Name: "Consulta Clínica Geral", Price: 15000},
	}}
	return &fixture{
		svc:            NewService(repo, cat, subs, reg, nil, zerolog.Nop()),
		repo:           repo,
		subs:           subs,
		reg:            reg,
		serviceID:      serviceID,
		professionalID: uuid.New(),
	}
}

func (f *fixture) activeClientInput() CreateInput {
	clientID := uuid.New()
	f.subs.active[clientID] = true
	return CreateInput{
		Patient:     PatientRef{ClientID: &clientID},
		ServiceID:   f.serviceID,
		Value:       money.Cents(10000),
		ScheduledAt: time.Now().Add(time.Hour),
	}
}

func TestCreate_RequiresExactlyOnePatient(t *testing.T) {
	f := newFixture(t)
	clientID := uuid.New()
	dependentID := uuid.New()
	f.subs.active[clientID] = true

	cases := []PatientRef{
		{},
		{ClientID: &clientID, DependentID: &dependentID},
	}
	for _, ref := range cases {
		_, err := f.svc.Create(context.Background(), f.professionalID, CreateInput{
			Patient:   ref,
			ServiceID: f.serviceID,
			Value:     money.Cents(10000),
		})
		if apperr.KindOf(err) != apperr.PatientRefInvalid {
			t.Fatalf("patient ref %+v: want PatientRefInvalid, got %v", ref, err)
		}
	}
	if len(f.repo.items) != 0 {
		t.Fatalf("no consultation should be persisted, found %d", len(f.repo.items))
	}
}

func TestCreate_InactiveSubscriptionLeavesNoRow(t *testing.T) {
	f := newFixture(t)
	clientID := uuid.New()

	_, err := f.svc.Create(context.Background(), f.professionalID, CreateInput{
		Patient:   PatientRef{ClientID: &clientID},
		ServiceID: f.serviceID,
		Value:     money.Cents(10000),
	})
	if apperr.KindOf(err) != apperr.SubscriptionInactive {
		t.Fatalf("want SubscriptionInactive, got %v", err)
	}
	if len(f.repo.items) != 0 {
		t.Fatalf("gate rejection must not persist a consultation")
	}
}

func TestCreate_DependentGate(t *testing.T) {
	f := newFixture(t)
	dependentID := uuid.New()
	f.reg.depActive[dependentID] = false

	_, err := f.svc.Create(context.Background(), f.professionalID, CreateInput{
		Patient:   PatientRef{DependentID: &dependentID},
		ServiceID: f.serviceID,
		Value:     money.Cents(10000),
	})
	if apperr.KindOf(err) != apperr.SubscriptionInactive {
		t.Fatalf("want SubscriptionInactive, got %v", err)
	}

	f.reg.depActive[dependentID] = true
	c, err := f.svc.Create(context.Background(), f.professionalID, CreateInput{
		Patient:   PatientRef{DependentID: &dependentID},
		ServiceID: f.serviceID,
		Value:     money.Cents(10000),
	})
	if err != nil {
		t.Fatalf("active dependent should be accepted: %v", err)
	}
	if c.Status != StatusCompleted {
		t.Fatalf("default status = %q, want %q", c.Status, StatusCompleted)
	}
}

func TestCreate_PrivatePatientOfAnotherProfessional(t *testing.T) {
	f := newFixture(t)
	patientID := uuid.New()
	f.reg.private[patientID] = &patients.PrivatePatient{ID: patientID, ProfessionalID: uuid.New()}

	_, err := f.svc.Create(context.Background(), f.professionalID, CreateInput{
		Patient:   PatientRef{PrivatePatientID: &patientID},
		ServiceID: f.serviceID,
		Value:     money.Cents(10000),
	})
	if apperr.KindOf(err) != apperr.NotFound {
		t.Fatalf("want NotFound for another professional's patient, got %v", err)
	}
}

func TestSplit_SumsToValue(t *testing.T) {
	c := &Consultation{Value: money.Cents(10000)}
	prof, clinic := c.Split(40)
	if prof != 4000 || clinic != 6000 {
		t.Fatalf("split 40%% of 10000 = (%d, %d), want (4000, 6000)", prof, clinic)
	}
	for _, v := range []money.Cents{1, 99, 10001, 33333} {
		for p := 0; p <= 100; p += 7 {
			c := &Consultation{Value: v}
			prof, clinic := c.Split(p)
			if prof+clinic != v {
				t.Fatalf("split %d%% of %d: %d+%d != %d", p, v, prof, clinic, v)
			}
		}
	}
}

func TestUpdateStatus_TerminalStates(t *testing.T) {
	f := newFixture(t)
	in := f.activeClientInput()
	in.Status = StatusScheduled
	c, err := f.svc.Create(context.Background(), f.professionalID, in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	reason := "cliente desistiu"
	cancelled, err := f.svc.UpdateStatus(context.Background(), f.professionalID, false, c.ID, StatusCancelled, &reason)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.CancelledAt == nil || cancelled.CancelledBy == nil || *cancelled.CancelledBy != f.professionalID {
		t.Fatalf("cancellation audit fields not recorded: %+v", cancelled)
	}

	_, err = f.svc.UpdateStatus(context.Background(), f.professionalID, false, c.ID, StatusConfirmed, nil)
	if apperr.KindOf(err) != apperr.ValidationFailed {
		t.Fatalf("cancelled is terminal, got %v", err)
	}

	in2 := f.activeClientInput()
	done, err := f.svc.Create(context.Background(), f.professionalID, in2)
	if err != nil {
		t.Fatalf("create completed: %v", err)
	}
	_, err = f.svc.UpdateStatus(context.Background(), f.professionalID, false, done.ID, StatusScheduled, nil)
	if apperr.KindOf(err) != apperr.ValidationFailed {
		t.Fatalf("completed is terminal, got %v", err)
	}
}

func TestUpdateStatus_OtherProfessionalForbidden(t *testing.T) {
	f := newFixture(t)
	in := f.activeClientInput()
	in.Status = StatusScheduled
	c, err := f.svc.Create(context.Background(), f.professionalID, in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err = f.svc.UpdateStatus(context.Background(), uuid.New(), false, c.ID, StatusConfirmed, nil)
	if apperr.KindOf(err) != apperr.Forbidden {
		t.Fatalf("want Forbidden, got %v", err)
	}
	if _, err := f.svc.UpdateStatus(context.Background(), uuid.New(), true, c.ID, StatusConfirmed, nil); err != nil {
		t.Fatalf("admin bypass: %v", err)
	}
}

func TestReschedule_SlotConflict(t *testing.T) {
	f := newFixture(t)
	slot := time.Now().Add(24 * time.Hour).Truncate(time.Hour)

	in := f.activeClientInput()
	in.Status = StatusScheduled
	in.ScheduledAt = slot
	if _, err := f.svc.Create(context.Background(), f.professionalID, in); err != nil {
		t.Fatalf("create first: %v", err)
	}

	in2 := f.activeClientInput()
	in2.Status = StatusScheduled
	in2.ScheduledAt = slot.Add(time.Hour)
	second, err := f.svc.Create(context.Background(), f.professionalID, in2)
	if err != nil {
		t.Fatalf("create second: %v", err)
	}

	_, err = f.svc.Reschedule(context.Background(), f.professionalID, false, second.ID, slot)
	if apperr.KindOf(err) != apperr.SlotConflict {
		t.Fatalf("want SlotConflict, got %v", err)
	}

	moved, err := f.svc.Reschedule(context.Background(), f.professionalID, false, second.ID, slot.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("reschedule to a free slot: %v", err)
	}
	if !moved.ScheduledAt.Equal(slot.Add(2 * time.Hour)) {
		t.Fatalf("scheduled_at not updated: %v", moved.ScheduledAt)
	}
}

func TestReschedule_OnlyPendingStatuses(t *testing.T) {
	f := newFixture(t)
	c, err := f.svc.Create(context.Background(), f.professionalID, f.activeClientInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err = f.svc.Reschedule(context.Background(), f.professionalID, false, c.ID, time.Now().Add(48*time.Hour))
	if apperr.KindOf(err) != apperr.ValidationFailed {
		t.Fatalf("completed consultation must not be reschedulable, got %v", err)
	}
}

func TestCreateRecurring_ZeroOccurrences(t *testing.T) {
	f := newFixture(t)
	created, err := f.svc.CreateRecurring(context.Background(), f.professionalID, f.activeClientInput(),
		Recurrence{Frequency: FreqWeekly, Interval: 1, Occurrences: 0})
	if err != nil {
		t.Fatalf("zero occurrences must succeed: %v", err)
	}
	if created != 0 || len(f.repo.items) != 0 {
		t.Fatalf("created = %d, rows = %d, want 0 and 0", created, len(f.repo.items))
	}
}

func TestCreateRecurring_SkipsConflicts(t *testing.T) {
	f := newFixture(t)
	start := time.Now().Add(24 * time.Hour).Truncate(time.Hour)

	blocker := f.activeClientInput()
	blocker.Status = StatusScheduled
	blocker.ScheduledAt = start.AddDate(0, 0, 7)
	if _, err := f.svc.Create(context.Background(), f.professionalID, blocker); err != nil {
		t.Fatalf("create blocker: %v", err)
	}

	in := f.activeClientInput()
	in.Status = StatusScheduled
	in.ScheduledAt = start
	created, err := f.svc.CreateRecurring(context.Background(), f.professionalID, in,
		Recurrence{Frequency: FreqWeekly, Interval: 1, Occurrences: 4})
	if err != nil {
		t.Fatalf("recurring: %v", err)
	}
	if created != 3 {
		t.Fatalf("created = %d, want 3 (one slot already taken)", created)
	}
}

func TestCreateRecurring_EndDateBound(t *testing.T) {
	f := newFixture(t)
	start := time.Now().Add(24 * time.Hour).Truncate(time.Hour)
	end := start.AddDate(0, 0, 2)

	in := f.activeClientInput()
	in.Status = StatusScheduled
	in.ScheduledAt = start
	created, err := f.svc.CreateRecurring(context.Background(), f.professionalID, in,
		Recurrence{Frequency: FreqDaily, Interval: 1, EndDate: &end})
	if err != nil {
		t.Fatalf("recurring: %v", err)
	}
	if created != 3 {
		t.Fatalf("created = %d, want 3 (start, +1d, +2d)", created)
	}
}

func TestGet_ClientSeesOwnCancelled(t *testing.T) {
	f := newFixture(t)
	in := f.activeClientInput()
	in.Status = StatusScheduled
	c, err := f.svc.Create(context.Background(), f.professionalID, in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.svc.UpdateStatus(context.Background(), f.professionalID, false, c.ID, StatusCancelled, nil); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	got, err := f.svc.Get(context.Background(), *c.ClientID, auth.RoleClient, c.ID)
	if err != nil {
		t.Fatalf("owning client must see the cancelled consultation: %v", err)
	}
	if got.Status != StatusCancelled {
		t.Fatalf("status = %q, want cancelled", got.Status)
	}

	_, err = f.svc.Get(context.Background(), uuid.New(), auth.RoleClient, c.ID)
	if apperr.KindOf(err) != apperr.Forbidden {
		t.Fatalf("other client must get Forbidden, got %v", err)
	}
}

func TestGet_ClientSeesDependentConsultation(t *testing.T) {
	f := newFixture(t)
	clientID := uuid.New()
	dependentID := uuid.New()
	f.reg.dependents[dependentID] = &patients.Dependent{ID: dependentID, ClientID: clientID}
	f.reg.depActive[dependentID] = true

	c, err := f.svc.Create(context.Background(), f.professionalID, CreateInput{
		Patient:   PatientRef{DependentID: &dependentID},
		ServiceID: f.serviceID,
		Value:     money.Cents(10000),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.svc.Get(context.Background(), clientID, auth.RoleClient, c.ID); err != nil {
		t.Fatalf("guardian client must see dependent consultation: %v", err)
	}
}
