package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgo/festreg/internal/model"
	"github.com/forgo/festreg/internal/repository/memory"
)

type testStack struct {
	catalog      *EventCatalog
	registration *RegistrationService
	maintenance  *MaintenanceService
	directory    *DirectoryService
	participants *memory.ParticipantRepository
	regs         *memory.RegistrationRepository
	houses       *memory.HouseRepository
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()

	events := memory.NewEventRepository()
	participants := memory.NewParticipantRepository()
	regs := memory.NewRegistrationRepository()
	houses := memory.NewHouseRepository()

	catalog := NewEventCatalog(events)
	locks := NewLocks()
	validator := NewRegistrationValidator(RegistrationValidatorConfig{
		Events:           catalog,
		RegistrationRepo: regs,
		ParticipantRepo:  participants,
	})
	reconciler := NewCounterReconciler(CounterReconcilerConfig{
		ParticipantRepo:  participants,
		RegistrationRepo: regs,
		Events:           catalog,
	})

	return &testStack{
		catalog: catalog,
		registration: NewRegistrationService(RegistrationServiceConfig{
			Catalog:          catalog,
			Validator:        validator,
			Reconciler:       reconciler,
			RegistrationRepo: regs,
			ParticipantRepo:  participants,
			Locks:            locks,
		}),
		maintenance: NewMaintenanceService(MaintenanceServiceConfig{
			Catalog:          catalog,
			Reconciler:       reconciler,
			RegistrationRepo: regs,
			ParticipantRepo:  participants,
			HouseRepo:        houses,
			Locks:            locks,
		}),
		directory: NewDirectoryService(DirectoryServiceConfig{
			Catalog:          catalog,
			ParticipantRepo:  participants,
			HouseRepo:        houses,
			RegistrationRepo: regs,
		}),
		participants: participants,
		regs:         regs,
		houses:       houses,
	}
}

func (s *testStack) defineEvent(t *testing.T, rec *model.EventRecord) *model.Event {
	t.Helper()
	ev, err := s.catalog.Define(context.Background(), rec)
	require.NoError(t, err)
	return ev
}

func (s *testStack) addParticipants(t *testing.T, house string, n int) []*model.Participant {
	t.Helper()
	out := make([]*model.Participant, 0, n)
	for i := 1; i <= n; i++ {
		p, err := s.participants.Create(context.Background(), &model.Participant{
			UID:      fmt.Sprintf("%s-%02d", house, i),
			FullName: fmt.Sprintf("%s Student %d", house, i),
			House:    house,
		})
		require.NoError(t, err)
		out = append(out, p)
	}
	return out
}

func (s *testStack) counters(t *testing.T, p *model.Participant) model.Counters {
	t.Helper()
	got, err := s.participants.GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	return got.Counters
}

func (s *testStack) allCounters(t *testing.T) map[string]model.Counters {
	t.Helper()
	list, err := s.participants.List(context.Background())
	require.NoError(t, err)
	out := make(map[string]model.Counters, len(list))
	for _, p := range list {
		out[p.UID] = p.Counters
	}
	return out
}

func entriesFor(people []*model.Participant) model.Entries {
	out := make(model.Entries, 0, len(people))
	for _, p := range people {
		out = append(out, model.RealParticipant{UID: p.UID})
	}
	return out
}

func groupEvent(name string, minTeam, maxTeam, quota int) *model.EventRecord {
	return &model.EventRecord{
		Name:              name,
		ParticipationMode: string(model.ModeGroup),
		MinTeamSize:       model.IntPtr(minTeam),
		MaxTeamSize:       model.IntPtr(maxTeam),
		MaxRegistrations:  model.IntPtr(quota),
	}
}

func individualEvent(name string) *model.EventRecord {
	return &model.EventRecord{
		Name:              name,
		ParticipationMode: string(model.ModeIndividual),
		MaxRegistrations:  model.IntPtr(5),
	}
}

func TestSubmit_TeamSizeScenario(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStack(t)
	s.defineEvent(t, groupEvent("Drama", 9, 12, 1))
	people := s.addParticipants(t, "Rajputs", 10)

	_, err := s.registration.Submit(ctx, &model.Candidate{EventName: "Drama", House: "Rajputs", Entries: entriesFor(people[:8])})
	require.ErrorIs(t, err, ErrTeamSizeOutOfRange)
	assert.Contains(t, err.Error(), "9 and 12")

	reg, err := s.registration.Submit(ctx, &model.Candidate{EventName: "Drama", House: "Rajputs", Entries: entriesFor(people)})
	require.NoError(t, err)
	assert.Len(t, reg.Entries, 10)
	assert.Equal(t, model.ModeGroup, reg.Mode)
	for _, p := range people {
		assert.Equal(t, 1, s.counters(t, p).Group)
	}
}

func TestSubmit_IndividualLimitScenario(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStack(t)
	asha := s.addParticipants(t, "Rajputs", 1)[0]

	for i := 1; i <= 6; i++ {
		s.defineEvent(t, individualEvent(fmt.Sprintf("Solo %d", i)))
	}

	for i := 1; i <= 5; i++ {
		_, err := s.registration.Submit(ctx, &model.Candidate{
			EventName: fmt.Sprintf("Solo %d", i), House: "Rajputs", Entries: entriesFor([]*model.Participant{asha}),
		})
		require.NoError(t, err)
		assert.Equal(t, i, s.counters(t, asha).Individual)
	}

	_, err := s.registration.Submit(ctx, &model.Candidate{
		EventName: "Solo 6", House: "Rajputs", Entries: entriesFor([]*model.Participant{asha}),
	})
	require.ErrorIs(t, err, ErrParticipantLimitReached)
	assert.Contains(t, err.Error(), "Limit Reached")
	assert.Equal(t, 5, s.counters(t, asha).Individual)

	regs, err := s.registration.List(ctx, model.RegistrationFilter{Participant: asha.UID})
	require.NoError(t, err)
	assert.Len(t, regs, 5)
}

func TestSubmit_HouseQuotaScenario(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStack(t)
	s.defineEvent(t, groupEvent("Group Folk Dance", 7, 10, 1))
	people := s.addParticipants(t, "Rajputs", 14)

	_, err := s.registration.Submit(ctx, &model.Candidate{EventName: "Group Folk Dance", House: "Rajputs", Entries: entriesFor(people[:7])})
	require.NoError(t, err)

	_, err = s.registration.Submit(ctx, &model.Candidate{EventName: "Group Folk Dance", House: "Rajputs", Entries: entriesFor(people[7:])})
	require.ErrorIs(t, err, ErrHouseQuotaExceeded)
	assert.Contains(t, err.Error(), "limit of 1")

	for _, p := range people[7:] {
		assert.Zero(t, s.counters(t, p).Group, "rejected submission must not touch counters")
	}
}

func TestSubmit_LanguageDiversityScenario(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStack(t)
	s.defineEvent(t, &model.EventRecord{
		Name: "Essay Writing", Type: model.EventTypeLiterary, Category: model.CategoryPreEvent,
		MinIndividualLimit: model.IntPtr(10), MaxIndividualLimit: model.IntPtr(15), TeamLimit: model.IntPtr(1),
		CountsTowardLimit: model.BoolPtr(false),
	})
	people := s.addParticipants(t, "Rajputs", 10)

	english := entriesFor(people)
	for i := range english {
		rp := english[i].(model.RealParticipant)
		rp.Language = "English"
		english[i] = rp
	}
	_, err := s.registration.Submit(ctx, &model.Candidate{EventName: "Essay Writing", House: "Rajputs", Entries: english})
	require.ErrorIs(t, err, ErrLanguageDiversityViolation)

	mixed := entriesFor(people)
	for i := range mixed {
		rp := mixed[i].(model.RealParticipant)
		rp.Language = "English"
		if i >= 5 {
			rp.Language = "Malayalam"
		}
		mixed[i] = rp
	}
	reg, err := s.registration.Submit(ctx, &model.Candidate{EventName: "Essay Writing", House: "Rajputs", Entries: mixed})
	require.NoError(t, err)
	assert.Len(t, reg.Entries, 10)
	assert.Zero(t, s.counters(t, people[0]).Individual, "event does not count toward limits")
}

func TestDelete_GroupRegistrationScenario(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStack(t)
	s.defineEvent(t, groupEvent("Battle of Bands", 7, 10, 2))
	people := s.addParticipants(t, "Rajputs", 7)

	before := s.allCounters(t)
	reg, err := s.registration.Submit(ctx, &model.Candidate{EventName: "Battle of Bands", House: "Rajputs", Entries: entriesFor(people)})
	require.NoError(t, err)
	for _, p := range people {
		assert.Equal(t, 1, s.counters(t, p).Group)
	}

	placeholder, err := s.registration.Submit(ctx, &model.Candidate{
		EventName: "Battle of Bands", House: "Rajputs", Entries: model.Entries{model.HouseEntryPlaceholder{}},
	})
	require.NoError(t, err)

	deleted, err := s.registration.Delete(ctx, reg.ID)
	require.NoError(t, err)
	assert.Len(t, deleted.Entries.Participants(), 7)
	assert.Equal(t, before, s.allCounters(t), "create then delete restores counters")

	_, err = s.registration.Delete(ctx, placeholder.ID)
	require.NoError(t, err)
	assert.Equal(t, before, s.allCounters(t))

	_, err = s.registration.Delete(ctx, reg.ID)
	assert.ErrorIs(t, err, ErrRegistrationNotFound)
}

func TestSubmit_ConcurrentQuota(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStack(t)
	s.defineEvent(t, groupEvent("Group Folk Dance", 1, 1, 2))
	people := s.addParticipants(t, "Rajputs", 20)

	var wg sync.WaitGroup
	for _, p := range people {
		wg.Add(1)
		go func(p *model.Participant) {
			defer wg.Done()
			_, _ = s.registration.Submit(ctx, &model.Candidate{
				EventName: "Group Folk Dance", House: "Rajputs", Entries: entriesFor([]*model.Participant{p}),
			})
		}(p)
	}
	wg.Wait()

	regs, err := s.registration.List(ctx, model.RegistrationFilter{Event: "Group Folk Dance", House: "Rajputs"})
	require.NoError(t, err)
	assert.Len(t, regs, 2)
}

func TestSubmit_ConcurrentParticipantCeiling(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStack(t)
	ravi := s.addParticipants(t, "Marathas", 1)[0]
	for i := 1; i <= 10; i++ {
		s.defineEvent(t, groupEvent(fmt.Sprintf("Ensemble %d", i), 1, 1, 5))
	}

	var wg sync.WaitGroup
	for i := 1; i <= 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = s.registration.Submit(ctx, &model.Candidate{
				EventName: fmt.Sprintf("Ensemble %d", i), House: "Marathas", Entries: entriesFor([]*model.Participant{ravi}),
			})
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 3, s.counters(t, ravi).Group)
	regs, err := s.registration.List(ctx, model.RegistrationFilter{Participant: ravi.ID})
	require.NoError(t, err)
	assert.Len(t, regs, 3)
}

func TestSubmit_LiteraryCounter(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStack(t)
	s.defineEvent(t, &model.EventRecord{Name: "Debate", Type: model.EventTypeLiterary})
	p := s.addParticipants(t, "Cholas", 1)[0]

	reg, err := s.registration.Submit(ctx, &model.Candidate{EventName: "Debate", House: "Cholas", Entries: entriesFor([]*model.Participant{p})})
	require.NoError(t, err)
	assert.Equal(t, model.Counters{Individual: 1, Literary: 1}, s.counters(t, p))

	_, err = s.registration.Delete(ctx, reg.ID)
	require.NoError(t, err)
	assert.Equal(t, model.Counters{}, s.counters(t, p))
}

func TestSubmit_RejectionLeavesNoState(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStack(t)
	s.defineEvent(t, groupEvent("Duet", 2, 2, 5))
	people := s.addParticipants(t, "Rajputs", 2)

	_, err := s.registration.Submit(ctx, &model.Candidate{EventName: "Duet", House: "Rajputs",
		Entries: model.Entries{model.RealParticipant{UID: people[0].UID}, model.RealParticipant{UID: "ghost"}}})
	require.ErrorIs(t, err, ErrParticipantNotFound)

	all, err := s.registration.List(ctx, model.RegistrationFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.Equal(t, model.Counters{}, s.counters(t, people[0]))
}
