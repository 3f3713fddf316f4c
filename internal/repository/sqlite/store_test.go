package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/forgo/festreg/internal/database"
	"github.com/forgo/festreg/internal/model"
	"github.com/forgo/festreg/internal/service"
	"github.com/forgo/festreg/internal/testing/fixtures"
)

func openTempStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "festreg.sqlite")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
	return store
}

func TestOpen_RequiresPath(t *testing.T) {
	t.Parallel()
	if _, err := Open("  "); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestOpen_ReappliesMigrationsOnce(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "festreg.sqlite")
	first, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}
	second, err := Open(path)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	_ = second.Close()
}

func TestEventRepository_UpsertByNameKey(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := openTempStore(t).Events()

	first, err := repo.Upsert(ctx, &model.EventRecord{Name: "Drama", ParticipationMode: "Group", TeamLimit: model.IntPtr(1)})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	second, err := repo.Upsert(ctx, &model.EventRecord{Name: "DRAMA", ParticipationMode: "Group", MaxRegistrations: model.IntPtr(2)})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("expected same id, got %s and %s", first.ID, second.ID)
	}
	if second.TeamLimit != nil {
		t.Errorf("expected legacy field replaced, got %v", *second.TeamLimit)
	}
	if second.MaxRegistrations == nil || *second.MaxRegistrations != 2 {
		t.Errorf("expected max registrations 2, got %v", second.MaxRegistrations)
	}

	got, err := repo.GetByName(ctx, " drama ")
	if err != nil || got == nil {
		t.Fatalf("get by name: %v %v", got, err)
	}
	missing, err := repo.GetByID(ctx, "Drama")
	if err != nil || missing != nil {
		t.Errorf("expected nil for unknown id, got %v %v", missing, err)
	}

	if err := repo.SetRegistrationEnabled(ctx, got.ID, false); err != nil {
		t.Fatalf("set enabled: %v", err)
	}
	got, _ = repo.GetByID(ctx, got.ID)
	if got.RegistrationEnabled == nil || *got.RegistrationEnabled {
		t.Error("expected registration disabled")
	}
	if err := repo.SetRegistrationEnabled(ctx, "event:none", true); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestEventRepository_UpdateAndDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := openTempStore(t).Events()

	drama, err := repo.Upsert(ctx, &model.EventRecord{Name: "Drama", MaxTeamSize: model.IntPtr(12)})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if _, err := repo.Upsert(ctx, &model.EventRecord{Name: "Mime"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	renamed, err := repo.Update(ctx, drama.ID, &model.EventRecord{Name: "Street Play", MaxTeamSize: model.IntPtr(10)})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if renamed.ID != drama.ID {
		t.Errorf("expected id %s kept, got %s", drama.ID, renamed.ID)
	}
	if renamed.MaxTeamSize == nil || *renamed.MaxTeamSize != 10 {
		t.Errorf("expected max team size 10, got %v", renamed.MaxTeamSize)
	}
	if old, err := repo.GetByName(ctx, "Drama"); err != nil || old != nil {
		t.Errorf("expected old name gone, got %v, %v", old, err)
	}

	if _, err := repo.Update(ctx, drama.ID, &model.EventRecord{Name: "mime"}); !errors.Is(err, database.ErrDuplicate) {
		t.Errorf("expected ErrDuplicate on rename clash, got %v", err)
	}
	if _, err := repo.Update(ctx, "event:missing", &model.EventRecord{Name: "Puppetry"}); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	if err := repo.Delete(ctx, drama.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got, err := repo.GetByID(ctx, drama.ID); err != nil || got != nil {
		t.Errorf("expected event deleted, got %v, %v", got, err)
	}
	if err := repo.Delete(ctx, drama.ID); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestParticipantRepository_DuplicateUID(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := openTempStore(t).Participants()

	if _, err := repo.Create(ctx, &model.Participant{UID: "RJ-01", FullName: "Asha", House: "Rajputs"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := repo.Create(ctx, &model.Participant{UID: "rj-01", FullName: "Other"}); !errors.Is(err, database.ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}
	members, err := repo.ListByHouse(ctx, "RAJPUTS")
	if err != nil || len(members) != 1 {
		t.Errorf("expected one member, got %d (%v)", len(members), err)
	}
}

func TestParticipantRepository_IncrementRespectsCeiling(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := openTempStore(t).Participants()

	p, err := repo.Create(ctx, &model.Participant{UID: "RJ-01", FullName: "Asha", House: "Rajputs"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	var applied atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.IncrementCounter(ctx, p.ID, model.CounterGroup, model.MaxGroupEvents)
			if err != nil {
				t.Errorf("increment: %v", err)
				return
			}
			if ok {
				applied.Add(1)
			}
		}()
	}
	wg.Wait()

	if applied.Load() != model.MaxGroupEvents {
		t.Errorf("expected %d increments, got %d", model.MaxGroupEvents, applied.Load())
	}
	got, _ := repo.GetByID(ctx, p.ID)
	if got.Group != model.MaxGroupEvents {
		t.Errorf("expected group count %d, got %d", model.MaxGroupEvents, got.Group)
	}

	if _, err := repo.IncrementCounter(ctx, "participant:none", model.CounterGroup, 3); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestParticipantRepository_DecrementFloorsAtZero(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := openTempStore(t).Participants()

	p, err := repo.Create(ctx, &model.Participant{UID: "RJ-01", House: "Rajputs"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.DecrementCounter(ctx, p.ID, model.CounterIndividual); err != nil {
		t.Fatalf("decrement: %v", err)
	}
	if err := repo.SetCounters(ctx, p.ID, model.Counters{Individual: 2, Group: 1, Literary: 1}); err != nil {
		t.Fatalf("set counters: %v", err)
	}
	if err := repo.DecrementCounter(ctx, p.ID, model.CounterIndividual); err != nil {
		t.Fatalf("decrement: %v", err)
	}
	got, _ := repo.GetByID(ctx, p.ID)
	if got.Counters != (model.Counters{Individual: 1, Group: 1, Literary: 1}) {
		t.Errorf("unexpected counters %+v", got.Counters)
	}

	if err := repo.ResetAllCounters(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	got, _ = repo.GetByID(ctx, p.ID)
	if got.Counters != (model.Counters{}) {
		t.Errorf("expected zero counters, got %+v", got.Counters)
	}
}

func TestRegistrationRepository_QuotaAndMembers(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := openTempStore(t).Registrations()

	reg := &model.Registration{
		EventID: "event:drama", EventName: "Drama", House: "Rajputs",
		Mode: model.ModeGroup, CountsTowardLimit: true,
		Entries: model.Entries{
			model.RealParticipant{ParticipantID: "participant:1", UID: "RJ-01", Name: "Asha", Language: "Hindi"},
			model.RealParticipant{ParticipantID: "participant:2", UID: "RJ-02", Name: "Ravi"},
		},
	}
	created, err := repo.Create(ctx, reg, 1)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Mode != model.ModeGroup || !created.CountsTowardLimit || len(created.Entries) != 2 {
		t.Errorf("unexpected stored registration %+v", created)
	}
	if _, err := repo.Create(ctx, &model.Registration{EventID: "event:drama", House: "rajputs"}, 1); !errors.Is(err, database.ErrLimitExceeded) {
		t.Errorf("expected ErrLimitExceeded, got %v", err)
	}

	n, err := repo.CountByEventAndHouse(ctx, "event:drama", "RAJPUTS")
	if err != nil || n != 1 {
		t.Errorf("expected count 1, got %d (%v)", n, err)
	}
	for _, ref := range []string{"participant:2", "rj-02"} {
		found, err := repo.FindByParticipant(ctx, ref)
		if err != nil || len(found) != 1 {
			t.Errorf("expected one registration for %s, got %d (%v)", ref, len(found), err)
		}
	}

	deleted, err := repo.Delete(ctx, created.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if deleted.ID != created.ID || len(deleted.Entries) != 2 {
		t.Errorf("expected prior record back, got %+v", deleted)
	}
	if _, err := repo.Delete(ctx, created.ID); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	found, _ := repo.FindByParticipant(ctx, "participant:1")
	if len(found) != 0 {
		t.Errorf("expected member rows removed, got %d", len(found))
	}
}

func TestRegistrationRepository_PlaceholderRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := openTempStore(t).Registrations()

	created, err := repo.Create(ctx, &model.Registration{
		EventID: "event:quiz", EventName: "Quiz", House: "Marathas",
		Entries: model.Entries{model.HouseEntryPlaceholder{}},
	}, 5)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !created.Entries.HasPlaceholder() {
		t.Error("expected placeholder entry to survive storage")
	}

	n, err := repo.DeleteAll(ctx)
	if err != nil || n != 1 {
		t.Errorf("expected 1 deleted, got %d (%v)", n, err)
	}
}

func TestHouseRepository_CreateAndLookup(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := openTempStore(t).Houses()

	if _, err := repo.Create(ctx, &model.House{Name: "Rajputs", Captain: "Asha"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := repo.Create(ctx, &model.House{Name: "rajputs"}); !errors.Is(err, database.ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}
	h, err := repo.GetByName(ctx, "RAJPUTS")
	if err != nil || h == nil || h.Captain != "Asha" {
		t.Errorf("unexpected house %+v (%v)", h, err)
	}
	none, err := repo.GetByName(ctx, "Marathas")
	if err != nil || none != nil {
		t.Errorf("expected nil for unknown house, got %+v (%v)", none, err)
	}
}

func TestResync_RebuildsCountersFromStoredRegistrations(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := openTempStore(t)
	f := fixtures.New(fixtures.Repos{
		Events:        store.Events(),
		Participants:  store.Participants(),
		Houses:        store.Houses(),
		Registrations: store.Registrations(),
	})

	house := f.CreateHouse(t, fixtures.WithHouseName("Rajputs"))
	solo := f.CreateEvent(t, fixtures.WithEventName("Solo Song"))
	dance := f.CreateEvent(t, fixtures.WithEventName("Group Dance"), fixtures.WithMode(model.ModeGroup), fixtures.WithTeamSize(2, 4))
	essay := f.CreateEvent(t, fixtures.WithEventName("Essay Writing"), fixtures.WithType(model.EventTypeLiterary))

	asha := f.CreateParticipant(t, house, fixtures.WithUID("RJ-01"))
	ravi := f.CreateParticipant(t, house, fixtures.WithUID("RJ-02"))

	f.CreateRegistration(t, solo, house, asha)
	f.CreateRegistration(t, dance, house, asha, ravi)
	f.CreateRegistration(t, essay, house, ravi)
	f.CreateRegistration(t, dance, house)

	reconciler := service.NewCounterReconciler(service.CounterReconcilerConfig{
		ParticipantRepo:  store.Participants(),
		RegistrationRepo: store.Registrations(),
		Events:           service.NewEventCatalog(store.Events()),
	})
	report, err := reconciler.Resync(ctx)
	if err != nil {
		t.Fatalf("resync: %v", err)
	}
	if report.Registrations != 4 || len(report.Changed) != 2 {
		t.Errorf("unexpected report %+v", report)
	}

	want := map[string]model.Counters{
		asha.ID: {Individual: 1, Group: 1},
		ravi.ID: {Individual: 1, Group: 1, Literary: 1},
	}
	for id, counters := range want {
		got, err := store.Participants().GetByID(ctx, id)
		if err != nil {
			t.Fatalf("get participant: %v", err)
		}
		if got.Counters != counters {
			t.Errorf("participant %s: expected %+v, got %+v", got.UID, counters, got.Counters)
		}
	}

	again, err := reconciler.Resync(ctx)
	if err != nil {
		t.Fatalf("second resync: %v", err)
	}
	if len(again.Changed) != 0 {
		t.Errorf("expected a stable resync, got %d changes", len(again.Changed))
	}
}
