package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgo/festreg/internal/database"
	"github.com/forgo/festreg/internal/model"
)

func TestParticipantRepository_IncrementCounter_StopsAtCeiling(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := NewParticipantRepository()

	p, err := repo.Create(ctx, &model.Participant{UID: "U1", FullName: "Asha", House: "Rajputs"})
	require.NoError(t, err)

	var applied atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.IncrementCounter(ctx, p.ID, model.CounterIndividual, 5)
			assert.NoError(t, err)
			if ok {
				applied.Add(1)
			}
		}()
	}
	wg.Wait()

	got, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int32(5), applied.Load())
	assert.Equal(t, 5, got.Individual)
}

func TestParticipantRepository_Create_RejectsDuplicateUID(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := NewParticipantRepository()

	_, err := repo.Create(ctx, &model.Participant{UID: "U1"})
	require.NoError(t, err)
	_, err = repo.Create(ctx, &model.Participant{UID: "u1"})
	assert.ErrorIs(t, err, database.ErrDuplicate)

	found, err := repo.GetByUID(ctx, "U1")
	require.NoError(t, err)
	require.NotNil(t, found)
}

func TestParticipantRepository_DecrementCounter_FloorsAtZero(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := NewParticipantRepository()

	p, err := repo.Create(ctx, &model.Participant{UID: "U1"})
	require.NoError(t, err)
	require.NoError(t, repo.DecrementCounter(ctx, p.ID, model.CounterGroup))

	got, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Group)
	assert.ErrorIs(t, repo.DecrementCounter(ctx, "participant:missing", model.CounterGroup), database.ErrNotFound)
}

func TestRegistrationRepository_Create_EnforcesQuota(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := NewRegistrationRepository()

	reg := &model.Registration{EventID: "event:1", EventName: "Group Folk Dance", House: "Rajputs",
		Entries: model.Entries{model.HouseEntryPlaceholder{}}}

	_, err := repo.Create(ctx, reg, 1)
	require.NoError(t, err)
	_, err = repo.Create(ctx, &model.Registration{EventID: "event:1", House: "rajputs"}, 1)
	assert.ErrorIs(t, err, database.ErrLimitExceeded)

	n, err := repo.CountByEventAndHouse(ctx, "event:1", "RAJPUTS")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRegistrationRepository_Delete_ReturnsPriorRecord(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := NewRegistrationRepository()

	entries := model.Entries{
		model.RealParticipant{ParticipantID: "p1", UID: "U1", Name: "Asha"},
		model.RealParticipant{ParticipantID: "p2", UID: "U2", Name: "Ravi"},
	}
	created, err := repo.Create(ctx, &model.Registration{EventID: "event:1", House: "Rajputs", Entries: entries}, 10)
	require.NoError(t, err)

	byParticipant, err := repo.FindByParticipant(ctx, "U2")
	require.NoError(t, err)
	assert.Len(t, byParticipant, 1)

	deleted, err := repo.Delete(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, entries, deleted.Entries)

	_, err = repo.Delete(ctx, created.ID)
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestEventRepository_Upsert_ReplacesByName(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := NewEventRepository()

	first, err := repo.Upsert(ctx, &model.EventRecord{Name: "Drama", MaxTeamSize: model.IntPtr(12)})
	require.NoError(t, err)
	second, err := repo.Upsert(ctx, &model.EventRecord{Name: "drama", MaxTeamSize: model.IntPtr(10)})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 10, *list[0].MaxTeamSize)
}

func TestEventRepository_Update_RenamesInPlace(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := NewEventRepository()

	drama, err := repo.Upsert(ctx, &model.EventRecord{Name: "Drama"})
	require.NoError(t, err)
	_, err = repo.Upsert(ctx, &model.EventRecord{Name: "Mime"})
	require.NoError(t, err)

	renamed, err := repo.Update(ctx, drama.ID, &model.EventRecord{Name: "Street Play"})
	require.NoError(t, err)
	assert.Equal(t, drama.ID, renamed.ID)
	assert.Equal(t, drama.CreatedOn, renamed.CreatedOn)

	old, err := repo.GetByName(ctx, "drama")
	require.NoError(t, err)
	assert.Nil(t, old)

	_, err = repo.Update(ctx, drama.ID, &model.EventRecord{Name: "MIME"})
	assert.ErrorIs(t, err, database.ErrDuplicate)
	_, err = repo.Update(ctx, "event:missing", &model.EventRecord{Name: "Puppetry"})
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestEventRepository_Delete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := NewEventRepository()

	drama, err := repo.Upsert(ctx, &model.EventRecord{Name: "Drama"})
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, drama.ID))
	got, err := repo.GetByName(ctx, "Drama")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.ErrorIs(t, repo.Delete(ctx, drama.ID), database.ErrNotFound)
}
