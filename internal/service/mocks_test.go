package service

import (
	"context"

	"github.com/forgo/festreg/internal/model"
)

// ============================================================================
// Mock Repositories
// ============================================================================

type mockEventResolver struct {
	resolveFunc func(ctx context.Context, ref string) (*model.Event, error)
}

func (m *mockEventResolver) Resolve(ctx context.Context, ref string) (*model.Event, error) {
	if m.resolveFunc != nil {
		return m.resolveFunc(ctx, ref)
	}
	return nil, ErrEventNotFound
}

type mockEventRepo struct {
	getByIDFunc                func(ctx context.Context, id string) (*model.EventRecord, error)
	getByNameFunc              func(ctx context.Context, name string) (*model.EventRecord, error)
	listFunc                   func(ctx context.Context) ([]*model.EventRecord, error)
	upsertFunc                 func(ctx context.Context, rec *model.EventRecord) (*model.EventRecord, error)
	updateFunc                 func(ctx context.Context, id string, rec *model.EventRecord) (*model.EventRecord, error)
	deleteFunc                 func(ctx context.Context, id string) error
	setRegistrationEnabledFunc func(ctx context.Context, id string, enabled bool) error
}

func (m *mockEventRepo) GetByID(ctx context.Context, id string) (*model.EventRecord, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockEventRepo) GetByName(ctx context.Context, name string) (*model.EventRecord, error) {
	if m.getByNameFunc != nil {
		return m.getByNameFunc(ctx, name)
	}
	return nil, nil
}

func (m *mockEventRepo) List(ctx context.Context) ([]*model.EventRecord, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx)
	}
	return nil, nil
}

func (m *mockEventRepo) Upsert(ctx context.Context, rec *model.EventRecord) (*model.EventRecord, error) {
	if m.upsertFunc != nil {
		return m.upsertFunc(ctx, rec)
	}
	return rec, nil
}

func (m *mockEventRepo) Update(ctx context.Context, id string, rec *model.EventRecord) (*model.EventRecord, error) {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, id, rec)
	}
	rec.ID = id
	return rec, nil
}

func (m *mockEventRepo) Delete(ctx context.Context, id string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return nil
}

func (m *mockEventRepo) SetRegistrationEnabled(ctx context.Context, id string, enabled bool) error {
	if m.setRegistrationEnabledFunc != nil {
		return m.setRegistrationEnabledFunc(ctx, id, enabled)
	}
	return nil
}

type mockRegistrationRepo struct {
	createFunc               func(ctx context.Context, reg *model.Registration, quota int) (*model.Registration, error)
	deleteFunc               func(ctx context.Context, id string) (*model.Registration, error)
	getByIDFunc              func(ctx context.Context, id string) (*model.Registration, error)
	listFunc                 func(ctx context.Context) ([]*model.Registration, error)
	findByHouseFunc          func(ctx context.Context, house string) ([]*model.Registration, error)
	findByEventFunc          func(ctx context.Context, eventID string) ([]*model.Registration, error)
	findByEventAndHouseFunc  func(ctx context.Context, eventID, house string) ([]*model.Registration, error)
	countByEventAndHouseFunc func(ctx context.Context, eventID, house string) (int, error)
	findByParticipantFunc    func(ctx context.Context, ref string) ([]*model.Registration, error)
	deleteAllFunc            func(ctx context.Context) (int, error)
}

func (m *mockRegistrationRepo) Create(ctx context.Context, reg *model.Registration, quota int) (*model.Registration, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, reg, quota)
	}
	return reg, nil
}

func (m *mockRegistrationRepo) Delete(ctx context.Context, id string) (*model.Registration, error) {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockRegistrationRepo) GetByID(ctx context.Context, id string) (*model.Registration, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockRegistrationRepo) List(ctx context.Context) ([]*model.Registration, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx)
	}
	return nil, nil
}

func (m *mockRegistrationRepo) FindByHouse(ctx context.Context, house string) ([]*model.Registration, error) {
	if m.findByHouseFunc != nil {
		return m.findByHouseFunc(ctx, house)
	}
	return nil, nil
}

func (m *mockRegistrationRepo) FindByEvent(ctx context.Context, eventID string) ([]*model.Registration, error) {
	if m.findByEventFunc != nil {
		return m.findByEventFunc(ctx, eventID)
	}
	return nil, nil
}

func (m *mockRegistrationRepo) FindByEventAndHouse(ctx context.Context, eventID, house string) ([]*model.Registration, error) {
	if m.findByEventAndHouseFunc != nil {
		return m.findByEventAndHouseFunc(ctx, eventID, house)
	}
	return nil, nil
}

func (m *mockRegistrationRepo) CountByEventAndHouse(ctx context.Context, eventID, house string) (int, error) {
	if m.countByEventAndHouseFunc != nil {
		return m.countByEventAndHouseFunc(ctx, eventID, house)
	}
	return 0, nil
}

func (m *mockRegistrationRepo) FindByParticipant(ctx context.Context, ref string) ([]*model.Registration, error) {
	if m.findByParticipantFunc != nil {
		return m.findByParticipantFunc(ctx, ref)
	}
	return nil, nil
}

func (m *mockRegistrationRepo) DeleteAll(ctx context.Context) (int, error) {
	if m.deleteAllFunc != nil {
		return m.deleteAllFunc(ctx)
	}
	return 0, nil
}

type mockParticipantRepo struct {
	getByIDFunc          func(ctx context.Context, id string) (*model.Participant, error)
	getByUIDFunc         func(ctx context.Context, uid string) (*model.Participant, error)
	listFunc             func(ctx context.Context) ([]*model.Participant, error)
	listByHouseFunc      func(ctx context.Context, house string) ([]*model.Participant, error)
	createFunc           func(ctx context.Context, p *model.Participant) (*model.Participant, error)
	incrementCounterFunc func(ctx context.Context, id string, kind model.CounterKind, ceiling int) (bool, error)
	decrementCounterFunc func(ctx context.Context, id string, kind model.CounterKind) error
	setCountersFunc      func(ctx context.Context, id string, c model.Counters) error
	resetAllCountersFunc func(ctx context.Context) error
}

func (m *mockParticipantRepo) GetByID(ctx context.Context, id string) (*model.Participant, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockParticipantRepo) GetByUID(ctx context.Context, uid string) (*model.Participant, error) {
	if m.getByUIDFunc != nil {
		return m.getByUIDFunc(ctx, uid)
	}
	return nil, nil
}

func (m *mockParticipantRepo) List(ctx context.Context) ([]*model.Participant, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx)
	}
	return nil, nil
}

func (m *mockParticipantRepo) ListByHouse(ctx context.Context, house string) ([]*model.Participant, error) {
	if m.listByHouseFunc != nil {
		return m.listByHouseFunc(ctx, house)
	}
	return nil, nil
}

func (m *mockParticipantRepo) Create(ctx context.Context, p *model.Participant) (*model.Participant, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, p)
	}
	return p, nil
}

func (m *mockParticipantRepo) IncrementCounter(ctx context.Context, id string, kind model.CounterKind, ceiling int) (bool, error) {
	if m.incrementCounterFunc != nil {
		return m.incrementCounterFunc(ctx, id, kind, ceiling)
	}
	return true, nil
}

func (m *mockParticipantRepo) DecrementCounter(ctx context.Context, id string, kind model.CounterKind) error {
	if m.decrementCounterFunc != nil {
		return m.decrementCounterFunc(ctx, id, kind)
	}
	return nil
}

func (m *mockParticipantRepo) SetCounters(ctx context.Context, id string, c model.Counters) error {
	if m.setCountersFunc != nil {
		return m.setCountersFunc(ctx, id, c)
	}
	return nil
}

func (m *mockParticipantRepo) ResetAllCounters(ctx context.Context) error {
	if m.resetAllCountersFunc != nil {
		return m.resetAllCountersFunc(ctx)
	}
	return nil
}
