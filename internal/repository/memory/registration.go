package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/forgo/festreg/internal/database"
	"github.com/forgo/festreg/internal/model"
)

// RegistrationRepository keeps registrations in memory
type RegistrationRepository struct {
	mu   sync.RWMutex
	byID map[string]*model.Registration
}

// NewRegistrationRepository creates an empty registration repository
func NewRegistrationRepository() *RegistrationRepository {
	return &RegistrationRepository{byID: make(map[string]*model.Registration)}
}

// Create stores the registration if the house is below quota for the event
func (r *RegistrationRepository) Create(ctx context.Context, reg *model.Registration, quota int) (*model.Registration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.countLocked(reg.EventID, reg.House) >= quota {
		return nil, database.ErrLimitExceeded
	}

	stored := cloneRegistration(reg)
	stored.ID = "registration:" + uuid.NewString()
	stored.CreatedOn = time.Now().UTC()
	r.byID[stored.ID] = stored
	return cloneRegistration(stored), nil
}

// Delete removes a registration and returns it
func (r *RegistrationRepository) Delete(ctx context.Context, id string) (*model.Registration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, ok := r.byID[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	delete(r.byID, id)
	return reg, nil
}

// GetByID retrieves a registration by id
func (r *RegistrationRepository) GetByID(ctx context.Context, id string) (*model.Registration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if reg, ok := r.byID[id]; ok {
		return cloneRegistration(reg), nil
	}
	return nil, nil
}

// List returns all registrations, oldest first
func (r *RegistrationRepository) List(ctx context.Context) ([]*model.Registration, error) {
	return r.filter(func(*model.Registration) bool { return true }), nil
}

// FindByHouse returns a house's registrations
func (r *RegistrationRepository) FindByHouse(ctx context.Context, house string) ([]*model.Registration, error) {
	key := model.NameKey(house)
	return r.filter(func(reg *model.Registration) bool { return model.NameKey(reg.House) == key }), nil
}

// FindByEvent returns an event's registrations
func (r *RegistrationRepository) FindByEvent(ctx context.Context, eventID string) ([]*model.Registration, error) {
	return r.filter(func(reg *model.Registration) bool { return reg.EventID == eventID }), nil
}

// FindByEventAndHouse returns a house's registrations for one event
func (r *RegistrationRepository) FindByEventAndHouse(ctx context.Context, eventID, house string) ([]*model.Registration, error) {
	key := model.NameKey(house)
	return r.filter(func(reg *model.Registration) bool {
		return reg.EventID == eventID && model.NameKey(reg.House) == key
	}), nil
}

// CountByEventAndHouse counts a house's registrations for one event
func (r *RegistrationRepository) CountByEventAndHouse(ctx context.Context, eventID, house string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.countLocked(eventID, house), nil
}

// FindByParticipant returns registrations naming the participant by id or uid
func (r *RegistrationRepository) FindByParticipant(ctx context.Context, ref string) ([]*model.Registration, error) {
	return r.filter(func(reg *model.Registration) bool { return reg.Entries.Contains(ref) }), nil
}

// DeleteAll removes every registration and returns how many there were
func (r *RegistrationRepository) DeleteAll(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.byID)
	r.byID = make(map[string]*model.Registration)
	return n, nil
}

func (r *RegistrationRepository) countLocked(eventID, house string) int {
	key := model.NameKey(house)
	n := 0
	for _, reg := range r.byID {
		if reg.EventID == eventID && model.NameKey(reg.House) == key {
			n++
		}
	}
	return n
}

func (r *RegistrationRepository) filter(keep func(*model.Registration) bool) []*model.Registration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*model.Registration, 0)
	for _, reg := range r.byID {
		if keep(reg) {
			out = append(out, cloneRegistration(reg))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedOn.Equal(out[j].CreatedOn) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedOn.Before(out[j].CreatedOn)
	})
	return out
}

func cloneRegistration(reg *model.Registration) *model.Registration {
	c := *reg
	c.Entries = append(model.Entries(nil), reg.Entries...)
	return &c
}
