package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/forgo/festreg/internal/database"
	"github.com/forgo/festreg/internal/model"
)

// EventRepository keeps event records in memory
type EventRepository struct {
	mu     sync.RWMutex
	byID   map[string]*model.EventRecord
	byName map[string]string
}

// NewEventRepository creates an empty event repository
func NewEventRepository() *EventRepository {
	return &EventRepository{
		byID:   make(map[string]*model.EventRecord),
		byName: make(map[string]string),
	}
}

// GetByID retrieves an event record by id
func (r *EventRepository) GetByID(ctx context.Context, id string) (*model.EventRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if rec, ok := r.byID[id]; ok {
		return cloneEvent(rec), nil
	}
	return nil, nil
}

// GetByName retrieves an event record by case-folded name
func (r *EventRepository) GetByName(ctx context.Context, name string) (*model.EventRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if id, ok := r.byName[model.NameKey(name)]; ok {
		return cloneEvent(r.byID[id]), nil
	}
	return nil, nil
}

// List returns all event records ordered by name
func (r *EventRepository) List(ctx context.Context) ([]*model.EventRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*model.EventRecord, 0, len(r.byID))
	for _, rec := range r.byID {
		out = append(out, cloneEvent(rec))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Upsert stores the record, replacing any record with the same name key
func (r *EventRepository) Upsert(ctx context.Context, rec *model.EventRecord) (*model.EventRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	stored := cloneEvent(rec)
	key := model.NameKey(rec.Name)
	if id, ok := r.byName[key]; ok {
		stored.ID = id
		stored.CreatedOn = r.byID[id].CreatedOn
	} else {
		if stored.ID == "" {
			stored.ID = "event:" + uuid.NewString()
		}
		stored.CreatedOn = now
	}
	stored.UpdatedOn = now

	r.byID[stored.ID] = stored
	r.byName[key] = stored.ID
	return cloneEvent(stored), nil
}

// Update replaces the record stored under id and moves its name key on rename
func (r *EventRepository) Update(ctx context.Context, id string, rec *model.EventRecord) (*model.EventRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.byID[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	key := model.NameKey(rec.Name)
	if owner, taken := r.byName[key]; taken && owner != id {
		return nil, fmt.Errorf("%w: event %s", database.ErrDuplicate, rec.Name)
	}

	stored := cloneEvent(rec)
	stored.ID = id
	stored.CreatedOn = current.CreatedOn
	stored.UpdatedOn = time.Now().UTC()

	delete(r.byName, model.NameKey(current.Name))
	r.byID[id] = stored
	r.byName[key] = id
	return cloneEvent(stored), nil
}

// Delete removes the record stored under id
func (r *EventRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.byID[id]
	if !ok {
		return database.ErrNotFound
	}
	delete(r.byName, model.NameKey(rec.Name))
	delete(r.byID, id)
	return nil
}

// SetRegistrationEnabled updates the registration flag of one event
func (r *EventRepository) SetRegistrationEnabled(ctx context.Context, id string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.byID[id]
	if !ok {
		return database.ErrNotFound
	}
	rec.RegistrationEnabled = model.BoolPtr(enabled)
	rec.UpdatedOn = time.Now().UTC()
	return nil
}

func cloneEvent(rec *model.EventRecord) *model.EventRecord {
	c := *rec
	c.MinTeamSize = cloneInt(rec.MinTeamSize)
	c.MaxTeamSize = cloneInt(rec.MaxTeamSize)
	c.MinRegistrations = cloneInt(rec.MinRegistrations)
	c.MaxRegistrations = cloneInt(rec.MaxRegistrations)
	c.MinIndividualLimit = cloneInt(rec.MinIndividualLimit)
	c.MaxIndividualLimit = cloneInt(rec.MaxIndividualLimit)
	c.TeamLimit = cloneInt(rec.TeamLimit)
	c.CountsTowardLimit = cloneBool(rec.CountsTowardLimit)
	c.IsPreEvent = cloneBool(rec.IsPreEvent)
	c.RegistrationEnabled = cloneBool(rec.RegistrationEnabled)
	return &c
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneBool(p *bool) *bool {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
