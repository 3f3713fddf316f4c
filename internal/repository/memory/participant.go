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

// ParticipantRepository keeps participants in memory. Counter updates happen
// under the write lock, so IncrementCounter is atomic.
type ParticipantRepository struct {
	mu    sync.RWMutex
	byID  map[string]*model.Participant
	byUID map[string]string
}

// NewParticipantRepository creates an empty participant repository
func NewParticipantRepository() *ParticipantRepository {
	return &ParticipantRepository{
		byID:  make(map[string]*model.Participant),
		byUID: make(map[string]string),
	}
}

// GetByID retrieves a participant by id
func (r *ParticipantRepository) GetByID(ctx context.Context, id string) (*model.Participant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p, ok := r.byID[id]; ok {
		c := *p
		return &c, nil
	}
	return nil, nil
}

// GetByUID retrieves a participant by case-folded uid
func (r *ParticipantRepository) GetByUID(ctx context.Context, uid string) (*model.Participant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if id, ok := r.byUID[model.NameKey(uid)]; ok {
		c := *r.byID[id]
		return &c, nil
	}
	return nil, nil
}

// List returns all participants ordered by uid
func (r *ParticipantRepository) List(ctx context.Context) ([]*model.Participant, error) {
	return r.filter(func(*model.Participant) bool { return true }), nil
}

// ListByHouse returns one house's participants ordered by uid
func (r *ParticipantRepository) ListByHouse(ctx context.Context, house string) ([]*model.Participant, error) {
	key := model.NameKey(house)
	return r.filter(func(p *model.Participant) bool { return model.NameKey(p.House) == key }), nil
}

func (r *ParticipantRepository) filter(keep func(*model.Participant) bool) []*model.Participant {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*model.Participant, 0)
	for _, p := range r.byID {
		if keep(p) {
			c := *p
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UID < out[j].UID })
	return out
}

// Create stores a new participant
func (r *ParticipantRepository) Create(ctx context.Context, p *model.Participant) (*model.Participant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := model.NameKey(p.UID)
	if _, ok := r.byUID[key]; ok {
		return nil, database.ErrDuplicate
	}
	stored := *p
	if stored.ID == "" {
		stored.ID = "participant:" + uuid.NewString()
	}
	now := time.Now().UTC()
	stored.CreatedOn = now
	stored.UpdatedOn = now

	r.byID[stored.ID] = &stored
	r.byUID[key] = stored.ID
	c := stored
	return &c, nil
}

// IncrementCounter adds one to the counter when it is below ceiling
func (r *ParticipantRepository) IncrementCounter(ctx context.Context, id string, kind model.CounterKind, ceiling int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return false, database.ErrNotFound
	}
	if ceiling > 0 && p.Counters.Get(kind) >= ceiling {
		return false, nil
	}
	p.Counters.Add(kind, 1)
	p.UpdatedOn = time.Now().UTC()
	return true, nil
}

// DecrementCounter subtracts one from the counter, flooring at zero
func (r *ParticipantRepository) DecrementCounter(ctx context.Context, id string, kind model.CounterKind) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return database.ErrNotFound
	}
	p.Counters.Add(kind, -1)
	p.UpdatedOn = time.Now().UTC()
	return nil
}

// SetCounters overwrites all three counters
func (r *ParticipantRepository) SetCounters(ctx context.Context, id string, c model.Counters) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return database.ErrNotFound
	}
	p.Counters = c
	p.UpdatedOn = time.Now().UTC()
	return nil
}

// ResetAllCounters zeroes every participant's counters
func (r *ParticipantRepository) ResetAllCounters(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.byID {
		p.Counters = model.Counters{}
	}
	return nil
}
