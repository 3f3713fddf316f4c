// Package memory provides process-local repository implementations used by
// tests and single-instance development servers.
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

// HouseRepository keeps houses in memory
type HouseRepository struct {
	mu     sync.RWMutex
	byName map[string]*model.House
}

// NewHouseRepository creates an empty house repository
func NewHouseRepository() *HouseRepository {
	return &HouseRepository{byName: make(map[string]*model.House)}
}

// List returns all houses ordered by name
func (r *HouseRepository) List(ctx context.Context) ([]*model.House, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*model.House, 0, len(r.byName))
	for _, h := range r.byName {
		c := *h
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// GetByName retrieves a house by case-folded name
func (r *HouseRepository) GetByName(ctx context.Context, name string) (*model.House, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if h, ok := r.byName[model.NameKey(name)]; ok {
		c := *h
		return &c, nil
	}
	return nil, nil
}

// Create stores a new house
func (r *HouseRepository) Create(ctx context.Context, h *model.House) (*model.House, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := model.NameKey(h.Name)
	if _, ok := r.byName[key]; ok {
		return nil, database.ErrDuplicate
	}
	stored := *h
	if stored.ID == "" {
		stored.ID = "house:" + uuid.NewString()
	}
	stored.CreatedOn = time.Now().UTC()
	r.byName[key] = &stored
	c := stored
	return &c, nil
}
