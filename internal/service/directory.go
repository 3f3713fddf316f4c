package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/forgo/festreg/internal/database"
	"github.com/forgo/festreg/internal/model"
)

// ParticipantRepository defines the interface for participant storage.
// Counter mutations are reserved for the CounterReconciler.
type ParticipantRepository interface {
	GetByID(ctx context.Context, id string) (*model.Participant, error)
	// GetByUID matches uids case-insensitively
	GetByUID(ctx context.Context, uid string) (*model.Participant, error)
	List(ctx context.Context) ([]*model.Participant, error)
	ListByHouse(ctx context.Context, house string) ([]*model.Participant, error)
	// Create returns database.ErrDuplicate when the uid is taken
	Create(ctx context.Context, p *model.Participant) (*model.Participant, error)
	// IncrementCounter adds one to the counter if it is below ceiling (ceiling <= 0 means
	// no ceiling) and reports whether it did. The check and write are atomic.
	IncrementCounter(ctx context.Context, id string, kind model.CounterKind, ceiling int) (bool, error)
	// DecrementCounter subtracts one, never going below zero
	DecrementCounter(ctx context.Context, id string, kind model.CounterKind) error
	SetCounters(ctx context.Context, id string, c model.Counters) error
	ResetAllCounters(ctx context.Context) error
}

// HouseRepository defines the interface for house storage
type HouseRepository interface {
	List(ctx context.Context) ([]*model.House, error)
	// GetByName looks up by model.NameKey
	GetByName(ctx context.Context, name string) (*model.House, error)
	// Create returns database.ErrDuplicate when the name is taken
	Create(ctx context.Context, h *model.House) (*model.House, error)
}

// DirectoryService serves read access to houses and participants
type DirectoryService struct {
	catalog      *EventCatalog
	participants ParticipantRepository
	houses       HouseRepository
	regRepo      RegistrationRepository
}

// DirectoryServiceConfig holds configuration for the directory service
type DirectoryServiceConfig struct {
	Catalog          *EventCatalog
	ParticipantRepo  ParticipantRepository
	HouseRepo        HouseRepository
	RegistrationRepo RegistrationRepository
}

// NewDirectoryService creates a new directory service
func NewDirectoryService(cfg DirectoryServiceConfig) *DirectoryService {
	return &DirectoryService{
		catalog:      cfg.Catalog,
		participants: cfg.ParticipantRepo,
		houses:       cfg.HouseRepo,
		regRepo:      cfg.RegistrationRepo,
	}
}

// GetParticipant resolves a participant by id or uid
func (s *DirectoryService) GetParticipant(ctx context.Context, ref string) (*model.Participant, error) {
	ref = strings.TrimSpace(ref)
	p, err := lookupParticipant(ctx, s.participants, model.RealParticipant{ParticipantID: ref, UID: ref})
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrParticipantNotFound
	}
	return p, nil
}

// ListParticipants returns all participants, or one house's when house is set
func (s *DirectoryService) ListParticipants(ctx context.Context, house string) ([]*model.Participant, error) {
	var (
		list []*model.Participant
		err  error
	)
	if house != "" {
		list, err = s.participants.ListByHouse(ctx, house)
	} else {
		list, err = s.participants.List(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	return list, nil
}

// CreateParticipant adds a participant with zeroed counters
func (s *DirectoryService) CreateParticipant(ctx context.Context, p *model.Participant) (*model.Participant, error) {
	p.UID = strings.TrimSpace(p.UID)
	if p.UID == "" {
		return nil, rejectMissingField("uid")
	}
	p.Counters = model.Counters{}
	created, err := s.participants.Create(ctx, p)
	if err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, ErrParticipantExists
		}
		return nil, fmt.Errorf("failed to create participant: %w", err)
	}
	return created, nil
}

// ListHouses returns every house
func (s *DirectoryService) ListHouses(ctx context.Context) ([]*model.House, error) {
	houses, err := s.houses.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list houses: %w", err)
	}
	return houses, nil
}

// CreateHouse adds a house
func (s *DirectoryService) CreateHouse(ctx context.Context, h *model.House) (*model.House, error) {
	h.Name = strings.TrimSpace(h.Name)
	if h.Name == "" {
		return nil, rejectMissingField("name")
	}
	created, err := s.houses.Create(ctx, h)
	if err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, ErrHouseExists
		}
		return nil, fmt.Errorf("failed to create house: %w", err)
	}
	return created, nil
}

// HouseStatus reports the house's registration count for every event against
// its quota bounds. Shortfall is how many more it needs to reach the minimum.
func (s *DirectoryService) HouseStatus(ctx context.Context, name string) (*model.HouseStatus, error) {
	house, err := s.houses.GetByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to get house: %w", err)
	}
	if house == nil {
		return nil, ErrHouseNotFound
	}

	events, err := s.catalog.List(ctx)
	if err != nil {
		return nil, err
	}
	regs, err := s.regRepo.FindByHouse(ctx, house.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to list house registrations: %w", err)
	}

	counts := make(map[string]int, len(events))
	for _, r := range regs {
		counts[r.EventID]++
	}

	status := &model.HouseStatus{House: house.Name, Events: make([]model.EventQuota, 0, len(events))}
	for _, ev := range events {
		n := counts[ev.ID]
		status.Events = append(status.Events, model.EventQuota{
			EventID:          ev.ID,
			EventName:        ev.Name,
			Registered:       n,
			MinRegistrations: ev.MinRegistrations,
			MaxRegistrations: ev.MaxRegistrations,
			Shortfall:        max(ev.MinRegistrations-n, 0),
			Full:             n >= ev.MaxRegistrations,
		})
	}
	sort.Slice(status.Events, func(i, j int) bool {
		return status.Events[i].EventName < status.Events[j].EventName
	})
	return status, nil
}
