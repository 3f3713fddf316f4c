package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/forgo/festreg/internal/database"
	"github.com/forgo/festreg/internal/model"
)

// EventRepository defines the interface for event storage.
// Implementations hand back records exactly as stored; normalization is the catalog's job.
type EventRepository interface {
	GetByID(ctx context.Context, id string) (*model.EventRecord, error)
	// GetByName looks up by model.NameKey
	GetByName(ctx context.Context, name string) (*model.EventRecord, error)
	List(ctx context.Context) ([]*model.EventRecord, error)
	// Upsert creates or replaces the record with the same name key
	Upsert(ctx context.Context, rec *model.EventRecord) (*model.EventRecord, error)
	// Update replaces the record stored under id, renaming it if the name changed.
	// It returns database.ErrNotFound for an unknown id and database.ErrDuplicate
	// when the new name belongs to another event.
	Update(ctx context.Context, id string, rec *model.EventRecord) (*model.EventRecord, error)
	// Delete removes the record stored under id or returns database.ErrNotFound
	Delete(ctx context.Context, id string) error
	SetRegistrationEnabled(ctx context.Context, id string, enabled bool) error
}

// EventFilter selects events for bulk updates
type EventFilter struct {
	PreEvent *bool
}

func (f EventFilter) matches(e *model.Event) bool {
	if f.PreEvent != nil && e.IsPreEvent != *f.PreEvent {
		return false
	}
	return true
}

// EventCatalog resolves event references into canonical rule records
type EventCatalog struct {
	repo EventRepository
}

// NewEventCatalog creates a new event catalog
func NewEventCatalog(repo EventRepository) *EventCatalog {
	return &EventCatalog{repo: repo}
}

// Resolve finds an event by id or by name (case-insensitive) and normalizes it
func (c *EventCatalog) Resolve(ctx context.Context, ref string) (*model.Event, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, ErrEventNotFound
	}

	rec, err := c.repo.GetByID(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	if rec == nil {
		rec, err = c.repo.GetByName(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("failed to get event: %w", err)
		}
	}
	if rec == nil {
		return nil, ErrEventNotFound
	}

	return Normalize(rec)
}

// List returns every event that normalizes cleanly. Malformed records are logged and skipped.
func (c *EventCatalog) List(ctx context.Context) ([]*model.Event, error) {
	recs, err := c.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	events := make([]*model.Event, 0, len(recs))
	for _, rec := range recs {
		ev, err := Normalize(rec)
		if err != nil {
			slog.Warn("skipping malformed event record",
				slog.String("event", rec.Name),
				slog.String("error", err.Error()))
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

// Define validates a record and stores it in canonical form, replacing any event with the same name
func (c *EventCatalog) Define(ctx context.Context, rec *model.EventRecord) (*model.Event, error) {
	ev, err := Normalize(rec)
	if err != nil {
		return nil, err
	}

	stored, err := c.repo.Upsert(ctx, model.RecordFromEvent(ev))
	if err != nil {
		return nil, fmt.Errorf("failed to store event: %w", err)
	}
	return Normalize(stored)
}

// Update replaces the definition of an existing event, keeping its id. A
// record that leaves registrationEnabled unset keeps the current flag.
func (c *EventCatalog) Update(ctx context.Context, ref string, rec *model.EventRecord) (*model.Event, error) {
	current, err := c.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	if rec.RegistrationEnabled == nil {
		rec.RegistrationEnabled = model.BoolPtr(current.RegistrationEnabled)
	}
	ev, err := Normalize(rec)
	if err != nil {
		return nil, err
	}

	stored, err := c.repo.Update(ctx, current.ID, model.RecordFromEvent(ev))
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrEventNotFound
		}
		if errors.Is(err, database.ErrDuplicate) {
			return nil, fmt.Errorf("%w: %s", ErrEventExists, ev.Name)
		}
		return nil, fmt.Errorf("failed to update event: %w", err)
	}
	return Normalize(stored)
}

// Delete removes an event by id or name and returns it as it was
func (c *EventCatalog) Delete(ctx context.Context, ref string) (*model.Event, error) {
	ev, err := c.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	if err := c.repo.Delete(ctx, ev.ID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to delete event: %w", err)
	}
	return ev, nil
}

// SetRegistrationEnabled opens or closes registration for one event
func (c *EventCatalog) SetRegistrationEnabled(ctx context.Context, ref string, enabled bool) (*model.Event, error) {
	ev, err := c.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	if err := c.repo.SetRegistrationEnabled(ctx, ev.ID, enabled); err != nil {
		return nil, fmt.Errorf("failed to update event: %w", err)
	}
	ev.RegistrationEnabled = enabled
	return ev, nil
}

// ToggleRegistration flips registrationEnabled for one event
func (c *EventCatalog) ToggleRegistration(ctx context.Context, ref string) (*model.Event, error) {
	ev, err := c.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	return c.SetRegistrationEnabled(ctx, ev.ID, !ev.RegistrationEnabled)
}

// SetRegistrationEnabledWhere updates every matching event and returns how many changed
func (c *EventCatalog) SetRegistrationEnabledWhere(ctx context.Context, filter EventFilter, enabled bool) (int, error) {
	events, err := c.List(ctx)
	if err != nil {
		return 0, err
	}

	changed := 0
	for _, ev := range events {
		if !filter.matches(ev) || ev.RegistrationEnabled == enabled {
			continue
		}
		if err := c.repo.SetRegistrationEnabled(ctx, ev.ID, enabled); err != nil {
			return changed, fmt.Errorf("failed to update event %s: %w", ev.Name, err)
		}
		changed++
	}
	return changed, nil
}

// Normalize maps a stored record onto the canonical Event. The current limit
// names win over the legacy ones; absent fields take the catalog defaults.
func Normalize(rec *model.EventRecord) (*model.Event, error) {
	name := strings.TrimSpace(rec.Name)
	if name == "" {
		return nil, ErrEventNameRequired
	}

	mode := model.ParticipationMode(strings.TrimSpace(rec.ParticipationMode))
	switch {
	case mode == "":
		mode = model.ModeIndividual
	case strings.EqualFold(string(mode), string(model.ModeIndividual)):
		mode = model.ModeIndividual
	case strings.EqualFold(string(mode), string(model.ModeGroup)):
		mode = model.ModeGroup
	default:
		return nil, fmt.Errorf("%w: %s has unknown participation mode %q", ErrInvalidEventRules, name, rec.ParticipationMode)
	}

	ev := &model.Event{
		ID:                  rec.ID,
		Name:                name,
		Mode:                mode,
		Type:                rec.Type,
		Category:            rec.Category,
		Venue:               rec.Venue,
		Date:                rec.Date,
		MinTeamSize:         firstInt(model.DefaultMinTeamSize, rec.MinTeamSize, rec.MinIndividualLimit),
		MaxTeamSize:         firstInt(model.DefaultMaxTeamSize, rec.MaxTeamSize, rec.MaxIndividualLimit),
		MinRegistrations:    firstInt(model.DefaultMinRegistrations, rec.MinRegistrations),
		MaxRegistrations:    firstInt(model.DefaultMaxRegistrations, rec.MaxRegistrations, rec.TeamLimit),
		CountsTowardLimit:   firstBool(true, rec.CountsTowardLimit),
		IsPreEvent:          firstBool(strings.EqualFold(rec.Category, model.CategoryPreEvent), rec.IsPreEvent),
		RegistrationEnabled: firstBool(true, rec.RegistrationEnabled),
		CreatedOn:           rec.CreatedOn,
		UpdatedOn:           rec.UpdatedOn,
	}

	if ev.MinTeamSize < 1 || ev.MinTeamSize > ev.MaxTeamSize {
		return nil, fmt.Errorf("%w: %s team size bounds %d..%d", ErrInvalidEventRules, name, ev.MinTeamSize, ev.MaxTeamSize)
	}
	if ev.MinRegistrations < 0 || ev.MinRegistrations > ev.MaxRegistrations {
		return nil, fmt.Errorf("%w: %s registration bounds %d..%d", ErrInvalidEventRules, name, ev.MinRegistrations, ev.MaxRegistrations)
	}
	return ev, nil
}

func firstInt(def int, vals ...*int) int {
	for _, v := range vals {
		if v != nil {
			return *v
		}
	}
	return def
}

func firstBool(def bool, vals ...*bool) bool {
	for _, v := range vals {
		if v != nil {
			return *v
		}
	}
	return def
}
