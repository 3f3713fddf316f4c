package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/forgo/festreg/internal/database"
	"github.com/forgo/festreg/internal/model"
)

// MaintenanceService runs privileged operations. Each one waits for in-flight
// submissions to drain and blocks new ones until it finishes.
type MaintenanceService struct {
	catalog      *EventCatalog
	reconciler   *CounterReconciler
	regRepo      RegistrationRepository
	participants ParticipantRepository
	houses       HouseRepository
	locks        *Locks
}

// MaintenanceServiceConfig holds configuration for the maintenance service
type MaintenanceServiceConfig struct {
	Catalog          *EventCatalog
	Reconciler       *CounterReconciler
	RegistrationRepo RegistrationRepository
	ParticipantRepo  ParticipantRepository
	HouseRepo        HouseRepository
	Locks            *Locks
}

// NewMaintenanceService creates a new maintenance service
func NewMaintenanceService(cfg MaintenanceServiceConfig) *MaintenanceService {
	locks := cfg.Locks
	if locks == nil {
		locks = NewLocks()
	}
	return &MaintenanceService{
		catalog:      cfg.Catalog,
		reconciler:   cfg.Reconciler,
		regRepo:      cfg.RegistrationRepo,
		participants: cfg.ParticipantRepo,
		houses:       cfg.HouseRepo,
		locks:        locks,
	}
}

// Resync rebuilds every participant counter from the live registrations
func (s *MaintenanceService) Resync(ctx context.Context) (report *ResyncReport, err error) {
	ctx, span := tracer.Start(ctx, "maintenance.resync")
	defer func() { endSpan(span, err) }()

	unlock := s.locks.Maintenance()
	defer unlock()

	return s.reconciler.Resync(ctx)
}

// ClearReport summarizes a bulk clear
type ClearReport struct {
	Deleted int           `json:"deleted"`
	Resync  *ResyncReport `json:"resync"`
}

// ClearRegistrations deletes every registration and zeroes every counter
func (s *MaintenanceService) ClearRegistrations(ctx context.Context) (report *ClearReport, err error) {
	ctx, span := tracer.Start(ctx, "maintenance.clear_registrations")
	defer func() { endSpan(span, err) }()

	unlock := s.locks.Maintenance()
	defer unlock()

	deleted, err := s.regRepo.DeleteAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to delete registrations: %w", err)
	}
	if err := s.participants.ResetAllCounters(ctx); err != nil {
		return nil, fmt.Errorf("failed to reset counters: %w", err)
	}
	// Anything written out of band between the two steps is caught here.
	resync, err := s.reconciler.Resync(ctx)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("deleted", deleted))
	slog.Warn("all registrations cleared", slog.Int("deleted", deleted))
	return &ClearReport{Deleted: deleted, Resync: resync}, nil
}

// OpenRegistrations enables registration for pre-events or for main events
func (s *MaintenanceService) OpenRegistrations(ctx context.Context, preEvents bool) (int, error) {
	return s.setRegistration(ctx, preEvents, true)
}

// CloseRegistrations disables registration for pre-events or for main events
func (s *MaintenanceService) CloseRegistrations(ctx context.Context, preEvents bool) (int, error) {
	return s.setRegistration(ctx, preEvents, false)
}

func (s *MaintenanceService) setRegistration(ctx context.Context, preEvents, enabled bool) (int, error) {
	unlock := s.locks.Maintenance()
	defer unlock()

	n, err := s.catalog.SetRegistrationEnabledWhere(ctx, EventFilter{PreEvent: &preEvents}, enabled)
	if err != nil {
		return n, err
	}
	slog.Info("registration toggled in bulk",
		slog.Bool("pre_events", preEvents),
		slog.Bool("enabled", enabled),
		slog.Int("events", n))
	return n, nil
}

// ToggleRegistration flips registration for one event
func (s *MaintenanceService) ToggleRegistration(ctx context.Context, ref string) (*model.Event, error) {
	unlock := s.locks.Maintenance()
	defer unlock()

	return s.catalog.ToggleRegistration(ctx, ref)
}

// DefineEvent creates or replaces an event definition
func (s *MaintenanceService) DefineEvent(ctx context.Context, rec *model.EventRecord) (*model.Event, error) {
	unlock := s.locks.Maintenance()
	defer unlock()

	return s.catalog.Define(ctx, rec)
}

// UpdateEvent replaces an existing event definition in place. The id is kept,
// so stored registrations and counters stay attached across a rename.
func (s *MaintenanceService) UpdateEvent(ctx context.Context, ref string, rec *model.EventRecord) (*model.Event, error) {
	unlock := s.locks.Maintenance()
	defer unlock()

	ev, err := s.catalog.Update(ctx, ref, rec)
	if err != nil {
		return nil, err
	}
	slog.Info("event updated", slog.String("event_id", ev.ID), slog.String("event", ev.Name))
	return ev, nil
}

// DeleteEvent removes an event that no live registration references
func (s *MaintenanceService) DeleteEvent(ctx context.Context, ref string) (*model.Event, error) {
	unlock := s.locks.Maintenance()
	defer unlock()

	ev, err := s.catalog.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	live, err := s.regRepo.FindByEvent(ctx, ev.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load event registrations: %w", err)
	}
	if len(live) > 0 {
		return nil, fmt.Errorf("%w: %s has %d registration(s)", ErrEventInUse, ev.Name, len(live))
	}

	deleted, err := s.catalog.Delete(ctx, ev.ID)
	if err != nil {
		return nil, err
	}
	slog.Warn("event deleted", slog.String("event_id", deleted.ID), slog.String("event", deleted.Name))
	return deleted, nil
}

// SeedReport summarizes a catalog seed
type SeedReport struct {
	Houses       int `json:"houses"`
	Events       int `json:"events"`
	Participants int `json:"participants"`
	Skipped      int `json:"skipped"`
}

// SeedCatalog loads houses, events and participants. Events are upserted by
// name; houses and participants that already exist are skipped.
func (s *MaintenanceService) SeedCatalog(ctx context.Context, cat *model.Catalog) (report *SeedReport, err error) {
	ctx, span := tracer.Start(ctx, "maintenance.seed_catalog", trace.WithAttributes(
		attribute.Int("houses", len(cat.Houses)),
		attribute.Int("events", len(cat.Events)),
		attribute.Int("participants", len(cat.Participants)),
	))
	defer func() { endSpan(span, err) }()

	unlock := s.locks.Maintenance()
	defer unlock()

	report = &SeedReport{}
	for _, h := range cat.Houses {
		if _, err := s.houses.Create(ctx, h); err != nil {
			if errors.Is(err, database.ErrDuplicate) {
				report.Skipped++
				continue
			}
			return report, fmt.Errorf("failed to seed house %s: %w", h.Name, err)
		}
		report.Houses++
	}
	for _, rec := range cat.Events {
		if _, err := s.catalog.Define(ctx, rec); err != nil {
			return report, fmt.Errorf("failed to seed event %s: %w", rec.Name, err)
		}
		report.Events++
	}
	for _, p := range cat.Participants {
		p.Counters = model.Counters{}
		if _, err := s.participants.Create(ctx, p); err != nil {
			if errors.Is(err, database.ErrDuplicate) {
				report.Skipped++
				continue
			}
			return report, fmt.Errorf("failed to seed participant %s: %w", p.UID, err)
		}
		report.Participants++
	}

	slog.Info("catalog seeded",
		slog.Int("houses", report.Houses),
		slog.Int("events", report.Events),
		slog.Int("participants", report.Participants),
		slog.Int("skipped", report.Skipped))
	return report, nil
}
