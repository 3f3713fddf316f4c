package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/forgo/festreg/internal/database"
	"github.com/forgo/festreg/internal/model"
)

var tracer = otel.Tracer("github.com/forgo/festreg/internal/service")

// RegistrationRepository defines the interface for registration storage
type RegistrationRepository interface {
	// Create stores the registration only if the house holds fewer than quota
	// registrations for the event; otherwise it returns database.ErrLimitExceeded.
	Create(ctx context.Context, reg *model.Registration, quota int) (*model.Registration, error)
	// Delete removes the registration and returns it as it was stored
	Delete(ctx context.Context, id string) (*model.Registration, error)
	GetByID(ctx context.Context, id string) (*model.Registration, error)
	List(ctx context.Context) ([]*model.Registration, error)
	FindByHouse(ctx context.Context, house string) ([]*model.Registration, error)
	FindByEvent(ctx context.Context, eventID string) ([]*model.Registration, error)
	FindByEventAndHouse(ctx context.Context, eventID, house string) ([]*model.Registration, error)
	CountByEventAndHouse(ctx context.Context, eventID, house string) (int, error)
	// FindByParticipant matches entries by participant id or uid
	FindByParticipant(ctx context.Context, ref string) ([]*model.Registration, error)
	DeleteAll(ctx context.Context) (int, error)
}

// RegistrationService accepts and withdraws registrations
type RegistrationService struct {
	catalog      *EventCatalog
	validator    *RegistrationValidator
	reconciler   *CounterReconciler
	regRepo      RegistrationRepository
	participants ParticipantRepository
	locks        *Locks
}

// RegistrationServiceConfig holds configuration for the registration service
type RegistrationServiceConfig struct {
	Catalog          *EventCatalog
	Validator        *RegistrationValidator
	Reconciler       *CounterReconciler
	RegistrationRepo RegistrationRepository
	ParticipantRepo  ParticipantRepository
	Locks            *Locks // Optional, shared with MaintenanceService
}

// NewRegistrationService creates a new registration service
func NewRegistrationService(cfg RegistrationServiceConfig) *RegistrationService {
	locks := cfg.Locks
	if locks == nil {
		locks = NewLocks()
	}
	return &RegistrationService{
		catalog:      cfg.Catalog,
		validator:    cfg.Validator,
		reconciler:   cfg.Reconciler,
		regRepo:      cfg.RegistrationRepo,
		participants: cfg.ParticipantRepo,
		locks:        locks,
	}
}

// Submit validates a candidate and, if accepted, stores it and applies counter deltas.
// On any failure nothing is left behind.
func (s *RegistrationService) Submit(ctx context.Context, c *model.Candidate) (reg *model.Registration, err error) {
	ctx, span := tracer.Start(ctx, "registration.submit", trace.WithAttributes(
		attribute.String("event", c.EventName),
		attribute.String("house", c.House),
		attribute.Int("entries", len(c.Entries)),
	))
	defer func() { endSpan(span, err) }()

	// The event lock is keyed by id, so the lock set is resolved before
	// validation. If the event changes identity in between, start over.
	for attempt := 0; attempt < 2; attempt++ {
		eventID, uids := s.lockKeys(ctx, c)
		unlock := s.locks.Registration(eventID, uids)
		reg, retry, err := s.submitLocked(ctx, c, eventID)
		unlock()
		if !retry {
			return reg, err
		}
	}
	return nil, fmt.Errorf("event %s changed during submission", c.EventName)
}

func (s *RegistrationService) submitLocked(ctx context.Context, c *model.Candidate, lockedEventID string) (*model.Registration, bool, error) {
	decision, err := s.validator.Validate(ctx, c)
	if err != nil {
		return nil, false, err
	}
	if decision.Event.ID != lockedEventID {
		return nil, true, nil
	}

	created, err := s.regRepo.Create(ctx, decision.Registration(), decision.Event.MaxRegistrations)
	if err != nil {
		if errors.Is(err, database.ErrLimitExceeded) {
			return nil, false, rejectHouseQuota(decision.House, decision.Event.Name, decision.Event.MaxRegistrations)
		}
		return nil, false, fmt.Errorf("failed to create registration: %w", err)
	}

	if err := s.reconciler.ApplyCreate(ctx, created, decision.Event); err != nil {
		if _, rbErr := s.regRepo.Delete(ctx, created.ID); rbErr != nil {
			slog.Error("failed to roll back registration",
				slog.String("registration_id", created.ID),
				slog.String("error", rbErr.Error()))
		}
		return nil, false, err
	}

	slog.Info("registration accepted",
		slog.String("registration_id", created.ID),
		slog.String("event", created.EventName),
		slog.String("house", created.House),
		slog.Int("entries", len(created.Entries)))
	return created, false, nil
}

// lockKeys resolves the event id and participant uids a submission touches.
// Lookup failures yield empty keys; validation reports them.
func (s *RegistrationService) lockKeys(ctx context.Context, c *model.Candidate) (string, []string) {
	var eventID string
	if ev, err := s.catalog.Resolve(ctx, c.EventName); err == nil {
		eventID = ev.ID
	}

	uids := make([]string, 0, len(c.Entries))
	for _, rp := range c.Entries.Participants() {
		p, err := lookupParticipant(ctx, s.participants, rp)
		if err != nil || p == nil {
			continue
		}
		uids = append(uids, model.NameKey(p.UID))
	}
	return eventID, uids
}

// Delete withdraws a registration and reverses its counter deltas using the event's current rule.
func (s *RegistrationService) Delete(ctx context.Context, id string) (deleted *model.Registration, err error) {
	ctx, span := tracer.Start(ctx, "registration.delete", trace.WithAttributes(
		attribute.String("registration_id", id),
	))
	defer func() { endSpan(span, err) }()

	existing, err := s.regRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get registration: %w", err)
	}
	if existing == nil {
		return nil, ErrRegistrationNotFound
	}

	uids := make([]string, 0, len(existing.Entries))
	for _, rp := range existing.Entries.Participants() {
		uids = append(uids, model.NameKey(rp.UID))
	}
	unlock := s.locks.Registration(existing.EventID, uids)
	defer unlock()

	deleted, err = s.regRepo.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrRegistrationNotFound
		}
		return nil, fmt.Errorf("failed to delete registration: %w", err)
	}

	event, err := s.catalog.Resolve(ctx, deleted.EventID)
	if err != nil {
		// The event is gone; fall back to the flags recorded at creation.
		slog.Warn("event missing for deleted registration, using recorded rule",
			slog.String("registration_id", deleted.ID),
			slog.String("event", deleted.EventName))
		event = &model.Event{
			ID:                deleted.EventID,
			Name:              deleted.EventName,
			Mode:              deleted.Mode,
			CountsTowardLimit: deleted.CountsTowardLimit,
		}
	}

	if err := s.reconciler.ApplyDelete(ctx, deleted, event); err != nil {
		slog.Error("failed to reverse counters; resync required",
			slog.String("registration_id", deleted.ID),
			slog.String("error", err.Error()))
		return deleted, fmt.Errorf("registration deleted but counters not reversed: %w", err)
	}

	slog.Info("registration deleted",
		slog.String("registration_id", deleted.ID),
		slog.String("event", deleted.EventName),
		slog.String("house", deleted.House))
	return deleted, nil
}

// Get retrieves a registration by id
func (s *RegistrationService) Get(ctx context.Context, id string) (*model.Registration, error) {
	reg, err := s.regRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get registration: %w", err)
	}
	if reg == nil {
		return nil, ErrRegistrationNotFound
	}
	return reg, nil
}

// List returns registrations matching every non-empty filter field
func (s *RegistrationService) List(ctx context.Context, f model.RegistrationFilter) ([]*model.Registration, error) {
	var eventID string
	if f.Event != "" {
		ev, err := s.catalog.Resolve(ctx, f.Event)
		if err != nil {
			return nil, err
		}
		eventID = ev.ID
	}

	var (
		regs []*model.Registration
		err  error
	)
	switch {
	case eventID != "" && f.House != "":
		regs, err = s.regRepo.FindByEventAndHouse(ctx, eventID, f.House)
	case eventID != "":
		regs, err = s.regRepo.FindByEvent(ctx, eventID)
	case f.House != "":
		regs, err = s.regRepo.FindByHouse(ctx, f.House)
	case f.Participant != "":
		regs, err = s.regRepo.FindByParticipant(ctx, f.Participant)
	default:
		regs, err = s.regRepo.List(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations: %w", err)
	}

	if f.Participant == "" || (eventID == "" && f.House == "") {
		return regs, nil
	}
	filtered := make([]*model.Registration, 0, len(regs))
	for _, r := range regs {
		if r.Entries.Contains(f.Participant) {
			filtered = append(filtered, r)
		}
	}
	return filtered, nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		if rej, ok := AsRejection(err); ok {
			span.SetAttributes(attribute.String("rejection", string(rej.Code)))
		} else {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}
	span.End()
}
