package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/forgo/festreg/internal/model"
)

// EventLister lists canonical events
type EventLister interface {
	List(ctx context.Context) ([]*model.Event, error)
}

// CounterReconciler is the only writer of participant counters. It applies
// per-registration deltas and can rebuild every counter from the live registrations.
type CounterReconciler struct {
	participants  ParticipantRepository
	registrations RegistrationRepository
	events        EventLister
}

// CounterReconcilerConfig holds configuration for the reconciler
type CounterReconcilerConfig struct {
	ParticipantRepo  ParticipantRepository
	RegistrationRepo RegistrationRepository
	Events           EventLister
}

// NewCounterReconciler creates a new counter reconciler
func NewCounterReconciler(cfg CounterReconcilerConfig) *CounterReconciler {
	return &CounterReconciler{
		participants:  cfg.ParticipantRepo,
		registrations: cfg.RegistrationRepo,
		events:        cfg.Events,
	}
}

// counterDelta is one counter a registration feeds, with its ceiling (0 = none)
type counterDelta struct {
	kind    model.CounterKind
	ceiling int
}

// deltasFor returns the counters a registration for this rule affects
func deltasFor(mode model.ParticipationMode, countsTowardLimit, literary bool) []counterDelta {
	if !countsTowardLimit {
		return nil
	}
	deltas := []counterDelta{{kind: mode.CounterKind(), ceiling: mode.Ceiling()}}
	if literary {
		deltas = append(deltas, counterDelta{kind: model.CounterLiterary})
	}
	return deltas
}

// ApplyCreate increments the counters of every named entry. Increments are
// conditional on the ceiling; if any participant is already at it, increments
// made so far are reverted and a ParticipantLimitReached rejection is returned.
func (r *CounterReconciler) ApplyCreate(ctx context.Context, reg *model.Registration, event *model.Event) error {
	deltas := deltasFor(event.Mode, event.CountsTowardLimit, event.IsLiterary())
	if len(deltas) == 0 {
		return nil
	}

	type applied struct {
		id   string
		kind model.CounterKind
	}
	var done []applied
	revert := func() {
		for i := len(done) - 1; i >= 0; i-- {
			if err := r.participants.DecrementCounter(ctx, done[i].id, done[i].kind); err != nil {
				slog.Error("failed to revert counter increment",
					slog.String("participant_id", done[i].id),
					slog.String("counter", string(done[i].kind)),
					slog.String("error", err.Error()))
			}
		}
	}

	for _, rp := range reg.Entries.Participants() {
		for _, d := range deltas {
			ok, err := r.participants.IncrementCounter(ctx, rp.ParticipantID, d.kind, d.ceiling)
			if err != nil {
				revert()
				return fmt.Errorf("failed to increment %s counter for %s: %w", d.kind, rp.UID, err)
			}
			if !ok {
				revert()
				name := rp.Name
				if name == "" {
					name = rp.UID
				}
				return rejectLimitReached(name, rp.UID, event.Mode, d.ceiling)
			}
			done = append(done, applied{id: rp.ParticipantID, kind: d.kind})
		}
	}
	return nil
}

// ApplyDelete decrements the counters of every named entry using the event's
// current rule. When the rule has drifted from the flags recorded at creation
// the counters may end up wrong; that is logged and Resync repairs it.
func (r *CounterReconciler) ApplyDelete(ctx context.Context, reg *model.Registration, event *model.Event) error {
	if reg.Mode != "" && (reg.Mode != event.Mode || reg.CountsTowardLimit != event.CountsTowardLimit) {
		slog.Warn("event rule changed since registration was created; run resync to repair counters",
			slog.String("registration_id", reg.ID),
			slog.String("event", event.Name),
			slog.String("created_mode", string(reg.Mode)),
			slog.String("current_mode", string(event.Mode)),
			slog.Bool("created_counts_toward_limit", reg.CountsTowardLimit),
			slog.Bool("current_counts_toward_limit", event.CountsTowardLimit))
	}

	deltas := deltasFor(event.Mode, event.CountsTowardLimit, event.IsLiterary())
	var errs []error
	for _, rp := range reg.Entries.Participants() {
		for _, d := range deltas {
			if err := r.participants.DecrementCounter(ctx, rp.ParticipantID, d.kind); err != nil {
				errs = append(errs, fmt.Errorf("failed to decrement %s counter for %s: %w", d.kind, rp.UID, err))
			}
		}
	}
	return errors.Join(errs...)
}

// CounterChange records one participant whose counters a resync rewrote
type CounterChange struct {
	ParticipantID string         `json:"participant_id"`
	UID           string         `json:"uid"`
	Before        model.Counters `json:"before"`
	After         model.Counters `json:"after"`
}

// ResyncReport summarizes a resync
type ResyncReport struct {
	Participants  int             `json:"participants"`
	Registrations int             `json:"registrations"`
	Changed       []CounterChange `json:"changed"`
	// UIDs named in registrations that match no participant
	UnknownUIDs []string `json:"unknown_uids,omitempty"`
	// Registrations whose event no longer exists; they count toward nothing
	OrphanedRegistrations []string `json:"orphaned_registrations,omitempty"`
}

// Resync recomputes every participant's counters from the live registrations
// and writes the ones that differ. Running it twice yields the same counters.
func (r *CounterReconciler) Resync(ctx context.Context) (*ResyncReport, error) {
	var (
		events        []*model.Event
		registrations []*model.Registration
		participants  []*model.Participant
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		events, err = r.events.List(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		registrations, err = r.registrations.List(gctx)
		if err != nil {
			return fmt.Errorf("failed to list registrations: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		participants, err = r.participants.List(gctx)
		if err != nil {
			return fmt.Errorf("failed to list participants: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byID := make(map[string]*model.Event, len(events))
	byName := make(map[string]*model.Event, len(events))
	for _, ev := range events {
		byID[ev.ID] = ev
		byName[model.NameKey(ev.Name)] = ev
	}

	report := &ResyncReport{
		Participants:  len(participants),
		Registrations: len(registrations),
		Changed:       make([]CounterChange, 0),
	}

	want := make(map[string]*model.Counters)
	for _, reg := range registrations {
		ev := byID[reg.EventID]
		if ev == nil {
			ev = byName[model.NameKey(reg.EventName)]
		}
		if ev == nil {
			report.OrphanedRegistrations = append(report.OrphanedRegistrations, reg.ID)
			continue
		}
		for _, rp := range reg.Entries.Participants() {
			key := model.NameKey(rp.UID)
			c, ok := want[key]
			if !ok {
				c = &model.Counters{}
				want[key] = c
			}
			for _, d := range deltasFor(ev.Mode, ev.CountsTowardLimit, ev.IsLiterary()) {
				c.Add(d.kind, 1)
			}
		}
	}

	for _, p := range participants {
		key := model.NameKey(p.UID)
		after := model.Counters{}
		if c, ok := want[key]; ok {
			after = *c
			delete(want, key)
		}
		if after == p.Counters {
			continue
		}
		if err := r.participants.SetCounters(ctx, p.ID, after); err != nil {
			return report, fmt.Errorf("failed to set counters for %s: %w", p.UID, err)
		}
		report.Changed = append(report.Changed, CounterChange{
			ParticipantID: p.ID,
			UID:           p.UID,
			Before:        p.Counters,
			After:         after,
		})
	}

	for uid := range want {
		report.UnknownUIDs = append(report.UnknownUIDs, uid)
	}
	sort.Strings(report.UnknownUIDs)

	slog.Info("counters resynced",
		slog.Int("participants", report.Participants),
		slog.Int("registrations", report.Registrations),
		slog.Int("changed", len(report.Changed)))
	return report, nil
}
