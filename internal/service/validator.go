package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/forgo/festreg/internal/model"
)

// DefaultDiversityEvents are the literary events that need a multilingual roster
var DefaultDiversityEvents = []string{"Essay Writing", "Short Story", "Poetry"}

// DefaultMinLanguages is the distinct-language floor for diversity events
const DefaultMinLanguages = 2

// EventResolver looks up canonical events
type EventResolver interface {
	Resolve(ctx context.Context, ref string) (*model.Event, error)
}

// RegistrationValidator decides whether a candidate registration may be stored.
// It never writes.
type RegistrationValidator struct {
	events        EventResolver
	registrations RegistrationRepository
	participants  ParticipantRepository
	diversity     map[string]struct{}
	minLanguages  int
}

// RegistrationValidatorConfig holds configuration for the validator
type RegistrationValidatorConfig struct {
	Events           EventResolver
	RegistrationRepo RegistrationRepository
	ParticipantRepo  ParticipantRepository
	DiversityEvents  []string // Optional, defaults to DefaultDiversityEvents
	MinLanguages     int      // Optional, defaults to DefaultMinLanguages
}

// NewRegistrationValidator creates a new registration validator
func NewRegistrationValidator(cfg RegistrationValidatorConfig) *RegistrationValidator {
	names := cfg.DiversityEvents
	if len(names) == 0 {
		names = DefaultDiversityEvents
	}
	diversity := make(map[string]struct{}, len(names))
	for _, n := range names {
		diversity[model.NameKey(n)] = struct{}{}
	}
	minLanguages := cfg.MinLanguages
	if minLanguages <= 0 {
		minLanguages = DefaultMinLanguages
	}
	return &RegistrationValidator{
		events:        cfg.Events,
		registrations: cfg.RegistrationRepo,
		participants:  cfg.ParticipantRepo,
		diversity:     diversity,
		minLanguages:  minLanguages,
	}
}

// Decision is an accepted candidate, resolved and ready to store
type Decision struct {
	Event        *model.Event
	House        string
	Entries      model.Entries
	Participants []*model.Participant
	Placeholder  bool
}

// Registration builds the record to persist
func (d *Decision) Registration() *model.Registration {
	return &model.Registration{
		EventID:           d.Event.ID,
		EventName:         d.Event.Name,
		House:             d.House,
		Entries:           d.Entries,
		Mode:              d.Event.Mode,
		CountsTowardLimit: d.Event.CountsTowardLimit,
	}
}

// Validate runs the eligibility checks in their fixed order and stops at the first failure.
// Rule violations are returned as *RejectionError; anything else is a storage failure.
func (v *RegistrationValidator) Validate(ctx context.Context, c *model.Candidate) (*Decision, error) {
	if rej := checkStructure(c); rej != nil {
		return nil, rej
	}

	event, err := v.events.Resolve(ctx, c.EventName)
	if err != nil {
		if errors.Is(err, ErrEventNotFound) {
			return nil, rejectEventNotFound(c.EventName)
		}
		return nil, err
	}
	if !event.RegistrationEnabled {
		return nil, rejectRegistrationClosed(event.Name)
	}

	placeholder := c.Entries.HasPlaceholder()

	if !placeholder {
		n := len(c.Entries)
		if n < event.MinTeamSize || n > event.MaxTeamSize {
			return nil, rejectTeamSize(event.Name, event.MinTeamSize, event.MaxTeamSize, n)
		}
	}

	count, err := v.registrations.CountByEventAndHouse(ctx, event.ID, c.House)
	if err != nil {
		return nil, fmt.Errorf("failed to count house registrations: %w", err)
	}
	if count >= event.MaxRegistrations {
		return nil, rejectHouseQuota(c.House, event.Name, event.MaxRegistrations)
	}

	decision := &Decision{
		Event:       event,
		House:       c.House,
		Placeholder: placeholder,
	}
	if placeholder {
		decision.Entries = c.Entries
		return decision, nil
	}

	people, entries, err := v.resolveParticipants(ctx, c.Entries)
	if err != nil {
		return nil, err
	}
	decision.Participants = people
	decision.Entries = entries

	if rej, err := v.checkDuplicates(ctx, event, people); rej != nil || err != nil {
		if err != nil {
			return nil, err
		}
		return nil, rej
	}

	if event.CountsTowardLimit {
		ceiling := event.Mode.Ceiling()
		kind := event.Mode.CounterKind()
		for _, p := range people {
			if p.Counters.Get(kind) >= ceiling {
				return nil, rejectLimitReached(p.DisplayName(), p.UID, event.Mode, ceiling)
			}
		}
	}

	if _, ok := v.diversity[model.NameKey(event.Name)]; ok {
		found := distinctLanguages(entries)
		if found < v.minLanguages {
			return nil, rejectLanguageDiversity(event.Name, v.minLanguages, found)
		}
	}

	return decision, nil
}

func checkStructure(c *model.Candidate) *RejectionError {
	if c == nil || strings.TrimSpace(c.EventName) == "" {
		return rejectMissingField("event")
	}
	if strings.TrimSpace(c.House) == "" {
		return rejectMissingField("house")
	}
	if len(c.Entries) == 0 {
		return rejectMissingField("entries")
	}

	placeholders := 0
	for _, e := range c.Entries {
		switch entry := e.(type) {
		case model.HouseEntryPlaceholder:
			placeholders++
		case model.RealParticipant:
			if entry.ParticipantID == "" && entry.UID == "" {
				return rejectMissingField("entries.uid")
			}
		default:
			return rejectInvalidEntries("Unrecognised entry in roster")
		}
	}
	// A placeholder roster skips the participant checks, so named entries
	// beside one would be counted without their ceiling being checked.
	if placeholders > 0 && placeholders < len(c.Entries) {
		return rejectInvalidEntries("A house entry cannot be combined with named participants")
	}
	return nil
}

// resolveParticipants looks up every named entry and returns the stored
// participants alongside fully populated entries in roster order.
func (v *RegistrationValidator) resolveParticipants(ctx context.Context, in model.Entries) ([]*model.Participant, model.Entries, error) {
	people := make([]*model.Participant, 0, len(in))
	out := make(model.Entries, 0, len(in))
	for _, rp := range in.Participants() {
		p, err := lookupParticipant(ctx, v.participants, rp)
		if err != nil {
			return nil, nil, err
		}
		if p == nil {
			return nil, nil, rejectParticipantNotFound(rp.Ref())
		}
		people = append(people, p)
		out = append(out, model.RealParticipant{
			ParticipantID: p.ID,
			UID:           p.UID,
			Name:          p.FullName,
			Language:      strings.TrimSpace(rp.Language),
		})
	}
	return people, out, nil
}

func (v *RegistrationValidator) checkDuplicates(ctx context.Context, event *model.Event, people []*model.Participant) (*RejectionError, error) {
	seen := make(map[string]struct{}, len(people))
	for _, p := range people {
		if _, ok := seen[p.ID]; ok {
			return rejectRepeatedEntry(p.UID, p.DisplayName(), event.Name), nil
		}
		seen[p.ID] = struct{}{}
	}

	existing, err := v.registrations.FindByEvent(ctx, event.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load event registrations: %w", err)
	}
	taken := make(map[string]struct{})
	for _, reg := range existing {
		for _, rp := range reg.Entries.Participants() {
			if rp.ParticipantID != "" {
				taken[rp.ParticipantID] = struct{}{}
			}
			if rp.UID != "" {
				taken[model.NameKey(rp.UID)] = struct{}{}
			}
		}
	}
	for _, p := range people {
		_, byID := taken[p.ID]
		_, byUID := taken[model.NameKey(p.UID)]
		if byID || byUID {
			return rejectDuplicate(p.UID, p.DisplayName(), event.Name), nil
		}
	}
	return nil, nil
}

// lookupParticipant resolves an entry by participant id, falling back to uid
func lookupParticipant(ctx context.Context, repo ParticipantRepository, rp model.RealParticipant) (*model.Participant, error) {
	if rp.ParticipantID != "" {
		p, err := repo.GetByID(ctx, rp.ParticipantID)
		if err != nil {
			return nil, fmt.Errorf("failed to get participant: %w", err)
		}
		if p != nil {
			return p, nil
		}
	}
	if rp.UID != "" {
		p, err := repo.GetByUID(ctx, rp.UID)
		if err != nil {
			return nil, fmt.Errorf("failed to get participant: %w", err)
		}
		return p, nil
	}
	return nil, nil
}

// distinctLanguages counts case-folded non-empty language tags
func distinctLanguages(entries model.Entries) int {
	langs := make(map[string]struct{})
	for _, rp := range entries.Participants() {
		if key := model.NameKey(rp.Language); key != "" {
			langs[key] = struct{}{}
		}
	}
	return len(langs)
}
