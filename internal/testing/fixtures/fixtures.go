// Package fixtures provides test data factories for repository and service tests.
//
// Each factory method creates entities with sensible defaults while allowing
// customization via option functions. Factories write through the repository
// interfaces, so the same fixtures work against every storage backend.
//
// Usage:
//
//	f := fixtures.New(fixtures.Repos{Events: events, Participants: participants, Houses: houses})
//	house := f.CreateHouse(t)
//	event := f.CreateEvent(t, fixtures.WithMode(model.ModeGroup))
//	asha := f.CreateParticipant(t, house)
package fixtures

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"testing"
	"time"

	"github.com/forgo/festreg/internal/model"
	"github.com/forgo/festreg/internal/service"
)

// Repos are the stores a Factory writes to. Nil repositories are only
// an error when a method needs them.
type Repos struct {
	Events        service.EventRepository
	Participants  service.ParticipantRepository
	Houses        service.HouseRepository
	Registrations service.RegistrationRepository
}

// Factory creates test entities in storage
type Factory struct {
	repos Repos
}

// New creates a new fixture factory
func New(repos Repos) *Factory {
	return &Factory{repos: repos}
}

// randomID generates a random hex ID
func randomID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func ctx(t *testing.T) context.Context {
	c, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return c
}

// ============================================================================
// House Fixtures
// ============================================================================

// HouseOpts customizes house creation
type HouseOpts struct {
	Name    string
	Captain string
}

// CreateHouse creates a house with optional customizations
func (f *Factory) CreateHouse(t *testing.T, opts ...func(*HouseOpts)) *model.House {
	t.Helper()

	o := &HouseOpts{Name: "House " + randomID()}
	for _, fn := range opts {
		fn(o)
	}

	h, err := f.repos.Houses.Create(ctx(t), &model.House{Name: o.Name, Captain: o.Captain})
	if err != nil {
		t.Fatalf("fixtures: failed to create house %q: %v", o.Name, err)
	}
	return h
}

// WithHouseName sets the house name
func WithHouseName(name string) func(*HouseOpts) {
	return func(o *HouseOpts) { o.Name = name }
}

// ============================================================================
// Event Fixtures
// ============================================================================

// EventOpts customizes event creation. The record is stored as given, so
// zero-valued limits stay absent and fall back to the catalog defaults.
type EventOpts struct {
	Record model.EventRecord
}

// CreateEvent creates an individual event with optional customizations
func (f *Factory) CreateEvent(t *testing.T, opts ...func(*EventOpts)) *model.EventRecord {
	t.Helper()

	o := &EventOpts{Record: model.EventRecord{
		Name:              "Event " + randomID(),
		ParticipationMode: string(model.ModeIndividual),
	}}
	for _, fn := range opts {
		fn(o)
	}

	rec, err := f.repos.Events.Upsert(ctx(t), &o.Record)
	if err != nil {
		t.Fatalf("fixtures: failed to create event %q: %v", o.Record.Name, err)
	}
	return rec
}

// WithEventName sets the event name
func WithEventName(name string) func(*EventOpts) {
	return func(o *EventOpts) { o.Record.Name = name }
}

// WithMode sets the participation mode
func WithMode(mode model.ParticipationMode) func(*EventOpts) {
	return func(o *EventOpts) { o.Record.ParticipationMode = string(mode) }
}

// WithTeamSize sets the current-scheme team size bounds
func WithTeamSize(min, max int) func(*EventOpts) {
	return func(o *EventOpts) {
		o.Record.MinTeamSize = model.IntPtr(min)
		o.Record.MaxTeamSize = model.IntPtr(max)
	}
}

// WithQuota sets the per-house registration limit
func WithQuota(max int) func(*EventOpts) {
	return func(o *EventOpts) { o.Record.MaxRegistrations = model.IntPtr(max) }
}

// WithType sets the event type, such as model.EventTypeLiterary
func WithType(eventType string) func(*EventOpts) {
	return func(o *EventOpts) { o.Record.Type = eventType }
}

// WithPreEvent marks the event as a pre-event
func WithPreEvent() func(*EventOpts) {
	return func(o *EventOpts) { o.Record.IsPreEvent = model.BoolPtr(true) }
}

// ============================================================================
// Participant Fixtures
// ============================================================================

// ParticipantOpts customizes participant creation
type ParticipantOpts struct {
	UID      string
	FullName string
	Branch   string
	Semester int
}

// CreateParticipant creates a participant in house with zeroed counters
func (f *Factory) CreateParticipant(t *testing.T, house *model.House, opts ...func(*ParticipantOpts)) *model.Participant {
	t.Helper()

	id := randomID()
	o := &ParticipantOpts{
		UID:      "P-" + id,
		FullName: "Participant " + id,
	}
	for _, fn := range opts {
		fn(o)
	}

	p, err := f.repos.Participants.Create(ctx(t), &model.Participant{
		UID:      o.UID,
		FullName: o.FullName,
		Branch:   o.Branch,
		Semester: o.Semester,
		House:    house.Name,
	})
	if err != nil {
		t.Fatalf("fixtures: failed to create participant %q: %v", o.UID, err)
	}
	return p
}

// WithUID sets the participant uid
func WithUID(uid string) func(*ParticipantOpts) {
	return func(o *ParticipantOpts) { o.UID = uid }
}

// ============================================================================
// Registration Fixtures
// ============================================================================

// CreateRegistration stores a registration of members for house directly,
// bypassing validation and counters. An empty members list stores a house entry.
func (f *Factory) CreateRegistration(t *testing.T, event *model.EventRecord, house *model.House, members ...*model.Participant) *model.Registration {
	t.Helper()

	entries := make(model.Entries, 0, len(members))
	for _, p := range members {
		entries = append(entries, model.RealParticipant{
			ParticipantID: p.ID,
			UID:           p.UID,
			Name:          p.FullName,
		})
	}
	if len(entries) == 0 {
		entries = append(entries, model.HouseEntryPlaceholder{})
	}

	mode := model.ParticipationMode(event.ParticipationMode)
	if !mode.Valid() {
		mode = model.ModeIndividual
	}
	reg, err := f.repos.Registrations.Create(ctx(t), &model.Registration{
		EventID:           event.ID,
		EventName:         event.Name,
		House:             house.Name,
		Entries:           entries,
		Mode:              mode,
		CountsTowardLimit: event.CountsTowardLimit == nil || *event.CountsTowardLimit,
	}, model.DefaultMaxRegistrations)
	if err != nil {
		t.Fatalf("fixtures: failed to create registration for %s/%s: %v", event.Name, house.Name, err)
	}
	return reg
}
