package model

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// ParticipationMode is how an event is contested
type ParticipationMode string

const (
	ModeIndividual ParticipationMode = "Individual"
	ModeGroup      ParticipationMode = "Group"
)

// Valid reports whether m is a known participation mode
func (m ParticipationMode) Valid() bool {
	return m == ModeIndividual || m == ModeGroup
}

// CounterKind returns the participant counter a registration in this mode feeds
func (m ParticipationMode) CounterKind() CounterKind {
	if m == ModeGroup {
		return CounterGroup
	}
	return CounterIndividual
}

// Ceiling returns the maximum number of counted registrations a participant may hold in this mode
func (m ParticipationMode) Ceiling() int {
	if m == ModeGroup {
		return MaxGroupEvents
	}
	return MaxIndividualEvents
}

// Event types and categories carried over from the festival catalog
const (
	EventTypeLiterary = "Literary"
	EventTypeMusic    = "Music"
	EventTypeDance    = "Dance"
	EventTypeArt      = "Art"
	EventTypeGeneral  = "General"

	CategoryPreEvent = "Pre-Event"
	CategoryOnStage  = "On-Stage"
	CategoryOffStage = "Off-Stage"
)

// Event defaults applied when a catalog record omits a field
const (
	DefaultMinTeamSize      = 1
	DefaultMaxTeamSize      = 1
	DefaultMinRegistrations = 0
	DefaultMaxRegistrations = 100
)

// Participation ceilings
const (
	MaxIndividualEvents = 5
	MaxGroupEvents      = 3
)

// Event is the canonical rule record for a festival event.
// Only the EventCatalog builds these; storage works on EventRecord.
type Event struct {
	ID                  string            `json:"id"`
	Name                string            `json:"name"`
	Mode                ParticipationMode `json:"participation_mode"`
	Type                string            `json:"type,omitempty"`
	Category            string            `json:"category,omitempty"`
	Venue               string            `json:"venue,omitempty"`
	Date                *time.Time        `json:"date,omitempty"`
	MinTeamSize         int               `json:"min_team_size"`
	MaxTeamSize         int               `json:"max_team_size"`
	MinRegistrations    int               `json:"min_registrations"`
	MaxRegistrations    int               `json:"max_registrations"`
	CountsTowardLimit   bool              `json:"counts_toward_limit"`
	IsPreEvent          bool              `json:"is_pre_event"`
	RegistrationEnabled bool              `json:"registration_enabled"`
	CreatedOn           time.Time         `json:"created_on"`
	UpdatedOn           time.Time         `json:"updated_on"`
}

// IsLiterary reports whether registrations for the event feed the literary counter
func (e *Event) IsLiterary() bool {
	return strings.EqualFold(e.Type, EventTypeLiterary)
}

// EventRecord is the stored or seeded shape of an event. Limits may be
// spelled with the current names or the legacy ones; nil means absent.
type EventRecord struct {
	ID                  string     `json:"id,omitempty"`
	Name                string     `json:"name"`
	ParticipationMode   string     `json:"participation_mode,omitempty"`
	Type                string     `json:"type,omitempty"`
	Category            string     `json:"category,omitempty"`
	Venue               string     `json:"venue,omitempty"`
	Date                *time.Time `json:"date,omitempty"`
	MinTeamSize         *int       `json:"min_team_size,omitempty"`
	MaxTeamSize         *int       `json:"max_team_size,omitempty"`
	MinRegistrations    *int       `json:"min_registrations,omitempty"`
	MaxRegistrations    *int       `json:"max_registrations,omitempty"`
	MinIndividualLimit  *int       `json:"min_individual_limit,omitempty"`
	MaxIndividualLimit  *int       `json:"max_individual_limit,omitempty"`
	TeamLimit           *int       `json:"team_limit,omitempty"`
	CountsTowardLimit   *bool      `json:"counts_toward_limit,omitempty"`
	IsPreEvent          *bool      `json:"is_pre_event,omitempty"`
	RegistrationEnabled *bool      `json:"registration_enabled,omitempty"`
	CreatedOn           time.Time  `json:"created_on,omitempty"`
	UpdatedOn           time.Time  `json:"updated_on,omitempty"`
}

// RecordFromEvent converts a canonical event back into the current storage shape
func RecordFromEvent(e *Event) *EventRecord {
	return &EventRecord{
		ID:                  e.ID,
		Name:                e.Name,
		ParticipationMode:   string(e.Mode),
		Type:                e.Type,
		Category:            e.Category,
		Venue:               e.Venue,
		Date:                e.Date,
		MinTeamSize:         IntPtr(e.MinTeamSize),
		MaxTeamSize:         IntPtr(e.MaxTeamSize),
		MinRegistrations:    IntPtr(e.MinRegistrations),
		MaxRegistrations:    IntPtr(e.MaxRegistrations),
		CountsTowardLimit:   BoolPtr(e.CountsTowardLimit),
		IsPreEvent:          BoolPtr(e.IsPreEvent),
		RegistrationEnabled: BoolPtr(e.RegistrationEnabled),
		CreatedOn:           e.CreatedOn,
		UpdatedOn:           e.UpdatedOn,
	}
}

// NameKey returns the lookup key for a human-entered name: trimmed and case folded.
// A Caser is stateful, so each call builds its own.
func NameKey(name string) string {
	return cases.Fold().String(strings.TrimSpace(name))
}

// IntPtr returns a pointer to v
func IntPtr(v int) *int { return &v }

// BoolPtr returns a pointer to v
func BoolPtr(v bool) *bool { return &v }
