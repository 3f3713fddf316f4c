package model

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// Entry is one line of a registration roster. It is either a RealParticipant
// or a HouseEntryPlaceholder; no other implementations exist.
type Entry interface {
	isEntry()
}

// RealParticipant is a named participant on a roster. Submissions carry
// ParticipantID or UID; stored registrations carry both plus the name.
type RealParticipant struct {
	ParticipantID string `json:"participant_id,omitempty"`
	UID           string `json:"uid,omitempty"`
	Name          string `json:"name,omitempty"`
	Language      string `json:"language,omitempty"`
}

// HouseEntryPlaceholder stands in for an institutional house entry with no named individuals
type HouseEntryPlaceholder struct{}

func (RealParticipant) isEntry()       {}
func (HouseEntryPlaceholder) isEntry() {}

// Ref returns the identifier a submission used for this participant
func (p RealParticipant) Ref() string {
	if p.ParticipantID != "" {
		return p.ParticipantID
	}
	return p.UID
}

// Entries is a roster. It has its own JSON codec so the sum type survives the wire.
type Entries []Entry

// HasPlaceholder reports whether any entry is a house entry placeholder
func (es Entries) HasPlaceholder() bool {
	for _, e := range es {
		if _, ok := e.(HouseEntryPlaceholder); ok {
			return true
		}
	}
	return false
}

// Participants returns the named entries in roster order
func (es Entries) Participants() []RealParticipant {
	out := make([]RealParticipant, 0, len(es))
	for _, e := range es {
		if p, ok := e.(RealParticipant); ok {
			out = append(out, p)
		}
	}
	return out
}

// Contains reports whether a named entry matches ref by participant id or uid
func (es Entries) Contains(ref string) bool {
	if ref == "" {
		return false
	}
	for _, p := range es.Participants() {
		if p.ParticipantID == ref || strings.EqualFold(p.UID, ref) {
			return true
		}
	}
	return false
}

// entryWire is the JSON form of an Entry. The camelCase aliases are accepted on input only.
type entryWire struct {
	ParticipantID    string `json:"participant_id,omitempty"`
	UID              string `json:"uid,omitempty"`
	Name             string `json:"name,omitempty"`
	Language         string `json:"language,omitempty"`
	IsHouseEntry     bool   `json:"is_house_entry,omitempty"`
	ParticipantIDAlt string `json:"participantId,omitempty"`
	IsHouseEntryAlt  bool   `json:"isHouseEntry,omitempty"`
}

// ErrUnknownEntry is returned when encoding an entry of a foreign type
var ErrUnknownEntry = errors.New("unknown entry type")

// MarshalJSON encodes the roster as a list of entry objects
func (es Entries) MarshalJSON() ([]byte, error) {
	out := make([]entryWire, 0, len(es))
	for _, e := range es {
		switch v := e.(type) {
		case RealParticipant:
			out = append(out, entryWire{
				ParticipantID: v.ParticipantID,
				UID:           v.UID,
				Name:          v.Name,
				Language:      v.Language,
			})
		case HouseEntryPlaceholder:
			out = append(out, entryWire{IsHouseEntry: true})
		default:
			return nil, ErrUnknownEntry
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a list of entry objects. An object flagged as a
// house entry becomes a placeholder and any identity fields on it are dropped.
func (es *Entries) UnmarshalJSON(data []byte) error {
	var raw []entryWire
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Entries, 0, len(raw))
	for _, w := range raw {
		if w.IsHouseEntry || w.IsHouseEntryAlt {
			out = append(out, HouseEntryPlaceholder{})
			continue
		}
		id := w.ParticipantID
		if id == "" {
			id = w.ParticipantIDAlt
		}
		out = append(out, RealParticipant{
			ParticipantID: strings.TrimSpace(id),
			UID:           strings.TrimSpace(w.UID),
			Name:          w.Name,
			Language:      strings.TrimSpace(w.Language),
		})
	}
	*es = out
	return nil
}

// Registration is a house's roster for one event
type Registration struct {
	ID        string  `json:"id"`
	EventID   string  `json:"event_id"`
	EventName string  `json:"event_name"`
	House     string  `json:"house"`
	Entries   Entries `json:"entries"`
	// Rule flags in force when the registration was accepted
	Mode              ParticipationMode `json:"participation_mode"`
	CountsTowardLimit bool              `json:"counts_toward_limit"`
	CreatedOn         time.Time         `json:"created_on"`
}

// Candidate is an unvalidated registration submission
type Candidate struct {
	EventName string
	House     string
	Entries   Entries
}

// CreateRegistrationRequest is the submission body.
// Participants is accepted as an alias of Entries.
type CreateRegistrationRequest struct {
	Event        string  `json:"event"`
	House        string  `json:"house"`
	Entries      Entries `json:"entries,omitempty"`
	Participants Entries `json:"participants,omitempty"`
}

// Candidate converts the request into a validator input
func (r *CreateRegistrationRequest) Candidate() *Candidate {
	entries := r.Entries
	if len(entries) == 0 {
		entries = r.Participants
	}
	return &Candidate{
		EventName: strings.TrimSpace(r.Event),
		House:     strings.TrimSpace(r.House),
		Entries:   entries,
	}
}

// RegistrationFilter narrows registration listings. Empty fields match everything.
type RegistrationFilter struct {
	House       string
	Event       string
	Participant string
}
