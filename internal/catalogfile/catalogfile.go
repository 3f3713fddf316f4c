// Package catalogfile loads festival catalogs (houses, events, participants)
// from HCL seed files.
//
//	house "Rajputs" {
//	  captain = "Asha"
//	}
//
//	event "Drama" {
//	  participation_mode = "Group"
//	  category           = "On-Stage"
//	  min_team_size      = 9
//	  max_team_size      = 12
//	  max_registrations  = 1
//	}
//
//	participant "RJ-01" {
//	  full_name = "Asha Rao"
//	  house     = "Rajputs"
//	}
//
// Event blocks accept the legacy limit attributes (min_individual_limit,
// max_individual_limit, team_limit) alongside the current ones; the catalog
// resolves precedence when the record is normalized.
package catalogfile

import (
	"fmt"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/forgo/festreg/internal/model"
)

// dateLayout is the calendar date format used by event blocks
const dateLayout = "2006-01-02"

type hclCatalogFile struct {
	Houses       []*hclHouse       `hcl:"house,block"`
	Events       []*hclEvent       `hcl:"event,block"`
	Participants []*hclParticipant `hcl:"participant,block"`
}

type hclHouse struct {
	Name    string `hcl:"name,label"`
	Captain string `hcl:"captain,optional"`
}

type hclEvent struct {
	Name                string `hcl:"name,label"`
	ParticipationMode   string `hcl:"participation_mode,optional"`
	Type                string `hcl:"type,optional"`
	Category            string `hcl:"category,optional"`
	Venue               string `hcl:"venue,optional"`
	Date                string `hcl:"date,optional"`
	MinTeamSize         *int   `hcl:"min_team_size,optional"`
	MaxTeamSize         *int   `hcl:"max_team_size,optional"`
	MinRegistrations    *int   `hcl:"min_registrations,optional"`
	MaxRegistrations    *int   `hcl:"max_registrations,optional"`
	MinIndividualLimit  *int   `hcl:"min_individual_limit,optional"`
	MaxIndividualLimit  *int   `hcl:"max_individual_limit,optional"`
	TeamLimit           *int   `hcl:"team_limit,optional"`
	CountsTowardLimit   *bool  `hcl:"counts_toward_limit,optional"`
	IsPreEvent          *bool  `hcl:"is_pre_event,optional"`
	RegistrationEnabled *bool  `hcl:"registration_enabled,optional"`
}

type hclParticipant struct {
	UID      string `hcl:"uid,label"`
	FullName string `hcl:"full_name"`
	House    string `hcl:"house"`
	Branch   string `hcl:"branch,optional"`
	Semester int    `hcl:"semester,optional"`
}

// Load parses the catalog file at path
func Load(path string) (*model.Catalog, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse catalog file %s: %w", path, diags)
	}
	return decode(hclFile.Body, path)
}

// Parse parses catalog source held in memory; filename is used in diagnostics
func Parse(src []byte, filename string) (*model.Catalog, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse catalog file %s: %w", filename, diags)
	}
	return decode(hclFile.Body, filename)
}

func decode(body hcl.Body, filename string) (*model.Catalog, error) {
	var parsed hclCatalogFile
	if diags := gohcl.DecodeBody(body, nil, &parsed); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode catalog file %s: %w", filename, diags)
	}

	cat := &model.Catalog{}
	seen := make(map[string]string)
	claim := func(kind, name string) error {
		key := kind + "/" + model.NameKey(name)
		if prev, ok := seen[key]; ok {
			return fmt.Errorf("%s: duplicate %s %q (already declared as %q)", filename, kind, name, prev)
		}
		seen[key] = name
		return nil
	}

	for _, h := range parsed.Houses {
		if err := claim("house", h.Name); err != nil {
			return nil, err
		}
		cat.Houses = append(cat.Houses, &model.House{Name: h.Name, Captain: h.Captain})
	}

	for _, e := range parsed.Events {
		if err := claim("event", e.Name); err != nil {
			return nil, err
		}
		rec, err := e.record()
		if err != nil {
			return nil, fmt.Errorf("%s: event %q: %w", filename, e.Name, err)
		}
		cat.Events = append(cat.Events, rec)
	}

	for _, p := range parsed.Participants {
		if err := claim("participant", p.UID); err != nil {
			return nil, err
		}
		cat.Participants = append(cat.Participants, &model.Participant{
			UID:      p.UID,
			FullName: p.FullName,
			House:    p.House,
			Branch:   p.Branch,
			Semester: p.Semester,
		})
	}

	return cat, nil
}

func (e *hclEvent) record() (*model.EventRecord, error) {
	rec := &model.EventRecord{
		Name:                e.Name,
		ParticipationMode:   e.ParticipationMode,
		Type:                e.Type,
		Category:            e.Category,
		Venue:               e.Venue,
		MinTeamSize:         e.MinTeamSize,
		MaxTeamSize:         e.MaxTeamSize,
		MinRegistrations:    e.MinRegistrations,
		MaxRegistrations:    e.MaxRegistrations,
		MinIndividualLimit:  e.MinIndividualLimit,
		MaxIndividualLimit:  e.MaxIndividualLimit,
		TeamLimit:           e.TeamLimit,
		CountsTowardLimit:   e.CountsTowardLimit,
		IsPreEvent:          e.IsPreEvent,
		RegistrationEnabled: e.RegistrationEnabled,
	}
	if e.Date != "" {
		d, err := time.Parse(dateLayout, e.Date)
		if err != nil {
			return nil, fmt.Errorf("invalid date %q, want YYYY-MM-DD", e.Date)
		}
		rec.Date = &d
	}
	return rec, nil
}
