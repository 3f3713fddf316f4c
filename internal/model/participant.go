package model

import (
	"fmt"
	"time"
)

// CounterKind selects one of a participant's running counters
type CounterKind string

const (
	CounterIndividual CounterKind = "individual"
	CounterGroup      CounterKind = "group"
	CounterLiterary   CounterKind = "literary"
)

// Column returns the storage field name backing the counter
func (k CounterKind) Column() (string, error) {
	switch k {
	case CounterIndividual:
		return "individual_count", nil
	case CounterGroup:
		return "group_count", nil
	case CounterLiterary:
		return "literary_count", nil
	}
	return "", fmt.Errorf("unknown counter kind %q", string(k))
}

// Counters is the denormalized registration tally for a participant.
// Only the counter reconciler writes these.
type Counters struct {
	Individual int `json:"individual_count"`
	Group      int `json:"group_count"`
	Literary   int `json:"literary_count"`
}

// Get returns the value of one counter
func (c Counters) Get(kind CounterKind) int {
	switch kind {
	case CounterIndividual:
		return c.Individual
	case CounterGroup:
		return c.Group
	case CounterLiterary:
		return c.Literary
	}
	return 0
}

// Add applies delta to one counter, flooring at zero
func (c *Counters) Add(kind CounterKind, delta int) {
	var field *int
	switch kind {
	case CounterIndividual:
		field = &c.Individual
	case CounterGroup:
		field = &c.Group
	case CounterLiterary:
		field = &c.Literary
	default:
		return
	}
	*field += delta
	if *field < 0 {
		*field = 0
	}
}

// Participant is a student who can appear in registrations
type Participant struct {
	ID       string `json:"id"`
	UID      string `json:"uid"`
	FullName string `json:"full_name"`
	Branch   string `json:"branch,omitempty"`
	Semester int    `json:"semester,omitempty"`
	House    string `json:"house"`
	Counters
	CreatedOn time.Time `json:"created_on"`
	UpdatedOn time.Time `json:"updated_on"`
}

// DisplayName returns the name used in rejection messages
func (p *Participant) DisplayName() string {
	if p.FullName != "" {
		return p.FullName
	}
	return p.UID
}
