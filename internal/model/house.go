package model

import "time"

// House is a competing cohort; registrations and quotas are grouped by house name
type House struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Captain   string    `json:"captain,omitempty"`
	CreatedOn time.Time `json:"created_on"`
}

// EventQuota is one row of a house status report
type EventQuota struct {
	EventID          string `json:"event_id"`
	EventName        string `json:"event_name"`
	Registered       int    `json:"registered"`
	MinRegistrations int    `json:"min_registrations"`
	MaxRegistrations int    `json:"max_registrations"`
	Shortfall        int    `json:"shortfall"`
	Full             bool   `json:"full"`
}

// HouseStatus reports a house's registrations against every event's quota bounds
type HouseStatus struct {
	House  string       `json:"house"`
	Events []EventQuota `json:"events"`
}

// Catalog is a seed bundle loaded from a catalog file
type Catalog struct {
	Houses       []*House
	Events       []*EventRecord
	Participants []*Participant
}
