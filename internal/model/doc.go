// Package model defines domain entities and data structures for the festival registration API.
//
// The model package contains all struct definitions for domain objects, request/response
// types, and error definitions. Models are used across all layers of the application.
//
// # Domain Entities
//
//   - Event: canonical rule record (team size, house quota, participation mode)
//   - EventRecord: stored/seeded event shape, possibly using legacy limit names
//   - Participant: student identity plus running Counters
//   - Registration: a house roster for one event
//   - House: grouping key for quotas
//
// # Roster Entries
//
// Entry is a closed sum type with two variants:
//
//	switch e := entry.(type) {
//	case model.RealParticipant:
//	    // named participant, counts toward limits
//	case model.HouseEntryPlaceholder:
//	    // institutional entry, quota only
//	}
//
// Entries carries its own JSON codec; a placeholder is encoded as {"is_house_entry": true}.
//
// # Error Types
//
// RFC 9457 Problem Details errors are defined in errors.go.
package model
