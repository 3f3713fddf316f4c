package service

import (
	"errors"
	"fmt"

	"github.com/forgo/festreg/internal/model"
)

// Centralized service layer errors.
// All errors returned by service methods are defined here for consistency
// and to make error handling in handlers predictable.

// ===== Registration Rule Errors =====
// A *RejectionError matches exactly one of these via errors.Is.
var (
	ErrMissingField               = errors.New("missing required field")
	ErrEventNotFound              = errors.New("event not found")
	ErrRegistrationClosed         = errors.New("registration closed")
	ErrTeamSizeOutOfRange         = errors.New("team size out of range")
	ErrHouseQuotaExceeded         = errors.New("house quota exceeded")
	ErrParticipantNotFound        = errors.New("participant not found")
	ErrDuplicateParticipant       = errors.New("participant already registered")
	ErrParticipantLimitReached    = errors.New("participant limit reached")
	ErrLanguageDiversityViolation = errors.New("language diversity violation")
)

// ===== Catalog Errors =====
var (
	ErrInvalidEventRules = errors.New("invalid event rules")
	ErrEventNameRequired = errors.New("event name is required")
	ErrEventExists       = errors.New("event name already in use")
	ErrEventInUse        = errors.New("event has live registrations")
)

// ===== Directory Errors =====
var (
	ErrRegistrationNotFound = errors.New("registration not found")
	ErrHouseNotFound        = errors.New("house not found")
	ErrParticipantExists    = errors.New("participant uid already exists")
	ErrHouseExists          = errors.New("house already exists")
)

// RejectionCode names a registration rule violation
type RejectionCode string

const (
	CodeMissingField               RejectionCode = "MissingField"
	CodeEventNotFound              RejectionCode = "EventNotFound"
	CodeRegistrationClosed         RejectionCode = "RegistrationClosed"
	CodeTeamSizeOutOfRange         RejectionCode = "TeamSizeOutOfRange"
	CodeHouseQuotaExceeded         RejectionCode = "HouseQuotaExceeded"
	CodeParticipantNotFound        RejectionCode = "ParticipantNotFound"
	CodeDuplicateParticipant       RejectionCode = "DuplicateParticipant"
	CodeParticipantLimitReached    RejectionCode = "ParticipantLimitReached"
	CodeLanguageDiversityViolation RejectionCode = "LanguageDiversityViolation"
)

var rejectionSentinels = map[RejectionCode]error{
	CodeMissingField:               ErrMissingField,
	CodeEventNotFound:              ErrEventNotFound,
	CodeRegistrationClosed:         ErrRegistrationClosed,
	CodeTeamSizeOutOfRange:         ErrTeamSizeOutOfRange,
	CodeHouseQuotaExceeded:         ErrHouseQuotaExceeded,
	CodeParticipantNotFound:        ErrParticipantNotFound,
	CodeDuplicateParticipant:       ErrDuplicateParticipant,
	CodeParticipantLimitReached:    ErrParticipantLimitReached,
	CodeLanguageDiversityViolation: ErrLanguageDiversityViolation,
}

// RejectionError is a terminal rule violation for one submission.
// Only the fields relevant to Code are set.
type RejectionError struct {
	Code    RejectionCode
	Message string

	Field       string
	Event       string
	House       string
	Participant string
	UID         string
	Mode        model.ParticipationMode
	Min         int
	Max         int
	Actual      int
	Limit       int
	Required    int
	Found       int
}

func (e *RejectionError) Error() string {
	return e.Message
}

// Is matches the sentinel error for the rejection code
func (e *RejectionError) Is(target error) bool {
	return rejectionSentinels[e.Code] == target
}

// AsRejection extracts a RejectionError from an error chain
func AsRejection(err error) (*RejectionError, bool) {
	var rej *RejectionError
	if errors.As(err, &rej) {
		return rej, true
	}
	return nil, false
}

func rejectMissingField(field string) *RejectionError {
	return &RejectionError{
		Code:    CodeMissingField,
		Field:   field,
		Message: fmt.Sprintf("Missing required field: %s", field),
	}
}

func rejectInvalidEntries(msg string) *RejectionError {
	return &RejectionError{
		Code:    CodeMissingField,
		Field:   "entries",
		Message: msg,
	}
}

func rejectEventNotFound(name string) *RejectionError {
	return &RejectionError{
		Code:    CodeEventNotFound,
		Event:   name,
		Message: fmt.Sprintf("Event %s not found", name),
	}
}

func rejectRegistrationClosed(event string) *RejectionError {
	return &RejectionError{
		Code:    CodeRegistrationClosed,
		Event:   event,
		Message: fmt.Sprintf("Registration for %s is closed", event),
	}
}

func rejectTeamSize(event string, min, max, actual int) *RejectionError {
	return &RejectionError{
		Code:    CodeTeamSizeOutOfRange,
		Event:   event,
		Min:     min,
		Max:     max,
		Actual:  actual,
		Message: fmt.Sprintf("Team size for %s must be between %d and %d (got %d)", event, min, max, actual),
	}
}

func rejectHouseQuota(house, event string, limit int) *RejectionError {
	return &RejectionError{
		Code:    CodeHouseQuotaExceeded,
		House:   house,
		Event:   event,
		Limit:   limit,
		Message: fmt.Sprintf("House %s has reached the limit of %d registration(s) for %s", house, limit, event),
	}
}

func rejectParticipantNotFound(ref string) *RejectionError {
	return &RejectionError{
		Code:        CodeParticipantNotFound,
		Participant: ref,
		Message:     fmt.Sprintf("Participant %s not found", ref),
	}
}

func rejectDuplicate(uid, name, event string) *RejectionError {
	return &RejectionError{
		Code:        CodeDuplicateParticipant,
		UID:         uid,
		Participant: name,
		Event:       event,
		Message:     fmt.Sprintf("%s (%s) is already registered for %s", name, uid, event),
	}
}

func rejectRepeatedEntry(uid, name, event string) *RejectionError {
	return &RejectionError{
		Code:        CodeDuplicateParticipant,
		UID:         uid,
		Participant: name,
		Event:       event,
		Message:     fmt.Sprintf("%s (%s) is listed more than once in the roster for %s", name, uid, event),
	}
}

func rejectLimitReached(name, uid string, mode model.ParticipationMode, limit int) *RejectionError {
	return &RejectionError{
		Code:        CodeParticipantLimitReached,
		Participant: name,
		UID:         uid,
		Mode:        mode,
		Limit:       limit,
		Message:     fmt.Sprintf("Limit Reached: %s has already registered for %d %s events", name, limit, mode),
	}
}

func rejectLanguageDiversity(event string, required, found int) *RejectionError {
	return &RejectionError{
		Code:     CodeLanguageDiversityViolation,
		Event:    event,
		Required: required,
		Found:    found,
		Message: fmt.Sprintf("%s requires participants from at least %d different languages (found %d)",
			event, required, found),
	}
}
