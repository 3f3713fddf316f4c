package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/forgo/festreg/internal/database"
	"github.com/forgo/festreg/internal/model"
)

// EventRepository handles event record access
type EventRepository struct {
	db database.Database
}

// NewEventRepository creates a new event repository
func NewEventRepository(db database.Database) *EventRepository {
	return &EventRepository{db: db}
}

// GetByID retrieves an event record by record id
func (r *EventRepository) GetByID(ctx context.Context, id string) (*model.EventRecord, error) {
	// Names are resolved through here first, so anything that is not a record id is a miss
	if !hasRecordPrefix(id, "event") {
		return nil, nil
	}
	query := `SELECT * FROM type::record($id)`
	return r.getOne(ctx, query, map[string]interface{}{"id": id})
}

// GetByName retrieves an event record by case-folded name
func (r *EventRepository) GetByName(ctx context.Context, name string) (*model.EventRecord, error) {
	query := `SELECT * FROM event WHERE name_key = $name_key LIMIT 1`
	return r.getOne(ctx, query, map[string]interface{}{"name_key": model.NameKey(name)})
}

// List returns all event records ordered by name
func (r *EventRepository) List(ctx context.Context) ([]*model.EventRecord, error) {
	results, err := r.db.Query(ctx, `SELECT * FROM event ORDER BY name ASC`, nil)
	if err != nil {
		return nil, err
	}

	rows := statementRows(results, 0)
	out := make([]*model.EventRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, parseEventRecord(row))
	}
	return out, nil
}

// Upsert stores the record, replacing any record with the same name key
func (r *EventRepository) Upsert(ctx context.Context, rec *model.EventRecord) (*model.EventRecord, error) {
	existing, err := r.GetByName(ctx, rec.Name)
	if err != nil {
		return nil, err
	}

	fields := eventFields(rec)

	var query string
	vars := map[string]interface{}{"fields": fields}
	if existing != nil {
		query = `UPDATE type::record($id) MERGE $fields RETURN NONE;
			UPDATE type::record($id) SET updated_on = time::now() RETURN AFTER`
		vars["id"] = existing.ID
	} else {
		query = `CREATE event CONTENT $fields RETURN NONE;
			UPDATE event SET created_on = time::now(), updated_on = time::now()
			WHERE name_key = $fields.name_key RETURN AFTER`
	}

	results, err := r.db.Query(ctx, query, vars)
	if err != nil {
		if isUniqueConstraintError(err) {
			return nil, fmt.Errorf("%w: event %s", database.ErrDuplicate, rec.Name)
		}
		return nil, err
	}
	rows := statementRows(results, -1)
	if len(rows) == 0 {
		return nil, errors.New("upsert event: no record returned")
	}
	return parseEventRecord(rows[0]), nil
}

// Update replaces the record stored under id, renaming it if the name changed
func (r *EventRepository) Update(ctx context.Context, id string, rec *model.EventRecord) (*model.EventRecord, error) {
	if !hasRecordPrefix(id, "event") {
		return nil, database.ErrNotFound
	}
	query := `UPDATE type::record($id) MERGE $fields RETURN NONE;
		UPDATE type::record($id) SET updated_on = time::now() RETURN AFTER`
	results, err := r.db.Query(ctx, query, map[string]interface{}{"id": id, "fields": eventFields(rec)})
	if err != nil {
		if isUniqueConstraintError(err) {
			return nil, fmt.Errorf("%w: event %s", database.ErrDuplicate, rec.Name)
		}
		return nil, err
	}
	rows := statementRows(results, -1)
	if len(rows) == 0 {
		return nil, database.ErrNotFound
	}
	return parseEventRecord(rows[0]), nil
}

// Delete removes the record stored under id
func (r *EventRepository) Delete(ctx context.Context, id string) error {
	if !hasRecordPrefix(id, "event") {
		return database.ErrNotFound
	}
	results, err := r.db.Query(ctx, `DELETE type::record($id) RETURN BEFORE`, map[string]interface{}{"id": id})
	if err != nil {
		return err
	}
	if len(statementRows(results, 0)) == 0 {
		return database.ErrNotFound
	}
	return nil
}

// SetRegistrationEnabled updates the registration flag of one event
func (r *EventRepository) SetRegistrationEnabled(ctx context.Context, id string, enabled bool) error {
	if !hasRecordPrefix(id, "event") {
		return database.ErrNotFound
	}
	query := `UPDATE type::record($id) SET registration_enabled = $enabled, updated_on = time::now() RETURN AFTER`
	results, err := r.db.Query(ctx, query, map[string]interface{}{"id": id, "enabled": enabled})
	if err != nil {
		return err
	}
	if len(statementRows(results, 0)) == 0 {
		return database.ErrNotFound
	}
	return nil
}

// eventFields maps a record onto its stored document
func eventFields(rec *model.EventRecord) map[string]interface{} {
	var date interface{}
	if rec.Date != nil {
		date = rec.Date.UTC().Format(time.RFC3339)
	}
	return map[string]interface{}{
		"name":                 rec.Name,
		"name_key":             model.NameKey(rec.Name),
		"participation_mode":   rec.ParticipationMode,
		"type":                 rec.Type,
		"category":             rec.Category,
		"venue":                rec.Venue,
		"date":                 date,
		"min_team_size":        intOrNone(rec.MinTeamSize),
		"max_team_size":        intOrNone(rec.MaxTeamSize),
		"min_registrations":    intOrNone(rec.MinRegistrations),
		"max_registrations":    intOrNone(rec.MaxRegistrations),
		"min_individual_limit": intOrNone(rec.MinIndividualLimit),
		"max_individual_limit": intOrNone(rec.MaxIndividualLimit),
		"team_limit":           intOrNone(rec.TeamLimit),
		"counts_toward_limit":  boolOrNone(rec.CountsTowardLimit),
		"is_pre_event":         boolOrNone(rec.IsPreEvent),
		"registration_enabled": boolOrNone(rec.RegistrationEnabled),
	}
}

func (r *EventRepository) getOne(ctx context.Context, query string, vars map[string]interface{}) (*model.EventRecord, error) {
	result, err := r.db.QueryOne(ctx, query, vars)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	data, err := unwrapRecord(result)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return parseEventRecord(data), nil
}

func parseEventRecord(data map[string]interface{}) *model.EventRecord {
	return &model.EventRecord{
		ID:                  convertSurrealID(data["id"]),
		Name:                getString(data, "name"),
		ParticipationMode:   getString(data, "participation_mode"),
		Type:                getString(data, "type"),
		Category:            getString(data, "category"),
		Venue:               getString(data, "venue"),
		Date:                getTime(data, "date"),
		MinTeamSize:         getIntPtr(data, "min_team_size"),
		MaxTeamSize:         getIntPtr(data, "max_team_size"),
		MinRegistrations:    getIntPtr(data, "min_registrations"),
		MaxRegistrations:    getIntPtr(data, "max_registrations"),
		MinIndividualLimit:  getIntPtr(data, "min_individual_limit"),
		MaxIndividualLimit:  getIntPtr(data, "max_individual_limit"),
		TeamLimit:           getIntPtr(data, "team_limit"),
		CountsTowardLimit:   getBoolPtr(data, "counts_toward_limit"),
		IsPreEvent:          getBoolPtr(data, "is_pre_event"),
		RegistrationEnabled: getBoolPtr(data, "registration_enabled"),
		CreatedOn:           getTimeValue(data, "created_on"),
		UpdatedOn:           getTimeValue(data, "updated_on"),
	}
}
