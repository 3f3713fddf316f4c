package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/forgo/festreg/internal/database"
	"github.com/forgo/festreg/internal/model"
)

const eventColumns = `id, name, participation_mode, type, category, venue, date,
    min_team_size, max_team_size, min_registrations, max_registrations,
    min_individual_limit, max_individual_limit, team_limit,
    counts_toward_limit, is_pre_event, registration_enabled, created_at, updated_at`

// EventRepository stores event records in SQLite
type EventRepository struct {
	db *sql.DB
}

// GetByID retrieves an event record by id
func (r *EventRepository) GetByID(ctx context.Context, id string) (*model.EventRecord, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+eventColumns+" FROM events WHERE id = ?", id)
	return scanEventRow(row)
}

// GetByName retrieves an event record by case-folded name
func (r *EventRepository) GetByName(ctx context.Context, name string) (*model.EventRecord, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+eventColumns+" FROM events WHERE name_key = ?", model.NameKey(name))
	return scanEventRow(row)
}

// List returns all event records ordered by name
func (r *EventRepository) List(ctx context.Context) ([]*model.EventRecord, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+eventColumns+" FROM events ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	out := make([]*model.EventRecord, 0)
	for rows.Next() {
		rec, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Upsert stores the record, replacing any record with the same name key
func (r *EventRepository) Upsert(ctx context.Context, rec *model.EventRecord) (*model.EventRecord, error) {
	id := rec.ID
	if id == "" {
		id = "event:" + uuid.NewString()
	}
	now := toMillis(time.Now())
	var date sql.NullInt64
	if rec.Date != nil {
		date = sql.NullInt64{Int64: toMillis(*rec.Date), Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
INSERT INTO events (`+eventColumns+`, name_key)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(name_key) DO UPDATE SET
    name = excluded.name,
    participation_mode = excluded.participation_mode,
    type = excluded.type,
    category = excluded.category,
    venue = excluded.venue,
    date = excluded.date,
    min_team_size = excluded.min_team_size,
    max_team_size = excluded.max_team_size,
    min_registrations = excluded.min_registrations,
    max_registrations = excluded.max_registrations,
    min_individual_limit = excluded.min_individual_limit,
    max_individual_limit = excluded.max_individual_limit,
    team_limit = excluded.team_limit,
    counts_toward_limit = excluded.counts_toward_limit,
    is_pre_event = excluded.is_pre_event,
    registration_enabled = excluded.registration_enabled,
    updated_at = excluded.updated_at`,
		id, rec.Name, rec.ParticipationMode, rec.Type, rec.Category, rec.Venue, date,
		nullableInt(rec.MinTeamSize), nullableInt(rec.MaxTeamSize),
		nullableInt(rec.MinRegistrations), nullableInt(rec.MaxRegistrations),
		nullableInt(rec.MinIndividualLimit), nullableInt(rec.MaxIndividualLimit), nullableInt(rec.TeamLimit),
		nullableBool(rec.CountsTowardLimit), nullableBool(rec.IsPreEvent), nullableBool(rec.RegistrationEnabled),
		now, now, model.NameKey(rec.Name),
	)
	if err != nil {
		return nil, fmt.Errorf("upsert event: %w", err)
	}
	return r.GetByName(ctx, rec.Name)
}

// Update replaces the record stored under id, renaming it if the name changed
func (r *EventRepository) Update(ctx context.Context, id string, rec *model.EventRecord) (*model.EventRecord, error) {
	var date sql.NullInt64
	if rec.Date != nil {
		date = sql.NullInt64{Int64: toMillis(*rec.Date), Valid: true}
	}

	res, err := r.db.ExecContext(ctx, `
UPDATE events SET
    name = ?, name_key = ?, participation_mode = ?, type = ?, category = ?, venue = ?, date = ?,
    min_team_size = ?, max_team_size = ?, min_registrations = ?, max_registrations = ?,
    min_individual_limit = ?, max_individual_limit = ?, team_limit = ?,
    counts_toward_limit = ?, is_pre_event = ?, registration_enabled = ?, updated_at = ?
WHERE id = ?`,
		rec.Name, model.NameKey(rec.Name), rec.ParticipationMode, rec.Type, rec.Category, rec.Venue, date,
		nullableInt(rec.MinTeamSize), nullableInt(rec.MaxTeamSize),
		nullableInt(rec.MinRegistrations), nullableInt(rec.MaxRegistrations),
		nullableInt(rec.MinIndividualLimit), nullableInt(rec.MaxIndividualLimit), nullableInt(rec.TeamLimit),
		nullableBool(rec.CountsTowardLimit), nullableBool(rec.IsPreEvent), nullableBool(rec.RegistrationEnabled),
		toMillis(time.Now()), id,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: event %s", database.ErrDuplicate, rec.Name)
		}
		return nil, fmt.Errorf("update event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, database.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

// Delete removes the record stored under id
func (r *EventRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM events WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return database.ErrNotFound
	}
	return nil
}

// SetRegistrationEnabled updates the registration flag of one event
func (r *EventRepository) SetRegistrationEnabled(ctx context.Context, id string, enabled bool) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE events SET registration_enabled = ?, updated_at = ? WHERE id = ?",
		boolToInt(enabled), toMillis(time.Now()), id)
	if err != nil {
		return fmt.Errorf("set registration enabled: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return database.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEventRow(row *sql.Row) (*model.EventRecord, error) {
	rec, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return rec, err
}

func scanEvent(s rowScanner) (*model.EventRecord, error) {
	var (
		rec                                model.EventRecord
		date                               sql.NullInt64
		minTeam, maxTeam, minRegs, maxRegs sql.NullInt64
		minIndiv, maxIndiv, teamLimit      sql.NullInt64
		counts, preEvent, enabled          sql.NullInt64
		createdAt, updatedAt               int64
	)
	err := s.Scan(&rec.ID, &rec.Name, &rec.ParticipationMode, &rec.Type, &rec.Category, &rec.Venue, &date,
		&minTeam, &maxTeam, &minRegs, &maxRegs, &minIndiv, &maxIndiv, &teamLimit,
		&counts, &preEvent, &enabled, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan event: %w", err)
	}
	if date.Valid {
		d := fromMillis(date.Int64)
		rec.Date = &d
	}
	rec.MinTeamSize = intFromNull(minTeam)
	rec.MaxTeamSize = intFromNull(maxTeam)
	rec.MinRegistrations = intFromNull(minRegs)
	rec.MaxRegistrations = intFromNull(maxRegs)
	rec.MinIndividualLimit = intFromNull(minIndiv)
	rec.MaxIndividualLimit = intFromNull(maxIndiv)
	rec.TeamLimit = intFromNull(teamLimit)
	rec.CountsTowardLimit = boolFromNull(counts)
	rec.IsPreEvent = boolFromNull(preEvent)
	rec.RegistrationEnabled = boolFromNull(enabled)
	rec.CreatedOn = fromMillis(createdAt)
	rec.UpdatedOn = fromMillis(updatedAt)
	return &rec, nil
}
