package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/forgo/festreg/internal/database"
	"github.com/forgo/festreg/internal/model"
)

const registrationColumns = `r.id, r.event_id, r.event_name, r.house, r.entries_json,
    r.participation_mode, r.counts_toward_limit, r.created_at`

// RegistrationRepository stores registrations in SQLite. Members of each
// registration are indexed in registration_members for participant lookups.
type RegistrationRepository struct {
	db *sql.DB
}

// Create inserts the registration only while the house is below quota for the event
func (r *RegistrationRepository) Create(ctx context.Context, reg *model.Registration, quota int) (*model.Registration, error) {
	entries, err := json.Marshal(reg.Entries)
	if err != nil {
		return nil, fmt.Errorf("encode entries: %w", err)
	}
	id := "registration:" + uuid.NewString()
	houseKey := model.NameKey(reg.House)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin registration transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
INSERT INTO registrations (id, event_id, event_name, house, house_key, entries_json,
    participation_mode, counts_toward_limit, created_at)
SELECT ?, ?, ?, ?, ?, ?, ?, ?, ?
WHERE (SELECT COUNT(*) FROM registrations WHERE event_id = ? AND house_key = ?) < ?`,
		id, reg.EventID, reg.EventName, reg.House, houseKey, string(entries),
		string(reg.Mode), boolToInt(reg.CountsTowardLimit), toMillis(time.Now()),
		reg.EventID, houseKey, quota,
	)
	if err != nil {
		return nil, fmt.Errorf("insert registration: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, database.ErrLimitExceeded
	}

	for _, p := range reg.Entries.Participants() {
		memberID := p.ParticipantID
		if memberID == "" {
			memberID = "uid:" + model.NameKey(p.UID)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO registration_members (registration_id, participant_id, uid_key) VALUES (?, ?, ?)",
			id, memberID, model.NameKey(p.UID)); err != nil {
			return nil, fmt.Errorf("insert registration member: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit registration: %w", err)
	}
	return r.GetByID(ctx, id)
}

// Delete removes a registration and returns it as stored
func (r *RegistrationRepository) Delete(ctx context.Context, id string) (*model.Registration, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin delete transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, "SELECT "+registrationColumns+" FROM registrations r WHERE r.id = ?", id)
	reg, err := scanRegistration(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM registrations WHERE id = ?", id); err != nil {
		return nil, fmt.Errorf("delete registration: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit delete: %w", err)
	}
	return reg, nil
}

// GetByID retrieves a registration by id
func (r *RegistrationRepository) GetByID(ctx context.Context, id string) (*model.Registration, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+registrationColumns+" FROM registrations r WHERE r.id = ?", id)
	reg, err := scanRegistration(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return reg, err
}

// List returns all registrations, oldest first
func (r *RegistrationRepository) List(ctx context.Context) ([]*model.Registration, error) {
	return r.query(ctx, "")
}

// FindByHouse returns a house's registrations
func (r *RegistrationRepository) FindByHouse(ctx context.Context, house string) ([]*model.Registration, error) {
	return r.query(ctx, "WHERE r.house_key = ?", model.NameKey(house))
}

// FindByEvent returns an event's registrations
func (r *RegistrationRepository) FindByEvent(ctx context.Context, eventID string) ([]*model.Registration, error) {
	return r.query(ctx, "WHERE r.event_id = ?", eventID)
}

// FindByEventAndHouse returns a house's registrations for one event
func (r *RegistrationRepository) FindByEventAndHouse(ctx context.Context, eventID, house string) ([]*model.Registration, error) {
	return r.query(ctx, "WHERE r.event_id = ? AND r.house_key = ?", eventID, model.NameKey(house))
}

// CountByEventAndHouse counts a house's registrations for one event
func (r *RegistrationRepository) CountByEventAndHouse(ctx context.Context, eventID, house string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM registrations WHERE event_id = ? AND house_key = ?",
		eventID, model.NameKey(house)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count registrations: %w", err)
	}
	return n, nil
}

// FindByParticipant returns registrations naming the participant by id or uid
func (r *RegistrationRepository) FindByParticipant(ctx context.Context, ref string) ([]*model.Registration, error) {
	return r.query(ctx, `WHERE r.id IN (
    SELECT registration_id FROM registration_members WHERE participant_id = ? OR uid_key = ?)`,
		ref, model.NameKey(ref))
}

// DeleteAll removes every registration and returns how many there were
func (r *RegistrationRepository) DeleteAll(ctx context.Context) (int, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM registrations")
	if err != nil {
		return 0, fmt.Errorf("delete registrations: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (r *RegistrationRepository) query(ctx context.Context, where string, args ...any) ([]*model.Registration, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+registrationColumns+" FROM registrations r "+where+" ORDER BY r.created_at, r.id", args...)
	if err != nil {
		return nil, fmt.Errorf("query registrations: %w", err)
	}
	defer rows.Close()

	out := make([]*model.Registration, 0)
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, reg)
	}
	return out, rows.Err()
}

func scanRegistration(s rowScanner) (*model.Registration, error) {
	var (
		reg       model.Registration
		entries   string
		mode      string
		counts    int
		createdAt int64
	)
	err := s.Scan(&reg.ID, &reg.EventID, &reg.EventName, &reg.House, &entries, &mode, &counts, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan registration: %w", err)
	}
	if err := json.Unmarshal([]byte(entries), &reg.Entries); err != nil {
		return nil, fmt.Errorf("decode entries of %s: %w", reg.ID, err)
	}
	reg.Mode = model.ParticipationMode(mode)
	reg.CountsTowardLimit = counts != 0
	reg.CreatedOn = fromMillis(createdAt)
	return &reg, nil
}
