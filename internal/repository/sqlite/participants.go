package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/forgo/festreg/internal/database"
	"github.com/forgo/festreg/internal/model"
)

const participantColumns = `id, uid, full_name, branch, semester, house,
    individual_count, group_count, literary_count, created_at, updated_at`

// ParticipantRepository stores participants and their counters in SQLite
type ParticipantRepository struct {
	db *sql.DB
}

// GetByID retrieves a participant by id
func (r *ParticipantRepository) GetByID(ctx context.Context, id string) (*model.Participant, error) {
	return r.getOne(ctx, "id = ?", id)
}

// GetByUID retrieves a participant by case-folded uid
func (r *ParticipantRepository) GetByUID(ctx context.Context, uid string) (*model.Participant, error) {
	return r.getOne(ctx, "uid_key = ?", model.NameKey(uid))
}

// List returns all participants ordered by uid
func (r *ParticipantRepository) List(ctx context.Context) ([]*model.Participant, error) {
	return r.query(ctx, "SELECT "+participantColumns+" FROM participants ORDER BY uid_key")
}

// ListByHouse returns the members of one house
func (r *ParticipantRepository) ListByHouse(ctx context.Context, house string) ([]*model.Participant, error) {
	return r.query(ctx, "SELECT "+participantColumns+" FROM participants WHERE house_key = ? ORDER BY uid_key",
		model.NameKey(house))
}

// Create stores a participant; uids are unique regardless of case
func (r *ParticipantRepository) Create(ctx context.Context, p *model.Participant) (*model.Participant, error) {
	id := p.ID
	if id == "" {
		id = "participant:" + uuid.NewString()
	}
	now := toMillis(time.Now())
	_, err := r.db.ExecContext(ctx, `
INSERT INTO participants (`+participantColumns+`, uid_key, house_key)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, strings.TrimSpace(p.UID), p.FullName, p.Branch, p.Semester, p.House,
		p.Individual, p.Group, p.Literary, now, now,
		model.NameKey(p.UID), model.NameKey(p.House),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, database.ErrDuplicate
		}
		return nil, fmt.Errorf("create participant: %w", err)
	}
	return r.GetByID(ctx, id)
}

// IncrementCounter adds one to the counter when it is below ceiling.
// The comparison lives in the UPDATE so the check and write are one statement.
func (r *ParticipantRepository) IncrementCounter(ctx context.Context, id string, kind model.CounterKind, ceiling int) (bool, error) {
	col, err := kind.Column()
	if err != nil {
		return false, err
	}
	query := fmt.Sprintf("UPDATE participants SET %[1]s = %[1]s + 1, updated_at = ? WHERE id = ?", col)
	args := []any{toMillis(time.Now()), id}
	if ceiling > 0 {
		query += fmt.Sprintf(" AND %s < ?", col)
		args = append(args, ceiling)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("increment %s: %w", col, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 1 {
		return true, nil
	}

	exists, err := r.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	if exists == nil {
		return false, database.ErrNotFound
	}
	return false, nil
}

// DecrementCounter subtracts one from the counter, flooring at zero
func (r *ParticipantRepository) DecrementCounter(ctx context.Context, id string, kind model.CounterKind) error {
	col, err := kind.Column()
	if err != nil {
		return err
	}
	query := fmt.Sprintf("UPDATE participants SET %[1]s = MAX(%[1]s - 1, 0), updated_at = ? WHERE id = ?", col)
	res, err := r.db.ExecContext(ctx, query, toMillis(time.Now()), id)
	if err != nil {
		return fmt.Errorf("decrement %s: %w", col, err)
	}
	return expectOneRow(res)
}

// SetCounters overwrites all three counters
func (r *ParticipantRepository) SetCounters(ctx context.Context, id string, c model.Counters) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE participants SET individual_count = ?, group_count = ?, literary_count = ?, updated_at = ?
WHERE id = ?`,
		max(c.Individual, 0), max(c.Group, 0), max(c.Literary, 0), toMillis(time.Now()), id)
	if err != nil {
		return fmt.Errorf("set counters: %w", err)
	}
	return expectOneRow(res)
}

// ResetAllCounters zeroes every participant's counters
func (r *ParticipantRepository) ResetAllCounters(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE participants SET individual_count = 0, group_count = 0, literary_count = 0, updated_at = ?",
		toMillis(time.Now()))
	if err != nil {
		return fmt.Errorf("reset counters: %w", err)
	}
	return nil
}

func (r *ParticipantRepository) getOne(ctx context.Context, where string, arg any) (*model.Participant, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+participantColumns+" FROM participants WHERE "+where, arg)
	p, err := scanParticipant(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

func (r *ParticipantRepository) query(ctx context.Context, query string, args ...any) ([]*model.Participant, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()

	out := make([]*model.Participant, 0)
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanParticipant(s rowScanner) (*model.Participant, error) {
	var (
		p                    model.Participant
		createdAt, updatedAt int64
	)
	err := s.Scan(&p.ID, &p.UID, &p.FullName, &p.Branch, &p.Semester, &p.House,
		&p.Individual, &p.Group, &p.Literary, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan participant: %w", err)
	}
	p.CreatedOn = fromMillis(createdAt)
	p.UpdatedOn = fromMillis(updatedAt)
	return &p, nil
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return database.ErrNotFound
	}
	return nil
}
