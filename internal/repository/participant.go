package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/forgo/festreg/internal/database"
	"github.com/forgo/festreg/internal/model"
)

// ParticipantRepository handles participant and counter access
type ParticipantRepository struct {
	db database.Database
}

// NewParticipantRepository creates a new participant repository
func NewParticipantRepository(db database.Database) *ParticipantRepository {
	return &ParticipantRepository{db: db}
}

// GetByID retrieves a participant by record id
func (r *ParticipantRepository) GetByID(ctx context.Context, id string) (*model.Participant, error) {
	if !hasRecordPrefix(id, "participant") {
		return nil, nil
	}
	return r.getOne(ctx, `SELECT * FROM type::record($id)`, map[string]interface{}{"id": id})
}

// GetByUID retrieves a participant by case-folded uid
func (r *ParticipantRepository) GetByUID(ctx context.Context, uid string) (*model.Participant, error) {
	query := `SELECT * FROM participant WHERE uid_key = $uid_key LIMIT 1`
	return r.getOne(ctx, query, map[string]interface{}{"uid_key": model.NameKey(uid)})
}

// List returns all participants ordered by uid
func (r *ParticipantRepository) List(ctx context.Context) ([]*model.Participant, error) {
	return r.list(ctx, `SELECT * FROM participant ORDER BY uid_key ASC`, nil)
}

// ListByHouse returns the members of one house
func (r *ParticipantRepository) ListByHouse(ctx context.Context, house string) ([]*model.Participant, error) {
	query := `SELECT * FROM participant WHERE house_key = $house_key ORDER BY uid_key ASC`
	return r.list(ctx, query, map[string]interface{}{"house_key": model.NameKey(house)})
}

// Create stores a participant; the uid index rejects case variants of an existing uid
func (r *ParticipantRepository) Create(ctx context.Context, p *model.Participant) (*model.Participant, error) {
	query := `
		CREATE participant CONTENT {
			uid: $uid,
			uid_key: $uid_key,
			full_name: $full_name,
			branch: $branch,
			semester: $semester,
			house: $house,
			house_key: $house_key,
			individual_count: $individual_count,
			group_count: $group_count,
			literary_count: $literary_count,
			created_on: time::now(),
			updated_on: time::now()
		}
	`
	vars := map[string]interface{}{
		"uid":              strings.TrimSpace(p.UID),
		"uid_key":          model.NameKey(p.UID),
		"full_name":        p.FullName,
		"branch":           p.Branch,
		"semester":         p.Semester,
		"house":            p.House,
		"house_key":        model.NameKey(p.House),
		"individual_count": max(p.Individual, 0),
		"group_count":      max(p.Group, 0),
		"literary_count":   max(p.Literary, 0),
	}

	results, err := r.db.Query(ctx, query, vars)
	if err != nil {
		if isUniqueConstraintError(err) {
			return nil, fmt.Errorf("%w: uid %s already exists", database.ErrDuplicate, p.UID)
		}
		return nil, err
	}
	rows := statementRows(results, 0)
	if len(rows) == 0 {
		return nil, errors.New("create participant: no record returned")
	}
	return parseParticipant(rows[0]), nil
}

// IncrementCounter adds one to the counter when it is below ceiling.
// The WHERE clause makes the comparison and the write a single statement.
func (r *ParticipantRepository) IncrementCounter(ctx context.Context, id string, kind model.CounterKind, ceiling int) (bool, error) {
	col, err := kind.Column()
	if err != nil {
		return false, err
	}
	if !hasRecordPrefix(id, "participant") {
		return false, database.ErrNotFound
	}

	query := fmt.Sprintf(`UPDATE type::record($id) SET %[1]s += 1, updated_on = time::now()`, col)
	vars := map[string]interface{}{"id": id}
	if ceiling > 0 {
		query += fmt.Sprintf(` WHERE %s < $ceiling`, col)
		vars["ceiling"] = ceiling
	}
	query += ` RETURN AFTER`

	results, err := r.db.Query(ctx, query, vars)
	if err != nil {
		return false, err
	}
	if len(statementRows(results, 0)) == 1 {
		return true, nil
	}

	existing, err := r.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	if existing == nil {
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
	if !hasRecordPrefix(id, "participant") {
		return database.ErrNotFound
	}
	query := fmt.Sprintf(`UPDATE type::record($id) SET %[1]s = math::max([%[1]s - 1, 0]), updated_on = time::now() RETURN AFTER`, col)
	return r.expectUpdated(ctx, query, map[string]interface{}{"id": id})
}

// SetCounters overwrites all three counters
func (r *ParticipantRepository) SetCounters(ctx context.Context, id string, c model.Counters) error {
	if !hasRecordPrefix(id, "participant") {
		return database.ErrNotFound
	}
	query := `
		UPDATE type::record($id) SET
			individual_count = $individual,
			group_count = $group,
			literary_count = $literary,
			updated_on = time::now()
		RETURN AFTER
	`
	vars := map[string]interface{}{
		"id":         id,
		"individual": max(c.Individual, 0),
		"group":      max(c.Group, 0),
		"literary":   max(c.Literary, 0),
	}
	return r.expectUpdated(ctx, query, vars)
}

// ResetAllCounters zeroes every participant's counters
func (r *ParticipantRepository) ResetAllCounters(ctx context.Context) error {
	query := `UPDATE participant SET individual_count = 0, group_count = 0, literary_count = 0, updated_on = time::now() RETURN NONE`
	return r.db.Execute(ctx, query, nil)
}

func (r *ParticipantRepository) expectUpdated(ctx context.Context, query string, vars map[string]interface{}) error {
	results, err := r.db.Query(ctx, query, vars)
	if err != nil {
		return err
	}
	if len(statementRows(results, 0)) == 0 {
		return database.ErrNotFound
	}
	return nil
}

func (r *ParticipantRepository) getOne(ctx context.Context, query string, vars map[string]interface{}) (*model.Participant, error) {
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
	return parseParticipant(data), nil
}

func (r *ParticipantRepository) list(ctx context.Context, query string, vars map[string]interface{}) ([]*model.Participant, error) {
	results, err := r.db.Query(ctx, query, vars)
	if err != nil {
		return nil, err
	}
	rows := statementRows(results, 0)
	out := make([]*model.Participant, 0, len(rows))
	for _, row := range rows {
		out = append(out, parseParticipant(row))
	}
	return out, nil
}

func parseParticipant(data map[string]interface{}) *model.Participant {
	return &model.Participant{
		ID:       convertSurrealID(data["id"]),
		UID:      getString(data, "uid"),
		FullName: getString(data, "full_name"),
		Branch:   getString(data, "branch"),
		Semester: getInt(data, "semester"),
		House:    getString(data, "house"),
		Counters: model.Counters{
			Individual: getInt(data, "individual_count"),
			Group:      getInt(data, "group_count"),
			Literary:   getInt(data, "literary_count"),
		},
		CreatedOn: getTimeValue(data, "created_on"),
		UpdatedOn: getTimeValue(data, "updated_on"),
	}
}
