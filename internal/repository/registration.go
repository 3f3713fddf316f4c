package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/forgo/festreg/internal/database"
	"github.com/forgo/festreg/internal/model"
)

// quotaExceeded is thrown inside the create transaction when the house is full
const quotaExceeded = "house quota exceeded"

// maxCreateAttempts bounds retries of a create that lost a commit conflict
const maxCreateAttempts = 5

// RegistrationRepository handles registration access.
// Member ids and folded uids are denormalized onto each record for participant lookups.
type RegistrationRepository struct {
	db database.Database
}

// NewRegistrationRepository creates a new registration repository
func NewRegistrationRepository(db database.Database) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

// Create inserts the registration inside a transaction that first counts the
// house's registrations for the event and aborts at quota. Every attempt also
// writes the (event, house) slot record, so two concurrent creates for the same
// house conflict at commit instead of both passing the count; the loser retries.
func (r *RegistrationRepository) Create(ctx context.Context, reg *model.Registration, quota int) (*model.Registration, error) {
	entries, err := toDocument(reg.Entries)
	if err != nil {
		return nil, fmt.Errorf("encode entries: %w", err)
	}
	memberIDs := make([]string, 0, len(reg.Entries))
	memberUIDs := make([]string, 0, len(reg.Entries))
	for _, p := range reg.Entries.Participants() {
		if p.ParticipantID != "" {
			memberIDs = append(memberIDs, p.ParticipantID)
		}
		memberUIDs = append(memberUIDs, model.NameKey(p.UID))
	}
	houseKey := model.NameKey(reg.House)

	tb := database.NewTxBuilder()
	tb.Add(`UPSERT type::thing('registration_slot', [$event_id, $house_key]) SET writes += 1 RETURN NONE`,
		map[string]interface{}{"event_id": reg.EventID, "house_key": houseKey})
	tb.Add(`LET $taken = (SELECT count() AS count FROM registration
			WHERE event_id = $event_id AND house_key = $house_key GROUP ALL)[0].count ?? 0`,
		map[string]interface{}{"event_id": reg.EventID, "house_key": houseKey})
	tb.Add(`IF $taken >= $quota { THROW "`+quotaExceeded+`" }`,
		map[string]interface{}{"quota": quota})
	tb.Add(`
		CREATE registration CONTENT {
			event_id: $event_id,
			event_name: $event_name,
			house: $house_name,
			house_key: $house_key,
			entries: $entries,
			member_ids: $member_ids,
			member_uid_keys: $member_uid_keys,
			participation_mode: $mode,
			counts_toward_limit: $counts,
			created_on: time::now()
		}
	`, map[string]interface{}{
		"event_id":        reg.EventID,
		"event_name":      reg.EventName,
		"house_name":      reg.House,
		"house_key":       houseKey,
		"entries":         entries,
		"member_ids":      memberIDs,
		"member_uid_keys": memberUIDs,
		"mode":            string(reg.Mode),
		"counts":          reg.CountsTowardLimit,
	})

	var results []interface{}
	for attempt := 1; ; attempt++ {
		results, err = database.ExecuteTransaction(ctx, r.db, tb)
		if err == nil {
			break
		}
		if database.IsThrown(err, quotaExceeded) {
			return nil, database.ErrLimitExceeded
		}
		if !isTxConflict(err) || attempt == maxCreateAttempts {
			return nil, err
		}
	}
	rows := statementRows(results, -1)
	if len(rows) == 0 {
		return nil, errors.New("create registration: no record returned")
	}
	return parseRegistration(rows[0])
}

// Delete removes a registration and returns it as stored
func (r *RegistrationRepository) Delete(ctx context.Context, id string) (*model.Registration, error) {
	if !hasRecordPrefix(id, "registration") {
		return nil, database.ErrNotFound
	}
	results, err := r.db.Query(ctx, `DELETE type::record($id) RETURN BEFORE`, map[string]interface{}{"id": id})
	if err != nil {
		return nil, err
	}
	rows := statementRows(results, 0)
	if len(rows) == 0 {
		return nil, database.ErrNotFound
	}
	return parseRegistration(rows[0])
}

// GetByID retrieves a registration by record id
func (r *RegistrationRepository) GetByID(ctx context.Context, id string) (*model.Registration, error) {
	if !hasRecordPrefix(id, "registration") {
		return nil, nil
	}
	result, err := r.db.QueryOne(ctx, `SELECT * FROM type::record($id)`, map[string]interface{}{"id": id})
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
	return parseRegistration(data)
}

// List returns all registrations, oldest first
func (r *RegistrationRepository) List(ctx context.Context) ([]*model.Registration, error) {
	return r.query(ctx, "", nil)
}

// FindByHouse returns a house's registrations
func (r *RegistrationRepository) FindByHouse(ctx context.Context, house string) ([]*model.Registration, error) {
	return r.query(ctx, "WHERE house_key = $house_key",
		map[string]interface{}{"house_key": model.NameKey(house)})
}

// FindByEvent returns an event's registrations
func (r *RegistrationRepository) FindByEvent(ctx context.Context, eventID string) ([]*model.Registration, error) {
	return r.query(ctx, "WHERE event_id = $event_id", map[string]interface{}{"event_id": eventID})
}

// FindByEventAndHouse returns a house's registrations for one event
func (r *RegistrationRepository) FindByEventAndHouse(ctx context.Context, eventID, house string) ([]*model.Registration, error) {
	return r.query(ctx, "WHERE event_id = $event_id AND house_key = $house_key",
		map[string]interface{}{"event_id": eventID, "house_key": model.NameKey(house)})
}

// CountByEventAndHouse counts a house's registrations for one event
func (r *RegistrationRepository) CountByEventAndHouse(ctx context.Context, eventID, house string) (int, error) {
	query := `SELECT count() AS count FROM registration WHERE event_id = $event_id AND house_key = $house_key GROUP ALL`
	vars := map[string]interface{}{"event_id": eventID, "house_key": model.NameKey(house)}

	result, err := r.db.QueryOne(ctx, query, vars)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return extractCount(result), nil
}

// FindByParticipant returns registrations naming the participant by id or uid
func (r *RegistrationRepository) FindByParticipant(ctx context.Context, ref string) ([]*model.Registration, error) {
	return r.query(ctx, "WHERE member_ids CONTAINS $ref OR member_uid_keys CONTAINS $uid_key",
		map[string]interface{}{"ref": ref, "uid_key": model.NameKey(ref)})
}

// DeleteAll removes every registration and returns how many there were
func (r *RegistrationRepository) DeleteAll(ctx context.Context) (int, error) {
	results, err := r.db.Query(ctx, `DELETE registration RETURN BEFORE; DELETE registration_slot RETURN NONE`, nil)
	if err != nil {
		return 0, err
	}
	return len(statementRows(results, 0)), nil
}

func (r *RegistrationRepository) query(ctx context.Context, where string, vars map[string]interface{}) ([]*model.Registration, error) {
	results, err := r.db.Query(ctx, "SELECT * FROM registration "+where+" ORDER BY created_on ASC", vars)
	if err != nil {
		return nil, err
	}
	rows := statementRows(results, 0)
	out := make([]*model.Registration, 0, len(rows))
	for _, row := range rows {
		reg, err := parseRegistration(row)
		if err != nil {
			return nil, err
		}
		out = append(out, reg)
	}
	return out, nil
}

func parseRegistration(data map[string]interface{}) (*model.Registration, error) {
	reg := &model.Registration{
		ID:                convertSurrealID(data["id"]),
		EventID:           getString(data, "event_id"),
		EventName:         getString(data, "event_name"),
		House:             getString(data, "house"),
		Mode:              model.ParticipationMode(getString(data, "participation_mode")),
		CountsTowardLimit: getBool(data, "counts_toward_limit"),
		CreatedOn:         getTimeValue(data, "created_on"),
	}
	if raw, ok := data["entries"]; ok && raw != nil {
		if err := fromDocument(raw, &reg.Entries); err != nil {
			return nil, fmt.Errorf("decode entries of %s: %w", reg.ID, err)
		}
	}
	return reg, nil
}
