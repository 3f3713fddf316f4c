package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/forgo/festreg/internal/database"
	"github.com/forgo/festreg/internal/model"
)

// HouseRepository handles house access
type HouseRepository struct {
	db database.Database
}

// NewHouseRepository creates a new house repository
func NewHouseRepository(db database.Database) *HouseRepository {
	return &HouseRepository{db: db}
}

// List returns all houses ordered by name
func (r *HouseRepository) List(ctx context.Context) ([]*model.House, error) {
	results, err := r.db.Query(ctx, `SELECT * FROM house ORDER BY name ASC`, nil)
	if err != nil {
		return nil, err
	}
	rows := statementRows(results, 0)
	out := make([]*model.House, 0, len(rows))
	for _, row := range rows {
		out = append(out, parseHouse(row))
	}
	return out, nil
}

// GetByName retrieves a house by case-folded name
func (r *HouseRepository) GetByName(ctx context.Context, name string) (*model.House, error) {
	query := `SELECT * FROM house WHERE name_key = $name_key LIMIT 1`
	result, err := r.db.QueryOne(ctx, query, map[string]interface{}{"name_key": model.NameKey(name)})
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
	return parseHouse(data), nil
}

// Create stores a house
func (r *HouseRepository) Create(ctx context.Context, h *model.House) (*model.House, error) {
	query := `
		CREATE house CONTENT {
			name: $name,
			name_key: $name_key,
			captain: $captain,
			created_on: time::now()
		}
	`
	name := strings.TrimSpace(h.Name)
	vars := map[string]interface{}{
		"name":     name,
		"name_key": model.NameKey(name),
		"captain":  h.Captain,
	}

	results, err := r.db.Query(ctx, query, vars)
	if err != nil {
		if isUniqueConstraintError(err) {
			return nil, fmt.Errorf("%w: house %s already exists", database.ErrDuplicate, name)
		}
		return nil, err
	}
	rows := statementRows(results, 0)
	if len(rows) == 0 {
		return nil, errors.New("create house: no record returned")
	}
	return parseHouse(rows[0]), nil
}

func parseHouse(data map[string]interface{}) *model.House {
	return &model.House{
		ID:        convertSurrealID(data["id"]),
		Name:      getString(data, "name"),
		Captain:   getString(data, "captain"),
		CreatedOn: getTimeValue(data, "created_on"),
	}
}
