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

// HouseRepository stores houses in SQLite
type HouseRepository struct {
	db *sql.DB
}

// List returns all houses ordered by name
func (r *HouseRepository) List(ctx context.Context) ([]*model.House, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, name, captain, created_at FROM houses ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list houses: %w", err)
	}
	defer rows.Close()

	out := make([]*model.House, 0)
	for rows.Next() {
		h, err := scanHouse(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// GetByName retrieves a house by case-folded name
func (r *HouseRepository) GetByName(ctx context.Context, name string) (*model.House, error) {
	row := r.db.QueryRowContext(ctx, "SELECT id, name, captain, created_at FROM houses WHERE name_key = ?", model.NameKey(name))
	h, err := scanHouse(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return h, err
}

// Create stores a house
func (r *HouseRepository) Create(ctx context.Context, h *model.House) (*model.House, error) {
	id := h.ID
	if id == "" {
		id = "house:" + uuid.NewString()
	}
	name := strings.TrimSpace(h.Name)
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO houses (id, name, name_key, captain, created_at) VALUES (?, ?, ?, ?, ?)",
		id, name, model.NameKey(name), h.Captain, toMillis(time.Now()))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, database.ErrDuplicate
		}
		return nil, fmt.Errorf("create house: %w", err)
	}
	return r.GetByName(ctx, name)
}

func scanHouse(s rowScanner) (*model.House, error) {
	var (
		h         model.House
		createdAt int64
	)
	if err := s.Scan(&h.ID, &h.Name, &h.Captain, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan house: %w", err)
	}
	h.CreatedOn = fromMillis(createdAt)
	return &h, nil
}
