package database

import (
	"context"
	_ "embed"
	"fmt"
)

//go:embed schema.surql
var schema string

// ApplySchema defines the tables and unique indexes the repositories rely on.
// Every statement is idempotent so it runs on each startup.
func ApplySchema(ctx context.Context, db Database) error {
	if err := db.Execute(ctx, schema, nil); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
