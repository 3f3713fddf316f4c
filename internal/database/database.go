// Package database holds the SurrealDB connection used by the surrealdb
// storage driver, and the error values every storage backend shares.
//
// Repositories in the sibling packages translate their driver errors into
// these values, so services can check them with errors.Is regardless of
// which backend is configured:
//
//	if errors.Is(err, database.ErrDuplicate) {
//	    return nil, service.ErrParticipantExists
//	}
//
// Query results keep the SurrealDB response shape: one element per
// statement, each a map with "status" and "result" keys.
package database

import (
	"context"
	"errors"
	"fmt"
)

// Errors shared by all storage backends
var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate indicates a unique key is already taken, such as a participant uid or a house name.
	ErrDuplicate = errors.New("duplicate record")

	// ErrConnection indicates a failure to connect to or communicate with the database.
	ErrConnection = errors.New("database connection error")

	// ErrQuery indicates a statement failed or was aborted with THROW.
	ErrQuery = errors.New("query error")

	// ErrLimitExceeded indicates a guarded write found its quota or ceiling already reached.
	ErrLimitExceeded = errors.New("limit exceeded")
)

// Database is the SurrealDB surface the repositories use
type Database interface {
	Connect(ctx context.Context) error
	Close() error
	Ping(ctx context.Context) error

	// Query runs one or more statements and returns one entry per statement
	Query(ctx context.Context, query string, vars map[string]interface{}) ([]interface{}, error)

	// QueryOne returns the first record of the first statement, or ErrNotFound
	QueryOne(ctx context.Context, query string, vars map[string]interface{}) (interface{}, error)

	// Execute runs statements and discards their results
	Execute(ctx context.Context, query string, vars map[string]interface{}) error
}

// Config holds SurrealDB connection settings
type Config struct {
	Host      string
	Port      string
	User      string
	Password  string
	Namespace string
	Database  string
}

// Endpoint returns the websocket RPC endpoint for the configured host
func (c Config) Endpoint() string {
	return fmt.Sprintf("ws://%s:%s", c.Host, c.Port)
}
