// Package repository implements the surrealdb storage driver.
//
// Each repository satisfies one of the repository interfaces declared in the
// service package and talks to SurrealDB through database.Database. Records
// keep a lowercased name_key or uid_key next to the display value, and the
// unique indexes in the database schema are defined on those keys, so lookups
// by name are case-insensitive and duplicates surface as database.ErrDuplicate.
//
// Guarded writes are atomic on the server. The registration quota check and
// insert run as one transaction block built with database.TxBuilder. The block
// also writes a registration_slot record for the (event, house) pair, so
// concurrent inserts for one house conflict at commit and are retried. A
// counter increment is a single UPDATE whose WHERE clause enforces the ceiling.
//
// The sqlite and memory subpackages implement the same interfaces for the
// other storage drivers.
//
//	repo := repository.NewParticipantRepository(db)
//	p, err := repo.GetByUID(ctx, "rj-01")
//	if err != nil {
//	    return err
//	}
//	if p == nil {
//	    // not found
//	}
package repository
