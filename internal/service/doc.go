// Package service implements the business logic layer for festival registration.
//
// The service package contains the eligibility rules, the participant counter
// engine, and the orchestration of repository operations. Services are the
// primary abstraction between HTTP handlers and data access.
//
// # Components
//
//   - EventCatalog: resolves event references and normalizes legacy limit fields
//   - RegistrationValidator: runs the eligibility checks in a fixed order
//   - CounterReconciler: sole writer of participant counters; applies deltas and resyncs
//   - RegistrationService: serializes submit/delete and rolls back partial writes
//   - MaintenanceService: resync, bulk clear, bulk open/close, catalog seeding
//   - DirectoryService: houses, participants, house quota status
//
// # Service Pattern
//
//   - Constructor function (NewXxx) accepts a config struct with repository dependencies
//   - Services define their own repository interfaces
//   - Errors are returned as sentinel errors or wrapped errors for context
//
// # Rejections
//
// Rule violations are *RejectionError values that match a sentinel via errors.Is:
//
//	if errors.Is(err, service.ErrHouseQuotaExceeded) {
//	    rej, _ := service.AsRejection(err)
//	    fmt.Println(rej.Message)
//	}
//
// # Concurrency
//
// Submissions and deletes hold a shared maintenance lock, one lock per event,
// and one lock per participant uid taken in ascending order. Maintenance
// operations hold the maintenance lock exclusively.
package service
