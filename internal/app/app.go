// Package app assembles the storage backend and services from configuration.
// The HTTP server and festctl share it so both see the same wiring.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/forgo/festreg/internal/catalogfile"
	"github.com/forgo/festreg/internal/config"
	"github.com/forgo/festreg/internal/database"
	"github.com/forgo/festreg/internal/repository"
	"github.com/forgo/festreg/internal/repository/memory"
	"github.com/forgo/festreg/internal/repository/sqlite"
	"github.com/forgo/festreg/internal/service"
)

// Pinger reports backend reachability
type Pinger interface {
	Ping(ctx context.Context) error
}

// Repositories is one backend's full set of repositories
type Repositories struct {
	Events        service.EventRepository
	Participants  service.ParticipantRepository
	Registrations service.RegistrationRepository
	Houses        service.HouseRepository
}

// App holds the wired services and the backend they run on
type App struct {
	Driver string
	// Storage is nil for the in-memory backend
	Storage Pinger

	Catalog      *service.EventCatalog
	Registration *service.RegistrationService
	Directory    *service.DirectoryService
	Maintenance  *service.MaintenanceService

	closers []func() error
}

// New opens the configured backend and builds the services on it
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Driver: cfg.Storage.Driver}

	var repos Repositories
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		repos = Repositories{
			Events:        memory.NewEventRepository(),
			Participants:  memory.NewParticipantRepository(),
			Registrations: memory.NewRegistrationRepository(),
			Houses:        memory.NewHouseRepository(),
		}

	case config.DriverSQLite:
		store, err := sqlite.Open(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		a.Storage = store
		a.closers = append(a.closers, store.Close)
		repos = Repositories{
			Events:        store.Events(),
			Participants:  store.Participants(),
			Registrations: store.Registrations(),
			Houses:        store.Houses(),
		}

	case config.DriverSurrealDB:
		db := database.NewSurrealDB(cfg.SurrealDB())
		if err := db.Connect(ctx); err != nil {
			return nil, fmt.Errorf("connect to surrealdb: %w", err)
		}
		a.Storage = db
		a.closers = append(a.closers, db.Close)
		if err := database.ApplySchema(ctx, db); err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("apply surrealdb schema: %w", err)
		}
		repos = Repositories{
			Events:        repository.NewEventRepository(db),
			Participants:  repository.NewParticipantRepository(db),
			Registrations: repository.NewRegistrationRepository(db),
			Houses:        repository.NewHouseRepository(db),
		}

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}

	a.wire(repos, cfg.Catalog)
	slog.Info("storage ready", slog.String("driver", a.Driver))
	return a, nil
}

// NewWithRepositories builds the services on caller-supplied repositories
func NewWithRepositories(repos Repositories, catalog config.CatalogConfig) *App {
	a := &App{Driver: "custom"}
	a.wire(repos, catalog)
	return a
}

func (a *App) wire(repos Repositories, cat config.CatalogConfig) {
	locks := service.NewLocks()
	a.Catalog = service.NewEventCatalog(repos.Events)

	reconciler := service.NewCounterReconciler(service.CounterReconcilerConfig{
		ParticipantRepo:  repos.Participants,
		RegistrationRepo: repos.Registrations,
		Events:           a.Catalog,
	})
	validator := service.NewRegistrationValidator(service.RegistrationValidatorConfig{
		Events:           a.Catalog,
		RegistrationRepo: repos.Registrations,
		ParticipantRepo:  repos.Participants,
		DiversityEvents:  cat.DiversityEvents,
		MinLanguages:     cat.MinLanguages,
	})

	a.Registration = service.NewRegistrationService(service.RegistrationServiceConfig{
		Catalog:          a.Catalog,
		Validator:        validator,
		Reconciler:       reconciler,
		RegistrationRepo: repos.Registrations,
		ParticipantRepo:  repos.Participants,
		Locks:            locks,
	})
	a.Directory = service.NewDirectoryService(service.DirectoryServiceConfig{
		Catalog:          a.Catalog,
		ParticipantRepo:  repos.Participants,
		HouseRepo:        repos.Houses,
		RegistrationRepo: repos.Registrations,
	})
	a.Maintenance = service.NewMaintenanceService(service.MaintenanceServiceConfig{
		Catalog:          a.Catalog,
		Reconciler:       reconciler,
		RegistrationRepo: repos.Registrations,
		ParticipantRepo:  repos.Participants,
		HouseRepo:        repos.Houses,
		Locks:            locks,
	})
}

// SeedFile loads an HCL catalog file into the backend
func (a *App) SeedFile(ctx context.Context, path string) (*service.SeedReport, error) {
	cat, err := catalogfile.Load(path)
	if err != nil {
		return nil, err
	}
	report, err := a.Maintenance.SeedCatalog(ctx, cat)
	if err != nil {
		return nil, fmt.Errorf("seed %s: %w", path, err)
	}
	return report, nil
}

// Close releases the backend
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
