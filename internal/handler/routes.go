package handler

import (
	"net/http"

	"github.com/forgo/festreg/internal/middleware"
)

// Routes groups the handlers and the per-route middleware mounted on the mux
type Routes struct {
	Health       *HealthHandler
	Registration *RegistrationHandler
	Event        *EventHandler
	Directory    *DirectoryHandler
	Admin        *AdminHandler

	// AdminGuard wraps every /v1/admin route
	AdminGuard middleware.Middleware
	// Submit wraps POST /v1/registrations, outermost first
	Submit []middleware.Middleware
}

// Register mounts every route on mux
func (rt *Routes) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", rt.Health.Health)

	// Registrations
	submit := middleware.Chain(http.HandlerFunc(rt.Registration.Submit), rt.Submit...)
	mux.Handle("POST /v1/registrations", submit)
	mux.HandleFunc("GET /v1/registrations", rt.Registration.List)
	mux.HandleFunc("GET /v1/registrations/{id}", rt.Registration.Get)
	mux.HandleFunc("DELETE /v1/registrations/{id}", rt.Registration.Delete)

	// Catalog and directory
	mux.HandleFunc("GET /v1/events", rt.Event.List)
	mux.HandleFunc("GET /v1/events/{ref}", rt.Event.Get)
	mux.HandleFunc("GET /v1/participants", rt.Directory.ListParticipants)
	mux.HandleFunc("GET /v1/participants/{ref}", rt.Directory.GetParticipant)
	mux.HandleFunc("GET /v1/houses", rt.Directory.ListHouses)
	mux.HandleFunc("GET /v1/houses/{name}/status", rt.Directory.HouseStatus)

	// Maintenance
	guard := rt.AdminGuard
	if guard == nil {
		guard = middleware.AdminToken("")
	}
	admin := func(h http.HandlerFunc) http.Handler { return guard(h) }
	mux.Handle("POST /v1/admin/resync", admin(rt.Admin.Resync))
	mux.Handle("POST /v1/admin/registrations/clear", admin(rt.Admin.ClearRegistrations))
	mux.Handle("POST /v1/admin/registrations/open", admin(rt.Admin.OpenRegistrations))
	mux.Handle("POST /v1/admin/registrations/close", admin(rt.Admin.CloseRegistrations))
	mux.Handle("POST /v1/admin/events", admin(rt.Admin.DefineEvent))
	mux.Handle("PUT /v1/admin/events/{ref}", admin(rt.Admin.UpdateEvent))
	mux.Handle("DELETE /v1/admin/events/{ref}", admin(rt.Admin.DeleteEvent))
	mux.Handle("PATCH /v1/admin/events/{ref}/toggle-registration", admin(rt.Admin.ToggleRegistration))
	mux.Handle("POST /v1/admin/catalog", admin(rt.Admin.SeedCatalog))
	mux.Handle("POST /v1/admin/participants", admin(rt.Admin.CreateParticipant))
	mux.Handle("POST /v1/admin/houses", admin(rt.Admin.CreateHouse))
}
