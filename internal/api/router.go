// Package api serves read-only JSON introspection of a running pipeline.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/roach88/framepipe/internal/pipeline"
	"github.com/roach88/framepipe/internal/store"
)

// App holds what the handlers read. Store and Recorder are optional; the
// history and recorder routes answer 501 without them.
type App struct {
	Pipeline *pipeline.Pipeline
	Store    *store.Store
	Recorder *store.Recorder
	RunID    string
}

// NewRouter mounts the introspection routes.
func (app *App) NewRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", HealthHandler)

	r.Route("/stages", func(r chi.Router) {
		r.Get("/", app.StagesHandler)
		r.Get("/{name}/handles", app.StageHandlesHandler)
	})
	r.Get("/contention", app.ContentionHandler)

	r.Route("/handles/{handle}", func(r chi.Router) {
		r.Get("/", app.HandleHandler)
		r.Get("/snapshot", app.SnapshotHandler)
		r.Get("/history", app.HistoryHandler)
	})
	r.Get("/recorder", app.RecorderHandler)

	return r
}
