package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RouterConfig holds what NewRouter mounts.
type RouterConfig struct {
	Store  Store
	Widget Widget
	// Events, if non-nil, is mounted at GET /api/events.
	Events http.Handler

	AuthEnabled   bool
	Token         string
	AllowedOrigin string
}

// NewRouter creates a chi router with the persistence receiver at the root
// and the widget routes under /api. Either side is skipped when its
// dependency is nil.
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()
	r.Use(CORSMiddleware(cfg.AllowedOrigin))
	r.Use(AuthMiddleware(cfg.AuthEnabled, cfg.Token))

	if cfg.Store != nil {
		h := NewHandler(cfg.Store)

		// Receiver for save and rename telemetry.
		r.Post("/save_notebook", h.SaveNotebook)
		r.Post("/rename_notebook", h.RenameNotebook)

		// History.
		r.Get("/history", h.History)
		r.Get("/notebooks", h.ListNotebooks)
		r.Get("/notebooks/*", h.GetNotebook)
	}

	if cfg.Widget != nil || cfg.Events != nil {
		r.Route("/api", func(r chi.Router) {
			if cfg.Widget != nil {
				wh := NewWidgetHandler(cfg.Widget)
				r.Get("/widget", wh.GetWidget)
				r.Put("/notebook", wh.UpdateNotebook)
				r.Post("/notebook/save", wh.SaveNotebook)
				r.Post("/notebook/rename", wh.OpenRename)
				r.Post("/notebook/rename/confirm", wh.ConfirmRename)
				r.Post("/notebook/rename/key", wh.RenameKey)
				r.Post("/notebook/rename/cancel", wh.CancelRename)
			}

			// SSE endpoint (protected by same auth middleware).
			if cfg.Events != nil {
				r.Get("/events", cfg.Events.ServeHTTP)
			}
		})
	}

	return r
}
