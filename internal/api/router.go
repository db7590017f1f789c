package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/shelf/internal/nodeservice"
	"github.com/starford/shelf/internal/observable"
	"github.com/starford/shelf/internal/persist"
	"github.com/starford/shelf/internal/view"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *nodeservice.Service, views *view.State, status *observable.Value[*persist.Status], authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc, views, status)
	fh := NewFileHandler(svc.Library())

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Nodes.
	r.Get("/nodes", h.ListNodes)
	r.Post("/nodes", h.CreateNode)
	r.Route("/nodes/{id}", func(r chi.Router) {
		r.Get("/", h.GetNode)
		r.Delete("/", h.DeleteNode)
		r.Put("/text", h.EditText)
		r.Put("/name", h.Rename)
		r.Put("/parent", h.Move)
		r.Put("/tags", h.SetTags)
	})

	// Directories and paths.
	r.Post("/directories", h.CreatePath)
	r.Get("/paths/{id}", h.ResolvePath)
	r.Get("/tree", h.Tree)

	// Files.
	r.Post("/files", fh.Upload)
	r.Get("/files/{id}", fh.ServeFile)

	// Tags.
	r.Get("/tags", h.ListTags)
	r.Post("/tags", h.CreateTag)

	// Search.
	r.Get("/search", h.Search)

	// View state.
	r.Get("/view", h.GetView)
	r.Put("/view", h.PutView)
	r.Get("/view/nodes", h.ViewNodes)

	// Persistence.
	r.Get("/status", h.Status)
	r.Post("/save", h.Save)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
