package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	mw "github.com/w-gitops/grocyscan/internal/api/middleware"
	"github.com/w-gitops/grocyscan/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Auth      *mw.Auth
	RateLimit *mw.RateLimit

	HealthHandler  http.HandlerFunc
	ResolveHandler http.HandlerFunc

	MintHandler   http.HandlerFunc
	AssignHandler http.HandlerFunc
	RevokeHandler http.HandlerFunc

	CreateNamespaceHandler http.HandlerFunc
	ListNamespacesHandler  http.HandlerFunc

	GetBatchHandler         http.HandlerFunc
	MarkBatchPrintedHandler http.HandlerFunc

	CreateKeyHandler http.HandlerFunc
	ListKeysHandler  http.HandlerFunc
	RevokeKeyHandler http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	// Public health check
	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))

	// Scan resolution: open to unauthenticated scanners, but tenant context
	// is attached when a key is presented. Per-address rate limiting slows
	// code enumeration.
	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.AuthenticateOptional)
		r.Use(deps.RateLimit.LimitResolve)

		r.Get("/api/v1/resolve/{code}", orNotImplemented(deps.ResolveHandler))
	})

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.Authenticate)
		r.Use(deps.RateLimit.Limit)

		r.Post("/api/v1/mint", orNotImplemented(deps.MintHandler))
		r.Post("/api/v1/tokens/{code}/assign", orNotImplemented(deps.AssignHandler))
		r.Post("/api/v1/tokens/{code}/revoke", orNotImplemented(deps.RevokeHandler))

		r.Post("/api/v1/namespaces", orNotImplemented(deps.CreateNamespaceHandler))
		r.Get("/api/v1/namespaces", orNotImplemented(deps.ListNamespacesHandler))

		r.Get("/api/v1/batches/{batchID}", orNotImplemented(deps.GetBatchHandler))
		r.Post("/api/v1/batches/{batchID}/printed", orNotImplemented(deps.MarkBatchPrintedHandler))

		// Admin routes
		r.Group(func(r chi.Router) {
			r.Use(deps.Auth.RequireScope("admin"))

			r.Post("/api/v1/admin/keys", orNotImplemented(deps.CreateKeyHandler))
			r.Get("/api/v1/admin/keys", orNotImplemented(deps.ListKeysHandler))
			r.Delete("/api/v1/admin/keys/{keyID}", orNotImplemented(deps.RevokeKeyHandler))
		})
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
