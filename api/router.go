package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/maxpoletaev/gms/api/handler"
)

// CreateRouter creates the admin API router. The metrics handler is mounted
// at /metrics when provided.
func CreateRouter(cluster handler.Cluster, group handler.Group, metrics http.Handler) *chi.Mux {
	r := chi.NewRouter()

	handler.NewNodesHandler(cluster).Register(r)
	handler.NewMembersHandler(group).Register(r)

	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}

	return r
}
