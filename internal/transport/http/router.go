package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Menakta/op-skillsim-sub004/internal/gate"
	launchhandler "github.com/Menakta/op-skillsim-sub004/internal/launch/handler"
	"github.com/Menakta/op-skillsim-sub004/pkg/platform/middleware/metadata"
	"github.com/Menakta/op-skillsim-sub004/pkg/platform/middleware/requestid"
)

// NewRouter assembles the full perimeter router. The gate wraps every route;
// it decides admission before any handler below it runs.
func NewRouter(g *gate.Gate, launch *launchhandler.Handler, h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(requestid.RequestID)
	r.Use(metadata.ClientMetadata)
	r.Use(g.Middleware)

	launch.Register(r)
	h.Register(r)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}
