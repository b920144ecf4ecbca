// Package transporthttp exposes the engine over HTTP. Handlers stay thin:
// parse, call the service, translate. Error responses carry stable
// locale-neutral identifiers only; trust rejections never reveal which
// detection layer triggered.
package transporthttp

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"veriloc/internal/consent"
	"veriloc/internal/location"
	"veriloc/internal/rights"
	"veriloc/internal/verification"
	"veriloc/pkg/platform/httputil"
)

// Services bundles everything the router serves.
type Services struct {
	Verification *verification.Service
	Monitor      *verification.Monitor
	Consent      *consent.Service
	Rights       *rights.Service
	// Ingest enables the device report endpoint when the engine runs with
	// the push-based location source. Nil hides the endpoint.
	Ingest *location.PushSource
	Logger *slog.Logger
}

// NewRouter builds the engine's HTTP surface.
func NewRouter(svc Services) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestContext)
	r.Use(requestLogger(svc.Logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	vh := &verifyHandler{service: svc.Verification, monitor: svc.Monitor, logger: svc.Logger}
	ch := &consentHandler{service: svc.Consent, logger: svc.Logger}
	rh := &rightsHandler{service: svc.Rights, logger: svc.Logger}

	r.Route("/v1", func(r chi.Router) {
		vh.Register(r)
		ch.Register(r)
		rh.Register(r)
		if svc.Ingest != nil {
			ih := &ingestHandler{source: svc.Ingest, logger: svc.Logger}
			ih.Register(r)
		}
	})
	return r
}
