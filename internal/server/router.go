package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/PinMeTo/pinmeto-location-mcp-sub001/internal/app"
	"github.com/PinMeTo/pinmeto-location-mcp-sub001/internal/model"
)

// Health is the /healthz response body.
type Health struct {
	Status    string          `json:"status"`
	AccountID string          `json:"accountId"`
	Cache     model.CacheInfo `json:"cache"`
}

// Router serves /metrics from the session's registry and /healthz.
func Router(sess *app.Session) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Health{
			Status:    "ok",
			AccountID: sess.Config.AccountID,
			Cache:     sess.Locations.Info(),
		})
	})
	r.Handle("/metrics", promhttp.HandlerFor(sess.Metrics.Registry, promhttp.HandlerOpts{
		Registry: sess.Metrics.Registry,
	}))
	return r
}
