package routes

import (
	"fmt"
	"net/http"

	"flume-exporter/internal/metrics"

	"github.com/gorilla/mux"
)

// RegisterRoutes registers all application routes. Neither endpoint carries
// authentication; restricting access is the deployment's responsibility.
func RegisterRoutes(r *mux.Router, registry *metrics.Registry) {
	// Prometheus scrape endpoint. Always 200, even before the first tick.
	r.Handle("/metrics", registry.Handler()).Methods(http.MethodGet)

	// Liveness only: does not depend on collector success.
	r.HandleFunc("/health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "OK")
	}).Methods(http.MethodGet)
}
