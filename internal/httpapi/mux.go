// Package httpapi serves the status surface of both binaries: /healthz and
// /metrics.
package httpapi

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/francescopittino/AirQualityLoRaProject/internal/node"
)

// StatusSource reports the node's current status. The receiver has none.
type StatusSource interface {
	Status() node.Status
}

type healthResponse struct {
	Status string       `json:"status"`
	Node   *node.Status `json:"node,omitempty"`
}

func handleHealthz(src StatusSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: "ok"}
		if src != nil {
			st := src.Status()
			resp.Node = &st
			// the node keeps running after a failed transmission
			if st.LastTxError != "" {
				resp.Status = "degraded"
			}
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func NewMux(src StatusSource, gatherer prometheus.Gatherer) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealthz(src))
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return mux
}

func NewServer(addr string, mux *http.ServeMux) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           requestLogger(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}
}
