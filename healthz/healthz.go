package healthz

import (
	"net/http"
	"sync/atomic"
)

// Handler answers liveness and readiness probes.  Liveness is
// unconditional; readiness flips once the process has finished its startup
// work.
type Handler struct {
	ready atomic.Bool
}

func New() *Handler {
	return &Handler{}
}

// SetReady marks the process ready to serve.
func (h *Handler) SetReady() {
	h.ready.Store(true)
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("200 OK"))
}

// Readiness returns the handler for the readiness probe endpoint.
func (h *Handler) Readiness() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.ready.Load() {
			http.Error(w, "starting", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("200 OK"))
	})
}
