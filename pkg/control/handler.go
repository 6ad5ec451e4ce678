package control

import (
	"encoding/json"
	"net/http"

	"github.com/core-tools/hsu-supervisor-monitor/pkg/logging"
	"github.com/core-tools/hsu-supervisor-monitor/pkg/monitor"

	"github.com/gorilla/mux"
)

const mimeJson = "application/json; charset=utf-8"

// StatusSource is satisfied by *monitor.Monitor
type StatusSource interface {
	Status() monitor.Status
}

// Handler serves a read-only view of the monitor over HTTP
type Handler struct {
	source StatusSource
	r      *mux.Router
	logger logging.Logger
}

func NewHandler(source StatusSource, logger logging.Logger) *Handler {
	r := mux.NewRouter()
	h := &Handler{source: source, r: r, logger: logger}
	r.HandleFunc("/healthz", h.healthz).Methods(http.MethodGet)
	r.HandleFunc("/status", h.status).Methods(http.MethodGet)
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	h.r.ServeHTTP(w, req)
}

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	b, err := json.Marshal(h.source.Status())
	if err != nil {
		h.logger.Errorf("Status handler: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", mimeJson)
	_, _ = w.Write(b)
}
