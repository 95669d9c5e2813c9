// Package api exposes the tracked occupancy state over HTTP.
package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/battery233/gooccupancy/pkg/tracker"
)

type occupiedResponse struct {
	Occupied bool `json:"occupied"`
}

type handlers struct {
	tracker *tracker.Tracker
}

// NewRouter serves the tracker state. metrics may be nil.
func NewRouter(t *tracker.Tracker, metrics http.Handler) *mux.Router {
	h := &handlers{tracker: t}
	r := mux.NewRouter()

	r.HandleFunc("/health", healthHandler).Methods("GET")
	r.HandleFunc("/state", h.listStates).Methods("GET")
	r.HandleFunc("/state/{deviceId}", h.getState).Methods("GET")
	r.HandleFunc("/occupied", h.occupied).Methods("GET")
	if metrics != nil {
		r.Handle("/metrics", metrics).Methods("GET")
	}

	return r
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) listStates(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.tracker.Snapshot())
}

func (h *handlers) getState(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["deviceId"]
	state, ok := h.tracker.Get(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown device " + id})
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (h *handlers) occupied(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, occupiedResponse{Occupied: h.tracker.Occupied()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}
