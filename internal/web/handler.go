package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/denwilliams/go-myvacbot-mqtt/internal/logging"
	"github.com/denwilliams/go-myvacbot-mqtt/internal/vacuum"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const commandTimeout = 30 * time.Second

// Vacuums is what the API needs from the vacuum client.
type Vacuums interface {
	Get(id string) *vacuum.Vacuum
	List() []*vacuum.Vacuum
	SendCommand(ctx context.Context, id string, command string) error
}

type commandResponse struct {
	RequestID string `json:"request_id"`
	ID        string `json:"id"`
	Command   string `json:"command"`
}

type errorResponse struct {
	RequestID string `json:"request_id"`
	Error     string `json:"error"`
}

func CreateHandler(vacuums Vacuums) http.Handler {
	r := mux.NewRouter()
	r.Use(requestID)

	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/vacuums", listHandler(vacuums)).Methods(http.MethodGet)
	api.HandleFunc("/vacuums/{id}", getHandler(vacuums)).Methods(http.MethodGet)
	api.HandleFunc("/vacuums/{id}/commands/{command}", commandHandler(vacuums)).Methods(http.MethodPost)

	return r
}

func listHandler(vacuums Vacuums) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list := vacuums.List()
		states := make([]vacuum.State, 0, len(list))
		for _, v := range list {
			states = append(states, v.Snapshot())
		}
		writeJSON(w, http.StatusOK, states)
	}
}

func getHandler(vacuums Vacuums) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		v := vacuums.Get(id)
		if v == nil {
			writeError(w, http.StatusNotFound, vacuum.ErrNotFound)
			return
		}
		writeJSON(w, http.StatusOK, v.Snapshot())
	}
}

func commandHandler(vacuums Vacuums) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		id, command := vars["id"], vars["command"]

		ctx, cancel := context.WithTimeout(r.Context(), commandTimeout)
		defer cancel()

		err := vacuums.SendCommand(ctx, id, command)
		switch {
		case err == nil:
			writeJSON(w, http.StatusAccepted, commandResponse{
				RequestID: w.Header().Get("X-Request-ID"),
				ID:        id,
				Command:   command,
			})
		case errors.Is(err, vacuum.ErrNotFound):
			writeError(w, http.StatusNotFound, err)
		case errors.Is(err, vacuum.ErrUnknownCommand):
			writeError(w, http.StatusBadRequest, err)
		default:
			logging.Warn("Command %s for %s failed: %s", command, id, err)
			writeError(w, http.StatusBadGateway, err)
		}
	}
}

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		logging.Debug("%s %s %s", id, r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn("Failed to write response: %s", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{RequestID: w.Header().Get("X-Request-ID"), Error: err.Error()})
}
