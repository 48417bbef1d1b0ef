// Package api serves the current traffic models over HTTP and reports
// liveness over the gRPC health protocol.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"Go2NetModel/internal/manager"
	"Go2NetModel/internal/query"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// ModelSource is the read side of the manager.
type ModelSource interface {
	Topics() []string
	Status(topic string) (manager.Status, bool)
}

// APIHandler holds the dependencies for API handlers.
type APIHandler struct {
	models  ModelSource
	querier query.Querier
}

// NewRouter builds the HTTP routes. The history route is registered only
// when a querier is given; /metrics only when a gatherer is given.
func NewRouter(models ModelSource, querier query.Querier, gatherer prometheus.Gatherer) *mux.Router {
	h := &APIHandler{models: models, querier: querier}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", h.healthHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/models", h.listModelsHandler).Methods(http.MethodGet)
	if querier != nil {
		r.HandleFunc("/api/v1/history", h.historyHandler).Methods(http.MethodGet)
	}
	r.HandleFunc("/api/v1/models/{topic:.+}", h.getModelHandler).Methods(http.MethodGet)
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

func (h *APIHandler) healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *APIHandler) listModelsHandler(w http.ResponseWriter, _ *http.Request) {
	topics := h.models.Topics()
	out := make([]manager.Status, 0, len(topics))
	for _, t := range topics {
		if st, ok := h.models.Status(t); ok {
			out = append(out, st)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// getModelHandler resolves topics with or without their leading slash, so
// /api/v1/models/chatter finds "/chatter".
func (h *APIHandler) getModelHandler(w http.ResponseWriter, r *http.Request) {
	topic := mux.Vars(r)["topic"]
	st, ok := h.models.Status(topic)
	if !ok && !strings.HasPrefix(topic, "/") {
		st, ok = h.models.Status("/" + topic)
	}
	if !ok {
		http.Error(w, fmt.Sprintf("unknown topic %q", topic), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *APIHandler) historyHandler(w http.ResponseWriter, r *http.Request) {
	req, err := parseHistoryRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	points, err := h.querier.History(r.Context(), req)
	if err != nil {
		if errors.Is(err, query.ErrMissingTopic) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, fmt.Sprintf("failed to query history: %v", err), http.StatusInternalServerError)
		return
	}
	if points == nil {
		points = []query.HistoryPoint{}
	}
	writeJSON(w, http.StatusOK, points)
}

func parseHistoryRequest(r *http.Request) (query.HistoryRequest, error) {
	q := r.URL.Query()
	req := query.HistoryRequest{Topic: q.Get("topic")}

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return req, fmt.Errorf("invalid limit %q", v)
		}
		req.Limit = n
	}
	for name, dst := range map[string]*time.Time{"since": &req.Since, "until": &req.Until} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return req, fmt.Errorf("invalid %s %q: expected RFC3339", name, v)
		}
		*dst = t
	}
	return req, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to write response: %v", err)
	}
}
