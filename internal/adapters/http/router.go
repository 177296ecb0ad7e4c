package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/procurex/tendersearch/internal/core/domain"
	"github.com/procurex/tendersearch/internal/core/ports"
	"github.com/procurex/tendersearch/internal/observability/metrics"
)

const serviceName = "api"

// Router exposes the retrieval pipeline over HTTP: one search endpoint,
// a stats endpoint over the live collection, health and metrics.
type Router struct {
	search   ports.SearchService
	index    ports.VectorIndex
	strategy domain.RoutingStrategy
	metrics  *metrics.HTTPServerMetrics
	logger   *slog.Logger
}

func NewRouter(
	search ports.SearchService,
	index ports.VectorIndex,
	strategy domain.RoutingStrategy,
	m *metrics.HTTPServerMetrics,
	logger *slog.Logger,
) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		search:   search,
		index:    index,
		strategy: strategy,
		metrics:  m,
		logger:   logger,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/search", rt.searchDocuments)
	mux.HandleFunc("/v1/stats", rt.collectionStats)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	return requestIDMiddleware(accessLogMiddleware(handler))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type searchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

type searchResponse struct {
	Query    string       `json:"query"`
	Strategy string       `json:"strategy"`
	Hits     []domain.Hit `json:"hits"`
	TookMS   float64      `json:"took_ms"`
}

func (rt *Router) searchDocuments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody("method not allowed"))
		return
	}

	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid json"))
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query is required"))
		return
	}

	start := time.Now()
	hits, err := rt.search.Retrieve(r.Context(), req.Query, req.Limit)
	if err != nil {
		status := mapErrorToHTTPStatus(err)
		rt.logger.Error("search_failed",
			"request_id", requestIDFromContext(r.Context()),
			"status", status,
			"error", err,
		)
		writeJSON(w, status, errorBody(http.StatusText(status)))
		return
	}
	took := time.Since(start)

	if hits == nil {
		hits = []domain.Hit{}
	}
	if rt.metrics != nil {
		rt.metrics.RecordSearch(serviceName, string(rt.strategy), len(hits))
		rt.metrics.ObserveStage(serviceName, "retrieve", took)
	}

	writeJSON(w, http.StatusOK, searchResponse{
		Query:    req.Query,
		Strategy: string(rt.strategy),
		Hits:     hits,
		TookMS:   float64(took.Microseconds()) / 1000.0,
	})
}

func (rt *Router) collectionStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody("method not allowed"))
		return
	}
	count, err := rt.index.Count(r.Context())
	if err != nil {
		status := mapErrorToHTTPStatus(err)
		writeJSON(w, status, errorBody(http.StatusText(status)))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"points": count})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func errorBody(message string) map[string]string {
	return map[string]string{"error": message}
}
