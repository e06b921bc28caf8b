// Package httpapi exposes the read-only token queries over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"solana-token-aggregator/internal/aggregator"
	"solana-token-aggregator/internal/domain"
	"solana-token-aggregator/internal/observability"
	"solana-token-aggregator/internal/storage"
)

// Querier is the read side of aggregator.Service.
type Querier interface {
	Lookup(mint string) (*domain.TokenRecord, bool)
	Search(term string) ([]*domain.TokenRecord, error)
	SearchTerms(limit int, terms ...string) []*domain.TokenRecord
	FilterBySource(src domain.Source) []*domain.TokenRecord
	VerifiedOnly() []*domain.TokenRecord
	Stats() aggregator.Stats
	Health(ctx context.Context) aggregator.Health
}

var _ Querier = (*aggregator.Service)(nil)

// TokenList is the response body for list endpoints.
type TokenList struct {
	Count  int                   `json:"count"`
	Tokens []*domain.TokenRecord `json:"tokens"`
}

type errorBody struct {
	Error string `json:"error"`
}

type handler struct {
	q      Querier
	logger logrus.FieldLogger
}

// NewHandler returns the API router. A nil logger uses the logrus standard logger.
func NewHandler(q Querier, logger logrus.FieldLogger) http.Handler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	h := &handler{q: q, logger: logger.WithField("component", "httpapi")}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /tokens", h.bySource)
	mux.HandleFunc("GET /tokens/search", h.search)
	mux.HandleFunc("GET /tokens/verified", h.verified)
	mux.HandleFunc("GET /tokens/{mint}", h.lookup)
	mux.HandleFunc("GET /stats", h.stats)
	mux.HandleFunc("GET /health", h.health)
	mux.Handle("GET /metrics", observability.Handler())

	return h.logRequests(mux)
}

func (h *handler) lookup(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.q.Lookup(r.PathValue("mint"))
	if !ok {
		writeError(w, http.StatusNotFound, storage.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// search accepts one or more q parameters.
func (h *handler) search(w http.ResponseWriter, r *http.Request) {
	terms := r.URL.Query()["q"]
	if len(terms) > 1 {
		writeList(w, h.q.SearchTerms(aggregator.SearchLimit, terms...))
		return
	}

	term := ""
	if len(terms) == 1 {
		term = terms[0]
	}
	records, err := h.q.Search(term)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, storage.ErrInvalidInput) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err)
		return
	}
	writeList(w, records)
}

func (h *handler) bySource(w http.ResponseWriter, r *http.Request) {
	src, ok := domain.ParseSource(r.URL.Query().Get("source"))
	if !ok {
		writeError(w, http.StatusBadRequest, errors.New("source must be one of jupiter, pumpportal, helius, solana-rpc"))
		return
	}
	writeList(w, h.q.FilterBySource(src))
}

func (h *handler) verified(w http.ResponseWriter, _ *http.Request) {
	writeList(w, h.q.VerifiedOnly())
}

func (h *handler) stats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.q.Stats())
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := h.q.Health(ctx)
	code := http.StatusOK
	if !status.Healthy() {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (h *handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		if strings.HasPrefix(r.URL.Path, "/metrics") {
			return
		}
		h.logger.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start),
		}).Debug("request")
	})
}

func writeList(w http.ResponseWriter, records []*domain.TokenRecord) {
	if records == nil {
		records = []*domain.TokenRecord{}
	}
	writeJSON(w, http.StatusOK, TokenList{Count: len(records), Tokens: records})
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
