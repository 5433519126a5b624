package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/cityvec/internal/domain"
	"github.com/kailas-cloud/cityvec/internal/domain/search/result"
	logpkg "github.com/kailas-cloud/cityvec/internal/logger"
	"github.com/kailas-cloud/cityvec/internal/metrics"
	healthuc "github.com/kailas-cloud/cityvec/internal/usecase/health"
	"github.com/kailas-cloud/cityvec/internal/usecase/session"
	"github.com/kailas-cloud/cityvec/internal/version"
)

// ErrorCode is the machine-readable error kind of an ErrorResponse.
type ErrorCode string

// Error codes.
const (
	CodeBadRequest   ErrorCode = "bad_request"
	CodeUnauthorized ErrorCode = "unauthorized"
	CodeEmptyCorpus  ErrorCode = "empty_corpus"
	CodeModelError   ErrorCode = "model_error"
	CodeUnavailable  ErrorCode = "store_unavailable"
	CodeInternal     ErrorCode = "internal_error"
)

// ErrorResponse is the JSON body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// QueryResponse is the body of GET /v1/query. Items is set for records, Table for table.
type QueryResponse struct {
	Query  string          `json:"query"`
	TopK   int             `json:"top_k"`
	Format result.Format   `json:"format"`
	Items  []result.Record `json:"items,omitempty"`
	Table  *TableResponse  `json:"table,omitempty"`
}

// TableResponse is the column-oriented form of a result set.
type TableResponse struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// StatsResponse is the body of GET /v1/stats.
type StatsResponse struct {
	ModelID        string    `json:"model_id"`
	EmbeddingTable string    `json:"embedding_table"`
	CatalogRows    int       `json:"catalog_rows"`
	Dimensions     int       `json:"dimensions"`
	Built          []string  `json:"built"`
	ReadyAt        time.Time `json:"ready_at"`
	Version        string    `json:"version"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status healthuc.Status                  `json:"status"`
	Checks map[string]healthuc.CheckResult `json:"checks"`
}

// Querier answers similarity queries. *session.Session implements it.
type Querier interface {
	Query(ctx context.Context, text string, topK int, format result.Format) (session.Output, error)
	Stats() session.Stats
}

// Options configures the HTTP surface.
type Options struct {
	DefaultTopK int
	MaxTopK     int
	APIKeys     []string
}

// errorMapping maps a domain sentinel to an HTTP status.
type errorMapping struct {
	sentinel error
	status   int
	code     ErrorCode
}

var errorMappings = []errorMapping{
	{domain.ErrInvalidQuery, http.StatusBadRequest, CodeBadRequest},
	{domain.ErrEmptyCorpus, http.StatusConflict, CodeEmptyCorpus},
	{domain.ErrModel, http.StatusBadGateway, CodeModelError},
	{domain.ErrConnection, http.StatusServiceUnavailable, CodeUnavailable},
}

// Server serves the query API.
type Server struct {
	querier Querier
	health  *healthuc.Service
	opts    Options
	logger  *zap.Logger
}

// NewServer creates an HTTP API server.
func NewServer(querier Querier, health *healthuc.Service, opts Options, logger *zap.Logger) *Server {
	if opts.DefaultTopK <= 0 {
		opts.DefaultTopK = 1
	}
	if opts.MaxTopK < opts.DefaultTopK {
		opts.MaxTopK = opts.DefaultTopK
	}
	return &Server{querier: querier, health: health, opts: opts, logger: logger}
}

// Router assembles the middleware chain and routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(JSONRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(WideEventMiddleware(s.logger))
	r.Use(BearerAuthMiddleware(s.opts.APIKeys))
	r.Use(metrics.Middleware())

	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/query", s.Query)
		r.Get("/stats", s.Stats)
	})
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, CodeBadRequest, "route not found")
	})
	return r
}

// Query handles GET /v1/query.
func (s *Server) Query(w http.ResponseWriter, r *http.Request) {
	var (
		q      string
		topK   *int
		format *string
	)
	params := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, true, "q", params, &q); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "q is required")
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "top_k", params, &topK); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "top_k must be an integer")
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "format", params, &format); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid format")
		return
	}

	k := s.opts.DefaultTopK
	if topK != nil {
		k = *topK
	}
	if k < 1 || k > s.opts.MaxTopK {
		writeError(w, http.StatusBadRequest, CodeBadRequest,
			fmt.Sprintf("top_k must be between 1 and %d", s.opts.MaxTopK))
		return
	}

	f, err := result.ParseFormat(deref(format))
	if err != nil {
		s.handleDomainError(r.Context(), w, err)
		return
	}

	out, err := s.querier.Query(r.Context(), q, k, f)
	if err != nil {
		s.handleDomainError(r.Context(), w, err)
		return
	}

	resp := QueryResponse{Query: q, TopK: k, Format: out.Format, Items: out.Records}
	if out.Table != nil {
		resp.Table = &TableResponse{Columns: out.Table.Columns, Rows: out.Table.Rows}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Stats handles GET /v1/stats.
func (s *Server) Stats(w http.ResponseWriter, _ *http.Request) {
	st := s.querier.Stats()
	built := st.Built
	if built == nil {
		built = []string{}
	}
	writeJSON(w, http.StatusOK, StatsResponse{
		ModelID:        st.ModelID,
		EmbeddingTable: st.EmbeddingTable,
		CatalogRows:    st.CatalogRows,
		Dimensions:     st.Dimensions,
		Built:          built,
		ReadyAt:        st.ReadyAt.UTC(),
		Version:        version.Version,
	})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, HealthResponse{Status: report.Status, Checks: report.Checks})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func (s *Server) handleDomainError(ctx context.Context, w http.ResponseWriter, err error) {
	log := logpkg.FromContext(ctx)
	for _, m := range errorMappings {
		if errors.Is(err, m.sentinel) {
			log.Warn("domain error", zap.Error(err))
			writeError(w, m.status, m.code, safeMessage(err, m.sentinel))
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternal, "internal error")
}

// safeMessage exposes the detail of invalid queries only; other errors may carry internals.
func safeMessage(err, sentinel error) string {
	if errors.Is(sentinel, domain.ErrInvalidQuery) {
		msg := err.Error()
		if i := strings.LastIndex(msg, domain.ErrInvalidQuery.Error()); i >= 0 {
			return msg[i:]
		}
	}
	return sentinel.Error()
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}
