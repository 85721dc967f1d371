package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/opensource-finance/storefront/internal/domain"
	"github.com/opensource-finance/storefront/internal/filter"
	"github.com/opensource-finance/storefront/internal/repository"
	"github.com/opensource-finance/storefront/internal/stats"
	"github.com/opensource-finance/storefront/internal/validation"
)

// Handler holds dependencies for API handlers.
type Handler struct {
	store   *repository.Store
	cache   domain.Cache
	bus     domain.EventBus
	stats   *stats.Service
	filters *filter.Engine
	version string
}

// NewHandler creates a new API handler.
func NewHandler(store *repository.Store, cache domain.Cache, bus domain.EventBus, statistics *stats.Service, filters *filter.Engine, version string) *Handler {
	return &Handler{
		store:   store,
		cache:   cache,
		bus:     bus,
		stats:   statistics,
		filters: filters,
		version: version,
	}
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error  string              `json:"error"`
	Errors []*validation.Error `json:"errors,omitempty"`
}

// Health returns the health status of the server and its backends.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	if h.store != nil {
		if err := h.store.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	if h.bus != nil {
		if err := h.bus.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"ready": "false",
		})
		return
	}
	if err := h.store.Ping(r.Context()); err != nil {
		slog.Warn("readiness check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"ready": "false",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

// writeError maps repository and validation failures onto HTTP statuses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, validation.ErrInvalid):
		resp := ErrorResponse{Error: err.Error(), Errors: validation.Failures(err)}
		var agg *validation.AggregateError
		if errors.As(err, &agg) {
			resp.Error = agg.Message
		}
		writeJSON(w, http.StatusBadRequest, resp)

	case errors.Is(err, repository.ErrConcurrencyConflict):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: "the record was changed by another user"})

	case errors.Is(err, repository.ErrNotFound):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "not found"})

	case errors.Is(err, repository.ErrOutOfRange),
		errors.Is(err, repository.ErrInvalidInput),
		errors.Is(err, repository.ErrInvalidOperation):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})

	default:
		slog.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", GetRequestID(r.Context()),
			"error", err,
		)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: message})
}

func writeNotFound(w http.ResponseWriter, entity string, id int64) {
	writeJSON(w, http.StatusNotFound, ErrorResponse{Error: fmt.Sprintf("%s %d not found", entity, id)})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid JSON request body: %w", err)
	}
	return nil
}

// pathID parses the {id} URL parameter.
func pathID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

// queryInt parses an optional integer query parameter.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("query parameter %s must be an integer", name)
	}
	return n, nil
}
