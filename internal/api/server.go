// Package api exposes the storefront over HTTP.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/opensource-finance/storefront/internal/domain"
	"github.com/opensource-finance/storefront/internal/filter"
	"github.com/opensource-finance/storefront/internal/metrics"
	"github.com/opensource-finance/storefront/internal/repository"
	"github.com/opensource-finance/storefront/internal/stats"
)

// Server represents the HTTP API server.
type Server struct {
	router  *chi.Mux
	handler *Handler
	server  *http.Server
	config  domain.ServerConfig
}

// NewServer creates a new API server.
func NewServer(cfg domain.ServerConfig, store *repository.Store, cache domain.Cache, bus domain.EventBus, statistics *stats.Service, filters *filter.Engine, version string) *Server {
	handler := NewHandler(store, cache, bus, statistics, filters, version)
	router := chi.NewRouter()

	// Global middleware stack
	router.Use(CORSMiddleware)            // CORS for browser clients
	router.Use(RecoverMiddleware)         // Recover from panics
	router.Use(TracingMiddleware)         // OpenTelemetry tracing
	router.Use(LoggingMiddleware)         // Request logging
	router.Use(metrics.InstrumentHandler) // Prometheus request metrics
	router.Use(middleware.RealIP)         // Extract real IP
	router.Use(middleware.Compress(5))    // Gzip compression

	// Operational endpoints
	router.Get("/health", handler.Health)
	router.Get("/ready", handler.Ready)
	router.Handle("/metrics", metrics.Handler())

	// Controllers, one unit of work per request
	router.Route("/api", func(r chi.Router) {
		r.Use(handler.UnitOfWorkMiddleware)

		r.Route("/customers", func(r chi.Router) {
			r.Get("/", handler.ListCustomers)
			r.Post("/", handler.CreateCustomer)
			r.Get("/unique", handler.IsCustomerNameUnique)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", handler.ListOrders)
			r.Post("/", handler.CreateOrder)
			r.Get("/page", handler.GetOrderPage)
			r.Get("/count", handler.CountOrders)
			r.Get("/statistic", handler.GetSalesStatistic)
			r.Get("/{id}", handler.GetOrder)
			r.Put("/{id}", handler.UpdateOrder)
			r.Delete("/{id}", handler.DeleteOrder)
		})

		r.Route("/orderitems", func(r chi.Router) {
			r.Get("/", handler.ListOrderItems)
			r.Post("/", handler.CreateOrderItem)
			r.Get("/{id}", handler.GetOrderItem)
			r.Delete("/{id}", handler.DeleteOrderItem)
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", handler.ListProducts)
			r.Get("/categories", handler.ListProductsWithCategories)
			r.Get("/paged", handler.GetProductPage)
		})
	})

	return &Server{
		router:  router,
		handler: handler,
		config:  cfg,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.config.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.WriteTimeout) * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the Chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Handler returns the handler for testing.
func (s *Server) Handler() *Handler {
	return s.handler
}
