package http

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mrops-br/catalog-api/internal/domain"
	"github.com/mrops-br/catalog-api/internal/infrastructure/config"
	"github.com/mrops-br/catalog-api/internal/infrastructure/http/handler"
	"github.com/mrops-br/catalog-api/internal/infrastructure/http/middleware"
	"github.com/mrops-br/catalog-api/internal/infrastructure/http/pipeline"
	"github.com/mrops-br/catalog-api/internal/infrastructure/http/response"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "catalog-api"

// Server represents the HTTP server
type Server struct {
	router        *chi.Mux
	config        *config.Config
	handler       *handler.ProductHandler
	logger        *slog.Logger
	meterProvider metric.MeterProvider
	gatherer      prometheus.Gatherer
	translate     pipeline.ErrorTranslator
}

// NewServer creates a new HTTP server
func NewServer(
	cfg *config.Config,
	handler *handler.ProductHandler,
	logger *slog.Logger,
	meterProvider metric.MeterProvider,
	gatherer prometheus.Gatherer,
) *Server {
	s := &Server{
		router:        chi.NewRouter(),
		config:        cfg,
		handler:       handler,
		logger:        logger,
		meterProvider: meterProvider,
		gatherer:      gatherer,
		translate:     response.NewErrorTranslator(logger),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// setupMiddleware configures the chi middleware that wraps every request
func (s *Server) setupMiddleware() {
	meter := s.meterProvider.Meter(meterName)

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.StructuredLogger(s.logger))
	s.router.Use(middleware.Recoverer(s.translate))
	s.router.Use(middleware.ActiveRequestsMiddleware(meter))
	if s.config.OTLP.DurationMillis {
		s.router.Use(middleware.DurationMillisecondsMiddleware(meter))
	}
}

// setupRoutes configures the API routes. Reads are public; writes require the
// API key and, for create and update, a valid payload.
func (s *Server) setupRoutes() {
	base := pipeline.New(s.logger, s.translate,
		middleware.LogRequest,
		middleware.ParseJSONBody(s.config.Server.MaxBodyBytes),
	)
	protected := base.With(middleware.Authenticate(s.config.Auth.APIKey))
	h := s.handler

	s.router.NotFound(base.Handle(func(x *pipeline.Exchange) error {
		return domain.NewNotFound(fmt.Sprintf("Cannot %s %s", x.Request.Method, x.Request.URL.Path))
	}))
	s.router.MethodNotAllowed(base.Handle(func(x *pipeline.Exchange) error {
		return domain.NewOperational("Method not allowed", http.StatusMethodNotAllowed)
	}))

	// routes are registered flat inside the group so HTTPRouteContext sees the full pattern
	s.router.Group(func(r chi.Router) {
		r.Use(middleware.HTTPRouteContext())

		r.Get("/", base.Handle(func(x *pipeline.Exchange) error {
			response.Text(x.Writer, http.StatusOK, "Hello World!")
			return nil
		}))

		r.Get("/api/products", base.Handle(h.ListProducts))
		r.Get("/api/products/search", base.Handle(h.SearchProducts))
		r.Get("/api/products/category", base.Handle(h.FilterByCategory))
		r.Get("/api/products/statistics", base.Handle(h.Statistics))
		r.Get("/api/products/{id}", base.Handle(h.GetProduct))

		r.Post("/api/products", protected.With(middleware.ValidateProduct(false)).Handle(h.CreateProduct))
		r.Put("/api/products/{id}", protected.With(middleware.ValidateProduct(true)).Handle(h.UpdateProduct))
		r.Delete("/api/products/{id}", protected.Handle(h.DeleteProduct))
	})

	s.router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		response.Text(w, http.StatusOK, "OK")
	})

	s.router.Get("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}).ServeHTTP)
}

// Handler returns the router wrapped with otelhttp for HTTP spans and the
// standard http.server.* metrics
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s.router, "http-server",
		otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
			return fmt.Sprintf("%s %s", r.Method, r.URL.Path)
		}),
		otelhttp.WithMeterProvider(s.meterProvider),
		otelhttp.WithMetricAttributesFn(func(r *http.Request) []attribute.KeyValue {
			routePattern := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					routePattern = pattern
				}
			}
			return []attribute.KeyValue{
				attribute.String("http.route", routePattern),
			}
		}),
	)
}

// HTTPServer builds the net/http server with the configured address and timeouts
func (s *Server) HTTPServer() *http.Server {
	cfg := s.config.Server
	return &http.Server{
		Addr:              cfg.Addr(),
		Handler:           s.Handler(),
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelError),
	}
}
