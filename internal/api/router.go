package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/citylibrary/loan-service/docs" // registers the OpenAPI document
	"github.com/citylibrary/loan-service/internal/api/handler"
	"github.com/citylibrary/loan-service/internal/api/middleware"
	"github.com/citylibrary/loan-service/internal/core/ports"
)

const metricsSubsystem = "loan_http"

// RouterDeps carries what the HTTP layer needs from main.
type RouterDeps struct {
	Service ports.LoanService
	// Idempotency is optional; nil disables Idempotency-Key handling.
	Idempotency ports.IdempotencyStore
	Readiness   []handler.DependencyCheck
	Logger      zerolog.Logger
	// Registry receives the HTTP metrics and backs /metrics. Nil uses the
	// process-wide default registry.
	Registry *prometheus.Registry
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps RouterDeps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = newJSONSerializer()
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Logger)

	var (
		registerer prometheus.Registerer = prometheus.DefaultRegisterer
		gatherer   prometheus.Gatherer   = prometheus.DefaultGatherer
	)
	if deps.Registry != nil {
		registerer, gatherer = deps.Registry, deps.Registry
	}

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(deps.Logger))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  metricsSubsystem,
		Registerer: registerer,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics"
		},
	}))

	// --- Dependencies ---
	loanHandler := handler.NewLoanHandler(deps.Service)
	healthHandler := handler.NewHealthHandler()
	readinessHandler := handler.NewReadinessHandler(deps.Readiness...)

	// --- Loan routes ---
	loans := e.Group("/api/loans")
	loans.GET("", loanHandler.List)
	loans.GET("/health", loanHandler.Health)
	loans.GET("/adjustments", loanHandler.ListAdjustments)
	loans.GET("/:id", loanHandler.Get)

	submit := []echo.MiddlewareFunc{}
	if deps.Idempotency != nil {
		submit = append(submit, middleware.Idempotency(middleware.IdempotencyConfig{
			Store:         deps.Idempotency,
			Logger:        deps.Logger,
			ReplayHeaders: []string{handler.HeaderInventoryAdjustment},
		}))
	}
	loans.POST("", loanHandler.Submit, submit...)

	// --- Health probes ---
	e.GET("/health", healthHandler.Liveness)           // liveness: is the process alive?
	e.GET("/health/ready", readinessHandler.Readiness) // readiness: are dependencies up?

	// --- Operations ---
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: gatherer}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

// requestLogger writes one access log line per request through zerolog.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			evt := log.Info()
			switch {
			case v.Status >= 500:
				evt = log.Error().Err(v.Error)
			case v.Error != nil:
				evt = log.Warn().Err(v.Error)
			}
			evt.
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
