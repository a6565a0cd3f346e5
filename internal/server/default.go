package server

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
	"github.com/ulule/limiter/v3"

	"github.com/iota-uz/sentencing-etl/pkg/application"
	"github.com/iota-uz/sentencing-etl/pkg/configuration"
	"github.com/iota-uz/sentencing-etl/pkg/httpapi"
	"github.com/iota-uz/sentencing-etl/pkg/metrics"
	"github.com/iota-uz/sentencing-etl/pkg/middleware"
	"github.com/iota-uz/sentencing-etl/pkg/server"
)

type DefaultOptions struct {
	Logger        *logrus.Logger
	Configuration *configuration.Configuration
	Application   application.Application
	Pool          *pgxpool.Pool
}

func Default(options *DefaultOptions) (*server.HTTPServer, error) {
	app := options.Application
	conf := options.Configuration

	loggerOpts := middleware.DefaultLoggerOptions()
	loggerOpts.RequestIDHeader = conf.RequestIDHeader
	loggerOpts.RealIPHeader = conf.RealIPHeader

	middlewares := []mux.MiddlewareFunc{
		// Opens the root span of each request.
		middleware.WithLogger(options.Logger, loggerOpts),
		middleware.TracedMiddleware("database"),
		middleware.WithPool(options.Pool),
	}

	if conf.RateLimit.Enabled {
		var store limiter.Store
		var err error
		switch conf.RateLimit.Storage {
		case "redis":
			store, err = middleware.NewRedisStore(conf.RateLimit.RedisURL)
			if err != nil {
				options.Logger.WithError(err).Warn("Failed to create Redis store for rate limiting, falling back to memory")
				store = middleware.NewMemoryStore()
			}
		default:
			store = middleware.NewMemoryStore()
		}
		middlewares = append(middlewares,
			middleware.TracedMiddleware("rateLimit"),
			middleware.RateLimit(middleware.RateLimitConfig{
				RequestsPerPeriod: conf.RateLimit.GlobalRPS,
				Store:             store,
			}),
		)
	}

	app.RegisterMiddleware(middlewares...)
	if conf.Prometheus.Enabled {
		app.RegisterControllers(metrics.NewPrometheusController(conf.Prometheus.Path, nil))
	}

	return server.NewHTTPServer(app, notFound(), methodNotAllowed()), nil
}

func notFound() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = httpapi.WriteError(w, http.StatusNotFound, "NOT_FOUND", "route not found", httpapi.RequestMeta(r))
	})
}

func methodNotAllowed() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = httpapi.WriteError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", httpapi.RequestMeta(r))
	})
}
