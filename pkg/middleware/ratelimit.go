package middleware

import (
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/iota-uz/sentencing-etl/pkg/composables"
	"github.com/iota-uz/sentencing-etl/pkg/httpapi"
)

const rateLimitPrefix = "sentencing-etl:ratelimit"

type RateLimitConfig struct {
	RequestsPerPeriod int
	// Period defaults to one second.
	Period time.Duration
	Store  limiter.Store
	// KeyFunc groups requests into buckets. The default is one global bucket.
	KeyFunc func(r *http.Request) string
}

func NewMemoryStore() limiter.Store {
	return memory.NewStoreWithOptions(limiter.StoreOptions{
		Prefix:          rateLimitPrefix,
		CleanUpInterval: time.Minute,
	})
}

func NewRedisStore(redisURL string) (limiter.Store, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse redis url")
	}
	store, err := sredis.NewStoreWithOptions(redis.NewClient(opts), limiter.StoreOptions{Prefix: rateLimitPrefix})
	if err != nil {
		return nil, errors.Wrap(err, "redis rate limit store")
	}
	return store, nil
}

// RateLimit answers 429 with the JSON error envelope once the bucket of a
// request is exhausted. A non-positive RequestsPerPeriod disables the limit.
func RateLimit(cfg RateLimitConfig) mux.MiddlewareFunc {
	if cfg.RequestsPerPeriod <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if cfg.Period <= 0 {
		cfg.Period = time.Second
	}
	if cfg.Store == nil {
		cfg.Store = NewMemoryStore()
	}
	keyFunc := cfg.KeyFunc
	if keyFunc == nil {
		keyFunc = func(*http.Request) string { return "global" }
	}

	rate := limiter.Rate{Period: cfg.Period, Limit: int64(cfg.RequestsPerPeriod)}
	mw := stdlib.NewMiddleware(
		limiter.New(cfg.Store, rate),
		stdlib.WithKeyGetter(keyFunc),
		stdlib.WithLimitReachedHandler(func(w http.ResponseWriter, r *http.Request) {
			_ = httpapi.WriteError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests", httpapi.RequestMeta(r))
		}),
		stdlib.WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
			composables.UseLogger(r.Context()).WithError(err).Warn("rate limit store failed")
			_ = httpapi.WriteError(w, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "rate limit unavailable", httpapi.RequestMeta(r))
		}),
	)
	return mw.Handler
}
