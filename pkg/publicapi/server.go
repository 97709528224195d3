package publicapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/didip/tollbooth/v7"
	"github.com/didip/tollbooth/v7/limiter"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/tesoro-project/tesoro/pkg/cache"
	"github.com/tesoro-project/tesoro/pkg/cache/memoize"
	"github.com/tesoro-project/tesoro/pkg/logger"
	"github.com/tesoro-project/tesoro/pkg/model"
	"github.com/tesoro-project/tesoro/pkg/publicapi/handlerwrapper"
	"github.com/tesoro-project/tesoro/pkg/system"
	"github.com/tesoro-project/tesoro/pkg/treasurydb"
)

type APIServerConfig struct {
	// These are TCP connection deadlines and not HTTP timeouts. They don't
	// control the time it takes for our handlers to complete.
	ReadHeaderTimeout time.Duration // the amount of time allowed to read request headers
	ReadTimeout       time.Duration // the maximum duration for reading the entire request, including the body
	WriteTimeout      time.Duration // the maximum duration before timing out writes of the response

	// This represents maximum duration for handlers to complete, or else
	// fail the request with 503 error code.
	RequestHandlerTimeout time.Duration

	// Requests per second per client before the rate limiter kicks in.
	RateLimitPerSecond float64
}

var DefaultAPIServerConfig = &APIServerConfig{
	ReadHeaderTimeout:     10 * time.Second,
	ReadTimeout:           20 * time.Second,
	WriteTimeout:          20 * time.Second,
	RequestHandlerTimeout: 30 * time.Second,
	RateLimitPerSecond:    1000, //nolint:gomnd
}

// APIServer configures the treasury's public REST API.
type APIServer struct {
	Store  treasurydb.Store
	Cache  cache.Cache[any]
	Host   string
	Port   int
	Config *APIServerConfig

	// ledger pages are memoized with a short TTL on top of the write
	// invalidation, since identical queries arrive in bursts
	txLists *memoize.Memoizer[model.TransactionQuery, any]
}

// NewServer returns a new API server listening on host:port, serving
// reads through the given cache.
func NewServer(
	host string,
	port int,
	store treasurydb.Store,
	c cache.Cache[any],
	config *APIServerConfig,
) *APIServer {
	if config == nil {
		config = DefaultAPIServerConfig
	}
	apiServer := &APIServer{
		Store:  store,
		Cache:  c,
		Host:   host,
		Port:   port,
		Config: config,
	}
	apiServer.txLists = memoize.NewMemoizer(
		c, transactionListKey, transactionListTTL, apiServer.fetchTransactionPage)
	return apiServer
}

// GetURI returns the HTTP URI that the server is listening on.
func (apiServer *APIServer) GetURI() string {
	return fmt.Sprintf("http://%s:%d", apiServer.Host, apiServer.Port)
}

// ListenAndServe listens for and serves HTTP requests against the API
// server, blocking until shutdown is requested through the cleanup
// manager.
func (apiServer *APIServer) ListenAndServe(ctx context.Context, cm *system.CleanupManager) error {
	sm := http.NewServeMux()
	sm.Handle("/api/v1/users", apiServer.instrument(apiServer.users))
	sm.Handle("/api/v1/user", apiServer.instrument(apiServer.user))
	sm.Handle("/api/v1/users/update", apiServer.instrument(apiServer.updateUser))
	sm.Handle("/api/v1/users/delete", apiServer.instrument(apiServer.deleteUser))
	sm.Handle("/api/v1/accounts", apiServer.instrument(apiServer.accounts))
	sm.Handle("/api/v1/account", apiServer.instrument(apiServer.account))
	sm.Handle("/api/v1/transactions", apiServer.instrument(apiServer.transactions))
	sm.Handle("/api/v1/transaction", apiServer.instrument(apiServer.transaction))
	sm.Handle("/api/v1/cache/stats", apiServer.instrument(apiServer.cacheStats))
	sm.Handle("/api/v1/cache/invalidate", apiServer.instrument(apiServer.cacheInvalidate))
	sm.Handle("/healthz", apiServer.instrument(apiServer.healthz))
	sm.Handle("/livez", apiServer.instrument(apiServer.livez))
	sm.Handle("/readyz", apiServer.instrument(apiServer.readyz))
	sm.Handle("/version", apiServer.instrument(apiServer.version))
	sm.Handle("/metrics", promhttp.Handler())

	registerCacheCollector(prometheus.DefaultRegisterer, apiServer.Cache)

	srv := http.Server{
		Handler:           sm,
		Addr:              fmt.Sprintf("%s:%d", apiServer.Host, apiServer.Port),
		ReadHeaderTimeout: apiServer.Config.ReadHeaderTimeout,
		ReadTimeout:       apiServer.Config.ReadTimeout,
		WriteTimeout:      apiServer.Config.WriteTimeout,
	}

	log.Debug().Msgf("API server listening on %s...", srv.Addr)

	// Cleanup resources when system is done:
	cm.RegisterCallback(func() error {
		return srv.Shutdown(ctx)
	})

	err := srv.ListenAndServe()
	if err == http.ErrServerClosed {
		log.Debug().Msgf("API server closed on %s.", srv.Addr)
		return nil // expected error if the server is shut down
	}

	return err
}

func (apiServer *APIServer) instrument(fn http.HandlerFunc) http.Handler {
	// throttling handler
	handler := tollbooth.LimitHandler(
		tollbooth.NewLimiter(
			apiServer.Config.RateLimitPerSecond,
			&limiter.ExpirableOptions{DefaultExpirationTTL: time.Hour}),
		fn)

	// timeout handler
	handler = http.TimeoutHandler(handler, apiServer.Config.RequestHandlerTimeout, "Server Timeout!")

	// logging handler. Should be last in the chain.
	handler = handlerwrapper.NewHTTPHandlerWrapper(handler, handlerwrapper.NewJSONLogHandler())

	// request id middleware wraps the logging handler so the request log
	// line carries the id too
	return requestID(handler)
}

// requestID stamps each request with a fresh id, on the response headers
// and on the context logger every handler below logs through.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		reqLogger := logger.LoggerWithRequestID(id)
		ctx := reqLogger.WithContext(r.Context())
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
