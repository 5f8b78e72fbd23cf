package httpx

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"
)

// Router defaults applied when the matching ServerConfig field is zero.
const (
	DefaultRequestsPerMinute = 100
	DefaultMaxBodyBytes      = 1 << 20
	DefaultHandlerTimeout    = 15 * time.Second
)

// swaggerPrefix is served without the strict CSP; the UI bootstraps with inline script.
const swaggerPrefix = "/swagger/"

// ServerConfig holds the options for NewRouter and NewServer.
type ServerConfig struct {
	Addr          string
	IsDevelopment bool
	// CORSAllowedOrigins is a comma-separated list; "*" allows any origin.
	CORSAllowedOrigins string
	RequestsPerMinute  int
	MaxBodyBytes       int64
	HandlerTimeout     time.Duration
}

func (c ServerConfig) requestsPerMinute() int {
	if c.RequestsPerMinute <= 0 {
		return DefaultRequestsPerMinute
	}
	return c.RequestsPerMinute
}

func (c ServerConfig) maxBodyBytes() int64 {
	if c.MaxBodyBytes <= 0 {
		return DefaultMaxBodyBytes
	}
	return c.MaxBodyBytes
}

func (c ServerConfig) handlerTimeout() time.Duration {
	if c.HandlerTimeout <= 0 {
		return DefaultHandlerTimeout
	}
	return c.HandlerTimeout
}

// Middleware carries the process-specific middlewares NewRouter mounts ahead
// of its own stack. A nil field is skipped.
type Middleware struct {
	Recovery func(http.Handler) http.Handler
	Sentry   func(http.Handler) http.Handler
	Tracing  func(http.Handler) http.Handler
	Logging  func(http.Handler) http.Handler
}

// NewRouter returns a chi.Mux with the standard middleware stack installed.
//
// Order, outermost first: recovery, sentry, request id, tracing, logging,
// real ip, per-ip rate limit, cors, body limit, handler timeout, security
// headers. Recovery sits outside sentry because sentry re-panics after
// reporting.
func NewRouter(cfg ServerConfig, mw Middleware) *chi.Mux {
	r := chi.NewRouter()

	use := func(h func(http.Handler) http.Handler) {
		if h != nil {
			r.Use(h)
		}
	}
	use(mw.Recovery)
	use(mw.Sentry)
	r.Use(middleware.RequestID)
	use(mw.Tracing)
	use(mw.Logging)

	r.Use(
		middleware.RealIP,
		httprate.Limit(
			cfg.requestsPerMinute(),
			time.Minute,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
				JSONError(w, http.StatusTooManyRequests, "Too many requests")
			}),
		),
		CORSMiddleware(cfg.CORSAllowedOrigins),
		RequestBodyLimit(cfg.maxBodyBytes()),
		middleware.Timeout(cfg.handlerTimeout()),
		securityHeaders(cfg.IsDevelopment),
	)
	return r
}

func securityHeaders(isDevelopment bool) func(http.Handler) http.Handler {
	sec := secure.New(secure.Options{
		STSSeconds:            63072000,
		STSIncludeSubdomains:  true,
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		ReferrerPolicy:        "no-referrer",
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'",
		PermissionsPolicy:     "geolocation=(), camera=(), microphone=()",
		IsDevelopment:         isDevelopment,
	})
	return func(next http.Handler) http.Handler {
		strict := sec.Handler(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.URL.Path, swaggerPrefix) {
				next.ServeHTTP(w, r)
				return
			}
			strict.ServeHTTP(w, r)
		})
	}
}

// CORSMiddleware allows the listed origins to call the JSON API.
func CORSMiddleware(allowedOrigins string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: splitOrigins(allowedOrigins),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader},
		MaxAge:         600,
	})
}

func splitOrigins(s string) []string {
	var out []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

// RequestBodyLimit wraps the body in http.MaxBytesReader. Decoders see an
// *http.MaxBytesError once maxBytes is exceeded.
func RequestBodyLimit(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

// NewServer builds the listener for cfg.Addr. The write timeout leaves room
// past the handler timeout so the 503 from middleware.Timeout is delivered.
func NewServer(cfg ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.handlerTimeout() + 5*time.Second,
		IdleTimeout:       90 * time.Second,
		MaxHeaderBytes:    64 << 10,
	}
}
