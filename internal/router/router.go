package router

import (
	"context"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/segmentio/ksuid"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-krishi-connect/internal/auth"
	"github.com/ovaphlow/pitchfork/service-krishi-connect/internal/claim"
	"github.com/ovaphlow/pitchfork/service-krishi-connect/internal/crop"
	"github.com/ovaphlow/pitchfork/service-krishi-connect/internal/dashboard"
	"github.com/ovaphlow/pitchfork/service-krishi-connect/internal/field"
	"github.com/ovaphlow/pitchfork/service-krishi-connect/internal/scheme"
	"github.com/ovaphlow/pitchfork/service-krishi-connect/internal/user"
	"github.com/ovaphlow/pitchfork/service-krishi-connect/pkg/utilities"
)

// Config holds HTTP server settings.
type Config struct {
	Addr        string
	CORSOrigins []string
}

// ConfigFromEnv reads HTTP_ADDR and CORS_ORIGINS (comma separated).
func ConfigFromEnv() Config {
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = "0.0.0.0:5002"
	}
	origins := os.Getenv("CORS_ORIGINS")
	if origins == "" {
		origins = "http://localhost:5173,http://127.0.0.1:5173"
	}
	var list []string
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			list = append(list, o)
		}
	}
	return Config{Addr: addr, CORSOrigins: list}
}

// loggingResponseWriter wraps http.ResponseWriter to capture status and size.
type loggingResponseWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.status = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	if lrw.status == 0 {
		lrw.status = http.StatusOK
	}
	n, err := lrw.ResponseWriter.Write(b)
	lrw.size += n
	return n, err
}

type requestIDKey struct{}

// RequestIDFrom returns the id assigned by RequestIDMiddleware.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// RequestIDMiddleware propagates an incoming X-Request-ID or assigns a KSUID.
func RequestIDMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get("X-Request-ID")
			if id == "" || len(id) > 64 {
				id = ksuid.New().String()
			}
			w.Header().Set("X-Request-ID", id)
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
		})
	}
}

// LoggingMiddleware logs each request with the sugared logger. Server errors
// are logged at warn level, everything else at debug.
func LoggingMiddleware(logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			lrw := &loggingResponseWriter{ResponseWriter: w}
			next.ServeHTTP(lrw, r)
			dur := time.Since(start)
			status := lrw.status
			if status == 0 {
				status = http.StatusOK
			}
			log := logger.Debugw
			if status >= http.StatusInternalServerError {
				log = logger.Warnw
			}
			log("http request",
				"request_id", RequestIDFrom(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"remote", r.RemoteAddr,
				"status", status,
				"duration_ms", float64(dur.Microseconds())/1000.0,
				"size", lrw.size,
			)
		})
	}
}

// SecurityHeadersMiddleware returns a middleware that sets common HTTP security headers.
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "no-referrer-when-downgrade")
			w.Header().Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
			if w.Header().Get("Content-Security-Policy") == "" {
				w.Header().Set("Content-Security-Policy", "default-src 'self'; object-src 'none'; base-uri 'self';")
			}
			// HSTS only over TLS
			if r.TLS != nil {
				w.Header().Set("Strict-Transport-Security", "max-age=2592000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CORSMiddleware admits browser calls from the listed origins and answers
// preflight requests itself. A "*" entry admits any origin but never
// allows credentials.
func CORSMiddleware(origins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			w.Header().Add("Vary", "Origin")
			listed := origin != "" && allowed[origin]
			ok := listed || (origin != "" && allowed["*"])
			if ok {
				w.Header().Set("Access-Control-Allow-Origin", origin)
			}
			if listed {
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			}
			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				if ok {
					w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
					w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")
					w.Header().Set("Access-Control-Max-Age", strconv.Itoa(600))
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Pinger is satisfied by *sql.DB and *sqlx.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Deps are the pieces RegisterRoutes mounts. Nil handlers are skipped.
type Deps struct {
	Logger      *zap.SugaredLogger
	DB          Pinger
	PingTimeout time.Duration
	CORSOrigins []string
	Gate        *auth.Gate

	Users     *user.Handler
	Claims    *claim.Handler
	Fields    *field.Handler
	Crops     *crop.Handler
	Schemes   *scheme.Handler
	Dashboard *dashboard.Handler
}

func healthHandler(db Pinger, timeout time.Duration, logger *zap.SugaredLogger) http.HandlerFunc {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		if db == nil {
			utilities.WriteError(w, http.StatusServiceUnavailable, "DB_CONNECTION_FAILED", "Database not configured", nil)
			return
		}
		if err := db.PingContext(ctx); err != nil {
			logger.Warnw("health check ping failed", "err", err)
			utilities.WriteError(w, http.StatusServiceUnavailable, "DB_CONNECTION_FAILED", "Database connection failed", nil)
			return
		}
		utilities.WriteSuccess(w, http.StatusOK, map[string]string{
			"status":   "healthy",
			"database": "connected",
		}, "")
	}
}

// RegisterRoutes mounts every handler on a stdlib http.ServeMux and wraps it
// with request id, logging, security headers and CORS, outermost first.
func RegisterRoutes(d Deps) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", healthHandler(d.DB, d.PingTimeout, logger))

	if d.Users != nil {
		d.Users.Mount(mux, d.Gate)
	}
	if d.Claims != nil {
		d.Claims.Mount(mux, d.Gate)
	}
	if d.Fields != nil {
		d.Fields.Mount(mux, d.Gate)
	}
	if d.Crops != nil {
		d.Crops.Mount(mux, d.Gate)
	}
	if d.Schemes != nil {
		d.Schemes.Mount(mux)
	}
	if d.Dashboard != nil {
		d.Dashboard.Mount(mux, d.Gate)
	}

	var h http.Handler = mux
	h = CORSMiddleware(d.CORSOrigins)(h)
	h = SecurityHeadersMiddleware()(h)
	h = LoggingMiddleware(logger)(h)
	h = RequestIDMiddleware()(h)
	return h
}
