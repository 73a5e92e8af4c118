package ginauth

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	httpx "github.com/target/sessionauth/internal/http"
	"github.com/target/sessionauth/internal/observability/metrics"
)

// NewRouter serves the same /api/v1 surface as httpx.NewRouter on a gin engine.
// Middleware order: Recovery, Logging, RequireAuth, then routing.
func NewRouter(opts httpx.RouterOptions) http.Handler {
	h, gate := httpx.NewComponents(opts)
	logger := h.Logger

	gin.SetMode(gin.ReleaseMode)
	e := gin.New()
	e.RedirectTrailingSlash = false
	e.RedirectFixedPath = false

	e.Use(gin.CustomRecovery(func(c *gin.Context, rec any) {
		logger.ErrorContext(c.Request.Context(), "panic",
			slog.Any("error", rec),
			slog.String("path", c.Request.URL.Path),
			slog.String("method", c.Request.Method))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
	}))
	e.Use(Logging(logger, opts.Metrics))
	e.Use(RequireAuth(gate))

	e.NoRoute(gin.WrapF(h.NotFound))

	api := e.Group("/api/v1")
	api.GET("/status", gin.WrapF(h.Status))
	api.GET("/stats", gin.WrapF(h.Stats))
	api.GET("/unauthorized", gin.WrapF(h.Unauthorized))
	api.GET("/forbidden", gin.WrapF(h.Forbidden))
	api.GET("/users/me", gin.WrapF(h.Me))
	api.DELETE("/auth_session/logout", gin.WrapF(h.Logout))
	if opts.EnableLogin {
		api.POST("/auth_session/login", gin.WrapF(h.Login))
	}

	return stripSlashes(e)
}

// Logging logs each request and observes its duration. rec may be nil.
func Logging(logger *slog.Logger, rec *metrics.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		elapsed := time.Since(start)
		status := c.Writer.Status()
		rec.ObserveRequest(c.Request.Method, status, elapsed)
		logger.InfoContext(c.Request.Context(), "http",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", status),
			slog.Duration("duration", elapsed),
		)
	}
}

// stripSlashes drops one trailing slash before gin routes the request.
func stripSlashes(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p := r.URL.Path; len(p) > 1 && strings.HasSuffix(p, "/") {
			r2 := new(http.Request)
			*r2 = *r
			r2.URL = new(url.URL)
			*r2.URL = *r.URL
			r2.URL.Path = strings.TrimSuffix(p, "/")
			r2.URL.RawPath = ""
			r = r2
		}
		next.ServeHTTP(w, r)
	})
}
