// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, user identity, logging/redaction, panic
// recovery, compression, metrics, CORS, security headers, idempotency, and
// rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → identity → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/go-recipe-backend/internal/config"
	"github.com/tbourn/go-recipe-backend/internal/http/handlers"
	"github.com/tbourn/go-recipe-backend/internal/http/middleware"
	"github.com/tbourn/go-recipe-backend/internal/identity"
	"github.com/tbourn/go-recipe-backend/internal/querycache"
	"github.com/tbourn/go-recipe-backend/internal/remote"
	"github.com/tbourn/go-recipe-backend/internal/repo"
	"github.com/tbourn/go-recipe-backend/internal/services"
	"github.com/tbourn/go-recipe-backend/internal/storage"
)

// maxBodyBytes leaves room for a base64 avatar of up to 2MB.
const maxBodyBytes = 4 << 20

// idempotencyShim adapts the repository free functions to the
// handlers.IdempotencyStore interface.
type idempotencyShim struct {
	db  *gorm.DB
	ttl time.Duration
}

// Lookup proxies repo.GetIdempotency; any error reads as "not found".
func (s idempotencyShim) Lookup(ctx context.Context, userID, scope, key string) (string, bool) {
	rec, err := repo.GetIdempotency(ctx, s.db, userID, scope, key, time.Now().UTC())
	if err != nil || rec == nil {
		return "", false
	}
	return rec.ResourceID, true
}

// Remember proxies repo.CreateIdempotency. A concurrent duplicate is fine.
func (s idempotencyShim) Remember(ctx context.Context, userID, scope, key, resourceID string, status int) error {
	_, err := repo.CreateIdempotency(ctx, s.db, userID, scope, key, resourceID, status, s.ttl)
	if errors.Is(err, repo.ErrDuplicate) {
		return nil
	}
	return err
}

// exists reports whether a still-valid record exists (middleware lookup).
func (s idempotencyShim) exists(ctx context.Context, userID, scope, key string, now time.Time) (bool, error) {
	rec, err := repo.GetIdempotency(ctx, s.db, userID, scope, key, now)
	if errors.Is(err, repo.ErrNotFound) {
		return false, nil
	}
	return rec != nil, err
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It builds the durable store, the user identity, the remote client
// (reads served through cache) and the services, then mounts the public API
// under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Identity: resolve the local user identifier
//  4. RedactingLogger: structured logs with PII scrubbing
//  5. Recovery: capture panics after logger
//  6. Body size limiter
//  7. Gzip (event streams excluded)
//  8. Metrics
//  9. Idempotency validator (before rate limiter to allow bypass on replay)
//  10. Rate limiter (per user/IP, bypass on replay)
//  11. CORS and Security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, cache *querycache.Cache, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	apiBase := cfg.APIBasePath // e.g. "/api/v1"
	eventsPath := joinPath(apiBase, "/favorites/events")

	// Dependency injection: services ← store/identity/remote
	st := storage.NewSQL(db)
	ids := identity.New(st)
	rc := remote.New(cfg.Remote.BaseURL, cfg.Remote.Prefix,
		&http.Client{Timeout: cfg.Remote.Timeout},
		cache,
		remote.TTLs{
			Recipes:    cfg.Cache.RecipesTTL,
			Reviews:    cfg.Cache.ReviewsTTL,
			Categories: cfg.Cache.CategoriesTTL,
			Default:    cfg.Cache.DefaultTTL,
		},
	)
	idem := idempotencyShim{db: db, ttl: cfg.IdempotencyTTL}

	favSvc := services.NewFavoriteService(st, ids, rc)
	favSvc.RemoteSync = cfg.Remote.SyncEnabled
	favSvc.SyncTimeout = cfg.Remote.SyncTimeout

	revSvc := services.NewReviewService(st, ids, rc)
	revSvc.RemoteSync = cfg.Remote.SyncEnabled
	revSvc.SyncTimeout = cfg.Remote.SyncTimeout

	h := handlers.New(handlers.Deps{
		Favorites:   favSvc,
		Reviews:     revSvc,
		Profiles:    services.NewProfileService(st, ids),
		Recipes:     services.NewRecipeService(rc, st),
		Store:       st,
		Cache:       cache,
		Idempotency: idem,
	})

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Local user identifier
	r.Use(middleware.Identity(ids, "/health", "/metrics", "/swagger"))

	// 4) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{"X-API-Key"},
		SkipPaths:   []string{"/metrics"},
	}))

	// 5) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 6) Global body size limit
	r.Use(limitBody(maxBodyBytes))

	// 7) Compression; SSE must stay unbuffered
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{eventsPath, "/metrics"})))

	// 8) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 9) Idempotency validation (before rate limiting)
	r.Use(middleware.IdempotencyValidator(middleware.IdempotencyOptions{MaxLen: 200}, idem.exists))

	// 10) Token-bucket rate limiter per user/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	// 11) CORS posture (safe defaults: allow all if none configured)
	allowHeaders := []string{"Origin", "Content-Type", "Accept", "If-None-Match", middleware.HeaderIdempotencyKey}
	exposeHeaders := []string{"X-Request-ID", "ETag", "Idempotency-Replayed", "Content-Length"}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist (in addition to gin-contrib/cors).
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// API docs
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Public API
	api := groupWithPrefix(r, apiBase)
	{
		// Identity & profile
		api.GET("/me", h.Me)
		api.GET("/me/reviews", h.ListMyReviews)
		api.GET("/profile", h.GetProfile)
		api.PUT("/profile", h.UpdateProfile)

		// Favorites
		api.GET("/favorites", h.ListFavorites)
		api.GET("/favorites/events", h.FavoriteEvents)
		api.GET("/favorites/:recipeId", h.GetFavoriteStatus)
		api.POST("/favorites/:recipeId/toggle", h.ToggleFavorite)

		// Recipes & reviews
		api.GET("/recipes", h.ListRecipes)
		api.GET("/recipes/:id", h.GetRecipe)
		api.GET("/recipes/:id/reviews", h.ListRecipeReviews)
		api.POST("/recipes/:id/reviews", h.SubmitReview)
		api.GET("/recipes/:id/stats", h.RecipeStats)
		api.PUT("/reviews/:id", h.UpdateReview)
		api.DELETE("/reviews/:id", h.DeleteReview)
		api.GET("/categories", h.ListCategories)

		// Query cache
		api.GET("/cache/stats", h.CacheStats)
		api.DELETE("/cache", h.InvalidateCache)
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}

// joinPath joins a base path and a route, treating "/" (or empty) as root.
func joinPath(base, route string) string {
	if base == "" || base == "/" {
		return route
	}
	return base + route
}
