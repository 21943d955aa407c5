package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oggyb/cardlink/internal/app"
	"github.com/oggyb/cardlink/internal/auth"
	"github.com/oggyb/cardlink/internal/metrics"
	"github.com/oggyb/cardlink/internal/repository"
)

// NewRouter builds the gin engine with the shared middleware chain, the
// ops endpoints and every registrar's routes under /api.
func NewRouter(appCtx *app.AppContext, registrars ...Registrar) *gin.Engine {
	if appCtx.Config.App.ENV != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(appCtx.Logger), metrics.Middleware())

	r.GET("/healthz", healthz(appCtx))
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	users := repository.NewUserRepository(appCtx.DB)
	api := r.Group("/api")
	routes := Routes{
		Public: api.Group("", auth.Authenticate(appCtx.Tokens, users, false)),
		Authed: api.Group("", auth.Authenticate(appCtx.Tokens, users, true)),
		Admin:  api.Group("/admin", auth.Authenticate(appCtx.Tokens, users, true), auth.RequireAdmin()),
	}
	for _, reg := range registrars {
		reg.Register(routes)
	}
	return r
}

// NewHTTPServer wraps handler with the listener address and sane timeouts.
func NewHTTPServer(appCtx *app.AppContext, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              appCtx.Config.HTTP.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}

func healthz(appCtx *app.AppContext) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := gin.H{"db": "ok", "redis": "ok"}
		code := http.StatusOK
		if sqlDB, err := appCtx.DB.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
			status["db"] = "down"
			code = http.StatusServiceUnavailable
		}
		if appCtx.RedisCache == nil || appCtx.RedisCache.Ping(ctx) != nil {
			status["redis"] = "down"
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, status)
	}
}
