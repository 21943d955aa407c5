package analytics

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oggyb/cardlink/internal/app"
	"github.com/oggyb/cardlink/internal/auth"
	svcErr "github.com/oggyb/cardlink/internal/errors"
	"github.com/oggyb/cardlink/internal/server"
)

// Registrar ties event tracking and reports into the HTTP router
type Registrar struct {
	svc     *Service
	limiter *server.RateLimiter
}

func NewRegistrar(appCtx *app.AppContext) *Registrar {
	cfg := appCtx.Config.Analytics
	return &Registrar{
		svc:     NewService(appCtx),
		limiter: server.NewRateLimiter(cfg.RatePerSec, cfg.Burst),
	}
}

// Limiter exposes the ingest rate limiter so idle buckets can be swept.
func (r *Registrar) Limiter() *server.RateLimiter { return r.limiter }

func (r *Registrar) Register(routes server.Routes) {
	routes.Public.POST("/analytics", r.limiter.Handler(), r.track)
	routes.Authed.GET("/analytics", r.report)
}

func (r *Registrar) track(c *gin.Context) {
	var in EventInput
	if !server.Bind(c, &in) {
		return
	}
	event, err := r.svc.Track(c.Request.Context(), in, c.ClientIP())
	if err != nil {
		svcErr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"event": event})
}

func (r *Registrar) report(c *gin.Context) {
	profileID, err := server.QueryID(c, "profileId")
	if err != nil {
		svcErr.Respond(c, err)
		return
	}
	days, err := server.QueryInt(c, "days")
	if err != nil {
		svcErr.Respond(c, err)
		return
	}
	report, err := r.svc.Report(c.Request.Context(), auth.MustCurrent(c), profileID, days)
	if err != nil {
		svcErr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
