package account

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oggyb/cardlink/internal/app"
	"github.com/oggyb/cardlink/internal/auth"
	svcErr "github.com/oggyb/cardlink/internal/errors"
	"github.com/oggyb/cardlink/internal/server"
)

// Registrar ties sign-up and login into the HTTP router
type Registrar struct {
	svc *Service
}

func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{svc: NewService(appCtx)}
}

func (r *Registrar) Register(routes server.Routes) {
	routes.Public.POST("/auth/register", r.register)
	routes.Public.POST("/auth/login", r.login)
	routes.Authed.GET("/me", r.me)
}

func (r *Registrar) register(c *gin.Context) {
	var in Registration
	if !server.Bind(c, &in) {
		return
	}
	sess, err := r.svc.Register(c.Request.Context(), in)
	if err != nil {
		svcErr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, sess)
}

func (r *Registrar) login(c *gin.Context) {
	var in Credentials
	if !server.Bind(c, &in) {
		return
	}
	sess, err := r.svc.Login(c.Request.Context(), in)
	if err != nil {
		svcErr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (r *Registrar) me(c *gin.Context) {
	me, err := r.svc.Me(c.Request.Context(), auth.MustCurrent(c).UserID)
	if err != nil {
		svcErr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, me)
}
