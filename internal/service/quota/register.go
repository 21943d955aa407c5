package quota

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oggyb/cardlink/internal/auth"
	svcErr "github.com/oggyb/cardlink/internal/errors"
	"github.com/oggyb/cardlink/internal/server"
)

// Registrar mounts GET /api/quota.
type Registrar struct {
	svc *Service
}

func NewRegistrar(svc *Service) *Registrar {
	return &Registrar{svc: svc}
}

func (r *Registrar) Register(routes server.Routes) {
	routes.Authed.GET("/quota", r.get)
}

func (r *Registrar) get(c *gin.Context) {
	userID := auth.MustCurrent(c).UserID
	out := make(map[string]*Status, 2)
	for _, kind := range []string{KindRequest, KindOffer} {
		st, err := r.svc.Check(c.Request.Context(), userID, kind)
		if err != nil {
			svcErr.Respond(c, err)
			return
		}
		out[kind] = st
	}
	c.JSON(http.StatusOK, out)
}
