package marketplace

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oggyb/cardlink/internal/app"
	"github.com/oggyb/cardlink/internal/auth"
	"github.com/oggyb/cardlink/internal/db"
	svcErr "github.com/oggyb/cardlink/internal/errors"
	"github.com/oggyb/cardlink/internal/server"
	"github.com/oggyb/cardlink/internal/service/quota"
)

// Registrar ties the marketplace into the HTTP router
type Registrar struct {
	svc *Service
}

func NewRegistrar(appCtx *app.AppContext, quotas *quota.Service) *Registrar {
	return &Registrar{svc: NewService(appCtx, quotas)}
}

func (r *Registrar) Register(routes server.Routes) {
	routes.Public.GET("/requests", r.listRequests)
	routes.Public.GET("/requests/:id", r.getRequest)

	routes.Authed.POST("/requests", r.createRequest)
	routes.Authed.POST("/requests/:id/close", r.closeRequest)
	routes.Authed.GET("/requests/:id/offers", r.listOffers)
	routes.Authed.POST("/requests/:id/offers", r.createOffer)
	routes.Authed.GET("/me/requests", r.myRequests)
	routes.Authed.GET("/me/offers", r.myOffers)
	routes.Authed.POST("/offers/:id/accept", r.offerAction(r.svc.AcceptOffer))
	routes.Authed.POST("/offers/:id/reject", r.offerAction(r.svc.RejectOffer))
	routes.Authed.POST("/offers/:id/withdraw", r.offerAction(r.svc.WithdrawOffer))
}

func (r *Registrar) listRequests(c *gin.Context) {
	categoryID, err := server.QueryID(c, "category")
	if err != nil {
		svcErr.Respond(c, err)
		return
	}
	token, limit := server.PageParams(c)
	page, err := r.svc.ListRequests(c.Request.Context(), c.Query("status"), categoryID, token, limit)
	if err != nil {
		svcErr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (r *Registrar) getRequest(c *gin.Context) {
	id, err := server.PathID(c, "id")
	if err != nil {
		svcErr.Respond(c, err)
		return
	}
	req, err := r.svc.GetRequest(c.Request.Context(), id)
	if err != nil {
		svcErr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

func (r *Registrar) createRequest(c *gin.Context) {
	var in RequestInput
	if !server.Bind(c, &in) {
		return
	}
	req, err := r.svc.CreateRequest(c.Request.Context(), auth.MustCurrent(c).UserID, in)
	if err != nil {
		svcErr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, req)
}

func (r *Registrar) closeRequest(c *gin.Context) {
	id, err := server.PathID(c, "id")
	if err != nil {
		svcErr.Respond(c, err)
		return
	}
	req, err := r.svc.CloseRequest(c.Request.Context(), auth.MustCurrent(c).UserID, id)
	if err != nil {
		svcErr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

func (r *Registrar) listOffers(c *gin.Context) {
	id, err := server.PathID(c, "id")
	if err != nil {
		svcErr.Respond(c, err)
		return
	}
	offers, err := r.svc.ListOffers(c.Request.Context(), auth.MustCurrent(c), id)
	if err != nil {
		svcErr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"offers": offers})
}

func (r *Registrar) createOffer(c *gin.Context) {
	id, err := server.PathID(c, "id")
	if err != nil {
		svcErr.Respond(c, err)
		return
	}
	var in OfferInput
	if !server.Bind(c, &in) {
		return
	}
	offer, err := r.svc.CreateOffer(c.Request.Context(), auth.MustCurrent(c).UserID, id, in)
	if err != nil {
		svcErr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, offer)
}

func (r *Registrar) myRequests(c *gin.Context) {
	token, limit := server.PageParams(c)
	page, err := r.svc.MyRequests(c.Request.Context(), auth.MustCurrent(c).UserID, token, limit)
	if err != nil {
		svcErr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (r *Registrar) myOffers(c *gin.Context) {
	token, limit := server.PageParams(c)
	page, err := r.svc.MyOffers(c.Request.Context(), auth.MustCurrent(c).UserID, token, limit)
	if err != nil {
		svcErr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

type offerFunc func(ctx context.Context, userID, offerID uint64) (*db.ServiceOffer, error)

func (r *Registrar) offerAction(fn offerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := server.PathID(c, "id")
		if err != nil {
			svcErr.Respond(c, err)
			return
		}
		offer, err := fn(c.Request.Context(), auth.MustCurrent(c).UserID, id)
		if err != nil {
			svcErr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, offer)
	}
}
