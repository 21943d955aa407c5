package cards

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oggyb/cardlink/internal/app"
	"github.com/oggyb/cardlink/internal/auth"
	svcErr "github.com/oggyb/cardlink/internal/errors"
	"github.com/oggyb/cardlink/internal/server"
)

// Registrar ties the cards service into the HTTP router
type Registrar struct {
	svc *Service
}

// NewRegistrar creates a new Registrar for the cards service
func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{svc: NewService(appCtx)}
}

func (r *Registrar) Register(routes server.Routes) {
	routes.Authed.POST("/cards", r.send)
	routes.Authed.POST("/cards/:id/view", r.markViewed)
	routes.Authed.GET("/cards/inbox", r.inbox)
	routes.Authed.GET("/cards/sent", r.sent)
	routes.Authed.GET("/credits/balance", r.balance)
}

type sendRequest struct {
	ReceiverID uint64  `json:"receiverId" binding:"required"`
	ProfileID  *uint64 `json:"profileId"`
}

func (r *Registrar) send(c *gin.Context) {
	var req sendRequest
	if !server.Bind(c, &req) {
		return
	}
	card, err := r.svc.Send(c.Request.Context(), auth.MustCurrent(c).UserID, req.ReceiverID, req.ProfileID)
	if err != nil {
		svcErr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, card)
}

func (r *Registrar) markViewed(c *gin.Context) {
	id, err := server.PathID(c, "id")
	if err != nil {
		svcErr.Respond(c, err)
		return
	}
	card, err := r.svc.MarkViewed(c.Request.Context(), id, auth.MustCurrent(c).UserID)
	if err != nil {
		svcErr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, card)
}

func (r *Registrar) inbox(c *gin.Context) {
	token, limit := server.PageParams(c)
	page, err := r.svc.Inbox(c.Request.Context(), auth.MustCurrent(c).UserID, token, limit)
	if err != nil {
		svcErr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (r *Registrar) sent(c *gin.Context) {
	token, limit := server.PageParams(c)
	page, err := r.svc.Sent(c.Request.Context(), auth.MustCurrent(c).UserID, token, limit)
	if err != nil {
		svcErr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (r *Registrar) balance(c *gin.Context) {
	b, err := r.svc.Balance(c.Request.Context(), auth.MustCurrent(c).UserID)
	if err != nil {
		svcErr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}
