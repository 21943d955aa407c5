package social

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oggyb/cardlink/internal/app"
	"github.com/oggyb/cardlink/internal/auth"
	svcErr "github.com/oggyb/cardlink/internal/errors"
	"github.com/oggyb/cardlink/internal/server"
)

// Registrar ties follows and contacts into the HTTP router
type Registrar struct {
	svc *Service
}

func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{svc: NewService(appCtx)}
}

func (r *Registrar) Register(routes server.Routes) {
	routes.Public.GET("/users/:id/followers", r.followers)
	routes.Public.GET("/users/:id/following", r.following)

	routes.Authed.GET("/follows/:userId", r.isFollowing)
	routes.Authed.POST("/follows/:userId", r.follow)
	routes.Authed.DELETE("/follows/:userId", r.unfollow)

	routes.Authed.GET("/contacts", r.listContacts)
	routes.Authed.POST("/contacts", r.saveContact)
	routes.Authed.PATCH("/contacts/:id", r.updateContact)
	routes.Authed.DELETE("/contacts/:id", r.deleteContact)

	routes.Authed.GET("/contact-categories", r.listCategories)
	routes.Authed.POST("/contact-categories", r.createCategory)
	routes.Authed.DELETE("/contact-categories/:id", r.deleteCategory)
}

func (r *Registrar) follow(c *gin.Context) {
	target, err := server.PathID(c, "userId")
	if err != nil {
		svcErr.Respond(c, err)
		return
	}
	st, err := r.svc.Follow(c.Request.Context(), auth.MustCurrent(c).UserID, target)
	if err != nil {
		svcErr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (r *Registrar) unfollow(c *gin.Context) {
	target, err := server.PathID(c, "userId")
	if err != nil {
		svcErr.Respond(c, err)
		return
	}
	st, err := r.svc.Unfollow(c.Request.Context(), auth.MustCurrent(c).UserID, target)
	if err != nil {
		svcErr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (r *Registrar) isFollowing(c *gin.Context) {
	target, err := server.PathID(c, "userId")
	if err != nil {
		svcErr.Respond(c, err)
		return
	}
	ok, err := r.svc.IsFollowing(c.Request.Context(), auth.MustCurrent(c).UserID, target)
	if err != nil {
		svcErr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"following": ok})
}

func (r *Registrar) followers(c *gin.Context) {
	r.edges(c, r.svc.Followers)
}

func (r *Registrar) following(c *gin.Context) {
	r.edges(c, r.svc.Following)
}

func (r *Registrar) edges(c *gin.Context, list func(ctx context.Context, userID uint64, token *string, limit int) (*EdgePage, error)) {
	id, err := server.PathID(c, "id")
	if err != nil {
		svcErr.Respond(c, err)
		return
	}
	token, limit := server.PageParams(c)
	page, err := list(c.Request.Context(), id, token, limit)
	if err != nil {
		svcErr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (r *Registrar) listContacts(c *gin.Context) {
	categoryID, err := server.QueryID(c, "category")
	if err != nil {
		svcErr.Respond(c, err)
		return
	}
	out, err := r.svc.Contacts(c.Request.Context(), auth.MustCurrent(c).UserID, categoryID, c.Query("uncategorized") == "true")
	if err != nil {
		svcErr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"contacts": out})
}

func (r *Registrar) saveContact(c *gin.Context) {
	var in ContactInput
	if !server.Bind(c, &in) {
		return
	}
	out, err := r.svc.SaveContact(c.Request.Context(), auth.MustCurrent(c).UserID, in)
	if err != nil {
		svcErr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (r *Registrar) updateContact(c *gin.Context) {
	id, err := server.PathID(c, "id")
	if err != nil {
		svcErr.Respond(c, err)
		return
	}
	var in ContactPatch
	if !server.Bind(c, &in) {
		return
	}
	out, err := r.svc.UpdateContact(c.Request.Context(), auth.MustCurrent(c).UserID, id, in)
	if err != nil {
		svcErr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (r *Registrar) deleteContact(c *gin.Context) {
	id, err := server.PathID(c, "id")
	if err != nil {
		svcErr.Respond(c, err)
		return
	}
	if err := r.svc.DeleteContact(c.Request.Context(), auth.MustCurrent(c).UserID, id); err != nil {
		svcErr.Respond(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (r *Registrar) listCategories(c *gin.Context) {
	out, err := r.svc.Categories(c.Request.Context(), auth.MustCurrent(c).UserID)
	if err != nil {
		svcErr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": out})
}

type categoryRequest struct {
	Name string `json:"name" binding:"required"`
}

func (r *Registrar) createCategory(c *gin.Context) {
	var req categoryRequest
	if !server.Bind(c, &req) {
		return
	}
	out, err := r.svc.CreateCategory(c.Request.Context(), auth.MustCurrent(c).UserID, req.Name)
	if err != nil {
		svcErr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (r *Registrar) deleteCategory(c *gin.Context) {
	id, err := server.PathID(c, "id")
	if err != nil {
		svcErr.Respond(c, err)
		return
	}
	if err := r.svc.DeleteCategory(c.Request.Context(), auth.MustCurrent(c).UserID, id); err != nil {
		svcErr.Respond(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
