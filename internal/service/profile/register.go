package profile

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oggyb/cardlink/internal/app"
	"github.com/oggyb/cardlink/internal/auth"
	svcErr "github.com/oggyb/cardlink/internal/errors"
	"github.com/oggyb/cardlink/internal/server"
)

// Registrar ties the profile directory into the HTTP router
type Registrar struct {
	svc *Service
}

func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{svc: NewService(appCtx)}
}

func (r *Registrar) Register(routes server.Routes) {
	routes.Public.GET("/profiles", r.search)
	routes.Public.GET("/profiles/:slug", r.get)
	routes.Public.GET("/categories", r.categories)

	routes.Authed.GET("/me/profile", r.mine)
	routes.Authed.PATCH("/me/profile", r.updateMine)
	routes.Authed.GET("/me/searches", r.searches)
	routes.Authed.GET("/me/social-accounts", r.accounts)
	routes.Authed.POST("/me/social-accounts", r.addAccount)
	routes.Authed.PUT("/me/social-accounts/order", r.reorder)
	routes.Authed.PATCH("/me/social-accounts/:id", r.updateAccount)
	routes.Authed.DELETE("/me/social-accounts/:id", r.deleteAccount)

	routes.Admin.POST("/categories", r.createCategory)
	routes.Admin.PATCH("/users/:id", r.updateUser)
}

func (r *Registrar) get(c *gin.Context) {
	var viewer *auth.Principal
	if p, ok := auth.Current(c); ok {
		viewer = &p
	}
	v, err := r.svc.Get(c.Request.Context(), c.Param("slug"), viewer)
	if err != nil {
		svcErr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (r *Registrar) search(c *gin.Context) {
	categoryID, err := server.QueryID(c, "category")
	if err != nil {
		svcErr.Respond(c, err)
		return
	}
	var viewerID *uint64
	if p, ok := auth.Current(c); ok {
		viewerID = &p.UserID
	}
	token, limit := server.PageParams(c)
	page, err := r.svc.Search(c.Request.Context(), viewerID, c.Query("q"), categoryID, token, limit)
	if err != nil {
		svcErr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (r *Registrar) categories(c *gin.Context) {
	out, err := r.svc.Categories(c.Request.Context())
	if err != nil {
		svcErr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": out})
}

func (r *Registrar) mine(c *gin.Context) {
	v, err := r.svc.Mine(c.Request.Context(), auth.MustCurrent(c).UserID)
	if err != nil {
		svcErr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (r *Registrar) updateMine(c *gin.Context) {
	var in Update
	if !server.Bind(c, &in) {
		return
	}
	v, err := r.svc.UpdateMine(c.Request.Context(), auth.MustCurrent(c).UserID, in)
	if err != nil {
		svcErr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (r *Registrar) searches(c *gin.Context) {
	out, err := r.svc.RecentSearches(c.Request.Context(), auth.MustCurrent(c).UserID)
	if err != nil {
		svcErr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"searches": out})
}

func (r *Registrar) accounts(c *gin.Context) {
	out, err := r.svc.Accounts(c.Request.Context(), auth.MustCurrent(c).UserID)
	if err != nil {
		svcErr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"socialAccounts": out})
}

func (r *Registrar) addAccount(c *gin.Context) {
	var in AccountInput
	if !server.Bind(c, &in) {
		return
	}
	out, err := r.svc.AddAccount(c.Request.Context(), auth.MustCurrent(c).UserID, in)
	if err != nil {
		svcErr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (r *Registrar) updateAccount(c *gin.Context) {
	id, err := server.PathID(c, "id")
	if err != nil {
		svcErr.Respond(c, err)
		return
	}
	var in AccountPatch
	if !server.Bind(c, &in) {
		return
	}
	out, err := r.svc.UpdateAccount(c.Request.Context(), auth.MustCurrent(c).UserID, id, in)
	if err != nil {
		svcErr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (r *Registrar) deleteAccount(c *gin.Context) {
	id, err := server.PathID(c, "id")
	if err != nil {
		svcErr.Respond(c, err)
		return
	}
	if err := r.svc.DeleteAccount(c.Request.Context(), auth.MustCurrent(c).UserID, id); err != nil {
		svcErr.Respond(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type reorderRequest struct {
	IDs []uint64 `json:"ids" binding:"required"`
}

func (r *Registrar) reorder(c *gin.Context) {
	var req reorderRequest
	if !server.Bind(c, &req) {
		return
	}
	out, err := r.svc.Reorder(c.Request.Context(), auth.MustCurrent(c).UserID, req.IDs)
	if err != nil {
		svcErr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"socialAccounts": out})
}

type categoryRequest struct {
	Name string `json:"name" binding:"required"`
}

func (r *Registrar) createCategory(c *gin.Context) {
	var req categoryRequest
	if !server.Bind(c, &req) {
		return
	}
	out, err := r.svc.CreateCategory(c.Request.Context(), req.Name)
	if err != nil {
		svcErr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (r *Registrar) updateUser(c *gin.Context) {
	id, err := server.PathID(c, "id")
	if err != nil {
		svcErr.Respond(c, err)
		return
	}
	var in UserPatch
	if !server.Bind(c, &in) {
		return
	}
	out, err := r.svc.UpdateUser(c.Request.Context(), auth.MustCurrent(c).UserID, id, in)
	if err != nil {
		svcErr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}
