package payments

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oggyb/cardlink/internal/app"
	"github.com/oggyb/cardlink/internal/auth"
	svcErr "github.com/oggyb/cardlink/internal/errors"
	"github.com/oggyb/cardlink/internal/server"
)

// Registrar ties the payments service into the HTTP router
type Registrar struct {
	svc *Service
}

func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{svc: NewService(appCtx)}
}

func (r *Registrar) Register(routes server.Routes) {
	routes.Public.GET("/plans", r.plans)
	routes.Public.GET("/credits/packages", r.packages)
	routes.Public.GET("/bank-info", r.bankInfo)

	routes.Authed.POST("/credits/buy", r.buyCredits)
	routes.Authed.POST("/subscriptions/purchase", r.purchaseSubscription)
	routes.Authed.GET("/payments/mine", r.mine)
	routes.Authed.GET("/me/subscription", r.mySubscription)
	routes.Authed.POST("/uploads/proof", r.presignProof)

	routes.Admin.GET("/transactions", r.list)
	routes.Admin.POST("/transactions/:id/approve", r.approve)
	routes.Admin.POST("/transactions/:id/reject", r.reject)
	routes.Admin.PUT("/bank-info", r.saveBankInfo)
	routes.Admin.GET("/plans", r.allPlans)
	routes.Admin.POST("/plans", r.createPlan)
	routes.Admin.PUT("/plans/:id", r.updatePlan)
}

func (r *Registrar) plans(c *gin.Context) {
	plans, err := r.svc.Plans(c.Request.Context(), true)
	if err != nil {
		svcErr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"plans": plans})
}

func (r *Registrar) allPlans(c *gin.Context) {
	plans, err := r.svc.Plans(c.Request.Context(), false)
	if err != nil {
		svcErr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"plans": plans})
}

func (r *Registrar) packages(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"packages": Packages()})
}

func (r *Registrar) bankInfo(c *gin.Context) {
	info, err := r.svc.BankInfo(c.Request.Context())
	if err != nil {
		svcErr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (r *Registrar) buyCredits(c *gin.Context) {
	var in CreditPurchase
	if !server.Bind(c, &in) {
		return
	}
	t, err := r.svc.InitiateCreditPurchase(c.Request.Context(), auth.MustCurrent(c).UserID, in)
	if err != nil {
		svcErr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

func (r *Registrar) purchaseSubscription(c *gin.Context) {
	var in SubscriptionPurchase
	if !server.Bind(c, &in) {
		return
	}
	t, err := r.svc.PurchaseSubscription(c.Request.Context(), auth.MustCurrent(c).UserID, in)
	if err != nil {
		svcErr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

func (r *Registrar) mine(c *gin.Context) {
	token, limit := server.PageParams(c)
	page, err := r.svc.Mine(c.Request.Context(), auth.MustCurrent(c).UserID, token, limit)
	if err != nil {
		svcErr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (r *Registrar) mySubscription(c *gin.Context) {
	cur, err := r.svc.MySubscription(c.Request.Context(), auth.MustCurrent(c).UserID)
	if err != nil {
		svcErr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, cur)
}

type proofRequest struct {
	ContentType string `json:"contentType" binding:"required"`
}

func (r *Registrar) presignProof(c *gin.Context) {
	var in proofRequest
	if !server.Bind(c, &in) {
		return
	}
	up, err := r.svc.PresignProof(c.Request.Context(), auth.MustCurrent(c).UserID, in.ContentType)
	if err != nil {
		svcErr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, up)
}

func (r *Registrar) list(c *gin.Context) {
	token, limit := server.PageParams(c)
	page, err := r.svc.List(c.Request.Context(), c.Query("status"), token, limit)
	if err != nil {
		svcErr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (r *Registrar) approve(c *gin.Context) {
	id, err := server.PathID(c, "id")
	if err != nil {
		svcErr.Respond(c, err)
		return
	}
	t, err := r.svc.Approve(c.Request.Context(), id, auth.MustCurrent(c).UserID)
	if err != nil {
		svcErr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

func (r *Registrar) reject(c *gin.Context) {
	id, err := server.PathID(c, "id")
	if err != nil {
		svcErr.Respond(c, err)
		return
	}
	var in rejectRequest
	if !server.Bind(c, &in) {
		return
	}
	t, err := r.svc.Reject(c.Request.Context(), id, auth.MustCurrent(c).UserID, in.Reason)
	if err != nil {
		svcErr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (r *Registrar) saveBankInfo(c *gin.Context) {
	var in BankInfoInput
	if !server.Bind(c, &in) {
		return
	}
	info, err := r.svc.SaveBankInfo(c.Request.Context(), in)
	if err != nil {
		svcErr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (r *Registrar) createPlan(c *gin.Context) {
	var in PlanInput
	if !server.Bind(c, &in) {
		return
	}
	plan, err := r.svc.CreatePlan(c.Request.Context(), in)
	if err != nil {
		svcErr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, plan)
}

func (r *Registrar) updatePlan(c *gin.Context) {
	id, err := server.PathID(c, "id")
	if err != nil {
		svcErr.Respond(c, err)
		return
	}
	var in PlanInput
	if !server.Bind(c, &in) {
		return
	}
	plan, err := r.svc.UpdatePlan(c.Request.Context(), id, in)
	if err != nil {
		svcErr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}
