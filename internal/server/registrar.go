package server

import "github.com/gin-gonic/gin"

// Routes are the three router groups every service mounts onto.
//   - Public: anonymous allowed; a valid bearer token still resolves the caller.
//   - Authed: a valid bearer token is required.
//   - Admin:  mounted under /api/admin, admin role required.
type Routes struct {
	Public *gin.RouterGroup
	Authed *gin.RouterGroup
	Admin  *gin.RouterGroup
}

// Registrar is a common interface for all HTTP service registrars
type Registrar interface {
	Register(r Routes)
}
