package server

import (
	"strconv"

	"github.com/gin-gonic/gin"

	svcErr "github.com/oggyb/cardlink/internal/errors"
)

// PathID parses a positive integer path parameter.
func PathID(c *gin.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, svcErr.InvalidArgument(name + " must be a positive integer")
	}
	return id, nil
}

// QueryID parses an optional positive integer query parameter.
func QueryID(c *gin.Context, name string) (*uint64, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return nil, svcErr.InvalidArgument(name + " must be a positive integer")
	}
	return &id, nil
}

// QueryInt parses an optional integer query parameter; absent yields 0.
func QueryInt(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, svcErr.InvalidArgument(name + " must be an integer")
	}
	return n, nil
}

// PageParams reads ?paginationToken=&limit=. Limits are clamped by the services.
func PageParams(c *gin.Context) (*string, int) {
	var token *string
	if t := c.Query("paginationToken"); t != "" {
		token = &t
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	return token, limit
}

// Bind decodes the JSON body into v, answering 400 on failure.
func Bind(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		svcErr.Respond(c, svcErr.InvalidArgument(err.Error()))
		return false
	}
	return true
}
