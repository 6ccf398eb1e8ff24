package http

import "github.com/gin-gonic/gin"

// Module is a bounded context that mounts its own routes.
type Module interface {
	Name() string
	RegisterRoutes(ctx *RouterContext)
}

// RouterContext carries the groups modules mount on. Protected sits under
// /api/v1 and requires a valid access token.
type RouterContext struct {
	Protected *gin.RouterGroup
}
