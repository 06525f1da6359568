package api

import (
	"github.com/gin-gonic/gin"

	"github.com/radflow-triage-server/internal/domain"
	"github.com/radflow-triage-server/internal/middleware"
)

// Response is the envelope every JSON endpoint returns.
type Response struct {
	Success bool             `json:"success"`
	Data    interface{}      `json:"data,omitempty"`
	Error   *domain.APIError `json:"error,omitempty"`
}

func respond(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Response{Success: true, Data: data})
}

func respondError(c *gin.Context, status int, code, message, details string) {
	apiErr := domain.NewAPIError(code, message, details, c.GetString(middleware.CorrelationIDKey))
	_ = c.Error(apiErr)
	c.AbortWithStatusJSON(status, Response{Success: false, Error: apiErr})
}
