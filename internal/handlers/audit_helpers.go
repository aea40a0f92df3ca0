package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	requestIDContextKey = "request_id"
	memberIDContextKey  = "memberID"
)

func requestIDFromContext(c *gin.Context) string {
	if val, ok := c.Get(requestIDContextKey); ok {
		if id, ok := val.(string); ok && id != "" {
			return id
		}
	}

	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set(requestIDContextKey, requestID)
	return requestID
}

func memberIDFromContext(c *gin.Context) int64 {
	if val, ok := c.Get(memberIDContextKey); ok {
		if id, ok := val.(int64); ok {
			return id
		}
	}
	return 0
}
