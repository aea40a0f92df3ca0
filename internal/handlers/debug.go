package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-client/internal/telemetry"
)

// RegisterDebugRoutes wires debug-only endpoints.
func RegisterDebugRoutes(router gin.IRoutes, emitter *telemetry.EventEmitter, enabled bool) {
	if !enabled {
		return
	}

	router.POST("/debug/events/test", func(c *gin.Context) {
		if emitter == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "event emitter not configured"})
			return
		}
		requestID := requestIDFromContext(c)
		emitter.Emit(c.Request.Context(), telemetry.RoutingChat, "debug_test", memberIDFromContext(c), map[string]any{
			"request_id": requestID,
		})
		c.JSON(http.StatusOK, gin.H{"status": "ok", "request_id": requestID})
	})
}
