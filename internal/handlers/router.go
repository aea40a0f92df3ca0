package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"chat-client/internal/middleware"
	"chat-client/internal/observability"
	"chat-client/internal/telemetry"
)

// NewDebugRouter builds the local debug server.
func NewDebugRouter(serviceName string, status *StatusHandler, session middleware.CredentialSource, emitter *telemetry.EventEmitter, debugRoutes bool) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/healthz", status.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/debug/session", status.Session)
	router.GET("/debug/chat", status.Chat)

	authed := router.Group("/", middleware.RequireSession(session))
	authed.POST("/debug/chat/messages", status.SendMessage)
	RegisterDebugRoutes(authed, emitter, debugRoutes)

	return router
}
