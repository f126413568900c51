package gateway

import (
	"net/http"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"

	"github.com/clinicore/clinicore/internal/gateway/handler/middleware"
	v1 "github.com/clinicore/clinicore/internal/gateway/handler/v1"
	"github.com/clinicore/clinicore/internal/gateway/service/chat/domain/service"
	genericoptions "github.com/clinicore/clinicore/internal/pkg/options"
	"github.com/clinicore/clinicore/pkg/version"
)

// routerDeps holds the dependencies needed for route registration.
type routerDeps struct {
	chatService service.ChatService
	gate        *service.ToolGate
	specialists *service.SpecialistService
	authConfig  *middleware.AuthConfig
	serverOpts  *genericoptions.ServerRunOptions
}

func initRouter(g *gin.Engine, deps *routerDeps) {
	installMiddleware(g, deps)
	installController(g, deps)
}

func installMiddleware(g *gin.Engine, deps *routerDeps) {
	g.Use(gin.Recovery())
	g.Use(middleware.CORS())

	if deps.authConfig != nil {
		g.Use(middleware.BearerAuth(deps.authConfig))
	}
}

func installController(g *gin.Engine, deps *routerDeps) {
	if deps.serverOpts.Healthz {
		g.GET("/healthz", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})
	}
	g.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, version.Get())
	})
	if deps.serverOpts.EnableProfiling {
		pprof.Register(g)
	}

	// Handlers.
	chatHandler := v1.NewChatHandler(deps.chatService)
	taskHandler := v1.NewTaskHandler(deps.chatService)
	toolHandler := v1.NewToolHandler(deps.gate, deps.chatService)
	specialistHandler := v1.NewSpecialistHandler(deps.specialists)
	sessionHandler := v1.NewSessionHandler(deps.chatService)

	// --- /v1 route group ---
	apiV1 := g.Group("/v1")
	{
		// Turn dispatch and retry.
		apiV1.POST("/chat", chatHandler.Dispatch)
		apiV1.POST("/messages/:id/retry", chatHandler.Retry)

		// Task observation.
		apiV1.GET("/tasks/:id", taskHandler.Poll)
		apiV1.GET("/tasks/:id/stream", taskHandler.Stream)

		// Tool registry.
		apiV1.POST("/tools", toolHandler.Create)
		apiV1.GET("/tools", toolHandler.List)
		apiV1.GET("/tools/:id", toolHandler.Get)
		apiV1.PATCH("/tools/:id", toolHandler.Update)
		apiV1.DELETE("/tools/:id", toolHandler.Delete)
		apiV1.POST("/tools/:id/test", toolHandler.Test)

		// Specialist registry.
		apiV1.POST("/specialists", specialistHandler.Create)
		apiV1.GET("/specialists", specialistHandler.List)
		apiV1.GET("/specialists/:id", specialistHandler.Get)
		apiV1.PUT("/specialists/:id", specialistHandler.Update)
		apiV1.DELETE("/specialists/:id", specialistHandler.Delete)
		apiV1.POST("/specialists/:id/clone", specialistHandler.Clone)

		// Session management.
		apiV1.GET("/sessions", sessionHandler.List)
		apiV1.GET("/sessions/:id", sessionHandler.Get)
		apiV1.DELETE("/sessions/:id", sessionHandler.Delete)
		apiV1.GET("/sessions/:id/messages", sessionHandler.ListMessages)
	}
}
