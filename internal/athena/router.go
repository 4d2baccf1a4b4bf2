package athena

import (
	"github.com/gin-gonic/gin"
	"github.com/kiosk404/athena/internal/athena/handler/middleware"
	v1 "github.com/kiosk404/athena/internal/athena/handler/v1"
	"github.com/kiosk404/athena/internal/athena/service/plugin"
)

// routerDeps holds the dependencies needed for route registration.
type routerDeps struct {
	registry  *plugin.Registry
	authToken string
}

func initRouter(g *gin.Engine, deps *routerDeps) {
	installMiddleware(g, deps)
	installController(g, deps)
}

func installMiddleware(g *gin.Engine, deps *routerDeps) {
	g.Use(middleware.CORS())
	g.Use(middleware.BearerAuth(deps.authToken))
}

func installController(g *gin.Engine, deps *routerDeps) {
	pluginHandler := v1.NewPluginHandler(deps.registry)
	toolHandler := v1.NewToolHandler(deps.registry)
	eventHandler := v1.NewEventHandler(deps.registry)
	stateHandler := v1.NewStateHandler(deps.registry)
	streamHandler := v1.NewStreamHandler(deps.registry)

	apiV1 := g.Group("/v1")
	{
		apiV1.GET("/plugins", pluginHandler.List)
		apiV1.POST("/plugins/:name/load", pluginHandler.Load)
		apiV1.POST("/plugins/:name/unload", pluginHandler.Unload)

		apiV1.GET("/tools", toolHandler.List)
		apiV1.POST("/tools/call", toolHandler.Call)

		apiV1.GET("/events", eventHandler.List)
		apiV1.POST("/events/emit", eventHandler.Emit)

		apiV1.GET("/states", stateHandler.List)
		apiV1.GET("/stream", streamHandler.Stream)
	}
}
