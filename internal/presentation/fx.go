package presentation

import (
	"wabridge/internal/core"
	"wabridge/internal/infrastructure/config"
	"wabridge/internal/infrastructure/metrics"
	infraWs "wabridge/internal/infrastructure/websocket"
	"wabridge/internal/presentation/http"
	"wabridge/internal/presentation/ws"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

// Module provides all presentation layer dependencies
var Module = fx.Module("presentation",
	fx.Provide(
		NewHTTPHandler,
		NewRouter,
		NewEventHandler,
	),
)

// NewHTTPHandler creates the §6.1 HTTP handler wrapping the process-wide Core.
func NewHTTPHandler(c *core.Core) *http.Handler {
	return http.NewHandler(c)
}

// NewRouter creates a new Gin router with all routes configured.
func NewRouter(handler *http.Handler, m *metrics.Metrics, cfg *config.Config) *gin.Engine {
	routerConfig := http.RouterConfig{
		Debug:         cfg.Log.Level == "debug",
		CORSConfig:    &cfg.CORS,
		Metrics:       m,
		MetricsConfig: &cfg.Metrics,
	}

	return http.NewRouter(handler, routerConfig)
}

// NewEventHandler creates the dashboard event WebSocket handler.
func NewEventHandler(hub *infraWs.EventHub, cfg *config.Config) *ws.EventHandler {
	eventConfig := ws.EventHandlerConfig{
		PingInterval:   cfg.WebSocket.PingInterval,
		WriteTimeout:   cfg.WebSocket.WriteTimeout,
		AuthTimeout:    cfg.WebSocket.AuthTimeout,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	}

	return ws.NewEventHandler(hub, eventConfig)
}
