package http

import (
	"wabridge/internal/infrastructure/config"
	"wabridge/internal/infrastructure/metrics"
	pkgvalidator "wabridge/pkg/validator"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func init() {
	binding.Validator = pkgvalidator.GinValidator{}
}

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Debug         bool
	CORSConfig    *config.CORSConfig
	Metrics       *metrics.Metrics
	MetricsConfig *config.MetricsConfig
}

// DefaultRouterConfig returns the default router configuration.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{}
}

// setupRouter creates and configures a Gin router with middleware.
func setupRouter(routerConfig RouterConfig) *gin.Engine {
	if !routerConfig.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(ErrorHandlerMiddleware())
	router.Use(RequestIDMiddleware())
	router.Use(LoggingMiddleware())

	if routerConfig.CORSConfig != nil {
		router.Use(CORSMiddlewareWithConfig(*routerConfig.CORSConfig))
	} else {
		router.Use(CORSMiddlewareWithConfig(config.CORSConfig{}))
	}

	router.Use(ContentTypeMiddleware())

	if routerConfig.Metrics != nil {
		router.Use(MetricsMiddleware(routerConfig.Metrics))
	}

	return router
}

// registerRoutes registers the §6.1 operation set on the router.
func registerRoutes(router *gin.Engine, handler *Handler, routerConfig RouterConfig) {
	router.GET("/health", handler.Health)
	router.GET("/ready", handler.Ready)

	if routerConfig.MetricsConfig != nil && routerConfig.MetricsConfig.Enabled {
		metricsPath := routerConfig.MetricsConfig.Path
		if metricsPath == "" {
			metricsPath = "/metrics"
		}
		router.GET(metricsPath, gin.WrapH(promhttp.Handler()))
	}

	router.POST("/send", handler.Send)
	router.GET("/status", handler.Status)
	router.GET("/rate-limit-status", handler.RateLimitStatus)
	router.POST("/account-age", handler.SetAccountAge)
	router.POST("/reconnect", handler.Reconnect)
	router.GET("/ban-warning-status", handler.BanWarningStatus)
	router.POST("/exit-hibernation", handler.ExitHibernation)
	router.POST("/reset-ban-warning", handler.ResetBanWarning)
	router.POST("/presence", handler.PresenceOverride)
}

// NewRouter creates a new Gin router with a pre-configured handler.
func NewRouter(handler *Handler, routerConfig RouterConfig) *gin.Engine {
	router := setupRouter(routerConfig)
	registerRoutes(router, handler, routerConfig)
	return router
}
