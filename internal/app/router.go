package app

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"stateflow.dev/stateflow/internal/api/handlers"
	"stateflow.dev/stateflow/internal/api/middleware"
	"stateflow.dev/stateflow/internal/api/openapi"
	"stateflow.dev/stateflow/internal/config"
	"stateflow.dev/stateflow/internal/pkg/logger"
	"stateflow.dev/stateflow/internal/pkg/metrics"
)

// APIBasePath prefixes every route described by the OpenAPI document.
const APIBasePath = "/api/v1"

// defaultAllowedOrigins is used when no CORS origins are configured.
var defaultAllowedOrigins = []string{
	"http://localhost:3000",
	"http://localhost:5173",
}

func newRouter(cfg *config.Config, deps handlers.ServerDeps, m *metrics.Metrics, gatherer prometheus.Gatherer) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), cors.New(buildCORSConfig(cfg)))
	router.Use(middleware.RequestID(), middleware.Metrics(m), middleware.ErrorHandler())

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	router.Any("/log/level", gin.WrapH(logger.HTTPHandler()))

	doc, err := openapi.GetSwagger()
	if err != nil {
		panic("load embedded openapi document: " + err.Error())
	}

	api := router.Group(APIBasePath)
	api.Use(middleware.ActorIdentity(jwtConfig(cfg)))
	if cfg.Security.RequireAuth {
		api.Use(middleware.RequireActor())
	}
	api.Use(middleware.MustOpenAPIValidator(doc, APIBasePath))

	handlers.NewServer(deps).RegisterRoutes(api)
	return router
}

func jwtConfig(cfg *config.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey: []byte(cfg.Security.JWTSigningKey),
		Issuer:     cfg.Security.JWTIssuer,
		ExpiresIn:  24 * time.Hour,
	}
}

// buildCORSConfig derives the CORS policy. A wildcard origin is honored only
// when unsafe_allow_all_origins is set, and then credentials are disabled.
func buildCORSConfig(cfg *config.Config) cors.Config {
	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader, middleware.ActorIDHeader},
		ExposeHeaders:    []string{middleware.RequestIDHeader},
		AllowCredentials: cfg.Server.AllowCredentials,
		MaxAge:           12 * time.Hour,
	}

	if cfg.Server.UnsafeAllowAllOrigins {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
		return corsCfg
	}

	origins := make([]string, 0, len(cfg.Server.AllowedOrigins))
	for _, origin := range cfg.Server.AllowedOrigins {
		if origin == "" || origin == "*" {
			continue
		}
		origins = append(origins, origin)
	}
	if len(origins) == 0 {
		origins = append(origins, defaultAllowedOrigins...)
	}
	corsCfg.AllowOrigins = origins
	return corsCfg
}
