// Package router assembles the gin engine from registered modules.
package router

import (
	"net/http"

	apphttp "epiclead_backend/internal/http"
	"epiclead_backend/platform/httpkit"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// New builds the gin engine, mounts shared middleware, and lets every module
// register its routes.
func New(app *apphttp.App) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(httpkit.RequestLogger(app.Logger))
	engine.Use(httpkit.SecurityHeaders())
	engine.Use(corsMiddleware(app))

	engine.GET("/api/health", func(c *gin.Context) {
		if app.Health != nil {
			if err := app.Health.Ping(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := engine.Group("/api/v1")
	ctx := &apphttp.RouterContext{
		Engine:          engine,
		V1:              v1,
		Webhooks:        v1.Group("/webhooks"),
		FormRateLimiter: httpkit.NewFormRateLimiter(app.Logger),
	}

	for _, module := range app.Modules {
		app.Logger.Info("registering module routes", "module", module.Name())
		module.RegisterRoutes(ctx)
	}

	return engine
}

func corsMiddleware(app *apphttp.App) gin.HandlerFunc {
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "Calendly-Webhook-Signature"}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}

	if app.Config.GetCORSAllowAll() {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = app.Config.GetCORSOrigins()
	}

	return cors.New(corsConfig)
}
