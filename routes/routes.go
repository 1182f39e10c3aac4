package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/podwave/podwave-backend/controllers"
	"github.com/podwave/podwave-backend/middleware"
	"github.com/podwave/podwave-backend/services"
	"github.com/podwave/podwave-backend/ws"
)

func SetupRouter(r *gin.Engine, db *gorm.DB, gen *services.Generator) *gin.Engine {
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})
	r.GET("/health", middleware.DBMiddleware(db), controllers.HealthCheck)

	auth := r.Group("/auth")
	{
		auth.Use(middleware.DBMiddleware(db))
		auth.POST("/register", controllers.Register)
		auth.POST("/login", controllers.Login)
		auth.POST("/google", controllers.GoogleLogin)
	}

	podcasts := r.Group("/api/podcasts")
	{
		podcasts.Use(
			middleware.AuthMiddleware(),
			middleware.DBMiddleware(db),
			middleware.GeneratorMiddleware(gen),
		)
		podcasts.POST("/generate", controllers.GeneratePodcast)
		podcasts.GET("", controllers.GetHistory)
		podcasts.GET("/history", controllers.GetHistory)
		podcasts.POST("/script", controllers.GenerateScript)
		podcasts.GET("/:id", controllers.GetPodcast)
		podcasts.POST("/:id/play", controllers.IncrementPlays)
		podcasts.POST("/:id/rate", controllers.RatePodcast)
		podcasts.DELETE("/:id", controllers.DeletePodcast)
	}

	r.GET("/ws/podcasts", ws.HandlePodcastWebSocket)

	return r
}
