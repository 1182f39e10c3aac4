package middleware

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/podwave/podwave-backend/services"
)

// DBMiddleware makes the database handle available to handlers.
func DBMiddleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("db", db)
		c.Next()
	}
}

// GeneratorMiddleware makes the generation orchestrator available to handlers.
func GeneratorMiddleware(gen *services.Generator) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("generator", gen)
		c.Next()
	}
}
