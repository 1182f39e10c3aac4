package main

import (
	"log"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/podwave/podwave-backend/config"
	"github.com/podwave/podwave-backend/routes"
	"github.com/podwave/podwave-backend/services"
	"github.com/podwave/podwave-backend/ws"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found")
	}

	config.InitDB()

	// Prefer the external AI service; fall back to the direct Google
	// integrations when it is not configured.
	var scripts services.ScriptGenerator
	var tts services.SpeechSynthesizer
	if aiURL := config.AIServiceURL(); aiURL != "" {
		client := services.NewAIClient(aiURL)
		scripts = client
		tts = client
	} else {
		log.Println("AI_SERVICE_URL not set, using Gemini + Google Cloud TTS")
		scripts = services.NewGeminiScriptGenerator()
		tts = services.NewGoogleSynthesizer()
	}

	gen := services.NewGenerator(config.DB, scripts, tts, ws.NewNotifier())

	r := gin.Default()

	frontend := os.Getenv("FRONTEND_URL")
	if frontend == "" {
		frontend = "http://localhost:5173"
	}
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{frontend},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	r = routes.SetupRouter(r, config.DB, gen)

	port := os.Getenv("PORT")
	if port == "" {
		port = "4000"
	}

	log.Println("server running on port " + port)
	if err := r.Run(":" + port); err != nil {
		log.Fatal("server stopped: ", err)
	}
}
