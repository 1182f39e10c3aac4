package controllers

import (
	"math/rand"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"

	"github.com/podwave/podwave-backend/models"
	"github.com/podwave/podwave-backend/services"
)

type GeneratePodcastInput struct {
	Topic    string                 `json:"topic"`
	Style    string                 `json:"style"`
	Voice    string                 `json:"voice"`
	Speed    float64                `json:"speed"`
	Script   string                 `json:"script"`
	Metadata map[string]interface{} `json:"metadata"`
}

var knownStyles = map[string]bool{
	"motivational":   true,
	"professional":   true,
	"conversational": true,
	"energetic":      true,
	"educational":    true,
	"casual":         true,
	"formal":         true,
}

// normalizeStyle maps free-form style input onto the fixed set, falling back
// to professional.
func normalizeStyle(style string) string {
	normalized := strings.ToLower(strings.TrimSpace(style))
	if knownStyles[normalized] {
		return normalized
	}
	return "professional"
}

var thumbnails = []string{"🎙️", "🎧", "📻", "🎵", "🎤", "📢", "🔊", "🎼"}

func randomThumbnail() string {
	return thumbnails[rand.Intn(len(thumbnails))]
}

// inferGenre guesses a display genre from keywords in the topic.
func inferGenre(topic string) string {
	t := strings.ToLower(topic)
	switch {
	case strings.Contains(t, "tech") || strings.Contains(t, "ai") || strings.Contains(t, "software"):
		return "Technology"
	case strings.Contains(t, "business") || strings.Contains(t, "entrepreneur"):
		return "Business"
	case strings.Contains(t, "health") || strings.Contains(t, "fitness") || strings.Contains(t, "mental"):
		return "Health & Fitness"
	case strings.Contains(t, "science") || strings.Contains(t, "research"):
		return "Science"
	case strings.Contains(t, "history") || strings.Contains(t, "culture"):
		return "History & Culture"
	default:
		return "Education"
	}
}

// validateTopic trims and bounds the topic, returning a user-facing message
// when invalid.
func validateTopic(topic string) (string, string) {
	trimmed := strings.TrimSpace(topic)
	if len([]rune(trimmed)) < 5 {
		return "", "Topic must be at least 5 characters long"
	}
	if len([]rune(trimmed)) > 500 {
		return "", "Topic must be less than 500 characters"
	}
	return trimmed, ""
}

func metadataString(metadata map[string]interface{}, key string) string {
	if metadata == nil {
		return ""
	}
	s, _ := metadata[key].(string)
	return s
}

// GeneratePodcast creates the record in the generating state and hands it to
// the orchestrator without waiting for the result.
func GeneratePodcast(c *gin.Context) {
	db := c.MustGet("db").(*gorm.DB)
	gen := c.MustGet("generator").(*services.Generator)

	userUUID, err := uuid.Parse(c.GetString("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user_id"})
		return
	}

	var input GeneratePodcastInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	topic, msg := validateTopic(input.Topic)
	if msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	style := normalizeStyle(input.Style)
	voice := input.Voice
	if voice == "" {
		voice = "default"
	}
	speed := input.Speed
	if speed <= 0 {
		speed = 1.0
	}

	title := metadataString(input.Metadata, "title")
	if title == "" {
		title = topic
		if len([]rune(title)) > 50 {
			title = string([]rune(title)[:47]) + "..."
		}
	}
	description := metadataString(input.Metadata, "short_description")
	if description == "" {
		description = "An AI-generated podcast exploring " + topic
	}
	genre := metadataString(input.Metadata, "genre")
	if genre == "" {
		genre = inferGenre(topic)
	}
	author := c.GetString("email")
	if author == "" {
		author = "AI Generated"
	}

	podcast := models.Podcast{
		UserID:      userUUID,
		Topic:       topic,
		Title:       title,
		Description: description,
		Author:      author,
		Thumbnail:   randomThumbnail(),
		Genre:       genre,
		Slug:        slug.Make(title),
		Script:      input.Script,
		Status:      models.StatusGenerating,
		Style:       style,
		Voice:       voice,
		Speed:       speed,
	}
	if err := db.Create(&podcast).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Cannot create podcast"})
		return
	}

	gen.Start(services.GenerationJob{
		PodcastID: podcast.ID,
		UserID:    userUUID,
		Topic:     topic,
		Style:     style,
		Voice:     voice,
		Speed:     speed,
		Script:    input.Script,
	})

	c.JSON(http.StatusCreated, gin.H{
		"id":          podcast.ID,
		"topic":       podcast.Topic,
		"title":       podcast.Title,
		"description": podcast.Description,
		"author":      podcast.Author,
		"thumbnail":   podcast.Thumbnail,
		"genre":       podcast.Genre,
		"status":      podcast.Status,
		"audioUrl":    nil,
		"createdAt":   podcast.CreatedAt,
	})
}

// historyProjection is the public view of a record in list responses.
func historyProjection(p models.Podcast) gin.H {
	duration := p.Duration
	if duration == "" {
		duration = "0:00"
	}
	return gin.H{
		"id":          p.ID,
		"title":       p.Title,
		"description": p.Description,
		"author":      p.Author,
		"thumbnail":   p.Thumbnail,
		"genre":       p.Genre,
		"duration":    duration,
		"topic":       p.Topic,
		"audioUrl":    p.AudioURL,
		"status":      p.Status,
		"plays":       p.Plays,
		"rating":      p.Rating,
		"createdAt":   p.CreatedAt,
	}
}

// GetHistory returns the caller's records, newest first, capped at 50.
func GetHistory(c *gin.Context) {
	db := c.MustGet("db").(*gorm.DB)

	userUUID, err := uuid.Parse(c.GetString("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user_id"})
		return
	}

	var podcasts []models.Podcast
	if err := db.
		Where("user_id = ?", userUUID).
		Order("created_at DESC").
		Limit(50).
		Find(&podcasts).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Cannot load podcasts"})
		return
	}

	projected := make([]gin.H, 0, len(podcasts))
	for _, p := range podcasts {
		projected = append(projected, historyProjection(p))
	}
	c.JSON(http.StatusOK, gin.H{"podcasts": projected})
}

type GenerateScriptInput struct {
	Topic           string `json:"topic"`
	Style           string `json:"style"`
	DurationMinutes int    `json:"duration_minutes"`
	Tone            string `json:"tone"`
}

// GenerateScript invokes script generation synchronously; no record is created.
func GenerateScript(c *gin.Context) {
	gen := c.MustGet("generator").(*services.Generator)

	var input GenerateScriptInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	topic, msg := validateTopic(input.Topic)
	if msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	durationMinutes := input.DurationMinutes
	if durationMinutes <= 0 {
		durationMinutes = 5
	}
	tone := input.Tone
	if tone == "" {
		tone = "professional"
	}

	result, err := gen.Scripts().GenerateScript(c.Request.Context(), services.ScriptRequest{
		Topic:           topic,
		Style:           normalizeStyle(input.Style),
		DurationMinutes: durationMinutes,
		Tone:            tone,
		IncludeIntro:    true,
		IncludeOutro:    true,
	})
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Script generation failed: " + err.Error()})
		return
	}

	metadata := result.Metadata
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	c.JSON(http.StatusOK, gin.H{
		"script":   result.Script,
		"metadata": metadata,
	})
}

// loadOwnedPodcast fetches a record and verifies the caller owns it.
func loadOwnedPodcast(c *gin.Context, db *gorm.DB) (*models.Podcast, bool) {
	podcastID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid podcast id"})
		return nil, false
	}

	var podcast models.Podcast
	if err := db.First(&podcast, "id = ?", podcastID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Podcast not found"})
		return nil, false
	}
	if podcast.UserID.String() != c.GetString("user_id") {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not your podcast"})
		return nil, false
	}
	return &podcast, true
}

// GetPodcast returns the full detail of one owned record.
func GetPodcast(c *gin.Context) {
	db := c.MustGet("db").(*gorm.DB)

	podcast, ok := loadOwnedPodcast(c, db)
	if !ok {
		return
	}

	detail := historyProjection(*podcast)
	detail["script"] = podcast.Script
	detail["style"] = podcast.Style
	detail["voice"] = podcast.Voice
	detail["speed"] = podcast.Speed
	detail["durationSec"] = podcast.DurationSec
	detail["ratingCount"] = podcast.RatingCount
	if podcast.Error != "" {
		detail["error"] = podcast.Error
	}
	c.JSON(http.StatusOK, detail)
}

// IncrementPlays bumps the play counter.
func IncrementPlays(c *gin.Context) {
	db := c.MustGet("db").(*gorm.DB)

	podcast, ok := loadOwnedPodcast(c, db)
	if !ok {
		return
	}

	if err := db.Model(podcast).
		UpdateColumn("plays", gorm.Expr("plays + 1")).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Cannot update plays"})
		return
	}

	// Re-read the counter; the row loaded above may be behind concurrent plays.
	var updated models.Podcast
	if err := db.Select("plays").First(&updated, "id = ?", podcast.ID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Cannot update plays"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"plays": updated.Plays})
}

type RatePodcastInput struct {
	Rating float64 `json:"rating"`
}

// RatePodcast folds a 1-5 rating into the running average.
func RatePodcast(c *gin.Context) {
	db := c.MustGet("db").(*gorm.DB)

	var input RatePodcastInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if input.Rating < 1 || input.Rating > 5 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Rating must be between 1 and 5"})
		return
	}

	podcast, ok := loadOwnedPodcast(c, db)
	if !ok {
		return
	}

	newCount := podcast.RatingCount + 1
	newRating := (podcast.Rating*float64(podcast.RatingCount) + input.Rating) / float64(newCount)
	if err := db.Model(podcast).Updates(map[string]interface{}{
		"rating":       newRating,
		"rating_count": newCount,
	}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Cannot update rating"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"rating":      newRating,
		"ratingCount": newCount,
	})
}

// DeletePodcast removes an owned record and its stored audio object.
func DeletePodcast(c *gin.Context) {
	db := c.MustGet("db").(*gorm.DB)

	podcast, ok := loadOwnedPodcast(c, db)
	if !ok {
		return
	}

	if podcast.AudioURL != "" {
		if err := deleteStoredAudio(podcast.AudioURL); err != nil {
			// The record removal matters more than the orphaned object.
			logDeleteFailure(podcast.ID, err)
		}
	}

	if err := db.Delete(&models.Podcast{}, "id = ?", podcast.ID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Cannot delete podcast"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}
