package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/podwave/podwave-backend/models"
)

// StatusUpdate is pushed to connected clients after every status transition.
type StatusUpdate struct {
	PodcastID string `json:"podcast_id"`
	Status    string `json:"status"`
	AudioURL  string `json:"audio_url,omitempty"`
	Error     string `json:"error,omitempty"`
}

// StatusNotifier receives lifecycle updates for a user's podcasts.
type StatusNotifier interface {
	NotifyPodcastStatus(userID string, update StatusUpdate)
}

// GenerationJob carries everything the background generation run needs. The
// record itself has already been created in the generating state by the caller.
type GenerationJob struct {
	PodcastID uuid.UUID
	UserID    uuid.UUID
	Topic     string
	Style     string
	Voice     string
	Speed     float64
	Script    string // pre-supplied script skips the script-generation call
}

// Generator drives one podcast record from creation to a terminal state with
// at most two outbound calls: script generation, then speech synthesis. Each
// run owns exactly one record; runs for different records are independent.
type Generator struct {
	db      *gorm.DB
	scripts ScriptGenerator
	tts     SpeechSynthesizer
	notify  StatusNotifier
	wg      sync.WaitGroup
}

func NewGenerator(db *gorm.DB, scripts ScriptGenerator, tts SpeechSynthesizer, notify StatusNotifier) *Generator {
	return &Generator{db: db, scripts: scripts, tts: tts, notify: notify}
}

// Scripts exposes the script generator for synchronous script-only requests.
func (g *Generator) Scripts() ScriptGenerator {
	return g.scripts
}

// Start launches the generation run on its own goroutine. It never blocks the
// request that triggered it; failures terminate by writing failed state.
func (g *Generator) Start(job GenerationJob) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		g.run(job)
	}()
}

// Wait blocks until all in-flight runs have finished. Used on shutdown and in
// tests.
func (g *Generator) Wait() {
	g.wg.Wait()
}

func (g *Generator) run(job GenerationJob) {
	ctx := context.Background()
	log.Printf("generation started: podcast=%s topic=%q style=%s", job.PodcastID, job.Topic, job.Style)

	script := job.Script

	// Step 1: script generation, skipped when a script was supplied. The
	// generating_audio transition is persisted either way.
	if script == "" {
		result, err := g.scripts.GenerateScript(ctx, ScriptRequest{
			Topic:           job.Topic,
			Style:           job.Style,
			DurationMinutes: 5,
		})
		if err != nil {
			g.fail(job, fmt.Errorf("script generation failed: %w", err))
			return
		}
		script = result.Script
		if script == "" {
			g.fail(job, errors.New("script generation returned an empty script"))
			return
		}
		if err := g.transition(job.PodcastID, models.StatusGeneratingAudio, map[string]interface{}{
			"script": script,
		}); err != nil {
			g.fail(job, err)
			return
		}
	} else {
		if err := g.transition(job.PodcastID, models.StatusGeneratingAudio, nil); err != nil {
			g.fail(job, err)
			return
		}
	}
	g.broadcast(job, models.StatusGeneratingAudio, "", "")

	// Step 2: speech synthesis.
	result, err := g.tts.Synthesize(ctx, TTSRequest{
		Text:  script,
		Voice: job.Voice,
		Speed: job.Speed,
	})
	if err != nil {
		g.fail(job, err)
		return
	}
	if result.AudioURL == "" {
		g.fail(job, errors.New("TTS returned no audio location"))
		return
	}

	durationSec := int(result.Duration)
	if durationSec <= 0 && strings.HasPrefix(result.AudioURL, "http") {
		if measured, err := MP3DurationFromURL(result.AudioURL); err == nil {
			durationSec = int(measured)
		}
	}

	if err := g.transition(job.PodcastID, models.StatusCompleted, map[string]interface{}{
		"script":       script,
		"audio_url":    result.AudioURL,
		"duration":     models.FormatDuration(durationSec),
		"duration_sec": durationSec,
	}); err != nil {
		g.fail(job, err)
		return
	}
	g.broadcast(job, models.StatusCompleted, result.AudioURL, "")

	log.Printf("generation completed: podcast=%s audio=%s duration=%ds", job.PodcastID, result.AudioURL, durationSec)
}

// transition validates the status change against the transition table before
// persisting it alongside any extra field updates.
func (g *Generator) transition(id uuid.UUID, next models.PodcastStatus, updates map[string]interface{}) error {
	var current models.Podcast
	if err := g.db.Select("id", "status").First(&current, "id = ?", id).Error; err != nil {
		return fmt.Errorf("cannot load podcast %s: %w", id, err)
	}
	if !current.Status.CanTransition(next) {
		return fmt.Errorf("illegal status transition %s -> %s for podcast %s", current.Status, next, id)
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["status"] = next
	return g.db.Model(&models.Podcast{}).Where("id = ?", id).Updates(updates).Error
}

// fail is the run's only error channel: it persists failed state and stops.
// There is no caller awaiting the run, so nothing is propagated.
func (g *Generator) fail(job GenerationJob, cause error) {
	log.Printf("generation failed: podcast=%s: %v", job.PodcastID, cause)

	if err := g.transition(job.PodcastID, models.StatusFailed, map[string]interface{}{
		"error": cause.Error(),
	}); err != nil {
		// Record already terminal or unreachable; nothing more to do.
		log.Printf("cannot persist failure for podcast=%s: %v", job.PodcastID, err)
		return
	}
	g.broadcast(job, models.StatusFailed, "", cause.Error())
}

func (g *Generator) broadcast(job GenerationJob, status models.PodcastStatus, audioURL, errMsg string) {
	if g.notify == nil {
		return
	}
	g.notify.NotifyPodcastStatus(job.UserID.String(), StatusUpdate{
		PodcastID: job.PodcastID.String(),
		Status:    string(status),
		AudioURL:  audioURL,
		Error:     errMsg,
	})
}
