package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PodcastStatus tracks a record through the generation lifecycle.
type PodcastStatus string

const (
	StatusGenerating      PodcastStatus = "generating"
	StatusGeneratingAudio PodcastStatus = "generating_audio"
	StatusCompleted       PodcastStatus = "completed"
	StatusFailed          PodcastStatus = "failed"
)

// statusTransitions is the forward-only transition table. Terminal states have
// no outgoing edges; failed is reachable from any non-terminal state.
var statusTransitions = map[PodcastStatus][]PodcastStatus{
	StatusGenerating:      {StatusGeneratingAudio, StatusFailed},
	StatusGeneratingAudio: {StatusCompleted, StatusFailed},
	StatusCompleted:       {},
	StatusFailed:          {},
}

// Terminal reports whether no further transitions can occur from s.
func (s PodcastStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition reports whether moving from s to next is allowed.
func (s PodcastStatus) CanTransition(next PodcastStatus) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Podcast struct {
	ID          uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID     `gorm:"type:uuid;not null;index" json:"user_id"`
	User        User          `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Topic       string        `gorm:"type:text;not null" json:"topic"`
	Title       string        `gorm:"size:255;not null" json:"title"`
	Description string        `gorm:"type:text" json:"description"`
	Author      string        `gorm:"size:150;default:'AI Generated'" json:"author"`
	Thumbnail   string        `gorm:"size:16" json:"thumbnail"`
	Genre       string        `gorm:"size:50;default:'Education'" json:"genre"`
	Slug        string        `gorm:"size:255;index" json:"slug"`
	Script      string        `gorm:"type:text" json:"script"`
	AudioURL    string        `gorm:"type:text" json:"audio_url"`
	Duration    string        `gorm:"size:10" json:"duration"` // "M:SS"
	DurationSec int           `gorm:"default:0" json:"duration_sec"`
	Status      PodcastStatus `gorm:"type:VARCHAR(20);default:'generating'" json:"status"`
	Style       string        `gorm:"type:VARCHAR(20);default:'professional'" json:"style"`
	Voice       string        `gorm:"size:100;default:'default'" json:"voice"`
	Speed       float64       `gorm:"default:1.0" json:"speed"`
	Plays       int           `gorm:"default:0" json:"plays"`
	Rating      float64       `gorm:"default:0" json:"rating"`
	RatingCount int           `gorm:"default:0" json:"rating_count"`
	Error       string        `gorm:"type:text" json:"error,omitempty"`
	CreatedAt   time.Time     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time     `gorm:"autoUpdateTime" json:"updated_at"`
}

// BeforeCreate assigns the record ID when the caller did not.
func (p *Podcast) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// FormatDuration renders seconds as "M:SS" for display, e.g. 125 -> "2:05".
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
