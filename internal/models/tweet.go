package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type Tweet struct {
	BaseModel
	AuthorID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"author_id"`
	Author        *Account       `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Content       string         `json:"content"`
	Image         string         `json:"image"`
	Likes         int            `gorm:"not null;default:0" json:"likes"`
	Retweets      int            `gorm:"not null;default:0" json:"retweets"`
	Comments      int            `gorm:"not null;default:0" json:"comments"`
	LikedBy       pq.StringArray `gorm:"type:text[]" json:"liked_by"`
	RetweetedBy   pq.StringArray `gorm:"type:text[]" json:"retweeted_by"`
	IsAudio       bool           `json:"is_audio"`
	AudioURL      string         `json:"audio_url,omitempty"`
	AudioDuration float64        `json:"audio_duration,omitempty"` // seconds
	AudioSize     int64          `json:"audio_size,omitempty"`     // bytes
	PostedAt      time.Time      `gorm:"index" json:"posted_at"`
}
