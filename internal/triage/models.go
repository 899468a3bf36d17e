package triage

import (
	"time"

	"github.com/ewjiang/mindbridge/internal/analysis/risk"
)

// ChatLog is one stored conversation turn. User rows carry the signals the
// pipeline derived for that message; companion rows leave them null.
type ChatLog struct {
	ID                uint64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID            uint64     `gorm:"not null;index:idx_chat_logs_user_created,priority:1" json:"-"`
	Role              string     `gorm:"type:varchar(8);not null" json:"role"`
	Message           string     `gorm:"type:text;not null" json:"message"`
	Emotion           *string    `gorm:"type:varchar(16)" json:"emotion,omitempty"`
	EmotionConfidence *float64   `json:"emotion_confidence,omitempty"`
	SentimentScore    *float64   `json:"sentiment_score,omitempty"`
	SentimentPolarity *string    `gorm:"type:varchar(16)" json:"sentiment_polarity,omitempty"`
	CreatedAt         time.Time  `gorm:"index:idx_chat_logs_user_created,priority:2" json:"created_at"`
}

func (ChatLog) TableName() string { return "chat_logs" }

// RiskScore is one appended entry of a user's risk history, read-only after
// creation.
type RiskScore struct {
	ID             uint64     `gorm:"primaryKey;autoIncrement" json:"-"`
	UserID         uint64     `gorm:"not null;index:idx_risk_scores_user_created,priority:1" json:"user_id"`
	Level          risk.Level `gorm:"type:varchar(8);not null;index" json:"level"`
	Score          float64    `gorm:"not null" json:"score"`
	Factors        []string   `gorm:"serializer:json;type:text" json:"factors"`
	TriggerMessage *string    `gorm:"type:text" json:"trigger_message,omitempty"`
	CreatedAt      time.Time  `gorm:"index:idx_risk_scores_user_created,priority:2" json:"timestamp"`
}

func (RiskScore) TableName() string { return "risk_scores" }

// Alert is the durable record for a HIGH-risk event. Resolution is a one-way
// transition reversed only through an explicit reopen.
type Alert struct {
	ID             string     `gorm:"primaryKey;size:26" json:"id"` // ULID
	UserID         uint64     `gorm:"not null;index" json:"user_id"`
	RiskLevel      risk.Level `gorm:"type:varchar(8);not null" json:"risk_level"`
	TriggerMessage string     `gorm:"type:text;not null" json:"trigger_message"`
	Resolved       bool       `gorm:"not null;default:false;index" json:"resolved"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
	Notes          *string    `gorm:"type:text" json:"notes,omitempty"`
	Notified       bool       `gorm:"not null;default:false" json:"notified"`
	NotifiedAt     *time.Time `json:"notified_at,omitempty"`
	CreatedAt      time.Time  `gorm:"index" json:"created_at"`
}

func (Alert) TableName() string { return "alerts" }

type MoodLog struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      uint64    `gorm:"not null;index:idx_mood_logs_user_created,priority:1" json:"user_id"`
	MoodScore   int       `gorm:"not null" json:"mood_score"`
	StressScore int       `gorm:"not null" json:"stress_score"`
	Notes       *string   `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt   time.Time `gorm:"index:idx_mood_logs_user_created,priority:2" json:"created_at"`
}

func (MoodLog) TableName() string { return "mood_logs" }
