package model

import "time"

type EventKind string

const (
	EventChatMessage   EventKind = "chat_message"
	EventQuizStarted   EventKind = "quiz_started"
	EventQuizCompleted EventKind = "quiz_completed"
)

// UsageEvent is activity telemetry persisted asynchronously; it never
// carries state the stores depend on.
type UsageEvent struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Kind      EventKind `gorm:"size:32;not null;index" json:"kind"`
	RefID     uint      `json:"ref_id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}
