package model

import "time"

type QuizStatus string

const (
	QuizInProgress QuizStatus = "in_progress"
	QuizCompleted  QuizStatus = "completed"
	QuizAbandoned  QuizStatus = "abandoned"
)

// Terminal reports whether the session may no longer be mutated.
func (s QuizStatus) Terminal() bool {
	return s == QuizCompleted || s == QuizAbandoned
}

// QuizSession score fields stay nil until the session completes; CorrectCount
// and Score are set together with CompletedAt in one transaction.
type QuizSession struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	UserID       uint           `gorm:"not null;index" json:"user_id"`
	Topic        string         `gorm:"size:256;not null" json:"topic"`
	Difficulty   string         `gorm:"size:32;not null" json:"difficulty"`
	Status       QuizStatus     `gorm:"size:16;not null;index" json:"status"`
	CorrectCount *int           `json:"correct_count,omitempty"`
	Score        *float64       `json:"score,omitempty"`
	ShareToken   *string        `gorm:"size:64;uniqueIndex" json:"-"`
	CreatedAt    time.Time      `json:"created_at"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
	Questions    []QuizQuestion `gorm:"foreignKey:QuizID" json:"questions,omitempty"`
}
