package repository

import (
	"fmt"

	"gorm.io/gorm"

	"learnhub/internal/model"
)

type ChatMessageRepository struct {
	db *gorm.DB
}

func NewChatMessageRepository(db *gorm.DB) *ChatMessageRepository {
	return &ChatMessageRepository{db: db}
}

func (r *ChatMessageRepository) Create(message *model.ChatMessage) error {
	if err := r.db.Create(message).Error; err != nil {
		return fmt.Errorf("%w: create chat message failed: %v", ErrStorage, err)
	}
	return nil
}

// ListBySessionID returns the ordered log, oldest first. The id tiebreak
// keeps ordering stable when two messages share a timestamp.
func (r *ChatMessageRepository) ListBySessionID(sessionID uint, limit int) ([]model.ChatMessage, error) {
	if limit <= 0 || limit > 500 {
		limit = 200
	}

	var messages []model.ChatMessage
	if err := r.db.Where("session_id = ?", sessionID).
		Order("created_at ASC, id ASC").
		Limit(limit).
		Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("%w: list chat messages failed: %v", ErrStorage, err)
	}
	return messages, nil
}

// ListRecentBySessionID returns the newest n messages in chronological order,
// used for prompt context.
func (r *ChatMessageRepository) ListRecentBySessionID(sessionID uint, n int) ([]model.ChatMessage, error) {
	if n <= 0 {
		return nil, nil
	}

	var messages []model.ChatMessage
	if err := r.db.Where("session_id = ?", sessionID).
		Order("created_at DESC, id DESC").
		Limit(n).
		Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("%w: list recent chat messages failed: %v", ErrStorage, err)
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (r *ChatMessageRepository) CountBySessionID(sessionID uint) (int64, error) {
	var count int64
	if err := r.db.Model(&model.ChatMessage{}).Where("session_id = ?", sessionID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("%w: count chat messages failed: %v", ErrStorage, err)
	}
	return count, nil
}
