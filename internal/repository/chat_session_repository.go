package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"learnhub/internal/model"
)

type ChatSessionRepository struct {
	db *gorm.DB
}

func NewChatSessionRepository(db *gorm.DB) *ChatSessionRepository {
	return &ChatSessionRepository{db: db}
}

func (r *ChatSessionRepository) Create(session *model.ChatSession) error {
	if err := r.db.Create(session).Error; err != nil {
		return fmt.Errorf("%w: create chat session failed: %v", ErrStorage, err)
	}
	return nil
}

// GetByID returns the session regardless of owner so the caller can tell
// a missing session apart from an ownership violation.
func (r *ChatSessionRepository) GetByID(sessionID uint) (*model.ChatSession, error) {
	var session model.ChatSession
	if err := r.db.First(&session, sessionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: get chat session failed: %v", ErrStorage, err)
	}
	return &session, nil
}

// ListByUserID orders by most recently active first.
func (r *ChatSessionRepository) ListByUserID(userID uint) ([]model.ChatSession, error) {
	var sessions []model.ChatSession
	if err := r.db.Where("user_id = ?", userID).Order("updated_at DESC").Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("%w: list chat sessions failed: %v", ErrStorage, err)
	}
	return sessions, nil
}

func (r *ChatSessionRepository) UpdateTitle(sessionID uint, title string) error {
	if err := r.db.Model(&model.ChatSession{}).Where("id = ?", sessionID).Update("title", title).Error; err != nil {
		return fmt.Errorf("%w: update chat session title failed: %v", ErrStorage, err)
	}
	return nil
}

// Touch bumps updated_at so the session surfaces first in listings.
func (r *ChatSessionRepository) Touch(sessionID uint, at time.Time) error {
	if err := r.db.Model(&model.ChatSession{}).Where("id = ?", sessionID).Update("updated_at", at).Error; err != nil {
		return fmt.Errorf("%w: touch chat session failed: %v", ErrStorage, err)
	}
	return nil
}
