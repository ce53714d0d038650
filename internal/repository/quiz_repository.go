package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"learnhub/internal/model"
)

type QuizRepository struct {
	db *gorm.DB
}

func NewQuizRepository(db *gorm.DB) *QuizRepository {
	return &QuizRepository{db: db}
}

// CreateWithQuestions persists the session and its full question set in one
// transaction; a generation that half-fails leaves no quiz row behind.
func (r *QuizRepository) CreateWithQuestions(session *model.QuizSession, questions []model.QuizQuestion) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(session).Error; err != nil {
			return err
		}
		for i := range questions {
			questions[i].QuizID = session.ID
		}
		if err := tx.Create(&questions).Error; err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: create quiz failed: %v", ErrStorage, err)
	}
	session.Questions = questions
	return nil
}

// GetByID loads the session with its questions ordered by position.
func (r *QuizRepository) GetByID(quizID uint) (*model.QuizSession, error) {
	var session model.QuizSession
	err := r.db.Preload("Questions", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	}).First(&session, quizID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: get quiz failed: %v", ErrStorage, err)
	}
	return &session, nil
}

// ListByUserID returns completed sessions first, newest completion first,
// then the rest by creation time descending. Questions are not loaded.
func (r *QuizRepository) ListByUserID(userID uint) ([]model.QuizSession, error) {
	var sessions []model.QuizSession
	if err := r.db.Where("user_id = ?", userID).
		Order("completed_at IS NULL ASC, completed_at DESC, created_at DESC").
		Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("%w: list quizzes failed: %v", ErrStorage, err)
	}
	return sessions, nil
}

// SaveAnswer updates the selected option and correctness of one question.
func (r *QuizRepository) SaveAnswer(question *model.QuizQuestion) error {
	err := r.db.Model(&model.QuizQuestion{}).
		Where("id = ?", question.ID).
		Updates(map[string]interface{}{
			"selected_index": question.SelectedIndex,
			"is_correct":     question.IsCorrect,
		}).Error
	if err != nil {
		return fmt.Errorf("%w: save answer failed: %v", ErrStorage, err)
	}
	return nil
}

// Finalize flips an in_progress session to completed with its score fields.
// The status guard in the WHERE clause makes the transition first-wins: a
// second finalizer updates zero rows and gets ErrConflict back.
func (r *QuizRepository) Finalize(session *model.QuizSession) error {
	res := r.db.Model(&model.QuizSession{}).
		Where("id = ? AND status = ?", session.ID, model.QuizInProgress).
		Updates(map[string]interface{}{
			"status":        session.Status,
			"correct_count": session.CorrectCount,
			"score":         session.Score,
			"completed_at":  session.CompletedAt,
		})
	if res.Error != nil {
		return fmt.Errorf("%w: finalize quiz failed: %v", ErrStorage, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

// MarkAbandoned moves an in_progress session to the abandoned terminal state.
func (r *QuizRepository) MarkAbandoned(quizID uint) error {
	res := r.db.Model(&model.QuizSession{}).
		Where("id = ? AND status = ?", quizID, model.QuizInProgress).
		Update("status", model.QuizAbandoned)
	if res.Error != nil {
		return fmt.Errorf("%w: abandon quiz failed: %v", ErrStorage, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

func (r *QuizRepository) SetShareToken(quizID uint, token string) error {
	if err := r.db.Model(&model.QuizSession{}).Where("id = ?", quizID).Update("share_token", token).Error; err != nil {
		return fmt.Errorf("%w: set share token failed: %v", ErrStorage, err)
	}
	return nil
}

func (r *QuizRepository) GetByShareToken(token string) (*model.QuizSession, error) {
	var session model.QuizSession
	err := r.db.Preload("Questions", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	}).Where("share_token = ?", token).First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: get quiz by share token failed: %v", ErrStorage, err)
	}
	return &session, nil
}
