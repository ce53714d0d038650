package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"learnhub/internal/ai"
	"learnhub/internal/model"
	"learnhub/internal/repository"
)

const maxQuestionCount = 20

type QuizRepo interface {
	CreateWithQuestions(session *model.QuizSession, questions []model.QuizQuestion) error
	GetByID(quizID uint) (*model.QuizSession, error)
	ListByUserID(userID uint) ([]model.QuizSession, error)
	SaveAnswer(question *model.QuizQuestion) error
	Finalize(session *model.QuizSession) error
	MarkAbandoned(quizID uint) error
	SetShareToken(quizID uint, token string) error
	GetByShareToken(token string) (*model.QuizSession, error)
}

// QuizDefaults come from configuration, not a mutable global.
type QuizDefaults struct {
	QuestionCount int
	Difficulty    string
}

type QuizService struct {
	users     UserDirectory
	quizRepo  QuizRepo
	gateway   ai.Gateway
	publisher EventPublisher
	locks     *keyedMutex
	defaults  QuizDefaults
	logger    *zap.Logger
}

func NewQuizService(
	users UserDirectory,
	quizRepo QuizRepo,
	gateway ai.Gateway,
	publisher EventPublisher,
	defaults QuizDefaults,
	logger *zap.Logger,
) *QuizService {
	if defaults.QuestionCount <= 0 {
		defaults.QuestionCount = 5
	}
	if defaults.Difficulty == "" {
		defaults.Difficulty = "intermediate"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuizService{
		users:     users,
		quizRepo:  quizRepo,
		gateway:   gateway,
		publisher: publisher,
		locks:     newKeyedMutex(),
		defaults:  defaults,
		logger:    logger,
	}
}

type StartQuizInput struct {
	UserID        uint
	Topic         string
	Difficulty    string
	QuestionCount int
}

// StartQuiz generates the question set and persists session plus questions
// in one transaction. A failed or malformed generation leaves no quiz row.
func (s *QuizService) StartQuiz(ctx context.Context, input StartQuizInput) (*model.QuizSession, error) {
	if input.UserID == 0 {
		return nil, ErrInvalidInput
	}
	topic := strings.TrimSpace(input.Topic)
	if topic == "" {
		return nil, fmt.Errorf("%w: topic is empty", ErrInvalidInput)
	}
	count := input.QuestionCount
	if count <= 0 {
		count = s.defaults.QuestionCount
	}
	if count > maxQuestionCount {
		return nil, fmt.Errorf("%w: question count exceeds %d", ErrInvalidInput, maxQuestionCount)
	}
	difficulty := strings.TrimSpace(input.Difficulty)
	if difficulty == "" {
		difficulty = s.defaults.Difficulty
	}

	user, err := s.users.GetByID(input.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserUnknown
	}

	generated, err := s.gateway.GenerateQuiz(ctx, topic, difficulty, count)
	if err != nil {
		// A malformed set is still the generator's failure from the
		// caller's point of view: retryable, nothing persisted.
		if errors.Is(err, ai.ErrMalformed) {
			return nil, fmt.Errorf("%w: %v", ai.ErrUpstream, err)
		}
		return nil, err
	}
	if len(generated) == 0 {
		return nil, fmt.Errorf("%w: generator returned no usable questions", ai.ErrUpstream)
	}

	session := &model.QuizSession{
		UserID:     input.UserID,
		Topic:      topic,
		Difficulty: difficulty,
		Status:     model.QuizInProgress,
		CreatedAt:  time.Now(),
	}
	questions := make([]model.QuizQuestion, len(generated))
	for i, g := range generated {
		questions[i] = model.QuizQuestion{
			Position:     i,
			Prompt:       g.Prompt,
			Options:      model.OptionList(g.Options),
			CorrectIndex: g.CorrectIndex,
			Explanation:  g.Explanation,
		}
	}
	if err := s.quizRepo.CreateWithQuestions(session, questions); err != nil {
		return nil, err
	}

	publishEvent(ctx, s.publisher, s.logger, input.UserID, model.EventQuizStarted, session.ID)
	return session, nil
}

// AnswerQuestion records the selection and derives is_correct from the
// stored correct index. Calls on the same quiz serialize on a per-quiz lock.
func (s *QuizService) AnswerQuestion(ctx context.Context, userID, quizID uint, position, selected int) (*model.QuizQuestion, error) {
	if userID == 0 || quizID == 0 {
		return nil, ErrInvalidInput
	}

	unlock := s.locks.Lock(quizID)
	defer unlock()

	session, err := s.ownedQuiz(quizID, userID)
	if err != nil {
		return nil, err
	}
	if session.Status != model.QuizInProgress {
		return nil, ErrQuizNotInProgress
	}
	if position < 0 || position >= len(session.Questions) {
		return nil, fmt.Errorf("%w: position %d out of range", ErrInvalidInput, position)
	}

	question := &session.Questions[position]
	if selected < 0 || selected >= len(question.Options) {
		return nil, fmt.Errorf("%w: selected option %d out of range", ErrInvalidInput, selected)
	}

	correct := selected == question.CorrectIndex
	question.SelectedIndex = &selected
	question.IsCorrect = &correct
	if err := s.quizRepo.SaveAnswer(question); err != nil {
		return nil, err
	}
	return question, nil
}

// CompleteQuiz finalizes an in_progress session once all questions are
// answered; partially answered sessions are rejected rather than scored
// (giving up is the explicit abandon transition). Exactly one of several
// concurrent calls succeeds.
func (s *QuizService) CompleteQuiz(ctx context.Context, userID, quizID uint) (*model.QuizSession, error) {
	if userID == 0 || quizID == 0 {
		return nil, ErrInvalidInput
	}

	unlock := s.locks.Lock(quizID)
	defer unlock()

	session, err := s.ownedQuiz(quizID, userID)
	if err != nil {
		return nil, err
	}
	if session.Status != model.QuizInProgress {
		return nil, ErrQuizNotInProgress
	}

	correctCount := 0
	for i := range session.Questions {
		q := &session.Questions[i]
		if !q.Answered() {
			return nil, fmt.Errorf("%w: question %d", ErrQuizIncomplete, q.Position)
		}
		if q.IsCorrect != nil && *q.IsCorrect {
			correctCount++
		}
	}

	total := len(session.Questions)
	score := float64(correctCount) / float64(total)
	now := time.Now()

	session.Status = model.QuizCompleted
	session.CorrectCount = &correctCount
	session.Score = &score
	session.CompletedAt = &now
	if err := s.quizRepo.Finalize(session); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrQuizNotInProgress
		}
		return nil, err
	}

	publishEvent(ctx, s.publisher, s.logger, userID, model.EventQuizCompleted, session.ID)
	s.logger.Info("quiz completed",
		zap.Uint("quiz_id", session.ID),
		zap.Int("correct", correctCount),
		zap.Int("total", total),
	)
	return session, nil
}

// AbandonQuiz moves an in_progress session to the abandoned terminal state.
func (s *QuizService) AbandonQuiz(ctx context.Context, userID, quizID uint) error {
	if userID == 0 || quizID == 0 {
		return ErrInvalidInput
	}

	unlock := s.locks.Lock(quizID)
	defer unlock()

	session, err := s.ownedQuiz(quizID, userID)
	if err != nil {
		return err
	}
	if session.Status != model.QuizInProgress {
		return ErrQuizNotInProgress
	}
	if err := s.quizRepo.MarkAbandoned(quizID); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return ErrQuizNotInProgress
		}
		return err
	}
	return nil
}

// GetQuiz returns the session with questions, restricted to the owner or an
// admin caller.
func (s *QuizService) GetQuiz(ctx context.Context, userID uint, role model.Role, quizID uint) (*model.QuizSession, error) {
	if userID == 0 || quizID == 0 {
		return nil, ErrInvalidInput
	}
	session, err := s.quizRepo.GetByID(quizID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrQuizNotFound
	}
	if session.UserID != userID && role != model.RoleAdmin {
		return nil, ErrNotOwner
	}
	return session, nil
}

// ListHistory returns completed sessions first (newest completion first),
// then the remainder by creation time descending.
func (s *QuizService) ListHistory(userID uint) ([]model.QuizSession, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}
	return s.quizRepo.ListByUserID(userID)
}

func (s *QuizService) ownedQuiz(quizID, userID uint) (*model.QuizSession, error) {
	session, err := s.quizRepo.GetByID(quizID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrQuizNotFound
	}
	if session.UserID != userID {
		return nil, ErrNotOwner
	}
	return session, nil
}
