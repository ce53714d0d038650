package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"learnhub/internal/ai"
	"learnhub/internal/model"
)

func newQuizFixture(gateway ai.Gateway) (*QuizService, *fakeUserStore, *fakeQuizRepo, *fakePublisher) {
	users := newFakeUserStore()
	quizzes := newFakeQuizRepo()
	publisher := &fakePublisher{}
	svc := NewQuizService(users, quizzes, gateway, publisher, QuizDefaults{QuestionCount: 5, Difficulty: "intermediate"}, nil)
	return svc, users, quizzes, publisher
}

func startQuiz(t *testing.T, svc *QuizService, userID uint, count int) *model.QuizSession {
	t.Helper()
	session, err := svc.StartQuiz(context.Background(), StartQuizInput{
		UserID:        userID,
		Topic:         "concurrency",
		QuestionCount: count,
	})
	require.NoError(t, err)
	return session
}

func TestStartQuizPersistsRequestedCount(t *testing.T) {
	gateway := &scriptedGateway{questions: generatedQuestions(10)}
	svc, users, quizzes, publisher := newQuizFixture(gateway)
	user := users.addUser("alice")

	session := startQuiz(t, svc, user.ID, 3)
	assert.Equal(t, model.QuizInProgress, session.Status)
	assert.Equal(t, "intermediate", session.Difficulty)
	require.Len(t, session.Questions, 3)
	for i, q := range session.Questions {
		assert.Equal(t, i, q.Position)
		assert.False(t, q.Answered())
	}

	stored, err := quizzes.GetByID(session.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Len(t, stored.Questions, 3)
	assert.Equal(t, []model.EventKind{model.EventQuizStarted}, publisher.kinds())
}

func TestStartQuizDefaultCount(t *testing.T) {
	gateway := &scriptedGateway{questions: generatedQuestions(10)}
	svc, users, _, _ := newQuizFixture(gateway)
	user := users.addUser("alice")

	session := startQuiz(t, svc, user.ID, 0)
	assert.Len(t, session.Questions, 5)
}

func TestStartQuizGeneratorFailureLeavesNoRow(t *testing.T) {
	gateway := &scriptedGateway{quizErr: ai.ErrUpstream}
	svc, users, quizzes, publisher := newQuizFixture(gateway)
	user := users.addUser("alice")

	_, err := svc.StartQuiz(context.Background(), StartQuizInput{UserID: user.ID, Topic: "go"})
	require.ErrorIs(t, err, ai.ErrUpstream)
	assert.Empty(t, quizzes.sessions)
	assert.Empty(t, publisher.events)
}

func TestStartQuizMalformedSetIsRetryable(t *testing.T) {
	gateway := &scriptedGateway{quizErr: ai.ErrMalformed}
	svc, users, quizzes, _ := newQuizFixture(gateway)
	user := users.addUser("alice")

	_, err := svc.StartQuiz(context.Background(), StartQuizInput{UserID: user.ID, Topic: "go"})
	assert.ErrorIs(t, err, ai.ErrUpstream)
	assert.Empty(t, quizzes.sessions)
}

func TestStartQuizValidation(t *testing.T) {
	gateway := &scriptedGateway{questions: generatedQuestions(1)}
	svc, users, _, _ := newQuizFixture(gateway)
	user := users.addUser("alice")

	_, err := svc.StartQuiz(context.Background(), StartQuizInput{UserID: user.ID, Topic: "  "})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.StartQuiz(context.Background(), StartQuizInput{UserID: user.ID, Topic: "go", QuestionCount: 21})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.StartQuiz(context.Background(), StartQuizInput{UserID: 99, Topic: "go"})
	assert.ErrorIs(t, err, ErrUserUnknown)
}

func TestAnswerQuestionDerivesCorrectness(t *testing.T) {
	gateway := &scriptedGateway{questions: generatedQuestions(3)}
	svc, users, _, _ := newQuizFixture(gateway)
	user := users.addUser("alice")
	session := startQuiz(t, svc, user.ID, 3)

	// Question 0 has correct index 0; question 1 has correct index 1.
	q0, err := svc.AnswerQuestion(context.Background(), user.ID, session.ID, 0, 0)
	require.NoError(t, err)
	require.NotNil(t, q0.IsCorrect)
	assert.True(t, *q0.IsCorrect)

	q1, err := svc.AnswerQuestion(context.Background(), user.ID, session.ID, 1, 3)
	require.NoError(t, err)
	require.NotNil(t, q1.IsCorrect)
	assert.False(t, *q1.IsCorrect)
}

func TestAnswerQuestionReSelectionOverwrites(t *testing.T) {
	gateway := &scriptedGateway{questions: generatedQuestions(1)}
	svc, users, quizzes, _ := newQuizFixture(gateway)
	user := users.addUser("alice")
	session := startQuiz(t, svc, user.ID, 1)

	_, err := svc.AnswerQuestion(context.Background(), user.ID, session.ID, 0, 2)
	require.NoError(t, err)
	_, err = svc.AnswerQuestion(context.Background(), user.ID, session.ID, 0, 0)
	require.NoError(t, err)

	stored, err := quizzes.GetByID(session.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Questions[0].SelectedIndex)
	assert.Equal(t, 0, *stored.Questions[0].SelectedIndex)
	assert.True(t, *stored.Questions[0].IsCorrect)
}

func TestAnswerQuestionRangeChecks(t *testing.T) {
	gateway := &scriptedGateway{questions: generatedQuestions(2)}
	svc, users, _, _ := newQuizFixture(gateway)
	user := users.addUser("alice")
	session := startQuiz(t, svc, user.ID, 2)

	_, err := svc.AnswerQuestion(context.Background(), user.ID, session.ID, 5, 0)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.AnswerQuestion(context.Background(), user.ID, session.ID, 0, 4)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.AnswerQuestion(context.Background(), user.ID, session.ID, 0, -1)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAnswerQuestionOwnershipAndExistence(t *testing.T) {
	gateway := &scriptedGateway{questions: generatedQuestions(1)}
	svc, users, _, _ := newQuizFixture(gateway)
	owner := users.addUser("alice")
	intruder := users.addUser("bob")
	session := startQuiz(t, svc, owner.ID, 1)

	_, err := svc.AnswerQuestion(context.Background(), intruder.ID, session.ID, 0, 0)
	assert.ErrorIs(t, err, ErrNotOwner)

	_, err = svc.AnswerQuestion(context.Background(), owner.ID, 999, 0, 0)
	assert.ErrorIs(t, err, ErrQuizNotFound)
}

func TestCompleteQuizScores(t *testing.T) {
	gateway := &scriptedGateway{questions: generatedQuestions(3)}
	svc, users, _, publisher := newQuizFixture(gateway)
	user := users.addUser("alice")
	session := startQuiz(t, svc, user.ID, 3)

	// Two correct (positions 0 and 1), one wrong.
	for position, selected := range map[int]int{0: 0, 1: 1, 2: 0} {
		_, err := svc.AnswerQuestion(context.Background(), user.ID, session.ID, position, selected)
		require.NoError(t, err)
	}

	completed, err := svc.CompleteQuiz(context.Background(), user.ID, session.ID)
	require.NoError(t, err)
	assert.Equal(t, model.QuizCompleted, completed.Status)
	require.NotNil(t, completed.CorrectCount)
	assert.Equal(t, 2, *completed.CorrectCount)
	require.NotNil(t, completed.Score)
	assert.InDelta(t, 2.0/3.0, *completed.Score, 1e-9)
	require.NotNil(t, completed.CompletedAt)

	assert.Contains(t, publisher.kinds(), model.EventQuizCompleted)
}

func TestCompleteQuizRejectsUnanswered(t *testing.T) {
	gateway := &scriptedGateway{questions: generatedQuestions(2)}
	svc, users, quizzes, _ := newQuizFixture(gateway)
	user := users.addUser("alice")
	session := startQuiz(t, svc, user.ID, 2)

	_, err := svc.AnswerQuestion(context.Background(), user.ID, session.ID, 0, 0)
	require.NoError(t, err)

	_, err = svc.CompleteQuiz(context.Background(), user.ID, session.ID)
	assert.ErrorIs(t, err, ErrQuizIncomplete)

	stored, getErr := quizzes.GetByID(session.ID)
	require.NoError(t, getErr)
	assert.Equal(t, model.QuizInProgress, stored.Status)
}

func TestCompleteQuizTwiceRejected(t *testing.T) {
	gateway := &scriptedGateway{questions: generatedQuestions(1)}
	svc, users, _, _ := newQuizFixture(gateway)
	user := users.addUser("alice")
	session := startQuiz(t, svc, user.ID, 1)

	_, err := svc.AnswerQuestion(context.Background(), user.ID, session.ID, 0, 0)
	require.NoError(t, err)
	_, err = svc.CompleteQuiz(context.Background(), user.ID, session.ID)
	require.NoError(t, err)

	_, err = svc.CompleteQuiz(context.Background(), user.ID, session.ID)
	assert.ErrorIs(t, err, ErrQuizNotInProgress)
}

func TestAbandonQuizIsTerminal(t *testing.T) {
	gateway := &scriptedGateway{questions: generatedQuestions(1)}
	svc, users, quizzes, _ := newQuizFixture(gateway)
	user := users.addUser("alice")
	session := startQuiz(t, svc, user.ID, 1)

	require.NoError(t, svc.AbandonQuiz(context.Background(), user.ID, session.ID))

	stored, err := quizzes.GetByID(session.ID)
	require.NoError(t, err)
	assert.Equal(t, model.QuizAbandoned, stored.Status)
	assert.Nil(t, stored.Score)

	_, err = svc.AnswerQuestion(context.Background(), user.ID, session.ID, 0, 0)
	assert.ErrorIs(t, err, ErrQuizNotInProgress)
	_, err = svc.CompleteQuiz(context.Background(), user.ID, session.ID)
	assert.ErrorIs(t, err, ErrQuizNotInProgress)
	assert.ErrorIs(t, svc.AbandonQuiz(context.Background(), user.ID, session.ID), ErrQuizNotInProgress)
}

func TestGetQuizAdminOverride(t *testing.T) {
	gateway := &scriptedGateway{questions: generatedQuestions(1)}
	svc, users, _, _ := newQuizFixture(gateway)
	owner := users.addUser("alice")
	admin := users.addUser("root")
	session := startQuiz(t, svc, owner.ID, 1)

	_, err := svc.GetQuiz(context.Background(), admin.ID, model.RoleStandard, session.ID)
	assert.ErrorIs(t, err, ErrNotOwner)

	got, err := svc.GetQuiz(context.Background(), admin.ID, model.RoleAdmin, session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, got.ID)
}

func TestListHistoryOrdering(t *testing.T) {
	gateway := &scriptedGateway{questions: generatedQuestions(1)}
	svc, users, _, _ := newQuizFixture(gateway)
	user := users.addUser("alice")

	first := startQuiz(t, svc, user.ID, 1)
	second := startQuiz(t, svc, user.ID, 1)
	third := startQuiz(t, svc, user.ID, 1)

	// Complete the first session only; it should lead the history.
	_, err := svc.AnswerQuestion(context.Background(), user.ID, first.ID, 0, 0)
	require.NoError(t, err)
	_, err = svc.CompleteQuiz(context.Background(), user.ID, first.ID)
	require.NoError(t, err)

	history, err := svc.ListHistory(user.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, first.ID, history[0].ID)
	assert.Equal(t, model.QuizCompleted, history[0].Status)
	// Remaining in-progress sessions are newest-created first.
	assert.Equal(t, third.ID, history[1].ID)
	assert.Equal(t, second.ID, history[2].ID)
}
