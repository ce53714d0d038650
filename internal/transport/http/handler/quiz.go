package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"learnhub/internal/app"
	"learnhub/internal/model"
	"learnhub/internal/transport/http/response"
)

type QuizHandler struct {
	quizService  *app.QuizService
	statsService *app.StatsService
}

type StartQuizRequest struct {
	Topic         string `json:"topic" binding:"required,max=256"`
	Difficulty    string `json:"difficulty" binding:"max=32"`
	QuestionCount int    `json:"question_count" binding:"min=0,max=20"`
}

type AnswerRequest struct {
	Position      int `json:"position"`
	SelectedIndex int `json:"selected_index"`
}

func NewQuizHandler(quizService *app.QuizService, statsService *app.StatsService) *QuizHandler {
	return &QuizHandler{quizService: quizService, statsService: statsService}
}

func (h *QuizHandler) Start(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	var req StartQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	session, err := h.quizService.StartQuiz(c.Request.Context(), app.StartQuizInput{
		UserID:        userID,
		Topic:         req.Topic,
		Difficulty:    req.Difficulty,
		QuestionCount: req.QuestionCount,
	})
	if err != nil {
		respondError(c, err, "start quiz failed")
		return
	}
	response.Created(c, quizView(session))
}

func (h *QuizHandler) Answer(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}
	quizID, ok := parseUintParam(c, "id")
	if !ok {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid quiz id")
		return
	}

	var req AnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	question, err := h.quizService.AnswerQuestion(c.Request.Context(), userID, quizID, req.Position, req.SelectedIndex)
	if err != nil {
		respondError(c, err, "answer failed")
		return
	}
	response.OK(c, gin.H{
		"position":       question.Position,
		"selected_index": question.SelectedIndex,
		"is_correct":     question.IsCorrect,
	})
}

func (h *QuizHandler) Complete(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}
	quizID, ok := parseUintParam(c, "id")
	if !ok {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid quiz id")
		return
	}

	session, err := h.quizService.CompleteQuiz(c.Request.Context(), userID, quizID)
	if err != nil {
		respondError(c, err, "complete quiz failed")
		return
	}
	response.OK(c, quizView(session))
}

func (h *QuizHandler) Abandon(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}
	quizID, ok := parseUintParam(c, "id")
	if !ok {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid quiz id")
		return
	}

	if err := h.quizService.AbandonQuiz(c.Request.Context(), userID, quizID); err != nil {
		respondError(c, err, "abandon quiz failed")
		return
	}
	response.OK(c, gin.H{"id": quizID, "status": model.QuizAbandoned})
}

func (h *QuizHandler) Get(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}
	quizID, ok := parseUintParam(c, "id")
	if !ok {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid quiz id")
		return
	}

	session, err := h.quizService.GetQuiz(c.Request.Context(), userID, getRoleFromContext(c), quizID)
	if err != nil {
		respondError(c, err, "get quiz failed")
		return
	}
	response.OK(c, quizView(session))
}

func (h *QuizHandler) ListHistory(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	sessions, err := h.quizService.ListHistory(userID)
	if err != nil {
		respondError(c, err, "list history failed")
		return
	}
	views := make([]gin.H, 0, len(sessions))
	for i := range sessions {
		views = append(views, quizSummaryView(&sessions[i]))
	}
	response.OK(c, views)
}

func (h *QuizHandler) Share(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}
	quizID, ok := parseUintParam(c, "id")
	if !ok {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid quiz id")
		return
	}

	token, err := h.statsService.ShareTokenFor(c.Request.Context(), userID, getRoleFromContext(c), quizID)
	if err != nil {
		respondError(c, err, "share quiz failed")
		return
	}
	response.OK(c, gin.H{"share_token": token})
}

// Shared resolves a share token without authentication. Only completed
// sessions are reachable through it.
func (h *QuizHandler) Shared(c *gin.Context) {
	token := c.Param("token")

	session, err := h.statsService.ResolveShareToken(c.Request.Context(), token)
	if err != nil {
		respondError(c, err, "resolve share token failed")
		return
	}
	response.OK(c, quizView(session))
}

// quizView hides correct answers and explanations while the session is still
// in progress, and reveals them once the session reaches a terminal status.
func quizView(session *model.QuizSession) gin.H {
	questions := make([]gin.H, 0, len(session.Questions))
	for i := range session.Questions {
		questions = append(questions, questionView(&session.Questions[i], session.Status.Terminal()))
	}
	view := quizSummaryView(session)
	view["question_count"] = len(questions)
	view["questions"] = questions
	return view
}

// quizSummaryView omits questions; history listings do not load them.
func quizSummaryView(session *model.QuizSession) gin.H {
	view := gin.H{
		"id":         session.ID,
		"user_id":    session.UserID,
		"topic":      session.Topic,
		"difficulty": session.Difficulty,
		"status":     session.Status,
		"created_at": session.CreatedAt,
	}
	if session.CorrectCount != nil {
		view["correct_count"] = *session.CorrectCount
	}
	if session.Score != nil {
		view["score"] = *session.Score
	}
	if session.CompletedAt != nil {
		view["completed_at"] = *session.CompletedAt
	}
	return view
}

func questionView(q *model.QuizQuestion, revealAnswers bool) gin.H {
	view := gin.H{
		"position": q.Position,
		"prompt":   q.Prompt,
		"options":  q.Options,
	}
	if q.SelectedIndex != nil {
		view["selected_index"] = *q.SelectedIndex
		view["is_correct"] = q.IsCorrect
	}
	if revealAnswers {
		view["correct_index"] = q.CorrectIndex
		if q.Explanation != "" {
			view["explanation"] = q.Explanation
		}
	}
	return view
}
