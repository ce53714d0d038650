package app

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"learnhub/internal/ai"
	"learnhub/internal/model"
	"learnhub/internal/pkg/pdfextract"
)

const maxMaterialBytes = 16 << 10 // keeps extracted PDFs prompt-sized

// UserDirectory resolves identity references. Users are owned by the auth
// collaborator; the stores only ever read them.
type UserDirectory interface {
	GetByID(id uint) (*model.User, error)
}

type ChatSessionRepo interface {
	Create(session *model.ChatSession) error
	GetByID(sessionID uint) (*model.ChatSession, error)
	ListByUserID(userID uint) ([]model.ChatSession, error)
	UpdateTitle(sessionID uint, title string) error
	Touch(sessionID uint, at time.Time) error
}

type ChatMessageRepo interface {
	Create(message *model.ChatMessage) error
	ListBySessionID(sessionID uint, limit int) ([]model.ChatMessage, error)
	ListRecentBySessionID(sessionID uint, n int) ([]model.ChatMessage, error)
	CountBySessionID(sessionID uint) (int64, error)
}

// EventPublisher hands usage events to the async persistence pipeline.
// Publishing is best-effort; failures never fail the user request.
type EventPublisher interface {
	Publish(ctx context.Context, event model.UsageEvent) error
}

type HistoryCache interface {
	GetHistory(ctx context.Context, sessionID uint) ([]model.ChatMessage, bool, error)
	SetHistory(ctx context.Context, sessionID uint, messages []model.ChatMessage) error
	DeleteHistory(ctx context.Context, sessionID uint) error
	MarkDirty(ctx context.Context, sessionID uint) error
	IsDirty(ctx context.Context, sessionID uint) (bool, error)
}

type ChatService struct {
	users        UserDirectory
	sessionRepo  ChatSessionRepo
	messageRepo  ChatMessageRepo
	gateway      ai.Gateway
	publisher    EventPublisher
	historyCache HistoryCache
	locks        *keyedMutex
	maxContext   int
	logger       *zap.Logger
}

func NewChatService(
	users UserDirectory,
	sessionRepo ChatSessionRepo,
	messageRepo ChatMessageRepo,
	gateway ai.Gateway,
	publisher EventPublisher,
	historyCache HistoryCache,
	maxContext int,
	logger *zap.Logger,
) *ChatService {
	if maxContext <= 0 {
		maxContext = 20
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatService{
		users:        users,
		sessionRepo:  sessionRepo,
		messageRepo:  messageRepo,
		gateway:      gateway,
		publisher:    publisher,
		historyCache: historyCache,
		locks:        newKeyedMutex(),
		maxContext:   maxContext,
		logger:       logger,
	}
}

type CreateChatSessionInput struct {
	UserID uint
	Title  string
}

func (s *ChatService) CreateSession(ctx context.Context, input CreateChatSessionInput) (*model.ChatSession, error) {
	if input.UserID == 0 {
		return nil, ErrInvalidInput
	}
	user, err := s.users.GetByID(input.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserUnknown
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		title = model.DefaultChatTitle
	}

	session := &model.ChatSession{UserID: input.UserID, Title: title}
	if err := s.sessionRepo.Create(session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *ChatService) ListSessions(userID uint) ([]model.ChatSession, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}
	return s.sessionRepo.ListByUserID(userID)
}

type PostMessageInput struct {
	UserID    uint
	SessionID uint
	Content   string
}

type PostMessageResult struct {
	UserMessage      *model.ChatMessage `json:"user_message"`
	AssistantMessage *model.ChatMessage `json:"assistant_message,omitempty"`
}

// PostMessage appends the user turn, asks the responder for a reply with the
// prior transcript as context, and appends the assistant turn. If the
// gateway fails, the already-committed user message is returned together
// with the error so no input is lost.
func (s *ChatService) PostMessage(ctx context.Context, input PostMessageInput) (*PostMessageResult, error) {
	if input.UserID == 0 || input.SessionID == 0 {
		return nil, ErrInvalidInput
	}
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, fmt.Errorf("%w: message content is empty", ErrInvalidInput)
	}

	session, err := s.authorizeSession(input.SessionID, input.UserID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(session.ID)
	defer unlock()

	promptTurns, err := s.buildPromptTurns(session.ID, content)
	if err != nil {
		return nil, err
	}

	priorCount, err := s.messageRepo.CountBySessionID(session.ID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	userMessage := &model.ChatMessage{
		SessionID: session.ID,
		UserID:    input.UserID,
		Role:      model.ChatRoleUser,
		Content:   content,
		CreatedAt: now,
	}

	s.invalidateHistory(ctx, session.ID)
	if err := s.messageRepo.Create(userMessage); err != nil {
		return nil, err
	}
	if err := s.sessionRepo.Touch(session.ID, now); err != nil {
		return nil, err
	}
	if priorCount == 0 && session.Title == model.DefaultChatTitle {
		if err := s.sessionRepo.UpdateTitle(session.ID, deriveTitle(content)); err != nil {
			s.logger.Warn("auto-title failed", zap.Uint("session_id", session.ID), zap.Error(err))
		}
	}

	reply, err := s.gateway.GenerateReply(ctx, promptTurns)
	if err != nil {
		s.logger.Warn("assistant turn failed",
			zap.Uint("session_id", session.ID),
			zap.Error(err),
		)
		// The user message stays committed; the caller is told the
		// assistant turn failed.
		return &PostMessageResult{UserMessage: userMessage}, err
	}

	assistantMessage := &model.ChatMessage{
		SessionID: session.ID,
		UserID:    input.UserID,
		Role:      model.ChatRoleAssistant,
		Content:   strings.TrimSpace(reply),
		CreatedAt: time.Now(),
	}
	if err := s.messageRepo.Create(assistantMessage); err != nil {
		return &PostMessageResult{UserMessage: userMessage}, err
	}
	s.invalidateHistory(ctx, session.ID)
	publishEvent(ctx, s.publisher, s.logger, input.UserID, model.EventChatMessage, session.ID)

	return &PostMessageResult{
		UserMessage:      userMessage,
		AssistantMessage: assistantMessage,
	}, nil
}

func (s *ChatService) GetHistory(ctx context.Context, userID, sessionID uint, limit int) ([]model.ChatMessage, error) {
	if userID == 0 || sessionID == 0 {
		return nil, ErrInvalidInput
	}
	if _, err := s.authorizeSession(sessionID, userID); err != nil {
		return nil, err
	}

	if s.historyCache != nil {
		dirty, err := s.historyCache.IsDirty(ctx, sessionID)
		if err == nil && !dirty {
			if cached, hit, cacheErr := s.historyCache.GetHistory(ctx, sessionID); cacheErr == nil && hit {
				return trimMessages(cached, limit), nil
			}
		}
	}

	messages, err := s.messageRepo.ListBySessionID(sessionID, limit)
	if err != nil {
		return nil, err
	}
	if s.historyCache != nil {
		if dirty, dirtyErr := s.historyCache.IsDirty(ctx, sessionID); dirtyErr == nil && !dirty {
			if err := s.historyCache.SetHistory(ctx, sessionID, messages); err != nil {
				s.logger.Debug("history cache set failed", zap.Error(err))
			}
		}
	}
	return messages, nil
}

// AttachMaterial extracts text from an uploaded PDF and appends it as a user
// message so later replies can use it as context.
func (s *ChatService) AttachMaterial(ctx context.Context, userID, sessionID uint, filename string, r io.Reader) (*model.ChatMessage, error) {
	if userID == 0 || sessionID == 0 {
		return nil, ErrInvalidInput
	}
	session, err := s.authorizeSession(sessionID, userID)
	if err != nil {
		return nil, err
	}

	text, err := pdfextract.Text(r, maxMaterialBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: unreadable pdf: %v", ErrInvalidInput, err)
	}
	if text == "" {
		return nil, fmt.Errorf("%w: pdf contains no extractable text", ErrInvalidInput)
	}

	unlock := s.locks.Lock(session.ID)
	defer unlock()

	now := time.Now()
	message := &model.ChatMessage{
		SessionID: session.ID,
		UserID:    userID,
		Role:      model.ChatRoleUser,
		Content:   fmt.Sprintf("Study material (%s):\n\n%s", strings.TrimSpace(filename), text),
		CreatedAt: now,
	}
	s.invalidateHistory(ctx, session.ID)
	if err := s.messageRepo.Create(message); err != nil {
		return nil, err
	}
	if err := s.sessionRepo.Touch(session.ID, now); err != nil {
		return nil, err
	}
	return message, nil
}

// authorizeSession distinguishes a missing session from one owned by
// somebody else.
func (s *ChatService) authorizeSession(sessionID, userID uint) (*model.ChatSession, error) {
	session, err := s.sessionRepo.GetByID(sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	if session.UserID != userID {
		return nil, ErrNotOwner
	}
	return session, nil
}

func (s *ChatService) buildPromptTurns(sessionID uint, currentInput string) ([]ai.Turn, error) {
	recent, err := s.messageRepo.ListRecentBySessionID(sessionID, s.maxContext)
	if err != nil {
		return nil, err
	}

	turns := make([]ai.Turn, 0, len(recent)+1)
	for _, item := range recent {
		role := item.Role
		if role == "" {
			role = model.ChatRoleUser
		}
		turns = append(turns, ai.Turn{Role: role, Content: item.Content})
	}
	turns = append(turns, ai.Turn{Role: model.ChatRoleUser, Content: currentInput})
	return turns, nil
}

func (s *ChatService) invalidateHistory(ctx context.Context, sessionID uint) {
	if s.historyCache == nil {
		return
	}
	if err := s.historyCache.MarkDirty(ctx, sessionID); err != nil {
		s.logger.Debug("history dirty marker failed", zap.Error(err))
	}
	if err := s.historyCache.DeleteHistory(ctx, sessionID); err != nil {
		s.logger.Debug("history cache delete failed", zap.Error(err))
	}
}

func deriveTitle(content string) string {
	runes := []rune(content)
	if len(runes) <= 50 {
		return content
	}
	return string(runes[:50]) + "..."
}

func trimMessages(messages []model.ChatMessage, limit int) []model.ChatMessage {
	if limit <= 0 || limit >= len(messages) {
		return messages
	}
	return messages[len(messages)-limit:]
}
