package app

import (
	"context"
	"errors"
	"sort"
	"time"

	"learnhub/internal/ai"
	"learnhub/internal/model"
	"learnhub/internal/repository"
)

// In-memory collaborators for service tests. They keep the same not-found
// and conflict semantics as the gorm-backed repositories.

type fakeUserStore struct {
	nextID uint
	users  map[uint]*model.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[uint]*model.User{}}
}

func (f *fakeUserStore) Create(user *model.User) error {
	f.nextID++
	user.ID = f.nextID
	cp := *user
	f.users[user.ID] = &cp
	return nil
}

func (f *fakeUserStore) GetByID(id uint) (*model.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, nil
	}
	cp := *user
	return &cp, nil
}

func (f *fakeUserStore) GetByUsername(username string) (*model.User, error) {
	for _, user := range f.users {
		if user.Username == username {
			cp := *user
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeUserStore) GetByEmail(email string) (*model.User, error) {
	for _, user := range f.users {
		if user.Email == email {
			cp := *user
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeUserStore) UpdateRole(userID uint, role model.Role) error {
	user, ok := f.users[userID]
	if !ok {
		return nil
	}
	user.Role = role
	return nil
}

func (f *fakeUserStore) addUser(username string) *model.User {
	user := &model.User{Username: username, Email: username + "@example.com", DisplayName: username, Role: model.RoleStandard}
	_ = f.Create(user)
	return user
}

type fakeChatSessions struct {
	nextID   uint
	sessions map[uint]*model.ChatSession
}

func newFakeChatSessions() *fakeChatSessions {
	return &fakeChatSessions{sessions: map[uint]*model.ChatSession{}}
}

func (f *fakeChatSessions) Create(session *model.ChatSession) error {
	f.nextID++
	session.ID = f.nextID
	now := time.Now()
	session.CreatedAt = now
	session.UpdatedAt = now
	cp := *session
	f.sessions[session.ID] = &cp
	return nil
}

func (f *fakeChatSessions) GetByID(sessionID uint) (*model.ChatSession, error) {
	session, ok := f.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	cp := *session
	return &cp, nil
}

func (f *fakeChatSessions) ListByUserID(userID uint) ([]model.ChatSession, error) {
	var out []model.ChatSession
	for _, session := range f.sessions {
		if session.UserID == userID {
			out = append(out, *session)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (f *fakeChatSessions) UpdateTitle(sessionID uint, title string) error {
	if session, ok := f.sessions[sessionID]; ok {
		session.Title = title
	}
	return nil
}

func (f *fakeChatSessions) Touch(sessionID uint, at time.Time) error {
	if session, ok := f.sessions[sessionID]; ok {
		session.UpdatedAt = at
	}
	return nil
}

type fakeChatMessages struct {
	nextID   uint
	messages []model.ChatMessage
}

func (f *fakeChatMessages) Create(message *model.ChatMessage) error {
	f.nextID++
	message.ID = f.nextID
	f.messages = append(f.messages, *message)
	return nil
}

func (f *fakeChatMessages) ListBySessionID(sessionID uint, limit int) ([]model.ChatMessage, error) {
	var out []model.ChatMessage
	for _, m := range f.messages {
		if m.SessionID == sessionID {
			out = append(out, m)
		}
	}
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeChatMessages) ListRecentBySessionID(sessionID uint, n int) ([]model.ChatMessage, error) {
	all, _ := f.ListBySessionID(sessionID, 0)
	if n > 0 && n < len(all) {
		all = all[len(all)-n:]
	}
	return all, nil
}

func (f *fakeChatMessages) CountBySessionID(sessionID uint) (int64, error) {
	var count int64
	for _, m := range f.messages {
		if m.SessionID == sessionID {
			count++
		}
	}
	return count, nil
}

type fakeQuizRepo struct {
	nextID   uint
	sessions map[uint]*model.QuizSession
}

func newFakeQuizRepo() *fakeQuizRepo {
	return &fakeQuizRepo{sessions: map[uint]*model.QuizSession{}}
}

func cloneQuizSession(s *model.QuizSession) *model.QuizSession {
	cp := *s
	cp.Questions = make([]model.QuizQuestion, len(s.Questions))
	copy(cp.Questions, s.Questions)
	return &cp
}

func (f *fakeQuizRepo) CreateWithQuestions(session *model.QuizSession, questions []model.QuizQuestion) error {
	f.nextID++
	session.ID = f.nextID
	for i := range questions {
		questions[i].ID = f.nextID*100 + uint(i)
		questions[i].QuizID = session.ID
	}
	session.Questions = questions
	f.sessions[session.ID] = cloneQuizSession(session)
	return nil
}

func (f *fakeQuizRepo) GetByID(quizID uint) (*model.QuizSession, error) {
	session, ok := f.sessions[quizID]
	if !ok {
		return nil, nil
	}
	return cloneQuizSession(session), nil
}

func (f *fakeQuizRepo) ListByUserID(userID uint) ([]model.QuizSession, error) {
	var out []model.QuizSession
	for _, session := range f.sessions {
		if session.UserID == userID {
			out = append(out, *cloneQuizSession(session))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if (a.CompletedAt != nil) != (b.CompletedAt != nil) {
			return a.CompletedAt != nil
		}
		if a.CompletedAt != nil {
			return a.CompletedAt.After(*b.CompletedAt)
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
	return out, nil
}

func (f *fakeQuizRepo) SaveAnswer(question *model.QuizQuestion) error {
	session, ok := f.sessions[question.QuizID]
	if !ok {
		return errors.New("quiz missing")
	}
	for i := range session.Questions {
		if session.Questions[i].Position == question.Position {
			session.Questions[i].SelectedIndex = question.SelectedIndex
			session.Questions[i].IsCorrect = question.IsCorrect
			return nil
		}
	}
	return errors.New("question missing")
}

func (f *fakeQuizRepo) Finalize(session *model.QuizSession) error {
	stored, ok := f.sessions[session.ID]
	if !ok || stored.Status != model.QuizInProgress {
		return repository.ErrConflict
	}
	stored.Status = session.Status
	stored.CorrectCount = session.CorrectCount
	stored.Score = session.Score
	stored.CompletedAt = session.CompletedAt
	return nil
}

func (f *fakeQuizRepo) MarkAbandoned(quizID uint) error {
	stored, ok := f.sessions[quizID]
	if !ok || stored.Status != model.QuizInProgress {
		return repository.ErrConflict
	}
	stored.Status = model.QuizAbandoned
	return nil
}

func (f *fakeQuizRepo) SetShareToken(quizID uint, token string) error {
	stored, ok := f.sessions[quizID]
	if !ok {
		return errors.New("quiz missing")
	}
	stored.ShareToken = &token
	return nil
}

func (f *fakeQuizRepo) GetByShareToken(token string) (*model.QuizSession, error) {
	for _, session := range f.sessions {
		if session.ShareToken != nil && *session.ShareToken == token {
			return cloneQuizSession(session), nil
		}
	}
	return nil, nil
}

type fakePublisher struct {
	events []model.UsageEvent
	err    error
}

func (f *fakePublisher) Publish(_ context.Context, event model.UsageEvent) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

func (f *fakePublisher) kinds() []model.EventKind {
	out := make([]model.EventKind, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.Kind)
	}
	return out
}

// scriptedGateway returns preset replies and question sets, or an error.
type scriptedGateway struct {
	reply     string
	replyErr  error
	questions []ai.GeneratedQuestion
	quizErr   error

	replyCalls int
	quizCalls  int
}

func (g *scriptedGateway) GenerateReply(_ context.Context, _ []ai.Turn) (string, error) {
	g.replyCalls++
	if g.replyErr != nil {
		return "", g.replyErr
	}
	return g.reply, nil
}

func (g *scriptedGateway) GenerateQuiz(_ context.Context, _, _ string, count int) ([]ai.GeneratedQuestion, error) {
	g.quizCalls++
	if g.quizErr != nil {
		return nil, g.quizErr
	}
	if len(g.questions) >= count {
		return g.questions[:count], nil
	}
	return g.questions, nil
}

func generatedQuestions(n int) []ai.GeneratedQuestion {
	out := make([]ai.GeneratedQuestion, n)
	for i := range out {
		out[i] = ai.GeneratedQuestion{
			Prompt:       "prompt",
			Options:      []string{"a", "b", "c", "d"},
			CorrectIndex: i % 4,
			Explanation:  "because",
		}
	}
	return out
}

type fakeStatsReader struct {
	totals   *repository.UserTotals
	snapshot *repository.SystemSnapshot
	err      error
}

func (f *fakeStatsReader) UserTotals(uint) (*repository.UserTotals, error) {
	return f.totals, f.err
}

func (f *fakeStatsReader) SystemSnapshot(int) (*repository.SystemSnapshot, error) {
	return f.snapshot, f.err
}

type fakeEventCounter struct {
	counts map[model.EventKind]int64
	err    error
}

func (f *fakeEventCounter) CountByKindSince(time.Time) (map[model.EventKind]int64, error) {
	return f.counts, f.err
}

type fakeSnapshotCache struct {
	tokens map[string]uint
}

func newFakeSnapshotCache() *fakeSnapshotCache {
	return &fakeSnapshotCache{tokens: map[string]uint{}}
}

func (f *fakeSnapshotCache) GetSystemSnapshot(context.Context, interface{}) (bool, error) {
	return false, nil
}

func (f *fakeSnapshotCache) SetSystemSnapshot(context.Context, interface{}) error {
	return nil
}

func (f *fakeSnapshotCache) GetShareQuizID(_ context.Context, token string) (uint, bool, error) {
	id, ok := f.tokens[token]
	return id, ok, nil
}

func (f *fakeSnapshotCache) SetShareQuizID(_ context.Context, token string, quizID uint) error {
	f.tokens[token] = quizID
	return nil
}
