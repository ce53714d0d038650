package app

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"learnhub/internal/model"
	"learnhub/internal/repository"
)

// StatsReader is the read-only aggregate surface over the stores.
type StatsReader interface {
	UserTotals(userID uint) (*repository.UserTotals, error)
	SystemSnapshot(trendDays int) (*repository.SystemSnapshot, error)
}

type EventCounter interface {
	CountByKindSince(since time.Time) (map[model.EventKind]int64, error)
}

type SnapshotCache interface {
	GetSystemSnapshot(ctx context.Context, dest interface{}) (bool, error)
	SetSystemSnapshot(ctx context.Context, snapshot interface{}) error
	GetShareQuizID(ctx context.Context, token string) (uint, bool, error)
	SetShareQuizID(ctx context.Context, token string, quizID uint) error
}

type UserStats struct {
	QuizCount        int64   `json:"quiz_count"`
	AvgScore         float64 `json:"avg_score"`
	ChatSessionCount int64   `json:"chat_session_count"`
}

type SystemStats struct {
	repository.SystemSnapshot
	RecentActivity map[model.EventKind]int64 `json:"recent_activity"`
}

// StatsService is the aggregation engine: pure read side plus share-token
// minting, no mutation rights over sessions or questions.
type StatsService struct {
	stats     StatsReader
	events    EventCounter
	quizRepo  QuizRepo
	cache     SnapshotCache
	trendDays int
	logger    *zap.Logger
}

func NewStatsService(
	stats StatsReader,
	events EventCounter,
	quizRepo QuizRepo,
	cache SnapshotCache,
	trendDays int,
	logger *zap.Logger,
) *StatsService {
	if trendDays <= 0 {
		trendDays = 30
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatsService{
		stats:     stats,
		events:    events,
		quizRepo:  quizRepo,
		cache:     cache,
		trendDays: trendDays,
		logger:    logger,
	}
}

// UserStats averages over completed quizzes only; a user with none gets a
// zero average rather than a division error.
func (s *StatsService) UserStats(ctx context.Context, userID uint) (*UserStats, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}
	totals, err := s.stats.UserTotals(userID)
	if err != nil {
		return nil, err
	}
	return &UserStats{
		QuizCount:        totals.CompletedQuizCount,
		AvgScore:         totals.AvgScore,
		ChatSessionCount: totals.ChatSessionCount,
	}, nil
}

// SystemStats serves the admin dashboard. The snapshot is computed in one
// consistent read pass and cached briefly; dashboard staleness within the
// cache TTL is acceptable.
func (s *StatsService) SystemStats(ctx context.Context) (*SystemStats, error) {
	if s.cache != nil {
		var cached SystemStats
		if hit, err := s.cache.GetSystemSnapshot(ctx, &cached); err == nil && hit {
			return &cached, nil
		}
	}

	snapshot, err := s.stats.SystemSnapshot(s.trendDays)
	if err != nil {
		return nil, err
	}

	stats := &SystemStats{SystemSnapshot: *snapshot}
	if s.events != nil {
		counts, err := s.events.CountByKindSince(time.Now().Add(-24 * time.Hour))
		if err != nil {
			// Activity telemetry is best-effort; the report still ships.
			s.logger.Warn("recent activity unavailable", zap.Error(err))
		} else {
			stats.RecentActivity = counts
		}
	}

	if s.cache != nil {
		if err := s.cache.SetSystemSnapshot(ctx, stats); err != nil {
			s.logger.Debug("stats cache set failed", zap.Error(err))
		}
	}
	return stats, nil
}

// ShareTokenFor mints (or returns the existing) unguessable token for a
// completed quiz. Only the owner or an admin may mint one.
func (s *StatsService) ShareTokenFor(ctx context.Context, userID uint, role model.Role, quizID uint) (string, error) {
	if userID == 0 || quizID == 0 {
		return "", ErrInvalidInput
	}
	session, err := s.quizRepo.GetByID(quizID)
	if err != nil {
		return "", err
	}
	if session == nil {
		return "", ErrQuizNotFound
	}
	if session.UserID != userID && role != model.RoleAdmin {
		return "", ErrNotOwner
	}
	if session.Status != model.QuizCompleted {
		return "", ErrQuizNotInProgress
	}
	if session.ShareToken != nil && *session.ShareToken != "" {
		return *session.ShareToken, nil
	}

	token := uuid.NewString()
	if err := s.quizRepo.SetShareToken(quizID, token); err != nil {
		return "", err
	}
	if s.cache != nil {
		if err := s.cache.SetShareQuizID(ctx, token, quizID); err != nil {
			s.logger.Debug("share token cache set failed", zap.Error(err))
		}
	}
	return token, nil
}

// ResolveShareToken returns the completed quiz a token points at. Tokens are
// minted for completed sessions only and completion is terminal, but the
// status is re-checked so a stale or forged token never exposes partial data.
func (s *StatsService) ResolveShareToken(ctx context.Context, token string) (*model.QuizSession, error) {
	if token == "" {
		return nil, ErrInvalidInput
	}

	if s.cache != nil {
		if quizID, hit, err := s.cache.GetShareQuizID(ctx, token); err == nil && hit {
			session, err := s.quizRepo.GetByID(quizID)
			if err != nil {
				return nil, err
			}
			if session != nil && session.Status == model.QuizCompleted &&
				session.ShareToken != nil && *session.ShareToken == token {
				return session, nil
			}
		}
	}

	session, err := s.quizRepo.GetByShareToken(token)
	if err != nil {
		return nil, err
	}
	if session == nil || session.Status != model.QuizCompleted {
		return nil, ErrShareTokenNotFound
	}
	return session, nil
}
