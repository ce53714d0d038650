package repository

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"learnhub/internal/model"
)

// UserTotals holds per-user aggregates computed over completed quizzes only.
type UserTotals struct {
	CompletedQuizCount int64
	AvgScore           float64
	ChatSessionCount   int64
}

type DayCount struct {
	Day   string `json:"day"`
	Count int64  `json:"count"`
}

type ScoreBucket struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

// SystemSnapshot is the result of one consistent read pass over all stores.
type SystemSnapshot struct {
	TotalUsers            int64         `json:"total_users"`
	TotalQuizSessions     int64         `json:"total_quiz_sessions"`
	CompletedQuizSessions int64         `json:"completed_quiz_sessions"`
	TotalChatSessions     int64         `json:"total_chat_sessions"`
	RegistrationTrend     []DayCount    `json:"registration_trend"`
	ScoreDistribution     []ScoreBucket `json:"score_distribution"`
}

// StatsRepository runs read-only aggregate queries across the stores. It has
// no mutation methods.
type StatsRepository struct {
	db *gorm.DB
}

func NewStatsRepository(db *gorm.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

func (r *StatsRepository) UserTotals(userID uint) (*UserTotals, error) {
	var totals UserTotals

	// COALESCE keeps AVG from returning NULL for users without completed
	// quizzes; zero-question sessions cannot hold a score so AVG skips them.
	type quizRow struct {
		Count int64
		Avg   float64
	}
	var qr quizRow
	err := r.db.Model(&model.QuizSession{}).
		Select("COUNT(*) AS count, COALESCE(AVG(score), 0) AS avg").
		Where("user_id = ? AND status = ? AND score IS NOT NULL", userID, model.QuizCompleted).
		Scan(&qr).Error
	if err != nil {
		return nil, fmt.Errorf("%w: user quiz totals failed: %v", ErrStorage, err)
	}
	totals.CompletedQuizCount = qr.Count
	totals.AvgScore = qr.Avg

	if err := r.db.Model(&model.ChatSession{}).Where("user_id = ?", userID).Count(&totals.ChatSessionCount).Error; err != nil {
		return nil, fmt.Errorf("%w: user chat totals failed: %v", ErrStorage, err)
	}
	return &totals, nil
}

// SystemSnapshot runs all aggregate queries inside one transaction so a
// single report never double-counts rows written while it runs.
func (r *StatsRepository) SystemSnapshot(trendDays int) (*SystemSnapshot, error) {
	if trendDays <= 0 {
		trendDays = 30
	}
	snap := &SystemSnapshot{}

	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.User{}).Count(&snap.TotalUsers).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.QuizSession{}).Count(&snap.TotalQuizSessions).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.QuizSession{}).Where("status = ?", model.QuizCompleted).Count(&snap.CompletedQuizSessions).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.ChatSession{}).Count(&snap.TotalChatSessions).Error; err != nil {
			return err
		}

		cutoff := time.Now().AddDate(0, 0, -trendDays)
		if err := tx.Model(&model.User{}).
			Select("DATE(created_at) AS day, COUNT(*) AS count").
			Where("created_at >= ?", cutoff).
			Group("DATE(created_at)").
			Order("day ASC").
			Scan(&snap.RegistrationTrend).Error; err != nil {
			return err
		}

		var scores []float64
		if err := tx.Model(&model.QuizSession{}).
			Where("status = ? AND score IS NOT NULL", model.QuizCompleted).
			Pluck("score", &scores).Error; err != nil {
			return err
		}
		snap.ScoreDistribution = bucketScores(scores)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: system snapshot failed: %v", ErrStorage, err)
	}
	return snap, nil
}

// bucketScores groups normalized ratios into five fixed buckets. Values
// outside [0,1] should not exist and are skipped.
func bucketScores(scores []float64) []ScoreBucket {
	buckets := []ScoreBucket{
		{Label: "0.0-0.2"},
		{Label: "0.2-0.4"},
		{Label: "0.4-0.6"},
		{Label: "0.6-0.8"},
		{Label: "0.8-1.0"},
	}
	for _, s := range scores {
		if s < 0 || s > 1 {
			continue
		}
		idx := int(s * 5)
		if idx == 5 {
			idx = 4
		}
		buckets[idx].Count++
	}
	return buckets
}
