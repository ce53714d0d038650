package repository

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"learnhub/internal/model"
)

type UsageEventRepository struct {
	db *gorm.DB
}

func NewUsageEventRepository(db *gorm.DB) *UsageEventRepository {
	return &UsageEventRepository{db: db}
}

func (r *UsageEventRepository) Create(event *model.UsageEvent) error {
	if err := r.db.Create(event).Error; err != nil {
		return fmt.Errorf("%w: create usage event failed: %v", ErrStorage, err)
	}
	return nil
}

// CountByKindSince returns event counts per kind for events created at or
// after the cutoff.
func (r *UsageEventRepository) CountByKindSince(since time.Time) (map[model.EventKind]int64, error) {
	type row struct {
		Kind  model.EventKind
		Count int64
	}
	var rows []row
	err := r.db.Model(&model.UsageEvent{}).
		Select("kind, COUNT(*) AS count").
		Where("created_at >= ?", since).
		Group("kind").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("%w: count usage events failed: %v", ErrStorage, err)
	}

	counts := make(map[model.EventKind]int64, len(rows))
	for _, item := range rows {
		counts[item.Kind] = item.Count
	}
	return counts, nil
}
