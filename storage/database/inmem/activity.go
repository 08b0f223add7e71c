package inmemdb

import (
	"context"
	"sort"

	"github.com/edukanda/edukanda/core/moderation"
)

type activityRepository struct {
	db *DB
}

var _ moderation.Repository = (*activityRepository)(nil) // interface compliance check

func NewActivityRepository(db *DB) *activityRepository {
	return &activityRepository{db: db}
}

func (repo *activityRepository) AddActivity(ctx context.Context, a moderation.Activity) (moderation.Activity, error) {
	if err := repo.db.delay(ctx); err != nil {
		return moderation.Activity{}, err
	}
	repo.db.activity.Lock()
	defer repo.db.activity.Unlock()

	repo.db.activity.pk++
	a.ID = repo.db.activity.pk
	repo.db.activity.rows = append(repo.db.activity.rows, a)
	return a, nil
}

func (repo *activityRepository) QueryActivities(ctx context.Context, limit int) ([]moderation.Activity, error) {
	if err := repo.db.delay(ctx); err != nil {
		return nil, err
	}
	repo.db.activity.RLock()
	activities := append([]moderation.Activity{}, repo.db.activity.rows...)
	repo.db.activity.RUnlock()

	sort.SliceStable(activities, func(i, j int) bool {
		if activities[i].Timestamp.Equal(activities[j].Timestamp) {
			return activities[i].ID > activities[j].ID
		}
		return activities[i].Timestamp.After(activities[j].Timestamp)
	})
	if limit > 0 && len(activities) > limit {
		activities = activities[:limit]
	}
	return activities, nil
}
