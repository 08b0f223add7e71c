package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/edukanda/edukanda/core/moderation"
)

type activityRow struct {
	ID          int       `db:"id"`
	Type        string    `db:"type"`
	Description string    `db:"description"`
	UserID      null.Int  `db:"user_id"`
	UserName    string    `db:"user_name"`
	Timestamp   time.Time `db:"timestamp"`
}

type activityRepository struct {
	db *sqlx.DB
}

var _ moderation.Repository = (*activityRepository)(nil) // interface compliance check

func NewActivityRepository(db *sqlx.DB) *activityRepository {
	return &activityRepository{db: db}
}

func (repo *activityRepository) AddActivity(ctx context.Context, a moderation.Activity) (moderation.Activity, error) {
	row := activityRow{
		Type:        string(a.Type),
		Description: a.Description,
		UserID:      null.IntFromPtr(a.UserID),
		UserName:    a.UserName,
		Timestamp:   a.Timestamp.UTC(),
	}
	q := `INSERT INTO activities (type, description, user_id, user_name, timestamp)
	VALUES (:type, :description, :user_id, :user_name, :timestamp)
	RETURNING id`
	id, err := insertReturningID(ctx, repo.db, q, row)
	if err != nil {
		return moderation.Activity{}, errors.Wrap(err, "inserting activity")
	}
	a.ID = id
	return a, nil
}

func (repo *activityRepository) QueryActivities(ctx context.Context, limit int) ([]moderation.Activity, error) {
	q := `SELECT id, type, description, user_id, user_name, timestamp FROM activities ORDER BY timestamp DESC, id DESC`
	args := []interface{}{}
	if limit > 0 {
		q += " LIMIT $1"
		args = append(args, limit)
	}
	var rows []activityRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "selecting activities")
	}
	activities := make([]moderation.Activity, 0, len(rows))
	for _, row := range rows {
		activities = append(activities, moderation.Activity{
			ID:          row.ID,
			Type:        moderation.ActivityType(row.Type),
			Description: row.Description,
			UserID:      row.UserID.Ptr(),
			UserName:    row.UserName,
			Timestamp:   row.Timestamp.UTC(),
		})
	}
	return activities, nil
}
