package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/edukanda/edukanda/core/comment"
	"github.com/edukanda/edukanda/core/course"
	"github.com/edukanda/edukanda/core/user"
)

type commentRow struct {
	ID         int       `db:"id"`
	UserID     int       `db:"user_id"`
	UserName   string    `db:"user_name"`
	UserAvatar string    `db:"user_avatar"`
	CourseID   int       `db:"course_id"`
	LessonID   null.Int  `db:"lesson_id"`
	Content    string    `db:"content"`
	Likes      int       `db:"likes"`
	Timestamp  time.Time `db:"timestamp"`
}

func (row commentRow) comment() comment.Comment {
	return comment.Comment{
		ID:         row.ID,
		UserID:     row.UserID,
		UserName:   row.UserName,
		UserAvatar: row.UserAvatar,
		CourseID:   row.CourseID,
		LessonID:   row.LessonID.Ptr(),
		Content:    row.Content,
		Likes:      row.Likes,
		Timestamp:  row.Timestamp.UTC(),
	}
}

type commentRepository struct {
	db *sqlx.DB
}

var _ comment.Repository = (*commentRepository)(nil) // interface compliance check

func NewCommentRepository(db *sqlx.DB) *commentRepository {
	return &commentRepository{db: db}
}

func (repo *commentRepository) AddComment(ctx context.Context, c comment.Comment) (comment.Comment, error) {
	var author struct {
		Name   string `db:"name"`
		Avatar string `db:"avatar"`
	}
	if err := repo.db.GetContext(ctx, &author, `SELECT name, avatar FROM users WHERE id = $1`, c.UserID); err != nil {
		return comment.Comment{}, trapNoRows(err, user.ErrNotFound, "selecting author")
	}

	var found bool
	if err := repo.db.GetContext(ctx, &found, `SELECT EXISTS (SELECT 1 FROM courses WHERE id = $1)`, c.CourseID); err != nil {
		return comment.Comment{}, errors.Wrap(err, "checking course")
	}
	if !found {
		return comment.Comment{}, course.ErrNotFound
	}
	if c.LessonID != nil {
		q := `SELECT EXISTS (SELECT 1 FROM lessons WHERE course_id = $1 AND id = $2)`
		if err := repo.db.GetContext(ctx, &found, q, c.CourseID, *c.LessonID); err != nil {
			return comment.Comment{}, errors.Wrap(err, "checking lesson")
		}
		if !found {
			return comment.Comment{}, course.ErrLessonNotFound
		}
	}

	row := commentRow{
		UserID:     c.UserID,
		UserName:   author.Name,
		UserAvatar: author.Avatar,
		CourseID:   c.CourseID,
		LessonID:   null.IntFromPtr(c.LessonID),
		Content:    c.Content,
		Timestamp:  c.Timestamp.UTC(),
	}
	q := `INSERT INTO comments (user_id, user_name, user_avatar, course_id, lesson_id, content, likes, timestamp)
	VALUES (:user_id, :user_name, :user_avatar, :course_id, :lesson_id, :content, :likes, :timestamp)
	RETURNING id`
	id, err := insertReturningID(ctx, repo.db, q, row)
	if err != nil {
		return comment.Comment{}, errors.Wrap(err, "inserting comment")
	}
	row.ID = id
	return row.comment(), nil
}

func (repo *commentRepository) QueryComments(ctx context.Context, filter comment.QueryFilter) ([]comment.Comment, error) {
	q := `SELECT id, user_id, user_name, user_avatar, course_id, lesson_id, content, likes, timestamp
	FROM comments
	WHERE ($1 = 0 OR course_id = $1) AND ($2::INTEGER IS NULL OR lesson_id = $2)
	ORDER BY timestamp, id`
	var rows []commentRow
	if err := repo.db.SelectContext(ctx, &rows, q, filter.CourseID, null.IntFromPtr(filter.LessonID)); err != nil {
		return nil, errors.Wrap(err, "selecting comments")
	}
	comments := make([]comment.Comment, 0, len(rows))
	for _, row := range rows {
		comments = append(comments, row.comment())
	}
	return comments, nil
}
