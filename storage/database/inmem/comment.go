package inmemdb

import (
	"context"

	"github.com/edukanda/edukanda/core/comment"
	"github.com/edukanda/edukanda/core/course"
	"github.com/edukanda/edukanda/core/user"
)

type commentRepository struct {
	db *DB
}

var _ comment.Repository = (*commentRepository)(nil) // interface compliance check

func NewCommentRepository(db *DB) *commentRepository {
	return &commentRepository{db: db}
}

func (repo *commentRepository) AddComment(ctx context.Context, c comment.Comment) (comment.Comment, error) {
	if err := repo.db.delay(ctx); err != nil {
		return comment.Comment{}, err
	}

	repo.db.user.RLock()
	author, ok := repo.db.user.table[c.UserID]
	if ok {
		c.UserName, c.UserAvatar = author.Name, author.Avatar
	}
	repo.db.user.RUnlock()
	if !ok {
		return comment.Comment{}, user.ErrNotFound
	}

	repo.db.course.RLock()
	crs, ok := repo.db.course.table[c.CourseID]
	var lessonOk bool
	if ok && c.LessonID != nil {
		_, lessonOk = crs.Lesson(*c.LessonID)
	}
	repo.db.course.RUnlock()
	if !ok {
		return comment.Comment{}, course.ErrNotFound
	}
	if c.LessonID != nil && !lessonOk {
		return comment.Comment{}, course.ErrLessonNotFound
	}

	repo.db.comment.Lock()
	defer repo.db.comment.Unlock()
	repo.db.comment.pk++
	c.ID = repo.db.comment.pk
	c.Likes = 0
	repo.db.comment.rows = append(repo.db.comment.rows, c)
	return c, nil
}

func (repo *commentRepository) QueryComments(ctx context.Context, filter comment.QueryFilter) ([]comment.Comment, error) {
	if err := repo.db.delay(ctx); err != nil {
		return nil, err
	}
	repo.db.comment.RLock()
	defer repo.db.comment.RUnlock()

	comments := make([]comment.Comment, 0)
	for _, c := range repo.db.comment.rows {
		if filter.Match(c) {
			comments = append(comments, c)
		}
	}
	return comments, nil
}
