package remote

import (
	"context"
	"strconv"

	"github.com/sendgrid/rest"

	"github.com/edukanda/edukanda/core/comment"
	"github.com/edukanda/edukanda/core/course"
)

type CommentRepository struct {
	client *Client
}

var _ comment.Repository = (*CommentRepository)(nil) // interface compliance check

func NewCommentRepository(client *Client) *CommentRepository {
	return &CommentRepository{client: client}
}

func (repo *CommentRepository) AddComment(ctx context.Context, c comment.Comment) (comment.Comment, error) {
	nc := comment.NewComment{UserID: c.UserID, CourseID: c.CourseID, LessonID: c.LessonID, Content: c.Content}
	var created comment.Comment
	err := repo.client.do(ctx, rest.Post, "/comments", nil, nc, &created, course.ErrNotFound)
	return created, err
}

func (repo *CommentRepository) QueryComments(ctx context.Context, filter comment.QueryFilter) ([]comment.Comment, error) {
	query := map[string]string{"courseId": strconv.Itoa(filter.CourseID)}
	if filter.LessonID != nil {
		query["lessonId"] = strconv.Itoa(*filter.LessonID)
	}
	var comments []comment.Comment
	if err := repo.client.do(ctx, rest.Get, "/comments", query, nil, &comments, nil); err != nil {
		return nil, err
	}
	filtered := comments[:0]
	for _, c := range comments {
		if filter.Match(c) {
			filtered = append(filtered, c)
		}
	}
	return filtered, nil
}
