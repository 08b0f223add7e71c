package main

import (
	"context"
	"fmt"

	"github.com/edukanda/edukanda/core/comment"
)

func (cli *commandLine) listComments(ctx context.Context, courseID int, lessonID *int) error {
	usr, err := cli.currentUser()
	if err != nil {
		return err
	}
	comments, err := cli.backend.comments.List(ctx, usr, courseID, lessonID)
	if err != nil {
		return err
	}
	if len(comments) == 0 {
		fmt.Fprintln(cli.out, "No comments yet.")
		return nil
	}
	for _, c := range comments {
		fmt.Fprintf(cli.out, "%s (%s): %s\n", c.UserName, c.Timestamp.Format("2006-01-02 15:04"), c.Content)
	}
	return nil
}

func (cli *commandLine) postComment(ctx context.Context, courseID int, lessonID *int, content string) error {
	usr, err := cli.currentUser()
	if err != nil {
		return err
	}
	c, err := cli.backend.comments.Add(ctx, usr, comment.NewComment{
		CourseID: courseID,
		LessonID: lessonID,
		Content:  content,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Comment #%d posted.\n", c.ID)
	return nil
}

func (cli *commandLine) showRanking(ctx context.Context) error {
	usr, err := cli.currentUser()
	if err != nil {
		return err
	}
	entries, err := cli.backend.ranking.Leaderboard(ctx)
	if err != nil {
		return err
	}

	tw := newTable(cli.out)
	fmt.Fprintln(tw, "RANK\tNAME\tPOINTS\t")
	for _, e := range entries {
		name := e.Name
		if e.ID == usr.ID {
			name += " (you)"
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t\n", e.Rank, name, e.Points)
	}
	return tw.Flush()
}

func (cli *commandLine) listCertificates(ctx context.Context) error {
	usr, err := cli.currentUser()
	if err != nil {
		return err
	}
	certs, err := cli.backend.certificates.ForUser(ctx, usr)
	if err != nil {
		return err
	}
	if len(certs) == 0 {
		fmt.Fprintln(cli.out, "No certificates yet: complete a course to earn one.")
		return nil
	}

	tw := newTable(cli.out)
	fmt.Fprintln(tw, "COURSE\tINSTRUCTOR\tHOURS\tCOMPLETED\tID\t")
	for _, c := range certs {
		fmt.Fprintf(tw, "%s\t%s\t%.2f\t%s\t%s\t\n",
			c.CourseName, c.InstructorName, c.Hours, c.CompletionDate.Format("2006-01-02"), c.ID)
	}
	return tw.Flush()
}
