package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/edukanda/edukanda/core/course"
)

func (cli *commandLine) listCourses(ctx context.Context, filter course.QueryFilter) error {
	usr, err := cli.currentUser()
	if err != nil {
		return err
	}
	courses, err := cli.backend.courses.List(ctx, usr, filter)
	if err != nil {
		return err
	}
	if len(courses) == 0 {
		fmt.Fprintln(cli.out, "No courses found.")
		return nil
	}

	tw := newTable(cli.out)
	fmt.Fprintln(tw, "ID\tTITLE\tCATEGORY\tINSTRUCTOR\tPROGRESS\t")
	for _, c := range courses {
		title := c.Title
		if c.IsFavorite {
			title = "* " + title
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d%%\t\n", c.ID, title, c.Category, c.Instructor, c.Progress())
	}
	return tw.Flush()
}

func (cli *commandLine) printCourse(c course.Course) error {
	fmt.Fprintf(cli.out, "#%d %s\n", c.ID, c.Title)
	fmt.Fprintf(cli.out, "%s | %s | %s | %s\n", c.Category, c.Level, c.Instructor, c.Duration)
	if c.IsFavorite {
		fmt.Fprintln(cli.out, "favorite")
	}
	fmt.Fprintf(cli.out, "progress: %d%% (%d/%d lessons)\n", c.Progress(), c.CompletedLessons(), len(c.Lessons))

	tw := newTable(cli.out)
	for _, l := range c.Lessons {
		done := " "
		if l.Completed {
			done = "x"
		}
		var tags []string
		if l.IsFree {
			tags = append(tags, "free")
		}
		fmt.Fprintf(tw, "[%s]\t%d\t%s\t%s\t%s\t\n", done, l.ID, l.Title, l.Duration, strings.Join(tags, ","))
	}
	return tw.Flush()
}

func (cli *commandLine) showCourse(ctx context.Context, id int) error {
	usr, err := cli.currentUser()
	if err != nil {
		return err
	}
	c, err := cli.backend.courses.Get(ctx, usr, id)
	if err != nil {
		return err
	}
	return cli.printCourse(c)
}

func (cli *commandLine) toggleFavorite(ctx context.Context, id int) error {
	usr, err := cli.currentUser()
	if err != nil {
		return err
	}
	c, err := cli.backend.courses.ToggleFavorite(ctx, usr, id)
	if err != nil {
		return err
	}
	if c.IsFavorite {
		fmt.Fprintf(cli.out, "%q added to favorites\n", c.Title)
	} else {
		fmt.Fprintf(cli.out, "%q removed from favorites\n", c.Title)
	}
	return nil
}

func (cli *commandLine) completeLesson(ctx context.Context, courseID, lessonID int) error {
	usr, err := cli.currentUser()
	if err != nil {
		return err
	}
	c, err := cli.backend.courses.MarkLessonComplete(ctx, usr, courseID, lessonID)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%s: %d%% completed\n", c.Title, c.Progress())
	if c.IsCompleted() {
		fmt.Fprintln(cli.out, "Course completed! Run `edukanda certificates` to see your certificate.")
	}
	return nil
}
