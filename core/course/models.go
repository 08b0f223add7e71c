package course

import (
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/edukanda/edukanda/core"
)

// CategoryAll selects every category.
const CategoryAll = "Todos"

type Category struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

var Categories = []Category{
	{ID: 1, Name: "Matemática"},
	{ID: 2, Name: "Física"},
	{ID: 3, Name: "Química"},
	{ID: 4, Name: "Programação"},
	{ID: 5, Name: "História"},
	{ID: 6, Name: "Geografia"},
	{ID: 7, Name: "Biologia"},
	{ID: 8, Name: "Literatura"},
}

func IsValidCategory(name string) bool {
	for _, c := range Categories {
		if c.Name == name {
			return true
		}
	}
	return false
}

type Material struct {
	Title string `json:"title" validate:"required"`
	URL   string `json:"url" validate:"required"`
	Type  string `json:"type" validate:"omitempty,oneof=pdf link"`
}

// Lesson belongs to exactly one Course. Completed and CompletedAt describe the viewing user.
type Lesson struct {
	ID          int        `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Duration    string     `json:"duration"` // mm:ss or h:mm:ss
	VideoURL    string     `json:"videoUrl"`
	Order       int        `json:"order"`
	IsFree      bool       `json:"isFree"`
	Materials   []Material `json:"materials"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// Course is the catalog entry merged with the enrollment of the viewing user (IsFavorite, Lesson.Completed).
// Progress is always derived from the lessons.
type Course struct {
	ID               int       `json:"id"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	Category         string    `json:"category"`
	InstructorID     int       `json:"instructorId"`
	Instructor       string    `json:"instructor"`
	InstructorAvatar string    `json:"instructorAvatar"`
	Thumbnail        string    `json:"thumbnail"`
	Duration         string    `json:"duration"`
	Level            string    `json:"level"`
	Price            float64   `json:"price"`
	Tags             []string  `json:"tags"`
	StudentsCount    int       `json:"studentsCount"`
	Rating           float64   `json:"rating"`
	Status           Status    `json:"status"`
	RejectionReason  string    `json:"rejectionReason,omitempty"`
	IsFeatured       bool      `json:"isFeatured"`
	IsFavorite       bool      `json:"isFavorite"`
	Lessons          []Lesson  `json:"lessons"`
	CreatedAt        time.Time `json:"createdAt"` // UTC
	UpdatedAt        time.Time `json:"updatedAt"` // UTC
}

func (c Course) CompletedLessons() int {
	var n int
	for _, l := range c.Lessons {
		if l.Completed {
			n++
		}
	}
	return n
}

// Progress is the rounded percentage of completed lessons. A course without lessons is at 0.
func (c Course) Progress() int {
	if len(c.Lessons) == 0 {
		return 0
	}
	return int(math.Round(100 * float64(c.CompletedLessons()) / float64(len(c.Lessons))))
}

func (c Course) IsCompleted() bool {
	return len(c.Lessons) > 0 && c.CompletedLessons() == len(c.Lessons)
}

// Lesson returns the lesson with the given ID.
func (c Course) Lesson(id int) (Lesson, bool) {
	for _, l := range c.Lessons {
		if l.ID == id {
			return l, true
		}
	}
	return Lesson{}, false
}

// CompletedAt is the latest lesson completion time of a completed course.
func (c Course) CompletedAt() (time.Time, bool) {
	if !c.IsCompleted() {
		return time.Time{}, false
	}
	var latest time.Time
	for _, l := range c.Lessons {
		if l.CompletedAt != nil && l.CompletedAt.After(latest) {
			latest = *l.CompletedAt
		}
	}
	return latest, true
}

// MarshalJSON adds the derived fields. They are ignored when decoding.
func (c Course) MarshalJSON() ([]byte, error) {
	type course Course
	if c.Lessons == nil {
		c.Lessons = []Lesson{}
	}
	if c.Tags == nil {
		c.Tags = []string{}
	}
	return json.Marshal(struct {
		course
		Progress         int `json:"progress"`
		CompletedLessons int `json:"completedLessons"`
		LessonsCount     int `json:"lessonsCount"`
	}{
		course:           course(c),
		Progress:         c.Progress(),
		CompletedLessons: c.CompletedLessons(),
		LessonsCount:     len(c.Lessons),
	})
}

// NewCourse contains information needed to create a draft Course.
type NewCourse struct {
	Title       string   `json:"title" validate:"required,min=3,max=255"`
	Description string   `json:"description" validate:"required"`
	Category    string   `json:"category" validate:"required,category"`
	Thumbnail   string   `json:"thumbnail" validate:"omitempty,url"`
	Duration    string   `json:"duration"`
	Level       string   `json:"level" validate:"omitempty,level"`
	Price       float64  `json:"price" validate:"gte=0"`
	Tags        []string `json:"tags"`
}

func (nc *NewCourse) clean() {
	nc.Title = core.CleanString(nc.Title)
	nc.Description = core.CleanString(nc.Description)
	nc.Category = core.CleanString(nc.Category)
	nc.Thumbnail = core.CleanString(nc.Thumbnail)
	nc.Level = core.CleanString(nc.Level, true /* lower */)
	nc.Tags = cleanTags(nc.Tags)
}

// UpdateCourse defines what information may be provided to modify a Course. Nil fields are left untouched.
type UpdateCourse struct {
	Title       *string   `json:"title" validate:"omitempty,min=3,max=255"`
	Description *string   `json:"description"`
	Category    *string   `json:"category" validate:"omitempty,category"`
	Thumbnail   *string   `json:"thumbnail" validate:"omitempty,url"`
	Duration    *string   `json:"duration"`
	Level       *string   `json:"level" validate:"omitempty,level"`
	Price       *float64  `json:"price" validate:"omitempty,gte=0"`
	Tags        *[]string `json:"tags"`
}

func (uc UpdateCourse) apply(c *Course) {
	if uc.Title != nil {
		c.Title = core.CleanString(*uc.Title)
	}
	if uc.Description != nil {
		c.Description = core.CleanString(*uc.Description)
	}
	if uc.Category != nil {
		c.Category = core.CleanString(*uc.Category)
	}
	if uc.Thumbnail != nil {
		c.Thumbnail = core.CleanString(*uc.Thumbnail)
	}
	if uc.Duration != nil {
		c.Duration = core.CleanString(*uc.Duration)
	}
	if uc.Level != nil {
		c.Level = core.CleanString(*uc.Level, true /* lower */)
	}
	if uc.Price != nil {
		c.Price = *uc.Price
	}
	if uc.Tags != nil {
		c.Tags = cleanTags(*uc.Tags)
	}
}

// NewLesson contains information needed to append a Lesson to a Course.
type NewLesson struct {
	Title       string     `json:"title" validate:"required,min=3,max=255"`
	Description string     `json:"description"`
	Duration    string     `json:"duration" validate:"required,lessonduration"`
	VideoURL    string     `json:"videoUrl" validate:"required,url"`
	IsFree      bool       `json:"isFree"`
	Materials   []Material `json:"materials" validate:"dive"`
}

func (nl *NewLesson) clean() {
	nl.Title = core.CleanString(nl.Title)
	nl.Description = core.CleanString(nl.Description)
	nl.Duration = core.CleanString(nl.Duration)
	nl.VideoURL = core.CleanString(nl.VideoURL)
}

// UpdateLesson defines what information may be provided to modify a Lesson. Nil fields are left untouched.
// An empty Materials list removes every material.
type UpdateLesson struct {
	Title       *string    `json:"title" validate:"omitempty,min=3,max=255"`
	Description *string    `json:"description"`
	Duration    *string    `json:"duration" validate:"omitempty,lessonduration"`
	VideoURL    *string    `json:"videoUrl" validate:"omitempty,url"`
	IsFree      *bool      `json:"isFree"`
	Materials   []Material `json:"materials" validate:"omitempty,dive"`
}

func (ul *UpdateLesson) clean() {
	for _, f := range []*string{ul.Title, ul.Description, ul.Duration, ul.VideoURL} {
		if f != nil {
			*f = core.CleanString(*f)
		}
	}
}

func (ul UpdateLesson) apply(l *Lesson) {
	if ul.Title != nil {
		l.Title = *ul.Title
	}
	if ul.Description != nil {
		l.Description = *ul.Description
	}
	if ul.Duration != nil {
		l.Duration = *ul.Duration
	}
	if ul.VideoURL != nil {
		l.VideoURL = *ul.VideoURL
	}
	if ul.IsFree != nil {
		l.IsFree = *ul.IsFree
	}
	if ul.Materials != nil {
		l.Materials = append([]Material{}, ul.Materials...)
	}
}

// LessonOrder lists every lesson ID of a course in its new order.
type LessonOrder struct {
	LessonIDs []int `json:"lessonIds" validate:"required,min=1,unique"`
}

// QueryFilter narrows a course listing. Zero fields are ignored.
type QueryFilter struct {
	Category     string   `query:"category"` // case-sensitive; "" or CategoryAll for all
	Search       string   `query:"search"`   // case-insensitive, over title, description and instructor
	Favorite     bool     `query:"favorite"`
	InProgress   bool     `query:"inProgress"`
	Statuses     []Status `query:"status"`
	InstructorID int      `query:"instructorId"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	if qf.Category == CategoryAll {
		qf.Category = ""
	}
}

// Match reports whether c passes every set criterion of the filter.
func (qf QueryFilter) Match(c Course) bool {
	if qf.Category != "" && qf.Category != CategoryAll && c.Category != qf.Category {
		return false
	}
	if search := strings.ToLower(strings.TrimSpace(qf.Search)); search != "" {
		if !(strings.Contains(strings.ToLower(c.Title), search) ||
			strings.Contains(strings.ToLower(c.Description), search) ||
			strings.Contains(strings.ToLower(c.Instructor), search)) {
			return false
		}
	}
	if qf.Favorite && !c.IsFavorite {
		return false
	}
	if qf.InProgress && c.Progress() == 0 {
		return false
	}
	if qf.InstructorID != 0 && c.InstructorID != qf.InstructorID {
		return false
	}
	if len(qf.Statuses) > 0 {
		for _, s := range qf.Statuses {
			if c.Status == s {
				return true
			}
		}
		return false
	}
	return true
}

func cleanTags(tags []string) []string {
	cleaned := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = core.CleanString(t, true /* lower */); t != "" {
			cleaned = append(cleaned, t)
		}
	}
	return cleaned
}
