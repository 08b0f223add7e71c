package sqlxrepos

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/edukanda/edukanda/core"
	"github.com/edukanda/edukanda/core/ranking"
	"github.com/edukanda/edukanda/core/user"
)

const userColumns = `id, name, email, role, status, avatar, bio, password_hash,
	points, rank, courses_completed, courses_in_progress, certificates,
	total_courses, total_students, total_revenue, average_rating,
	created_at, updated_at, last_login`

// userOrderings maps user.OrderingFields to columns.
var userOrderings = map[string]string{
	"id":        "id",
	"name":      "LOWER(name)",
	"email":     "email",
	"role":      "role",
	"status":    "status",
	"points":    "points",
	"rank":      "rank",
	"createdAt": "created_at",
	"lastLogin": "last_login",
}

type userRow struct {
	ID                int       `db:"id"`
	Name              string    `db:"name"`
	Email             string    `db:"email"`
	Role              string    `db:"role"`
	Status            string    `db:"status"`
	Avatar            string    `db:"avatar"`
	Bio               string    `db:"bio"`
	PasswordHash      []byte    `db:"password_hash"`
	Points            int       `db:"points"`
	Rank              int       `db:"rank"`
	CoursesCompleted  int       `db:"courses_completed"`
	CoursesInProgress int       `db:"courses_in_progress"`
	Certificates      int       `db:"certificates"`
	TotalCourses      int       `db:"total_courses"`
	TotalStudents     int       `db:"total_students"`
	TotalRevenue      float64   `db:"total_revenue"`
	AverageRating     float64   `db:"average_rating"`
	CreatedAt         time.Time `db:"created_at"`
	UpdatedAt         time.Time `db:"updated_at"`
	LastLogin         null.Time `db:"last_login"`
}

func toUserRow(usr user.User) userRow {
	return userRow{
		ID:                usr.ID,
		Name:              usr.Name,
		Email:             usr.Email,
		Role:              usr.Role,
		Status:            string(usr.Status),
		Avatar:            usr.Avatar,
		Bio:               usr.Bio,
		PasswordHash:      usr.PasswordHash,
		Points:            usr.Points,
		Rank:              usr.Rank,
		CoursesCompleted:  usr.CoursesCompleted,
		CoursesInProgress: usr.CoursesInProgress,
		Certificates:      usr.Certificates,
		TotalCourses:      usr.TotalCourses,
		TotalStudents:     usr.TotalStudents,
		TotalRevenue:      usr.TotalRevenue,
		AverageRating:     usr.AverageRating,
		CreatedAt:         usr.CreatedAt.UTC(),
		UpdatedAt:         usr.UpdatedAt.UTC(),
		LastLogin:         null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
	}
}

func (row userRow) user() user.User {
	return user.User{
		ID:           row.ID,
		Name:         row.Name,
		Email:        row.Email,
		Role:         row.Role,
		Status:       user.Status(row.Status),
		Avatar:       row.Avatar,
		Bio:          row.Bio,
		PasswordHash: row.PasswordHash,
		StudentStats: user.StudentStats{
			Points:            row.Points,
			Rank:              row.Rank,
			CoursesCompleted:  row.CoursesCompleted,
			CoursesInProgress: row.CoursesInProgress,
			Certificates:      row.Certificates,
		},
		TeacherStats: user.TeacherStats{
			TotalCourses:  row.TotalCourses,
			TotalStudents: row.TotalStudents,
			TotalRevenue:  row.TotalRevenue,
			AverageRating: row.AverageRating,
		},
		CreatedAt: row.CreatedAt.UTC(),
		UpdatedAt: row.UpdatedAt.UTC(),
		LastLogin: row.LastLogin.Time.UTC(),
	}
}

type userRepository struct {
	db *sqlx.DB
}

var (
	_ user.Repository    = (*userRepository)(nil) // interface compliance check
	_ ranking.Source     = (*userRepository)(nil)
	_ ranking.RankWriter = (*userRepository)(nil)
)

func NewUserRepository(db *sqlx.DB) *userRepository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...user.User) error {
	ids := make([]int64, 0, len(excludedUsers))
	for _, u := range excludedUsers {
		ids = append(ids, int64(u.ID))
	}
	var exists bool
	q := `SELECT EXISTS (SELECT 1 FROM users WHERE LOWER(email) = LOWER($1) AND NOT (id = ANY($2)))`
	if err := repo.db.GetContext(ctx, &exists, q, email, pq.Array(ids)); err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if exists {
		return user.ErrEmailExists
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	q := `INSERT INTO users (
		name, email, role, status, avatar, bio, password_hash,
		points, rank, courses_completed, courses_in_progress, certificates,
		total_courses, total_students, total_revenue, average_rating,
		created_at, updated_at, last_login
	) VALUES (
		:name, :email, :role, :status, :avatar, :bio, :password_hash,
		:points, :rank, :courses_completed, :courses_in_progress, :certificates,
		:total_courses, :total_students, :total_revenue, :average_rating,
		:created_at, :updated_at, :last_login
	) RETURNING id`
	id, err := insertReturningID(ctx, repo.db, q, toUserRow(usr))
	if err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	usr.ID = id
	return usr, nil
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	var (
		row userRow
		err error
	)
	switch {
	case filter.ID != 0:
		err = repo.db.GetContext(ctx, &row, `SELECT `+userColumns+` FROM users WHERE id = $1`, filter.ID)
	case filter.Email != "":
		err = repo.db.GetContext(ctx, &row, `SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`, filter.Email)
	default:
		return user.User{}, user.ErrNotFound
	}
	if err != nil {
		return user.User{}, trapNoRows(err, user.ErrNotFound, "selecting user")
	}
	return row.user(), nil
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter user.QueryFilter, orderings ...core.DBOrdering) ([]user.User, error) {
	var (
		where []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Search != "" {
		p := arg("%" + filter.Search + "%")
		where = append(where, fmt.Sprintf("(name ILIKE %s OR email ILIKE %s)", p, p))
	}
	if len(filter.Roles) > 0 {
		where = append(where, "role = ANY("+arg(pq.Array(filter.Roles))+")")
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, s := range filter.Statuses {
			statuses = append(statuses, string(s))
		}
		where = append(where, "status = ANY("+arg(pq.Array(statuses))+")")
	}

	q := `SELECT ` + userColumns + ` FROM users`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY " + orderBy(orderings, userOrderings)

	var rows []userRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "selecting users")
	}
	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.user())
	}
	return users, nil
}

// orderBy renders orderings over the allowed columns, always ending with id.
func orderBy(orderings []core.DBOrdering, columns map[string]string) string {
	terms := make([]string, 0, len(orderings)+1)
	for _, ord := range orderings {
		if col, ok := columns[ord.Field]; ok {
			terms = append(terms, core.DBOrdering{Field: col, Ascending: ord.Ascending}.String())
		}
	}
	return strings.Join(append(terms, "id ASC"), ", ")
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	pwdSet := ""
	if usr.PasswordHash != nil {
		pwdSet = "password_hash = :password_hash,"
	}
	q := `UPDATE users SET
		name = :name, email = :email, role = :role, status = :status, avatar = :avatar, bio = :bio,
		` + pwdSet + `
		total_courses = :total_courses, total_students = :total_students,
		total_revenue = :total_revenue, average_rating = :average_rating,
		updated_at = :updated_at, last_login = :last_login
	WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, toUserRow(usr))
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return repo.GetUser(ctx, user.GetFilter{ID: usr.ID})
}

func (repo *userRepository) IncrementStats(ctx context.Context, id int, delta user.StudentStats) (user.User, error) {
	q := `UPDATE users SET
		points = points + $2,
		courses_completed = courses_completed + $3,
		courses_in_progress = GREATEST(courses_in_progress + $4, 0),
		certificates = certificates + $5
	WHERE id = $1
	RETURNING ` + userColumns
	var row userRow
	err := repo.db.QueryRowxContext(ctx, q, id, delta.Points, delta.CoursesCompleted, delta.CoursesInProgress, delta.Certificates).
		StructScan(&row)
	if err != nil {
		return user.User{}, trapNoRows(err, user.ErrNotFound, "incrementing user stats")
	}
	return row.user(), nil
}

func (repo *userRepository) SetRanks(ctx context.Context, ranks map[int]int) error {
	return withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		stmt, err := tx.PreparexContext(ctx, `UPDATE users SET rank = $2 WHERE id = $1`)
		if err != nil {
			return errors.Wrap(err, "preparing rank update")
		}
		defer func() { _ = stmt.Close() }()

		for id, rank := range ranks {
			if _, err := stmt.ExecContext(ctx, id, rank); err != nil {
				return errors.Wrapf(err, "setting rank of user %d", id)
			}
		}
		return nil
	})
}

// RankingEntries returns the active students, ordered by ID.
func (repo *userRepository) RankingEntries(ctx context.Context) ([]ranking.Entry, error) {
	var rows []struct {
		ID     int    `db:"id"`
		Name   string `db:"name"`
		Avatar string `db:"avatar"`
		Points int    `db:"points"`
		Rank   int    `db:"rank"`
	}
	q := `SELECT id, name, avatar, points, rank FROM users WHERE role = $1 AND status = $2 ORDER BY id`
	if err := repo.db.SelectContext(ctx, &rows, q, user.RoleStudent, string(user.StatusActive)); err != nil {
		return nil, errors.Wrap(err, "selecting ranking entries")
	}
	entries := make([]ranking.Entry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, ranking.Entry{ID: r.ID, Name: r.Name, Avatar: r.Avatar, Points: r.Points, Rank: r.Rank})
	}
	return entries, nil
}
