package inmemdb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/edukanda/edukanda/core"
	"github.com/edukanda/edukanda/core/ranking"
	"github.com/edukanda/edukanda/core/user"
)

type userRepository struct {
	db *DB
}

var (
	_ user.Repository    = (*userRepository)(nil) // interface compliance check
	_ ranking.Source     = (*userRepository)(nil)
	_ ranking.RankWriter = (*userRepository)(nil)
)

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db}
}

func (repo *userRepository) table() *userTable { return repo.db.user }

// query returns a copy of every user, ordered by ID.
func (repo *userRepository) query() []user.User {
	users := make([]user.User, 0, len(repo.table().table))
	for _, u := range repo.table().table {
		users = append(users, *u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users
}

func (repo *userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...user.User) error {
	if err := repo.db.delay(ctx); err != nil {
		return err
	}
	tbl := repo.table()
	tbl.RLock()
	defer tbl.RUnlock()

	email = strings.ToLower(email)
	for _, usr := range tbl.table {
		if strings.ToLower(usr.Email) == email && !isExcluded(*usr, excludedUsers) {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	if err := repo.db.delay(ctx); err != nil {
		return user.User{}, err
	}
	tbl := repo.table()
	tbl.Lock()
	defer tbl.Unlock()

	tbl.pk++
	usr.ID = tbl.pk
	tbl.table[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	if err := repo.db.delay(ctx); err != nil {
		return user.User{}, err
	}
	tbl := repo.table()
	tbl.RLock()
	defer tbl.RUnlock()

	if filter.ID != 0 {
		if usr, ok := tbl.table[filter.ID]; ok {
			return *usr, nil
		}
		return user.User{}, user.ErrNotFound
	}
	if filter.Email != "" {
		for _, usr := range tbl.table {
			if strings.EqualFold(usr.Email, filter.Email) {
				return *usr, nil
			}
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter user.QueryFilter, orderings ...core.DBOrdering) ([]user.User, error) {
	if err := repo.db.delay(ctx); err != nil {
		return nil, err
	}
	tbl := repo.table()
	tbl.RLock()
	users := repo.query()
	tbl.RUnlock()

	filtered := make([]user.User, 0, len(users))
	search := strings.ToLower(filter.Search)
	for _, u := range users {
		// users with search keyword matching any Name or Email ?
		if search != "" &&
			!strings.Contains(strings.ToLower(u.Name), search) &&
			!strings.Contains(strings.ToLower(u.Email), search) {
			continue
		}
		// users with any of the specified roles
		if len(filter.Roles) > 0 && !containsString(filter.Roles, u.Role) {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, u.Status) {
			continue
		}
		filtered = append(filtered, u)
	}

	if len(orderings) > 0 {
		sort.SliceStable(filtered, func(i, j int) bool {
			for _, ord := range orderings {
				c := compareUsers(filtered[i], filtered[j], ord.Field)
				if c == 0 {
					continue
				}
				if ord.Ascending {
					return c < 0
				}
				return c > 0
			}
			return false
		})
	}
	return filtered, nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	if err := repo.db.delay(ctx); err != nil {
		return user.User{}, err
	}
	tbl := repo.table()
	tbl.Lock()
	defer tbl.Unlock()

	origUsr, ok := tbl.table[usr.ID]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	if usr.PasswordHash == nil {
		usr.PasswordHash = origUsr.PasswordHash
	}
	tbl.table[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) IncrementStats(ctx context.Context, id int, delta user.StudentStats) (user.User, error) {
	if err := repo.db.delay(ctx); err != nil {
		return user.User{}, err
	}
	tbl := repo.table()
	tbl.Lock()
	defer tbl.Unlock()

	usr, ok := tbl.table[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	usr.Points += delta.Points
	usr.CoursesCompleted += delta.CoursesCompleted
	usr.CoursesInProgress += delta.CoursesInProgress
	if usr.CoursesInProgress < 0 {
		usr.CoursesInProgress = 0
	}
	usr.Certificates += delta.Certificates
	return *usr, nil
}

func (repo *userRepository) SetRanks(ctx context.Context, ranks map[int]int) error {
	if err := repo.db.delay(ctx); err != nil {
		return err
	}
	tbl := repo.table()
	tbl.Lock()
	defer tbl.Unlock()

	for id, rank := range ranks {
		if usr, ok := tbl.table[id]; ok {
			usr.Rank = rank
		}
	}
	return nil
}

// RankingEntries returns the active students, ordered by ID.
func (repo *userRepository) RankingEntries(ctx context.Context) ([]ranking.Entry, error) {
	if err := repo.db.delay(ctx); err != nil {
		return nil, err
	}
	tbl := repo.table()
	tbl.RLock()
	defer tbl.RUnlock()

	entries := make([]ranking.Entry, 0)
	for _, u := range repo.query() {
		if u.IsStudent() && u.IsActive() {
			entries = append(entries, ranking.Entry{ID: u.ID, Name: u.Name, Avatar: u.Avatar, Points: u.Points, Rank: u.Rank})
		}
	}
	return entries, nil
}

func isExcluded(usr user.User, excludedUsers []user.User) bool {
	for _, u := range excludedUsers {
		if u.ID == usr.ID {
			return true
		}
	}
	return false
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsStatus(list []user.Status, s user.Status) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func compareInts(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compareTimes(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}

func compareUsers(a, b user.User, field string) int {
	switch field {
	case "id":
		return compareInts(a.ID, b.ID)
	case "name":
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	case "email":
		return strings.Compare(a.Email, b.Email)
	case "role":
		return strings.Compare(a.Role, b.Role)
	case "status":
		return strings.Compare(string(a.Status), string(b.Status))
	case "points":
		return compareInts(a.Points, b.Points)
	case "rank":
		return compareInts(a.Rank, b.Rank)
	case "createdAt":
		return compareTimes(a.CreatedAt, b.CreatedAt)
	case "lastLogin":
		return compareTimes(a.LastLogin, b.LastLogin)
	}
	return 0
}
