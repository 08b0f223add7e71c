// Package access holds the role-scoped route gate shared by every surface.
package access

import (
	"sort"
	"strings"

	"github.com/edukanda/edukanda/core/user"
)

const LoginPath = "/login"

type Action int

const (
	Render Action = iota
	RedirectLogin
	RedirectHome
)

func (a Action) String() string {
	switch a {
	case RedirectLogin:
		return "redirect-login"
	case RedirectHome:
		return "redirect-home"
	}
	return "render"
}

// Decision is the outcome of a gate check. Path is set for redirects.
type Decision struct {
	Action Action
	Path   string
}

var homes = map[string]string{
	user.RoleStudent: "/student/dashboard",
	user.RoleTeacher: "/teacher/dashboard",
	user.RoleAdmin:   "/admin/dashboard",
}

// HomePath returns the dashboard of role, or LoginPath for an unknown role.
func HomePath(role string) string {
	if p, ok := homes[role]; ok {
		return p
	}
	return LoginPath
}

// Decide gates a page restricted to allowedRoles. No allowedRoles means any authenticated user.
func Decide(isAuthenticated bool, role string, allowedRoles ...string) Decision {
	if !isAuthenticated {
		return Decision{Action: RedirectLogin, Path: LoginPath}
	}
	if len(allowedRoles) > 0 && !hasRole(role, allowedRoles) {
		return Decision{Action: RedirectHome, Path: HomePath(role)}
	}
	return Decision{Action: Render}
}

func hasRole(role string, roles []string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// Route is a protected page. Public pages are not listed.
type Route struct {
	Path  string
	Roles []string
}

var Routes = []Route{
	{Path: "/student/dashboard", Roles: []string{user.RoleStudent}},
	{Path: "/student/courses", Roles: []string{user.RoleStudent}},
	{Path: "/student/progress", Roles: []string{user.RoleStudent}},
	{Path: "/student/certificates", Roles: []string{user.RoleStudent}},
	{Path: "/student/ranking", Roles: []string{user.RoleStudent}},
	{Path: "/student/favorites", Roles: []string{user.RoleStudent}},
	{Path: "/student/profile", Roles: []string{user.RoleStudent}},
	{Path: "/student/settings", Roles: []string{user.RoleStudent}},
	{Path: "/teacher/dashboard", Roles: []string{user.RoleTeacher}},
	{Path: "/teacher/courses", Roles: []string{user.RoleTeacher}},
	{Path: "/teacher/students", Roles: []string{user.RoleTeacher}},
	{Path: "/teacher/analytics", Roles: []string{user.RoleTeacher}},
	{Path: "/teacher/profile", Roles: []string{user.RoleTeacher}},
	{Path: "/admin/dashboard", Roles: []string{user.RoleAdmin}},
	{Path: "/admin/users", Roles: []string{user.RoleAdmin}},
	{Path: "/admin/courses", Roles: []string{user.RoleAdmin}},
	{Path: "/admin/reports", Roles: []string{user.RoleAdmin}},
	{Path: "/admin/settings", Roles: []string{user.RoleAdmin}},
	{Path: "/course", Roles: nil},
}

// Lookup returns the route guarding path: the longest route that is path itself or one of its parents.
func Lookup(path string) (Route, bool) {
	path = "/" + strings.Trim(path, "/")
	matches := make([]Route, 0, 1)
	for _, r := range Routes {
		if path == r.Path || strings.HasPrefix(path, r.Path+"/") {
			matches = append(matches, r)
		}
	}
	if len(matches) == 0 {
		return Route{}, false
	}
	sort.Slice(matches, func(i, j int) bool { return len(matches[i].Path) > len(matches[j].Path) })
	return matches[0], true
}

// Session is the identity a gate check runs against.
type Session interface {
	IsAuthenticated() bool
	Role() string
}

// Gate decides whether sess may open path. Paths without a route are public.
func Gate(sess Session, path string) Decision {
	r, ok := Lookup(path)
	if !ok {
		return Decision{Action: Render}
	}
	return Decide(sess.IsAuthenticated(), sess.Role(), r.Roles...)
}
