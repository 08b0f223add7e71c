package session

import (
	"context"

	"github.com/google/uuid"

	"github.com/edukanda/edukanda/core/access"
	"github.com/edukanda/edukanda/core/user"
)

const mockTokenPrefix = "mock_"

type (
	// AuthResponse is the answer to a login or a registration.
	AuthResponse struct {
		Token string    `json:"token"`
		User  user.User `json:"user"`
		Home  string    `json:"home,omitempty"`
	}

	Authenticator interface {
		Login(ctx context.Context, email, pwd string) (AuthResponse, error)
		Register(ctx context.Context, nu user.NewUser) (AuthResponse, error)
	}

	// Manager runs the login, registration and logout flows over a Store.
	Manager struct {
		store *Store
		auth  Authenticator
	}
)

func NewManager(store *Store, auth Authenticator) *Manager {
	return &Manager{store: store, auth: auth}
}

func (m *Manager) Store() *Store { return m.store }

func (m *Manager) finish(ctx context.Context, resp AuthResponse, err error) (AuthResponse, error) {
	if err != nil {
		_ = m.store.Clear(ctx) // the auth error prevails
		return AuthResponse{}, err
	}
	if err := m.store.Save(ctx, resp.Token, resp.User); err != nil {
		return AuthResponse{}, err
	}
	if resp.Home == "" {
		resp.Home = access.HomePath(resp.User.Role)
	}
	return resp, nil
}

// Login authenticates and persists the new session. Any failure clears the persisted session.
func (m *Manager) Login(ctx context.Context, email, pwd string) (AuthResponse, error) {
	resp, err := m.auth.Login(ctx, email, pwd)
	return m.finish(ctx, resp, err)
}

// Register signs up and persists the new session. Any failure clears the persisted session.
func (m *Manager) Register(ctx context.Context, nu user.NewUser) (AuthResponse, error) {
	resp, err := m.auth.Register(ctx, nu)
	return m.finish(ctx, resp, err)
}

func (m *Manager) Logout(ctx context.Context) error {
	return m.store.Clear(ctx)
}

// UserAuthenticator is the part of user.Service the local Authenticator uses.
type UserAuthenticator interface {
	Authenticate(ctx context.Context, email, pwd string) (user.User, error)
	Register(ctx context.Context, nu user.NewUser) (user.User, error)
}

// LocalAuthenticator authenticates against the local user service and mints opaque mock tokens.
type LocalAuthenticator struct {
	users UserAuthenticator
}

var _ Authenticator = LocalAuthenticator{}

func NewLocalAuthenticator(users UserAuthenticator) LocalAuthenticator {
	return LocalAuthenticator{users: users}
}

func newMockToken() string {
	return mockTokenPrefix + uuid.NewString()
}

func (a LocalAuthenticator) Login(ctx context.Context, email, pwd string) (AuthResponse, error) {
	usr, err := a.users.Authenticate(ctx, email, pwd)
	if err != nil {
		return AuthResponse{}, err
	}
	return AuthResponse{Token: newMockToken(), User: usr, Home: access.HomePath(usr.Role)}, nil
}

func (a LocalAuthenticator) Register(ctx context.Context, nu user.NewUser) (AuthResponse, error) {
	usr, err := a.users.Register(ctx, nu)
	if err != nil {
		return AuthResponse{}, err
	}
	return AuthResponse{Token: newMockToken(), User: usr, Home: access.HomePath(usr.Role)}, nil
}
