package remote

import (
	"context"

	"github.com/sendgrid/rest"

	"github.com/edukanda/edukanda/core/session"
	"github.com/edukanda/edukanda/core/user"
)

type Authenticator struct {
	client *Client
}

var _ session.Authenticator = (*Authenticator)(nil) // interface compliance check

func NewAuthenticator(client *Client) *Authenticator {
	return &Authenticator{client: client}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (a *Authenticator) Login(ctx context.Context, email, pwd string) (session.AuthResponse, error) {
	var resp session.AuthResponse
	err := a.client.do(ctx, rest.Post, "/users/login", nil, loginRequest{Email: email, Password: pwd}, &resp, nil)
	return resp, err
}

func (a *Authenticator) Register(ctx context.Context, nu user.NewUser) (session.AuthResponse, error) {
	var resp session.AuthResponse
	err := a.client.do(ctx, rest.Post, "/users/register", nil, nu, &resp, nil)
	return resp, err
}
