// Package remote implements the data sources over the EduKanda REST API.
package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/edukanda/edukanda/core"
)

const apiPrefix = "/v1"

// TokenSource provides the bearer token of the current session. session.Store is one.
type TokenSource interface {
	Token() string
}

type Client struct {
	baseURL string
	tokens  TokenSource
	http    *rest.Client
}

// New returns a Client for the API served at baseURL (e.g. "http://localhost:8000").
func New(baseURL string, tokens TokenSource, timeout time.Duration) (*Client, error) {
	if err := vala.BeginValidation().Validate(
		vala.StringNotEmpty(baseURL, "baseURL"),
		vala.IsNotNil(tokens, "tokens"),
	).Check(); err != nil {
		return nil, err
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/") + apiPrefix,
		tokens:  tokens,
		http:    &rest.Client{HTTPClient: &http.Client{Timeout: timeout}},
	}, nil
}

// transportError reads an API error body: {"error": "..."} or a map of field errors.
func transportError(status int, body string) *core.TransportError {
	tErr := &core.TransportError{Status: status, Title: http.StatusText(status)}

	var payload map[string]interface{}
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		tErr.Message = strings.TrimSpace(body)
		return tErr
	}
	if msg, ok := payload["error"].(string); ok {
		tErr.Message = msg
		return tErr
	}
	msgs := make([]string, 0, len(payload))
	for field, v := range payload {
		if msg, ok := v.(string); ok && field != "redirect" {
			msgs = append(msgs, field+": "+msg)
		}
	}
	tErr.Message = strings.Join(msgs, "; ")
	return tErr
}

// do sends a request and decodes the response body into out when out is not nil.
// A 404 answer returns notFound.
func (c *Client) do(
	ctx context.Context,
	method rest.Method,
	path string,
	query map[string]string,
	in, out interface{},
	notFound error,
) error {
	req := rest.Request{
		Method:      method,
		BaseURL:     c.baseURL + path,
		QueryParams: query,
		Headers: map[string]string{
			"Accept":       "application/json",
			"Content-Type": "application/json",
		},
	}
	if token := c.tokens.Token(); token != "" {
		req.Headers["Authorization"] = "Bearer " + token
	}
	if in != nil {
		body, err := json.Marshal(in)
		if err != nil {
			return errors.Wrap(err, "encoding request body")
		}
		req.Body = body
	}

	hr, err := rest.BuildRequestObject(req)
	if err != nil {
		return errors.Wrapf(err, "building %s %s", method, path)
	}
	res, err := c.http.MakeRequest(hr.WithContext(ctx))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &core.TransportError{
			Title:   "Network error",
			Message: "Could not reach the server. Check your connection and try again.",
			Err:     err,
		}
	}

	resp, err := rest.BuildResponse(res)
	if err != nil {
		return errors.Wrapf(err, "reading %s %s", method, path)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound && notFound != nil:
		return notFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return transportError(resp.StatusCode, resp.Body)
	}
	if out != nil && resp.Body != "" {
		if err := json.Unmarshal([]byte(resp.Body), out); err != nil {
			return errors.Wrapf(err, "decoding %s %s", method, path)
		}
	}
	return nil
}
