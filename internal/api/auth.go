package api

import (
	"context"
	"errors"
	"net/http"

	"chat-client/internal/models"
)

// Me returns the current member. A rejected or missing session yields nil without error.
func (g *Gateway) Me(ctx context.Context) (*models.MyProfile, error) {
	profile, err := Call[*models.MyProfile](ctx, g, http.MethodGet, "/api/v1/members/me", nil)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return nil, nil
		}
		return nil, err
	}
	return profile, nil
}

// Login exchanges credentials for a bearer token.
func (g *Gateway) Login(ctx context.Context, req models.LoginRequest) (string, error) {
	return Call[string](ctx, g, http.MethodPost, "/api/v1/auth/login", req)
}

func (g *Gateway) Signup(ctx context.Context, req models.JoinRequest) error {
	return g.Do(ctx, http.MethodPost, "/api/v1/auth/join", req, nil)
}

func (g *Gateway) Logout(ctx context.Context) error {
	return g.Do(ctx, http.MethodPost, "/api/v1/auth/logout", nil, nil)
}
