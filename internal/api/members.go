package api

import (
	"context"
	"net/http"

	"chat-client/internal/models"
)

func (g *Gateway) ListMembers(ctx context.Context) ([]models.MemberSummary, error) {
	return Call[[]models.MemberSummary](ctx, g, http.MethodGet, "/api/v1/find/members", nil)
}
