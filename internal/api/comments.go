package api

import (
	"context"
	"fmt"
	"net/http"

	"chat-client/internal/models"
)

func commentsPath(postID int64) string {
	return fmt.Sprintf("/api/v1/posts/%d/comments", postID)
}

func (g *Gateway) ListComments(ctx context.Context, postID int64) ([]models.Comment, error) {
	return Call[[]models.Comment](ctx, g, http.MethodGet, commentsPath(postID), nil)
}

func (g *Gateway) CreateComment(ctx context.Context, postID int64, req models.CommentRequest) (models.Comment, error) {
	return Call[models.Comment](ctx, g, http.MethodPost, commentsPath(postID), req)
}

func (g *Gateway) UpdateComment(ctx context.Context, postID, commentID int64, req models.CommentRequest) (models.Comment, error) {
	return Call[models.Comment](ctx, g, http.MethodPatch, fmt.Sprintf("%s/%d", commentsPath(postID), commentID), req)
}

func (g *Gateway) DeleteComment(ctx context.Context, postID, commentID int64) error {
	return g.Do(ctx, http.MethodDelete, fmt.Sprintf("%s/%d", commentsPath(postID), commentID), nil, nil)
}

func (g *Gateway) ToggleCommentLike(ctx context.Context, postID, commentID int64, currentlyLiked bool) (models.LikeStatus, error) {
	path := fmt.Sprintf("%s/%d/likes", commentsPath(postID), commentID)
	return Call[models.LikeStatus](ctx, g, likeMethod(currentlyLiked), path, nil)
}
