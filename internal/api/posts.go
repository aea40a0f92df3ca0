package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"chat-client/internal/models"
)

func (g *Gateway) ListPosts(ctx context.Context, sort models.PostSortType, page, size int) (models.Page[models.PostSummary], error) {
	q := url.Values{}
	q.Set("sort", string(sort))
	q.Set("page", strconv.Itoa(page))
	q.Set("size", strconv.Itoa(size))
	return Call[models.Page[models.PostSummary]](ctx, g, http.MethodGet, "/api/v1/posts?"+q.Encode(), nil)
}

// GetPost fetches one post. The backend counts every call as a view.
func (g *Gateway) GetPost(ctx context.Context, postID int64) (models.PostDetail, error) {
	return Call[models.PostDetail](ctx, g, http.MethodGet, fmt.Sprintf("/api/v1/posts/%d", postID), nil)
}

func (g *Gateway) CreatePost(ctx context.Context, req models.PostCreateRequest) (models.PostDetail, error) {
	form := (&Form{}).Field("title", req.Title).Field("content", req.Content)
	for _, img := range req.Images {
		form.File("images", img)
	}
	return CallMultipart[models.PostDetail](ctx, g, http.MethodPost, "/api/v1/posts", form)
}

func (g *Gateway) UpdatePost(ctx context.Context, postID int64, req models.PostUpdateRequest) (models.PostDetail, error) {
	form := (&Form{}).
		Field("title", req.Title).
		Field("content", req.Content).
		Field("removeImages", strconv.FormatBool(req.RemoveImages))
	for _, img := range req.Images {
		form.File("images", img)
	}
	return CallMultipart[models.PostDetail](ctx, g, http.MethodPatch, fmt.Sprintf("/api/v1/posts/%d", postID), form)
}

func (g *Gateway) DeletePost(ctx context.Context, postID int64) error {
	return g.Do(ctx, http.MethodDelete, fmt.Sprintf("/api/v1/posts/%d", postID), nil, nil)
}

// TogglePostLike removes the like when currentlyLiked, otherwise adds it.
func (g *Gateway) TogglePostLike(ctx context.Context, postID int64, currentlyLiked bool) (models.LikeStatus, error) {
	return Call[models.LikeStatus](ctx, g, likeMethod(currentlyLiked), fmt.Sprintf("/api/v1/posts/%d/likes", postID), nil)
}

func likeMethod(currentlyLiked bool) string {
	if currentlyLiked {
		return http.MethodDelete
	}
	return http.MethodPost
}
