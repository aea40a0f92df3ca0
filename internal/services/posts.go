package services

import (
	"context"
	"fmt"
	"strings"

	"chat-client/internal/cache"
	"chat-client/internal/models"
	"chat-client/internal/telemetry"
)

type PostsAPI interface {
	ListPosts(ctx context.Context, sort models.PostSortType, page, size int) (models.Page[models.PostSummary], error)
	GetPost(ctx context.Context, postID int64) (models.PostDetail, error)
	CreatePost(ctx context.Context, req models.PostCreateRequest) (models.PostDetail, error)
	UpdatePost(ctx context.Context, postID int64, req models.PostUpdateRequest) (models.PostDetail, error)
	DeletePost(ctx context.Context, postID int64) error
	TogglePostLike(ctx context.Context, postID int64, currentlyLiked bool) (models.LikeStatus, error)
	ListComments(ctx context.Context, postID int64) ([]models.Comment, error)
	CreateComment(ctx context.Context, postID int64, req models.CommentRequest) (models.Comment, error)
	UpdateComment(ctx context.Context, postID, commentID int64, req models.CommentRequest) (models.Comment, error)
	DeleteComment(ctx context.Context, postID, commentID int64) error
	ToggleCommentLike(ctx context.Context, postID, commentID int64, currentlyLiked bool) (models.LikeStatus, error)
}

type memberSource interface {
	MemberID() int64
}

type PostService struct {
	api    PostsAPI
	cache  *cache.Cache
	events *telemetry.EventEmitter
	creds  memberSource
}

func NewPostService(api PostsAPI, c *cache.Cache, events *telemetry.EventEmitter, creds memberSource) *PostService {
	return &PostService{api: api, cache: c, events: events, creds: creds}
}

var postLike = cache.Accessor(
	func(p models.PostDetail) (cache.LikeState, bool) {
		return cache.LikeState{Liked: p.IsLiked, Count: p.LikeCount}, true
	},
	func(p models.PostDetail, s cache.LikeState) models.PostDetail {
		p.IsLiked = s.Liked
		p.LikeCount = s.Count
		return p
	},
)

func commentLike(commentID int64) cache.LikeAccessor {
	find := func(list []models.Comment) int {
		for i, c := range list {
			if c.ID == commentID {
				return i
			}
		}
		return -1
	}
	return cache.Accessor(
		func(list []models.Comment) (cache.LikeState, bool) {
			i := find(list)
			if i < 0 {
				return cache.LikeState{}, false
			}
			return cache.LikeState{Liked: list[i].IsLiked, Count: list[i].LikeCount}, true
		},
		func(list []models.Comment, s cache.LikeState) []models.Comment {
			out := append([]models.Comment(nil), list...)
			if i := find(out); i >= 0 {
				out[i].IsLiked = s.Liked
				out[i].LikeCount = s.Count
			}
			return out
		},
	)
}

func (s *PostService) List(ctx context.Context, sort models.PostSortType, page, size int) (models.Page[models.PostSummary], error) {
	if sort == "" {
		sort = models.SortLatest
	}
	if size <= 0 {
		size = 20
	}
	return cache.FetchAs(ctx, s.cache, postsKey(sort, page, size), listStaleTime,
		func(ctx context.Context) (models.Page[models.PostSummary], error) {
			return s.api.ListPosts(ctx, sort, page, size)
		})
}

// Detail always hits the backend; every call counts as a view there.
func (s *PostService) Detail(ctx context.Context, postID int64) (models.PostDetail, error) {
	return cache.FetchAs(ctx, s.cache, postKey(postID), 0,
		func(ctx context.Context) (models.PostDetail, error) {
			return s.api.GetPost(ctx, postID)
		})
}

// Cached returns the last loaded detail without contacting the backend.
func (s *PostService) Cached(postID int64) (models.PostDetail, bool) {
	return cache.GetAs[models.PostDetail](s.cache, postKey(postID))
}

func (s *PostService) Create(ctx context.Context, req models.PostCreateRequest) (models.PostDetail, error) {
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Content) == "" {
		return models.PostDetail{}, fmt.Errorf("title and content required: %w", models.ErrValidation)
	}
	post, err := s.api.CreatePost(ctx, req)
	if err != nil {
		return models.PostDetail{}, fmt.Errorf("create post: %w", err)
	}
	s.cache.Invalidate(KindPosts)
	s.events.Emit(ctx, telemetry.RoutingFeed, "post_created", s.creds.MemberID(), map[string]any{"post_id": post.ID})
	return post, nil
}

func (s *PostService) Update(ctx context.Context, postID int64, req models.PostUpdateRequest) (models.PostDetail, error) {
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Content) == "" {
		return models.PostDetail{}, fmt.Errorf("title and content required: %w", models.ErrValidation)
	}
	post, err := s.api.UpdatePost(ctx, postID, req)
	if err != nil {
		return models.PostDetail{}, fmt.Errorf("update post %d: %w", postID, err)
	}
	s.cache.Invalidate(KindPosts)
	s.cache.Invalidate(KindPost, postID)
	return post, nil
}

func (s *PostService) Delete(ctx context.Context, postID int64) error {
	if err := s.api.DeletePost(ctx, postID); err != nil {
		return fmt.Errorf("delete post %d: %w", postID, err)
	}
	s.cache.Invalidate(KindPosts)
	s.cache.Remove(postKey(postID))
	s.cache.Remove(commentsKey(postID))
	return nil
}

// ToggleLike flips the like on a loaded post. The detail entry is patched, not refetched.
func (s *PostService) ToggleLike(ctx context.Context, postID int64) (models.LikeStatus, error) {
	state, err := s.cache.ToggleLike(ctx, postKey(postID), postLike,
		func(ctx context.Context, currentlyLiked bool) (cache.LikeState, error) {
			status, err := s.api.TogglePostLike(ctx, postID, currentlyLiked)
			return cache.LikeState{Liked: status.Liked, Count: status.LikeCount}, err
		}, KindPosts)
	if err != nil {
		return models.LikeStatus{}, fmt.Errorf("toggle like on post %d: %w", postID, err)
	}
	return models.LikeStatus{Liked: state.Liked, LikeCount: state.Count}, nil
}

func (s *PostService) Comments(ctx context.Context, postID int64) ([]models.Comment, error) {
	return cache.FetchAs(ctx, s.cache, commentsKey(postID), listStaleTime,
		func(ctx context.Context) ([]models.Comment, error) {
			return s.api.ListComments(ctx, postID)
		})
}

func (s *PostService) CreateComment(ctx context.Context, postID int64, content string) (models.Comment, error) {
	if strings.TrimSpace(content) == "" {
		return models.Comment{}, fmt.Errorf("empty comment: %w", models.ErrValidation)
	}
	c, err := s.api.CreateComment(ctx, postID, models.CommentRequest{Content: content})
	if err != nil {
		return models.Comment{}, fmt.Errorf("comment on post %d: %w", postID, err)
	}
	s.cache.Invalidate(KindComments, postID)
	return c, nil
}

func (s *PostService) UpdateComment(ctx context.Context, postID, commentID int64, content string) (models.Comment, error) {
	if strings.TrimSpace(content) == "" {
		return models.Comment{}, fmt.Errorf("empty comment: %w", models.ErrValidation)
	}
	c, err := s.api.UpdateComment(ctx, postID, commentID, models.CommentRequest{Content: content})
	if err != nil {
		return models.Comment{}, fmt.Errorf("update comment %d: %w", commentID, err)
	}
	s.cache.Invalidate(KindComments, postID)
	return c, nil
}

func (s *PostService) DeleteComment(ctx context.Context, postID, commentID int64) error {
	if err := s.api.DeleteComment(ctx, postID, commentID); err != nil {
		return fmt.Errorf("delete comment %d: %w", commentID, err)
	}
	s.cache.Invalidate(KindComments, postID)
	return nil
}

// ToggleCommentLike flips the like on a comment in the loaded comment list.
func (s *PostService) ToggleCommentLike(ctx context.Context, postID, commentID int64) (models.LikeStatus, error) {
	state, err := s.cache.ToggleLike(ctx, commentsKey(postID), commentLike(commentID),
		func(ctx context.Context, currentlyLiked bool) (cache.LikeState, error) {
			status, err := s.api.ToggleCommentLike(ctx, postID, commentID, currentlyLiked)
			return cache.LikeState{Liked: status.Liked, Count: status.LikeCount}, err
		}, KindComments)
	if err != nil {
		return models.LikeStatus{}, fmt.Errorf("toggle like on comment %d: %w", commentID, err)
	}
	return models.LikeStatus{Liked: state.Liked, LikeCount: state.Count}, nil
}
