package models

import "time"

// PostSortType selects the ordering of the post list.
type PostSortType string

const (
	SortLatest  PostSortType = "LATEST"
	SortPopular PostSortType = "POPULAR"
)

// PostSummary is a post as shown in list views.
type PostSummary struct {
	ID             int64     `json:"id"`
	Title          string    `json:"title"`
	AuthorID       int64     `json:"authorId"`
	AuthorNickname string    `json:"authorNickname"`
	ViewCount      int       `json:"viewCount"`
	LikeCount      int       `json:"likeCount"`
	CommentCount   int       `json:"commentCount"`
	CreatedAt      time.Time `json:"createdAt"`
}

// PostDetail is a single post. Fetching it increments ViewCount server-side.
type PostDetail struct {
	ID             int64     `json:"id"`
	Title          string    `json:"title"`
	Content        string    `json:"content"`
	AuthorID       int64     `json:"authorId"`
	AuthorNickname string    `json:"authorNickname"`
	ImageURLs      []string  `json:"imageUrls"`
	ViewCount      int       `json:"viewCount"`
	LikeCount      int       `json:"likeCount"`
	IsLiked        bool      `json:"isLiked"`
	CommentCount   int       `json:"commentCount"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Comment belongs to a post.
type Comment struct {
	ID             int64     `json:"id"`
	PostID         int64     `json:"postId"`
	AuthorID       int64     `json:"authorId"`
	AuthorNickname string    `json:"authorNickname"`
	Content        string    `json:"content"`
	LikeCount      int       `json:"likeCount"`
	IsLiked        bool      `json:"isLiked"`
	CreatedAt      time.Time `json:"createdAt"`
}

// LikeStatus is the server-confirmed like state returned by like mutations.
type LikeStatus struct {
	Liked     bool `json:"liked"`
	LikeCount int  `json:"likeCount"`
}

// Page is a paginated list payload.
type Page[T any] struct {
	Items         []T  `json:"items"`
	Page          int  `json:"page"`
	Size          int  `json:"size"`
	TotalElements int  `json:"totalElements"`
	TotalPages    int  `json:"totalPages"`
	Last          bool `json:"last"`
}

// Attachment is an image uploaded with a post.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// PostCreateRequest is sent as multipart form data.
type PostCreateRequest struct {
	Title   string
	Content string
	Images  []Attachment
}

// PostUpdateRequest is sent as multipart form data. RemoveImages is always sent.
type PostUpdateRequest struct {
	Title        string
	Content      string
	RemoveImages bool
	Images       []Attachment
}

// CommentRequest is the body for comment create and update.
type CommentRequest struct {
	Content string `json:"content"`
}
