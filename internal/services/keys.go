package services

import (
	"fmt"
	"time"

	"chat-client/internal/cache"
	"chat-client/internal/models"
)

const (
	KindMe         = "me"
	KindMembers    = "members"
	KindPosts      = "posts"
	KindPost       = "post"
	KindComments   = "comments"
	KindGroupRooms = "group-rooms"
)

const (
	profileStaleTime = 5 * time.Minute
	listStaleTime    = 30 * time.Second
)

func meKey() cache.Key         { return cache.Key{Kind: KindMe} }
func membersKey() cache.Key    { return cache.Key{Kind: KindMembers} }
func groupRoomsKey() cache.Key { return cache.Key{Kind: KindGroupRooms} }

func postsKey(sort models.PostSortType, page, size int) cache.Key {
	return cache.Key{Kind: KindPosts, Params: fmt.Sprintf("%s,%d,%d", sort, page, size)}
}

func postKey(id int64) cache.Key     { return cache.Key{Kind: KindPost, ID: id} }
func commentsKey(id int64) cache.Key { return cache.Key{Kind: KindComments, ID: id} }
