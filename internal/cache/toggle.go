package cache

import (
	"context"

	"chat-client/internal/observability"
)

// LikeState is the flag and counter a like toggle flips.
type LikeState struct {
	Liked bool
	Count int
}

// LikeAccessor reads and replaces the like state inside a cached value.
// Set must return a new value and leave its argument untouched.
type LikeAccessor struct {
	Get func(value any) (LikeState, bool)
	Set func(value any, state LikeState) any
}

// Accessor builds a LikeAccessor for values of type T.
func Accessor[T any](get func(T) (LikeState, bool), set func(T, LikeState) T) LikeAccessor {
	return LikeAccessor{
		Get: func(v any) (LikeState, bool) {
			t, ok := v.(T)
			if !ok {
				return LikeState{}, false
			}
			return get(t)
		},
		Set: func(v any, s LikeState) any {
			return set(v.(T), s)
		},
	}
}

// ToggleLike flips the like state of key optimistically and runs mutate.
// On failure the snapshot taken before the flip is restored. On success only
// the flag and counter are overwritten with the server's values; the entry is
// not refetched. Every kind in invalidate is marked stale either way.
func (c *Cache) ToggleLike(ctx context.Context, key Key, acc LikeAccessor,
	mutate func(ctx context.Context, currentlyLiked bool) (LikeState, error),
	invalidate ...string,
) (LikeState, error) {
	defer func() {
		for _, kind := range invalidate {
			c.Invalidate(kind)
		}
	}()

	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		c.mu.Unlock()
		return LikeState{}, ErrNotCached
	}
	c.cancelLocked(e)

	snapshot, ok := e.visible()
	if !ok {
		c.mu.Unlock()
		return LikeState{}, ErrNotCached
	}
	current, ok := acc.Get(snapshot)
	if !ok {
		c.mu.Unlock()
		return LikeState{}, ErrNotCached
	}

	optimistic := LikeState{Liked: !current.Liked, Count: current.Count + 1}
	if current.Liked {
		optimistic.Count = current.Count - 1
	}
	e.pending = acc.Set(snapshot, optimistic)
	e.hasPending = true
	c.mu.Unlock()
	observability.IncCacheEvent(key.Kind, "optimistic")

	server, err := mutate(ctx, current.Liked)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries[key] != e {
		return server, err
	}
	if err != nil {
		e.confirmed = snapshot
		e.hasValue = true
		e.pending = nil
		e.hasPending = false
		observability.IncCacheEvent(key.Kind, "rollback")
		c.log.Debug().Err(err).Str("key", key.String()).Msg("like toggle rolled back")
		return LikeState{}, err
	}

	base, _ := e.visible()
	e.confirmed = acc.Set(base, server)
	e.hasValue = true
	e.pending = nil
	e.hasPending = false
	return server, nil
}
