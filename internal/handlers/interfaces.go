package handlers

import (
	"context"

	"github.com/pktikkani/mindful-poster/internal/posts"
)

// Pipeline is the slice of the workflow controller the HTTP layer drives.
type Pipeline interface {
	Start(ctx context.Context) (posts.Post, error)
	Resolve(ctx context.Context, id, action, token string) (posts.Post, error)
	VerifyToken(action, id, token string) bool
	ActionURL(action, id string) string
}

// PostReader serves the read-only pages.
type PostReader interface {
	Get(ctx context.Context, id string) (posts.Post, error)
	List(ctx context.Context, filter posts.Status, limit int) ([]posts.Post, error)
}
