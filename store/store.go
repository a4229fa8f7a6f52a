// Package store holds the persistence adapters for users, posts and comments.
package store

import (
	"context"
	"errors"

	"github.com/cppla/madickblog/models"
)

var (
	// ErrNotFound is returned when the addressed record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique attribute (user email) is taken.
	ErrDuplicate = errors.New("record already exists")
)

// PostFilter narrows ListPosts. Search matches title or content, case-insensitively.
type PostFilter struct {
	Search   string
	Category string
}

// Stats aggregates counters over the whole store.
type Stats struct {
	Posts    int64 `json:"post_count"`
	Comments int64 `json:"comment_count"`
	Users    int64 `json:"user_count"`
	Likes    int64 `json:"like_count"`
}

// Reader is the read side served by both the system of record and the fallback.
type Reader interface {
	// ListPosts returns posts newest first with author and comments loaded.
	ListPosts(ctx context.Context, filter PostFilter) ([]models.Post, error)
	// GetPost returns one post with author and comments (newest first, with authors).
	GetPost(ctx context.Context, id uint) (*models.Post, error)
	// ListComments returns a post's comments newest first; ErrNotFound if the post is missing.
	ListComments(ctx context.Context, postID uint) ([]models.Comment, error)
	GetComment(ctx context.Context, id uint) (*models.Comment, error)
}

// Store is the entity store adapter. Implementations own all post/comment state.
type Store interface {
	Reader

	Name() string
	Ping(ctx context.Context) error
	Close() error

	// EnsureDefaultUser returns the user with email, creating it with name if absent.
	EnsureDefaultUser(ctx context.Context, email, name string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id uint) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	// FirstUser returns the user with the lowest id.
	FirstUser(ctx context.Context) (*models.User, error)

	// FindPost returns the post row without relations.
	FindPost(ctx context.Context, id uint) (*models.Post, error)
	CreatePost(ctx context.Context, post *models.Post) error
	UpdatePostContent(ctx context.Context, id uint, title, content string) error
	// IncrementLikes atomically adds delta (> 0) to a post's likes and returns the new value.
	IncrementLikes(ctx context.Context, id uint, delta int64) (int64, error)
	DeleteComments(ctx context.Context, postID uint) (int64, error)
	DeletePost(ctx context.Context, id uint) error
	// CreateComment persists c if its post exists, else returns ErrNotFound.
	CreateComment(ctx context.Context, c *models.Comment) error

	CountByCategory(ctx context.Context) (map[string]int64, error)
	Stats(ctx context.Context) (Stats, error)
}

// CascadeDeleter is implemented by stores that remove a post and its comments atomically.
type CascadeDeleter interface {
	// DeletePostCascade returns the number of comments removed with the post.
	DeletePostCascade(ctx context.Context, id uint) (int64, error)
}

// ErrInvalidDelta is returned by IncrementLikes for non-positive deltas.
var ErrInvalidDelta = errors.New("likes delta must be positive")
