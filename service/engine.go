// Package service implements the post aggregate: likes, comments, edits and deletes
// against a single system-of-record store, with read-only fallback when it is down.
package service

import (
	"context"
	"errors"
	"sort"

	"go.uber.org/zap"

	"github.com/cppla/madickblog/metrics"
	"github.com/cppla/madickblog/models"
	"github.com/cppla/madickblog/store"
	"github.com/cppla/madickblog/utils"
	"github.com/cppla/madickblog/validation"
)

// AttributionMode decides who authors new posts and comments.
type AttributionMode string

const (
	// AttributeSessionOrDefault uses the authenticated actor, else the default user.
	AttributeSessionOrDefault AttributionMode = "session_or_default"
	// AttributeRequireSession rejects unauthenticated writes.
	AttributeRequireSession AttributionMode = "require_session"
	// AttributeFirstUser always uses the user with the lowest id.
	AttributeFirstUser AttributionMode = "first_user"
)

// Source tells where a read was served from.
type Source string

const (
	SourcePrimary  Source = "primary"
	SourceFallback Source = "fallback"
	SourceNone     Source = "none"
)

// Read wraps a read result with its provenance. Degraded is set whenever the system of
// record could not serve the read.
type Read[T any] struct {
	Value    T
	Source   Source
	Degraded bool
}

// Options configures an Engine.
type Options struct {
	Attribution AttributionMode
	// DefaultUserID is the eagerly created anonymous user.
	DefaultUserID uint
	Categories    []string
	// Fallback serves reads while the store is unreachable. Never written to.
	Fallback store.Reader
	Logger   *zap.Logger
}

// CategoryCount is one entry of Categories.
type CategoryCount struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// DeleteResult reports a completed post deletion.
type DeleteResult struct {
	CommentsRemoved int64
}

// Engine coordinates validation output, authorization and the store.
type Engine struct {
	store store.Store
	opts  Options
	log   *zap.Logger
}

// NewEngine builds an engine over s, the system of record.
func NewEngine(s store.Store, opts Options) *Engine {
	if opts.Attribution == "" {
		opts.Attribution = AttributeSessionOrDefault
	}
	log := opts.Logger
	if log == nil {
		log = utils.Logger
	}
	return &Engine{store: s, opts: opts, log: log.With(zap.String("store", s.Name()))}
}

// Store returns the system of record.
func (e *Engine) Store() store.Store { return e.store }

// CategoryNames returns the configured category names.
func (e *Engine) CategoryNames() []string { return e.opts.Categories }

// ListPosts never fails on store unreachability: it serves the fallback, or an empty
// degraded result when there is none.
func (e *Engine) ListPosts(ctx context.Context, filter store.PostFilter) Read[[]models.Post] {
	var err error
	defer metrics.TrackOperation("list_posts", &err)()

	posts, err := e.store.ListPosts(ctx, filter)
	if err == nil {
		return Read[[]models.Post]{Value: posts, Source: SourcePrimary}
	}
	e.log.Warn("list posts: primary store unavailable", zap.Error(err))
	if e.opts.Fallback != nil {
		fb, fbErr := e.opts.Fallback.ListPosts(ctx, filter)
		if fbErr == nil {
			e.fallbackServed("list_posts")
			return Read[[]models.Post]{Value: fb, Source: SourceFallback, Degraded: true}
		}
		e.log.Warn("list posts: fallback store failed", zap.Error(fbErr))
	}
	return Read[[]models.Post]{Value: []models.Post{}, Source: SourceNone, Degraded: true}
}

// GetPost returns a post with author and comments.
func (e *Engine) GetPost(ctx context.Context, id uint) (_ Read[*models.Post], err error) {
	defer metrics.TrackOperation("get_post", &err)()
	return readWithFallback(ctx, e, "get_post", models.ResourcePost, func(r store.Reader) (*models.Post, error) {
		return r.GetPost(ctx, id)
	})
}

// ListComments returns a post's comments newest first.
func (e *Engine) ListComments(ctx context.Context, postID uint) (_ Read[[]models.Comment], err error) {
	defer metrics.TrackOperation("list_comments", &err)()
	return readWithFallback(ctx, e, "list_comments", models.ResourcePost, func(r store.Reader) ([]models.Comment, error) {
		return r.ListComments(ctx, postID)
	})
}

// GetComment returns one comment with its author.
func (e *Engine) GetComment(ctx context.Context, id uint) (_ Read[*models.Comment], err error) {
	defer metrics.TrackOperation("get_comment", &err)()
	return readWithFallback(ctx, e, "get_comment", models.ResourceComment, func(r store.Reader) (*models.Comment, error) {
		return r.GetComment(ctx, id)
	})
}

// readWithFallback reads from the store; ErrNotFound from the store is authoritative,
// any other failure is retried once against the fallback.
func readWithFallback[T any](ctx context.Context, e *Engine, op, resource string, read func(store.Reader) (T, error)) (Read[T], error) {
	v, err := read(e.store)
	if err == nil {
		return Read[T]{Value: v, Source: SourcePrimary}, nil
	}
	if errors.Is(err, store.ErrNotFound) {
		return Read[T]{}, models.NewNotFoundError(resource)
	}
	e.log.Warn(op+": primary store unavailable", zap.Error(err))
	if e.opts.Fallback != nil {
		fb, fbErr := read(e.opts.Fallback)
		if fbErr == nil {
			e.fallbackServed(op)
			return Read[T]{Value: fb, Source: SourceFallback, Degraded: true}, nil
		}
		e.log.Warn(op+": fallback store could not serve the read", zap.Error(fbErr))
	}
	return Read[T]{}, models.NewInternalError("store unavailable", err)
}

func (e *Engine) fallbackServed(op string) {
	metrics.FallbackReadsTotal.WithLabelValues(op).Inc()
	e.log.Warn("read served from fallback store", zap.String("operation", op))
}

// CreatePost stores a validated post attributed according to the attribution mode.
func (e *Engine) CreatePost(ctx context.Context, actor *Actor, in validation.Post) (_ *models.Post, err error) {
	defer metrics.TrackOperation("create_post", &err)()

	author, err := e.resolveAuthor(ctx, actor)
	if err != nil {
		return nil, err
	}
	post := &models.Post{
		UserID:   author.ID,
		Title:    in.Title,
		Content:  in.Content,
		Category: in.Category,
	}
	if err = e.store.CreatePost(ctx, post); err != nil {
		return nil, models.NewInternalError("failed to create post", err)
	}
	post.User = *author
	post.Comments = []models.Comment{}
	return post, nil
}

// EditPost replaces title and content of a post owned by actor. Likes, comments,
// category, author and creation time are left as they are.
func (e *Engine) EditPost(ctx context.Context, actor *Actor, id uint, in validation.Post) (_ *models.Post, err error) {
	defer metrics.TrackOperation("edit_post", &err)()

	if _, err = e.authorize(ctx, OpEdit, actor, id); err != nil {
		return nil, err
	}
	if err = e.store.UpdatePostContent(ctx, id, in.Title, in.Content); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, models.NewNotFoundError(models.ResourcePost)
		}
		return nil, models.NewInternalError("failed to update post", err)
	}
	post, err := e.store.GetPost(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, models.NewNotFoundError(models.ResourcePost)
		}
		return nil, models.NewInternalError("post updated but could not be reloaded", err)
	}
	return post, nil
}

// DeletePost removes a post owned by actor together with its comments.
func (e *Engine) DeletePost(ctx context.Context, actor *Actor, id uint) (_ DeleteResult, err error) {
	defer metrics.TrackOperation("delete_post", &err)()

	if _, err = e.authorize(ctx, OpDelete, actor, id); err != nil {
		return DeleteResult{}, err
	}

	if cascade, ok := e.store.(store.CascadeDeleter); ok {
		removed, cerr := cascade.DeletePostCascade(ctx, id)
		if cerr != nil {
			if errors.Is(cerr, store.ErrNotFound) {
				return DeleteResult{}, models.NewNotFoundError(models.ResourcePost)
			}
			return DeleteResult{}, models.NewInternalError("failed to delete post", cerr)
		}
		return DeleteResult{CommentsRemoved: removed}, nil
	}

	// Comments first: a failure in between leaves a post without comments, never
	// comments without a post.
	removed, err := e.store.DeleteComments(ctx, id)
	if err != nil {
		return DeleteResult{}, models.NewInternalError("failed to delete comments", err)
	}
	if err = e.store.DeletePost(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return DeleteResult{}, models.NewNotFoundError(models.ResourcePost)
		}
		metrics.PartialFailuresTotal.WithLabelValues("delete_post").Inc()
		e.log.Error("delete post: comments removed but post remains",
			zap.Uint("post_id", id),
			zap.Int64("comments_removed", removed),
			zap.Error(err),
		)
		return DeleteResult{CommentsRemoved: removed},
			models.NewPartialFailureError("comments were deleted but the post could not be", err)
	}
	return DeleteResult{CommentsRemoved: removed}, nil
}

// LikePost increments a post's likes by one and returns the new count.
func (e *Engine) LikePost(ctx context.Context, id uint) (_ int64, err error) {
	defer metrics.TrackOperation("like_post", &err)()

	likes, err := e.store.IncrementLikes(ctx, id, 1)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, models.NewNotFoundError(models.ResourcePost)
		}
		return 0, models.NewInternalError("failed to like post", err)
	}
	metrics.LikesTotal.Inc()
	return likes, nil
}

// CreateComment attaches a validated comment to an existing post.
func (e *Engine) CreateComment(ctx context.Context, actor *Actor, postID uint, in validation.Comment) (_ *models.Comment, err error) {
	defer metrics.TrackOperation("create_comment", &err)()

	if _, err = e.store.FindPost(ctx, postID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, models.NewNotFoundError(models.ResourcePost)
		}
		return nil, models.NewInternalError("failed to load post", err)
	}
	author, err := e.resolveAuthor(ctx, actor)
	if err != nil {
		return nil, err
	}
	comment := &models.Comment{PostID: postID, UserID: author.ID, Content: in.Content}
	if err = e.store.CreateComment(ctx, comment); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, models.NewNotFoundError(models.ResourcePost)
		}
		return nil, models.NewInternalError("failed to create comment", err)
	}
	comment.User = *author
	metrics.CommentsCreatedTotal.Inc()
	return comment, nil
}

// Categories lists the configured categories with live post counts, followed by any
// stored category that is no longer configured.
func (e *Engine) Categories(ctx context.Context) ([]CategoryCount, error) {
	counts, err := e.store.CountByCategory(ctx)
	if err != nil {
		return nil, models.NewInternalError("failed to count categories", err)
	}
	out := make([]CategoryCount, 0, len(e.opts.Categories)+len(counts))
	seen := make(map[string]bool, len(e.opts.Categories))
	for _, name := range e.opts.Categories {
		out = append(out, CategoryCount{Name: name, Count: counts[name]})
		seen[name] = true
	}
	var extra []string
	for name := range counts {
		if !seen[name] && name != "" {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	for _, name := range extra {
		out = append(out, CategoryCount{Name: name, Count: counts[name]})
	}
	return out, nil
}

// Stats returns store-wide counters.
func (e *Engine) Stats(ctx context.Context) (store.Stats, error) {
	st, err := e.store.Stats(ctx)
	if err != nil {
		return store.Stats{}, models.NewInternalError("failed to read stats", err)
	}
	return st, nil
}

// Health pings the system of record.
func (e *Engine) Health(ctx context.Context) error {
	return e.store.Ping(ctx)
}

// authorize loads the post row and applies the ownership guard. A missing actor is
// rejected before the store is touched.
func (e *Engine) authorize(ctx context.Context, op Operation, actor *Actor, id uint) (*models.Post, error) {
	if actor == nil {
		return nil, Authorize(op, nil, 0).Err(op)
	}
	post, err := e.store.FindPost(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, models.NewNotFoundError(models.ResourcePost)
		}
		return nil, models.NewInternalError("failed to load post", err)
	}
	if err := Authorize(op, actor, post.UserID).Err(op); err != nil {
		return nil, err
	}
	return post, nil
}

// resolveAuthor applies the attribution mode, identically for posts and comments.
func (e *Engine) resolveAuthor(ctx context.Context, actor *Actor) (*models.User, error) {
	var (
		user *models.User
		err  error
	)
	switch e.opts.Attribution {
	case AttributeRequireSession:
		if actor == nil {
			return nil, models.NewUnauthorizedError("authentication required")
		}
		user, err = e.store.GetUser(ctx, actor.ID)
	case AttributeFirstUser:
		user, err = e.store.FirstUser(ctx)
	default:
		switch {
		case actor != nil:
			user, err = e.store.GetUser(ctx, actor.ID)
		case e.opts.DefaultUserID != 0:
			user, err = e.store.GetUser(ctx, e.opts.DefaultUserID)
		default:
			return nil, models.NewNoUsableUserError()
		}
	}
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, models.NewNoUsableUserError()
		}
		return nil, models.NewInternalError("failed to resolve author", err)
	}
	return user, nil
}
