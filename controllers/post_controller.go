package controllers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/madickblog/middleware"
	"github.com/cppla/madickblog/presenter"
	"github.com/cppla/madickblog/service"
	"github.com/cppla/madickblog/store"
	"github.com/cppla/madickblog/utils"
	"github.com/cppla/madickblog/validation"
)

// DegradedHeader is set on read responses not served by the system of record.
const DegradedHeader = "X-Blog-Degraded"

// readFlags rides along every read payload.
type readFlags struct {
	Degraded bool           `json:"degraded"`
	Source   service.Source `json:"source"`
}

func flagRead(ctx *gin.Context, degraded bool, source service.Source) readFlags {
	if degraded {
		ctx.Header(DegradedHeader, "true")
	}
	return readFlags{Degraded: degraded, Source: source}
}

// PostController exposes posts, likes and comments.
type PostController struct {
	engine *service.Engine
}

// NewPostController creates a new PostController instance.
func NewPostController(engine *service.Engine) *PostController {
	return &PostController{engine: engine}
}

// ListPosts returns posts newest first, optionally filtered by search and category.
func (p *PostController) ListPosts(ctx *gin.Context) {
	res := p.engine.ListPosts(ctx.Request.Context(), store.PostFilter{
		Search:   strings.TrimSpace(ctx.Query("search")),
		Category: strings.TrimSpace(ctx.Query("category")),
	})
	flags := flagRead(ctx, res.Degraded, res.Source)
	utils.Success(ctx, gin.H{
		"items":    presenter.Summaries(res.Value),
		"degraded": flags.Degraded,
		"source":   flags.Source,
	})
}

// GetPost returns a post with its comments.
func (p *PostController) GetPost(ctx *gin.Context) {
	id, err := validation.ParseID(ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	res, err := p.engine.GetPost(ctx.Request.Context(), id)
	if err != nil {
		respondReadError(ctx, err)
		return
	}
	utils.Success(ctx, struct {
		presenter.PostDetail
		readFlags
	}{presenter.Detail(*res.Value), flagRead(ctx, res.Degraded, res.Source)})
}

// CreatePost stores a new post.
func (p *PostController) CreatePost(ctx *gin.Context) {
	var req validation.PostInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		invalidPayload(ctx)
		return
	}
	in, err := validation.ValidatePost(req, p.engine.CategoryNames())
	if err != nil {
		respondError(ctx, err)
		return
	}
	post, err := p.engine.CreatePost(ctx.Request.Context(), middleware.Actor(ctx), in)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Created(ctx, presenter.Summary(*post))
}

// UpdatePost replaces the title and content of the caller's post.
func (p *PostController) UpdatePost(ctx *gin.Context) {
	id, err := validation.ParseID(ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	var req validation.PostInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		invalidPayload(ctx)
		return
	}
	in, err := validation.ValidatePost(req, p.engine.CategoryNames())
	if err != nil {
		respondError(ctx, err)
		return
	}
	post, err := p.engine.EditPost(ctx.Request.Context(), middleware.Actor(ctx), id, in)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, presenter.Detail(*post))
}

// DeletePost removes the caller's post and its comments.
func (p *PostController) DeletePost(ctx *gin.Context) {
	id, err := validation.ParseID(ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	res, err := p.engine.DeletePost(ctx.Request.Context(), middleware.Actor(ctx), id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{
		"message":         "post deleted",
		"commentsRemoved": res.CommentsRemoved,
	})
}

// LikePost adds one like.
func (p *PostController) LikePost(ctx *gin.Context) {
	id, err := validation.ParseID(ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	likes, err := p.engine.LikePost(ctx.Request.Context(), id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"likes": likes})
}

// CreateComment adds a comment to a post.
func (p *PostController) CreateComment(ctx *gin.Context) {
	postID, err := validation.ParseID(ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	var req validation.CommentInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		invalidPayload(ctx)
		return
	}
	in, err := validation.ValidateComment(req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	comment, err := p.engine.CreateComment(ctx.Request.Context(), middleware.Actor(ctx), postID, in)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Created(ctx, presenter.Comment(*comment))
}

// ListComments returns a post's comments newest first.
func (p *PostController) ListComments(ctx *gin.Context) {
	postID, err := validation.ParseID(ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	res, err := p.engine.ListComments(ctx.Request.Context(), postID)
	if err != nil {
		respondReadError(ctx, err)
		return
	}
	flags := flagRead(ctx, res.Degraded, res.Source)
	utils.Success(ctx, gin.H{
		"items":    presenter.Comments(res.Value),
		"degraded": flags.Degraded,
		"source":   flags.Source,
	})
}

// GetComment returns a single comment.
func (p *PostController) GetComment(ctx *gin.Context) {
	id, err := validation.ParseID(ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	res, err := p.engine.GetComment(ctx.Request.Context(), id)
	if err != nil {
		respondReadError(ctx, err)
		return
	}
	utils.Success(ctx, struct {
		presenter.CommentView
		readFlags
	}{presenter.Comment(*res.Value), flagRead(ctx, res.Degraded, res.Source)})
}
