package controllers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/bbsforum/middleware"
	"github.com/cppla/bbsforum/services"
	"github.com/cppla/bbsforum/utils"
)

// PostController manages CRUD operations for posts.
type PostController struct {
	posts *services.PostService
}

// NewPostController creates a new PostController instance.
func NewPostController(posts *services.PostService) *PostController {
	return &PostController{posts: posts}
}

type postRequest struct {
	Title   string `json:"title" binding:"required"`
	Content string `json:"content" binding:"required"`
	Notice  bool   `json:"notice"`
}

func (r postRequest) input() services.PostInput {
	return services.PostInput{Title: r.Title, Content: r.Content, Notice: r.Notice}
}

// CreatePost allows authenticated members to publish posts.
func (p *PostController) CreatePost(ctx *gin.Context) {
	userID, ok := mustUserID(ctx)
	if !ok {
		return
	}
	var req postRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, "invalid request payload")
		return
	}
	post, err := p.posts.Create(ctx.Request.Context(), userID, req.input())
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Created(ctx, post)
}

// ListPosts searches posts with pagination and sorting.
func (p *PostController) ListPosts(ctx *gin.Context) {
	page, err := p.posts.List(ctx.Request.Context(), searchQuery(ctx), pageRequest(ctx))
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, page)
}

// ListNotices pages through notice posts.
func (p *PostController) ListNotices(ctx *gin.Context) {
	page, err := p.posts.ListNotices(ctx.Request.Context(), pageRequest(ctx))
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, page)
}

// GetPost returns a post and counts the view once per session and address.
func (p *PostController) GetPost(ctx *gin.Context) {
	id, ok := idParam(ctx, "id")
	if !ok {
		return
	}
	post, err := p.posts.Get(ctx.Request.Context(), id)
	if err != nil {
		respondError(ctx, err)
		return
	}

	counted, err := p.posts.AddViewCountWithCaching(ctx.Request.Context(), id, ctx.GetString(middleware.ContextSessionKey), ctx.ClientIP())
	switch {
	case err == nil:
		if counted {
			post.ViewCount++
		}
	case errors.Is(err, services.ErrEntityNotFound):
		respondError(ctx, err)
		return
	default:
		// a view that could not be counted should not hide the post
		utils.Logger.Warn("count view failed", zap.Uint("post_id", id), zap.Error(err))
	}
	utils.Success(ctx, post)
}

// UpdatePost rewrites a post owned by the caller.
func (p *PostController) UpdatePost(ctx *gin.Context) {
	userID, ok := mustUserID(ctx)
	if !ok {
		return
	}
	id, ok := idParam(ctx, "id")
	if !ok {
		return
	}
	var req postRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, "invalid request payload")
		return
	}
	post, err := p.posts.Update(ctx.Request.Context(), userID, id, req.input())
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, post)
}

// DeletePost removes a post with its comments and attachments.
func (p *PostController) DeletePost(ctx *gin.Context) {
	userID, ok := mustUserID(ctx)
	if !ok {
		return
	}
	id, ok := idParam(ctx, "id")
	if !ok {
		return
	}
	if err := p.posts.Delete(ctx.Request.Context(), userID, id); err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"id": id})
}

// DeletePosts removes several posts of the caller at once.
func (p *PostController) DeletePosts(ctx *gin.Context) {
	userID, ok := mustUserID(ctx)
	if !ok {
		return
	}
	var req idsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, "invalid request payload")
		return
	}
	if err := p.posts.DeleteBulk(ctx.Request.Context(), userID, req.IDs); err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"ids": req.IDs})
}
