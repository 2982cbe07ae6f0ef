package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/cppla/bbsforum/services"
	"github.com/cppla/bbsforum/utils"
)

// CommentController manages comments under posts.
type CommentController struct {
	comments *services.CommentService
}

// NewCommentController creates a CommentController.
func NewCommentController(comments *services.CommentService) *CommentController {
	return &CommentController{comments: comments}
}

type commentRequest struct {
	Content string `json:"content" binding:"required"`
}

// ListComments pages through the comments of a post.
func (c *CommentController) ListComments(ctx *gin.Context) {
	postID, ok := idParam(ctx, "id")
	if !ok {
		return
	}
	page, err := c.comments.ListByPost(ctx.Request.Context(), postID, searchQuery(ctx), pageRequest(ctx))
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, page)
}

// CreateComment adds a comment to a post.
func (c *CommentController) CreateComment(ctx *gin.Context) {
	userID, ok := mustUserID(ctx)
	if !ok {
		return
	}
	postID, ok := idParam(ctx, "id")
	if !ok {
		return
	}
	var req commentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, "invalid request payload")
		return
	}
	comment, err := c.comments.Create(ctx.Request.Context(), userID, postID, req.Content)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Created(ctx, comment)
}

// UpdateComment rewrites a comment owned by the caller.
func (c *CommentController) UpdateComment(ctx *gin.Context) {
	userID, ok := mustUserID(ctx)
	if !ok {
		return
	}
	id, ok := idParam(ctx, "id")
	if !ok {
		return
	}
	var req commentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, "invalid request payload")
		return
	}
	comment, err := c.comments.Update(ctx.Request.Context(), userID, id, req.Content)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, comment)
}

// DeleteComment removes a comment owned by the caller.
func (c *CommentController) DeleteComment(ctx *gin.Context) {
	userID, ok := mustUserID(ctx)
	if !ok {
		return
	}
	id, ok := idParam(ctx, "id")
	if !ok {
		return
	}
	if err := c.comments.Delete(ctx.Request.Context(), userID, id); err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"id": id})
}

// DeleteComments removes several comments of the caller at once.
func (c *CommentController) DeleteComments(ctx *gin.Context) {
	userID, ok := mustUserID(ctx)
	if !ok {
		return
	}
	var req idsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, "invalid request payload")
		return
	}
	if err := c.comments.DeleteBulk(ctx.Request.Context(), userID, req.IDs); err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"ids": req.IDs})
}
