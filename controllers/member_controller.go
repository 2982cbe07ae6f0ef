package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/cppla/bbsforum/models"
	"github.com/cppla/bbsforum/services"
	"github.com/cppla/bbsforum/utils"
)

// MemberController exposes profiles and the account self-service endpoints.
type MemberController struct {
	members  *services.MemberService
	posts    *services.PostService
	comments *services.CommentService
}

// NewMemberController creates a MemberController.
func NewMemberController(members *services.MemberService, posts *services.PostService, comments *services.CommentService) *MemberController {
	return &MemberController{members: members, posts: posts, comments: comments}
}

// Me returns the authenticated member.
func (m *MemberController) Me(ctx *gin.Context) {
	id, ok := mustUserID(ctx)
	if !ok {
		return
	}
	member, err := m.members.Get(ctx.Request.Context(), id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, member)
}

// UpdateMe changes the nickname and/or signature of the authenticated member.
func (m *MemberController) UpdateMe(ctx *gin.Context) {
	id, ok := mustUserID(ctx)
	if !ok {
		return
	}
	var req struct {
		Nickname  *string `json:"nickname"`
		Signature *string `json:"signature"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, "invalid request payload")
		return
	}
	member, err := m.members.UpdateProfile(ctx.Request.Context(), id, services.ProfileUpdate{
		Nickname:  req.Nickname,
		Signature: req.Signature,
	})
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, member)
}

// ChangePassword replaces the password of the authenticated member.
func (m *MemberController) ChangePassword(ctx *gin.Context) {
	id, ok := mustUserID(ctx)
	if !ok {
		return
	}
	var req struct {
		CurrentPassword string `json:"current_password" binding:"required"`
		NewPassword     string `json:"new_password" binding:"required,min=6,max=64"`
		PasswordConfirm string `json:"password_confirm" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, "invalid request payload")
		return
	}
	if err := m.members.ChangePassword(ctx.Request.Context(), id, req.CurrentPassword, req.NewPassword, req.PasswordConfirm); err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"message": "password changed"})
}

// Withdraw deletes the authenticated account after a password check.
func (m *MemberController) Withdraw(ctx *gin.Context) {
	id, ok := mustUserID(ctx)
	if !ok {
		return
	}
	var req struct {
		Password string `json:"password" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, "invalid request payload")
		return
	}
	if err := m.members.Withdraw(ctx.Request.Context(), id, req.Password); err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"message": "account withdrawn"})
}

// Get returns a public profile.
func (m *MemberController) Get(ctx *gin.Context) {
	id, ok := idParam(ctx, "id")
	if !ok {
		return
	}
	member, err := m.members.Get(ctx.Request.Context(), id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, publicMember(member))
}

// publicMember strips the account fields (email, role, auth state) from a profile.
func publicMember(m *models.Member) gin.H {
	return gin.H{
		"id":         m.ID,
		"nickname":   m.Nickname,
		"signature":  m.Signature,
		"created_at": m.CreatedAt,
	}
}

// List pages through members (admin only).
func (m *MemberController) List(ctx *gin.Context) {
	page, err := m.members.List(ctx.Request.Context(), pageRequest(ctx))
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, page)
}

// Posts lists the posts written by a member.
func (m *MemberController) Posts(ctx *gin.Context) {
	id, ok := idParam(ctx, "id")
	if !ok {
		return
	}
	page, err := m.posts.ListByWriter(ctx.Request.Context(), id, searchQuery(ctx), pageRequest(ctx))
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, page)
}

// Comments lists the comments written by a member.
func (m *MemberController) Comments(ctx *gin.Context) {
	id, ok := idParam(ctx, "id")
	if !ok {
		return
	}
	page, err := m.comments.ListByWriter(ctx.Request.Context(), id, searchQuery(ctx), pageRequest(ctx))
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, page)
}
