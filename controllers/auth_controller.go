package controllers

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/bbsforum/middleware"
	"github.com/cppla/bbsforum/services"
	"github.com/cppla/bbsforum/utils"
)

// AuthController handles sign-up, login, token refresh and the email verification flow.
type AuthController struct {
	members         *services.MemberService
	auth            *services.AuthService
	captcha         *utils.Captcha
	captchaRequired bool
	frontendURL     string
}

// NewAuthController creates an AuthController. When captchaRequired is set, join needs a solved captcha.
func NewAuthController(members *services.MemberService, auth *services.AuthService, captcha *utils.Captcha, captchaRequired bool, frontendURL string) *AuthController {
	return &AuthController{
		members:         members,
		auth:            auth,
		captcha:         captcha,
		captchaRequired: captchaRequired,
		frontendURL:     frontendURL,
	}
}

// Join registers a local account and mails the verification link.
func (a *AuthController) Join(ctx *gin.Context) {
	var req struct {
		Username        string `json:"username" binding:"required,email"`
		Password        string `json:"password" binding:"required,min=6,max=64"`
		PasswordConfirm string `json:"password_confirm" binding:"required"`
		Nickname        string `json:"nickname" binding:"required"`
		Signature       string `json:"signature"`
		CaptchaID       string `json:"captcha_id"`
		CaptchaAnswer   string `json:"captcha_answer"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, "invalid request payload")
		return
	}
	if a.captchaRequired && !a.captcha.Verify(strings.TrimSpace(req.CaptchaID), strings.TrimSpace(req.CaptchaAnswer)) {
		utils.Error(ctx, http.StatusBadRequest, 40042, "captcha is wrong or expired")
		return
	}

	m, err := a.members.Join(ctx.Request.Context(), services.JoinRequest{
		Username:        req.Username,
		Password:        req.Password,
		PasswordConfirm: req.PasswordConfirm,
		Nickname:        req.Nickname,
		Signature:       req.Signature,
	})
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Created(ctx, m)
}

// Login verifies credentials and issues an access and refresh token pair.
func (a *AuthController) Login(ctx *gin.Context) {
	var req struct {
		Username   string `json:"username" binding:"required"`
		Password   string `json:"password" binding:"required"`
		RememberMe bool   `json:"remember_me"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, "invalid request payload")
		return
	}

	pair, m, err := a.auth.Login(ctx.Request.Context(), strings.TrimSpace(req.Username), req.Password, req.RememberMe)
	if err != nil {
		if errors.Is(err, services.ErrEntityNotFound) || errors.Is(err, services.ErrWrongPassword) {
			utils.Error(ctx, http.StatusUnauthorized, 40106, "invalid username or password")
			return
		}
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"token": pair, "member": m})
}

// Refresh issues a new access token for a stored refresh token.
func (a *AuthController) Refresh(ctx *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, "invalid request payload")
		return
	}
	pair, err := a.auth.Refresh(ctx.Request.Context(), strings.TrimSpace(req.RefreshToken))
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"token": pair})
}

// Logout forgets the refresh token and blacklists the access token until its expiration.
func (a *AuthController) Logout(ctx *gin.Context) {
	username := ctx.GetString(middleware.ContextUsernameKey)
	token := ctx.GetString(middleware.ContextTokenKey)
	if err := a.auth.Logout(ctx.Request.Context(), username, token, tokenExpiry(ctx)); err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"message": "logged out"})
}

// VerifyEmail completes email verification from the mailed link and redirects to the frontend.
func (a *AuthController) VerifyEmail(ctx *gin.Context) {
	username := strings.TrimSpace(ctx.Query("username"))
	token := strings.TrimSpace(ctx.Query("token"))
	if username == "" || token == "" {
		badRequest(ctx, "missing username or token")
		return
	}
	if err := a.members.VerifyEmail(ctx.Request.Context(), username, token); err != nil {
		respondError(ctx, err)
		return
	}
	if a.frontendURL == "" {
		utils.Success(ctx, gin.H{"verified": true})
		return
	}
	target, err := withQuery(a.frontendURL, "verified", username)
	if err != nil {
		utils.Logger.Warn("invalid frontend url", zap.String("url", a.frontendURL), zap.Error(err))
		utils.Success(ctx, gin.H{"verified": true})
		return
	}
	ctx.Redirect(http.StatusFound, target)
}

// withQuery sets one query parameter on base, keeping the ones already there.
func withQuery(base, key, value string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ResendVerification mails a fresh verification link.
func (a *AuthController) ResendVerification(ctx *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, "invalid request payload")
		return
	}
	if err := a.members.ResendVerification(ctx.Request.Context(), strings.TrimSpace(req.Username)); err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"message": "verification mail sent"})
}

// ResetPassword mails a temporary password. Unknown accounts answer the same way.
func (a *AuthController) ResetPassword(ctx *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, "invalid request payload")
		return
	}
	err := a.members.ResetPassword(ctx.Request.Context(), strings.TrimSpace(req.Username))
	if err != nil && !errors.Is(err, services.ErrEntityNotFound) {
		respondError(ctx, err)
		return
	}
	if err != nil {
		utils.Logger.Info("password reset for unknown account", zap.String("username", req.Username))
	}
	utils.Success(ctx, gin.H{"message": "if the account exists a new password was sent"})
}

// Captcha returns a fresh captcha id and base64 image.
func (a *AuthController) Captcha(ctx *gin.Context) {
	id, b64, err := a.captcha.Generate()
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50060, "failed to generate captcha")
		return
	}
	utils.Success(ctx, gin.H{"id": id, "image": b64})
}
