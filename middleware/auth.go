package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/bbsforum/models"
	"github.com/cppla/bbsforum/utils"
)

const (
	// ContextUserIDKey is the key used to store authenticated user ID in Gin context.
	ContextUserIDKey = "user_id"
	// ContextUsernameKey stores the username inside Gin context.
	ContextUsernameKey = "username"
	// ContextRoleKey stores the role carried by the access token.
	ContextRoleKey = "role"
	// ContextTokenKey stores the raw access token, used by logout.
	ContextTokenKey = "access_token"
	// ContextTokenExpiryKey stores the access token expiry.
	ContextTokenExpiryKey = "access_token_exp"
)

// Auth validates bearer access tokens.
type Auth struct {
	jwt    *utils.JWTManager
	tokens *utils.TokenStore
}

// NewAuth creates the auth middleware set.
func NewAuth(jwt *utils.JWTManager, tokens *utils.TokenStore) *Auth {
	return &Auth{jwt: jwt, tokens: tokens}
}

// Required ensures the request is authenticated via JWT.
func (a *Auth) Required() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		authHeader := ctx.GetHeader("Authorization")
		if authHeader == "" {
			utils.Abort(ctx, http.StatusUnauthorized, 40101, "authorization header missing")
			return
		}
		if code, msg := a.authenticate(ctx, authHeader); code != 0 {
			utils.Abort(ctx, http.StatusUnauthorized, code, msg)
			return
		}
		ctx.Next()
	}
}

// Optional identifies the caller when a valid token is present and lets anonymous requests through.
func (a *Auth) Optional() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if authHeader := ctx.GetHeader("Authorization"); authHeader != "" {
			_, _ = a.authenticate(ctx, authHeader)
		}
		ctx.Next()
	}
}

// AdminRequired must run after Required.
func (a *Auth) AdminRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if ctx.GetString(ContextRoleKey) != string(models.RoleAdmin) {
			utils.Abort(ctx, http.StatusForbidden, 40301, "admin only")
			return
		}
		ctx.Next()
	}
}

// authenticate stores the identity in the context; a non-zero code describes the failure.
func (a *Auth) authenticate(ctx *gin.Context, authHeader string) (int, string) {
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return 40102, "invalid authorization header format"
	}
	tokenString := strings.TrimSpace(parts[1])
	if tokenString == "" {
		return 40103, "empty bearer token"
	}
	if a.tokens.IsBlacklisted(ctx.Request.Context(), tokenString) {
		return 40104, "token revoked"
	}
	claims, err := a.jwt.ParseToken(tokenString)
	if err != nil || claims.Type != utils.AccessToken {
		return 40105, "invalid token"
	}

	ctx.Set(ContextUserIDKey, claims.UserID)
	ctx.Set(ContextUsernameKey, claims.Username)
	ctx.Set(ContextRoleKey, claims.Role)
	ctx.Set(ContextTokenKey, tokenString)
	if claims.ExpiresAt != nil {
		ctx.Set(ContextTokenExpiryKey, claims.ExpiresAt.Time)
	} else {
		ctx.Set(ContextTokenExpiryKey, time.Time{})
	}
	return 0, ""
}
