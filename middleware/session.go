package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// SessionCookie names the anonymous session cookie used to deduplicate post views.
	SessionCookie = "BBS_SESSION"
	// ContextSessionKey stores the session id in Gin context.
	ContextSessionKey = "session_id"
	sessionMaxAge     = 30 * 24 * 60 * 60
)

// Session makes sure every visitor carries a session id cookie.
func Session(secure bool) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		id, err := ctx.Cookie(SessionCookie)
		if err == nil {
			_, err = uuid.Parse(id)
		}
		if err != nil {
			id = uuid.NewString()
			ctx.SetSameSite(http.SameSiteLaxMode)
			ctx.SetCookie(SessionCookie, id, sessionMaxAge, "/", "", secure, true)
		}
		ctx.Set(ContextSessionKey, id)
		ctx.Next()
	}
}
