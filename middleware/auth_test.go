package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/bbsforum/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type authEnv struct {
	jwt    *utils.JWTManager
	tokens *utils.TokenStore
	engine *gin.Engine
}

func newAuthEnv() authEnv {
	env := authEnv{
		jwt:    utils.NewJWTManager("test-secret"),
		tokens: utils.NewTokenStore(utils.NewMemoryCache(time.Minute)),
	}
	auth := NewAuth(env.jwt, env.tokens)
	r := gin.New()
	whoami := func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{
			"user_id":  ctx.GetUint(ContextUserIDKey),
			"username": ctx.GetString(ContextUsernameKey),
			"role":     ctx.GetString(ContextRoleKey),
		})
	}
	r.GET("/required", auth.Required(), whoami)
	r.GET("/optional", auth.Optional(), whoami)
	r.GET("/admin", auth.Required(), auth.AdminRequired(), whoami)
	env.engine = r
	return env
}

func (e authEnv) token(t *testing.T, role string, typ utils.TokenType) string {
	t.Helper()
	tok, _, err := e.jwt.GenerateToken(7, "alice@example.com", role, typ, time.Minute)
	require.NoError(t, err)
	return tok
}

func (e authEnv) get(path, authorization string) (*httptest.ResponseRecorder, utils.JSONResponse) {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	var body utils.JSONResponse
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func TestAuthRequired_Rejections(t *testing.T) {
	env := newAuthEnv()
	revoked := env.token(t, "USER", utils.AccessToken)
	require.NoError(t, env.tokens.Blacklist(context.Background(), revoked, time.Now().Add(time.Minute)))

	cases := []struct {
		name   string
		header string
		code   int
	}{
		{"missing header", "", 40101},
		{"wrong scheme", "Basic abc", 40102},
		{"empty token", "Bearer   ", 40103},
		{"revoked", "Bearer " + revoked, 40104},
		{"garbage", "Bearer not-a-jwt", 40105},
		{"refresh token", "Bearer " + env.token(t, "USER", utils.RefreshToken), 40105},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w, body := env.get("/required", tc.header)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, tc.code, body.Code)
		})
	}
}

func TestAuthRequired_SetsIdentity(t *testing.T) {
	env := newAuthEnv()
	w, _ := env.get("/required", "Bearer "+env.token(t, "USER", utils.AccessToken))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":7,"username":"alice@example.com","role":"USER"}`, w.Body.String())
}

func TestOptionalAuth(t *testing.T) {
	env := newAuthEnv()

	w, _ := env.get("/optional", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":0,"username":"","role":""}`, w.Body.String())

	w, _ = env.get("/optional", "Bearer broken")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":0,"username":"","role":""}`, w.Body.String())

	w, _ = env.get("/optional", "Bearer "+env.token(t, "USER", utils.AccessToken))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user_id":7`)
}

func TestAdminRequired(t *testing.T) {
	env := newAuthEnv()

	w, body := env.get("/admin", "Bearer "+env.token(t, "USER", utils.AccessToken))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, 40301, body.Code)

	w, _ = env.get("/admin", "Bearer "+env.token(t, "ADMIN", utils.AccessToken))
	assert.Equal(t, http.StatusOK, w.Code)
}
