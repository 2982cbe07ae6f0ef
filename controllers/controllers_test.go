package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/bbsforum/config"
	"github.com/cppla/bbsforum/repository"
	"github.com/cppla/bbsforum/services"
	"github.com/cppla/bbsforum/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRespondError(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   int
	}{
		{fmt.Errorf("post 3: %w", services.ErrEntityNotFound), http.StatusNotFound, 40400},
		{services.ErrNotOwner, http.StatusForbidden, 40300},
		{services.ErrAccessDenied, http.StatusForbidden, 40300},
		{services.ErrInvalidToken, http.StatusUnauthorized, 40100},
		{services.ErrPasswordMismatch, http.StatusBadRequest, 40000},
		{services.ErrFileTooLarge, http.StatusBadRequest, 40000},
		{errors.New("db down"), http.StatusInternalServerError, 50000},
	}
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			w := httptest.NewRecorder()
			ctx, _ := gin.CreateTestContext(w)
			respondError(ctx, tc.err)
			assert.Equal(t, tc.status, w.Code)
			var body utils.JSONResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tc.code, body.Code)
		})
	}
}

func TestPageRequestAndSearch(t *testing.T) {
	w := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(w)
	ctx.Request = httptest.NewRequest(http.MethodGet,
		"/posts?page=3&size=20&sort=viewCount,desc&sort=title,ASC&sort=,asc&searchCondition=writer&keyword=+bob+", nil)

	req := pageRequest(ctx)
	assert.Equal(t, 3, req.Page)
	assert.Equal(t, 20, req.Size)
	assert.Equal(t, []repository.Order{
		{Property: "viewCount", Direction: repository.Desc},
		{Property: "title", Direction: repository.Asc},
	}, req.Sort)

	s := searchQuery(ctx)
	assert.Equal(t, repository.SearchWriter, s.Condition)
	assert.Equal(t, "bob", s.Keyword)
}

func TestParsePagination_Defaults(t *testing.T) {
	page, size := parsePagination("", "")
	assert.Equal(t, 1, page)
	assert.Equal(t, repository.DefaultPageSize, size)

	page, size = parsePagination("-2", "1000")
	assert.Equal(t, 1, page)
	assert.Equal(t, repository.DefaultPageSize, size)
}

func TestIDParam(t *testing.T) {
	for _, raw := range []string{"0", "abc", "-1", ""} {
		w := httptest.NewRecorder()
		ctx, _ := gin.CreateTestContext(w)
		ctx.Params = gin.Params{{Key: "id", Value: raw}}
		_, ok := idParam(ctx, "id")
		assert.False(t, ok, raw)
		assert.Equal(t, http.StatusBadRequest, w.Code, raw)
	}

	ctx, _ := gin.CreateTestContext(httptest.NewRecorder())
	ctx.Params = gin.Params{{Key: "id", Value: "42"}}
	id, ok := idParam(ctx, "id")
	assert.True(t, ok)
	assert.Equal(t, uint(42), id)
}

func TestWithQuery(t *testing.T) {
	cases := []struct {
		base string
		want string
	}{
		{"http://front.test/welcome", "http://front.test/welcome?verified=a%40b.com"},
		{"http://front.test/?lang=en", "http://front.test/?lang=en&verified=a%40b.com"},
		{"http://front.test/?verified=old#top", "http://front.test/?verified=a%40b.com#top"},
	}
	for _, tc := range cases {
		got, err := withQuery(tc.base, "verified", "a@b.com")
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, tc.base)
	}

	_, err := withQuery("http://[::1", "verified", "a@b.com")
	assert.Error(t, err)
}

func TestFetchGitHubUser_FallsBackToEmailList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/user":
			_, _ = w.Write([]byte(`{"id":99,"login":"octo","name":""}`))
		case "/user/emails":
			_, _ = w.Write([]byte(`[{"email":"old@example.com","primary":false,"verified":true},{"email":"octo@example.com","primary":true,"verified":true}]`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	p, err := fetchGitHubUser(context.Background(), srv.Client(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, services.OAuthProfile{ID: "99", Email: "octo@example.com", Name: "octo"}, p)
}

func TestFetchGoogleUser_IgnoresUnverifiedEmail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"g-1","email":"g@example.com","verified_email":false,"name":"Gee"}`))
	}))
	defer srv.Close()

	p, err := fetchGoogleUser(context.Background(), srv.Client(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, services.OAuthProfile{ID: "g-1", Name: "Gee"}, p)

	_, err = fetchGoogleUser(context.Background(), srv.Client(), srv.URL+"/%zz")
	assert.Error(t, err)
}

func TestOAuthController_StateRoundTrip(t *testing.T) {
	states := utils.NewStateStore(utils.NewMemoryCache(time.Minute))
	o := NewOAuthController(config.AppConfig{
		GitHubClientID:     "id",
		GitHubClientSecret: "secret",
		OAuthRedirectBase:  "http://forum.test",
	}, nil, nil, states)
	r := gin.New()
	r.GET("/oauth/:provider/login", o.OAuthRedirect)
	r.GET("/oauth/:provider/callback", o.OAuthCallback)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/oauth/github/login", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data struct {
			URL   string `json:"authorization_url"`
			State string `json:"state"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, body.Data.URL, "github.com")
	assert.Contains(t, body.Data.URL, "state="+body.Data.State)
	assert.Contains(t, body.Data.URL, "redirect_uri=http%3A%2F%2Fforum.test%2Fapi%2Fv1%2Fauth%2Foauth%2Fgithub%2Fcallback")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/oauth/github/callback?code=c&state=forged", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.True(t, states.Consume(context.Background(), body.Data.State), "a forged state must not consume the real one")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/oauth/google/login", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
