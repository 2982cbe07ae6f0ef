package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimit_PerClientIP(t *testing.T) {
	r := gin.New()
	r.Use(RateLimit(4)) // burst of 2
	r.GET("/", func(ctx *gin.Context) { ctx.Status(http.StatusNoContent) })

	hit := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = ip + ":1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusNoContent, hit("10.0.0.1"))
	assert.Equal(t, http.StatusNoContent, hit("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, hit("10.0.0.1"))
	assert.Equal(t, http.StatusNoContent, hit("10.0.0.2"))
}

func TestLimiterSet_SweepsIdleBucketsPeriodically(t *testing.T) {
	start := time.Now()
	set := &limiterSet{limiters: map[string]*rateLimiter{}, limit: 1, burst: 1, swept: start}

	set.get("10.0.0.1", start)
	set.get("10.0.0.2", start.Add(limiterIdle))

	// 10.0.0.1 is idle now but the last sweep is too recent to run another one
	set.get("10.0.0.3", start.Add(limiterIdle+time.Minute))
	assert.Len(t, set.limiters, 3)

	set.get("10.0.0.3", start.Add(2*limiterIdle))
	assert.Len(t, set.limiters, 2)
	assert.NotContains(t, set.limiters, "10.0.0.1")
	assert.Contains(t, set.limiters, "10.0.0.2")
}

func TestSession_IssuesAndKeepsCookie(t *testing.T) {
	r := gin.New()
	r.Use(Session(false))
	r.GET("/", func(ctx *gin.Context) { ctx.String(http.StatusOK, ctx.GetString(ContextSessionKey)) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, SessionCookie, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, cookies[0].Value, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Empty(t, w.Result().Cookies())
	assert.Equal(t, cookies[0].Value, w.Body.String())

	// a forged value is replaced
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "../../etc"})
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Len(t, w.Result().Cookies(), 1)
	assert.NotEqual(t, "../../etc", w.Body.String())
}

func TestMetrics_RecordsRouteTemplate(t *testing.T) {
	r := gin.New()
	r.Use(Metrics())
	r.GET("/posts/:id", func(ctx *gin.Context) { ctx.Status(http.StatusOK) })

	before := testCounter(t, http.MethodGet, "/posts/:id", "200")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/posts/42", nil))
	assert.Equal(t, before+1, testCounter(t, http.MethodGet, "/posts/:id", "200"))
}

func testCounter(t *testing.T, labels ...string) float64 {
	t.Helper()
	return testutil.ToFloat64(httpRequests.WithLabelValues(labels...))
}
