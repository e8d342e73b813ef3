package middleware

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(sessions.Sessions("test", cookie.NewStore([]byte("secret"))))
	return r
}

// sessionCookie выполняет запрос на /set и возвращает последнюю записанную cookie сессии.
func sessionCookie(t *testing.T, r *gin.Engine) *http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/set", nil))
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	return cookies[len(cookies)-1]
}

func TestAuthRequired_RedirectsWithoutSession(t *testing.T) {
	r := newEngine()
	r.GET("/private", AuthRequired(), func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/private", nil))

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestAuthRequired_SetsIdentity(t *testing.T) {
	r := newEngine()
	r.GET("/set", func(c *gin.Context) {
		s := sessions.Default(c)
		s.Set(SessionUserID, "user-1")
		s.Set(SessionUsername, "alice")
		require.NoError(t, s.Save())
	})
	r.GET("/private", AuthRequired(), func(c *gin.Context) {
		id, ok := CurrentIdentity(c)
		require.True(t, ok)
		c.String(http.StatusOK, id.UserID+"/"+id.Username)
	})

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.AddCookie(sessionCookie(t, r))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-1/alice", rec.Body.String())
}

func TestAuthRequired_ClearsCorruptedSession(t *testing.T) {
	r := newEngine()
	r.GET("/set", func(c *gin.Context) {
		s := sessions.Default(c)
		s.Set(SessionUserID, 42)
		require.NoError(t, s.Save())
	})
	r.GET("/private", AuthRequired(), func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.AddCookie(sessionCookie(t, r))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestCurrentIdentity_Missing(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	_, ok := CurrentIdentity(c)
	assert.False(t, ok)
}

func TestFlashes_ConsumedOnce(t *testing.T) {
	r := newEngine()
	r.GET("/set", func(c *gin.Context) {
		AddFlash(c, FlashSuccess, "saved")
		AddFlash(c, FlashError, "oops")
	})
	var got [][]Flash
	r.GET("/read", func(c *gin.Context) {
		got = append(got, TakeFlashes(c))
		c.Status(http.StatusOK)
	})

	ck := sessionCookie(t, r)
	req := httptest.NewRequest(http.MethodGet, "/read", nil)
	req.AddCookie(ck)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Len(t, got, 1)
	assert.Equal(t, []Flash{
		{Category: FlashSuccess, Message: "saved"},
		{Category: FlashError, Message: "oops"},
	}, got[0])

	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	req = httptest.NewRequest(http.MethodGet, "/read", nil)
	req.AddCookie(cookies[0])
	r.ServeHTTP(httptest.NewRecorder(), req)
	assert.Empty(t, got[1])
}

func TestBodyLimit_RejectsDeclaredLength(t *testing.T) {
	r := newEngine()
	r.Use(BodyLimit(10))
	called := false
	r.POST("/upload", func(c *gin.Context) { called = true })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(strings.Repeat("x", 11))))

	assert.False(t, called)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/upload", rec.Header().Get("Location"))
}

func TestBodyLimit_FlashNamesLimit(t *testing.T) {
	r := newEngine()
	r.Use(BodyLimit(16 << 20))
	var flashes []Flash
	r.POST("/upload", func(c *gin.Context) {})
	r.GET("/upload", func(c *gin.Context) { flashes = TakeFlashes(c) })

	req := httptest.NewRequest(http.MethodPost, "/upload", nil)
	req.ContentLength = 17 << 20
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusFound, rec.Code)

	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	req = httptest.NewRequest(http.MethodGet, "/upload", nil)
	req.AddCookie(cookies[len(cookies)-1])
	r.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, []Flash{{Category: FlashError, Message: "File is too large. Maximum size is 16MB."}}, flashes)
}

func TestFormatSize(t *testing.T) {
	tests := map[int64]string{
		16 << 20: "16MB",
		32 << 10: "32KB",
		1500:     "1500 bytes",
		0:        "0 bytes",
	}
	for n, want := range tests {
		assert.Equal(t, want, FormatSize(n), n)
	}
	assert.Equal(t, "File is too large. Maximum size is 16MB.", TooLargeMessage(16<<20))
}

func TestBodyLimit_WrapsUnknownLength(t *testing.T) {
	r := newEngine()
	r.Use(BodyLimit(10))
	var readErr error
	r.POST("/upload", func(c *gin.Context) {
		_, readErr = c.GetRawData()
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/upload", bytes.NewReader(bytes.Repeat([]byte("x"), 32)))
	req.ContentLength = -1
	r.ServeHTTP(httptest.NewRecorder(), req)

	require.Error(t, readErr)
	assert.True(t, IsTooLarge(readErr))
}

func TestIsTooLarge(t *testing.T) {
	assert.False(t, IsTooLarge(nil))
	assert.False(t, IsTooLarge(errors.New("other")))
	assert.True(t, IsTooLarge(fmt.Errorf("parse: %w", &http.MaxBytesError{Limit: 1})))
	assert.True(t, IsTooLarge(errors.New("http: request body too large")))
}

func TestAccessLog_WritesRequestLine(t *testing.T) {
	var buf bytes.Buffer
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AccessLog(zerolog.New(&buf)))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusTeapot) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ping", nil))

	out := buf.String()
	assert.Contains(t, out, `"path":"/ping"`)
	assert.Contains(t, out, `"status":418`)
	assert.Contains(t, out, `"method":"GET"`)
}

func TestRateLimit_PassthroughWhenDisabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/login", RateLimit(nil, 1, time.Minute), func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRateLimit_FailsOpenOnRedisError(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/login", RateLimit(rdb, 1, time.Minute), func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
