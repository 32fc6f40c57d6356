package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"careshare-service/internal/apperr"
	"careshare-service/internal/auth"
	"careshare-service/internal/models"
	"careshare-service/internal/service"
	"careshare-service/internal/storage"
	"careshare-service/internal/store/storetest"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type memDenylist struct {
	mu      sync.Mutex
	revoked map[string]time.Duration
}

func (d *memDenylist) RevokeToken(_ context.Context, id string, ttl time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.revoked[id] = ttl
	return nil
}

func (d *memDenylist) IsTokenRevoked(_ context.Context, id string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.revoked[id]
	return ok, nil
}

type countingLimiter struct {
	mu    sync.Mutex
	calls map[string]int
}

func (l *countingLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (bool, int64, time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls[key]++
	remaining := int64(limit - l.calls[key])
	if remaining < 0 {
		remaining = 0
	}
	return l.calls[key] <= limit, remaining, window, nil
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

type testServer struct {
	router    *gin.Engine
	store     *storetest.Memory
	denylist  *memDenylist
	limiter   *countingLimiter
	tokens    *auth.TokenManager
	uploadDir string
}

func newTestServer(t *testing.T, readiness map[string]Pinger) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st := storetest.NewMemory()
	denylist := &memDenylist{revoked: map[string]time.Duration{}}
	limiter := &countingLimiter{calls: map[string]int{}}
	tokens := auth.NewTokenManager("test-secret", time.Hour)

	uploadDir := t.TempDir()
	files, err := storage.NewLocalStorage(uploadDir)
	require.NoError(t, err)

	listings := service.NewListingService(st, files, nil, 0)
	exchanges := service.NewExchangeService(st, st, files, nil)
	purchases := service.NewPurchaseService(st, st, st, nil, nil, false)

	h := NewHandler(Options{
		Users:              service.NewUserService(st, tokens, denylist, nil, bcrypt.MinCost, time.Hour),
		Listings:           listings,
		Exchanges:          exchanges,
		Purchases:          purchases,
		Admin:              service.NewAdminService(st, listings, exchanges, purchases),
		Tokens:             tokens,
		Denylist:           denylist,
		Limiter:            limiter,
		Readiness:          readiness,
		BaseURL:            "http://localhost:3000",
		RateLimitPerMinute: 3,
		UploadDir:          uploadDir,
	})

	router := gin.New()
	h.SetupRoutes(router)
	return &testServer{
		router:    router,
		store:     st,
		denylist:  denylist,
		limiter:   limiter,
		tokens:    tokens,
		uploadDir: uploadDir,
	}
}

// tokenFor issues an access token for a seeded user
func (s *testServer) tokenFor(t *testing.T, identity models.Identity) string {
	t.Helper()
	user, err := s.store.GetUserByID(context.Background(), identity.UserID)
	require.NoError(t, err)
	token, err := s.tokens.Issue(user)
	require.NoError(t, err)
	return token.Token
}

func (s *testServer) do(method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) registerAndLogin(t *testing.T, email string) (string, *httptest.ResponseRecorder) {
	t.Helper()
	w := s.do(http.MethodPost, "/api/auth/register", gin.H{
		"email": email, "password": "secret123", "firstName": "Ada", "lastName": "Lovelace",
	}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(http.MethodPost, "/api/auth/login", gin.H{"email": email, "password": "secret123"}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotEmpty(t, body.Token)
	return body.Token, w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestRegisterLoginAndMe(t *testing.T) {
	s := newTestServer(t, nil)
	token, loginResp := s.registerAndLogin(t, "ada@example.com")

	var cookie *http.Cookie
	for _, c := range loginResp.Result().Cookies() {
		if c.Name == authCookieName {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, token, cookie.Value)

	w := s.do(http.MethodGet, "/api/auth/me", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Contains(t, w.Body.String(), "ada@example.com")

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: authCookieName, Value: cookie.Value})
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRegisterDuplicateIsConflict(t *testing.T) {
	s := newTestServer(t, nil)
	s.registerAndLogin(t, "dup@example.com")

	w := s.do(http.MethodPost, "/api/auth/register", gin.H{
		"email": "dup@example.com", "password": "secret123", "firstName": "A", "lastName": "B",
	}, "")
	assert.Equal(t, http.StatusConflict, w.Code)
	body := decode(t, w)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "CONFLICT", body["code"])
	assert.Equal(t, "Email is already registered!", body["message"])
}

func TestRegisterTrimsBeforeValidating(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(http.MethodPost, "/api/auth/register", gin.H{
		"email": "  Mixed@Example.com ", "password": "secret123", "firstName": " Ada ", "lastName": "L",
	}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"mixed@example.com"`)

	w = s.do(http.MethodPost, "/api/auth/register", gin.H{
		"email": "short@example.com", "password": "abc", "firstName": "A", "lastName": "B",
	}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Password must be at least 6 characters", decode(t, w)["message"])
}

func TestLoginWithBadCredentials(t *testing.T) {
	s := newTestServer(t, nil)
	s.registerAndLogin(t, "grace@example.com")

	w := s.do(http.MethodPost, "/api/auth/login", gin.H{"email": "grace@example.com", "password": "wrong-pass"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "UNAUTHENTICATED", decode(t, w)["code"])
}

func TestLogoutRevokesToken(t *testing.T) {
	s := newTestServer(t, nil)
	token, _ := s.registerAndLogin(t, "linus@example.com")

	w := s.do(http.MethodPost, "/api/auth/logout", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, s.denylist.revoked, 1)

	w = s.do(http.MethodGet, "/api/auth/me", nil, token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Token has been revoked", decode(t, w)["message"])
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t, nil)

	for _, path := range []string{"/api/auth/me", "/api/purchases/my-purchases", "/api/exchange-requests/received"} {
		w := s.do(http.MethodGet, path, nil, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}

	w := s.do(http.MethodGet, "/api/auth/me", nil, "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminRoutesRejectNonAdminTokens(t *testing.T) {
	s := newTestServer(t, nil)
	token, _ := s.registerAndLogin(t, "user@example.com")

	w := s.do(http.MethodGet, "/api/admin/users", nil, token)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", decode(t, w)["code"])
}

func TestLoginIsRateLimited(t *testing.T) {
	s := newTestServer(t, nil)

	var last *httptest.ResponseRecorder
	for i := 0; i < 4; i++ {
		last = s.do(http.MethodPost, "/api/auth/login", gin.H{"email": "x@example.com", "password": "whatever"}, "")
	}
	assert.Equal(t, http.StatusTooManyRequests, last.Code)
	assert.Equal(t, "RATE_LIMITED", decode(t, last)["code"])
	assert.NotEmpty(t, last.Header().Get("Retry-After"))

	// the store adds its own namespace
	assert.Equal(t, map[string]int{"login:192.0.2.1": 4}, s.limiter.calls)
}

func TestForgotPasswordDoesNotRevealAccounts(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(http.MethodPost, "/api/auth/forgot-password", gin.H{"email": "nobody@example.com"}, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, service.ForgotPasswordNote, decode(t, w)["message"])
}

func TestInvalidPathID(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(http.MethodGet, "/api/products/abc", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", decode(t, w)["code"])
}

func TestReadiness(t *testing.T) {
	s := newTestServer(t, map[string]Pinger{"postgres": stubPinger{}, "redis": stubPinger{}})
	w := s.do(http.MethodGet, "/ready", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)

	s = newTestServer(t, map[string]Pinger{"postgres": stubPinger{}, "redis": stubPinger{err: errors.New("down")}})
	w = s.do(http.MethodGet, "/ready", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"redis":"down"`)
}

func TestRespondErrorStatusMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		err    error
		status int
	}{
		{apperr.NotFound("Product not found"), http.StatusNotFound},
		{apperr.Validation("Price is required"), http.StatusBadRequest},
		{apperr.Unauthenticated("Authentication required"), http.StatusUnauthorized},
		{apperr.Forbidden("Admin access required"), http.StatusForbidden},
		{apperr.Conflict("Product is no longer available"), http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

		respondError(c, tt.err)
		assert.Equal(t, tt.status, w.Code, tt.err.Error())
	}
}

func TestRespondErrorHidesOperationCause(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	respondError(c, apperr.Wrap(errors.New("pq: connection refused"), "Failed to load products"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Failed to load products")
	assert.False(t, strings.Contains(w.Body.String(), "connection refused"))
}
