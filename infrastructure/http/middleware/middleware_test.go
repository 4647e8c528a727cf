package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fixora/authapi/application/port/outbound"
	"github.com/fixora/authapi/infrastructure/service/logger"
	"github.com/fixora/authapi/infrastructure/service/ratelimit"
)

type MockTokenService struct {
	mock.Mock
}

func (m *MockTokenService) GenerateAccessToken(claims outbound.TokenClaims) (string, error) {
	args := m.Called(claims)
	return args.String(0), args.Error(1)
}

func (m *MockTokenService) GenerateRefreshToken() (string, error) {
	args := m.Called()
	return args.String(0), args.Error(1)
}

func (m *MockTokenService) ValidateAccessToken(token string) (*outbound.TokenClaims, error) {
	args := m.Called(token)
	if claims, ok := args.Get(0).(*outbound.TokenClaims); ok {
		return claims, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockTokenService) ParseExpiredAccessToken(token string) (*outbound.TokenClaims, error) {
	args := m.Called(token)
	if claims, ok := args.Get(0).(*outbound.TokenClaims); ok {
		return claims, args.Error(1)
	}
	return nil, args.Error(1)
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestRequireAuth(t *testing.T) {
	tokens := new(MockTokenService)
	tokens.On("ValidateAccessToken", "good.token.sig").Return(&outbound.TokenClaims{Username: "alice", Role: "User"}, nil)
	tokens.On("ValidateAccessToken", "expired.token.sig").Return(nil, errors.New("token expired"))
	m := NewAuthMiddleware(tokens)

	var seen *outbound.TokenClaims
	protected := m.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetUserClaims(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"not a jwt", "Bearer opaque", http.StatusUnauthorized},
		{"expired", "Bearer expired.token.sig", http.StatusUnauthorized},
		{"valid", "Bearer good.token.sig", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/user/", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			protected.ServeHTTP(rec, r)
			assert.Equal(t, tt.want, rec.Code)
		})
	}

	require.NotNil(t, seen)
	assert.Equal(t, "alice", seen.Username)
}

func TestCorrelationIDMiddleware(t *testing.T) {
	var fromCtx string
	h := CorrelationIDMiddleware("")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fromCtx = logger.CorrelationID(r.Context())
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(CorrelationIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	assert.Equal(t, "abc-123", fromCtx)
	assert.Equal(t, "abc-123", rec.Header().Get(CorrelationIDHeader))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, rec.Header().Get(CorrelationIDHeader), 36)
	assert.Equal(t, rec.Header().Get(CorrelationIDHeader), fromCtx)
}

func TestCORSMiddleware(t *testing.T) {
	h := CORSMiddleware([]string{"http://localhost:4200"}, true)(okHandler)

	t.Run("allowed origin", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Origin", "http://localhost:4200")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)

		assert.Equal(t, "http://localhost:4200", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("foreign origin", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Origin", "https://evil.example")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)

		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodOptions, "/api/user/refresh", nil)
		r.Header.Set("Origin", "http://localhost:4200")
		r.Header.Set("Access-Control-Request-Method", "POST")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Authorization")
	})
}

func newRedisLimiter(t *testing.T, mr *miniredis.Miniredis) *RateLimitMiddleware {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	svc := ratelimit.NewRedisRateLimitService(client, logger.NewNopLogger())
	return NewRateLimitMiddleware(svc, RateLimitConfig{Attempts: 2, Window: time.Minute, BlockDuration: 5 * time.Minute}, logger.NewNopLogger())
}

func TestRateLimitMiddleware_BlocksAfterLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	limiter := newRedisLimiter(t, mr)

	r := mux.NewRouter()
	r.Handle("/api/user/authenticate", limiter.RateLimit(okHandler)).Name("authenticate")

	send := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/user/authenticate", nil)
		req.RemoteAddr = ip + ":5555"
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, send("10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, send("10.0.0.1").Code)

	rec := send("10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "300", rec.Header().Get("Retry-After"))
	assert.True(t, mr.Exists("blocked:authenticate:ip:10.0.0.1"))

	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, send("10.0.0.2").Code, "other clients are unaffected")
}

func TestRateLimitMiddleware_FailsOpen(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	limiter := newRedisLimiter(t, mr)
	mr.Close()

	rec := httptest.NewRecorder()
	limiter.RateLimit(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/user/refresh", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.168.1.9:4242"
	assert.Equal(t, "192.168.1.9", ClientIP(r))

	r.Header.Set("X-Real-IP", "10.1.1.1")
	assert.Equal(t, "10.1.1.1", ClientIP(r))

	r.Header.Set("X-Forwarded-For", "203.0.113.5, 10.1.1.1")
	assert.Equal(t, "203.0.113.5", ClientIP(r))

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "[::1]:8080"
	assert.Equal(t, "::1", ClientIP(r))
}

type observation struct {
	route, method string
	status        int
}

type fakeObserver struct {
	mu  sync.Mutex
	obs []observation
}

func (o *fakeObserver) ObserveHTTP(route, method string, status int, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.obs = append(o.obs, observation{route, method, status})
}

func TestRequestLoggerAndRecovery(t *testing.T) {
	observer := &fakeObserver{}
	r := mux.NewRouter()
	r.Use(Recovery(logger.NewNopLogger()))
	r.Use(RequestLogger(logger.NewNopLogger(), observer))
	r.HandleFunc("/send-reset-email/{email}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.HandleFunc("/boom", func(http.ResponseWriter, *http.Request) { panic("boom") })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/send-reset-email/a@b.co", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	require.Len(t, observer.obs, 1, "a panicking handler never reaches the observer")
	assert.Equal(t, observation{"/send-reset-email/{email}", http.MethodPost, http.StatusNotFound}, observer.obs[0])
}
