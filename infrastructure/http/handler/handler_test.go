package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fixora/authapi/application/port/inbound"
	"github.com/fixora/authapi/application/port/outbound"
	domainerror "github.com/fixora/authapi/domain/error"
	"github.com/fixora/authapi/domain/valueobject"
	"github.com/fixora/authapi/infrastructure/http/middleware"
	"github.com/fixora/authapi/infrastructure/service/logger"
)

type MockAuthUseCase struct {
	mock.Mock
}

func (m *MockAuthUseCase) Register(ctx context.Context, req inbound.RegisterRequest) error {
	return m.Called(ctx, req).Error(0)
}

func (m *MockAuthUseCase) Authenticate(ctx context.Context, req inbound.AuthenticateRequest, meta inbound.RequestMeta) (*valueobject.TokenPair, error) {
	args := m.Called(ctx, req, meta)
	if pair, ok := args.Get(0).(*valueobject.TokenPair); ok {
		return pair, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAuthUseCase) Refresh(ctx context.Context, req inbound.RefreshRequest, meta inbound.RequestMeta) (*valueobject.TokenPair, error) {
	args := m.Called(ctx, req, meta)
	if pair, ok := args.Get(0).(*valueobject.TokenPair); ok {
		return pair, args.Error(1)
	}
	return nil, args.Error(1)
}

type MockPasswordResetUseCase struct {
	mock.Mock
}

func (m *MockPasswordResetUseCase) SendResetEmail(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

func (m *MockPasswordResetUseCase) ResetPassword(ctx context.Context, req inbound.ResetPasswordRequest) error {
	return m.Called(ctx, req).Error(0)
}

type MockUserManagementUseCase struct {
	mock.Mock
}

func (m *MockUserManagementUseCase) ListUsers(ctx context.Context) ([]inbound.UserListItem, error) {
	args := m.Called(ctx)
	if items, ok := args.Get(0).([]inbound.UserListItem); ok {
		return items, args.Error(1)
	}
	return nil, args.Error(1)
}

func post(body string) *http.Request {
	if body == "" {
		return httptest.NewRequest(http.MethodPost, "/", nil)
	}
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	return r
}

func decodeMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Message
}

func TestAuthHandler_Register(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		uc := new(MockAuthUseCase)
		req := inbound.RegisterRequest{Username: "alice", Email: "alice@example.com", Password: "Passw0rd!", FirstName: "Alice"}
		uc.On("Register", mock.Anything, req).Return(nil)
		h := NewAuthHandler(uc, logger.NewNopLogger())

		rec := httptest.NewRecorder()
		h.Register(rec, post(`{"username":"alice","email":"alice@example.com","password":"Passw0rd!","firstName":"Alice"}`))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "User Registered!", decodeMessage(t, rec))
		uc.AssertExpectations(t)
	})

	t.Run("duplicate username", func(t *testing.T) {
		uc := new(MockAuthUseCase)
		uc.On("Register", mock.Anything, mock.Anything).Return(domainerror.ErrDuplicateUsername("alice"))
		h := NewAuthHandler(uc, logger.NewNopLogger())

		rec := httptest.NewRecorder()
		h.Register(rec, post(`{"username":"alice","email":"a@b.co","password":"x"}`))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Username already exist!", decodeMessage(t, rec))
	})

	t.Run("duplicate username wins over an empty password", func(t *testing.T) {
		uc := new(MockAuthUseCase)
		req := inbound.RegisterRequest{Username: "alice", Email: "alice@example.com"}
		uc.On("Register", mock.Anything, req).Return(domainerror.ErrDuplicateUsername("alice"))
		h := NewAuthHandler(uc, logger.NewNopLogger())

		rec := httptest.NewRecorder()
		h.Register(rec, post(`{"username":"alice","email":"alice@example.com","password":""}`))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Username already exist!", decodeMessage(t, rec))
		uc.AssertExpectations(t)
	})

	t.Run("duplicate email wins over a missing password", func(t *testing.T) {
		uc := new(MockAuthUseCase)
		uc.On("Register", mock.Anything, inbound.RegisterRequest{Username: "bob", Email: "alice@example.com"}).
			Return(domainerror.ErrDuplicateEmail("alice@example.com"))
		h := NewAuthHandler(uc, logger.NewNopLogger())

		rec := httptest.NewRecorder()
		h.Register(rec, post(`{"username":"bob","email":"alice@example.com"}`))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Email already exist!", decodeMessage(t, rec))
		uc.AssertExpectations(t)
	})

	t.Run("missing username", func(t *testing.T) {
		uc := new(MockAuthUseCase)
		h := NewAuthHandler(uc, logger.NewNopLogger())

		rec := httptest.NewRecorder()
		h.Register(rec, post(`{"email":"a@b.co","password":"Passw0rd!"}`))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Invalid request body", decodeMessage(t, rec))
		uc.AssertNotCalled(t, "Register", mock.Anything, mock.Anything)
	})

	t.Run("malformed body", func(t *testing.T) {
		uc := new(MockAuthUseCase)
		h := NewAuthHandler(uc, logger.NewNopLogger())

		rec := httptest.NewRecorder()
		h.Register(rec, post(`{"username":`))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Invalid request body", decodeMessage(t, rec))
		uc.AssertNotCalled(t, "Register", mock.Anything, mock.Anything)
	})

	t.Run("database failure is hidden", func(t *testing.T) {
		uc := new(MockAuthUseCase)
		uc.On("Register", mock.Anything, mock.Anything).
			Return(domainerror.ErrDatabaseError("create user", errors.New("pq: relation users does not exist")))
		h := NewAuthHandler(uc, logger.NewNopLogger())

		rec := httptest.NewRecorder()
		h.Register(rec, post(`{"username":"alice","email":"a@b.co","password":"x"}`))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "Internal server error", decodeMessage(t, rec))
		assert.NotContains(t, rec.Body.String(), "relation")
	})
}

func TestAuthHandler_Authenticate(t *testing.T) {
	t.Run("returns token pair", func(t *testing.T) {
		uc := new(MockAuthUseCase)
		uc.On("Authenticate", mock.Anything, inbound.AuthenticateRequest{Username: "alice", Password: "pw"},
			mock.MatchedBy(func(meta inbound.RequestMeta) bool { return meta.IP == "10.0.0.7" })).
			Return(&valueobject.TokenPair{AccessToken: "a.b.c", RefreshToken: "r"}, nil)
		h := NewAuthHandler(uc, logger.NewNopLogger())

		r := post(`{"username":"alice","password":"pw"}`)
		r.Header.Set("X-Forwarded-For", "10.0.0.7, 172.16.0.1")
		rec := httptest.NewRecorder()
		h.Authenticate(rec, r)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"accessToken":"a.b.c","refreshToken":"r"}`, rec.Body.String())
	})

	t.Run("unknown username is 404", func(t *testing.T) {
		uc := new(MockAuthUseCase)
		uc.On("Authenticate", mock.Anything, mock.Anything, mock.Anything).Return(nil, domainerror.ErrUnknownUsername("ghost"))
		h := NewAuthHandler(uc, logger.NewNopLogger())

		rec := httptest.NewRecorder()
		h.Authenticate(rec, post(`{"username":"ghost","password":"pw"}`))

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "Username or password is incorrect!", decodeMessage(t, rec))
	})

	t.Run("wrong password is 400", func(t *testing.T) {
		uc := new(MockAuthUseCase)
		uc.On("Authenticate", mock.Anything, mock.Anything, mock.Anything).Return(nil, domainerror.ErrInvalidCredentials("mismatch"))
		h := NewAuthHandler(uc, logger.NewNopLogger())

		rec := httptest.NewRecorder()
		h.Authenticate(rec, post(`{"username":"alice","password":"bad"}`))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Username or password is incorrect!", decodeMessage(t, rec))
	})

	t.Run("missing fields", func(t *testing.T) {
		uc := new(MockAuthUseCase)
		h := NewAuthHandler(uc, logger.NewNopLogger())

		rec := httptest.NewRecorder()
		h.Authenticate(rec, post(`{"username":"alice"}`))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		uc.AssertNotCalled(t, "Authenticate", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestAuthHandler_Refresh(t *testing.T) {
	t.Run("missing body", func(t *testing.T) {
		uc := new(MockAuthUseCase)
		h := NewAuthHandler(uc, logger.NewNopLogger())

		for _, body := range []string{"", "null"} {
			rec := httptest.NewRecorder()
			h.Refresh(rec, post(body))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "Invalid Client Request", decodeMessage(t, rec))
		}
	})

	t.Run("rejection is generic", func(t *testing.T) {
		uc := new(MockAuthUseCase)
		uc.On("Refresh", mock.Anything, mock.Anything, mock.Anything).Return(nil, domainerror.ErrInvalidRequest("refresh_expired"))
		h := NewAuthHandler(uc, logger.NewNopLogger())

		rec := httptest.NewRecorder()
		h.Refresh(rec, post(`{"accessToken":"a.b.c","refreshToken":"r"}`))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Invalid Request", decodeMessage(t, rec))
		assert.NotContains(t, rec.Body.String(), "refresh_expired")
	})

	t.Run("success", func(t *testing.T) {
		uc := new(MockAuthUseCase)
		uc.On("Refresh", mock.Anything, inbound.RefreshRequest{AccessToken: "a.b.c", RefreshToken: "r"}, mock.Anything).
			Return(&valueobject.TokenPair{AccessToken: "d.e.f", RefreshToken: "r2"}, nil)
		h := NewAuthHandler(uc, logger.NewNopLogger())

		rec := httptest.NewRecorder()
		h.Refresh(rec, post(`{"accessToken":"a.b.c","refreshToken":"r"}`))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"accessToken":"d.e.f","refreshToken":"r2"}`, rec.Body.String())
	})
}

func TestPasswordResetHandler_SendResetEmail(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"sent", nil, http.StatusOK, "Email Sent!"},
		{"unknown email", domainerror.ErrEmailNotFound("ghost@example.com"), http.StatusNotFound, "email doesn't exist"},
		{"dispatch failure", domainerror.ErrInternalServerError("send", errors.New("smtp down")), http.StatusInternalServerError, "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := new(MockPasswordResetUseCase)
			uc.On("SendResetEmail", mock.Anything, "alice@example.com").Return(tt.err)
			h := NewPasswordResetHandler(uc, logger.NewNopLogger())

			r := mux.SetURLVars(post(""), map[string]string{"email": "alice@example.com"})
			rec := httptest.NewRecorder()
			h.SendResetEmail(rec, r)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantMsg, decodeMessage(t, rec))
		})
	}
}

func TestPasswordResetHandler_ResetPassword(t *testing.T) {
	body := `{"email":"alice@example.com","emailToken":"tok","newPassword":"N3wPassw0rd!","confirmPassword":"N3wPassw0rd!"}`
	want := inbound.ResetPasswordRequest{
		Email: "alice@example.com", EmailToken: "tok", NewPassword: "N3wPassw0rd!", ConfirmPassword: "N3wPassw0rd!",
	}

	t.Run("success", func(t *testing.T) {
		uc := new(MockPasswordResetUseCase)
		uc.On("ResetPassword", mock.Anything, want).Return(nil)
		h := NewPasswordResetHandler(uc, logger.NewNopLogger())

		rec := httptest.NewRecorder()
		h.ResetPassword(rec, post(body))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Password Reset Successfully", decodeMessage(t, rec))
	})

	t.Run("invalid link", func(t *testing.T) {
		uc := new(MockPasswordResetUseCase)
		uc.On("ResetPassword", mock.Anything, want).Return(domainerror.ErrInvalidResetLink("token_expired"))
		h := NewPasswordResetHandler(uc, logger.NewNopLogger())

		rec := httptest.NewRecorder()
		h.ResetPassword(rec, post(body))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Invalid Reset link", decodeMessage(t, rec))
	})

	t.Run("unknown email wins over an empty new password", func(t *testing.T) {
		uc := new(MockPasswordResetUseCase)
		uc.On("ResetPassword", mock.Anything, inbound.ResetPasswordRequest{Email: "ghost@example.com", EmailToken: "tok"}).
			Return(domainerror.ErrResetUserNotFound("ghost@example.com"))
		h := NewPasswordResetHandler(uc, logger.NewNopLogger())

		rec := httptest.NewRecorder()
		h.ResetPassword(rec, post(`{"email":"ghost@example.com","emailToken":"tok","newPassword":""}`))

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "User doesn't exist", decodeMessage(t, rec))
		uc.AssertExpectations(t)
	})
}

func TestUserHandler_ListUsers(t *testing.T) {
	uc := new(MockUserManagementUseCase)
	uc.On("ListUsers", mock.Anything).Return([]inbound.UserListItem{
		{ID: "u-1", Username: "alice", Email: "alice@example.com", FirstName: "Alice", LastName: "Smith", Role: "User"},
	}, nil)
	h := NewUserHandler(uc)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r = r.WithContext(middleware.WithUserClaims(r.Context(), &outbound.TokenClaims{Username: "alice", Role: "User"}))
	rec := httptest.NewRecorder()
	h.ListUsers(rec, r)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"id":"u-1","username":"alice","email":"alice@example.com","firstName":"Alice","lastName":"Smith","role":"User"}]`, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "password")

	rec = httptest.NewRecorder()
	h.ListUsers(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	uc.AssertNumberOfCalls(t, "ListUsers", 1)
}

type fakePinger struct{ err error }

func (p fakePinger) PingContext(context.Context) error { return p.err }

func TestHealthHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHealthHandler(fakePinger{}).Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	NewHealthHandler(fakePinger{err: errors.New("down")}).Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
