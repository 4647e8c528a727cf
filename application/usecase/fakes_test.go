package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/fixora/authapi/application/port/outbound"
	"github.com/fixora/authapi/domain/entity"
)

type fakeUserRepository struct {
	mu    sync.Mutex
	users map[string]*entity.User
}

func newFakeUserRepository(users ...*entity.User) *fakeUserRepository {
	r := &fakeUserRepository{users: make(map[string]*entity.User)}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUserRepository) find(match func(*entity.User) bool) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if match(u) {
			copied := *u
			return &copied, nil
		}
	}
	return nil, outbound.ErrUserNotFound
}

func (r *fakeUserRepository) FindByID(_ context.Context, id string) (*entity.User, error) {
	return r.find(func(u *entity.User) bool { return u.ID == id })
}

func (r *fakeUserRepository) FindByUsername(_ context.Context, username string) (*entity.User, error) {
	return r.find(func(u *entity.User) bool { return u.Username == username })
}

func (r *fakeUserRepository) FindByEmail(_ context.Context, email string) (*entity.User, error) {
	return r.find(func(u *entity.User) bool { return u.Email == email })
}

func (r *fakeUserRepository) FindAll(_ context.Context) ([]*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entity.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u)
	}
	return out, nil
}

func (r *fakeUserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	_, err := r.FindByUsername(ctx, username)
	return err == nil, nil
}

func (r *fakeUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := r.FindByEmail(ctx, email)
	return err == nil, nil
}

func (r *fakeUserRepository) Create(_ context.Context, user *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == user.Username {
			return outbound.ErrUsernameAlreadyExists
		}
		if u.Email == user.Email {
			return outbound.ErrEmailAlreadyExists
		}
	}
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepository) UpdatePassword(_ context.Context, userID, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return outbound.ErrUserNotFound
	}
	u.Password = passwordHash
	return nil
}

// fakeRefreshTokenRepository keeps plaintext tokens in TokenHash.
type fakeRefreshTokenRepository struct {
	mu       sync.Mutex
	byUser   map[string]*entity.RefreshToken
	reserved map[string]bool
	saveErr  error
}

func newFakeRefreshTokenRepository() *fakeRefreshTokenRepository {
	return &fakeRefreshTokenRepository{
		byUser:   make(map[string]*entity.RefreshToken),
		reserved: make(map[string]bool),
	}
}

func (r *fakeRefreshTokenRepository) taken(token, userID string) bool {
	if r.reserved[token] {
		return true
	}
	for uid, rt := range r.byUser {
		if uid != userID && rt.TokenHash == token {
			return true
		}
	}
	return false
}

func (r *fakeRefreshTokenRepository) Save(_ context.Context, token *entity.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	if r.taken(token.Token, token.UserID) {
		return outbound.ErrRefreshTokenAlreadyExists
	}
	stored := *token
	stored.TokenHash = token.Token
	stored.Token = ""
	r.byUser[token.UserID] = &stored
	return nil
}

func (r *fakeRefreshTokenRepository) Replace(_ context.Context, previous, next *entity.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.byUser[next.UserID]
	if !ok || current.TokenHash != previous.TokenHash {
		return outbound.ErrRefreshTokenNotFound
	}
	if r.taken(next.Token, next.UserID) {
		return outbound.ErrRefreshTokenAlreadyExists
	}
	stored := *next
	stored.TokenHash = next.Token
	stored.Token = ""
	r.byUser[next.UserID] = &stored
	return nil
}

func (r *fakeRefreshTokenRepository) FindByUserID(_ context.Context, userID string) (*entity.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rt, ok := r.byUser[userID]
	if !ok {
		return nil, outbound.ErrRefreshTokenNotFound
	}
	copied := *rt
	return &copied, nil
}

func (r *fakeRefreshTokenRepository) ExistsByToken(_ context.Context, token string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.taken(token, ""), nil
}

func (r *fakeRefreshTokenRepository) Matches(stored *entity.RefreshToken, token string) bool {
	return stored.TokenHash == token
}

type fakePasswordResetRepository struct {
	mu     sync.Mutex
	byUser map[string]*entity.PasswordReset
}

func newFakePasswordResetRepository() *fakePasswordResetRepository {
	return &fakePasswordResetRepository{byUser: make(map[string]*entity.PasswordReset)}
}

func (r *fakePasswordResetRepository) Save(_ context.Context, reset *entity.PasswordReset) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *reset
	stored.TokenHash = reset.Token
	stored.Token = ""
	r.byUser[reset.UserID] = &stored
	return nil
}

func (r *fakePasswordResetRepository) FindByUserID(_ context.Context, userID string) (*entity.PasswordReset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	reset, ok := r.byUser[userID]
	if !ok {
		return nil, outbound.ErrPasswordResetNotFound
	}
	copied := *reset
	return &copied, nil
}

func (r *fakePasswordResetRepository) DeleteByUserID(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byUser, userID)
	return nil
}

func (r *fakePasswordResetRepository) Matches(stored *entity.PasswordReset, token string) bool {
	return stored.TokenHash == token
}

// fakeTokenService hands out predictable tokens and remembers the claims of
// each access token it signed.
type fakeTokenService struct {
	mu       sync.Mutex
	seq      int
	queue    []string
	claims   map[string]outbound.TokenClaims
	now      func() time.Time
	genError error
}

func newFakeTokenService() *fakeTokenService {
	return &fakeTokenService{claims: make(map[string]outbound.TokenClaims), now: time.Now}
}

func (s *fakeTokenService) GenerateAccessToken(claims outbound.TokenClaims) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	token := fmt.Sprintf("access-%d", s.seq)
	s.claims[token] = claims
	return token, nil
}

func (s *fakeTokenService) GenerateRefreshToken() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.genError != nil {
		return "", s.genError
	}
	if len(s.queue) > 0 {
		next := s.queue[0]
		s.queue = s.queue[1:]
		return next, nil
	}
	s.seq++
	return fmt.Sprintf("refresh-%d", s.seq), nil
}

func (s *fakeTokenService) ValidateAccessToken(token string) (*outbound.TokenClaims, error) {
	claims, err := s.ParseExpiredAccessToken(token)
	if err != nil {
		return nil, err
	}
	if !s.now().Before(claims.ExpiresAt) {
		return nil, errors.New("token is expired")
	}
	return claims, nil
}

func (s *fakeTokenService) ParseExpiredAccessToken(token string) (*outbound.TokenClaims, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	claims, ok := s.claims[token]
	if !ok {
		return nil, errors.New("signature is invalid")
	}
	return &claims, nil
}

type fakePasswordService struct{}

func (fakePasswordService) HashPassword(password string) (string, error) {
	return "hashed:" + password, nil
}

func (fakePasswordService) ComparePassword(hashedPassword, password string) error {
	if strings.TrimPrefix(hashedPassword, "hashed:") != password {
		return errors.New("mismatch")
	}
	return nil
}

type fakeMetrics struct {
	mu       sync.Mutex
	refresh  []string
	login    []string
	register []string
	reset    []string
}

func (m *fakeMetrics) ObserveRegistration(result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.register = append(m.register, result)
}

func (m *fakeMetrics) ObserveLogin(result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.login = append(m.login, result)
}

func (m *fakeMetrics) ObserveRefresh(result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refresh = append(m.refresh, result)
}

func (m *fakeMetrics) ObservePasswordReset(stage, result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reset = append(m.reset, stage+":"+result)
}

type MockEmailSender struct {
	mock.Mock
}

func (m *MockEmailSender) Send(ctx context.Context, msg outbound.EmailMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

type stubComposer struct{}

func (stubComposer) ComposePasswordReset(user *entity.User, token string) (outbound.EmailMessage, error) {
	return outbound.EmailMessage{
		To:      user.Email,
		Subject: "Reset Password!!",
		HTML:    "code=" + token,
	}, nil
}

type fixedClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}
