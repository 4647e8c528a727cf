package jwt

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/fixora/authapi/application/port/outbound"
	"github.com/fixora/authapi/infrastructure/config"
)

// RefreshTokenBytes is the entropy of refresh and password reset tokens.
const RefreshTokenBytes = 64

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrTokenExpired     = errors.New("token expired")
	ErrUnexpectedMethod = errors.New("unexpected signing method")
	ErrMissingSecret    = errors.New("jwt secret is empty")
)

// accessClaims is the payload of an access token: sub is the username and
// name the display name.
type accessClaims struct {
	Name string `json:"name"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// JWTService signs and verifies HS256 access tokens.
type JWTService struct {
	hmacSecret []byte
	ttl        time.Duration
	now        func() time.Time
}

var _ outbound.TokenService = (*JWTService)(nil)

func NewJWTService(cfg *config.Config) (*JWTService, error) {
	if cfg.JWTSecret == "" {
		return nil, ErrMissingSecret
	}
	return &JWTService{
		hmacSecret: []byte(cfg.JWTSecret),
		ttl:        cfg.AccessTokenTTL,
		now:        time.Now,
	}, nil
}

func (s *JWTService) GenerateAccessToken(claims outbound.TokenClaims) (string, error) {
	now := s.now()
	expiresAt := claims.ExpiresAt
	if expiresAt.IsZero() {
		expiresAt = now.Add(s.ttl)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims{
		Name: claims.DisplayName,
		Role: claims.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})

	tokenString, err := token.SignedString(s.hmacSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}

	return tokenString, nil
}

// GenerateRefreshToken returns 64 random bytes, standard base64 encoded.
func (s *JWTService) GenerateRefreshToken() (string, error) {
	bytes := make([]byte, RefreshTokenBytes)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	return base64.StdEncoding.EncodeToString(bytes), nil
}

func (s *JWTService) ValidateAccessToken(tokenString string) (*outbound.TokenClaims, error) {
	return s.parse(tokenString, jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
}

// ParseExpiredAccessToken verifies signature and algorithm but ignores exp.
func (s *JWTService) ParseExpiredAccessToken(tokenString string) (*outbound.TokenClaims, error) {
	return s.parse(tokenString, jwt.WithoutClaimsValidation())
}

func (s *JWTService) parse(tokenString string, opts ...jwt.ParserOption) (*outbound.TokenClaims, error) {
	opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	claims := &accessClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("%w: %v", ErrUnexpectedMethod, token.Header["alg"])
		}
		return s.hmacSecret, nil
	}, opts...)
	if err != nil {
		return nil, s.handleValidationError(err)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	out := &outbound.TokenClaims{
		Username:    claims.Subject,
		DisplayName: claims.Name,
		Role:        claims.Role,
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}

func (s *JWTService) handleValidationError(err error) error {
	if errors.Is(err, jwt.ErrTokenExpired) {
		return ErrTokenExpired
	}
	return fmt.Errorf("%w: %v", ErrInvalidToken, err)
}
