package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/medcore/records-api/internal/model"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
	ErrWrongClass   = errors.New("wrong token class")
)

// Claims are the signed contents of both token classes. PhysicianID binds
// the token to exactly one identity; TokenType keeps a refresh token from
// ever authorizing a resource operation.
type Claims struct {
	jwt.RegisteredClaims
	PhysicianID int64  `json:"physician_id"`
	Email       string `json:"email"`
	TokenType   string `json:"token_type"`
}

type JWTService interface {
	GenerateAccessToken(physician *model.Physician) (string, error)
	GenerateRefreshToken(physician *model.Physician) (string, error)
	ValidateAccessToken(token string) (*Claims, error)
	ValidateRefreshToken(token string) (*Claims, error)
}

type Config struct {
	Secret        string
	RefreshSecret string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
}

type jwtService struct {
	cfg Config
}

func NewJWTService(cfg Config) JWTService {
	return &jwtService{cfg: cfg}
}

func (s *jwtService) GenerateAccessToken(physician *model.Physician) (string, error) {
	return s.generate(physician, tokenTypeAccess, s.cfg.AccessExpiry, s.cfg.Secret)
}

func (s *jwtService) GenerateRefreshToken(physician *model.Physician) (string, error) {
	return s.generate(physician, tokenTypeRefresh, s.cfg.RefreshExpiry, s.cfg.RefreshSecret)
}

func (s *jwtService) generate(physician *model.Physician, tokenType string, ttl time.Duration, secret string) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(physician.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		PhysicianID: physician.ID,
		Email:       physician.Email,
		TokenType:   tokenType,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (s *jwtService) ValidateAccessToken(token string) (*Claims, error) {
	return s.validate(token, tokenTypeAccess, s.cfg.Secret)
}

func (s *jwtService) ValidateRefreshToken(token string) (*Claims, error) {
	return s.validate(token, tokenTypeRefresh, s.cfg.RefreshSecret)
}

func (s *jwtService) validate(token, wantType, secret string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != wantType {
		return nil, ErrWrongClass
	}
	return claims, nil
}
