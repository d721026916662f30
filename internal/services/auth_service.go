package services

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/wardenhq/warden/internal/config"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrAuthNotConfigured  = errors.New("admin credentials not configured")
)

const tokenLifetime = 12 * time.Hour

// AuthService issues and verifies admin session tokens. It is the in-repo
// provider of the "is this caller an administrator" capability the
// enforcement engine consumes for its bypass.
type AuthService struct {
	passwordHash string
	jwtSecret    []byte
}

func NewAuthService(cfg config.Config) *AuthService {
	return &AuthService{
		passwordHash: cfg.AdminPasswordHash,
		jwtSecret:    []byte(cfg.JWTSecret),
	}
}

// Login checks the admin password against the configured bcrypt hash and
// returns a signed session token.
func (s *AuthService) Login(password string) (string, error) {
	if s.passwordHash == "" || len(s.jwtSecret) == 0 {
		return "", ErrAuthNotConfigured
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.passwordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	claims := jwt.MapClaims{
		"sub":   "admin",
		"admin": true,
		"iat":   time.Now().Unix(),
		"exp":   time.Now().Add(tokenLifetime).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// VerifyToken validates a session token and reports whether it carries the
// admin capability.
func (s *AuthService) VerifyToken(tokenString string) (bool, error) {
	if len(s.jwtSecret) == 0 {
		return false, ErrAuthNotConfigured
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return false, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return false, ErrInvalidToken
	}
	admin, _ := claims["admin"].(bool)
	return admin, nil
}
