package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"quizdeck/internal/config"
	"quizdeck/internal/model"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// AuthService issues and validates host and player tokens. Player tokens
// are scoped to one session PIN; presenting one against another session
// fails validation downstream.
type AuthService struct {
	hostUsername string
	hostPassword string
	jwtSecret    []byte
}

func NewAuthService(cfg config.Config) *AuthService {
	return &AuthService{
		hostUsername: cfg.Auth.HostUsername,
		hostPassword: cfg.Auth.HostPassword,
		jwtSecret:    []byte(cfg.Auth.JWTSecret),
	}
}

// Login validates credentials and returns a host token.
func (s *AuthService) Login(username, password string) (*model.LoginResponse, error) {
	if s.hostPassword == "" || username != s.hostUsername || password != s.hostPassword {
		return nil, ErrInvalidCredentials
	}

	hostID := "host_" + uuid.New().String()[:8]
	claims := &model.HostClaims{
		HostID: hostID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(30 * 24 * time.Hour)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return nil, err
	}
	return &model.LoginResponse{Token: tokenString, HostID: hostID}, nil
}

// ValidateHostToken parses and validates a host JWT.
func (s *AuthService) ValidateHostToken(tokenString string) (*model.HostClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &model.HostClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*model.HostClaims)
	if !ok || !token.Valid || claims.HostID == "" {
		// A player token parses into empty host claims; reject it.
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// GeneratePlayerToken creates a session-scoped token for a player.
func (s *AuthService) GeneratePlayerToken(pin, playerID string) (string, error) {
	claims := &model.PlayerClaims{
		PIN:      pin,
		PlayerID: playerID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// ValidatePlayerToken parses and validates a player JWT.
func (s *AuthService) ValidatePlayerToken(tokenString string) (*model.PlayerClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &model.PlayerClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*model.PlayerClaims)
	if !ok || !token.Valid || claims.PIN == "" || claims.PlayerID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
