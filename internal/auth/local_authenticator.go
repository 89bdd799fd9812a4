package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const localIssuer = "exam-pipeline"

type sessionClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// LocalAuthenticator validates HS256 session tokens signed with a key shared with the
// web application.
type LocalAuthenticator struct {
	key []byte
}

func NewLocalAuthenticator(key []byte) *LocalAuthenticator {
	return &LocalAuthenticator{key: key}
}

func (l *LocalAuthenticator) Authenticate(token string) (User, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}), jwt.WithIssuedAt(), jwt.WithExpirationRequired())
	return parseSessionToken(parser, token, func(t *jwt.Token) (any, error) {
		return l.key, nil
	})
}

// GenerateLocalToken signs a session token for userID valid for ttl.
func GenerateLocalToken(key []byte, userID, email string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := sessionClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    localIssuer,
			Subject:   userID,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

func parseSessionToken(parser *jwt.Parser, token string, keyFn jwt.Keyfunc) (User, error) {
	t, err := parser.ParseWithClaims(token, &sessionClaims{}, keyFn)
	if err != nil {
		zap.S().Named("auth").Debugw("failed to parse or the token is invalid", "error", err)
		return User{}, fmt.Errorf("failed to authenticate token: %w", err)
	}

	claims, ok := t.Claims.(*sessionClaims)
	if !ok || !t.Valid {
		return User{}, errors.New("failed to parse or validate token")
	}
	if claims.Subject == "" {
		return User{}, errors.New("token has no subject")
	}

	return User{
		ID:    claims.Subject,
		Email: claims.Email,
		Token: t,
	}, nil
}
