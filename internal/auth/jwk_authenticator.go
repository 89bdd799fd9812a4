package auth

import (
	"context"
	"fmt"
	"time"

	keyfunc "github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

// JWKAuthenticator validates RS256 session tokens against the keys published by the
// identity provider.
type JWKAuthenticator struct {
	keyFn func(t *jwt.Token) (any, error)
}

func NewJWKAuthenticatorWithKeyFn(keyFn func(t *jwt.Token) (any, error)) (*JWKAuthenticator, error) {
	return &JWKAuthenticator{keyFn: keyFn}, nil
}

func NewJWKAuthenticator(ctx context.Context, jwkCertUrl string) (*JWKAuthenticator, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	k, err := keyfunc.NewDefaultCtx(ctx, []string{jwkCertUrl})
	if err != nil {
		return nil, fmt.Errorf("failed to get identity provider public keys: %w", err)
	}

	return &JWKAuthenticator{keyFn: k.Keyfunc}, nil
}

func (j *JWKAuthenticator) Authenticate(token string) (User, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Name}), jwt.WithIssuedAt(), jwt.WithExpirationRequired())
	return parseSessionToken(parser, token, j.keyFn)
}
