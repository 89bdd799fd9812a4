package auth

import (
	"context"
	"fmt"

	"github.com/apc-foundation/exam-pipeline/internal/config"
	"go.uber.org/zap"
)

// SessionAuthenticator validates the session token of an interactive user.
type SessionAuthenticator interface {
	Authenticate(token string) (User, error)
}

const (
	JWKAuthentication      string = "jwk"
	LocalAuthentication    string = "local"
	NoneAuthentication     string = "none"
	DisabledAuthentication string = ""
)

func NewSessionAuthenticator(authConfig config.Auth) (SessionAuthenticator, error) {
	zap.S().Named("auth").Infof("authentication: '%s'", authConfig.AuthenticationType)

	switch authConfig.AuthenticationType {
	case JWKAuthentication:
		return NewJWKAuthenticator(context.Background(), authConfig.JwkCertURL)
	case LocalAuthentication:
		if authConfig.LocalSigningKey == "" {
			return nil, fmt.Errorf("local authentication requires a signing key")
		}
		return NewLocalAuthenticator([]byte(authConfig.LocalSigningKey)), nil
	case NoneAuthentication:
		return NewNoneAuthenticator()
	case DisabledAuthentication:
		return NewDisabledAuthenticator(), nil
	default:
		return nil, fmt.Errorf("unknown authentication type %q", authConfig.AuthenticationType)
	}
}
