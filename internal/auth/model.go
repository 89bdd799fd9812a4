package auth

import (
	"context"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

type callerKeyType struct{}

var (
	callerKey callerKeyType
)

type CallerKind string

const (
	// CallerSecret is the scheduler or the scraper, holding the shared secret.
	CallerSecret CallerKind = "secret"
	// CallerAdmin is a signed in user with the admin role.
	CallerAdmin CallerKind = "admin"
)

type Caller struct {
	Kind CallerKind
	User *User
}

func CallerFromContext(ctx context.Context) (Caller, bool) {
	val := ctx.Value(callerKey)
	if val == nil {
		return Caller{}, false
	}
	return val.(Caller), true
}

func MustHaveCaller(ctx context.Context) Caller {
	caller, found := CallerFromContext(ctx)
	if !found {
		zap.S().Named("auth").Panic("failed to find caller in context")
	}
	return caller
}

func NewCallerContext(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, callerKey, c)
}

// User is the subject of a session token. Its role is always read from the profiles
// table.
type User struct {
	ID    string
	Email string
	Token *jwt.Token
}
