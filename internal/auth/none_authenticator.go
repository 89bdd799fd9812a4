package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// NoneAuthenticator accepts any session token as the local-admin user. It is meant for
// development only: the user still needs a profile holding the admin role.
// LocalAdminID is the user every token maps to without authentication.
const LocalAdminID = "local-admin"

type NoneAuthenticator struct{}

func NewNoneAuthenticator() (*NoneAuthenticator, error) {
	return &NoneAuthenticator{}, nil
}

func (n *NoneAuthenticator) Authenticate(token string) (User, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": LocalAdminID,
	})
	t.Raw = token

	return User{
		ID:    LocalAdminID,
		Email: "admin@localhost",
		Token: t,
	}, nil
}
