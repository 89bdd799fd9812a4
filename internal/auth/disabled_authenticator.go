package auth

import "errors"

var ErrSessionsDisabled = errors.New("session authentication is disabled")

// DisabledAuthenticator rejects every session token, leaving the shared secret as the
// only way in. It is used when no authentication type is configured.
type DisabledAuthenticator struct{}

func NewDisabledAuthenticator() *DisabledAuthenticator {
	return &DisabledAuthenticator{}
}

func (d *DisabledAuthenticator) Authenticate(token string) (User, error) {
	return User{}, ErrSessionsDisabled
}
