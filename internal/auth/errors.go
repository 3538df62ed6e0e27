package auth

import "errors"

// Failures surfaced by the auth flows. Callers match them with errors.Is; the
// HTTP layer maps each one to a status code and a stable message.
var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrConflict           = errors.New("already registered")
	ErrInvalidCredentials = errors.New("incorrect username or password")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrOAuthRejected      = errors.New("kakao authentication failed")
	ErrUpstream           = errors.New("kakao rejected the request")
	ErrMisconfigured      = errors.New("server misconfigured")
)
