package domain

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrForbidden          = errors.New("access forbidden")
	ErrInvalidToken       = errors.New("invalid token")

	ErrInvalidIdentity    = errors.New("invalid identity")
	ErrMalformedEvent     = errors.New("malformed event")
	ErrAlreadyInitialized = errors.New("sync core already initialized")
	ErrNotInitialized     = errors.New("sync core not initialized")
	ErrConnectionClosed   = errors.New("connection closed")
	ErrSendBufferFull     = errors.New("send buffer full")
	ErrUnknownConnection  = errors.New("unknown connection")
)
