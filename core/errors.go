package core

import "errors"

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrPairingExpired   = errors.New("qr code has expired, request a new one")
	ErrAlreadyUsed      = errors.New("qr code has already been used")
	ErrLoginCodeExpired = errors.New("login code has expired")
	ErrSessionNotFound  = errors.New("session not found")
	ErrKeyNotFound      = errors.New("key not found")
	ErrStoreUnavailable = errors.New("store unavailable")
)
