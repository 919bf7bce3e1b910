package auth

import "errors"

var (
	ErrInvalidToken = errors.New("auth: invalid token")
	ErrTokenExpired = errors.New("auth: token expired")
	ErrRateLimited  = errors.New("auth: rate limited")
)
