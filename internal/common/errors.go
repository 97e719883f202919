package common

import "errors"

// Client-side errors
var (
	// General errors
	ErrNotFound     = errors.New("resource not found")
	ErrNotPermitted = errors.New("not permitted")
	ErrInvalidInput = errors.New("invalid input")

	// Post errors
	ErrPostNotFound = errors.New("post not found")

	// Comment errors
	ErrCommentNotFound = errors.New("comment not found")

	// Auth errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNoToken      = errors.New("no session token")

	// Transport errors
	ErrNetwork     = errors.New("network error")
	ErrServer      = errors.New("server error")
	ErrRateLimited = errors.New("rate limited")
)
