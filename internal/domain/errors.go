package domain

import "errors"

var (
	// ErrConnectTimeout is returned by the listener when no client ever
	// connected within the configured window. It is fatal to the process.
	ErrConnectTimeout = errors.New("no client connected within the connect timeout")
	// ErrReadTimeout indicates a connected client went silent mid-session.
	// Fatal to that session only.
	ErrReadTimeout = errors.New("session read timed out")
	// ErrProtocolViolation covers a malformed hello and an unparsable or
	// incorrect answer. One violation ends the session, no second chances.
	ErrProtocolViolation = errors.New("protocol violation")
	// ErrProblemSetNotFound indicates the problem-set content could not be loaded.
	ErrProblemSetNotFound = errors.New("problem set not found")
)
