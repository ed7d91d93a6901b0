package services

import "errors"

var (
	// ErrNoGame is returned when an operation needs an opened story package
	// and none has been opened.
	ErrNoGame = errors.New("no story package opened")

	// ErrSessionNotFound is returned for an unknown session ID.
	ErrSessionNotFound = errors.New("session not found")
)
