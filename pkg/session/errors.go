package session

import "errors"

var (
	// ErrNoSession is returned when an operation needs an active session and
	// none has been started.
	ErrNoSession = errors.New("no active session")

	// ErrLocaleUnavailable is returned by StartNew/StartRecord when the story
	// package has no paragraphs matching the requested locale. The caller
	// must pick a fallback; the engine never guesses one.
	ErrLocaleUnavailable = errors.New("locale unavailable")

	// ErrInvalidSwitch is returned when a switch selection is rejected: the
	// session is not awaiting a switch, the index is out of range, or the
	// chosen switch is disabled. The context is left unchanged.
	ErrInvalidSwitch = errors.New("invalid switch")

	// ErrCorruptRecord is returned when a persisted snapshot cannot be
	// restored: unreadable encoding or a position the narrative graph does
	// not contain. Resuming from a wrong position would silently corrupt the
	// player's place in the story, so this always surfaces.
	ErrCorruptRecord = errors.New("corrupt record")
)
