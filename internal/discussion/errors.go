package discussion

import "errors"

var (
	// ErrSchedulingViolation rejects an event that is not legal in the
	// session's current phase. The session state is left untouched.
	ErrSchedulingViolation = errors.New("event not allowed in current phase")

	// ErrEmptyUtterance rejects blank message text. Nothing is appended.
	ErrEmptyUtterance = errors.New("utterance is empty")

	// ErrSessionNotFound means no session exists for the given id.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionOwned means the session id is claimed by a different user.
	ErrSessionOwned = errors.New("session belongs to another user")

	// ErrDiscussionOver rejects events for a session that is ending or ended.
	ErrDiscussionOver = errors.New("discussion already ended")

	// ErrResourceExhausted means the service is at its concurrent session or
	// queue capacity.
	ErrResourceExhausted = errors.New("capacity exhausted")
)
