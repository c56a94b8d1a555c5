package assessment

import "errors"

var (
	// ErrInvalidAnswer is returned for an unknown question id or an option
	// the question does not offer (including N/A when it is disabled).
	ErrInvalidAnswer = errors.New("assessment: invalid answer")

	// ErrSessionClosed is returned when mutating a finalized or discarded session.
	ErrSessionClosed = errors.New("assessment: session is closed")

	// ErrInvalidSession is returned for session data that fails validation.
	ErrInvalidSession = errors.New("assessment: invalid session")
)
