package collab

import "errors"

var (
	// ErrNotAttached rejects an operation submitted by a connection that is
	// not part of the target session. Nothing is broadcast.
	ErrNotAttached = errors.New("NOT_ATTACHED")

	// ErrStoreUnavailable means a session open or flush could not reach the
	// document store. Opens fail loudly to the requester; flushes retry on
	// the next tick.
	ErrStoreUnavailable = errors.New("STORE_UNAVAILABLE")

	// ErrInvalidOperation rejects a malformed edit payload. Only the sender
	// is notified; session state is untouched.
	ErrInvalidOperation = errors.New("INVALID_OPERATION")

	// ErrSessionNotFound means the connection addressed a document it never
	// joined on this server.
	ErrSessionNotFound = errors.New("SESSION_NOT_FOUND")

	// ErrDocumentNotFound is the store sentinel for a missing document.
	ErrDocumentNotFound = errors.New("DOCUMENT_NOT_FOUND")

	// ErrSessionClosed means the session was torn down between lookup and
	// attach. Callers may reopen.
	ErrSessionClosed = errors.New("SESSION_CLOSED")
)
