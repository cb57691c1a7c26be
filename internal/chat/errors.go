package chat

import "errors"

var (
	// ErrNotAuthenticated is returned when no current user id is available.
	ErrNotAuthenticated = errors.New("chat: not authenticated")
	// ErrInvalidParticipants is returned when a participant id is empty.
	ErrInvalidParticipants = errors.New("chat: invalid participants")
	// ErrDirectoryUnavailable marks a failed session-list subscription.
	ErrDirectoryUnavailable = errors.New("chat: session list unavailable")
	// ErrSessionNotFound is returned by pair lookups with no matching session.
	ErrSessionNotFound = errors.New("chat: session not found")
	// ErrSessionLookupFailed marks a failed one-shot session resolution.
	ErrSessionLookupFailed = errors.New("chat: session lookup failed")
	// ErrMessageStreamFailed marks a failed message subscription delivery.
	ErrMessageStreamFailed = errors.New("chat: message stream failed")
	// ErrSendFailed marks a rejected message write.
	ErrSendFailed = errors.New("chat: send failed")
	// ErrClosed is returned when a component is used after Stop/Close.
	ErrClosed = errors.New("chat: closed")
)
