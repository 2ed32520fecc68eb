package chat

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// MaxContentLength is the upper bound on message content, in runes.
const MaxContentLength = 1000

// Error taxonomy for the discussion core. Callers match with errors.Is;
// the REST and live-transport layers translate these into status codes
// and rejection frames.
var (
	// ErrAuthentication: bad, expired, or missing credential. Fatal to the
	// connection attempt — the transport must refuse the handshake.
	ErrAuthentication = errors.New("authentication failed")

	// ErrAuthorization: valid identity, insufficient room rights. Recoverable;
	// the connection stays up and other rooms remain usable.
	ErrAuthorization = errors.New("not authorized for this course")

	// ErrValidation: malformed message content.
	ErrValidation = errors.New("invalid message content")

	// ErrNotFound: unknown course or message.
	ErrNotFound = errors.New("not found")

	// ErrConflict: duplicate connection registration. A defect in the
	// transport layer, never a user-facing condition.
	ErrConflict = errors.New("connection already registered")

	// ErrSessionGone: an operation named a connection the registry no longer
	// tracks. Distinct from ErrNotFound so a torn-down session is never
	// reported to a client as a missing course.
	ErrSessionGone = errors.New("session no longer registered")

	// ErrTimeout: the membership-fact lookup did not finish in time.
	// Treated as a failed authorization — fail closed, never open.
	ErrTimeout = errors.New("authorization lookup timed out")

	// ErrStore: the durability write failed. The send is reported as failed;
	// retry is the caller's call.
	ErrStore = errors.New("message store write failed")
)

// ValidateContent enforces the message content bounds: non-empty, at most
// MaxContentLength runes. Runes, not bytes — the bound is on text units,
// and multi-byte UTF-8 must not shrink the allowance.
func ValidateContent(content string) error {
	if content == "" {
		return fmt.Errorf("%w: content is empty", ErrValidation)
	}
	if utf8.RuneCountInString(content) > MaxContentLength {
		return fmt.Errorf("%w: content exceeds %d characters", ErrValidation, MaxContentLength)
	}
	return nil
}
