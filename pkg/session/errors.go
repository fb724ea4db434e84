package session

import (
	"errors"
	"fmt"
)

var (
	// ErrMaxRepeats is returned when adding an instance would exceed a
	// section's max_repeats.
	ErrMaxRepeats = errors.New("session: section is at max_repeats")
	// ErrMinRepeats is returned when removing an instance would drop below a
	// section's min_repeats.
	ErrMinRepeats = errors.New("session: section is at min_repeats")
	// ErrUnknownSection is returned for section ids not in the template.
	ErrUnknownSection = errors.New("session: unknown section")
	// ErrNotRepeatable is returned for instance operations on a plain section.
	ErrNotRepeatable = errors.New("session: section is not repeatable")
	// ErrUnknownInstance is returned for instance ids not in the session.
	ErrUnknownInstance = errors.New("session: unknown section instance")
	// ErrUnknownField is returned for field codes not in the template.
	ErrUnknownField = errors.New("session: unknown field")
	// ErrInvalid is returned by Submit when validation fails. The session's
	// errors are populated and the submit attempt is recorded.
	ErrInvalid = errors.New("session: form has validation errors")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("session: closed")
	// ErrFinalized is returned after a successful submit.
	ErrFinalized = errors.New("session: already submitted")
	// ErrNoStore is returned by persistence calls when no store is configured.
	ErrNoStore = errors.New("session: no store configured")
	// ErrDraftMismatch is returned when resuming a draft of another template.
	ErrDraftMismatch = errors.New("session: draft belongs to another template")
)

// SubmitError reports a failed submission. Message is safe to show to the
// person filling the form; Err is the collaborator failure.
type SubmitError struct {
	Message string
	Err     error
}

func (e *SubmitError) Error() string {
	return fmt.Sprintf("session: submit: %v", e.Err)
}

func (e *SubmitError) Unwrap() error {
	return e.Err
}

const submitFailedMessage = "The form could not be submitted. Your answers are kept; please try again."
