package conversation

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedInput is matched by every *InputError. The operation is aborted.
	ErrMalformedInput = errors.New("malformed input")
	// ErrSplitMismatch means the custom amounts do not add up to the total.
	// The operation stays open and the user is asked again.
	ErrSplitMismatch = errors.New("split amounts do not add up to the total")
	// ErrNoGroupForUser means the initiator is not in any configured group.
	// The operation is aborted.
	ErrNoGroupForUser = errors.New("user does not belong to any group")
	// ErrNotForOperation means the event does not belong to the pending
	// operation (another user, or a step that is not being waited for).
	// Nothing changes and the wait stays armed.
	ErrNotForOperation = errors.New("event does not belong to the pending operation")
	// ErrNoPending means there is nothing waiting for input.
	ErrNoPending = errors.New("no pending operation")
	// ErrNotLastWriter means the user may not undo the last entry.
	ErrNotLastWriter = errors.New("only the author of the last entry may delete it")
)

// InputError describes user text that could not be parsed at step.
type InputError struct {
	Step   State
	Raw    string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("%s: %s: %q", e.Step, e.Reason, e.Raw)
}

// Is makes errors.Is(err, ErrMalformedInput) succeed.
func (e *InputError) Is(target error) bool {
	return target == ErrMalformedInput
}
