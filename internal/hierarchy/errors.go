package hierarchy

import (
	"errors"
	"fmt"
)

// ErrServiceUnavailable means the connection to the display server is
// unusable. It is fatal to the session: the connection is established once
// at startup and never retried.
var ErrServiceUnavailable = errors.New("display hierarchy service unavailable")

// ValidationError reports an edit rejected before any server call. Nothing
// was applied.
type ValidationError struct {
	Edit   Edit
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid edit (%s): %s", e.Edit, e.Reason)
}

// BatchError reports a batch that did not fully apply. Edits before Failed
// are live on the server; Failed and everything after it are not.
type BatchError struct {
	Applied int  // edits confirmed by the server
	Failed  Edit // the edit that was rejected
	Cause   error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("applied %d edit(s), then %s failed: %v", e.Applied, e.Failed, e.Cause)
}

func (e *BatchError) Unwrap() error {
	return e.Cause
}
