package convert

import "errors"

// ErrInternal wraps a recovered panic.
var ErrInternal = errors.New("internal error")

// Error is a failure while building or rendering the ontology. Subject is
// the class or schema being processed when it happened, if known.
type Error struct {
	Subject string
	Err     error
}

func (e *Error) Error() string {
	if e.Subject == "" {
		return "conversion failed: " + e.Err.Error()
	}
	return "conversion failed at " + e.Subject + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}
