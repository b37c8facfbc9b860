package loader

// InputError reports a document that cannot be converted at all: malformed
// syntax, missing top-level fields or, in strict mode, validation failures.
type InputError struct {
	Reason string
	Err    error
}

func (e *InputError) Error() string {
	if e.Err != nil {
		return e.Reason + ": " + e.Err.Error()
	}
	return e.Reason
}

func (e *InputError) Unwrap() error {
	return e.Err
}
