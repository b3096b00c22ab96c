package bridge

// ValidationError reports a request field that violates a constraint.
type ValidationError struct {
	Field   string
	Message string
}

// Error returns the message unchanged so callers can display it.
func (e *ValidationError) Error() string {
	return e.Message
}

// UnsupportedError reports that the capability refused a request because
// the device cannot show Live Activities.
type UnsupportedError struct {
	Err error
}

func (e *UnsupportedError) Error() string {
	return e.Err.Error()
}

func (e *UnsupportedError) Unwrap() error {
	return e.Err
}
