package scaffold

import (
	"fmt"
	"strings"
)

// PreconditionError reports a project that cannot be scaffolded as is.
type PreconditionError struct {
	// Subject names what is wrong, e.g. "native project directory".
	Subject string
	Path    string
	Reason  string
	// Hint tells the user how to fix it.
	Hint string
	Err  error
}

func (e *PreconditionError) Error() string {
	var b strings.Builder
	b.WriteString(e.Subject)
	if e.Path != "" {
		fmt.Fprintf(&b, " %s", e.Path)
	}
	fmt.Fprintf(&b, ": %s", e.Reason)
	if e.Hint != "" {
		fmt.Fprintf(&b, "; %s", e.Hint)
	}
	return b.String()
}

func (e *PreconditionError) Unwrap() error {
	return e.Err
}

// IOError reports a failed file system operation.
type IOError struct {
	Op   string
	Path string
	Err  error
	Hint string
}

func (e *IOError) Error() string {
	msg := fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
	if e.Hint != "" {
		msg += "; " + e.Hint
	}
	return msg
}

func (e *IOError) Unwrap() error {
	return e.Err
}
