package gerrors

import (
	"fmt"
	"strings"
)

// Error collects the failures of a batch, e.g. one per source file.
type Error struct {
	Errors []error
}

func (e *Error) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("1 error occurred:\n\t* %s\n", e.Errors[0])
	}
	points := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		points[i] = fmt.Sprintf("* %s", err)
	}
	return fmt.Sprintf(
		"%d errors occurred:\n\t%s\n",
		len(e.Errors), strings.Join(points, "\n\t"))
}

// ErrorOrNil returns nil when nothing was collected so callers can return
// the result straight away.
func (e *Error) ErrorOrNil() error {
	if e == nil || len(e.Errors) == 0 {
		return nil
	}
	return e
}

func (e *Error) Len() int {
	if e == nil {
		return 0
	}
	return len(e.Errors)
}

// Unwrap lets errors.Is and errors.As look at every collected error.
func (e *Error) Unwrap() []error {
	if e == nil {
		return nil
	}
	return e.Errors
}

// Append adds errs to err, flattening nested *Error values and dropping nils.
func Append(err error, errs ...error) *Error {
	out, ok := err.(*Error)
	if !ok || out == nil {
		out = new(Error)
		if err != nil {
			out.Errors = append(out.Errors, err)
		}
	}
	for _, e := range errs {
		switch e := e.(type) {
		case nil:
		case *Error:
			if e != nil {
				out.Errors = append(out.Errors, e.Errors...)
			}
		default:
			out.Errors = append(out.Errors, e)
		}
	}
	return out
}
