// Package parsing reads admin API request bodies, sent as JSON or as
// multipart forms, into typed forms.
package parsing

import (
	"errors"
	"fmt"
)

// ParseError describes a request body the client got wrong. ParseErrors are
// meant to be presented to users.
type ParseError struct {
	// What is the part of the request which could not be parsed, ex., a
	// field name
	What string

	// Why indicates why it could not be parsed
	Why string

	// FixInstructions tell the user how to correct the request. Blank if
	// there is nothing the user can do.
	FixInstructions string

	// InternalError is the underlying error, logged but never shown to the
	// user. Can be nil.
	InternalError error
}

// Error returns the user error followed by the internal error
func (e ParseError) Error() string {
	if e.InternalError != nil {
		return fmt.Sprintf("%s (%s)", e.UserError(), e.InternalError.Error())
	}

	return e.UserError()
}

// UserError returns an error string meant to be displayed to the user
func (e ParseError) UserError() string {
	msg := fmt.Sprintf("invalid %s: %s", e.What, e.Why)
	if len(e.FixInstructions) > 0 {
		msg += ", " + e.FixInstructions
	}

	return msg
}

// Unwrap returns InternalError
func (e ParseError) Unwrap() error {
	return e.InternalError
}

// AsParseError returns the ParseError in err's chain
func AsParseError(err error) (ParseError, bool) {
	var parseErr ParseError
	ok := errors.As(err, &parseErr)
	return parseErr, ok
}
