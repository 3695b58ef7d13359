package errors

import (
	"fmt"
	"strings"
)

// curated is the concrete type behind every error this package creates. It
// is never exposed directly; callers always see the error interface.
type curated struct {
	kind    Kind
	message string
	values  []interface{}
}

// Errorf creates a new curated error of the given kind. message is a
// fmt.Errorf-style pattern; values are its arguments.
func Errorf(kind Kind, message string, values ...interface{}) error {
	return curated{
		kind:    kind,
		message: message,
		values:  values,
	}
}

// Error returns the normalised error message: the formatted message with
// duplicate adjacent parts of the causal chain collapsed.
//
// Implements the go language error interface.
func (e curated) Error() string {
	s := fmt.Errorf(e.message, e.values...).Error()

	// de-duplicate adjacent error message parts
	p := strings.SplitN(s, ": ", 3)
	if len(p) > 1 && p[0] == p[1] {
		return strings.Join(p[1:], ": ")
	}

	return strings.Join(p, ": ")
}

// KindOf returns err's Kind, or Unknown if err was not created by Errorf.
func KindOf(err error) Kind {
	if e, ok := err.(curated); ok {
		return e.kind
	}
	return Unknown
}

// Head returns the leading pattern of the message.
//
// Similar to Is() but returns the string rather than a boolean. Useful for
// switches.
//
// If err is a plain error then the return of Error() is returned.
func Head(err error) string {
	if e, ok := err.(curated); ok {
		return e.message
	}
	return err.Error()
}

// IsAny reports whether err was created by this package's Errorf.
func IsAny(err error) bool {
	if err == nil {
		return false
	}
	_, ok := err.(curated)
	return ok
}

// Is reports whether err's leading pattern matches pattern.
func Is(err error, pattern string) bool {
	if err == nil {
		return false
	}
	if e, ok := err.(curated); ok {
		return e.message == pattern
	}
	return false
}

// Has reports whether pattern appears anywhere in err's causal chain.
func Has(err error, pattern string) bool {
	if err == nil || !IsAny(err) {
		return false
	}
	if Is(err, pattern) {
		return true
	}
	for _, v := range err.(curated).values {
		if e, ok := v.(curated); ok {
			if Has(e, pattern) {
				return true
			}
		}
	}
	return false
}
