// Package errors is a helper package for the plain Go language error type.
// Errors created with Errorf are "curated": external to this package they
// are referenced as plain errors (ie. they implement the error interface)
// but internally they carry a message pattern and a Kind, so that a caller
// needing only a user-facing message can use the error as-is, while the
// top-level command can dispatch on Kind() to choose an exit code without
// string-matching.
//
// The Error() implementation normalises the causal chain so that wrapping
// the same pattern twice in a row doesn't duplicate it in the final
// message. For example:
//
//	func A() error {
//		err := B()
//		if err != nil {
//			return errors.Errorf(errors.IO, "opening object: %v", err)
//		}
//		return nil
//	}
//
// will not print "opening object: opening object: ..." even if B() itself
// returned an error built from the same pattern.
package errors
