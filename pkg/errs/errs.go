// Package errs defines the error taxonomy shared by the calibration service
// and the tagging engine. Callers classify failures with errors.Is against
// the sentinels below and map them to whatever transport they front.
package errs

import "errors"

var (
	// ErrNotFound indicates a referenced calibration or tag does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidArgument indicates malformed caller input, such as an
	// unparseable timestamp or an out-of-range pagination parameter.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrConflict indicates a unique-constraint race that was not
	// auto-resolved. The operation is safe to retry.
	ErrConflict = errors.New("conflict")

	// ErrStore indicates an underlying persistence failure, not classified
	// further.
	ErrStore = errors.New("store error")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsInvalidArgument(err error) bool {
	return errors.Is(err, ErrInvalidArgument)
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

func IsStore(err error) bool {
	return errors.Is(err, ErrStore)
}
