package executor

import "errors"

// Sentinel errors Trigger and Notify may return.
var (
	// ErrTimeout indicates the per-attempt deadline elapsed before the
	// executor responded. Timeouts are terminal for the current fire —
	// the Runner never retries after one.
	ErrTimeout = errors.New("executor: timeout")

	// ErrPermissionDenied and ErrDiskFull are resource-level refusals: the
	// fire cannot possibly succeed on retry within this process, so the
	// Runner treats them (and any error satisfying IsFatal) as terminal.
	ErrPermissionDenied = errors.New("executor: permission denied")
	ErrDiskFull         = errors.New("executor: disk full")
)

// FatalError wraps a resource-level refusal that makes retrying within
// the current fire pointless.
type FatalError struct {
	Err error
}

// Error implements error.
func (e *FatalError) Error() string { return "executor: fatal: " + e.Err.Error() }

// Unwrap implements errors.Unwrap.
func (e *FatalError) Unwrap() error { return e.Err }

// IsFatal reports whether err is a resource-level refusal the Runner
// should not retry within the current fire.
func IsFatal(err error) bool {
	var fe *FatalError
	if errors.As(err, &fe) {
		return true
	}
	return errors.Is(err, ErrPermissionDenied) || errors.Is(err, ErrDiskFull)
}

// IsTimeout reports whether err is (or wraps) ErrTimeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}
