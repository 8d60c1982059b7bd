// Package cfgerr defines the CfgError taxonomy (spec §7) every
// fallible Local Config / Network Management operation returns.
//
// Errors are classified on github.com/containerd/errdefs rather than
// sentinel equality so callers at any layer can classify with
// errdefs.Is* instead of threading a parallel error-code enum through
// every layer. The gRPC admin surface in internal/admin does not
// distinguish them: it reports every error as codes.FailedPrecondition.
package cfgerr

import (
	"fmt"

	"github.com/containerd/errdefs"
)

// InvalidParams wraps a caller-side contract violation: unassigned
// address where unicast is required, virtual address without a
// label, unknown element id, and similar.
func InvalidParams(format string, args ...any) error {
	return errdefs.ErrInvalidArgument(fmt.Errorf(format, args...))
}

// NotFound wraps the case where the key/slot/address asked for does
// not exist.
func NotFound(format string, args ...any) error {
	return errdefs.ErrNotFound(fmt.Errorf(format, args...))
}

// AlreadyExists wraps a duplicate add: NetKey/AppKey already present,
// subscription add of an address the model already has, update of a
// key whose new_available is already set.
func AlreadyExists(format string, args ...any) error {
	return errdefs.ErrAlreadyExists(fmt.Errorf(format, args...))
}

// OutOfMemory wraps the case where a fixed-size table is full.
func OutOfMemory(format string, args ...any) error {
	return errdefs.ErrResourceExhausted(fmt.Errorf(format, args...))
}

// InvalidConfig wraps a startup memory-size / dimension computation
// that rejects the supplied configuration.
func InvalidConfig(format string, args ...any) error {
	return errdefs.ErrFailedPrecondition(fmt.Errorf(format, args...))
}

// IsInvalidParams reports whether err is (or wraps) an InvalidParams error.
func IsInvalidParams(err error) bool { return errdefs.IsInvalidArgument(err) }

// IsNotFound reports whether err is (or wraps) a NotFound error.
func IsNotFound(err error) bool { return errdefs.IsNotFound(err) }

// IsAlreadyExists reports whether err is (or wraps) an AlreadyExists error.
func IsAlreadyExists(err error) bool { return errdefs.IsAlreadyExists(err) }

// IsOutOfMemory reports whether err is (or wraps) an OutOfMemory error.
func IsOutOfMemory(err error) bool { return errdefs.IsResourceExhausted(err) }

// IsInvalidConfig reports whether err is (or wraps) an InvalidConfig error.
func IsInvalidConfig(err error) bool { return errdefs.IsFailedPrecondition(err) }
