package target

import (
	"errors"
	"fmt"
)

var (
	// ErrUnboundCapability means no driver is bound for the requested capability.
	ErrUnboundCapability = errors.New("target: unbound capability")
	// ErrAmbiguousCapability means several drivers provide the capability and
	// no instance name was given.
	ErrAmbiguousCapability = errors.New("target: ambiguous capability")
	// ErrNotActive is returned by drivers used while inactive.
	ErrNotActive = errors.New("target: driver not active")
	// ErrDeactivationFailed marks an ActivationError caused by a sibling.
	ErrDeactivationFailed = errors.New("target: deactivation failed")
	// ErrActivationFailed marks an ActivationError caused by the driver itself.
	ErrActivationFailed = errors.New("target: activation failed")
	// ErrUnknownDriver is returned for drivers not registered with the target.
	ErrUnknownDriver = errors.New("target: unknown driver")
)

// ActivationError reports why a driver could not be made active. Kind is
// ErrDeactivationFailed (Sibling is set) or ErrActivationFailed; Err is the
// hook's error.
type ActivationError struct {
	Driver  string
	Sibling string
	Kind    error
	Err     error
}

func (e *ActivationError) Error() string {
	if e.Sibling != "" {
		return fmt.Sprintf("target: activating %s: deactivating %s: %v", e.Driver, e.Sibling, e.Err)
	}
	return fmt.Sprintf("target: activating %s: %v", e.Driver, e.Err)
}

func (e *ActivationError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}
