package container

import "errors"

// Domain-specific errors for container operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrInvalidUnit is returned when a unit is registered with an empty name
	// or a nil definition.
	ErrInvalidUnit = errors.New("container: unit needs a name and a definition")

	// ErrDuplicateUnit is returned when a unit name is registered twice.
	ErrDuplicateUnit = errors.New("container: unit already registered")

	// ErrUnitNotFound is returned when a unit name has no definition.
	ErrUnitNotFound = errors.New("container: unit not found")

	// ErrDuplicateBean is returned when a bean name is provided twice.
	ErrDuplicateBean = errors.New("container: bean already provided")

	// ErrBeanNotFound is returned when no bean is held under a name.
	ErrBeanNotFound = errors.New("container: bean not found")

	// ErrBeanType is returned by Lookup when a bean has an unexpected type.
	ErrBeanType = errors.New("container: bean has unexpected type")

	// ErrDuplicateProcessor is returned when two post-processors share a name.
	ErrDuplicateProcessor = errors.New("container: post-processor already registered")

	// ErrAlreadyRefreshed is returned when Refresh is called more than once,
	// or a post-processor is added after Refresh.
	ErrAlreadyRefreshed = errors.New("container: already refreshed")
)
