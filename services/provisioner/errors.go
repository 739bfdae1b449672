package provisioner

import "errors"

var (
	// ErrInvalidIdentity is returned when any identity field is missing or blank.
	ErrInvalidIdentity = errors.New("invalid machine identity")
	// ErrInvalidTargetOS is returned when a configuration names an unsupported target.
	ErrInvalidTargetOS = errors.New("invalid target os")
)
