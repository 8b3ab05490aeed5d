package cuda

import "errors"

var (
	ErrUnsupportedCapability = errors.New("unsupported compute capability")
	ErrInvalidLimits         = errors.New("invalid hardware limits")
)
