package autotune

import "errors"

var ErrKernelNotFound = errors.New("kernel not found in build log")
