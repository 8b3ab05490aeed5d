// Package cuda models the per-architecture resource limits of NVIDIA
// streaming multiprocessors and the theoretical occupancy calculation
// over them.
//
// Limits are keyed by compute capability. The package ships entries for
// the capabilities the calculation was validated against and accepts
// additional registrations at startup.
package cuda

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultSharedMemConfig is the default shared-memory carve-out in bytes
// (48 KiB), the hardware default for the L1/shared-memory split.
const DefaultSharedMemConfig = 48 << 10

// ComputeCapability identifies a GPU architecture generation.
type ComputeCapability struct {
	Major int
	Minor int
}

// ParseComputeCapability parses the textual "major.minor" form, e.g. "3.5".
func ParseComputeCapability(s string) (ComputeCapability, error) {
	majStr, minStr, ok := strings.Cut(strings.TrimSpace(s), ".")
	if !ok {
		return ComputeCapability{}, fmt.Errorf("invalid compute capability %q", s)
	}
	major, err := strconv.Atoi(majStr)
	if err != nil || major < 0 {
		return ComputeCapability{}, fmt.Errorf("invalid compute capability %q", s)
	}
	minor, err := strconv.Atoi(minStr)
	if err != nil || minor < 0 {
		return ComputeCapability{}, fmt.Errorf("invalid compute capability %q", s)
	}
	return ComputeCapability{Major: major, Minor: minor}, nil
}

func (cc ComputeCapability) String() string {
	return fmt.Sprintf("%d.%d", cc.Major, cc.Minor)
}
