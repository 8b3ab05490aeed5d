package cuda

import (
	"fmt"
	"sort"
	"sync"
)

// RegAllocGranularity selects how the hardware assigns register banks to a
// resident block.
type RegAllocGranularity int

// RegAllocWarp allocates registers in per-warp units. It is the only
// granularity the occupancy formula supports; entries with any other value
// are rejected at registration time.
const RegAllocWarp RegAllocGranularity = iota

func (g RegAllocGranularity) String() string {
	if g == RegAllocWarp {
		return "warp"
	}
	return fmt.Sprintf("RegAllocGranularity(%d)", int(g))
}

// HardwareLimits describes the physical resource budget of one streaming
// multiprocessor for a given compute capability. All counts are positive;
// memory sizes are bytes.
type HardwareLimits struct {
	ThreadsPerWarp       int
	WarpsPerSM           int
	ThreadsPerSM         int
	BlocksPerSM          int
	TotalRegisters       int
	RegAllocUnit         int
	RegAllocGranularity  RegAllocGranularity
	MaxRegsPerThread     int
	SharedMemPerSM       int
	SharedMemAllocUnit   int
	WarpAllocGranularity int
	MaxBlockSize         int
}

// Fermi (sm_20, sm_21).
var limitsFermi = HardwareLimits{
	ThreadsPerWarp:       32,
	WarpsPerSM:           48,
	ThreadsPerSM:         1536,
	BlocksPerSM:          8,
	TotalRegisters:       32768,
	RegAllocUnit:         64,
	RegAllocGranularity:  RegAllocWarp,
	MaxRegsPerThread:     63,
	SharedMemPerSM:       49152,
	SharedMemAllocUnit:   128,
	WarpAllocGranularity: 2,
	MaxBlockSize:         1024,
}

// Kepler (sm_30).
var limitsKepler = HardwareLimits{
	ThreadsPerWarp:       32,
	WarpsPerSM:           64,
	ThreadsPerSM:         2048,
	BlocksPerSM:          16,
	TotalRegisters:       65535,
	RegAllocUnit:         256,
	RegAllocGranularity:  RegAllocWarp,
	MaxRegsPerThread:     63,
	SharedMemPerSM:       49152,
	SharedMemAllocUnit:   256,
	WarpAllocGranularity: 4,
	MaxBlockSize:         1024,
}

// Kepler GK110 (sm_35): sm_30 with the per-thread register cap raised.
var limitsKeplerGK110 = HardwareLimits{
	ThreadsPerWarp:       32,
	WarpsPerSM:           64,
	ThreadsPerSM:         2048,
	BlocksPerSM:          16,
	TotalRegisters:       65535,
	RegAllocUnit:         256,
	RegAllocGranularity:  RegAllocWarp,
	MaxRegsPerThread:     255,
	SharedMemPerSM:       49152,
	SharedMemAllocUnit:   256,
	WarpAllocGranularity: 4,
	MaxBlockSize:         1024,
}

var (
	registryMu sync.RWMutex
	registry   = map[ComputeCapability]HardwareLimits{
		{Major: 2, Minor: 0}: limitsFermi,
		{Major: 2, Minor: 1}: limitsFermi,
		{Major: 3, Minor: 0}: limitsKepler,
		{Major: 3, Minor: 5}: limitsKeplerGK110,
	}
)

// Lookup returns the hardware limits registered for cc.
func Lookup(cc ComputeCapability) (HardwareLimits, error) {
	registryMu.RLock()
	l, ok := registry[cc]
	registryMu.RUnlock()
	if !ok {
		return HardwareLimits{}, fmt.Errorf("%w: %s", ErrUnsupportedCapability, cc)
	}
	return l, nil
}

// Register adds or replaces the limits entry for cc. Entries are validated
// here so the occupancy calculation can assume well-formed inputs.
func Register(cc ComputeCapability, l HardwareLimits) error {
	if err := l.validate(); err != nil {
		return fmt.Errorf("register %s: %w", cc, err)
	}
	registryMu.Lock()
	registry[cc] = l
	registryMu.Unlock()
	return nil
}

// Capabilities lists the registered compute capabilities in ascending order.
func Capabilities() []ComputeCapability {
	registryMu.RLock()
	out := make([]ComputeCapability, 0, len(registry))
	for cc := range registry {
		out = append(out, cc)
	}
	registryMu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Major != out[j].Major {
			return out[i].Major < out[j].Major
		}
		return out[i].Minor < out[j].Minor
	})
	return out
}

func (l HardwareLimits) validate() error {
	if l.RegAllocGranularity != RegAllocWarp {
		return fmt.Errorf("%w: register allocation granularity %s", ErrInvalidLimits, l.RegAllocGranularity)
	}
	fields := []struct {
		name string
		v    int
	}{
		{"threads_per_warp", l.ThreadsPerWarp},
		{"warps_per_sm", l.WarpsPerSM},
		{"threads_per_sm", l.ThreadsPerSM},
		{"blocks_per_sm", l.BlocksPerSM},
		{"total_registers", l.TotalRegisters},
		{"reg_alloc_unit", l.RegAllocUnit},
		{"max_regs_per_thread", l.MaxRegsPerThread},
		{"shared_mem_per_sm", l.SharedMemPerSM},
		{"shared_mem_alloc_unit", l.SharedMemAllocUnit},
		{"warp_alloc_granularity", l.WarpAllocGranularity},
		{"max_block_size", l.MaxBlockSize},
	}
	for _, f := range fields {
		if f.v <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %d", ErrInvalidLimits, f.name, f.v)
		}
	}
	return nil
}
