package cuda

import "fmt"

// ResourceUsage is the per-kernel footprint reported by the device
// compiler. Registers is per thread; the remaining fields are bytes.
// Zero means the report did not mention the resource.
type ResourceUsage struct {
	Registers  int
	SharedMem  int
	StackFrame int
	LocalMem   int
}

// LimitingFactor names the constraint that bounds the number of resident
// blocks at a given block size.
type LimitingFactor int

const (
	LimitWarps LimitingFactor = iota
	LimitRegisters
	LimitSharedMem
)

func (f LimitingFactor) String() string {
	switch f {
	case LimitWarps:
		return "warps"
	case LimitRegisters:
		return "registers"
	case LimitSharedMem:
		return "shared_mem"
	}
	return fmt.Sprintf("LimitingFactor(%d)", int(f))
}

// MarshalText renders the factor name, so encodings carry "warps" rather
// than an enum ordinal.
func (f LimitingFactor) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// Occupancy is the outcome of the theoretical occupancy calculation for one
// block size: the fraction of the SM's warp capacity kept busy, and the
// constraint responsible for it. A zero Fraction marks an infeasible
// configuration.
type Occupancy struct {
	Fraction  float64
	LimitedBy LimitingFactor
}

// ComputeOccupancy evaluates the occupancy of a kernel with the given
// resource usage when launched with tpb threads per block on an SM
// described by limits. smemConfig is the shared-memory carve-out in bytes
// (see DefaultSharedMemConfig); it caps the shared memory visible to the
// calculation.
//
// The block counts permitted by the warp-slot, register and shared-memory
// budgets are computed independently; the smallest wins. All intermediate
// quantities are exact integers, only the final ratio is floating point.
func ComputeOccupancy(tpb int, usage ResourceUsage, limits HardwareLimits, smemConfig int) Occupancy {
	if tpb <= 0 {
		return Occupancy{}
	}

	warpsPerBlock := ceilDiv(tpb, limits.ThreadsPerWarp)
	blocksByWarps := min(limits.BlocksPerSM, limits.WarpsPerSM/warpsPerBlock)

	var blocksByRegs int
	switch {
	case usage.Registers > limits.MaxRegsPerThread:
		// Cannot be scheduled at all.
		blocksByRegs = 0
	case usage.Registers == 0:
		blocksByRegs = limits.BlocksPerSM
	default:
		perWarpRegs := ceilTo(usage.Registers*limits.ThreadsPerWarp, limits.RegAllocUnit)
		regBudget := floorTo(limits.TotalRegisters/perWarpRegs, limits.WarpAllocGranularity)
		blocksByRegs = regBudget / warpsPerBlock
	}

	blocksBySmem := limits.BlocksPerSM
	if perBlockSmem := ceilTo(usage.SharedMem, limits.SharedMemAllocUnit); perBlockSmem > 0 {
		effectiveSmem := min(limits.SharedMemPerSM, smemConfig)
		blocksBySmem = effectiveSmem / perBlockSmem
	}

	active := min(blocksByWarps, blocksByRegs, blocksBySmem)

	// Ties are resolved in a fixed order so the reported factor is
	// reproducible: warps, then registers, then shared memory.
	var factor LimitingFactor
	switch {
	case active == blocksByWarps:
		factor = LimitWarps
	case active == blocksByRegs:
		factor = LimitRegisters
	default:
		factor = LimitSharedMem
	}

	return Occupancy{
		Fraction:  float64(active*warpsPerBlock) / float64(limits.WarpsPerSM),
		LimitedBy: factor,
	}
}

// ceilDiv, ceilTo and floorTo implement exact integer ceiling and floor
// division with a step; integral quantities never round through floats.
func ceilDiv(x, step int) int {
	return (x + step - 1) / step
}

func ceilTo(x, step int) int {
	return step * ceilDiv(x, step)
}

func floorTo(x, step int) int {
	return step * (x / step)
}
