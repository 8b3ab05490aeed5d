// Package autotune picks the threads-per-block launch configuration that
// maximizes theoretical SM occupancy for one kernel, given its compiler
// resource report and the target compute capability. A JIT pipeline uses
// it to choose a sane default block size when the caller supplies none.
package autotune

import (
	"fmt"
	"sort"

	"github.com/samcharles93/warptune/pkg/cuda"
	"github.com/samcharles93/warptune/pkg/ptxas"
)

// Config carries the inputs for New. SharedMemConfig is the shared-memory
// carve-out in bytes; zero selects cuda.DefaultSharedMemConfig.
type Config struct {
	Kernel          string
	BuildLog        string
	Capability      cuda.ComputeCapability
	SharedMemConfig int
}

// Candidate is one ranked launch configuration.
type Candidate struct {
	ThreadsPerBlock int
	Occupancy       float64
}

// Tuner holds the occupancy table and ranking for one kernel on one
// compute capability. It is immutable after construction and safe for
// concurrent readers; build a fresh one per report and kernel.
type Tuner struct {
	capability cuda.ComputeCapability
	limits     cuda.HardwareLimits
	usage      cuda.ResourceUsage
	table      map[int]cuda.Occupancy
	ranking    []Candidate
}

// New parses cfg.BuildLog, resolves the kernel's resource usage and sweeps
// every warp-size multiple below the capability's maximum block size,
// keeping the feasible (nonzero-occupancy) entries as the tuner's table.
func New(cfg Config) (*Tuner, error) {
	usage, ok := ptxas.Parse(cfg.BuildLog)[cfg.Kernel]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrKernelNotFound, cfg.Kernel)
	}
	limits, err := cuda.Lookup(cfg.Capability)
	if err != nil {
		return nil, err
	}
	smemConfig := cfg.SharedMemConfig
	if smemConfig == 0 {
		smemConfig = cuda.DefaultSharedMemConfig
	}

	t := &Tuner{
		capability: cfg.Capability,
		limits:     limits,
		usage:      usage,
		table:      make(map[int]cuda.Occupancy),
	}
	for tpb := limits.ThreadsPerWarp; tpb < limits.MaxBlockSize; tpb += limits.ThreadsPerWarp {
		occ := cuda.ComputeOccupancy(tpb, usage, limits, smemConfig)
		if occ.Fraction > 0 {
			t.table[tpb] = occ
			t.ranking = append(t.ranking, Candidate{ThreadsPerBlock: tpb, Occupancy: occ.Fraction})
		}
	}
	sort.Slice(t.ranking, func(i, j int) bool {
		a, b := t.ranking[i], t.ranking[j]
		if a.Occupancy != b.Occupancy {
			return a.Occupancy > b.Occupancy
		}
		return a.ThreadsPerBlock < b.ThreadsPerBlock
	})
	return t, nil
}

// Capability returns the compute capability the table was built for.
func (t *Tuner) Capability() cuda.ComputeCapability { return t.capability }

// Usage returns the kernel's parsed resource usage.
func (t *Tuner) Usage() cuda.ResourceUsage { return t.usage }

// Table returns a copy of the occupancy table keyed by threads per block.
func (t *Tuner) Table() map[int]cuda.Occupancy {
	out := make(map[int]cuda.Occupancy, len(t.table))
	for tpb, occ := range t.table {
		out[tpb] = occ
	}
	return out
}

// Ranking returns the ranked candidates, best first: occupancy descending,
// then threads per block ascending.
func (t *Tuner) Ranking() []Candidate {
	out := make([]Candidate, len(t.ranking))
	copy(out, t.ranking)
	return out
}

// Best returns the head of the ranking: maximum occupancy, smallest block
// size on ties. Smaller blocks mean more resident blocks per SM, which
// spreads work across multiprocessors. ok is false when no configuration
// is feasible.
func (t *Tuner) Best() (tpb int, ok bool) {
	if len(t.ranking) == 0 {
		return 0, false
	}
	return t.ranking[0].ThreadsPerBlock, true
}

// Closest returns the occupancy at tpb rounded up to the nearest warp-size
// multiple. ok is false when the rounded key is outside the table, which
// covers tpb ≤ 0 and anything at or past the maximum block size.
func (t *Tuner) Closest(tpb int) (occupancy float64, ok bool) {
	if tpb <= 0 {
		return 0, false
	}
	occ, ok := t.table[roundUp(tpb, t.limits.ThreadsPerWarp)]
	if !ok {
		return 0, false
	}
	return occ.Fraction, true
}

// BestWithin returns the preferred block size within [minTPB, maxTPB]
// inclusive, after rounding minTPB up and maxTPB down to warp multiples.
// An empty or inverted rounded range yields ok == false, never an error.
func (t *Tuner) BestWithin(minTPB, maxTPB int) (tpb int, ok bool) {
	warp := t.limits.ThreadsPerWarp
	if minTPB < 0 {
		minTPB = 0
	}
	lo := roundUp(minTPB, warp)
	hi := roundDown(maxTPB, warp)
	// Keys at or above the max block size cannot exist; don't sweep them.
	if limit := t.limits.MaxBlockSize - warp; hi > limit {
		hi = limit
	}
	if hi < lo {
		return 0, false
	}

	candidates := make([]int, 0, (hi-lo)/warp+1)
	for c := lo; c <= hi; c += warp {
		candidates = append(candidates, c)
	}
	return t.Prefer(candidates...)
}

// Prefer picks from explicit block-size candidates: each resolves through
// Closest, zero or missing occupancy is discarded, and the survivor with
// the highest occupancy wins. Equal occupancy keeps the largest candidate,
// the opposite tie-break from Best. The returned value is the original
// candidate, not its rounded table key. ok is false when every candidate
// was discarded.
func (t *Tuner) Prefer(candidates ...int) (tpb int, ok bool) {
	best, bestOcc := 0, 0.0
	for _, c := range candidates {
		occ, found := t.Closest(c)
		if !found || occ <= 0 {
			continue
		}
		if occ > bestOcc || (occ == bestOcc && c > best) {
			best, bestOcc = c, occ
		}
		ok = true
	}
	return best, ok
}

func roundUp(x, step int) int {
	return step * ((x + step - 1) / step)
}

func roundDown(x, step int) int {
	return step * (x / step)
}
