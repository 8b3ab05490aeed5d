package autotune

import (
	"errors"
	"math"
	"testing"

	"github.com/samcharles93/warptune/pkg/cuda"
)

// buildLog mimics a multi-kernel ptxas verbose report. "hog" is heavily
// shared-memory bound and "blocked" wants more shared memory than any SM
// carve-out offers.
const buildLog = `ptxas info    : Compiling entry function 'matmul' for 'sm_20'
ptxas info    : Function properties for 'matmul':
ptxas         : Used 20 registers, 2048 bytes smem
ptxas info    : Function properties for 'light':
ptxas         : Used 8 registers
ptxas info    : Function properties for 'hog':
ptxas         : Used 63 registers, 40960 bytes smem
ptxas info    : Function properties for 'blocked':
ptxas         : Used 8 registers, 65536 bytes smem
`

func newTuner(t *testing.T, kernel string) *Tuner {
	t.Helper()
	tuner, err := New(Config{
		Kernel:     kernel,
		BuildLog:   buildLog,
		Capability: cuda.ComputeCapability{Major: 2, Minor: 0},
	})
	if err != nil {
		t.Fatalf("new tuner for %q: %v", kernel, err)
	}
	return tuner
}

func TestNewUnknownKernel(t *testing.T) {
	_, err := New(Config{
		Kernel:     "does_not_exist",
		BuildLog:   buildLog,
		Capability: cuda.ComputeCapability{Major: 2, Minor: 0},
	})
	if !errors.Is(err, ErrKernelNotFound) {
		t.Fatalf("got %v, want ErrKernelNotFound", err)
	}
}

func TestNewUnsupportedCapability(t *testing.T) {
	_, err := New(Config{
		Kernel:     "matmul",
		BuildLog:   buildLog,
		Capability: cuda.ComputeCapability{Major: 9, Minor: 9},
	})
	if !errors.Is(err, cuda.ErrUnsupportedCapability) {
		t.Fatalf("got %v, want ErrUnsupportedCapability", err)
	}

	// The kernel is resolved before the capability, matching how callers
	// see the two failures.
	_, err = New(Config{
		Kernel:     "does_not_exist",
		BuildLog:   buildLog,
		Capability: cuda.ComputeCapability{Major: 9, Minor: 9},
	})
	if !errors.Is(err, ErrKernelNotFound) {
		t.Fatalf("got %v, want ErrKernelNotFound", err)
	}
}

func TestTableShape(t *testing.T) {
	tuner := newTuner(t, "matmul")

	table := tuner.Table()
	if len(table) == 0 {
		t.Fatal("empty table for a feasible kernel")
	}
	for tpb, occ := range table {
		if tpb <= 0 || tpb%32 != 0 {
			t.Fatalf("key %d is not a positive warp multiple", tpb)
		}
		if tpb >= 1024 {
			t.Fatalf("key %d is not below the max block size", tpb)
		}
		if occ.Fraction <= 0 || occ.Fraction > 1 {
			t.Fatalf("key %d: fraction %v out of (0,1]", tpb, occ.Fraction)
		}
	}

	// The 128-thread entry is the worked example: warp-slot limited at
	// 8 active blocks of 4 warps.
	occ := table[128]
	if occ.LimitedBy != cuda.LimitWarps {
		t.Fatalf("128: limited by %v, want %v", occ.LimitedBy, cuda.LimitWarps)
	}
	if want := 2.0 / 3.0; math.Abs(occ.Fraction-want) > 1e-12 {
		t.Fatalf("128: fraction %v, want %v", occ.Fraction, want)
	}
}

func TestBestPrefersSmallestOnTies(t *testing.T) {
	tuner := newTuner(t, "matmul")

	// Full occupancy is reachable at 192, 256, 384, 512 and 768 threads;
	// Best picks the smallest.
	got, ok := tuner.Best()
	if !ok {
		t.Fatal("no best for feasible kernel")
	}
	if got != 192 {
		t.Fatalf("got %d, want 192", got)
	}

	ranking := tuner.Ranking()
	wantHead := []int{192, 256, 384, 512, 768}
	for i, want := range wantHead {
		if ranking[i].ThreadsPerBlock != want {
			t.Fatalf("ranking[%d]: got %d, want %d", i, ranking[i].ThreadsPerBlock, want)
		}
		if ranking[i].Occupancy != 1 {
			t.Fatalf("ranking[%d]: occupancy %v, want 1", i, ranking[i].Occupancy)
		}
	}
	if ranking[len(wantHead)].Occupancy >= 1 {
		t.Fatalf("ranking[%d]: occupancy %v, want < 1", len(wantHead), ranking[len(wantHead)].Occupancy)
	}
}

func TestBestInfeasibleKernel(t *testing.T) {
	tuner := newTuner(t, "blocked")
	if tpb, ok := tuner.Best(); ok {
		t.Fatalf("got %d, want no result for infeasible kernel", tpb)
	}
	if len(tuner.Table()) != 0 {
		t.Fatalf("got %d table entries, want 0", len(tuner.Table()))
	}
}

func TestClosestRoundsUp(t *testing.T) {
	tuner := newTuner(t, "matmul")

	occ100, ok := tuner.Closest(100)
	if !ok {
		t.Fatal("closest(100): no result")
	}
	occ128, ok := tuner.Closest(128)
	if !ok {
		t.Fatal("closest(128): no result")
	}
	if occ100 != occ128 {
		t.Fatalf("closest not rounding-invariant: %v vs %v", occ100, occ128)
	}

	cases := []struct {
		name string
		tpb  int
	}{
		{"zero", 0},
		{"negative", -5},
		{"past-max-block", 993},
		{"way-past-max-block", 4096},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if occ, ok := tuner.Closest(tc.tpb); ok {
				t.Fatalf("got %v, want no result", occ)
			}
		})
	}

	if _, ok := tuner.Closest(992); !ok {
		t.Fatal("closest(992): want the last table entry")
	}
}

func TestPreferPicksLargestOnTies(t *testing.T) {
	tuner := newTuner(t, "matmul")

	// All three reach full occupancy; Prefer keeps the largest, the
	// opposite tie-break from Best.
	got, ok := tuner.Prefer(192, 256, 768)
	if !ok {
		t.Fatal("no result for feasible candidates")
	}
	if got != 768 {
		t.Fatalf("got %d, want 768", got)
	}

	// The original candidate is returned, not its rounded table key.
	got, ok = tuner.Prefer(100)
	if !ok || got != 100 {
		t.Fatalf("got %d/%v, want 100/true", got, ok)
	}
}

func TestPreferNoCandidates(t *testing.T) {
	matmul := newTuner(t, "matmul")
	if got, ok := matmul.Prefer(); ok {
		t.Fatalf("got %d, want no result for empty candidate list", got)
	}
	if got, ok := matmul.Prefer(-64, 0, 2048); ok {
		t.Fatalf("got %d, want no result for unresolvable candidates", got)
	}

	blocked := newTuner(t, "blocked")
	if got, ok := blocked.Prefer(128, 256); ok {
		t.Fatalf("got %d, want no result when every candidate has zero occupancy", got)
	}
}

func TestBestWithin(t *testing.T) {
	tuner := newTuner(t, "matmul")

	cases := []struct {
		name     string
		min, max int
		want     int
		wantOK   bool
	}{
		// 256 and 384 tie at full occupancy; the range query keeps the
		// larger, like Prefer.
		{name: "rounds-and-prefers-largest", min: 200, max: 400, want: 384, wantOK: true},
		{name: "exact-multiples", min: 192, max: 192, want: 192, wantOK: true},
		{name: "inverted", min: 400, max: 200, wantOK: false},
		{name: "rounds-to-empty", min: 1, max: 31, wantOK: false},
		{name: "negative-range", min: -100, max: -1, wantOK: false},
		{name: "clamped-past-max", min: 900, max: 100000, want: 992, wantOK: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := tuner.BestWithin(tc.min, tc.max)
			if ok != tc.wantOK {
				t.Fatalf("ok: got %v, want %v", ok, tc.wantOK)
			}
			if ok && got != tc.want {
				t.Fatalf("got %d, want %d", got, tc.want)
			}
		})
	}
}

func TestTunerCopiesAreDetached(t *testing.T) {
	tuner := newTuner(t, "matmul")

	table := tuner.Table()
	for k := range table {
		delete(table, k)
	}
	if len(tuner.Table()) == 0 {
		t.Fatal("mutating the returned table reached the tuner")
	}

	ranking := tuner.Ranking()
	ranking[0].ThreadsPerBlock = -1
	if tuner.Ranking()[0].ThreadsPerBlock == -1 {
		t.Fatal("mutating the returned ranking reached the tuner")
	}
}

func TestTunerAccessors(t *testing.T) {
	tuner := newTuner(t, "matmul")
	if got := tuner.Usage(); got != (cuda.ResourceUsage{Registers: 20, SharedMem: 2048}) {
		t.Fatalf("usage: got %+v", got)
	}
	if got := tuner.Capability(); got != (cuda.ComputeCapability{Major: 2, Minor: 0}) {
		t.Fatalf("capability: got %v", got)
	}
}

func TestSharedMemConfigDefaultAndOverride(t *testing.T) {
	def := newTuner(t, "hog")
	if got, ok := def.Best(); !ok || got != 512 {
		t.Fatalf("default carve-out: got %d/%v, want 512/true", got, ok)
	}

	narrow, err := New(Config{
		Kernel:          "hog",
		BuildLog:        buildLog,
		Capability:      cuda.ComputeCapability{Major: 2, Minor: 0},
		SharedMemConfig: 16 << 10,
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	// 40 KiB of smem never fits a 16 KiB carve-out.
	if got, ok := narrow.Best(); ok {
		t.Fatalf("narrow carve-out: got %d, want no result", got)
	}
}
