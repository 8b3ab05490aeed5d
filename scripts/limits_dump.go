package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/samcharles93/warptune/pkg/cuda"
)

type entry struct {
	Capability     string `json:"capability"`
	WarpSize       int    `json:"warp_size"`
	WarpsPerSM     int    `json:"warps_per_sm"`
	ThreadsPerSM   int    `json:"threads_per_sm"`
	BlocksPerSM    int    `json:"blocks_per_sm"`
	TotalRegisters int    `json:"total_registers"`
	SharedMemPerSM int    `json:"shared_mem_per_sm"`
	MaxBlockSize   int    `json:"max_block_size"`
}

// Dumps the builtin hardware limits table as JSON, for eyeballing against
// vendor occupancy calculator spreadsheets.
func main() {
	out := make([]entry, 0, 4)
	for _, cc := range cuda.Capabilities() {
		limits, err := cuda.Lookup(cc)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		out = append(out, entry{
			Capability:     cc.String(),
			WarpSize:       limits.ThreadsPerWarp,
			WarpsPerSM:     limits.WarpsPerSM,
			ThreadsPerSM:   limits.ThreadsPerSM,
			BlocksPerSM:    limits.BlocksPerSM,
			TotalRegisters: limits.TotalRegisters,
			SharedMemPerSM: limits.SharedMemPerSM,
			MaxBlockSize:   limits.MaxBlockSize,
		})
	}
	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(string(b))
}
