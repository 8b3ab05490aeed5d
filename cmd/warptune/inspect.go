package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/warptune/internal/api"
	"github.com/samcharles93/warptune/pkg/autotune"
	"github.com/samcharles93/warptune/pkg/cuda"
	"github.com/samcharles93/warptune/pkg/ptxas"
)

type inspectKernel struct {
	api.KernelUsage
	Rows []api.OccupancyRow `json:"rows,omitempty"`
	Best *api.OccupancyBest `json:"best,omitempty"`
}

func inspectCmd() *cli.Command {
	var kernelFilter string

	flags := append(reportFlags(),
		&cli.StringFlag{
			Name:        "kernel",
			Aliases:     []string{"k"},
			Usage:       "only show this kernel",
			Destination: &kernelFilter,
		},
		&cli.BoolFlag{
			Name:        "json",
			Usage:       "emit the report as JSON",
			Destination: &jsonOut,
		},
	)
	flags = append(flags, tuningFlags()...)
	flags = append(flags, loggingFlags()...)

	return &cli.Command{
		Name:  "inspect",
		Usage: "List kernels and their resource usage from a build log",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg := LoadConfig()
			if err := registerCapabilities(cfg); err != nil {
				return cli.Exit(err.Error(), 1)
			}
			applyTuneConfig(c, cfg)
			log := buildLogger()

			buildLog, err := readBuildLog(buildLogPath, os.Stdin)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			kernels := ptxas.Parse(buildLog)
			if len(kernels) == 0 {
				return cli.Exit("no kernels recognized in build log", 1)
			}
			log.Debug("parsed build log", "kernels", len(kernels))

			names := make([]string, 0, len(kernels))
			for name := range kernels {
				names = append(names, name)
			}
			sort.Strings(names)
			if kernelFilter != "" {
				if _, ok := kernels[kernelFilter]; !ok {
					return cli.Exit(fmt.Sprintf("kernel %q not in build log", kernelFilter), 1)
				}
				names = []string{kernelFilter}
			}

			var cc cuda.ComputeCapability
			withOccupancy := ccFlag != ""
			if withOccupancy {
				if cc, err = cuda.ParseComputeCapability(ccFlag); err != nil {
					return cli.Exit(err.Error(), 1)
				}
			}

			entries := make([]inspectKernel, 0, len(names))
			for _, name := range names {
				usage := kernels[name]
				entry := inspectKernel{KernelUsage: api.KernelUsage{
					Name:       name,
					Registers:  usage.Registers,
					SharedMem:  usage.SharedMem,
					StackFrame: usage.StackFrame,
					LocalMem:   usage.LocalMem,
				}}
				if withOccupancy {
					tuner, err := autotune.New(autotune.Config{
						Kernel:          name,
						BuildLog:        buildLog,
						Capability:      cc,
						SharedMemConfig: int(smemConfig),
					})
					if err != nil {
						return cli.Exit(err.Error(), 1)
					}
					entry.Rows = api.OccupancyRows(tuner)
					if ranking := tuner.Ranking(); len(ranking) > 0 {
						entry.Best = &api.OccupancyBest{
							ThreadsPerBlock: ranking[0].ThreadsPerBlock,
							Occupancy:       ranking[0].Occupancy,
						}
					}
				}
				entries = append(entries, entry)
			}

			if jsonOut {
				b, err := json.MarshalIndent(map[string]any{"kernels": entries}, "", "  ")
				if err != nil {
					return cli.Exit(err.Error(), 1)
				}
				fmt.Println(string(b))
				return nil
			}

			for _, entry := range entries {
				section(entry.Name)
				rowInt("registers", entry.Registers)
				rowInt("shared mem (bytes)", entry.SharedMem)
				rowInt("stack frame (bytes)", entry.StackFrame)
				rowInt("local mem (bytes)", entry.LocalMem)
				if entry.Best != nil {
					row("best", fmt.Sprintf("%d threads/block at %s occupancy",
						entry.Best.ThreadsPerBlock, formatPercent(entry.Best.Occupancy)))
				} else if withOccupancy {
					row("best", "no feasible configuration")
				}
				if len(entry.Rows) > 0 {
					fmt.Printf("\n%8s  %10s  %s\n", "tpb", "occupancy", "limited by")
					for _, r := range entry.Rows {
						fmt.Printf("%8d  %10s  %s\n", r.ThreadsPerBlock, formatPercent(r.Occupancy), r.LimitedBy)
					}
				}
			}
			return nil
		},
	}
}

func section(title string) {
	line := strings.Repeat("-", len(title)+8)
	fmt.Printf("\n%s\n--- %s ---\n%s\n", line, title, line)
}

func row(label, value string) {
	if value == "" {
		return
	}
	fmt.Printf("%-24s %s\n", label+":", value)
}

func rowInt(label string, v int) {
	if v == 0 {
		return
	}
	row(label, fmt.Sprintf("%d", v))
}

func formatPercent(f float64) string {
	return fmt.Sprintf("%.1f%%", f*100)
}
