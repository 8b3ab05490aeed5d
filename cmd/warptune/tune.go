package main

import (
	"context"
	"fmt"
	"os"

	json "github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/warptune/internal/api"
	"github.com/samcharles93/warptune/pkg/autotune"
	"github.com/samcharles93/warptune/pkg/cuda"
)

func tuneCmd() *cli.Command {
	var (
		kernel     string
		minTPB     int64
		maxTPB     int64
		candidates string
	)

	flags := append(reportFlags(),
		&cli.StringFlag{
			Name:        "kernel",
			Aliases:     []string{"k"},
			Usage:       "kernel name as it appears in the build log",
			Required:    true,
			Destination: &kernel,
		},
		&cli.Int64Flag{
			Name:        "min",
			Usage:       "lower bound on threads per block (inclusive)",
			Destination: &minTPB,
		},
		&cli.Int64Flag{
			Name:        "max",
			Usage:       "upper bound on threads per block (inclusive)",
			Destination: &maxTPB,
		},
		&cli.StringFlag{
			Name:        "candidates",
			Usage:       "comma-separated block sizes to choose between",
			Destination: &candidates,
		},
		&cli.BoolFlag{
			Name:        "json",
			Usage:       "emit the recommendation as JSON",
			Destination: &jsonOut,
		},
	)
	flags = append(flags, tuningFlags()...)
	flags = append(flags, loggingFlags()...)

	return &cli.Command{
		Name:  "tune",
		Usage: "Recommend a threads-per-block for one kernel",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg := LoadConfig()
			if err := registerCapabilities(cfg); err != nil {
				return cli.Exit(err.Error(), 1)
			}
			applyTuneConfig(c, cfg)
			log := buildLogger()

			if ccFlag == "" {
				return cli.Exit("--cc is required", 1)
			}
			cc, err := cuda.ParseComputeCapability(ccFlag)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			if c.IsSet("min") != c.IsSet("max") {
				return cli.Exit("--min and --max must be set together", 1)
			}
			buildLog, err := readBuildLog(buildLogPath, os.Stdin)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}

			tuner, err := autotune.New(autotune.Config{
				Kernel:          kernel,
				BuildLog:        buildLog,
				Capability:      cc,
				SharedMemConfig: int(smemConfig),
			})
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			log.Debug("occupancy table built", "kernel", kernel, "cc", cc.String(), "entries", len(tuner.Table()))

			var tpb int
			var ok bool
			switch {
			case candidates != "":
				list, err := parseCandidates(candidates)
				if err != nil {
					return cli.Exit(err.Error(), 1)
				}
				tpb, ok = tuner.Prefer(list...)
			case c.IsSet("min"):
				tpb, ok = tuner.BestWithin(int(minTPB), int(maxTPB))
			default:
				tpb, ok = tuner.Best()
			}

			result := api.TuneResponse{
				Kernel:     kernel,
				Capability: cc.String(),
			}
			if ok {
				occ, _ := tuner.Closest(tpb)
				result.ThreadsPerBlock = tpb
				result.Occupancy = occ
				result.Feasible = true
			}

			if jsonOut {
				b, err := json.MarshalIndent(result, "", "  ")
				if err != nil {
					return cli.Exit(err.Error(), 1)
				}
				fmt.Println(string(b))
				if !ok {
					return cli.Exit("no feasible launch configuration", 1)
				}
				return nil
			}

			if !ok {
				return cli.Exit(fmt.Sprintf("no feasible launch configuration for %q on %s", kernel, cc), 1)
			}
			row("kernel", result.Kernel)
			row("compute capability", result.Capability)
			row("threads per block", fmt.Sprintf("%d", result.ThreadsPerBlock))
			row("occupancy", formatPercent(result.Occupancy))
			return nil
		},
	}
}
