package main

import (
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/warptune/internal/logger"
)

var (
	buildLogPath string
	ccFlag       string
	smemConfig   int64
	jsonOut      bool
	logLevel     string
	logFormat    string
	debug        bool
)

// Seams for tests.
var (
	stdinIsTTY  = func() bool { return isTTY(os.Stdin) }
	stderrIsTTY = func() bool { return isTTY(os.Stderr) }
)

func reportFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log",
			Aliases:     []string{"l"},
			Usage:       "path to a compiler build log (- for stdin)",
			Destination: &buildLogPath,
		},
	}
}

func tuningFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "cc",
			Usage:       "target compute capability (e.g. 2.0, 3.5)",
			Destination: &ccFlag,
		},
		&cli.Int64Flag{
			Name:        "smem-config",
			Usage:       "shared memory carve-out in bytes (default 48 KiB)",
			Destination: &smemConfig,
		},
	}
}

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (auto, pretty, json, text)",
			Value:       "auto",
			Destination: &logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging (shorthand for --log-level=debug)",
			Destination: &debug,
		},
	}
}

func buildLogger() logger.Logger {
	level := logger.ParseLevel(logLevel)
	if debug {
		level = slog.LevelDebug
	}
	format := logFormat
	if format == "auto" || format == "" {
		format = "text"
		if stderrIsTTY() {
			format = "pretty"
		}
	}
	switch format {
	case "pretty":
		return logger.Pretty(os.Stderr, level)
	case "json":
		return logger.JSON(os.Stderr, level)
	default:
		return logger.Text(os.Stderr, level)
	}
}
