package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/samcharles93/warptune/pkg/cuda"
)

// Config represents the warptune configuration file
// (~/.config/warptune/config.yaml). Pointer fields distinguish "not set"
// from zero values.
type Config struct {
	// Tuning defaults
	CC              string `yaml:"cc"`
	SharedMemConfig *int64 `yaml:"smem_config"`

	// Output
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// Server
	ServerAddress string `yaml:"server_address"`

	// Extra hardware limits entries, keyed by "major.minor".
	Capabilities map[string]capabilityConfig `yaml:"capabilities"`
}

type capabilityConfig struct {
	ThreadsPerWarp       int    `yaml:"threads_per_warp"`
	WarpsPerSM           int    `yaml:"warps_per_sm"`
	ThreadsPerSM         int    `yaml:"threads_per_sm"`
	BlocksPerSM          int    `yaml:"blocks_per_sm"`
	TotalRegisters       int    `yaml:"total_registers"`
	RegAllocUnit         int    `yaml:"reg_alloc_unit"`
	RegAllocGranularity  string `yaml:"reg_alloc_granularity"`
	MaxRegsPerThread     int    `yaml:"max_regs_per_thread"`
	SharedMemPerSM       int    `yaml:"shared_mem_per_sm"`
	SharedMemAllocUnit   int    `yaml:"shared_mem_alloc_unit"`
	WarpAllocGranularity int    `yaml:"warp_alloc_granularity"`
	MaxBlockSize         int    `yaml:"max_block_size"`
}

func configPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "warptune", "config.yaml")
}

// LoadConfig reads the config file. Returns a zero Config if the file doesn't exist.
func LoadConfig() Config {
	path := configPath()
	if path == "" {
		return Config{}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}
	}
	return cfg
}

// registerCapabilities adds the config file's hardware limits entries to the
// registry before any command runs a calculation. A malformed entry aborts
// rather than silently tuning against bogus limits.
func registerCapabilities(cfg Config) error {
	for name, entry := range cfg.Capabilities {
		cc, err := cuda.ParseComputeCapability(name)
		if err != nil {
			return fmt.Errorf("config capabilities: %w", err)
		}
		limits, err := entry.hardwareLimits()
		if err != nil {
			return fmt.Errorf("config capabilities %s: %w", name, err)
		}
		if err := cuda.Register(cc, limits); err != nil {
			return fmt.Errorf("config capabilities: %w", err)
		}
	}
	return nil
}

func (c capabilityConfig) hardwareLimits() (cuda.HardwareLimits, error) {
	switch strings.ToLower(strings.TrimSpace(c.RegAllocGranularity)) {
	case "", "warp":
	default:
		return cuda.HardwareLimits{}, fmt.Errorf("unsupported reg_alloc_granularity %q", c.RegAllocGranularity)
	}
	return cuda.HardwareLimits{
		ThreadsPerWarp:       c.ThreadsPerWarp,
		WarpsPerSM:           c.WarpsPerSM,
		ThreadsPerSM:         c.ThreadsPerSM,
		BlocksPerSM:          c.BlocksPerSM,
		TotalRegisters:       c.TotalRegisters,
		RegAllocUnit:         c.RegAllocUnit,
		RegAllocGranularity:  cuda.RegAllocWarp,
		MaxRegsPerThread:     c.MaxRegsPerThread,
		SharedMemPerSM:       c.SharedMemPerSM,
		SharedMemAllocUnit:   c.SharedMemAllocUnit,
		WarpAllocGranularity: c.WarpAllocGranularity,
		MaxBlockSize:         c.MaxBlockSize,
	}, nil
}

// applyTuneConfig applies config file defaults to tune/inspect command
// variables when the corresponding CLI flag was not explicitly set.
func applyTuneConfig(c *cli.Command, cfg Config) {
	if cfg.CC != "" && !c.IsSet("cc") {
		ccFlag = cfg.CC
	}
	if cfg.SharedMemConfig != nil && !c.IsSet("smem-config") {
		smemConfig = *cfg.SharedMemConfig
	}
	applyLoggingConfig(c, cfg)
}

// applyServeConfig applies config file defaults to serve command variables.
func applyServeConfig(c *cli.Command, cfg Config, addr *string) {
	if cfg.ServerAddress != "" && !c.IsSet("addr") {
		*addr = cfg.ServerAddress
	}
	applyLoggingConfig(c, cfg)
}

func applyLoggingConfig(c *cli.Command, cfg Config) {
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		logFormat = cfg.LogFormat
	}
}
