package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"evaltrace/internal/probe"
	"evaltrace/internal/trace"
)

const configFileName = "evaltrace.toml"

type fileConfig struct {
	Trace   trace.Config  `toml:"trace"`
	Collect collectConfig `toml:"collect"`
}

type collectConfig struct {
	MapPath      string `toml:"map_path"`
	PerCPUBuffer int    `toml:"per_cpu_buffer"`
	Output       string `toml:"output"`
}

func (c collectConfig) perf() probe.PerfConfig {
	return probe.PerfConfig{MapPath: c.MapPath, PerCPUBuffer: c.PerCPUBuffer}
}

func defaultFileConfig() fileConfig {
	return fileConfig{
		Trace:   trace.DefaultConfig(),
		Collect: collectConfig{PerCPUBuffer: probe.DefaultPerCPUBuffer},
	}
}

// findConfig walks from startDir up to the filesystem root looking for
// evaltrace.toml.
func findConfig(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, configFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// readConfigFile decodes path on top of the defaults. Unknown keys are
// rejected so typos do not silently fall back to defaults.
func readConfigFile(path string) (fileConfig, error) {
	cfg := defaultFileConfig()
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return fileConfig{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return fileConfig{}, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	return cfg, nil
}

// loadConfig reads the file named by --config or the nearest evaltrace.toml.
// Without either the defaults are returned.
func loadConfig(cmd *cobra.Command) (fileConfig, error) {
	path, err := cmd.Root().PersistentFlags().GetString("config")
	if err != nil {
		return fileConfig{}, fmt.Errorf("failed to get config flag: %w", err)
	}
	if path == "" {
		found, ok, err := findConfig(".")
		if err != nil {
			return fileConfig{}, err
		}
		if !ok {
			return defaultFileConfig(), nil
		}
		path = found
	}
	return readConfigFile(path)
}
