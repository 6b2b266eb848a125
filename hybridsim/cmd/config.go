package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

// runConfig describes one replay. It can be loaded from a TOML file and
// overridden by flags.
type runConfig struct {
	NumSets       int    `toml:"num_sets"`
	NumWays       int    `toml:"num_ways"`
	Log2BlockSize int    `toml:"log2_block_size"`
	Record        string `toml:"record"`
	TraceLog      string `toml:"trace_log"`
}

func defaultRunConfig() runConfig {
	return runConfig{
		NumSets:       1024,
		NumWays:       4,
		Log2BlockSize: 6,
	}
}

// loadRunConfig reads a TOML file on top of the defaults. Unknown keys are
// rejected.
func loadRunConfig(path string) (runConfig, error) {
	cfg := defaultRunConfig()

	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return cfg, fmt.Errorf("loading config %s: %w", path, err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, key := range undecoded {
			keys[i] = key.String()
		}

		return cfg, fmt.Errorf("loading config %s: unknown keys %s",
			path, strings.Join(keys, ", "))
	}

	return cfg, nil
}

func (c runConfig) blockSize() int {
	return 1 << c.Log2BlockSize
}

func (c runConfig) validate() error {
	var errs []error

	if c.NumSets <= 0 {
		errs = append(errs, fmt.Errorf("num_sets must be positive, got %d", c.NumSets))
	}

	if c.NumWays <= 0 {
		errs = append(errs, fmt.Errorf("num_ways must be positive, got %d", c.NumWays))
	}

	if c.Log2BlockSize < 0 || c.Log2BlockSize > 20 {
		errs = append(errs, fmt.Errorf("log2_block_size must be in [0, 20], got %d",
			c.Log2BlockSize))
	}

	return errors.Join(errs...)
}
