package engine

import (
	"os"

	"github.com/goccy/go-yaml"
)

// FileConfig is the on-disk shape for the optional YAML config file the CLI
// accepts via --config (SPEC_FULL.md §3), mapped onto Config/Option the
// same way go-dws's CLI maps flags onto CompilerOption values.
type FileConfig struct {
	SegmentLimit       int   `yaml:"segment_limit"`
	TickLimit          int64 `yaml:"tick_limit"`
	HandlerDepthLimit  int   `yaml:"handler_depth_limit"`
	MaxConcurrentCalls int64 `yaml:"max_concurrent_calls"`
}

// LoadConfigFile reads and parses a YAML config file into a FileConfig.
func LoadConfigFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, err
	}
	return &fc, nil
}

// Options converts the file-level config into the Option slice Compile
// expects. A zero TickLimit in the file disables accounting entirely,
// matching the file's absence.
func (fc *FileConfig) Options() []Option {
	var opts []Option
	if fc.SegmentLimit > 0 {
		opts = append(opts, WithSegmentLimit(fc.SegmentLimit))
	}
	if fc.TickLimit > 0 {
		opts = append(opts, WithTickAccounting(fc.TickLimit))
	}
	if fc.HandlerDepthLimit > 0 {
		opts = append(opts, WithHandlerDepthLimit(fc.HandlerDepthLimit))
	}
	if fc.MaxConcurrentCalls > 0 {
		opts = append(opts, WithMaxConcurrentCalls(fc.MaxConcurrentCalls))
	}
	return opts
}
