package stride

import (
	"context"
	"fmt"

	"github.com/viant/afs"
	"gopkg.in/yaml.v3"

	kstride "github.com/strideos/stride/kernel/stride"
	"github.com/strideos/stride/policy"
	"github.com/strideos/stride/service/proctable"
	"github.com/strideos/stride/service/scheduler"
)

// Config is a serialisable representation of the engine configuration. It can
// be populated from YAML or JSON; the zero value is useful, all nested fields
// inherit their package defaults.
type Config struct {
	Scheduler scheduler.Config `json:"scheduler" yaml:"scheduler"`
	ProcTable proctable.Config `json:"procTable" yaml:"procTable"`

	// DefaultPriority applies to program images that do not declare one.
	DefaultPriority int64 `json:"defaultPriority" yaml:"defaultPriority"`

	// Policy scopes which processes a caller may retarget with control
	// syscalls. Nil keeps the caller-and-children default.
	Policy *policy.Config `json:"policy,omitempty" yaml:"policy,omitempty"`
}

// DefaultConfig returns a Config populated with the same defaults the
// constructors use. Callers may modify the returned struct before passing it
// to New via WithConfig.
func DefaultConfig() *Config {
	return &Config{
		Scheduler:       scheduler.DefaultConfig(),
		ProcTable:       proctable.DefaultConfig(),
		DefaultPriority: 16,
	}
}

// Validate returns an error describing invalid settings or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	if c.DefaultPriority < kstride.MinPriority {
		return fmt.Errorf("defaultPriority must be >= %d, got %d", kstride.MinPriority, c.DefaultPriority)
	}
	if c.ProcTable.MaxProcesses < 0 {
		return fmt.Errorf("procTable.maxProcesses must not be negative")
	}
	if c.Scheduler.TickInterval < 0 {
		return fmt.Errorf("scheduler.tickInterval must not be negative")
	}
	return nil
}

// LoadConfig reads an engine configuration from a YAML document at the given
// URL. Unset fields inherit defaults.
func LoadConfig(ctx context.Context, URL string) (*Config, error) {
	fs := afs.New()
	data, err := fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to load config %v: %w", URL, err)
	}
	return DecodeConfigYAML(data)
}

// DecodeConfigYAML decodes and validates a YAML engine configuration.
func DecodeConfigYAML(data []byte) (*Config, error) {
	ret := DefaultConfig()
	if err := yaml.Unmarshal(data, ret); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := ret.Validate(); err != nil {
		return nil, err
	}
	return ret, nil
}
