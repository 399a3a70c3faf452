package registry

import (
	"bytes"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/device-infra/app-acceptor/types"
)

// planFile is the YAML representation of a test plan
type planFile struct {
	Suite  string     `yaml:"suite"`
	Config planConfig `yaml:"config"`
	Cases  []planCase `yaml:"cases"`
}

// planConfig overrides the default suite configuration. Pointer fields
// distinguish "absent" from zero values.
type planConfig struct {
	Serial      *bool    `yaml:"serial"`
	Concurrency int      `yaml:"concurrency"`
	Timeout     duration `yaml:"timeout"`
	RetryLimit  *int     `yaml:"retry_limit"`
	RetryDelay  duration `yaml:"retry_delay"`
	FailFast    bool     `yaml:"fail_fast"`
}

// planCase selects one registered test case and optionally overrides its
// run parameters.
type planCase struct {
	ID         string   `yaml:"id"`
	Timeout    duration `yaml:"timeout"`
	RetryLimit *int     `yaml:"retry_limit"`
	DependsOn  []string `yaml:"depends_on"`
	Tags       []string `yaml:"tags"`
	Priority   string   `yaml:"priority"`
	Disabled   *bool    `yaml:"disabled"`
}

// apply layers the plan overrides on top of the defaults
func (pc planConfig) apply(cfg types.SuiteConfig) types.SuiteConfig {
	if pc.Serial != nil {
		cfg.Serial = *pc.Serial
	}
	if pc.Concurrency > 0 {
		cfg.Concurrency = pc.Concurrency
		if pc.Serial == nil {
			// Asking for workers implies parallel mode.
			cfg.Serial = false
		}
	}
	if pc.Timeout > 0 {
		cfg.Timeout = time.Duration(pc.Timeout)
	}
	if pc.RetryLimit != nil {
		cfg.RetryLimit = *pc.RetryLimit
	}
	if pc.RetryDelay > 0 {
		cfg.RetryDelay = time.Duration(pc.RetryDelay)
	}
	cfg.FailFast = cfg.FailFast || pc.FailFast
	return cfg
}

// apply returns a copy of the registered case with the plan's overrides
func (pc planCase) apply(tc types.TestCase) types.TestCase {
	if pc.Timeout > 0 {
		tc.Timeout = time.Duration(pc.Timeout)
	}
	if pc.RetryLimit != nil {
		limit := *pc.RetryLimit
		tc.RetryLimit = &limit
	}
	if len(pc.DependsOn) > 0 {
		tc.DependsOn = pc.DependsOn
	}
	if len(pc.Tags) > 0 {
		tc.Tags = append(tc.Tags, pc.Tags...)
	}
	if pc.Priority != "" {
		tc.Priority = types.Priority(pc.Priority)
	}
	if pc.Disabled != nil {
		tc.Disabled = *pc.Disabled
	}
	return tc
}

// duration is a time.Duration that unmarshals from YAML strings like "30s"
type duration time.Duration

// UnmarshalYAML implements the yaml.Unmarshaler interface
func (d *duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("duration must be a string like '30s' or '5m': %w", err)
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = duration(parsed)
	return nil
}

// unmarshalStrict decodes YAML rejecting unknown fields, so typos in plan
// files fail loudly instead of being silently ignored.
func unmarshalStrict(data []byte, out any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	return dec.Decode(out)
}
