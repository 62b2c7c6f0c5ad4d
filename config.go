// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fixpoint

import (
	"fmt"
	"os"
	"runtime"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Execution models.
const (
	// ExecutionSequential runs tasks to completion in the goroutine that
	// calls WaitOnPhaseCompletion. The reference model.
	ExecutionSequential = "seq"

	// ExecutionParallel drains the queue with a fixed worker pool.
	ExecutionParallel = "par"
)

// Dependee-update handling.
const (
	// UpdateHandlingEager runs continuations inline at the update site
	// (sequential stores only; parallel stores always queue).
	UpdateHandlingEager = "eager"

	// UpdateHandlingLazy queues continuations, honoring the delay
	// preferences below.
	UpdateHandlingLazy = "lazy"
)

// Config holds the store construction knobs. The zero value is usable:
// sequential execution, lazy queued updates, no delays, fast track off,
// release mode; [DefaultConfig] is the same with fast track on. Load from
// the environment with [ConfigFromEnv] or from YAML with
// [ParseConfig]/[LoadConfig].
type Config struct {
	// Execution selects the scheduling model: "seq" or "par".
	Execution string `yaml:"execution" env:"FIXPOINT_EXECUTION"`

	// Workers sizes the parallel pool. Defaults to GOMAXPROCS.
	Workers int `yaml:"workers" env:"FIXPOINT_WORKERS"`

	// DependeeUpdateHandling selects "eager" or "lazy" continuation
	// dispatch when a dependee updates.
	DependeeUpdateHandling string `yaml:"dependeeUpdateHandling" env:"FIXPOINT_DEPENDEE_UPDATE_HANDLING"`

	// DelayFinalNotifications holds "dependee became final" continuations
	// back until the main stack runs dry (lazy handling only).
	DelayFinalNotifications bool `yaml:"delayFinalNotifications" env:"FIXPOINT_DELAY_FINAL_NOTIFICATIONS"`

	// DelayNonFinalNotifications is the same preference for non-final
	// updates.
	DelayNonFinalNotifications bool `yaml:"delayNonFinalNotifications" env:"FIXPOINT_DELAY_NON_FINAL_NOTIFICATIONS"`

	// DelayDependerNotification batches all depender notifications until
	// queue drain, overriding the two preferences above.
	DelayDependerNotification bool `yaml:"delayDependerNotification" env:"FIXPOINT_DELAY_DEPENDER_NOTIFICATION"`

	// UseFastTrack consults a kind's fast-track hook before scheduling a
	// lazy computation.
	UseFastTrack bool `yaml:"useFastTrack" env:"FIXPOINT_USE_FAST_TRACK"`

	// Debug enables monotonicity checks: violations surface as
	// BadUpdate errors instead of being clamped.
	Debug bool `yaml:"debug" env:"FIXPOINT_DEBUG"`

	// SuppressError downgrades recoverable errors to log output.
	SuppressError bool `yaml:"suppressError" env:"FIXPOINT_SUPPRESS_ERROR"`
}

// DefaultConfig returns the default knobs: sequential, lazy updates, fast
// track enabled.
func DefaultConfig() Config {
	return Config{
		Execution:              ExecutionSequential,
		DependeeUpdateHandling: UpdateHandlingLazy,
		UseFastTrack:           true,
	}
}

func (c Config) withDefaults() Config {
	if c.Execution == "" {
		c.Execution = ExecutionSequential
	}
	if c.DependeeUpdateHandling == "" {
		c.DependeeUpdateHandling = UpdateHandlingLazy
	}
	if c.Execution == ExecutionParallel && c.Workers <= 0 {
		c.Workers = runtime.GOMAXPROCS(0)
	}
	return c
}

func (c Config) validate() error {
	switch c.Execution {
	case ExecutionSequential, ExecutionParallel:
	default:
		return fmt.Errorf("fixpoint: unknown execution model %q", c.Execution)
	}
	switch c.DependeeUpdateHandling {
	case UpdateHandlingEager, UpdateHandlingLazy:
	default:
		return fmt.Errorf("fixpoint: unknown dependee update handling %q", c.DependeeUpdateHandling)
	}
	if c.Execution == ExecutionParallel && c.Workers <= 0 {
		return fmt.Errorf("fixpoint: parallel execution needs a positive worker count, got %d", c.Workers)
	}
	return nil
}

func (c Config) eagerUpdates() bool { return c.DependeeUpdateHandling == UpdateHandlingEager }
func (c Config) lazyUpdates() bool  { return c.DependeeUpdateHandling == UpdateHandlingLazy }

// ConfigFromEnv builds a Config from FIXPOINT_* environment variables on
// top of the defaults.
func ConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("fixpoint: parsing environment: %w", err)
	}
	return cfg, nil
}

// ParseConfig builds a Config from YAML on top of the defaults.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("fixpoint: parsing config: %w", err)
	}
	return cfg, nil
}

// LoadConfig reads a YAML config file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("fixpoint: reading config: %w", err)
	}
	return ParseConfig(data)
}
