package config

import (
	"os"
	"time"

	"github.com/core-tools/hsu-supervisor-monitor/pkg/errors"
	"github.com/core-tools/hsu-supervisor-monitor/pkg/logging"
	"github.com/core-tools/hsu-supervisor-monitor/pkg/memprobe"
	"github.com/core-tools/hsu-supervisor-monitor/pkg/supervisorctl"

	"gopkg.in/yaml.v3"
)

const (
	DefaultInterval       = 60 * time.Second
	DefaultRequestTimeout = 5 * time.Second
)

// MonitorConfig is built once at startup and never changes afterwards
type MonitorConfig struct {
	ProgramName  string        `yaml:"program_name"`
	Interval     time.Duration `yaml:"interval,omitempty"`
	InitialDelay time.Duration `yaml:"initial_delay,omitempty"`

	// Memory signal, disabled when zero
	MemoryLimitMB int    `yaml:"memory_limit_mb,omitempty"`
	MemoryProbe   string `yaml:"memory_probe,omitempty"`

	// HTTP signal, disabled when empty
	EndpointURL    string        `yaml:"endpoint_url,omitempty"`
	RequestTimeout time.Duration `yaml:"request_timeout,omitempty"`

	// gRPC health signal, disabled when empty
	GRPCAddress string `yaml:"grpc_address,omitempty"`
	GRPCService string `yaml:"grpc_service,omitempty"`

	Control supervisorctl.Config `yaml:"control,omitempty"`

	StatusAddr string            `yaml:"status_addr,omitempty"`
	LockDir    string            `yaml:"lock_dir,omitempty"`
	Log        logging.ZapConfig `yaml:"log,omitempty"`
}

// DefaultConfig leaves the timeouts unset so SetDefaults can fit them
// inside whatever interval ends up configured
func DefaultConfig() *MonitorConfig {
	return &MonitorConfig{
		Interval:    DefaultInterval,
		MemoryProbe: memprobe.SourcePS,
		Control: supervisorctl.Config{
			Command: supervisorctl.DefaultCommand,
		},
		Log: logging.DefaultZapConfig(),
	}
}

// LoadConfigFromFile reads a YAML file over DefaultConfig. Keys absent from
// the file keep their default values; Finalize still has to run once
// command line overrides are applied.
func LoadConfigFromFile(filename string) (*MonitorConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.NewIOError("failed to read configuration file", err).WithContext("filename", filename)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, errors.NewConfigError("failed to parse YAML configuration", err).WithContext("filename", filename)
	}

	return config, nil
}

// Finalize applies defaults, caps timeouts and validates; the result is
// ready for use
func Finalize(config *MonitorConfig, logger logging.Logger) error {
	if config == nil {
		return errors.NewConfigError("configuration cannot be nil", nil)
	}
	SetDefaults(config)
	ClampTimeouts(config, logger)
	return ValidateConfig(config)
}

// ClampTimeouts caps the request and control timeouts at the interval
func ClampTimeouts(config *MonitorConfig, logger logging.Logger) {
	if config.Interval <= 0 {
		return
	}
	if config.RequestTimeout > config.Interval {
		logger.Warnf("Request timeout %v exceeds interval %v, using %v", config.RequestTimeout, config.Interval, config.Interval)
		config.RequestTimeout = config.Interval
	}
	if config.Control.Timeout > config.Interval {
		logger.Warnf("Control command timeout %v exceeds interval %v, using %v", config.Control.Timeout, config.Interval, config.Interval)
		config.Control.Timeout = config.Interval
	}
}

// SetDefaults fills zero values left by partial files or flags
func SetDefaults(config *MonitorConfig) {
	if config.Interval == 0 {
		config.Interval = DefaultInterval
	}
	if config.RequestTimeout == 0 {
		config.RequestTimeout = clamp(DefaultRequestTimeout, config.Interval)
	}
	if config.MemoryProbe == "" {
		config.MemoryProbe = memprobe.SourcePS
	}
	if config.Control.Command == "" {
		config.Control.Command = supervisorctl.DefaultCommand
	}
	if config.Control.Timeout == 0 {
		config.Control.Timeout = clamp(supervisorctl.DefaultTimeout, config.Interval)
	}
	if config.Log.Level == "" {
		config.Log.Level = "info"
	}
}

// clamp keeps a default timeout within short intervals
func clamp(timeout, interval time.Duration) time.Duration {
	if interval > 0 && timeout > interval {
		return interval
	}
	return timeout
}

func (c *MonitorConfig) MemoryEnabled() bool {
	return c.MemoryLimitMB > 0
}

func (c *MonitorConfig) EndpointEnabled() bool {
	return c.EndpointURL != ""
}

func (c *MonitorConfig) GRPCEnabled() bool {
	return c.GRPCAddress != ""
}

// HasHealthSignal reports whether any check can be built from the configuration
func (c *MonitorConfig) HasHealthSignal() bool {
	return c.MemoryEnabled() || c.EndpointEnabled() || c.GRPCEnabled()
}
