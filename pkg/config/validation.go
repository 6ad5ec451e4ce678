package config

import (
	"fmt"
	"net"
	"net/url"

	"github.com/core-tools/hsu-supervisor-monitor/pkg/errors"
	"github.com/core-tools/hsu-supervisor-monitor/pkg/logging"
	"github.com/core-tools/hsu-supervisor-monitor/pkg/memprobe"
)

// ErrNoHealthSignal is reported when neither a memory limit, an endpoint
// URL nor a gRPC address is configured
var ErrNoHealthSignal = errors.NewConfigError("no health signal configured: memory limit, endpoint URL or gRPC address required", nil)

// ValidateConfig checks every field and reports all problems at once
func ValidateConfig(config *MonitorConfig) error {
	if config == nil {
		return errors.NewConfigError("configuration cannot be nil", nil)
	}

	problems := errors.NewErrorCollection()

	if config.ProgramName == "" {
		problems.Add(errors.NewValidationError("program name is required", nil))
	}
	if !config.HasHealthSignal() {
		problems.Add(ErrNoHealthSignal)
	}

	problems.Add(validateIntervals(config))

	if config.MemoryLimitMB < 0 {
		problems.Add(errors.NewValidationError(fmt.Sprintf("memory limit must not be negative, got %d", config.MemoryLimitMB), nil))
	}
	if config.MemoryEnabled() {
		switch config.MemoryProbe {
		case memprobe.SourcePS, memprobe.SourceProc:
		default:
			problems.Add(errors.NewValidationError(fmt.Sprintf("unknown memory probe %q", config.MemoryProbe), nil))
		}
	}

	if config.EndpointEnabled() {
		problems.Add(ValidateEndpointURL(config.EndpointURL))
	}
	if config.GRPCEnabled() {
		if _, _, err := net.SplitHostPort(config.GRPCAddress); err != nil {
			problems.Add(errors.NewValidationError(fmt.Sprintf("invalid gRPC address %q", config.GRPCAddress), err))
		}
	}

	if config.Control.Command == "" {
		problems.Add(errors.NewValidationError("control command is required", nil))
	}
	if _, err := logging.ParseLevel(config.Log.Level); err != nil {
		problems.Add(errors.NewValidationError("invalid log level", err))
	}

	if err := problems.ToError(); err != nil {
		return errors.NewConfigError("invalid monitor configuration", err)
	}
	return nil
}

func validateIntervals(config *MonitorConfig) error {
	if config.Interval <= 0 {
		return errors.NewValidationError("interval must be positive", nil)
	}
	if config.InitialDelay < 0 {
		return errors.NewValidationError("initial delay cannot be negative", nil)
	}
	if config.RequestTimeout <= 0 {
		return errors.NewValidationError("request timeout must be positive", nil)
	}
	if config.RequestTimeout > config.Interval {
		return errors.NewValidationError(fmt.Sprintf("request timeout %v exceeds interval %v", config.RequestTimeout, config.Interval), nil)
	}
	if config.Control.Timeout <= 0 {
		return errors.NewValidationError("control command timeout must be positive", nil)
	}
	if config.Control.Timeout > config.Interval {
		return errors.NewValidationError(fmt.Sprintf("control command timeout %v exceeds interval %v", config.Control.Timeout, config.Interval), nil)
	}
	return nil
}

// ValidateEndpointURL accepts absolute http and https URLs only
func ValidateEndpointURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return errors.NewValidationError(fmt.Sprintf("invalid endpoint URL %q", raw), err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.NewValidationError(fmt.Sprintf("endpoint URL %q must use http or https", raw), nil)
	}
	if u.Host == "" {
		return errors.NewValidationError(fmt.Sprintf("endpoint URL %q has no host", raw), nil)
	}
	return nil
}
