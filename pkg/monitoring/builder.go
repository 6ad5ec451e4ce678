package monitoring

import (
	"github.com/core-tools/hsu-supervisor-monitor/pkg/config"
	"github.com/core-tools/hsu-supervisor-monitor/pkg/errors"
	"github.com/core-tools/hsu-supervisor-monitor/pkg/logging"
	"github.com/core-tools/hsu-supervisor-monitor/pkg/memprobe"
)

// BuildChecks assembles the configured checks in evaluation order:
// memory, endpoint, gRPC.
func BuildChecks(cfg *config.MonitorConfig, resolver PIDResolver, logger logging.Logger) ([]HealthCheck, error) {
	if cfg == nil {
		return nil, errors.NewConfigError("configuration cannot be nil", nil)
	}

	checks := make([]HealthCheck, 0, 3)

	if cfg.MemoryEnabled() {
		source, err := memprobe.NewSource(cfg.MemoryProbe)
		if err != nil {
			return nil, errors.NewConfigError("failed to create memory probe", err)
		}
		probe := memprobe.NewProbe(source, cfg.Control.Timeout, logger)
		checks = append(checks, NewMemoryCheck(cfg.ProgramName, cfg.MemoryLimitMB, resolver, probe, logger))
	}

	if cfg.EndpointEnabled() {
		checks = append(checks, NewEndpointCheck(cfg.EndpointURL, cfg.RequestTimeout, nil, logger))
	}

	if cfg.GRPCEnabled() {
		checks = append(checks, NewGRPCCheck(cfg.GRPCAddress, cfg.GRPCService, cfg.RequestTimeout, logger))
	}

	if len(checks) == 0 {
		return nil, config.ErrNoHealthSignal
	}
	return checks, nil
}
