package monitoring

import (
	"context"

	"github.com/core-tools/hsu-supervisor-monitor/pkg/logging"
	"github.com/core-tools/hsu-supervisor-monitor/pkg/memprobe"
)

// PIDResolver resolves the current pid of a supervised program
type PIDResolver interface {
	ResolvePID(ctx context.Context, program string) (int, error)
}

type memoryCheck struct {
	program  string
	limitMB  int
	resolver PIDResolver
	probe    memprobe.Probe
	logger   logging.Logger
}

// NewMemoryCheck trips when the resident size of program exceeds limitMB.
// The pid is resolved on every call since the supervisor may have
// restarted the program since the previous poll.
func NewMemoryCheck(program string, limitMB int, resolver PIDResolver, probe memprobe.Probe, logger logging.Logger) HealthCheck {
	return &memoryCheck{
		program:  program,
		limitMB:  limitMB,
		resolver: resolver,
		probe:    probe,
		logger:   logger,
	}
}

func (m *memoryCheck) Name() string {
	return "memory"
}

func (m *memoryCheck) Type() HealthCheckType {
	return HealthCheckTypeMemory
}

func (m *memoryCheck) Check(ctx context.Context) Result {
	pid, err := m.resolver.ResolvePID(ctx, m.program)
	if err != nil {
		m.logger.Warnf("Memory check could not resolve pid, program: %s, error: %v", m.program, err)
		return Failed(CodeCheckFailed, err, "could not resolve pid of %s: %v", m.program, err)
	}

	sizeMB, err := m.probe.ResidentMB(ctx, pid)
	if err != nil {
		m.logger.Warnf("Memory check could not query memory, program: %s, pid: %d, error: %v", m.program, pid, err)
		return Failed(CodeCheckFailed, err, "could not query memory of %s (pid %d): %v", m.program, pid, err)
	}

	if sizeMB > m.limitMB {
		return Unhealthy(CodeOverLimit, "memory %dM > %dM", sizeMB, m.limitMB)
	}
	return Healthy("memory %dM <= %dM (pid %d)", sizeMB, m.limitMB, pid)
}
