package memprobe

import (
	"context"
	"fmt"
	"time"

	"github.com/core-tools/hsu-supervisor-monitor/pkg/errors"
	"github.com/core-tools/hsu-supervisor-monitor/pkg/logging"
)

const (
	SourcePS   = "ps"
	SourceProc = "proc"

	DefaultTimeout = 5 * time.Second
)

// Source reports the resident set size of a process in kilobytes
type Source interface {
	Name() string
	ResidentKB(ctx context.Context, pid int) (int64, error)
}

// Probe reports resident memory in megabytes. A vanished pid is an
// ordinary outcome and comes back as a probe error.
type Probe interface {
	ResidentMB(ctx context.Context, pid int) (int, error)
}

type probe struct {
	source  Source
	timeout time.Duration
	logger  logging.Logger
}

func NewProbe(source Source, timeout time.Duration, logger logging.Logger) Probe {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &probe{
		source:  source,
		timeout: timeout,
		logger:  logger,
	}
}

// NewSource returns the backend registered under name
func NewSource(name string) (Source, error) {
	switch name {
	case SourcePS, "":
		return NewPSSource(nil), nil
	case SourceProc:
		return NewProcSource(), nil
	}
	return nil, errors.NewValidationError(fmt.Sprintf("unknown memory probe %q", name), nil)
}

func (p *probe) ResidentMB(ctx context.Context, pid int) (int, error) {
	if pid <= 0 {
		return 0, errors.NewProbeError(fmt.Sprintf("invalid pid %d", pid), nil)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	kb, err := p.source.ResidentKB(ctx, pid)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			err = errors.NewTimeoutError(fmt.Sprintf("memory query timed out after %v", p.timeout), err)
		}
		return 0, errors.NewProbeError("failed to query resident memory", err).
			WithContext("pid", pid).
			WithContext("source", p.source.Name())
	}

	mb := int(kb / 1024)
	p.logger.Debugf("Resident memory, pid: %d, source: %s, rss: %dK (%dM)", pid, p.source.Name(), kb, mb)
	return mb, nil
}
