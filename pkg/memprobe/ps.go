package memprobe

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/core-tools/hsu-supervisor-monitor/pkg/errors"
	"github.com/core-tools/hsu-supervisor-monitor/pkg/process"
)

// psSource asks ps(1) for the RSS column, which it prints in kilobytes
type psSource struct {
	run process.Runner
}

// NewPSSource creates a ps backed source; a nil runner uses os/exec
func NewPSSource(run process.Runner) Source {
	if run == nil {
		run = process.ExecRunner
	}
	return &psSource{run: run}
}

func (s *psSource) Name() string {
	return SourcePS
}

func (s *psSource) ResidentKB(ctx context.Context, pid int) (int64, error) {
	stdout, stderr, err := s.run(ctx, "ps", "-o", "rss=", "-p", strconv.Itoa(pid))
	if err != nil {
		// ps exits 1 when the pid matches nothing
		if running, perr := process.IsRunning(pid); perr == nil && !running {
			return 0, errors.NewProbeError(fmt.Sprintf("process %d is not running", pid), err)
		}
		return 0, errors.NewProbeError(fmt.Sprintf("ps failed for pid %d: %s", pid, strings.TrimSpace(string(stderr))), err)
	}
	return parseKB(string(stdout))
}

func parseKB(out string) (int64, error) {
	out = strings.TrimSpace(out)
	if out == "" {
		return 0, errors.NewProbeError("empty memory query output", nil)
	}
	kb, err := strconv.ParseInt(out, 10, 64)
	if err != nil {
		return 0, errors.NewProbeError(fmt.Sprintf("non-numeric memory query output %q", out), err)
	}
	if kb < 0 {
		return 0, errors.NewProbeError(fmt.Sprintf("negative memory size %d", kb), nil)
	}
	return kb, nil
}
