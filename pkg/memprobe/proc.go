package memprobe

import (
	"context"
	"fmt"

	"github.com/core-tools/hsu-supervisor-monitor/pkg/errors"

	"github.com/shirou/gopsutil/process"
)

// procSource reads RSS through gopsutil (/proc on Linux) without forking ps
type procSource struct{}

func NewProcSource() Source {
	return &procSource{}
}

func (s *procSource) Name() string {
	return SourceProc
}

func (s *procSource) ResidentKB(ctx context.Context, pid int) (int64, error) {
	proc, err := process.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		return 0, errors.NewProbeError(fmt.Sprintf("process %d not found", pid), err)
	}
	mem, err := proc.MemoryInfoWithContext(ctx)
	if err != nil {
		return 0, errors.NewProbeError(fmt.Sprintf("failed to read memory info of process %d", pid), err)
	}
	return int64(mem.RSS / 1024), nil
}
