//go:build !windows

package process

import (
	"fmt"
	"os"
	"syscall"

	"github.com/core-tools/hsu-supervisor-monitor/pkg/errors"
)

// IsRunning probes pid with signal 0. EPERM still means the process exists.
func IsRunning(pid int) (bool, error) {
	if pid <= 0 {
		return false, errors.NewValidationError(fmt.Sprintf("invalid pid %d", pid), nil)
	}

	// FindProcess never fails on Unix
	p, err := os.FindProcess(pid)
	if err != nil {
		return false, err
	}

	err = p.Signal(syscall.Signal(0))
	if err == nil {
		return true, nil
	}
	if err == os.ErrProcessDone {
		return false, nil
	}
	errno, ok := err.(syscall.Errno)
	if !ok {
		return false, err
	}
	switch errno {
	case syscall.ESRCH:
		return false, nil
	case syscall.EPERM:
		return true, nil
	}
	return false, err
}
