//go:build windows

package process

import (
	"fmt"
	"syscall"

	"github.com/core-tools/hsu-supervisor-monitor/pkg/errors"
)

const (
	stillActive                    = 259
	processQueryLimitedInformation = 0x1000
)

func IsRunning(pid int) (bool, error) {
	if pid <= 0 {
		return false, errors.NewValidationError(fmt.Sprintf("invalid pid %d", pid), nil)
	}

	handle, err := syscall.OpenProcess(processQueryLimitedInformation, false, uint32(pid))
	if err != nil {
		return false, err
	}
	defer syscall.CloseHandle(handle)

	var exitCode uint32
	if err := syscall.GetExitCodeProcess(handle, &exitCode); err != nil {
		return false, err
	}
	return exitCode == stillActive, nil
}
