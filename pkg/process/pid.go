package process

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/core-tools/hsu-supervisor-monitor/pkg/errors"
)

// ParsePID parses a decimal pid as printed by supervisorctl or ps
func ParsePID(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.NewValidationError("PID cannot be empty", nil)
	}

	pid, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.NewValidationError(fmt.Sprintf("invalid PID format %q", s), err)
	}

	if pid <= 0 {
		return 0, errors.NewValidationError(fmt.Sprintf("PID must be positive, got %d", pid), nil)
	}

	return pid, nil
}
