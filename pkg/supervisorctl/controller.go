package supervisorctl

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/core-tools/hsu-supervisor-monitor/pkg/errors"
	"github.com/core-tools/hsu-supervisor-monitor/pkg/logging"
	"github.com/core-tools/hsu-supervisor-monitor/pkg/process"
)

const (
	DefaultCommand = "supervisorctl"
	DefaultTimeout = 10 * time.Second
)

// Config describes how the control command is invoked
type Config struct {
	Command string        `yaml:"command,omitempty"`
	Args    []string      `yaml:"args,omitempty"` // leading arguments, e.g. -c /etc/supervisord.conf
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// Controller requests lifecycle operations on a supervised program. It
// never manages the process itself; the supervisor daemon does.
type Controller interface {
	ResolvePID(ctx context.Context, program string) (int, error)
	Restart(ctx context.Context, program string) error
}

type controller struct {
	config Config
	run    process.Runner
	logger logging.Logger
}

func NewController(config Config, logger logging.Logger) Controller {
	return NewControllerWithRunner(config, process.ExecRunner, logger)
}

func NewControllerWithRunner(config Config, run process.Runner, logger logging.Logger) Controller {
	if config.Command == "" {
		config.Command = DefaultCommand
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	return &controller{
		config: config,
		run:    run,
		logger: logger,
	}
}

func (c *controller) ResolvePID(ctx context.Context, program string) (int, error) {
	stdout, stderr, err := c.exec(ctx, "pid", program)
	if err != nil {
		return 0, errors.NewNotFoundError("failed to resolve pid", err).
			WithContext("program", program).
			WithContext("output", combinedOutput(stdout, stderr))
	}

	out := strings.TrimSpace(string(stdout))
	if out == "" {
		return 0, errors.NewNotFoundError("empty pid output", nil).WithContext("program", program)
	}

	// supervisorctl prints 0 for a program that is not running
	if out == "0" {
		return 0, errors.NewNotFoundError("program is not running", nil).WithContext("program", program)
	}
	pid, err := process.ParsePID(out)
	if err != nil {
		return 0, errors.NewNotFoundError(fmt.Sprintf("unexpected pid output %q", out), err).WithContext("program", program)
	}

	c.logger.Debugf("Resolved pid, program: %s, pid: %d", program, pid)
	return pid, nil
}

func (c *controller) Restart(ctx context.Context, program string) error {
	stdout, stderr, err := c.exec(ctx, "restart", program)
	output := combinedOutput(stdout, stderr)
	if err != nil {
		return errors.NewRestartError(fmt.Sprintf("restart of %s failed: %s", program, output), err).WithContext("program", program)
	}
	if refused(output) {
		return errors.NewRestartError(fmt.Sprintf("restart of %s refused: %s", program, output), nil).WithContext("program", program)
	}

	c.logger.Debugf("Restart command output, program: %s, output: %s", program, output)
	return nil
}

func (c *controller) exec(ctx context.Context, action, program string) ([]byte, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	args := make([]string, 0, len(c.config.Args)+2)
	args = append(args, c.config.Args...)
	args = append(args, action, program)

	c.logger.Debugf("Running control command, command: %s, args: %v", c.config.Command, args)

	stdout, stderr, err := c.run(ctx, c.config.Command, args...)
	if ctx.Err() == context.DeadlineExceeded {
		return stdout, stderr, errors.NewTimeoutError(
			fmt.Sprintf("%s %s timed out after %v", c.config.Command, action, c.config.Timeout), err)
	}
	return stdout, stderr, err
}

// refused reports an exit-0 restart that never started the program. Older
// supervisorctl releases exit 0 on errors. A crashed program prints
// "ERROR (not running)" from the stop step and still starts, which is success.
func refused(output string) bool {
	if !strings.Contains(output, "ERROR (") {
		return false
	}
	for _, line := range strings.Split(output, "\n") {
		if strings.HasSuffix(strings.TrimSpace(line), ": started") {
			return false
		}
	}
	return true
}

func combinedOutput(stdout, stderr []byte) string {
	parts := make([]string, 0, 2)
	if s := strings.TrimSpace(string(stdout)); s != "" {
		parts = append(parts, s)
	}
	if s := strings.TrimSpace(string(stderr)); s != "" {
		parts = append(parts, s)
	}
	return strings.Join(parts, "; ")
}
