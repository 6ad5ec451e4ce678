package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/core-tools/hsu-supervisor-monitor/pkg/errors"
	"github.com/core-tools/hsu-supervisor-monitor/pkg/logging"
	"github.com/core-tools/hsu-supervisor-monitor/pkg/monitoring"
)

// Restarter asks the external supervisor to restart a program
type Restarter interface {
	Restart(ctx context.Context, program string) error
}

// Sleeper waits for d or until ctx is done
type Sleeper func(ctx context.Context, d time.Duration) error

type Options struct {
	ProgramName  string
	Interval     time.Duration
	InitialDelay time.Duration
	Sleep        Sleeper // nil uses a timer
	Now          func() time.Time
}

// CycleReport describes one check/restart cycle
type CycleReport struct {
	Cycle        int               `json:"cycle"`
	StartedAt    time.Time         `json:"started_at"`
	Duration     time.Duration     `json:"duration"`
	Healthy      bool              `json:"healthy"`
	FailedCheck  string            `json:"failed_check,omitempty"`
	Result       monitoring.Result `json:"result"`
	Restarted    bool              `json:"restarted"`
	RestartError string            `json:"restart_error,omitempty"`
}

// Status is a snapshot of the monitor counters and its last cycle
type Status struct {
	ProgramName     string        `json:"program_name"`
	Interval        time.Duration `json:"interval"`
	Checks          []string      `json:"checks"`
	Cycles          int           `json:"cycles"`
	Restarts        int           `json:"restarts"`
	RestartFailures int           `json:"restart_failures"`
	LastCycle       *CycleReport  `json:"last_cycle,omitempty"`
}

// Monitor runs its checks in order on a fixed interval and asks the
// supervisor to restart the program whenever one of them trips. There is
// a single timeline: check, maybe restart, sleep, repeat.
type Monitor struct {
	options   Options
	checks    []monitoring.HealthCheck
	restarter Restarter
	logger    logging.Logger

	mutex  sync.Mutex
	status Status
}

func New(options Options, checks []monitoring.HealthCheck, restarter Restarter, logger logging.Logger) (*Monitor, error) {
	if len(checks) == 0 {
		return nil, errors.NewConfigError("no health checks configured", nil).WithContext("program", options.ProgramName)
	}
	if options.ProgramName == "" {
		return nil, errors.NewConfigError("program name is required", nil)
	}
	if options.Interval <= 0 {
		return nil, errors.NewConfigError("interval must be positive", nil).WithContext("program", options.ProgramName)
	}
	if restarter == nil {
		return nil, errors.NewConfigError("restarter is required", nil).WithContext("program", options.ProgramName)
	}
	if options.Sleep == nil {
		options.Sleep = sleepContext
	}
	if options.Now == nil {
		options.Now = time.Now
	}

	names := make([]string, len(checks))
	for i, check := range checks {
		names[i] = check.Name()
	}

	return &Monitor{
		options:   options,
		checks:    checks,
		restarter: restarter,
		logger:    logger,
		status: Status{
			ProgramName: options.ProgramName,
			Interval:    options.Interval,
			Checks:      names,
		},
	}, nil
}

// Run blocks until ctx is cancelled. Nothing that happens inside a cycle
// stops the loop.
func (m *Monitor) Run(ctx context.Context) error {
	m.logger.Infof("Monitoring started, program: %s, interval: %v, checks: %v",
		m.options.ProgramName, m.options.Interval, m.status.Checks)

	if m.options.InitialDelay > 0 {
		m.logger.Debugf("Initial delay, program: %s, delay: %v", m.options.ProgramName, m.options.InitialDelay)
		if err := m.options.Sleep(ctx, m.options.InitialDelay); err != nil {
			return m.stopped(ctx)
		}
	}

	for {
		m.RunCycle(ctx)

		m.logger.Debugf("Sleeping %v", m.options.Interval)
		if err := m.options.Sleep(ctx, m.options.Interval); err != nil {
			return m.stopped(ctx)
		}
	}
}

func (m *Monitor) stopped(ctx context.Context) error {
	m.logger.Infof("Monitoring stopped, program: %s", m.options.ProgramName)
	return ctx.Err()
}

// RunCycle evaluates the checks, stopping at the first unhealthy one, and
// restarts the program if any tripped. A failed restart is only logged;
// the next cycle detects the problem again and retries.
func (m *Monitor) RunCycle(ctx context.Context) CycleReport {
	started := m.options.Now()

	m.mutex.Lock()
	cycle := m.status.Cycles + 1
	m.mutex.Unlock()

	report := CycleReport{Cycle: cycle, StartedAt: started, Healthy: true}

	for _, check := range m.checks {
		result := check.Check(ctx)
		report.Result = result
		if !result.Healthy {
			report.Healthy = false
			report.FailedCheck = check.Name()
			break
		}
		m.logger.Debugf("Check passed, program: %s, check: %s, detail: %s", m.options.ProgramName, check.Name(), result.Reason)
	}

	if !report.Healthy && ctx.Err() != nil {
		// the failure is our own shutdown cancelling the check
		m.logger.Debugf("Skipping restart during shutdown, program: %s, reason: %s", m.options.ProgramName, report.Result.Reason)
	} else if !report.Healthy {
		m.logger.Errorf("Restarting: reason %s, program: %s, check: %s, code: %s",
			report.Result.Reason, m.options.ProgramName, report.FailedCheck, report.Result.Code)

		report.Restarted = true
		if err := m.restarter.Restart(ctx, m.options.ProgramName); err != nil {
			report.RestartError = err.Error()
			m.logger.Errorf("Restart error, program: %s, error: %v", m.options.ProgramName, err)
		} else {
			m.logger.Infof("Restarted %s", m.options.ProgramName)
		}
	}

	report.Duration = m.options.Now().Sub(started)
	m.record(report)
	return report
}

func (m *Monitor) record(report CycleReport) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.status.Cycles = report.Cycle
	if report.Restarted {
		if report.RestartError == "" {
			m.status.Restarts++
		} else {
			m.status.RestartFailures++
		}
	}
	m.status.LastCycle = &report
}

// Status returns a copy safe to use from other goroutines
func (m *Monitor) Status() Status {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	status := m.status
	status.Checks = append([]string(nil), m.status.Checks...)
	if m.status.LastCycle != nil {
		last := *m.status.LastCycle
		status.LastCycle = &last
	}
	return status
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
